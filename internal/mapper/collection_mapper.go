package mapper

import (
	"ai-platform-be/internal/entity"
	"ai-platform-be/internal/model"
)

type CollectionMapper struct{}

func NewCollectionMapper() *CollectionMapper {
	return &CollectionMapper{}
}

func (m *CollectionMapper) ToEntity(c *model.Collection) *entity.Collection {
	if c == nil {
		return nil
	}
	return &entity.Collection{
		Id:             c.Id,
		Name:           c.Name,
		Description:    c.Description,
		EmbeddingModel: c.EmbeddingModel,
		DistanceMetric: c.DistanceMetric,
		VectorSize:     c.VectorSize,
		CreatedAt:      c.CreatedAt,
	}
}

func (m *CollectionMapper) ToModel(c *entity.Collection) *model.Collection {
	if c == nil {
		return nil
	}
	return &model.Collection{
		Id:             c.Id,
		Name:           c.Name,
		Description:    c.Description,
		EmbeddingModel: c.EmbeddingModel,
		DistanceMetric: c.DistanceMetric,
		VectorSize:     c.VectorSize,
		CreatedAt:      c.CreatedAt,
	}
}

func (m *CollectionMapper) ToEntities(cols []*model.Collection) []*entity.Collection {
	entities := make([]*entity.Collection, len(cols))
	for i, c := range cols {
		entities[i] = m.ToEntity(c)
	}
	return entities
}
