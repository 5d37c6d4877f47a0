package mapper

import (
	"time"

	"ai-platform-be/internal/entity"
	"ai-platform-be/internal/model"

	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	metadata := map[string]interface{}{}
	for k, v := range d.Metadata {
		metadata[k] = v
	}

	return &entity.Document{
		Id:             d.Id,
		UserId:         d.UserId,
		CollectionName: d.CollectionName,
		Filename:       d.Filename,
		FileType:       d.FileType,
		FileSize:       d.FileSize,
		ContentType:    d.ContentType,
		Status:         d.Status,
		ChunkCount:     d.ChunkCount,
		TokenCount:     d.TokenCount,
		ErrorMessage:   d.ErrorMessage,
		Metadata:       metadata,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      updatedAt,
		ProcessedAt:    d.ProcessedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	var metadata datatypes.JSONMap
	if d.Metadata != nil {
		metadata = datatypes.JSONMap(d.Metadata)
	}

	return &model.Document{
		Id:             d.Id,
		UserId:         d.UserId,
		CollectionName: d.CollectionName,
		Filename:       d.Filename,
		FileType:       d.FileType,
		FileSize:       d.FileSize,
		ContentType:    d.ContentType,
		Status:         d.Status,
		ChunkCount:     d.ChunkCount,
		TokenCount:     d.TokenCount,
		ErrorMessage:   d.ErrorMessage,
		Metadata:       metadata,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      updatedAt,
		ProcessedAt:    d.ProcessedAt,
	}
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
