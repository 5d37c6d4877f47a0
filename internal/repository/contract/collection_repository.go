package contract

import (
	"context"

	"ai-platform-be/internal/entity"
	"ai-platform-be/internal/repository/specification"
)

type CollectionRepository interface {
	Create(ctx context.Context, collection *entity.Collection) error
	DeleteByName(ctx context.Context, name string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Collection, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Collection, error)
}
