package contract

import (
	"context"

	"ai-platform-be/internal/entity"
	"ai-platform-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	Update(ctx context.Context, document *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCollection(ctx context.Context, collectionName string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// CountByCollection returns document counts keyed by collection name.
	CountByCollection(ctx context.Context, specs ...specification.Specification) (map[string]int64, error)
}
