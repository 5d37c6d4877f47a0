package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ai-platform-be/internal/pkg/apperror"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VectorCollection struct {
	Name       string    `gorm:"type:varchar(255);primaryKey"`
	VectorSize int       `gorm:"not null"`
	Distance   string    `gorm:"type:varchar(32);not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (VectorCollection) TableName() string {
	return "vector_collections"
}

// VectorPoint uses an untyped vector column; each collection fixes its own size.
type VectorPoint struct {
	ID         string            `gorm:"type:varchar(64);primaryKey"`
	Collection string            `gorm:"type:varchar(255);primaryKey"`
	DocumentID string            `gorm:"type:varchar(64);index"`
	Embedding  pgvector.Vector   `gorm:"type:vector"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime"`
}

func (VectorPoint) TableName() string {
	return "vector_points"
}

// Models lists the tables the pgvector backend needs migrated.
func Models() []interface{} {
	return []interface{}{&VectorCollection{}, &VectorPoint{}}
}

// PgVectorStore keeps points in Postgres and scores them with pgvector's cosine operator.
type PgVectorStore struct {
	db *gorm.DB
}

var _ Store = (*PgVectorStore)(nil)

func NewPgVectorStore(db *gorm.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&VectorCollection{Name: name, VectorSize: vectorSize, Distance: DistanceCosine})
	if res.Error != nil {
		return storeError("create_collection", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.Newf(apperror.ErrAlreadyExists, "collection %s already exists", name)
	}
	return nil
}

func (s *PgVectorStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	type row struct {
		Name        string
		VectorSize  int
		Distance    string
		PointsCount int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Table("vector_collections").
		Select("vector_collections.name, vector_collections.vector_size, vector_collections.distance, COUNT(vector_points.id) AS points_count").
		Joins("LEFT JOIN vector_points ON vector_points.collection = vector_collections.name").
		Group("vector_collections.name, vector_collections.vector_size, vector_collections.distance").
		Order("vector_collections.name").
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("list_collections", "", err)
	}

	out := make([]CollectionInfo, len(rows))
	for i, r := range rows {
		out[i] = CollectionInfo(r)
	}
	return out, nil
}

func (s *PgVectorStore) findCollection(ctx context.Context, name string) (*VectorCollection, error) {
	var c VectorCollection
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("collection not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PgVectorStore) DeleteCollection(ctx context.Context, name string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", name).Delete(&VectorPoint{}).Error; err != nil {
			return err
		}
		res := tx.Where("name = ?", name).Delete(&VectorCollection{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("collection not found")
		}
		return nil
	})
	if err != nil {
		return storeError("delete_collection", name, err)
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	c, err := s.findCollection(ctx, collection)
	if err != nil {
		return storeError("upsert", collection, err)
	}

	rows := make([]VectorPoint, len(points))
	for i, p := range points {
		if len(p.Vector) != c.VectorSize {
			return storeError("upsert", collection, fmt.Errorf("point %s has %d dimensions, want %d", p.ID, len(p.Vector), c.VectorSize))
		}
		docID, _ := p.Payload[PayloadDocumentID].(string)
		rows[i] = VectorPoint{
			ID:         p.ID,
			Collection: collection,
			DocumentID: docID,
			Embedding:  pgvector.NewVector(p.Vector),
			Payload:    datatypes.JSONMap(p.Payload),
		}
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "collection"}},
			DoUpdates: clause.AssignmentColumns([]string{"document_id", "embedding", "payload", "updated_at"}),
		}).
		CreateInBatches(rows, upsertBatchSize).Error
	if err != nil {
		return storeError("upsert", collection, err)
	}
	return nil
}

var payloadPath = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

func (s *PgVectorStore) Search(ctx context.Context, collection string, req SearchRequest) ([]ScoredPoint, error) {
	if _, err := s.findCollection(ctx, collection); err != nil {
		return nil, storeError("search", collection, err)
	}

	type result struct {
		ID         string
		Payload    datatypes.JSONMap
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(req.Vector)

	// Cosine distance in pgvector is: 1 - cosine_similarity
	q := s.db.WithContext(ctx).
		Table("vector_points").
		Select("id, payload, GREATEST(0, 1 - (embedding <=> ?)) AS similarity", queryVector).
		Where("collection = ?", collection).
		Where("GREATEST(0, 1 - (embedding <=> ?)) >= ?", queryVector, req.ScoreThreshold)

	for k, v := range req.Filters {
		path := FilterKey(k)
		if !payloadPath.MatchString(path) {
			return nil, apperror.Newf(apperror.ErrValidation, "invalid filter key: %s", k)
		}
		// path only holds word characters and dots at this point
		q = q.Where(fmt.Sprintf("payload #>> '{%s}' = ?", strings.ReplaceAll(path, ".", ",")), fmt.Sprint(v))
	}

	limit := req.TopK
	if limit <= 0 {
		limit = 5
	}
	if err := q.Order("similarity DESC").Limit(limit).Scan(&results).Error; err != nil {
		return nil, storeError("search", collection, err)
	}

	out := make([]ScoredPoint, len(results))
	for i, r := range results {
		out[i] = ScoredPoint{ID: r.ID, Score: r.Similarity, Payload: map[string]interface{}(r.Payload)}
	}
	return out, nil
}

func (s *PgVectorStore) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND document_id = ?", collection, documentID).
		Delete(&VectorPoint{}).Error
	if err != nil {
		return storeError("delete_by_document", collection, err)
	}
	return nil
}
