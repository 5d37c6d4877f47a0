package entity

import (
	"time"

	"github.com/google/uuid"
)

type Collection struct {
	Id             uuid.UUID
	Name           string
	Description    string
	EmbeddingModel string
	DistanceMetric string
	VectorSize     int
	CreatedAt      time.Time
}
