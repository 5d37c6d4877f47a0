package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	CollectionName string
	Filename       string
	FileType       string
	FileSize       int64
	ContentType    string
	Status         string
	ChunkCount     int
	TokenCount     int
	ErrorMessage   string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	ProcessedAt    *time.Time
}
