package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserId         uuid.UUID         `gorm:"type:uuid;not null;index"`
	CollectionName string            `gorm:"type:varchar(255);not null;index"`
	Filename       string            `gorm:"type:varchar(512);not null"`
	FileType       string            `gorm:"type:varchar(16);not null"`
	FileSize       int64             `gorm:"not null;default:0"`
	ContentType    string            `gorm:"type:varchar(255)"`
	Status         string            `gorm:"type:varchar(20);not null;index"`
	ChunkCount     int               `gorm:"not null;default:0"`
	TokenCount     int               `gorm:"not null;default:0"`
	ErrorMessage   string            `gorm:"type:text"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
	ProcessedAt    *time.Time
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.Id == uuid.Nil {
		d.Id = uuid.New()
	}
	return nil
}
