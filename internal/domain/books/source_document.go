package books

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SourceKindTranscript = "transcript"
	SourceKindSlide      = "slide"
)

// SourceDocument is a transcript or slide deck produced by the ingestion side.
type SourceDocument struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID      uuid.UUID `gorm:"type:uuid;not null;index" json:"book_id"`
	Kind        string    `gorm:"column:kind;not null;index" json:"kind"`
	Title       string    `gorm:"column:title" json:"title"`
	StoragePath string    `gorm:"column:storage_path;not null" json:"storage_path"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (SourceDocument) TableName() string { return "source_document" }

func (d *SourceDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
