package books

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BookStatusPending            = "PENDING"
	BookStatusDiscovering        = "DISCOVERING"
	BookStatusStructureGenerated = "STRUCTURE_GENERATED"
	BookStatusGenerating         = "GENERATING"
	BookStatusCompleted          = "COMPLETED"
	BookStatusError              = "ERROR"
)

type Book struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Author       string         `gorm:"column:author" json:"author"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	Progress     int            `gorm:"column:progress;not null;default:0" json:"progress"`
	CurrentStep  string         `gorm:"column:current_step" json:"current_step,omitempty"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	Structure    datatypes.JSON `gorm:"column:structure" json:"structure,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Book) TableName() string { return "book" }

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BookStatusPending
	}
	return nil
}

// IsInProgress reports whether the book is in a state from which ERROR is reachable.
func (b *Book) IsInProgress() bool {
	switch b.Status {
	case BookStatusDiscovering, BookStatusGenerating:
		return true
	}
	return false
}
