package books

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Chapter struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID         uuid.UUID `gorm:"type:uuid;not null;index" json:"book_id"`
	Title          string    `gorm:"column:title;not null" json:"title"`
	Order          int       `gorm:"column:sort_order;not null;default:0;index" json:"order"`
	IsBibliography bool      `gorm:"column:is_bibliography;not null;default:false" json:"is_bibliography"`
	Sections       []Section `gorm:"foreignKey:ChapterID" json:"sections,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Chapter) TableName() string { return "chapter" }

func (c *Chapter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
