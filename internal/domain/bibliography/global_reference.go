package bibliography

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GlobalReference is one entry of a book's reference list. Key and Number are
// both unique per book; Number is the value shown as [N] in the prose.
type GlobalReference struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_global_reference_book_key,priority:1;uniqueIndex:idx_global_reference_book_number,priority:1" json:"book_id"`
	Key       string    `gorm:"column:ref_key;not null;uniqueIndex:idx_global_reference_book_key,priority:2" json:"key"`
	Number    int       `gorm:"column:number;not null;uniqueIndex:idx_global_reference_book_number,priority:2" json:"number"`
	Text      string    `gorm:"column:text;type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (GlobalReference) TableName() string { return "global_reference" }

func (r *GlobalReference) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
