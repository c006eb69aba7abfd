package bibliography

import (
	"time"

	"github.com/google/uuid"
)

type SectionReference struct {
	SectionID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"section_id"`
	ReferenceID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"reference_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (SectionReference) TableName() string { return "section_reference" }
