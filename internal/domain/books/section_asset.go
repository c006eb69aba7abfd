package books

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AssetSourceGenerated = "GENERATED"
	AssetSourceManual    = "MANUAL"
)

// SectionAsset is a figure referenced by a placeholder such as [IMAGE_1]
// inside the section markdown. Generated assets point at a slide page;
// manual ones carry the storage path of an image uploaded elsewhere.
type SectionAsset struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SectionID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"section_id"`
	Placeholder string         `gorm:"column:placeholder;not null" json:"placeholder"`
	Caption     string         `gorm:"column:caption" json:"caption"`
	SourceType  string         `gorm:"column:source_type;not null;default:'GENERATED'" json:"source_type"`
	StoragePath string         `gorm:"column:storage_path" json:"storage_path,omitempty"`
	SlidePage   *int           `gorm:"column:slide_page" json:"slide_page,omitempty"`
	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (SectionAsset) TableName() string { return "section_asset" }

func (a *SectionAsset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.SourceType == "" {
		a.SourceType = AssetSourceGenerated
	}
	return nil
}
