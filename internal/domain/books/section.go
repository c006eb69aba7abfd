package books

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SectionStatusPending    = "PENDING"
	SectionStatusProcessing = "PROCESSING"
	SectionStatusSuccess    = "SUCCESS"
	SectionStatusError      = "ERROR"
)

type Section struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ChapterID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"chapter_id"`
	BookID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	Title           string     `gorm:"column:title;not null" json:"title"`
	Order           int        `gorm:"column:sort_order;not null;default:0" json:"order"`
	ContentMarkdown *string    `gorm:"column:content_markdown;type:text" json:"content_markdown,omitempty"`
	Status          string     `gorm:"column:status;not null;index" json:"status"`
	ErrorMessage    string     `gorm:"column:error_message" json:"error_message,omitempty"`
	TranscriptID    *uuid.UUID `gorm:"type:uuid;column:transcript_id" json:"transcript_id,omitempty"`
	SlideID         *uuid.UUID `gorm:"type:uuid;column:slide_id" json:"slide_id,omitempty"`
	StartPage       *int       `gorm:"column:start_page" json:"start_page,omitempty"`
	EndPage         *int       `gorm:"column:end_page" json:"end_page,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (Section) TableName() string { return "section" }

func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SectionStatusPending
	}
	return nil
}

// Content returns the markdown or "" when nothing was generated yet.
func (s *Section) Content() string {
	if s.ContentMarkdown == nil {
		return ""
	}
	return *s.ContentMarkdown
}

var sectionTransitions = map[string][]string{
	SectionStatusPending:    {SectionStatusProcessing},
	SectionStatusProcessing: {SectionStatusSuccess, SectionStatusError, SectionStatusPending},
	SectionStatusError:      {SectionStatusProcessing, SectionStatusPending},
	SectionStatusSuccess:    {SectionStatusProcessing},
}

// CanTransitionSection reports whether from -> to is a legal section move.
// SUCCESS -> PROCESSING covers manual regeneration of a finished section.
// PROCESSING -> PENDING hands an interrupted run back to the queue.
func CanTransitionSection(from, to string) bool {
	for _, next := range sectionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidateSectionTransition(from, to string) error {
	if !CanTransitionSection(from, to) {
		return fmt.Errorf("section status %s -> %s not allowed", from, to)
	}
	return nil
}
