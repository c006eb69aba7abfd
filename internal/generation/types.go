package generation

import (
	"context"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
)

// Generator produces book structure and section prose from lecture sources.
type Generator interface {
	DiscoverStructure(ctx context.Context, in DiscoveryInput) (*Structure, error)
	GenerateSection(ctx context.Context, in SectionInput) (*SectionDraft, error)
}

type SourceExcerpt struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Text  string `json:"-"`
}

type DiscoveryInput struct {
	BookTitle string
	Author    string
	Sources   []SourceExcerpt
}

type SectionPlan struct {
	Title        string `json:"title"`
	TranscriptID string `json:"transcript_id"`
	SlideID      string `json:"slide_id,omitempty"`
	StartPage    *int   `json:"start_page,omitempty"`
	EndPage      *int   `json:"end_page,omitempty"`
}

type ChapterPlan struct {
	Title    string        `json:"title"`
	Sections []SectionPlan `json:"sections"`
}

type Structure struct {
	Chapters []ChapterPlan `json:"chapters"`
}

type KnownReference struct {
	Key    string
	Number int
}

type SectionInput struct {
	BookTitle    string
	ChapterTitle string
	SectionTitle string
	Transcript   string
	Slides       string
	StartPage    *int
	EndPage      *int
	Known        []KnownReference
}

// CropBox is a slide region in 0-1000 normalized coordinates.
type CropBox struct {
	XMin int `json:"xmin"`
	YMin int `json:"ymin"`
	XMax int `json:"xmax"`
	YMax int `json:"ymax"`
}

type AssetDraft struct {
	Placeholder string   `json:"placeholder"`
	Caption     string   `json:"caption"`
	SlidePage   *int     `json:"slide_page,omitempty"`
	Crop        *CropBox `json:"crop_info,omitempty"`
}

// SectionDraft is the generator's output for one section. Citations in
// ContentMarkdown use [REF:<key>] markers that the resolver turns into numbers.
type SectionDraft struct {
	ContentMarkdown string                 `json:"content_markdown"`
	Bibliography    []bibliography.Mention `json:"bibliography_found"`
	Assets          []AssetDraft           `json:"section_assets"`
}
