package domain

import (
	"github.com/pedrohsmesquita/Lectria/internal/domain/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/domain/books"
	"github.com/pedrohsmesquita/Lectria/internal/domain/jobs"
)

const (
	BookStatusPending            = books.BookStatusPending
	BookStatusDiscovering        = books.BookStatusDiscovering
	BookStatusStructureGenerated = books.BookStatusStructureGenerated
	BookStatusGenerating         = books.BookStatusGenerating
	BookStatusCompleted          = books.BookStatusCompleted
	BookStatusError              = books.BookStatusError

	SectionStatusPending    = books.SectionStatusPending
	SectionStatusProcessing = books.SectionStatusProcessing
	SectionStatusSuccess    = books.SectionStatusSuccess
	SectionStatusError      = books.SectionStatusError

	SourceKindTranscript = books.SourceKindTranscript
	SourceKindSlide      = books.SourceKindSlide

	AssetSourceGenerated = books.AssetSourceGenerated
	AssetSourceManual    = books.AssetSourceManual

	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
)

type (
	Book           = books.Book
	Chapter        = books.Chapter
	Section        = books.Section
	SectionAsset   = books.SectionAsset
	SourceDocument = books.SourceDocument

	GlobalReference  = bibliography.GlobalReference
	SectionReference = bibliography.SectionReference

	JobRun = jobs.JobRun
)

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&Book{},
		&Chapter{},
		&Section{},
		&SectionAsset{},
		&SourceDocument{},
		&GlobalReference{},
		&SectionReference{},
		&JobRun{},
	}
}

var (
	CanTransitionSection      = books.CanTransitionSection
	ValidateSectionTransition = books.ValidateSectionTransition
)
