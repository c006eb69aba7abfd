package repos

import (
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/books"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/jobs"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"gorm.io/gorm"
)

type BookRepo = books.BookRepo
type ChapterRepo = books.ChapterRepo
type SectionRepo = books.SectionRepo
type SectionAssetRepo = books.SectionAssetRepo
type SourceDocumentRepo = books.SourceDocumentRepo

type ReferenceRepo = bibliography.ReferenceRepo
type SectionReferenceRepo = bibliography.SectionReferenceRepo

type JobRunRepo = jobs.JobRunRepo

// Set bundles every repo so services and job handlers share one constructor.
type Set struct {
	Book             BookRepo
	Chapter          ChapterRepo
	Section          SectionRepo
	SectionAsset     SectionAssetRepo
	SourceDocument   SourceDocumentRepo
	Reference        ReferenceRepo
	SectionReference SectionReferenceRepo
	JobRun           JobRunRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) *Set {
	return &Set{
		Book:             books.NewBookRepo(db, log),
		Chapter:          books.NewChapterRepo(db, log),
		Section:          books.NewSectionRepo(db, log),
		SectionAsset:     books.NewSectionAssetRepo(db, log),
		SourceDocument:   books.NewSourceDocumentRepo(db, log),
		Reference:        bibliography.NewReferenceRepo(db, log),
		SectionReference: bibliography.NewSectionReferenceRepo(db, log),
		JobRun:           jobs.NewJobRunRepo(db, log),
	}
}
