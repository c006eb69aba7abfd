package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/realtime"
)

// =========================
// Job notifier
// =========================

// JobNotifier publishes job lifecycle events on the channel of the entity the
// job works on (the book id for every book pipeline).
type JobNotifier interface {
	JobCreated(job *types.JobRun)
	JobProgress(job *types.JobRun, stage string, progress int, message string)
	JobFailed(job *types.JobRun, stage string, errorMessage string)
	JobDone(job *types.JobRun)
}

type jobNotifier struct {
	emit realtime.Emitter
}

func NewJobNotifier(emit realtime.Emitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func jobChannel(job *types.JobRun) string {
	if job == nil || job.EntityID == nil || *job.EntityID == uuid.Nil {
		return ""
	}
	if job.EntityType == "book" {
		return job.EntityID.String()
	}
	if bookID, ok := payloadString(job, "book_id"); ok {
		return bookID
	}
	return job.EntityID.String()
}

func (n *jobNotifier) send(event realtime.SSEEvent, job *types.JobRun, data map[string]any) {
	if n == nil || n.emit == nil {
		return
	}
	ch := jobChannel(job)
	if ch == "" {
		return
	}
	data["job_id"] = job.ID
	data["job_type"] = job.JobType
	n.emit.Emit(context.Background(), realtime.SSEMessage{Channel: ch, Event: event, Data: data})
}

func (n *jobNotifier) JobCreated(job *types.JobRun) {
	n.send(realtime.SSEEventJobCreated, job, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(job *types.JobRun, stage string, progress int, message string) {
	n.send(realtime.SSEEventJobProgress, job, map[string]any{
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *jobNotifier) JobFailed(job *types.JobRun, stage string, errorMessage string) {
	n.send(realtime.SSEEventJobFailed, job, map[string]any{
		"stage": stage,
		"error": errorMessage,
	})
}

func (n *jobNotifier) JobDone(job *types.JobRun) {
	n.send(realtime.SSEEventJobDone, job, map[string]any{"job": job})
}

// =========================
// Book notifier
// =========================

type BookNotifier interface {
	BookUpdated(book *types.Book)
	SectionUpdated(bookID uuid.UUID, section *types.Section)
	BibliographyReconciled(bookID uuid.UUID, result *bibliography.Result)
}

type bookNotifier struct {
	emit realtime.Emitter
}

func NewBookNotifier(emit realtime.Emitter) BookNotifier {
	return &bookNotifier{emit: emit}
}

func (n *bookNotifier) BookUpdated(book *types.Book) {
	if n == nil || n.emit == nil || book == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: book.ID.String(),
		Event:   realtime.SSEEventBookUpdated,
		Data: map[string]any{
			"book_id":      book.ID,
			"status":       book.Status,
			"progress":     book.Progress,
			"current_step": book.CurrentStep,
			"error":        book.ErrorMessage,
		},
	})
}

func (n *bookNotifier) SectionUpdated(bookID uuid.UUID, section *types.Section) {
	if n == nil || n.emit == nil || section == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: bookID.String(),
		Event:   realtime.SSEEventSectionUpdated,
		Data: map[string]any{
			"section_id": section.ID,
			"chapter_id": section.ChapterID,
			"title":      section.Title,
			"status":     section.Status,
			"error":      section.ErrorMessage,
		},
	})
}

func (n *bookNotifier) BibliographyReconciled(bookID uuid.UUID, result *bibliography.Result) {
	if n == nil || n.emit == nil || result == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: bookID.String(),
		Event:   realtime.SSEEventBibliographyReconciled,
		Data:    result,
	})
}
