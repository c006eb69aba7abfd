package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos/testutil"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	"gorm.io/datatypes"
)

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	bookID := uuid.New()

	queued := &types.JobRun{
		ID:         uuid.New(),
		JobType:    "book_content",
		EntityType: "book",
		EntityID:   ptrUUID(bookID),
		Status:     types.JobStatusQueued,
		Stage:      "queued",
		Payload:    datatypes.JSON([]byte("{}")),
		Result:     datatypes.JSON([]byte("{}")),
		CreatedAt:  now.Add(-3 * time.Hour),
		UpdatedAt:  now.Add(-3 * time.Hour),
	}
	failed := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "book_content",
		EntityType:  "book",
		EntityID:    ptrUUID(uuid.New()),
		Status:      types.JobStatusFailed,
		Stage:       "failed",
		LastErrorAt: ptrTime(now.Add(-2 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-4 * time.Hour),
		UpdatedAt:   now.Add(-4 * time.Hour),
	}
	staleRunning := &types.JobRun{
		ID:          uuid.New(),
		JobType:     "section_generate",
		EntityType:  "section",
		EntityID:    ptrUUID(uuid.New()),
		Status:      types.JobStatusRunning,
		Stage:       "running",
		Attempts:    1,
		HeartbeatAt: ptrTime(now.Add(-10 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-1 * time.Hour),
		UpdatedAt:   now.Add(-1 * time.Hour),
	}

	created, err := repo.Create(dbc, []*types.JobRun{queued, failed, staleRunning})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Create: expected 3, got %d", len(created))
	}

	latest, err := repo.GetLatestByEntity(dbc, "book", bookID, "book_content")
	if err != nil || latest == nil || latest.ID != queued.ID {
		t.Fatalf("GetLatestByEntity: %v %v", latest, err)
	}
	if ok, err := repo.HasRunnableForEntity(dbc, "book", bookID, "book_content"); err != nil || !ok {
		t.Fatalf("HasRunnableForEntity: ok=%v err=%v", ok, err)
	}

	// The failed job is older but must never be reclaimed automatically.
	first, err := repo.ClaimNextRunnable(dbc, 3, time.Minute)
	if err != nil || first == nil || first.ID != queued.ID {
		t.Fatalf("first claim: expected queued job, got %v err=%v", first, err)
	}
	second, err := repo.ClaimNextRunnable(dbc, 3, time.Minute)
	if err != nil || second == nil || second.ID != staleRunning.ID {
		t.Fatalf("second claim: expected stale running job, got %v err=%v", second, err)
	}
	third, err := repo.ClaimNextRunnable(dbc, 3, time.Minute)
	if err != nil || third != nil {
		t.Fatalf("third claim: expected nothing, got %v err=%v", third, err)
	}

	reloaded, err := repo.GetByID(dbc, staleRunning.ID)
	if err != nil || reloaded.Attempts != 2 {
		t.Fatalf("stale reclaim should bump attempts: %+v err=%v", reloaded, err)
	}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{types.JobStatusSucceeded}, map[string]interface{}{"status": types.JobStatusSucceeded})
	if err != nil || !ok {
		t.Fatalf("UpdateFieldsUnlessStatus: ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{types.JobStatusSucceeded}, map[string]interface{}{"status": types.JobStatusFailed})
	if err != nil || ok {
		t.Fatalf("UpdateFieldsUnlessStatus on terminal job should not apply: ok=%v err=%v", ok, err)
	}
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }

func ptrTime(t time.Time) *time.Time { return &t }
