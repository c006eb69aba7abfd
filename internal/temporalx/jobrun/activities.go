package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	jobrt "github.com/pedrohsmesquita/Lectria/internal/jobs/runtime"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/worker"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/dbctx"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Jobs     repos.JobRunRepo
	Registry *jobrt.Registry
	Notify   services.JobNotifier
}

func (a *Activities) Tick(ctx context.Context, jobID string) (TickResult, error) {
	res := TickResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.DB == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id %q", jobID)
	}

	job, err := a.Jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job %s not found", id)
	}
	if job.Status != types.JobStatusQueued {
		fill(&res, job)
		return res, nil
	}

	claimed, err := a.claim(ctx, id)
	if err != nil {
		return res, err
	}
	if !claimed {
		// the polling worker or another tick got it first
		if job, err = a.Jobs.GetByID(dbctx.Context{Ctx: ctx}, id); err == nil && job != nil {
			fill(&res, job)
		}
		return res, err
	}
	job.Status = types.JobStatusRunning
	job.Attempts++

	stop := a.startHeartbeat(ctx, id)
	worker.Execute(ctx, a.Log, a.DB, job, a.Jobs, a.Registry, a.Notify)
	stop()

	updated, err := a.Jobs.GetByID(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, id)
	if err != nil {
		return res, err
	}
	if updated == nil {
		return res, fmt.Errorf("jobrun: job %s vanished", id)
	}
	fill(&res, updated)
	return res, nil
}

func (a *Activities) claim(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	q := a.DB.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusQueued).
		Updates(map[string]interface{}{
			"status":       types.JobStatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	if q.Error != nil {
		return false, q.Error
	}
	return q.RowsAffected > 0, nil
}

func (a *Activities) startHeartbeat(ctx context.Context, id uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				activity.RecordHeartbeat(ctx)
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx}, id)
			}
		}
	}()
	return func() { close(done) }
}

func fill(res *TickResult, job *types.JobRun) {
	res.Status = job.Status
	res.Stage = job.Stage
	res.Progress = job.Progress
	res.Error = job.Error
}
