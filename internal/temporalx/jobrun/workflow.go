package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
)

// Workflow drives one job_run row, keyed by the workflow id. Each tick runs
// the job's handler to a terminal status; a tick that finds the row claimed
// elsewhere polls again.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return fmt.Errorf("jobrun: missing job_id")
	}

	const (
		pollInterval = 5 * time.Second
		maxTicks     = 500
	)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 12 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		// the handlers own their retries; a failed tick fails the job
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	for tick := 1; tick <= maxTicks; tick++ {
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, jobID).Get(ctx, &out); err != nil {
			return err
		}
		switch out.Status {
		case types.JobStatusSucceeded:
			return nil
		case types.JobStatusFailed:
			return fmt.Errorf("job failed (stage=%s): %s", out.Stage, out.Error)
		}
		if err := workflow.Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	return workflow.NewContinueAsNewError(ctx, Workflow)
}
