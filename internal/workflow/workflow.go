package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
)

// Step is one unit of a deployment sequence.
type Step struct {
	// ID is the stable identifier used in logs, errors and records.
	ID string
	// Description is the human-readable summary of what the step does.
	Description string
	// Run performs the step.
	Run func(ctx context.Context) error
}

// errStepFailed is wrapped into every step failure so callers can
// distinguish step errors from infrastructure errors.
var errStepFailed = errors.New("step failed")

// Report is the outcome of a sequence run. It always contains one entry
// per declared step, including the ones that never ran.
type Report struct {
	// Steps holds outcomes in declaration order.
	Steps []deploy.StepOutcome
}

// FailedStep returns the outcome of the failed step, if any.
func (r *Report) FailedStep() (deploy.StepOutcome, bool) {
	for _, step := range r.Steps {
		if step.Status == deploy.StepStatusFailed {
			return step, true
		}
	}

	return deploy.StepOutcome{}, false
}

// Run executes the steps in order, stopping at the first failure.
// The remaining steps are marked skipped; the error names the failed step.
// Context cancellation between steps aborts the sequence the same way.
func Run(ctx context.Context, steps []Step) (*Report, error) {
	report := &Report{
		Steps: make([]deploy.StepOutcome, 0, len(steps)),
	}

	var runErr error

	for _, step := range steps {
		if runErr != nil {
			report.Steps = append(report.Steps, deploy.StepOutcome{
				ID:     step.ID,
				Status: deploy.StepStatusSkipped,
			})

			continue
		}

		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("%w: %s: %w", errStepFailed, step.ID, err)
			report.Steps = append(report.Steps, deploy.StepOutcome{
				ID:     step.ID,
				Status: deploy.StepStatusFailed,
				Error:  err.Error(),
			})

			continue
		}

		logger.InfoKV(ctx, "Running step", "step", step.ID, "description", step.Description)

		started := time.Now()
		err := step.Run(ctx)
		elapsed := time.Since(started)

		if err != nil {
			logger.ErrorKV(ctx, "Step failed", "step", step.ID, "error", err)

			runErr = fmt.Errorf("%w: %s: %w", errStepFailed, step.ID, err)
			report.Steps = append(report.Steps, deploy.StepOutcome{
				ID:       step.ID,
				Status:   deploy.StepStatusFailed,
				Error:    err.Error(),
				Duration: elapsed,
			})

			continue
		}

		logger.InfoKV(ctx, "Step finished", "step", step.ID, "duration", elapsed.String())

		report.Steps = append(report.Steps, deploy.StepOutcome{
			ID:       step.ID,
			Status:   deploy.StepStatusOK,
			Duration: elapsed,
		})
	}

	return report, runErr
}
