package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
)

// TestRunAllSucceed executes every step and reports them all ok.
func TestRunAllSucceed(t *testing.T) {
	t.Parallel()

	var order []string

	steps := []Step{
		{ID: "first", Run: func(context.Context) error {
			order = append(order, "first")
			return nil
		}},
		{ID: "second", Run: func(context.Context) error {
			order = append(order, "second")
			return nil
		}},
	}

	report, err := Run(context.Background(), steps)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, order)
	require.Len(t, report.Steps, 2)

	for _, step := range report.Steps {
		require.Equal(t, deploy.StepStatusOK, step.Status)
	}

	_, failed := report.FailedStep()
	require.False(t, failed)
}

// TestRunShortCircuits stops at the first failure and skips the rest.
func TestRunShortCircuits(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	thirdRan := false

	steps := []Step{
		{ID: "first", Run: func(context.Context) error { return nil }},
		{ID: "second", Run: func(context.Context) error { return boom }},
		{ID: "third", Run: func(context.Context) error {
			thirdRan = true
			return nil
		}},
	}

	report, err := Run(context.Background(), steps)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "second")
	require.False(t, thirdRan)

	// One entry per declared step, always.
	require.Len(t, report.Steps, 3)
	require.Equal(t, deploy.StepStatusOK, report.Steps[0].Status)
	require.Equal(t, deploy.StepStatusFailed, report.Steps[1].Status)
	require.Equal(t, deploy.StepStatusSkipped, report.Steps[2].Status)

	failedStep, found := report.FailedStep()
	require.True(t, found)
	require.Equal(t, "second", failedStep.ID)
	require.Equal(t, "boom", failedStep.Error)
}

// TestRunHonorsCancellation aborts before running the next step.
func TestRunHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	steps := []Step{
		{ID: "first", Run: func(context.Context) error {
			cancel()
			return nil
		}},
		{ID: "second", Run: func(context.Context) error {
			t.Fatal("second step must not run after cancellation")
			return nil
		}},
	}

	report, err := Run(ctx, steps)
	require.Error(t, err)
	require.Len(t, report.Steps, 2)
	require.Equal(t, deploy.StepStatusOK, report.Steps[0].Status)
	require.Equal(t, deploy.StepStatusFailed, report.Steps[1].Status)
}
