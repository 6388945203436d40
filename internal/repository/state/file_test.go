package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
)

// TestLoadMissing returns ErrNotFound before the first deployment.
func TestLoadMissing(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

// TestSaveLoadRoundtrip persists a record and reads it back intact.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))

	record := &deploy.Record{
		Mode:       deploy.ModeUpdate,
		Host:       "203.0.113.10",
		Actor:      &deploy.Actor{Hostname: "laptop", Username: "deployer"},
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		FinishedAt: time.Now().UTC().Truncate(time.Second),
		Revision:   "ab12cd3",
		Steps: []deploy.StepOutcome{
			{ID: "git.pull", Status: deploy.StepStatusOK, Duration: 2 * time.Second},
			{ID: "service.restart", Status: deploy.StepStatusFailed, Error: "exit=1"},
			{ID: "service.health", Status: deploy.StepStatusSkipped},
		},
		ServiceHealth: deploy.HealthUnknown,
	}

	require.NoError(t, repo.Save(ctx, record))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, record, loaded)
}

// TestSaveOverwrites keeps only the latest record.
func TestSaveOverwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))

	first := &deploy.Record{Mode: deploy.ModeProvision, Host: "a", ServiceHealth: deploy.HealthUnknown}
	second := &deploy.Record{Mode: deploy.ModeUpdate, Host: "b", ServiceHealth: deploy.HealthActive}

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, deploy.ModeUpdate, loaded.Mode)
	require.Equal(t, "b", loaded.Host)
}
