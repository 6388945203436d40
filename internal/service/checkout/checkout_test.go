package checkout

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cryptonewsbr/newsbot-deploy/internal/config"
	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
)

// fakeRunner records commands and answers them from a scripted table.
type fakeRunner struct {
	commands []string
	results  map[string]*remote.Result
}

func (f *fakeRunner) Run(_ context.Context, command string) (*remote.Result, error) {
	f.commands = append(f.commands, command)

	for needle, result := range f.results {
		if strings.Contains(command, needle) {
			return result, nil
		}
	}

	return &remote.Result{}, nil
}

func (f *fakeRunner) RunStreaming(ctx context.Context, command string, _, _ io.Writer) error {
	_, err := f.Run(ctx, command)
	return err
}

func (f *fakeRunner) ran(needle string) bool {
	for _, command := range f.commands {
		if strings.Contains(command, needle) {
			return true
		}
	}

	return false
}

func testConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		Dir:     "/opt/newsbot",
		RepoURL: "https://github.com/cryptonewsbr/newsbot.git",
		Branch:  "main",
	}
}

// TestSyncClonesWhenMissing performs a fresh clone when no checkout exists.
func TestSyncClonesWhenMissing(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		results: map[string]*remote.Result{
			"test -d": {ExitCode: 1},
		},
	}
	syncer := NewSyncer(runner, testConfig())

	require.NoError(t, syncer.Sync(context.Background()))
	require.True(t, runner.ran("git clone --branch main --single-branch"))
	require.False(t, runner.ran("fetch"))
}

// TestSyncPullsWhenPresent fast-forwards instead of cloning.
func TestSyncPullsWhenPresent(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		results: map[string]*remote.Result{
			"test -d": {ExitCode: 0},
		},
	}
	syncer := NewSyncer(runner, testConfig())

	require.NoError(t, syncer.Sync(context.Background()))
	require.False(t, runner.ran("clone"))
	require.True(t, runner.ran("fetch origin main"))
	require.True(t, runner.ran("merge --ff-only FETCH_HEAD"))
}

// TestPullSurfacesMergeFailure reports diverged histories instead of merging.
func TestPullSurfacesMergeFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		results: map[string]*remote.Result{
			"merge": {ExitCode: 128, Stderr: []byte("fatal: not possible to fast-forward")},
		},
	}
	syncer := NewSyncer(runner, testConfig())

	err := syncer.Pull(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fast-forward")
}

// TestRevision trims the rev-parse output.
func TestRevision(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		results: map[string]*remote.Result{
			"rev-parse": {Stdout: []byte("ab12cd3\n")},
		},
	}
	syncer := NewSyncer(runner, testConfig())

	revision, err := syncer.Revision(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ab12cd3", revision)
}
