package provisioner

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cryptonewsbr/newsbot-deploy/internal/config"
	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
	"github.com/cryptonewsbr/newsbot-deploy/internal/workflow"
)

// fakeRunner records commands and answers them from a scripted table.
type fakeRunner struct {
	commands []string
	results  map[string]*remote.Result
	errs     map[string]error
}

func (f *fakeRunner) Run(_ context.Context, command string) (*remote.Result, error) {
	f.commands = append(f.commands, command)

	for needle, err := range f.errs {
		if strings.Contains(command, needle) {
			return nil, err
		}
	}

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

// testConfig returns a validated profile pointing at a fake host.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Remote: config.RemoteConfig{
			Host:    "203.0.113.10",
			User:    "deploy",
			KeyFile: "/tmp/key",
		},
		Checkout: config.CheckoutConfig{
			Dir:     "/opt/newsbot",
			RepoURL: "https://github.com/cryptonewsbr/newsbot.git",
		},
		Database: config.DatabaseConfig{
			PasswordEnv: "NEWSBOT_TEST_PROVISION_PASSWORD",
		},
	}
	require.NoError(t, config.Validate(cfg))

	return cfg
}

// TestProvisionFreshHost runs the full sequence: clone, venv, pip, database.
func TestProvisionFreshHost(t *testing.T) {
	t.Setenv("NEWSBOT_TEST_PROVISION_PASSWORD", "secret")

	runner := &fakeRunner{
		results: map[string]*remote.Result{
			"test -d": {ExitCode: 1}, // no checkout yet
			"test -x": {ExitCode: 1}, // no virtualenv yet
		},
	}
	p := newRunner(testConfig(t), runner)

	report, err := workflow.Run(context.Background(), p.steps())
	require.NoError(t, err)
	require.Len(t, report.Steps, 6)

	require.True(t, runner.ran("apt-get update"))
	require.True(t, runner.ran("apt-get -y upgrade"))
	require.True(t, runner.ran("apt-get -y install python3"))
	require.True(t, runner.ran("git clone"))
	require.True(t, runner.ran("python3 -m venv /opt/newsbot/venv"))
	require.True(t, runner.ran("/opt/newsbot/venv/bin/pip install --upgrade pip"))
	require.True(t, runner.ran("-r /opt/newsbot/requirements.txt deep-translator psycopg2-binary"))
	require.True(t, runner.ran("CREATE DATABASE news_db"))
	require.True(t, runner.ran("CREATE ROLE newsbot"))
	require.True(t, runner.ran("GRANT ALL PRIVILEGES"))
}

// TestProvisionSecondRun fast-forwards instead of cloning and skips
// existing virtualenv and database objects.
func TestProvisionSecondRun(t *testing.T) {
	t.Setenv("NEWSBOT_TEST_PROVISION_PASSWORD", "secret")

	runner := &fakeRunner{
		results: map[string]*remote.Result{
			"test -d":     {ExitCode: 0},
			"test -x":     {ExitCode: 0},
			"pg_database": {Stdout: []byte("1\n")},
			"pg_roles":    {Stdout: []byte("1\n")},
		},
	}
	p := newRunner(testConfig(t), runner)

	report, err := workflow.Run(context.Background(), p.steps())
	require.NoError(t, err)

	for _, step := range report.Steps {
		require.Equal(t, deploy.StepStatusOK, step.Status)
	}

	require.False(t, runner.ran("git clone"))
	require.True(t, runner.ran("merge --ff-only"))
	require.False(t, runner.ran("python3 -m venv"))
	require.False(t, runner.ran("CREATE DATABASE"))
	require.False(t, runner.ran("CREATE ROLE"))
	require.True(t, runner.ran("GRANT ALL PRIVILEGES"))
}

// TestProvisionFailFast stops at the first failing step and skips the rest.
func TestProvisionFailFast(t *testing.T) {
	t.Setenv("NEWSBOT_TEST_PROVISION_PASSWORD", "secret")

	runner := &fakeRunner{
		results: map[string]*remote.Result{
			"apt-get update": {ExitCode: 100, Stderr: []byte("Could not resolve archive.ubuntu.com")},
		},
	}
	p := newRunner(testConfig(t), runner)

	report, err := workflow.Run(context.Background(), p.steps())
	require.Error(t, err)
	require.Contains(t, err.Error(), "apt.update")

	failed, found := report.FailedStep()
	require.True(t, found)
	require.Equal(t, "apt.update", failed.ID)

	// Nothing after the failure touched the host.
	require.False(t, runner.ran("git"))
	require.False(t, runner.ran("psql"))

	for _, step := range report.Steps[1:] {
		require.Equal(t, deploy.StepStatusSkipped, step.Status)
	}
}

// TestProvisionMissingPassword fails the database step without a secret.
func TestProvisionMissingPassword(t *testing.T) {
	t.Setenv("NEWSBOT_TEST_PROVISION_PASSWORD", "")

	runner := &fakeRunner{
		results: map[string]*remote.Result{
			"test -d": {ExitCode: 0},
			"test -x": {ExitCode: 0},
		},
	}
	p := newRunner(testConfig(t), runner)

	report, err := workflow.Run(context.Background(), p.steps())
	require.Error(t, err)

	failed, found := report.FailedStep()
	require.True(t, found)
	require.Equal(t, "db.provision", failed.ID)
	require.False(t, runner.ran("CREATE ROLE"))
}

// TestProvisionTransportFailure surfaces infrastructure errors through the step.
func TestProvisionTransportFailure(t *testing.T) {
	t.Setenv("NEWSBOT_TEST_PROVISION_PASSWORD", "secret")

	networkDown := errors.New("dial tcp: connection refused")
	runner := &fakeRunner{
		errs: map[string]error{
			"apt-get": networkDown,
		},
	}
	p := newRunner(testConfig(t), runner)

	_, err := workflow.Run(context.Background(), p.steps())
	require.ErrorIs(t, err, networkDown)
}
