package common

import (
	"context"
	"time"

	"github.com/cryptonewsbr/newsbot-deploy/internal/config"
	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
	"github.com/cryptonewsbr/newsbot-deploy/internal/repository/state"
	"github.com/cryptonewsbr/newsbot-deploy/internal/workflow"
)

// Session bundles everything a deploy workflow needs: the validated
// profile, the transport to the target host, the local actor, and the
// record repository. It owns the run marker for its lifetime.
type Session struct {
	// Cfg is the validated deploy profile.
	Cfg *config.Config
	// Runner executes commands on the target host.
	Runner remote.Runner
	// Actor is who launched this deploy.
	Actor *deploy.Actor

	repo    state.Repository
	started time.Time
	closer  func() error
}

// NewSession loads the profile, acquires the run marker, detects the local
// actor and prepares the SSH transport. Callers must Close the session.
func NewSession(ctx context.Context, configPath string) (*Session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err = AcquireMarker(ctx); err != nil {
		return nil, err
	}

	actor, err := DetectActor()
	if err != nil {
		ReleaseMarker()
		return nil, err
	}

	runner := NewRunnerFromConfig(cfg.Remote)

	return &Session{
		Cfg:     cfg,
		Runner:  runner,
		Actor:   actor,
		repo:    state.NewFileRepository(cfg.StateFile),
		started: time.Now(),
		closer:  runner.Close,
	}, nil
}

// Close releases the run marker and tears down the transport.
func (s *Session) Close() {
	ReleaseMarker()

	if s.closer != nil {
		_ = s.closer()
	}
}

// RecordRun persists the outcome of a workflow run. Persistence failures
// are logged, not fatal: the deployment itself already happened.
func (s *Session) RecordRun(
	ctx context.Context,
	mode deploy.Mode,
	report *workflow.Report,
	health deploy.Health,
	revision string,
) {
	record := &deploy.Record{
		Mode:          mode,
		Host:          s.Cfg.Remote.Host,
		Actor:         s.Actor,
		StartedAt:     s.started,
		FinishedAt:    time.Now(),
		Revision:      revision,
		Steps:         report.Steps,
		ServiceHealth: health,
	}

	if err := s.repo.Save(ctx, record); err != nil {
		logger.WarnKV(ctx, "Unable to persist deployment record", "error", err)
	}
}

// NewRunnerFromConfig builds the production SSH transport from the profile.
func NewRunnerFromConfig(rc config.RemoteConfig) *remote.SSHRunner {
	var passphrase []byte
	if p := rc.KeyPassphrase(); p != "" {
		passphrase = []byte(p)
	}

	return &remote.SSHRunner{
		Host:                     rc.Host,
		User:                     rc.User,
		KeyPath:                  rc.KeyFile,
		Passphrase:               passphrase,
		KnownHostsPath:           rc.KnownHostsFile,
		InsecureSkipHostKeyCheck: rc.InsecureSkipHostKeyCheck,
		Timeout:                  rc.ConnectTimeout,
	}
}
