package updater

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/cryptonewsbr/newsbot-deploy/internal/config"
	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
	"github.com/cryptonewsbr/newsbot-deploy/internal/service/checkout"
	"github.com/cryptonewsbr/newsbot-deploy/internal/service/common"
	"github.com/cryptonewsbr/newsbot-deploy/internal/service/systemd"
	"github.com/cryptonewsbr/newsbot-deploy/internal/workflow"
)

// Options are inputs accepted by the update entry point.
type Options struct {
	// ConfigPath is the optional path to the deploy profile.
	ConfigPath string
}

// runner holds the collaborators for a single update execution.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg     *config.Config
	syncer  *checkout.Syncer
	manager *systemd.Manager
	// out receives the remote status and journal text.
	out io.Writer
	// health is the observed unit state, filled by the health step.
	health deploy.Health
}

// Run executes the update workflow and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "update")

	session, err := common.NewSession(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	defer session.Close()

	u := newRunner(session.Cfg, session.Runner, os.Stdout)

	logger.InfoKV(ctx, "Updating host",
		"host", session.Cfg.Remote.Host,
		"unit", session.Cfg.Service.Unit,
		"actor", session.Actor.Username,
	)

	report, runErr := workflow.Run(ctx, u.steps())

	var revision string
	if runErr == nil {
		revision, _ = u.syncer.Revision(ctx)
	}

	session.RecordRun(ctx, deploy.ModeUpdate, report, u.health, revision)

	if runErr != nil {
		logger.ErrorKV(ctx, "Update failed", "error", runErr)
		return runErr
	}

	logger.Info(ctx, "Update completed")

	return nil
}

// newRunner wires collaborators around one transport. Tests inject a fake.
func newRunner(cfg *config.Config, transport remote.Runner, out io.Writer) *runner {
	return &runner{
		cfg:     cfg,
		syncer:  checkout.NewSyncer(transport, cfg.Checkout),
		manager: systemd.NewManager(transport, cfg.Service.Unit),
		out:     out,
		health:  deploy.HealthUnknown,
	}
}

// steps declares the update sequence in execution order. The restart is
// unconditional: it happens even when the checkout was already current.
func (u *runner) steps() []workflow.Step {
	return []workflow.Step{
		{
			ID:          "git.pull",
			Description: "fast-forward the source checkout",
			Run:         u.syncer.Pull,
		},
		{
			ID:          "service.restart",
			Description: "restart the service unit",
			Run:         u.manager.Restart,
		},
		{
			ID:          "service.health",
			Description: "wait for the unit to become active",
			Run:         u.waitHealthy,
		},
		{
			ID:          "service.status",
			Description: "report the unit status",
			Run: func(ctx context.Context) error {
				return u.manager.Status(ctx, u.out)
			},
		},
		{
			ID:          "journal.tail",
			Description: "report recent journal lines",
			Run: func(ctx context.Context) error {
				return u.manager.JournalTail(ctx, u.cfg.Service.JournalLines, u.out)
			},
		},
	}
}

// waitHealthy polls the unit and translates the outcome into record health.
func (u *runner) waitHealthy(ctx context.Context) error {
	err := u.manager.WaitActive(ctx, u.cfg.Service.HealthTimeout, u.cfg.Service.HealthInterval)

	switch {
	case err == nil:
		u.health = deploy.HealthActive
	case errors.Is(err, systemd.ErrServiceFailed):
		u.health = deploy.HealthFailed
	case errors.Is(err, systemd.ErrHealthTimeout):
		u.health = deploy.HealthTimeout
	}

	return err
}
