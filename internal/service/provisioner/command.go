package provisioner

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cryptonewsbr/newsbot-deploy/internal/config"
	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
	"github.com/cryptonewsbr/newsbot-deploy/internal/service/checkout"
	"github.com/cryptonewsbr/newsbot-deploy/internal/service/common"
	"github.com/cryptonewsbr/newsbot-deploy/internal/service/postgres"
	"github.com/cryptonewsbr/newsbot-deploy/internal/workflow"
)

// Options are inputs accepted by the provision entry point.
type Options struct {
	// ConfigPath is the optional path to the deploy profile.
	ConfigPath string
}

// runner holds the collaborators for a single provision execution.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg    *config.Config
	remote remote.Runner
	syncer *checkout.Syncer
	admin  *postgres.Admin
}

// Run executes the provision workflow and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "provision")

	session, err := common.NewSession(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	defer session.Close()

	p := newRunner(session.Cfg, session.Runner)

	logger.InfoKV(ctx, "Provisioning host",
		"host", session.Cfg.Remote.Host,
		"actor", session.Actor.Username,
	)

	report, runErr := workflow.Run(ctx, p.steps())

	// Best effort: record the deployed revision when the checkout step ran.
	var revision string
	if runErr == nil {
		revision, _ = p.syncer.Revision(ctx)
	}

	session.RecordRun(ctx, deploy.ModeProvision, report, deploy.HealthUnknown, revision)

	if runErr != nil {
		logger.ErrorKV(ctx, "Provision failed", "error", runErr)
		return runErr
	}

	logger.Info(ctx, "Provision completed")

	return nil
}

// newRunner wires collaborators around one transport. Tests inject a fake.
func newRunner(cfg *config.Config, transport remote.Runner) *runner {
	return &runner{
		cfg:    cfg,
		remote: transport,
		syncer: checkout.NewSyncer(transport, cfg.Checkout),
		admin:  postgres.NewAdmin(transport),
	}
}

// steps declares the provision sequence in execution order.
func (p *runner) steps() []workflow.Step {
	return []workflow.Step{
		{
			ID:          "apt.update",
			Description: "update and upgrade system packages",
			Run:         p.aptUpdate,
		},
		{
			ID:          "apt.install",
			Description: "install required system packages",
			Run:         p.aptInstall,
		},
		{
			ID:          "git.sync",
			Description: "clone or fast-forward the source checkout",
			Run:         p.syncer.Sync,
		},
		{
			ID:          "venv.create",
			Description: "create the virtualenv if missing",
			Run:         p.createVenv,
		},
		{
			ID:          "pip.install",
			Description: "upgrade pip and install dependencies",
			Run:         p.pipInstall,
		},
		{
			ID:          "db.provision",
			Description: "ensure database, role and privileges",
			Run:         p.provisionDatabase,
		},
	}
}

// aptUpdate refreshes the package index and upgrades installed packages.
func (p *runner) aptUpdate(ctx context.Context) error {
	update := remote.Command("env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "update")
	if _, err := remote.RunChecked(ctx, p.remote, update); err != nil {
		return err
	}

	upgrade := remote.Command("env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "-y", "upgrade")
	_, err := remote.RunChecked(ctx, p.remote, upgrade)

	return err
}

// aptInstall installs the configured system package list.
func (p *runner) aptInstall(ctx context.Context) error {
	args := append(
		[]string{"DEBIAN_FRONTEND=noninteractive", "apt-get", "-y", "install"},
		p.cfg.Runtime.SystemPackages...,
	)

	_, err := remote.RunChecked(ctx, p.remote, remote.Command("env", args...))

	return err
}

// createVenv creates the virtualenv unless one already exists.
// The probe is explicit so an existing environment is skipped rather than
// recreated-and-ignored.
func (p *runner) createVenv(ctx context.Context) error {
	venv := p.venvPath()
	probe := remote.Command("test", "-x", path.Join(venv, "bin", "python"))

	result, err := p.remote.Run(ctx, probe)
	if err != nil {
		return fmt.Errorf("probe virtualenv: %w", err)
	}

	if result.Ok() {
		logger.InfoKV(ctx, "Virtualenv already exists", "path", venv)
		return nil
	}

	if _, err = remote.RunChecked(ctx, p.remote, remote.Command("python3", "-m", "venv", venv)); err != nil {
		return fmt.Errorf("create virtualenv: %w", err)
	}

	return nil
}

// pipInstall upgrades pip, then installs the manifest plus the extra
// packages. The extras are installed unconditionally.
func (p *runner) pipInstall(ctx context.Context) error {
	pip := path.Join(p.venvPath(), "bin", "pip")

	upgrade := remote.Command(pip, "install", "--upgrade", "pip")
	if _, err := remote.RunChecked(ctx, p.remote, upgrade); err != nil {
		return err
	}

	args := []string{"install", "-r", path.Join(p.cfg.Checkout.Dir, p.cfg.Runtime.RequirementsFile)}
	args = append(args, p.cfg.Runtime.ExtraPackages...)

	_, err := remote.RunChecked(ctx, p.remote, remote.Command(pip, args...))

	return err
}

// provisionDatabase ensures the database objects with the password
// resolved from the environment at the last possible moment.
func (p *runner) provisionDatabase(ctx context.Context) error {
	password, err := p.cfg.Database.Password()
	if err != nil {
		return err
	}

	return p.admin.Provision(ctx, p.cfg.Database.Name, p.cfg.Database.Owner, password)
}

// venvPath resolves the virtualenv directory against the checkout.
func (p *runner) venvPath() string {
	if strings.HasPrefix(p.cfg.Runtime.VenvDir, "/") {
		return p.cfg.Runtime.VenvDir
	}

	return path.Join(p.cfg.Checkout.Dir, p.cfg.Runtime.VenvDir)
}
