package checkout

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cryptonewsbr/newsbot-deploy/internal/config"
	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
)

// Syncer keeps the remote source checkout in sync with its origin.
type Syncer struct {
	runner remote.Runner
	cfg    config.CheckoutConfig
}

// NewSyncer creates a Syncer for the configured checkout.
func NewSyncer(runner remote.Runner, cfg config.CheckoutConfig) *Syncer {
	return &Syncer{
		runner: runner,
		cfg:    cfg,
	}
}

// Exists reports whether the checkout directory holds a git repository.
func (s *Syncer) Exists(ctx context.Context) (bool, error) {
	probe := remote.Command("test", "-d", path.Join(s.cfg.Dir, ".git"))

	result, err := s.runner.Run(ctx, probe)
	if err != nil {
		return false, fmt.Errorf("probe checkout: %w", err)
	}

	return result.Ok(), nil
}

// Clone creates the checkout from scratch on the configured branch.
func (s *Syncer) Clone(ctx context.Context) error {
	command := remote.Command(
		"git", "clone",
		"--branch", s.cfg.Branch,
		"--single-branch",
		s.cfg.RepoURL,
		s.cfg.Dir,
	)

	if _, err := remote.RunChecked(ctx, s.runner, command); err != nil {
		return fmt.Errorf("clone: %w", err)
	}

	logger.InfoKV(ctx, "Checkout cloned", "dir", s.cfg.Dir, "branch", s.cfg.Branch)

	return nil
}

// Pull fast-forwards the existing checkout to the latest branch revision.
// Diverged histories fail rather than merge.
func (s *Syncer) Pull(ctx context.Context) error {
	fetch := remote.Command("git", "-C", s.cfg.Dir, "fetch", "origin", s.cfg.Branch)
	if _, err := remote.RunChecked(ctx, s.runner, fetch); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	merge := remote.Command("git", "-C", s.cfg.Dir, "merge", "--ff-only", "FETCH_HEAD")
	if _, err := remote.RunChecked(ctx, s.runner, merge); err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	logger.InfoKV(ctx, "Checkout fast-forwarded", "dir", s.cfg.Dir, "branch", s.cfg.Branch)

	return nil
}

// Sync clones when the checkout is missing and fast-forwards otherwise.
func (s *Syncer) Sync(ctx context.Context) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}

	if exists {
		return s.Pull(ctx)
	}

	return s.Clone(ctx)
}

// Revision returns the short commit hash currently checked out.
func (s *Syncer) Revision(ctx context.Context) (string, error) {
	command := remote.Command("git", "-C", s.cfg.Dir, "rev-parse", "--short", "HEAD")

	result, err := remote.RunChecked(ctx, s.runner, command)
	if err != nil {
		return "", fmt.Errorf("rev-parse: %w", err)
	}

	return strings.TrimSpace(string(result.Stdout)), nil
}
