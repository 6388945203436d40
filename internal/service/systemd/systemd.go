package systemd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
)

var (
	// ErrServiceFailed means the unit entered a failed state after restart.
	ErrServiceFailed = errors.New("service entered failed state")
	// ErrHealthTimeout means the unit did not become active before the deadline.
	ErrHealthTimeout = errors.New("service did not become active in time")
)

// Manager controls one systemd unit on the target host.
type Manager struct {
	runner remote.Runner
	unit   string
}

// NewManager creates a Manager for the named unit.
func NewManager(runner remote.Runner, unit string) *Manager {
	return &Manager{
		runner: runner,
		unit:   unit,
	}
}

// Restart restarts the unit. The restart is unconditional: it does not
// depend on whether the preceding code refresh changed anything.
func (m *Manager) Restart(ctx context.Context) error {
	command := remote.Command("systemctl", "restart", m.unit)
	if _, err := remote.RunChecked(ctx, m.runner, command); err != nil {
		return fmt.Errorf("restart %s: %w", m.unit, err)
	}

	return nil
}

// WaitActive polls the unit state until it reports active, distinguishing
// a unit that failed (ErrServiceFailed) from one that never settled before
// the deadline (ErrHealthTimeout).
func (m *Manager) WaitActive(ctx context.Context, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	probe := remote.Command("systemctl", "is-active", m.unit)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := m.runner.Run(ctx, probe)
		if err != nil {
			return fmt.Errorf("probe %s: %w", m.unit, err)
		}

		switch state := strings.TrimSpace(string(result.Stdout)); state {
		case "active":
			logger.InfoKV(ctx, "Service is active", "unit", m.unit)
			return nil
		case "failed":
			return fmt.Errorf("%w: %s", ErrServiceFailed, m.unit)
		default:
			logger.DebugKV(ctx, "Service not active yet", "unit", m.unit, "state", state)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrHealthTimeout, m.unit, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status streams the unit's status output to the provided writer.
func (m *Manager) Status(ctx context.Context, out io.Writer) error {
	command := remote.Command("systemctl", "status", m.unit, "--no-pager")
	if err := m.runner.RunStreaming(ctx, command, out, out); err != nil {
		return fmt.Errorf("status %s: %w", m.unit, err)
	}

	return nil
}

// JournalTail streams the unit's most recent journal lines to the writer.
func (m *Manager) JournalTail(ctx context.Context, lines int, out io.Writer) error {
	command := remote.Command("journalctl", "-u", m.unit, "-n", strconv.Itoa(lines), "--no-pager")
	if err := m.runner.RunStreaming(ctx, command, out, out); err != nil {
		return fmt.Errorf("journal %s: %w", m.unit, err)
	}

	return nil
}
