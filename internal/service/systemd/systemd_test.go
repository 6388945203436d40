package systemd

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
)

// fakeRunner answers is-active probes from a queue of states.
type fakeRunner struct {
	commands []string
	states   []string
}

func (f *fakeRunner) Run(_ context.Context, command string) (*remote.Result, error) {
	f.commands = append(f.commands, command)

	if strings.Contains(command, "is-active") && len(f.states) > 0 {
		state := f.states[0]
		f.states = f.states[1:]

		return &remote.Result{Stdout: []byte(state + "\n")}, nil
	}

	return &remote.Result{}, nil
}

func (f *fakeRunner) RunStreaming(ctx context.Context, command string, stdout, _ io.Writer) error {
	if _, err := f.Run(ctx, command); err != nil {
		return err
	}

	if stdout != nil {
		_, _ = stdout.Write([]byte("unit output\n"))
	}

	return nil
}

// TestRestart issues an unconditional systemctl restart.
func TestRestart(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	manager := NewManager(runner, "newsbot.service")

	require.NoError(t, manager.Restart(context.Background()))
	require.Len(t, runner.commands, 1)
	require.Contains(t, runner.commands[0], "systemctl restart newsbot.service")
}

// TestWaitActiveEventuallyActive polls through activating into active.
func TestWaitActiveEventuallyActive(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{states: []string{"activating", "activating", "active"}}
	manager := NewManager(runner, "newsbot.service")

	err := manager.WaitActive(context.Background(), time.Second, time.Millisecond)
	require.NoError(t, err)
}

// TestWaitActiveFailedState reports a failed unit distinctly from a timeout.
func TestWaitActiveFailedState(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{states: []string{"activating", "failed"}}
	manager := NewManager(runner, "newsbot.service")

	err := manager.WaitActive(context.Background(), time.Second, time.Millisecond)
	require.ErrorIs(t, err, ErrServiceFailed)
	require.NotErrorIs(t, err, ErrHealthTimeout)
}

// TestWaitActiveTimeout reports a deadline expiry distinctly from a failure.
func TestWaitActiveTimeout(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{states: []string{"activating", "activating", "activating", "activating"}}
	manager := NewManager(runner, "newsbot.service")

	err := manager.WaitActive(context.Background(), 5*time.Millisecond, time.Millisecond)
	require.ErrorIs(t, err, ErrHealthTimeout)
	require.NotErrorIs(t, err, ErrServiceFailed)
}

// TestStatusAndJournalStream wire remote output to the writer.
func TestStatusAndJournalStream(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	manager := NewManager(runner, "newsbot.service")

	var out strings.Builder

	require.NoError(t, manager.Status(context.Background(), &out))
	require.Contains(t, out.String(), "unit output")

	require.NoError(t, manager.JournalTail(context.Background(), 50, &out))
	require.Contains(t, runner.commands[1], "journalctl -u newsbot.service -n 50")
}
