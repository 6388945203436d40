package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultSSHPort = "22"

var (
	// errHostRequired is returned when the SSH host is empty.
	errHostRequired = errors.New("ssh host is required")
	// errUserRequired is returned when the SSH user is empty.
	errUserRequired = errors.New("ssh user is required")
	// errKeyPathRequired is returned when no private key path is configured.
	errKeyPathRequired = errors.New("ssh key path is required")
	// errKnownHostsUnavailable is returned when no known_hosts file can be located.
	errKnownHostsUnavailable = errors.New("known hosts path not set and home dir unavailable")
)

// SSHRunner executes commands on a remote host over SSH with key-based
// authentication. Each command runs in its own session; a connection is
// dialed lazily on first use and reused until Close.
type SSHRunner struct {
	// Host is the remote address, optionally host:port.
	Host string
	// User is the login account.
	User string
	// KeyPath is the private key file used for authentication.
	KeyPath string
	// Passphrase decrypts the private key when non-empty.
	Passphrase []byte
	// KnownHostsPath overrides ~/.ssh/known_hosts for host key checks.
	KnownHostsPath string
	// InsecureSkipHostKeyCheck disables host key verification.
	InsecureSkipHostKeyCheck bool
	// Timeout bounds the TCP dial and handshake.
	Timeout time.Duration

	client *ssh.Client
}

// Run executes the command remotely and captures its output.
func (r *SSHRunner) Run(ctx context.Context, command string) (*Result, error) {
	var stdout, stderr bytes.Buffer

	err := r.runSession(ctx, command, &stdout, &stderr)
	result := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitStatus()
		return result, nil
	}

	if err != nil {
		return nil, err
	}

	return result, nil
}

// RunStreaming executes the command remotely, wiring output to the provided writers.
func (r *SSHRunner) RunStreaming(ctx context.Context, command string, stdout, stderr io.Writer) error {
	return r.runSession(ctx, command, stdout, stderr)
}

// Close tears down the cached connection, if any.
func (r *SSHRunner) Close() error {
	if r.client == nil {
		return nil
	}

	client := r.client
	r.client = nil

	return client.Close()
}

// runSession runs one command in a fresh session on the shared connection.
// Context cancellation closes the connection, which unblocks the session.
func (r *SSHRunner) runSession(ctx context.Context, command string, stdout, stderr io.Writer) error {
	client, err := r.dial(ctx)
	if err != nil {
		return err
	}

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}

	defer func() {
		_ = session.Close()
	}()

	if stdout != nil {
		session.Stdout = stdout
	}

	if stderr != nil {
		session.Stderr = stderr
	}

	done := make(chan error, 1)

	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = r.Close()
		<-done

		return ctx.Err()
	case err = <-done:
		return err
	}
}

// dial establishes the SSH connection on first use.
func (r *SSHRunner) dial(ctx context.Context) (*ssh.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	address, err := r.address()
	if err != nil {
		return nil, err
	}

	clientConfig, err := r.clientConfig()
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: r.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, clientConfig)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", address, err)
	}

	r.client = ssh.NewClient(clientConn, chans, reqs)

	return r.client, nil
}

// address resolves the host into host:port form, defaulting the port to 22.
func (r *SSHRunner) address() (string, error) {
	host := strings.TrimSpace(r.Host)
	if host == "" {
		return "", errHostRequired
	}

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}

	return net.JoinHostPort(host, defaultSSHPort), nil
}

// clientConfig builds the ssh.ClientConfig with key auth and host key policy.
func (r *SSHRunner) clientConfig() (*ssh.ClientConfig, error) {
	if strings.TrimSpace(r.User) == "" {
		return nil, errUserRequired
	}

	signer, err := r.signer()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if r.InsecureSkipHostKeyCheck {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Explicit opt-in for lab hosts.
	} else {
		hostKeyCallback, err = r.knownHostsCallback()
		if err != nil {
			return nil, err
		}
	}

	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         r.Timeout,
	}, nil
}

// signer loads the private key, decrypting it when a passphrase is set.
func (r *SSHRunner) signer() (ssh.Signer, error) {
	if r.KeyPath == "" {
		return nil, errKeyPathRequired
	}

	privateKey, err := os.ReadFile(filepath.Clean(r.KeyPath))
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}

	if len(r.Passphrase) > 0 {
		return ssh.ParsePrivateKeyWithPassphrase(privateKey, r.Passphrase)
	}

	return ssh.ParsePrivateKey(privateKey)
}

// knownHostsCallback builds the host key verifier from known_hosts.
func (r *SSHRunner) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(r.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errKnownHostsUnavailable
		}

		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	return knownhosts.New(path)
}
