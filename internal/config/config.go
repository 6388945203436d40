package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the deploy profile describing one remote host and the
// application that runs on it. One file covers both workflows.
type Config struct {
	// Remote holds the SSH connection parameters.
	Remote RemoteConfig `yaml:"remote"`
	// Checkout describes the source tree on the remote host.
	Checkout CheckoutConfig `yaml:"checkout"`
	// Runtime describes the Python environment inside the checkout.
	Runtime RuntimeConfig `yaml:"runtime"`
	// Database describes the PostgreSQL objects the application needs.
	Database DatabaseConfig `yaml:"database"`
	// Service describes the systemd unit running the application.
	Service ServiceConfig `yaml:"service"`
	// StateFile is the local path of the JSON deployment record.
	StateFile string `yaml:"state_file"`
}

// RemoteConfig holds SSH connection parameters for the target host.
type RemoteConfig struct {
	// Host is the remote address, optionally with a port (host or host:port).
	Host string `yaml:"host"`
	// User is the login account on the remote host.
	User string `yaml:"user"`
	// KeyFile is the path to the private key used for authentication.
	KeyFile string `yaml:"key_file"`
	// KeyPassphraseEnv names the environment variable holding the key
	// passphrase. Empty means the key is not encrypted.
	KeyPassphraseEnv string `yaml:"key_passphrase_env"`
	// KnownHostsFile is the path to the known_hosts file used for host key
	// verification. Empty means ~/.ssh/known_hosts.
	KnownHostsFile string `yaml:"known_hosts_file"`
	// InsecureSkipHostKeyCheck disables host key verification.
	InsecureSkipHostKeyCheck bool `yaml:"insecure_skip_host_key_check"`
	// ConnectTimeout bounds the TCP dial and SSH handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// CheckoutConfig describes the application source tree on the remote host.
type CheckoutConfig struct {
	// Dir is the absolute path of the checkout directory.
	Dir string `yaml:"dir"`
	// RepoURL is the git repository to clone from.
	RepoURL string `yaml:"repo_url"`
	// Branch is the branch to clone and fast-forward.
	Branch string `yaml:"branch"`
}

// RuntimeConfig describes the Python environment inside the checkout.
type RuntimeConfig struct {
	// VenvDir is the virtualenv directory, relative to the checkout.
	VenvDir string `yaml:"venv_dir"`
	// RequirementsFile is the pip manifest, relative to the checkout.
	RequirementsFile string `yaml:"requirements_file"`
	// ExtraPackages are installed unconditionally in addition to the manifest.
	ExtraPackages []string `yaml:"extra_packages"`
	// SystemPackages is the apt package list installed during provisioning.
	SystemPackages []string `yaml:"system_packages"`
}

// DatabaseConfig describes the PostgreSQL objects the application needs.
type DatabaseConfig struct {
	// Name is the database name.
	Name string `yaml:"name"`
	// Owner is the role that owns the database.
	Owner string `yaml:"owner"`
	// PasswordEnv names the environment variable holding the role password.
	// The password itself is never stored in the profile.
	PasswordEnv string `yaml:"password_env"`
}

// ServiceConfig describes the systemd unit running the application.
type ServiceConfig struct {
	// Unit is the systemd unit name.
	Unit string `yaml:"unit"`
	// HealthTimeout bounds the post-restart health poll.
	HealthTimeout time.Duration `yaml:"health_timeout"`
	// HealthInterval is the delay between health probes.
	HealthInterval time.Duration `yaml:"health_interval"`
	// JournalLines is how many journal lines to report after an update.
	JournalLines int `yaml:"journal_lines"`
}

const (
	// DefaultConfigFilename is the default filename for the deploy profile.
	DefaultConfigFilename = "newsbot-deploy.yaml"

	// DefaultStateFilename is the default filename for the deployment record.
	DefaultStateFilename = "newsbot-deploy-state.json"

	// DefaultConnectTimeout is the default SSH dial timeout.
	DefaultConnectTimeout = 15 * time.Second

	// DefaultBranch is the branch deployed when none is configured.
	DefaultBranch = "main"

	// DefaultVenvDir is the virtualenv directory inside the checkout.
	DefaultVenvDir = "venv"

	// DefaultRequirementsFile is the pip manifest inside the checkout.
	DefaultRequirementsFile = "requirements.txt"

	// DefaultDatabaseName is the application database name.
	DefaultDatabaseName = "news_db"

	// DefaultDatabaseOwner is the application database role.
	DefaultDatabaseOwner = "newsbot"

	// DefaultServiceUnit is the systemd unit running the bot.
	DefaultServiceUnit = "newsbot.service"

	// DefaultHealthTimeout bounds the post-restart health poll.
	DefaultHealthTimeout = 30 * time.Second

	// DefaultHealthInterval is the delay between health probes.
	DefaultHealthInterval = 2 * time.Second

	// DefaultJournalLines is how many journal lines to report.
	DefaultJournalLines = 50

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// defaultExtraPackages are pip packages the bot needs beyond its manifest.
func defaultExtraPackages() []string {
	return []string{"deep-translator", "psycopg2-binary"}
}

// defaultSystemPackages is the apt package list for a bare host.
func defaultSystemPackages() []string {
	return []string{"python3", "python3-venv", "python3-pip", "git", "postgresql"}
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errHostRequired is returned when the remote host is missing.
	errHostRequired = errors.New("remote host must be provided")
	// errUserRequired is returned when the login account is missing.
	errUserRequired = errors.New("remote user must be provided")
	// errInvalidRemotePort is returned when the host carries a bad port.
	errInvalidRemotePort = errors.New("remote port must be between 1 and 65535")
	// errKeyFileRequired is returned when the private key path is missing.
	errKeyFileRequired = errors.New("remote key file must be provided")
	// errCheckoutDirRequired is returned when the checkout directory is missing.
	errCheckoutDirRequired = errors.New("checkout directory must be provided")
	// errRepoURLRequired is returned when the repository URL is missing.
	errRepoURLRequired = errors.New("repository URL must be provided")
	// errPasswordEnvRequired is returned when no password source is named.
	errPasswordEnvRequired = errors.New("database password_env must name an environment variable")
	// errInlinePassword is returned when the profile tries to embed a secret.
	errInlinePassword = errors.New("database password must come from the environment, not the profile")
	// errPasswordNotSet is returned when the named variable is empty at runtime.
	errPasswordNotSet = errors.New("database password environment variable is empty")
)

// Load reads the deploy profile from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the deploy profile to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	return nil
}

// Validate checks required fields, formats, and applies defaults in place.
//
//nolint:cyclop // Field-by-field validation reads better flat than split up.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Remote.Host) == "" {
		return errHostRequired
	}

	// The host may carry an explicit port; check its range when it does.
	// Validation never touches the network, so no resolving here.
	if _, port, err := net.SplitHostPort(cfg.Remote.Host); err == nil {
		number, convErr := strconv.Atoi(port)
		if convErr != nil || number < 1 || number > 65535 {
			return fmt.Errorf("%w: %q", errInvalidRemotePort, port)
		}
	}

	if strings.TrimSpace(cfg.Remote.User) == "" {
		return errUserRequired
	}

	if strings.TrimSpace(cfg.Remote.KeyFile) == "" {
		return errKeyFileRequired
	}

	if cfg.Remote.ConnectTimeout <= 0 {
		cfg.Remote.ConnectTimeout = DefaultConnectTimeout
	}

	if strings.TrimSpace(cfg.Checkout.Dir) == "" {
		return errCheckoutDirRequired
	}

	if strings.TrimSpace(cfg.Checkout.RepoURL) == "" {
		return errRepoURLRequired
	}

	if _, err := url.Parse(cfg.Checkout.RepoURL); err != nil {
		return fmt.Errorf("invalid repository URL: %w", err)
	}

	if cfg.Checkout.Branch == "" {
		cfg.Checkout.Branch = DefaultBranch
	}

	applyRuntimeDefaults(&cfg.Runtime)

	if err := validateDatabase(&cfg.Database); err != nil {
		return err
	}

	applyServiceDefaults(&cfg.Service)

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	return nil
}

// applyRuntimeDefaults fills unset runtime fields.
func applyRuntimeDefaults(rt *RuntimeConfig) {
	if rt.VenvDir == "" {
		rt.VenvDir = DefaultVenvDir
	}

	if rt.RequirementsFile == "" {
		rt.RequirementsFile = DefaultRequirementsFile
	}

	if len(rt.ExtraPackages) == 0 {
		rt.ExtraPackages = defaultExtraPackages()
	}

	if len(rt.SystemPackages) == 0 {
		rt.SystemPackages = defaultSystemPackages()
	}
}

// validateDatabase fills defaults and rejects inline secrets.
func validateDatabase(db *DatabaseConfig) error {
	if db.Name == "" {
		db.Name = DefaultDatabaseName
	}

	if db.Owner == "" {
		db.Owner = DefaultDatabaseOwner
	}

	if strings.TrimSpace(db.PasswordEnv) == "" {
		return errPasswordEnvRequired
	}

	// A value that is not a plausible variable name is someone trying to
	// put the secret itself into the profile.
	if strings.ContainsAny(db.PasswordEnv, " \t:/@") {
		return errInlinePassword
	}

	return nil
}

// applyServiceDefaults fills unset service fields.
func applyServiceDefaults(svc *ServiceConfig) {
	if svc.Unit == "" {
		svc.Unit = DefaultServiceUnit
	}

	if svc.HealthTimeout <= 0 {
		svc.HealthTimeout = DefaultHealthTimeout
	}

	if svc.HealthInterval <= 0 {
		svc.HealthInterval = DefaultHealthInterval
	}

	if svc.JournalLines <= 0 {
		svc.JournalLines = DefaultJournalLines
	}
}

// Password resolves the database password from the configured environment
// variable at invocation time. Secrets never live in the profile.
func (db *DatabaseConfig) Password() (string, error) {
	value := os.Getenv(db.PasswordEnv)
	if value == "" {
		return "", fmt.Errorf("%w: %s", errPasswordNotSet, db.PasswordEnv)
	}

	return value, nil
}

// KeyPassphrase resolves the private key passphrase from the configured
// environment variable. Empty when the key is not encrypted.
func (r *RemoteConfig) KeyPassphrase() string {
	if r.KeyPassphraseEnv == "" {
		return ""
	}

	return os.Getenv(r.KeyPassphraseEnv)
}
