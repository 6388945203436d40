package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cryptonewsbr/newsbot-deploy/internal/logger"
	"github.com/cryptonewsbr/newsbot-deploy/internal/remote"
)

var (
	// errInvalidIdentifier rejects database or role names that cannot be
	// embedded safely in SQL statements.
	errInvalidIdentifier = errors.New("invalid postgres identifier")
	// errEmptyPassword rejects role creation without a password.
	errEmptyPassword = errors.New("role password is empty")
	// errStatementFailed reports a failed statement without echoing it back.
	errStatementFailed = errors.New("psql statement failed")

	// identifierPattern is the allowed shape of database and role names.
	identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Admin manages PostgreSQL databases and roles on the target host by
// running psql as the postgres OS user over the provided runner.
type Admin struct {
	runner remote.Runner
}

// NewAdmin creates an Admin bound to the provided runner.
func NewAdmin(runner remote.Runner) *Admin {
	return &Admin{runner: runner}
}

// DatabaseExists reports whether the named database exists.
func (a *Admin) DatabaseExists(ctx context.Context, name string) (bool, error) {
	if err := validateIdentifier(name); err != nil {
		return false, err
	}

	return a.exists(ctx, fmt.Sprintf("SELECT 1 FROM pg_database WHERE datname = '%s'", name))
}

// RoleExists reports whether the named role exists.
func (a *Admin) RoleExists(ctx context.Context, name string) (bool, error) {
	if err := validateIdentifier(name); err != nil {
		return false, err
	}

	return a.exists(ctx, fmt.Sprintf("SELECT 1 FROM pg_roles WHERE rolname = '%s'", name))
}

// EnsureDatabase creates the database unless it already exists.
// Existence is checked explicitly so unrelated errors are never mistaken
// for "already exists".
func (a *Admin) EnsureDatabase(ctx context.Context, name string) error {
	exists, err := a.DatabaseExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check database %s: %w", name, err)
	}

	if exists {
		logger.InfoKV(ctx, "Database already exists", "database", name)
		return nil
	}

	if err = a.execSQL(ctx, fmt.Sprintf("CREATE DATABASE %s", name)); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}

	logger.InfoKV(ctx, "Database created", "database", name)

	return nil
}

// EnsureRole creates a login role with the provided password unless the
// role already exists. An existing role's password is left untouched.
func (a *Admin) EnsureRole(ctx context.Context, name, password string) error {
	if err := validateIdentifier(name); err != nil {
		return err
	}

	if password == "" {
		return errEmptyPassword
	}

	exists, err := a.RoleExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check role %s: %w", name, err)
	}

	if exists {
		logger.InfoKV(ctx, "Role already exists", "role", name)
		return nil
	}

	statement := fmt.Sprintf("CREATE ROLE %s LOGIN PASSWORD '%s'", name, escapeLiteral(password))
	if err = a.execSQLRedacted(ctx, statement); err != nil {
		return fmt.Errorf("create role %s: %w", name, err)
	}

	logger.InfoKV(ctx, "Role created", "role", name)

	return nil
}

// GrantAll grants all privileges on the database to the role.
// GRANT is idempotent, so no existence check is needed.
func (a *Admin) GrantAll(ctx context.Context, database, role string) error {
	if err := validateIdentifier(database); err != nil {
		return err
	}

	if err := validateIdentifier(role); err != nil {
		return err
	}

	statement := fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", database, role)
	if err := a.execSQL(ctx, statement); err != nil {
		return fmt.Errorf("grant on %s to %s: %w", database, role, err)
	}

	return nil
}

// Provision ensures the database, role and grant in one call.
func (a *Admin) Provision(ctx context.Context, database, role, password string) error {
	if err := a.EnsureDatabase(ctx, database); err != nil {
		return err
	}

	if err := a.EnsureRole(ctx, role, password); err != nil {
		return err
	}

	return a.GrantAll(ctx, database, role)
}

// exists runs a SELECT 1 probe and interprets its single-column output.
func (a *Admin) exists(ctx context.Context, query string) (bool, error) {
	result, err := remote.RunChecked(ctx, a.runner, psqlCommand("-tAc", query))
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(string(result.Stdout)) == "1", nil
}

// execSQL runs one SQL statement through psql.
func (a *Admin) execSQL(ctx context.Context, statement string) error {
	_, err := remote.RunChecked(ctx, a.runner, psqlCommand("-c", statement))

	return err
}

// execSQLRedacted runs one SQL statement through psql without echoing the
// statement back in the failure. Statements carrying secrets go through
// here so the error never reaches logs or the state file with the secret
// inside. Exit code and stderr are preserved.
func (a *Admin) execSQLRedacted(ctx context.Context, statement string) error {
	result, err := a.runner.Run(ctx, psqlCommand("-c", statement))
	if err != nil {
		return fmt.Errorf("run psql: %w", err)
	}

	if !result.Ok() {
		return fmt.Errorf(
			"%w: exit=%d stderr=%q",
			errStatementFailed,
			result.ExitCode,
			strings.TrimSpace(string(result.Stderr)),
		)
	}

	return nil
}

// psqlCommand renders a psql invocation as the postgres OS user.
func psqlCommand(flag, argument string) string {
	return remote.Command("sudo", "-u", "postgres", "psql", flag, argument)
}

// validateIdentifier restricts names to safe SQL identifiers.
func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", errInvalidIdentifier, name)
	}

	return nil
}

// escapeLiteral doubles single quotes for SQL string literals.
func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
