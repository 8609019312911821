// Copyright 2026 The Rootbox Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/rootbox-sh/rootbox/lib/clock"
)

var (
	// ErrNotFound means no environment record has the given name.
	ErrNotFound = errors.New("environment not found")
	// ErrExists means a record with the name (compared
	// case-insensitively) already exists.
	ErrExists = errors.New("environment already exists")
	// ErrCorrupt means the environment failed validation and must be
	// re-set-up or removed.
	ErrCorrupt = errors.New("environment is corrupt")
)

// Status is the lifecycle state of an environment record.
type Status string

const (
	// StatusPending: setup is in flight, or failed partway through.
	StatusPending Status = "pending"
	// StatusActive: setup completed; the environment is launchable.
	StatusActive Status = "active"
	// StatusCorrupt: launch-time validation found the root directory
	// damaged.
	StatusCorrupt Status = "corrupt"
)

// Environment is one catalog record.
type Environment struct {
	Name         string
	RootDir      string
	Distribution string
	Variant      string
	Hostname     string
	Shell        string
	Status       Status
	CreatedAt    time.Time
	// LastLaunchAt is zero when the environment has never been
	// launched.
	LastLaunchAt time.Time
}

// namePattern constrains environment names to something that is safe
// as a directory name and a hostname label.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

const maxNameLen = 64

// ValidateName rejects names unusable as directory names or hostnames.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name is empty")
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("environment name %q exceeds %d characters", name, maxNameLen)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("environment name %q must start with a letter or digit and contain only letters, digits, '.', '_', '-'", name)
	}
	return nil
}

// Store is the environment catalog. Safe for concurrent use.
type Store struct {
	pool   *pool
	clock  clock.Clock
	logger *slog.Logger
}

// Config configures Open. Path is required.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist.
	Path string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Open opens (creating if necessary) the catalog database.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog: Path is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	p, err := openPool(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, clock: cfg.Clock, logger: cfg.Logger}, nil
}

// Close releases the database connections.
func (s *Store) Close() error { return s.pool.close() }

// Create inserts a new record in StatusPending. The name must pass
// ValidateName and be free case-insensitively.
func (s *Store) Create(ctx context.Context, env Environment) error {
	if err := ValidateName(env.Name); err != nil {
		return err
	}
	conn, err := s.pool.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO environments
			(name, name_lower, root_dir, distribution, variant, hostname, shell, status, created_at)
		VALUES (?, lower(?), ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				env.Name, env.Name, env.RootDir, env.Distribution, env.Variant,
				env.Hostname, env.Shell, string(StatusPending),
				s.clock.Now().Unix(),
			},
		})
	if err != nil {
		if code := sqlite.ErrCode(err); code == sqlite.ResultConstraintPrimaryKey ||
			code == sqlite.ResultConstraintUnique {
			return fmt.Errorf("%w: %s", ErrExists, env.Name)
		}
		return fmt.Errorf("catalog: creating %s: %w", env.Name, err)
	}
	s.logger.Debug("catalog record created", "name", env.Name, "root_dir", env.RootDir)
	return nil
}

// Get returns the record for name (exact match).
func (s *Store) Get(ctx context.Context, name string) (Environment, error) {
	conn, err := s.pool.take(ctx)
	if err != nil {
		return Environment{}, err
	}
	defer s.pool.put(conn)
	return getEnv(conn, name)
}

const envColumns = `name, root_dir, distribution, variant, hostname, shell, status, created_at, last_launch_at`

func getEnv(conn *sqlite.Conn, name string) (Environment, error) {
	var env Environment
	found := false
	err := sqlitex.Execute(conn,
		`SELECT `+envColumns+` FROM environments WHERE name = ?`,
		&sqlitex.ExecOptions{
			Args: []any{name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				env = scanEnv(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return Environment{}, fmt.Errorf("catalog: reading %s: %w", name, err)
	}
	if !found {
		return Environment{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return env, nil
}

func scanEnv(stmt *sqlite.Stmt) Environment {
	env := Environment{
		Name:         stmt.ColumnText(0),
		RootDir:      stmt.ColumnText(1),
		Distribution: stmt.ColumnText(2),
		Variant:      stmt.ColumnText(3),
		Hostname:     stmt.ColumnText(4),
		Shell:        stmt.ColumnText(5),
		Status:       Status(stmt.ColumnText(6)),
		CreatedAt:    time.Unix(stmt.ColumnInt64(7), 0).UTC(),
	}
	if launch := stmt.ColumnInt64(8); launch != 0 {
		env.LastLaunchAt = time.Unix(launch, 0).UTC()
	}
	return env
}

// List returns all records ordered by name.
func (s *Store) List(ctx context.Context) ([]Environment, error) {
	conn, err := s.pool.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.put(conn)

	var envs []Environment
	err = sqlitex.Execute(conn,
		`SELECT `+envColumns+` FROM environments ORDER BY name`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				envs = append(envs, scanEnv(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: listing: %w", err)
	}
	return envs, nil
}

// SetStatus transitions the record for name to status.
func (s *Store) SetStatus(ctx context.Context, name string, status Status) error {
	return s.update(ctx, name,
		`UPDATE environments SET status = ? WHERE name = ?`,
		string(status), name)
}

// TouchLaunch records that the environment was just launched.
func (s *Store) TouchLaunch(ctx context.Context, name string) error {
	return s.update(ctx, name,
		`UPDATE environments SET last_launch_at = ? WHERE name = ?`,
		s.clock.Now().Unix(), name)
}

// UpdateShell changes the login shell used for future launches.
func (s *Store) UpdateShell(ctx context.Context, name, shell string) error {
	return s.update(ctx, name,
		`UPDATE environments SET shell = ? WHERE name = ?`,
		shell, name)
}

// UpdateHostname changes the hostname recorded for the environment.
func (s *Store) UpdateHostname(ctx context.Context, name, hostname string) error {
	return s.update(ctx, name,
		`UPDATE environments SET hostname = ? WHERE name = ?`,
		hostname, name)
}

// Remove deletes the record for name.
func (s *Store) Remove(ctx context.Context, name string) error {
	return s.update(ctx, name,
		`DELETE FROM environments WHERE name = ?`, name)
}

// update runs a single-row statement and maps "no rows touched" to
// ErrNotFound.
func (s *Store) update(ctx context.Context, name, query string, args ...any) error {
	conn, err := s.pool.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.put(conn)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return fmt.Errorf("catalog: updating %s: %w", name, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
