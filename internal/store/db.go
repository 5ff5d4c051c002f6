// Package store provides the screening engine's concurrent-safe tabular
// persistence layer: a single embedded sqlite engine with write-ahead
// logging, upsert-by-primary-key semantics, and the range-read operations
// the ingestion, factor, strategy, and quality components need.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// Profile selects a PRAGMA tuning preset, mirroring the teacher's
// ledger/standard split: the ledger profile runs synchronous=FULL, the
// standard profile synchronous=NORMAL. A Store applies its one profile to
// every table in its file.
type Profile string

const (
	ProfileLedger   Profile = "ledger"
	ProfileStandard Profile = "standard"
)

// Config configures a new Store.
type Config struct {
	Path    string  // sqlite file path, or a "file:" URI (e.g. in-memory tests)
	Profile Profile // defaults to ProfileStandard
}

// Store wraps the sqlite connection plus the table metadata needed to build
// generic upsert/query statements without per-table boilerplate.
type Store struct {
	conn    *sql.DB
	profile Profile
}

// New opens (and migrates) a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}

	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve store path: %w", err)
		}
		if dir := filepath.Dir(abs); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
		path = abs
	}

	connStr := buildConnectionString(path, cfg.Profile)
	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	configureConnectionPool(conn, cfg.Profile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{conn: conn, profile: cfg.Profile}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// buildConnectionString appends profile-appropriate PRAGMAs to the DSN.
// journal_mode=WAL gives crash safety with concurrent readers; synchronous is
// relaxed to NORMAL outside the ledger profile, which can lose the most
// recent commits on an unclean shutdown.
func buildConnectionString(path string, profile Profile) string {
	sync := "NORMAL"
	if profile == ProfileLedger {
		sync = "FULL"
	}
	return fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(%s)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path, sync)
}

func configureConnectionPool(conn *sql.DB, profile Profile) {
	// A single embedded engine file: one writer at a time, but WAL allows
	// many concurrent readers, so a modest pool is fine.
	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(time.Hour)
}

func (s *Store) migrate() error {
	for _, stmt := range schemaStatements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn exposes the raw connection for read-only ad hoc aggregate queries
// beyond the generic Query surface.
func (s *Store) Conn() *sql.DB {
	return s.conn
}
