package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/pngme/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the journal database file inside the base directory.
const FileName = "pngme.db"

// migrations are applied in order; migration i brings the schema to user_version i+1.
var migrations = []string{
	// 1: journal of chunk writes and removals
	`CREATE TABLE IF NOT EXISTS journal (
	  id          TEXT PRIMARY KEY,
	  op          TEXT NOT NULL,
	  path        TEXT NOT NULL,
	  chunk_type  TEXT NOT NULL,
	  length      INTEGER NOT NULL,
	  crc         INTEGER NOT NULL,
	  chunk       BLOB NOT NULL,
	  created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_journal_path_created ON journal(path, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_journal_created ON journal(created_at);`,

	// 2: history filtered by op
	`CREATE INDEX IF NOT EXISTS idx_journal_op_created ON journal(op, created_at DESC);`,
}

// CurrentSchemaVersion is the schema version after all migrations ran.
var CurrentSchemaVersion = len(migrations)

// Init opens the journal at baseDir/pngme.db, creating baseDir and
// baseDir/exports (mode 0700) when missing. Tests pass t.TempDir().
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "exports")} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
		_ = os.Chmod(dir, 0700)
	}

	dbPath := filepath.Join(baseDir, FileName)
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// Open opens a journal database file in WAL mode and migrates it.
func Open(dbPath string) (*sql.DB, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ConfigurePool applies connection pool limits that are set (non-zero) in cfg.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate runs every migration newer than user_version, each in its own transaction.
// A database written by a newer pngme is refused.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: set user_version: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", i+1, err)
		}
	}
	return nil
}

func verifyWALMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", mode)
	}
	return nil
}

// GetUserVersion returns the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
