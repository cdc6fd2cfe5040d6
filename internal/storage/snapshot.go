package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

var ErrSchemaMismatch = errors.New("snapshot schema version does not match")

// restoreOrder lists tables parents first.
var restoreOrder = []string{
	"accounts",
	"transfers",
	"recurring_templates",
	"transactions",
	"categories",
	"payees",
	"projects",
	"settings",
}

// BackupTo writes a consistent copy of the database to dest. The file
// must not exist yet.
func (r *SQLiteRepository) BackupTo(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup %s: %w", dest, os.ErrExist)
	}
	if _, err := r.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	slog.InfoContext(ctx, "Database snapshot written", "path", dest)
	return nil
}

// SchemaVersion returns the applied migration version.
func (r *SQLiteRepository) SchemaVersion(ctx context.Context) (int64, error) {
	return schemaVersion(ctx, r.db, "main")
}

func schemaVersion(ctx context.Context, db DBTX, schema string) (int64, error) {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRowContext(ctx, "SELECT version, dirty FROM "+schema+".schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		return 0, fmt.Errorf("read %s schema version: %w", schema, err)
	}
	if dirty {
		return 0, fmt.Errorf("%s schema is dirty at version %d", schema, version)
	}
	return version, nil
}

// RestoreFrom replaces every row with the contents of the snapshot at src.
// The snapshot must be at the same schema version. The swap happens in one
// transaction, so a failed restore leaves the current data in place.
func (r *SQLiteRepository) RestoreFrom(ctx context.Context, src string) (err error) {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS src", src); err != nil {
		return fmt.Errorf("attach snapshot: %w", err)
	}
	defer func() {
		if _, derr := conn.ExecContext(context.WithoutCancel(ctx), "DETACH DATABASE src"); derr != nil && err == nil {
			err = fmt.Errorf("detach snapshot: %w", derr)
		}
	}()

	want, err := schemaVersion(ctx, conn, "main")
	if err != nil {
		return err
	}
	got, err := schemaVersion(ctx, conn, "src")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: snapshot at %d, database at %d", ErrSchemaMismatch, got, want)
	}

	// Foreign keys cannot be toggled inside a transaction.
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, ferr := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); ferr != nil && err == nil {
			err = fmt.Errorf("enable foreign keys: %w", ferr)
		}
	}()

	if err := replaceTables(ctx, conn); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Database restored from snapshot", "path", src, "schema_version", want)
	return nil
}

func replaceTables(ctx context.Context, conn *sql.Conn) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	for i := len(restoreOrder) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM main."+restoreOrder[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear %s: %w", restoreOrder[i], err)
		}
	}
	for _, table := range restoreOrder {
		if _, err := tx.ExecContext(ctx, "INSERT INTO main."+table+" SELECT * FROM src."+table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("copy %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}

type DBStats struct {
	Path          string  `json:"path"`
	SizeBytes     int64   `json:"size_bytes"`
	SizeMB        float64 `json:"size_mb"`
	SchemaVersion int64   `json:"schema_version"`
}

// Stats reports the main database file size and schema version. The WAL
// file is not counted.
func (r *SQLiteRepository) Stats(ctx context.Context) (DBStats, error) {
	fi, err := os.Stat(r.path)
	if err != nil {
		return DBStats{}, fmt.Errorf("stat database: %w", err)
	}
	version, err := r.SchemaVersion(ctx)
	if err != nil {
		return DBStats{}, err
	}
	return DBStats{
		Path:          r.path,
		SizeBytes:     fi.Size(),
		SizeMB:        float64(fi.Size()) / (1024 * 1024),
		SchemaVersion: version,
	}, nil
}
