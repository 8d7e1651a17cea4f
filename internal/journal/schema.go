package journal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var baseSchema string

// migrations[i] upgrades a journal from user_version i to i+1.
var migrations = []string{
	baseSchema,
}

// ErrJournalTooNew is returned when the file was written by a newer build.
var ErrJournalTooNew = errors.New("journal written by a newer version")

// migrate brings the database up to len(migrations), tracking progress in
// SQLite's user_version pragma. Each step commits on its own.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("%w: %s is at version %d, this build knows %d",
			ErrJournalTooNew, s.path, version, len(migrations))
	}
	for next := version; next < len(migrations); next++ {
		if err := s.applyMigration(ctx, next+1, migrations[next]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, version int, stmt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("journal migration %d: %w", version, err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("journal migration %d: set version: %w", version, err)
	}
	return tx.Commit()
}
