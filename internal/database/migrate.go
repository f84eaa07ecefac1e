package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/StockBrief/internal/logger"
)

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrate brings the archive schema (reports, section_results, alerts and the
// price cross-check columns) up to latestVersion. An archive written by a
// newer binary is refused rather than read with a schema it does not know.
func migrate(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	latest := latestVersion()
	switch {
	case current == latest:
		return nil
	case current > latest:
		return fmt.Errorf("archive schema version %d is newer than supported version %d", current, latest)
	}

	for _, m := range migrations[current:] {
		if err := applyMigration(conn, m); err != nil {
			return err
		}
	}
	logger.Log.Infof("archive schema upgraded from version %d to %d", current, latest)
	return nil
}

// applyMigration runs one migration in a transaction and stamps its version.
func applyMigration(conn *sql.DB, m Migration) error {
	logger.Log.Debugf("applying migration %d: %s", m.Version, m.Description)

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}

	// modernc/sqlite cannot set user_version inside the transaction. Every
	// migration is rerunnable, so a crash before this point is recovered on
	// the next Open.
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("setting version %d: %w", m.Version, err)
	}
	return nil
}
