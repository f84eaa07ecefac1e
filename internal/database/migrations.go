package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations. Versions are
// contiguous from 1: migrations[i] has Version i+1.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT UNIQUE NOT NULL,
    entity_code TEXT NOT NULL,
    entity_name TEXT NOT NULL,
    reference_date TEXT NOT NULL,
    markdown TEXT NOT NULL,
    reliability REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    validation_passed INTEGER DEFAULT 0,
    interrupted INTEGER DEFAULT 0,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS section_results (
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    section_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    kind TEXT NOT NULL DEFAULT '',
    error TEXT,
    length INTEGER DEFAULT 0,
    PRIMARY KEY (report_id, section_id)
);

CREATE TABLE IF NOT EXISTS alerts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    severity TEXT NOT NULL CHECK(severity IN ('critical', 'warning', 'error')),
    entity TEXT,
    section TEXT,
    message TEXT NOT NULL,
    delivered INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_entity ON reports(entity_code, reference_date);
CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "price cross-check columns",
		Up: func(tx *sql.Tx) error {
			for _, col := range []string{"reference_price", "price_deviation"} {
				exists, err := columnExists(tx, "reports", col)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				if _, err := tx.Exec("ALTER TABLE reports ADD COLUMN " + col + " TEXT"); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

// columnExists keeps ALTER TABLE migrations safe to re-run.
func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	var count int
	err := tx.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column,
	).Scan(&count)
	return count > 0, err
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
