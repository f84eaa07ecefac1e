package database

import (
	"database/sql"
	"fmt"
)

const reportColumns = `id, run_id, entity_code, entity_name, reference_date, markdown, reliability,
	status, validation_passed, interrupted, reference_price, price_deviation, generated_at`

// InsertReport stores a finished run and its section outcomes in one
// transaction. It returns the new report id.
func (db *DB) InsertReport(r *Report, sections []SectionResult) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO reports
		(run_id, entity_code, entity_name, reference_date, markdown, reliability,
		 status, validation_passed, interrupted, reference_price, price_deviation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.EntityCode, r.EntityName, r.ReferenceDate, r.Markdown, r.Reliability,
		r.Status, r.ValidationPassed, r.Interrupted, r.ReferencePrice, r.PriceDeviation,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertSectionResults(tx, id, sections); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

// InsertSectionResults replaces the section outcomes recorded for a report.
func (db *DB) InsertSectionResults(reportID int64, sections []SectionResult) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM section_results WHERE report_id = ?", reportID); err != nil {
		return err
	}
	if err := insertSectionResults(tx, reportID, sections); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSectionResults(tx *sql.Tx, reportID int64, sections []SectionResult) error {
	stmt, err := tx.Prepare(
		`INSERT INTO section_results (report_id, section_id, position, kind, error, length)
		VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range sections {
		if _, err := stmt.Exec(reportID, s.SectionID, i, s.Kind, s.Error, s.Length); err != nil {
			return fmt.Errorf("section %s: %w", s.SectionID, err)
		}
	}
	return nil
}

// GetReport returns a report by id, or nil if it does not exist.
func (db *DB) GetReport(id int64) (*Report, error) {
	row := db.conn.QueryRow("SELECT "+reportColumns+" FROM reports WHERE id = ?", id)
	r, err := scanReport(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

// GetLatestReport returns the newest report for an entity, or nil.
func (db *DB) GetLatestReport(entityCode string) (*Report, error) {
	row := db.conn.QueryRow(
		"SELECT "+reportColumns+" FROM reports WHERE entity_code = ? ORDER BY id DESC LIMIT 1",
		entityCode,
	)
	r, err := scanReport(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

// ListReports returns reports newest first. An empty entityCode lists every
// entity; limit <= 0 means no limit.
func (db *DB) ListReports(entityCode string, limit int) ([]Report, error) {
	query := "SELECT " + reportColumns + " FROM reports"
	var args []any
	if entityCode != "" {
		query += " WHERE entity_code = ?"
		args = append(args, entityCode)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// GetSectionResults returns a report's section outcomes in document order.
func (db *DB) GetSectionResults(reportID int64) ([]SectionResult, error) {
	rows, err := db.conn.Query(
		`SELECT report_id, section_id, position, kind, error, length
		FROM section_results WHERE report_id = ? ORDER BY position`, reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SectionResult
	for rows.Next() {
		var s SectionResult
		if err := rows.Scan(&s.ReportID, &s.SectionID, &s.Position, &s.Kind, &s.Error, &s.Length); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*Report, error) {
	var r Report
	if err := row.Scan(&r.ID, &r.RunID, &r.EntityCode, &r.EntityName, &r.ReferenceDate,
		&r.Markdown, &r.Reliability, &r.Status, &r.ValidationPassed, &r.Interrupted,
		&r.ReferencePrice, &r.PriceDeviation, &r.GeneratedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM reports", &s.Reports},
		{"SELECT COUNT(*) FROM reports WHERE reliability >= 0.8", &s.ReliableReports},
		{"SELECT COUNT(*) FROM reports WHERE interrupted = 1", &s.InterruptedRuns},
		{"SELECT COUNT(DISTINCT entity_code) FROM reports", &s.Entities},
		{"SELECT COUNT(*) FROM section_results WHERE kind != ''", &s.FailedSections},
		{"SELECT COUNT(*) FROM alerts", &s.Alerts},
		{"SELECT COUNT(*) FROM alerts WHERE delivered = 0", &s.UndeliveredAlerts},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
