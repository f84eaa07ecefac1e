package database

// InsertAlert records an alert and whether the sink accepted it.
// Empty entity or section values are stored as NULL.
func (db *DB) InsertAlert(severity, entity, section, message string, delivered bool) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO alerts (severity, entity, section, message, delivered)
		VALUES (?, ?, ?, ?, ?)`,
		severity, nullable(entity), nullable(section), message, delivered,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// MarkAlertDelivered flags an alert whose delivery was confirmed after it
// was recorded.
func (db *DB) MarkAlertDelivered(id int64) error {
	_, err := db.conn.Exec("UPDATE alerts SET delivered = 1 WHERE id = ?", id)
	return err
}

// ListAlerts returns alerts newest first. An empty severity lists all.
func (db *DB) ListAlerts(severity string, limit int) ([]Alert, error) {
	query := "SELECT id, severity, entity, section, message, delivered, created_at FROM alerts"
	var args []any
	if severity != "" {
		query += " WHERE severity = ?"
		args = append(args, severity)
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

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Severity, &a.Entity, &a.Section, &a.Message,
			&a.Delivered, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
