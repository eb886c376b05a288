package database

import (
	"fmt"
)

// OpUpsertProductionLog формирует операцию upsert нормализованной суточной
// записи по составному ключу (machine_id, date)
func OpUpsertProductionLog(machineID string, entry DailyLog) BatchOp {
	remaining := entry.Remaining
	if remaining < 0 {
		remaining = 0
	}
	return BatchOp{
		Query: `INSERT INTO production_logs
				(machine_id, date, status, fabric, client, production, scrap, remaining, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(machine_id, date) DO UPDATE SET
				status = excluded.status,
				fabric = excluded.fabric,
				client = excluded.client,
				production = excluded.production,
				scrap = excluded.scrap,
				remaining = excluded.remaining,
				reason = excluded.reason,
				updated_at = CURRENT_TIMESTAMP`,
		Args: []interface{}{
			machineID, entry.Date, entry.Status, entry.Fabric, entry.Client,
			entry.Production, entry.Scrap, remaining, entry.Reason,
		},
	}
}

// GetProductionLogs получает нормализованные записи станка, опционально
// ограниченные диапазоном дат (границы включительно, пустая строка — без границы)
func (db *PlantDB) GetProductionLogs(machineID, fromDate, toDate string) ([]*ProductionLog, error) {
	query := `
		SELECT id, machine_id, date, status, fabric, client,
		       production, scrap, remaining, reason, created_at, updated_at
		FROM production_logs
		WHERE machine_id = ?
	`
	args := []interface{}{machineID}

	if fromDate != "" {
		query += " AND date >= ?"
		args = append(args, fromDate)
	}
	if toDate != "" {
		query += " AND date <= ?"
		args = append(args, toDate)
	}
	query += " ORDER BY date"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query production logs: %w", err)
	}
	defer rows.Close()

	var logs []*ProductionLog
	for rows.Next() {
		var l ProductionLog
		err := rows.Scan(
			&l.ID, &l.MachineID, &l.Date, &l.Status, &l.Fabric, &l.Client,
			&l.Production, &l.Scrap, &l.Remaining, &l.Reason, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan production log: %w", err)
		}
		logs = append(logs, &l)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating production logs: %w", err)
	}

	return logs, nil
}

// GetLastImportDate возвращает наибольшую дату среди нормализованных записей
// (пустая строка, если записей нет)
func (db *PlantDB) GetLastImportDate() (string, error) {
	var date *string
	err := db.conn.QueryRow(`SELECT MAX(date) FROM production_logs`).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to get last import date: %w", err)
	}
	if date == nil {
		return "", nil
	}
	return *date, nil
}
