package database

import (
	"fmt"
	"strings"
)

// GetWorkCenterMappings читает всю таблицу соответствий рабочий центр -> станок
func (db *PlantDB) GetWorkCenterMappings() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT label, machine_id FROM workcenter_mappings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workcenter mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]string)
	for rows.Next() {
		var label, machineID string
		if err := rows.Scan(&label, &machineID); err != nil {
			return nil, fmt.Errorf("failed to scan workcenter mapping: %w", err)
		}
		mappings[label] = machineID
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workcenter mappings: %w", err)
	}

	return mappings, nil
}

// SaveWorkCenterMapping сохраняет соответствие немедленно, вне транзакционного
// пакета сверки: правки оператора — справочные данные, они переживают
// закрытие сессии импорта
func (db *PlantDB) SaveWorkCenterMapping(label, machineID string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("workcenter label is required")
	}

	query := `
		INSERT INTO workcenter_mappings (label, machine_id)
		VALUES (?, ?)
		ON CONFLICT(label) DO UPDATE SET
			machine_id = excluded.machine_id,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := db.conn.Exec(query, label, machineID); err != nil {
		return fmt.Errorf("failed to save workcenter mapping %q: %w", label, err)
	}

	return nil
}

// DeleteWorkCenterMapping удаляет соответствие (явное действие оператора,
// автоматического "забывания" нет)
func (db *PlantDB) DeleteWorkCenterMapping(label string) error {
	if _, err := db.conn.Exec(`DELETE FROM workcenter_mappings WHERE label = ?`, label); err != nil {
		return fmt.Errorf("failed to delete workcenter mapping %q: %w", label, err)
	}
	return nil
}
