package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// runPlantMigrations применяет разовые миграции поверх базовой схемы
func runPlantMigrations(db *sql.DB) error {
	migrations := []struct {
		name string
		fn   func(*sql.DB) error
	}{
		// Старые документы станков хранили остаток только под ключом
		// remaining; перезапись массива журналов приводит их к записи
		// под обоими ключами
		{"2025_04_remaining_mfg_backfill", migrateRemainingMfgBackfill},
	}

	for _, m := range migrations {
		if err := ensureMigrationApplied(db, m.name, m.fn); err != nil {
			return err
		}
	}

	return nil
}

// migrateRemainingMfgBackfill перечитывает и перезаписывает массивы журналов
// всех станков: десериализация принимает legacy-ключ remaining, сериализация
// пишет remaining и remainingMfg
func migrateRemainingMfgBackfill(db *sql.DB) error {
	rows, err := db.Query(`SELECT id, logs FROM machines`)
	if err != nil {
		return fmt.Errorf("failed to query machines for backfill: %w", err)
	}
	defer rows.Close()

	type machineLogs struct {
		id   string
		logs []DailyLog
	}

	var pending []machineLogs
	for rows.Next() {
		var id, logsJSON string
		if err := rows.Scan(&id, &logsJSON); err != nil {
			return fmt.Errorf("failed to scan machine logs: %w", err)
		}

		var logs []DailyLog
		if err := json.Unmarshal([]byte(logsJSON), &logs); err != nil {
			return fmt.Errorf("failed to unmarshal logs for machine %s: %w", id, err)
		}

		pending = append(pending, machineLogs{id: id, logs: logs})
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating machines: %w", err)
	}

	for _, m := range pending {
		logsJSON, err := marshalLogs(m.logs)
		if err != nil {
			return err
		}
		if _, err := db.Exec(`UPDATE machines SET logs = ? WHERE id = ?`, logsJSON, m.id); err != nil {
			return fmt.Errorf("failed to backfill logs for machine %s: %w", m.id, err)
		}
	}

	return nil
}
