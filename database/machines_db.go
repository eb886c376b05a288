package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
)

// GetAllMachines получает все станки с вложенными массивами журналов.
// Журналы возвращаются отсортированными по дате по возрастанию.
func (db *PlantDB) GetAllMachines() ([]*Machine, error) {
	query := `
		SELECT id, name, brand, aliases, logs,
		       current_status, current_client, current_fabric, current_remaining,
		       created_at, updated_at
		FROM machines
		ORDER BY name
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query machines: %w", err)
	}
	defer rows.Close()

	var machines []*Machine
	for rows.Next() {
		machine, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, machine)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating machines: %w", err)
	}

	return machines, nil
}

// GetMachine получает станок по идентификатору
func (db *PlantDB) GetMachine(id string) (*Machine, error) {
	query := `
		SELECT id, name, brand, aliases, logs,
		       current_status, current_client, current_fabric, current_remaining,
		       created_at, updated_at
		FROM machines
		WHERE id = ?
	`

	row := db.conn.QueryRow(query, id)
	machine, err := scanMachine(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return machine, nil
}

// scanTarget общий интерфейс для *sql.Row и *sql.Rows
type scanTarget interface {
	Scan(dest ...interface{}) error
}

func scanMachine(row scanTarget) (*Machine, error) {
	var machine Machine
	var aliasesJSON, logsJSON string

	err := row.Scan(
		&machine.ID, &machine.Name, &machine.Brand, &aliasesJSON, &logsJSON,
		&machine.Current.Status, &machine.Current.Client, &machine.Current.Fabric,
		&machine.Current.Remaining,
		&machine.CreatedAt, &machine.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan machine: %w", err)
	}

	if err := json.Unmarshal([]byte(aliasesJSON), &machine.Aliases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aliases for machine %s: %w", machine.ID, err)
	}
	if err := json.Unmarshal([]byte(logsJSON), &machine.Logs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal logs for machine %s: %w", machine.ID, err)
	}

	sort.Slice(machine.Logs, func(i, j int) bool {
		return machine.Logs[i].Date < machine.Logs[j].Date
	})

	return &machine, nil
}

// CreateMachine создает новый станок
func (db *PlantDB) CreateMachine(id, name, brand string, aliases []string) (*Machine, error) {
	if aliases == nil {
		aliases = []string{}
	}
	aliasesJSON, err := json.Marshal(aliases)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aliases: %w", err)
	}

	query := `
		INSERT INTO machines (id, name, brand, aliases, logs, current_status)
		VALUES (?, ?, ?, ?, '[]', ?)
	`
	if _, err := db.conn.Exec(query, id, name, brand, string(aliasesJSON), StatusStopped); err != nil {
		return nil, fmt.Errorf("failed to create machine %s: %w", id, err)
	}

	return db.GetMachine(id)
}

// marshalLogs сериализует массив журналов для записи в документ станка
func marshalLogs(logs []DailyLog) (string, error) {
	if logs == nil {
		logs = []DailyLog{}
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Date < logs[j].Date
	})
	data, err := json.Marshal(logs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal logs: %w", err)
	}
	return string(data), nil
}

// OpReplaceMachineLogs формирует операцию замены массива журналов станка
func OpReplaceMachineLogs(machineID string, logs []DailyLog) (BatchOp, error) {
	logsJSON, err := marshalLogs(logs)
	if err != nil {
		return BatchOp{}, err
	}
	return BatchOp{
		Query: `UPDATE machines SET logs = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		Args:  []interface{}{logsJSON, machineID},
	}, nil
}

// OpUpdateMachineCurrentState формирует операцию обновления текущего состояния станка
func OpUpdateMachineCurrentState(machineID string, state MachineState) BatchOp {
	return BatchOp{
		Query: `UPDATE machines
			SET current_status = ?, current_client = ?, current_fabric = ?,
			    current_remaining = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
		Args: []interface{}{state.Status, state.Client, state.Fabric, state.Remaining, machineID},
	}
}

// UpsertLog вставляет или заменяет журнал за дату в массиве логов.
// Замена происходит по совпадению даты, иначе журнал добавляется.
func UpsertLog(logs []DailyLog, entry DailyLog) []DailyLog {
	for i := range logs {
		if logs[i].Date == entry.Date {
			logs[i] = entry
			return logs
		}
	}
	return append(logs, entry)
}
