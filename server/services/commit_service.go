package services

import (
	"fmt"
	"log"

	"prodboard/database"
)

// CommitService применяет выбранные оператором строки сверки к хранилищу
type CommitService struct {
	db *database.PlantDB
}

// NewCommitService создает новый сервис применения сверки
func NewCommitService(db *database.PlantDB) *CommitService {
	return &CommitService{db: db}
}

// Apply записывает строки с Selected = true: журнал вставляется или заменяет
// существующий за дату во вложенном массиве станка, при необходимости
// обновляется денормализованное текущее состояние, и параллельно upsert-ится
// нормализованная суточная запись. Все записи группируются в атомарные
// пакеты не больше database.MaxBatchOps и отправляются последовательно.
// Возвращает количество обновленных станков.
func (s *CommitService) Apply(machines []*database.Machine, staged []*StagedRow, targetDate string) (int, error) {
	machinesByID := make(map[string]*database.Machine, len(machines))
	for _, machine := range machines {
		machinesByID[machine.ID] = machine
	}

	batch := database.NewWriteBatch()
	updated := 0

	for _, row := range staged {
		if !row.Selected {
			continue
		}

		machine, ok := machinesByID[row.MachineID]
		if !ok {
			return 0, fmt.Errorf("staged row references unknown machine %q", row.MachineID)
		}

		entry := buildDailyLog(row, targetDate)

		// Копия массива журналов: общий срез станка не мутируется,
		// чтобы при ошибке пакета состояние сессии осталось нетронутым
		logs := make([]database.DailyLog, len(machine.Logs))
		copy(logs, machine.Logs)
		logs = database.UpsertLog(logs, entry)

		logsOp, err := database.OpReplaceMachineLogs(machine.ID, logs)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare log write for machine %s: %w", machine.ID, err)
		}
		batch.Add(logsOp)

		// Если целевая дата — самая свежая у станка, обновляем
		// денормализованное текущее состояние, чтобы выборки по
		// последнему состоянию не пересканировали историю
		if targetDate >= machine.LatestLogDate() {
			batch.Add(database.OpUpdateMachineCurrentState(machine.ID, database.MachineState{
				Status:    entry.Status,
				Client:    entry.Client,
				Fabric:    entry.Fabric,
				Remaining: entry.Remaining,
			}))
		}

		batch.Add(database.OpUpsertProductionLog(machine.ID, entry))
		updated++
	}

	if updated == 0 {
		return 0, nil
	}

	if err := s.db.SubmitBatches(batch); err != nil {
		// Уже закоммиченные пакеты не откатываются; оператор должен
		// перезапустить сверку, чтобы увидеть фактическое состояние
		return 0, fmt.Errorf("commit failed, re-run reconciliation before retrying: %w", err)
	}

	log.Printf("[Commit] Applied %s for %d machines (%d ops)", targetDate, updated, batch.Len())

	return updated, nil
}

// buildDailyLog строит журнал из строки сверки. Для строк без данных
// выгрузки клиент и ткань переносятся из предыдущего состояния.
func buildDailyLog(row *StagedRow, targetDate string) database.DailyLog {
	client := row.Import.Client
	fabric := row.Import.Fabric
	if !row.Import.HasImportData {
		client = row.Previous.Client
		fabric = row.Previous.Fabric
	}

	remaining := row.Forecast.Remaining
	if remaining < 0 {
		remaining = 0
	}

	return database.DailyLog{
		Date:       targetDate,
		Status:     row.Forecast.Status,
		Fabric:     fabric,
		Client:     client,
		Production: row.Import.Production,
		Scrap:      row.Import.Scrap,
		Remaining:  remaining,
	}
}
