package services

import (
	"prodboard/database"
	apperrors "prodboard/server/errors"
)

// DashboardService сервис сводной статистики для дашборда
type DashboardService struct {
	db *database.PlantDB
}

// NewDashboardService создает новый сервис дашборда
func NewDashboardService(db *database.PlantDB) *DashboardService {
	return &DashboardService{db: db}
}

// GetStats возвращает сводку по парку станков: количество по статусам,
// суммарный остаток к изготовлению и дату последнего импорта
func (s *DashboardService) GetStats() (map[string]interface{}, error) {
	machines, err := s.db.GetAllMachines()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось получить список станков", err)
	}

	byStatus := make(map[string]int)
	totalRemaining := 0.0
	for _, machine := range machines {
		byStatus[machine.Current.Status]++
		totalRemaining += machine.Current.Remaining
	}

	lastImport, err := s.db.GetLastImportDate()
	if err != nil {
		return nil, apperrors.NewInternalError("не удалось получить дату последнего импорта", err)
	}

	return map[string]interface{}{
		"total_machines":   len(machines),
		"by_status":        byStatus,
		"total_remaining":  totalRemaining,
		"last_import_date": lastImport,
	}, nil
}
