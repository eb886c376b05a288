package services

import (
	"fmt"
	"sort"
	"time"

	"prodboard/database"
	"prodboard/importer"
)

// ValidationStatus итог проверки строки сверки
type ValidationStatus string

const (
	ValidationSafe    ValidationStatus = "SAFE"
	ValidationWarning ValidationStatus = "WARNING"
	ValidationError   ValidationStatus = "ERROR"
)

// validationRank порядок эскалации: статус никогда не понижается
var validationRank = map[ValidationStatus]int{
	ValidationSafe:    0,
	ValidationWarning: 1,
	ValidationError:   2,
}

// PreviousSnapshot состояние станка на последний журнал строго до целевой даты
type PreviousSnapshot struct {
	Date      string  `json:"date"`
	Status    string  `json:"status"`
	Client    string  `json:"client"`
	Fabric    string  `json:"fabric"`
	Remaining float64 `json:"remaining"`
	// IsStale: предыдущий журнал есть, но датирован не ровно одним днем
	// раньше целевой даты — станок журналировался не ежедневно
	IsStale bool `json:"is_stale"`
}

// SplitRowInfo строка выгрузки в составе конфликта нескольких строк на один станок
type SplitRowInfo struct {
	WorkCenter string  `json:"work_center"`
	Client     string  `json:"client"`
	Fabric     string  `json:"fabric"`
	Production float64 `json:"production"`
	Scrap      float64 `json:"scrap"`
}

// ImportSnapshot данные выгрузки, отнесенные к станку
type ImportSnapshot struct {
	HasImportData bool     `json:"has_import_data"`
	Production    float64  `json:"production"`
	Scrap         float64  `json:"scrap"`
	Client        string   `json:"client"`
	Fabric        string   `json:"fabric"`
	WorkCenters   []string `json:"work_centers,omitempty"`
	// IsSplit: на станок сопоставлено больше одной строки — неразрешенный
	// конфликт; для отображения берутся значения первой строки, все строки
	// сохраняются в SplitRows для разбора оператором. Автоматического
	// слияния нет — это решение оператор принимает правкой соответствий.
	IsSplit   bool           `json:"is_split"`
	SplitRows []SplitRowInfo `json:"split_rows,omitempty"`
}

// Forecast спрогнозированное новое состояние станка
type Forecast struct {
	Remaining float64 `json:"remaining"`
	Status    string  `json:"status"`
}

// StagedRow подготовленная строка сверки. Создается заново на каждый прогон
// импорта; при закрытии окна импорта без применения отбрасывается; в записи
// DailyLog превращаются только строки с Selected = true.
type StagedRow struct {
	MachineID   string `json:"machine_id"`
	MachineName string `json:"machine_name"`
	Brand       string `json:"brand"`

	Previous PreviousSnapshot `json:"previous"`
	Import   ImportSnapshot   `json:"import"`
	Forecast Forecast         `json:"forecast"`

	ValidationStatus  ValidationStatus `json:"validation_status"`
	ValidationMessage string           `json:"validation_message,omitempty"`

	Selected bool `json:"selected"`
}

// escalate повышает статус проверки и дописывает сообщение.
// Последующие проверки дополняют, а не заменяют сообщение.
func (r *StagedRow) escalate(status ValidationStatus, message string) {
	if validationRank[status] > validationRank[r.ValidationStatus] {
		r.ValidationStatus = status
	}
	if message == "" {
		return
	}
	if r.ValidationMessage != "" {
		r.ValidationMessage += "; " + message
	} else {
		r.ValidationMessage = message
	}
}

// ReconciliationService вычисляет строки сверки суточной выгрузки
type ReconciliationService struct {
	// Допуск превышения выработки над остатком. Унаследованная константа
	// (по умолчанию 50), настраивается конфигом.
	productionSlack float64
}

// NewReconciliationService создает движок сверки
func NewReconciliationService(productionSlack float64) *ReconciliationService {
	return &ReconciliationService{productionSlack: productionSlack}
}

// Reconcile строит по одной строке сверки на каждый станок, включая станки,
// отсутствующие в выгрузке. resolved — соответствие метки рабочего центра
// идентификатору станка (пустая строка = не сопоставлено), fabricShort —
// справочник коротких имен тканей.
func (s *ReconciliationService) Reconcile(
	machines []*database.Machine,
	rows []importer.ImportRow,
	resolved map[string]string,
	fabricShort map[string]string,
	targetDate string,
) ([]*StagedRow, error) {
	target, err := time.Parse(database.DateLayout, targetDate)
	if err != nil {
		return nil, fmt.Errorf("invalid target date %q: %w", targetDate, err)
	}
	dayBefore := target.AddDate(0, 0, -1).Format(database.DateLayout)

	// Группируем строки выгрузки по станку; порядок строк сохраняется
	rowsByMachine := make(map[string][]importer.ImportRow)
	for _, row := range rows {
		machineID := resolved[row.WorkCenter]
		if machineID == "" {
			continue
		}
		rowsByMachine[machineID] = append(rowsByMachine[machineID], row)
	}

	staged := make([]*StagedRow, 0, len(machines))
	for _, machine := range machines {
		row := s.reconcileMachine(machine, rowsByMachine[machine.ID], fabricShort, targetDate, dayBefore)
		staged = append(staged, row)
	}

	// Все строки с замечаниями — первыми; внутри группы статуса порядок
	// по имени станка сохраняется (станки уже отсортированы по имени)
	sort.SliceStable(staged, func(i, j int) bool {
		return validationRank[staged[i].ValidationStatus] > validationRank[staged[j].ValidationStatus]
	})

	return staged, nil
}

// reconcileMachine строит строку сверки для одного станка
func (s *ReconciliationService) reconcileMachine(
	machine *database.Machine,
	matched []importer.ImportRow,
	fabricShort map[string]string,
	targetDate, dayBefore string,
) *StagedRow {
	row := &StagedRow{
		MachineID:        machine.ID,
		MachineName:      machine.Name,
		Brand:            machine.Brand,
		ValidationStatus: ValidationSafe,
	}

	// Предыдущее состояние: журнал с наибольшей датой строго до целевой
	prev := machine.PreviousLog(targetDate)
	if prev != nil {
		row.Previous = PreviousSnapshot{
			Date:      prev.Date,
			Status:    prev.Status,
			Client:    prev.Client,
			Fabric:    prev.Fabric,
			Remaining: prev.Remaining,
			IsStale:   prev.Date != dayBefore,
		}
	} else {
		row.Previous = PreviousSnapshot{Status: database.StatusStopped}
	}

	// Данные выгрузки
	if len(matched) > 0 {
		row.Import.HasImportData = true
		for _, m := range matched {
			row.Import.Production += m.Production
			row.Import.Scrap += m.Scrap
			row.Import.WorkCenters = append(row.Import.WorkCenters, m.WorkCenter)
		}

		// Для отображения берутся значения первой строки
		first := matched[0]
		row.Import.Client = first.Client
		row.Import.Fabric = shortFabric(fabricShort, first.Fabric)

		if len(matched) > 1 {
			row.Import.IsSplit = true
			for _, m := range matched {
				row.Import.SplitRows = append(row.Import.SplitRows, SplitRowInfo{
					WorkCenter: m.WorkCenter,
					Client:     m.Client,
					Fabric:     shortFabric(fabricShort, m.Fabric),
					Production: m.Production,
					Scrap:      m.Scrap,
				})
			}
		}
	}

	// Прогноз: чистая выработка и новый остаток никогда не отрицательны
	net := row.Import.Production - row.Import.Scrap
	if net < 0 {
		net = 0
	}
	newRemaining := row.Previous.Remaining - net
	if newRemaining < 0 {
		newRemaining = 0
	}
	row.Forecast.Remaining = newRemaining

	switch {
	case row.Import.HasImportData && row.Import.Production > 0:
		row.Forecast.Status = database.StatusWorking
	case row.Import.HasImportData && row.Previous.Status == database.StatusWorking:
		row.Forecast.Status = database.StatusStopped
	default:
		row.Forecast.Status = row.Previous.Status
	}

	// Проверки применяются накопительно, статус только эскалирует
	if !row.Import.HasImportData && row.Previous.Status == database.StatusWorking {
		row.escalate(ValidationWarning, "станок отсутствует в выгрузке, хотя ранее работал")
	}

	if row.Import.HasImportData && prev != nil &&
		row.Import.Client != row.Previous.Client && row.Previous.Remaining > 0 {
		row.escalate(ValidationWarning, fmt.Sprintf(
			"смена клиента (%s -> %s) при неизрасходованном остатке %.0f",
			row.Previous.Client, row.Import.Client, row.Previous.Remaining))
	}

	if row.Previous.IsStale {
		row.escalate(ValidationWarning, fmt.Sprintf(
			"журнал велся не ежедневно: последняя запись от %s", row.Previous.Date))
	}

	if machine.LogForDate(targetDate) != nil {
		row.escalate(ValidationWarning, fmt.Sprintf(
			"журнал за %s уже существует и будет перезаписан", targetDate))
	}

	if row.Previous.Remaining > 0 && net > row.Previous.Remaining+s.productionSlack {
		row.escalate(ValidationWarning, fmt.Sprintf(
			"выработка %.0f неправдоподобно превышает остаток %.0f",
			net, row.Previous.Remaining))
	}

	if row.Import.IsSplit {
		row.escalate(ValidationError, fmt.Sprintf(
			"на станок сопоставлено %d строк выгрузки — конфликт требует правки соответствий",
			len(row.Import.SplitRows)))
	}

	// По умолчанию к применению предлагаются строки с данными выгрузки
	row.Selected = row.Import.HasImportData

	return row
}

// shortFabric возвращает короткое имя ткани из справочника либо сырое имя
func shortFabric(fabricShort map[string]string, name string) string {
	if short, ok := fabricShort[name]; ok && short != "" {
		return short
	}
	return name
}
