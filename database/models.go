package database

import (
	"encoding/json"
	"time"
)

// Статусы станка. Помимо перечисленных значений журнал может содержать
// произвольный текст статуса, введенный оператором — он переносится как есть.
const (
	StatusWorking        = "working"
	StatusUnderOperation = "under_operation"
	StatusNoOrder        = "no_order"
	StatusOutOfService   = "out_of_service"
	StatusStopped        = "stopped"
	StatusOther          = "other"
)

// DateLayout формат календарной даты журналов (ISO, YYYY-MM-DD)
const DateLayout = "2006-01-02"

// DailyLog суточный журнал станка: одна запись на календарный день.
// Remaining (остаток к изготовлению) никогда не сохраняется отрицательным.
type DailyLog struct {
	Date       string  `json:"date"`
	Status     string  `json:"status"`
	Fabric     string  `json:"fabric"`
	Client     string  `json:"client"`
	Production float64 `json:"production"`
	Scrap      float64 `json:"scrap"`
	Remaining  float64 `json:"-"`
	Reason     string  `json:"reason,omitempty"`
}

// dailyLogJSON сериализованная форма журнала. Старые читатели знают только
// ключ remaining, новые — remainingMfg; оба поддерживаются исключительно
// на границе сериализации, ядро видит одно поле Remaining.
type dailyLogJSON struct {
	Date         string   `json:"date"`
	Status       string   `json:"status"`
	Fabric       string   `json:"fabric"`
	Client       string   `json:"client"`
	Production   float64  `json:"production"`
	Scrap        float64  `json:"scrap"`
	Remaining    *float64 `json:"remaining,omitempty"`
	RemainingMfg *float64 `json:"remainingMfg,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// MarshalJSON записывает остаток под обоими ключами для совместимости
func (l DailyLog) MarshalJSON() ([]byte, error) {
	remaining := l.Remaining
	if remaining < 0 {
		remaining = 0
	}
	return json.Marshal(dailyLogJSON{
		Date:         l.Date,
		Status:       l.Status,
		Fabric:       l.Fabric,
		Client:       l.Client,
		Production:   l.Production,
		Scrap:        l.Scrap,
		Remaining:    &remaining,
		RemainingMfg: &remaining,
		Reason:       l.Reason,
	})
}

// UnmarshalJSON принимает документы с любым из ключей remaining/remainingMfg,
// предпочитая канонический remainingMfg
func (l *DailyLog) UnmarshalJSON(data []byte) error {
	var raw dailyLogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	l.Date = raw.Date
	l.Status = raw.Status
	l.Fabric = raw.Fabric
	l.Client = raw.Client
	l.Production = raw.Production
	l.Scrap = raw.Scrap
	l.Reason = raw.Reason

	switch {
	case raw.RemainingMfg != nil:
		l.Remaining = *raw.RemainingMfg
	case raw.Remaining != nil:
		l.Remaining = *raw.Remaining
	default:
		l.Remaining = 0
	}
	if l.Remaining < 0 {
		l.Remaining = 0
	}

	return nil
}

// MachineState денормализованное текущее состояние станка
type MachineState struct {
	Status    string  `json:"status"`
	Client    string  `json:"client"`
	Fabric    string  `json:"fabric"`
	Remaining float64 `json:"remaining"`
}

// Machine станок с вложенным упорядоченным массивом суточных журналов
type Machine struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Brand     string       `json:"brand"`
	Aliases   []string     `json:"aliases,omitempty"`
	Logs      []DailyLog   `json:"logs"`
	Current   MachineState `json:"current"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// LogForDate возвращает журнал за указанную дату или nil
func (m *Machine) LogForDate(date string) *DailyLog {
	for i := range m.Logs {
		if m.Logs[i].Date == date {
			return &m.Logs[i]
		}
	}
	return nil
}

// PreviousLog возвращает журнал с наибольшей датой строго меньше указанной.
// Даты в формате ISO сравниваются лексикографически.
func (m *Machine) PreviousLog(date string) *DailyLog {
	var prev *DailyLog
	for i := range m.Logs {
		l := &m.Logs[i]
		if l.Date >= date {
			continue
		}
		if prev == nil || l.Date > prev.Date {
			prev = l
		}
	}
	return prev
}

// LatestLogDate возвращает наибольшую дату среди журналов станка
func (m *Machine) LatestLogDate() string {
	latest := ""
	for i := range m.Logs {
		if m.Logs[i].Date > latest {
			latest = m.Logs[i].Date
		}
	}
	return latest
}

// ProductionLog нормализованная суточная запись (строка production_logs).
// Поля журнала не встраиваются, чтобы id/machine_id не терялись
// из-за кастомной сериализации DailyLog.
type ProductionLog struct {
	ID         int       `json:"id"`
	MachineID  string    `json:"machine_id"`
	Date       string    `json:"date"`
	Status     string    `json:"status"`
	Fabric     string    `json:"fabric"`
	Client     string    `json:"client"`
	Production float64   `json:"production"`
	Scrap      float64   `json:"scrap"`
	Remaining  float64   `json:"remaining_mfg"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Fabric запись справочника тканей
type Fabric struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	CreatedAt time.Time `json:"created_at"`
}
