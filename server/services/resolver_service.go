package services

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"prodboard/database"
	"prodboard/importer"
)

// ResolverService сопоставляет метки рабочих центров из выгрузки
// с каноническими станками
type ResolverService struct {
	db *database.PlantDB
}

// NewResolverService создает новый сервис сопоставления рабочих центров
func NewResolverService(db *database.PlantDB) *ResolverService {
	return &ResolverService{db: db}
}

// ResolveWorkCenter разрешает метку рабочего центра в идентификатор станка.
// Приоритет: сохраненное соответствие (правка оператора всегда побеждает,
// даже если выглядит семантически неверной) -> точное сопоставление без
// учета регистра по имени, числовому идентификатору или историческому
// псевдониму -> не сопоставлено (пустая строка).
func (s *ResolverService) ResolveWorkCenter(label string, machines []*database.Machine, mappings map[string]string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}

	if machineID, ok := mappings[label]; ok {
		return machineID
	}

	for _, machine := range machines {
		if machineMatchesLabel(machine, label) {
			return machine.ID
		}
	}

	return ""
}

// machineMatchesLabel проверяет точное совпадение метки со станком
func machineMatchesLabel(machine *database.Machine, label string) bool {
	if strings.EqualFold(machine.Name, label) || strings.EqualFold(machine.ID, label) {
		return true
	}

	// Числовые идентификаторы сравниваются по значению ("07" == "7")
	if labelNum, err := strconv.Atoi(label); err == nil {
		if idNum, err := strconv.Atoi(machine.ID); err == nil && idNum == labelNum {
			return true
		}
	}

	for _, alias := range machine.Aliases {
		if strings.EqualFold(alias, label) {
			return true
		}
	}

	return false
}

// ResolveAll разрешает все различные метки рабочих центров выгрузки разом.
// Возвращает соответствие метка -> идентификатор станка (пустая строка для
// несопоставленных меток).
func (s *ResolverService) ResolveAll(rows []importer.ImportRow, machines []*database.Machine, mappings map[string]string) map[string]string {
	resolved := make(map[string]string)
	for _, row := range rows {
		if _, seen := resolved[row.WorkCenter]; seen {
			continue
		}
		resolved[row.WorkCenter] = s.ResolveWorkCenter(row.WorkCenter, machines, mappings)
	}
	return resolved
}

// MappingReview метка рабочего центра, вынесенная оператору на проверку.
// Разрешение — всегда предложение на проверку, не коммит: даже
// автоматически сопоставленные метки показываются до подтверждения.
type MappingReview struct {
	Label     string `json:"label"`
	MachineID string `json:"machine_id,omitempty"`
	// Ткани, встреченные под этой меткой — контекст для оператора
	Fabrics []string `json:"fabrics,omitempty"`
	// Подсказка по ближайшему имени станка для несопоставленных меток;
	// никогда не применяется автоматически
	Suggested string `json:"suggested_machine_id,omitempty"`
}

// ReviewMappings группирует каждую различную метку выгрузки с набором тканей
// под ней и результатом разрешения, чтобы оператор мог поправить
// соответствия до запуска сверки
func (s *ResolverService) ReviewMappings(rows []importer.ImportRow, machines []*database.Machine, mappings map[string]string) []MappingReview {
	fabricsByLabel := make(map[string]map[string]bool)
	var labels []string

	for _, row := range rows {
		if _, seen := fabricsByLabel[row.WorkCenter]; !seen {
			fabricsByLabel[row.WorkCenter] = make(map[string]bool)
			labels = append(labels, row.WorkCenter)
		}
		if row.Fabric != "" {
			fabricsByLabel[row.WorkCenter][row.Fabric] = true
		}
	}

	sort.Strings(labels)

	reviews := make([]MappingReview, 0, len(labels))
	for _, label := range labels {
		review := MappingReview{
			Label:     label,
			MachineID: s.ResolveWorkCenter(label, machines, mappings),
		}

		for fabric := range fabricsByLabel[label] {
			review.Fabrics = append(review.Fabrics, fabric)
		}
		sort.Strings(review.Fabrics)

		if review.MachineID == "" {
			review.Suggested = suggestMachine(label, machines)
		}

		reviews = append(reviews, review)
	}

	return reviews
}

// maxSuggestionDistance предел редакционного расстояния для подсказок
const maxSuggestionDistance = 3

// suggestMachine подбирает ближайший по Левенштейну станок для несопоставленной метки
func suggestMachine(label string, machines []*database.Machine) string {
	label = strings.ToLower(label)
	best := ""
	bestDistance := maxSuggestionDistance + 1

	for _, machine := range machines {
		distance := levenshtein.ComputeDistance(label, strings.ToLower(machine.Name))
		if distance < bestDistance {
			bestDistance = distance
			best = machine.ID
		}
	}

	return best
}

// SaveMapping сохраняет правку оператора. Действует немедленно для текущего
// импорта и для всех последующих; автоматического "забывания" нет.
func (s *ResolverService) SaveMapping(label, machineID string) error {
	return s.db.SaveWorkCenterMapping(label, machineID)
}
