package services

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"prodboard/database"
	"prodboard/importer"
	"prodboard/normalization"
)

// FabricService ведет справочник тканей и шлюз существования тканей
// перед сверкой
type FabricService struct {
	db *database.PlantDB
}

// NewFabricService создает новый сервис справочника тканей
func NewFabricService(db *database.PlantDB) *FabricService {
	return &FabricService{db: db}
}

// MissingFabrics возвращает отсортированный набор тканей выгрузки,
// отсутствующих в справочнике. По умолчанию все предлагаются к созданию.
func (s *FabricService) MissingFabrics(rows []importer.ImportRow, known []*database.Fabric) []string {
	knownSet := make(map[string]bool, len(known))
	for _, fabric := range known {
		knownSet[strings.ToLower(fabric.Name)] = true
	}

	seen := make(map[string]bool)
	var missing []string
	for _, row := range rows {
		name := strings.TrimSpace(row.Fabric)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if knownSet[key] || seen[key] {
			continue
		}
		seen[key] = true
		missing = append(missing, name)
	}

	sort.Strings(missing)
	return missing
}

// CreateFabrics создает одобренные оператором ткани, выводя короткие имена.
// Шаг строго предшествует сверке: ее поиск коротких имен должен видеть
// только что созданные ткани.
func (s *FabricService) CreateFabrics(names []string) error {
	for _, name := range names {
		shortName := normalization.ShortFabricName(name)
		if err := s.db.CreateFabric(name, shortName); err != nil {
			return fmt.Errorf("failed to create fabric %q: %w", name, err)
		}
		log.Printf("[Fabrics] Created fabric %q (short name %q)", name, shortName)
	}
	return nil
}

// ShortNameLookup строит справочник имя ткани -> короткое имя
func (s *FabricService) ShortNameLookup(fabrics []*database.Fabric) map[string]string {
	lookup := make(map[string]string, len(fabrics))
	for _, fabric := range fabrics {
		lookup[fabric.Name] = fabric.ShortName
	}
	return lookup
}
