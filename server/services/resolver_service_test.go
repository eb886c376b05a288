package services

import (
	"testing"

	"prodboard/database"
	"prodboard/importer"
)

func newServiceTestDB(t *testing.T) *database.PlantDB {
	t.Helper()

	db, err := database.NewPlantDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create plant DB: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.InitTables(); err != nil {
		t.Fatalf("failed to init tables: %v", err)
	}

	return db
}

func TestResolveWorkCenter(t *testing.T) {
	resolver := NewResolverService(nil)

	machines := []*database.Machine{
		{ID: "1", Name: "Telar 01", Aliases: []string{"WC-01"}},
		{ID: "7", Name: "Telar 07"},
	}
	mappings := map[string]string{"TEL-X": "7"}

	tests := []struct {
		name     string
		label    string
		expected string
	}{
		{"saved mapping wins", "TEL-X", "7"},
		{"exact name match", "Telar 01", "1"},
		{"case insensitive name", "telar 01", "1"},
		{"id match", "1", "1"},
		{"numeric equivalence with leading zero", "07", "7"},
		{"alias match", "wc-01", "1"},
		{"label with whitespace", "  Telar 07  ", "7"},
		{"unresolved", "Rama 3", ""},
		{"empty label", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.ResolveWorkCenter(tt.label, machines, mappings); got != tt.expected {
				t.Errorf("ResolveWorkCenter(%q) = %q, expected %q", tt.label, got, tt.expected)
			}
		})
	}
}

func TestResolveWorkCenter_MappingOverridesExactMatch(t *testing.T) {
	resolver := NewResolverService(nil)

	machines := []*database.Machine{
		{ID: "1", Name: "Telar 01"},
		{ID: "2", Name: "Telar 02"},
	}
	// Правка оператора побеждает даже точное совпадение имени
	mappings := map[string]string{"Telar 01": "2"}

	if got := resolver.ResolveWorkCenter("Telar 01", machines, mappings); got != "2" {
		t.Errorf("saved mapping must override exact name match, got %q", got)
	}
}

func TestResolveAll(t *testing.T) {
	resolver := NewResolverService(nil)

	machines := []*database.Machine{{ID: "1", Name: "Telar 01"}}
	rows := []importer.ImportRow{
		{WorkCenter: "Telar 01"},
		{WorkCenter: "Telar 01"}, // дубликат метки разрешается один раз
		{WorkCenter: "Rama 3"},
	}

	resolved := resolver.ResolveAll(rows, machines, nil)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 distinct labels, got %d", len(resolved))
	}
	if resolved["Telar 01"] != "1" {
		t.Errorf("expected Telar 01 -> 1, got %q", resolved["Telar 01"])
	}
	if resolved["Rama 3"] != "" {
		t.Errorf("expected Rama 3 unresolved, got %q", resolved["Rama 3"])
	}
}

func TestReviewMappings(t *testing.T) {
	resolver := NewResolverService(nil)

	machines := []*database.Machine{
		{ID: "1", Name: "Telar 01"},
		{ID: "2", Name: "Telar 02"},
	}
	rows := []importer.ImportRow{
		{WorkCenter: "Telar 01", Fabric: "Denim"},
		{WorkCenter: "Telar 01", Fabric: "Jersey"},
		{WorkCenter: "Telar 01", Fabric: "Denim"},
		{WorkCenter: "Telar 0X", Fabric: "Gabardina"},
	}

	reviews := resolver.ReviewMappings(rows, machines, nil)
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}

	// Метки отсортированы
	first := reviews[0]
	if first.Label != "Telar 01" || first.MachineID != "1" {
		t.Errorf("unexpected first review: %+v", first)
	}
	if len(first.Fabrics) != 2 || first.Fabrics[0] != "Denim" || first.Fabrics[1] != "Jersey" {
		t.Errorf("expected deduplicated sorted fabrics, got %+v", first.Fabrics)
	}
	if first.Suggested != "" {
		t.Errorf("resolved label must not carry a suggestion, got %q", first.Suggested)
	}

	second := reviews[1]
	if second.Label != "Telar 0X" || second.MachineID != "" {
		t.Errorf("unexpected second review: %+v", second)
	}
	// Близкая метка получает подсказку по Левенштейну
	if second.Suggested != "1" {
		t.Errorf("expected suggestion 1 for Telar 0X, got %q", second.Suggested)
	}
}

func TestSuggestMachine_DistanceCutoff(t *testing.T) {
	machines := []*database.Machine{
		{ID: "1", Name: "Telar 01"},
	}

	if got := suggestMachine("Telar 02", machines); got != "1" {
		t.Errorf("expected close label to suggest 1, got %q", got)
	}
	if got := suggestMachine("Caldera principal", machines); got != "" {
		t.Errorf("distant label must not get a suggestion, got %q", got)
	}
}

func TestResolverService_SaveMappingPersists(t *testing.T) {
	db := newServiceTestDB(t)
	resolver := NewResolverService(db)

	if err := resolver.SaveMapping("TEL-01", "1"); err != nil {
		t.Fatalf("failed to save mapping: %v", err)
	}

	mappings, err := db.GetWorkCenterMappings()
	if err != nil {
		t.Fatalf("failed to get mappings: %v", err)
	}
	if mappings["TEL-01"] != "1" {
		t.Errorf("expected persisted mapping TEL-01 -> 1, got %q", mappings["TEL-01"])
	}
}
