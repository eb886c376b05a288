package services

import (
	"testing"

	"prodboard/database"
)

func seedCommitMachine(t *testing.T, db *database.PlantDB, id, name string, logs []database.DailyLog) *database.Machine {
	t.Helper()

	if _, err := db.CreateMachine(id, name, "", nil); err != nil {
		t.Fatalf("failed to create machine: %v", err)
	}
	if len(logs) > 0 {
		op, err := database.OpReplaceMachineLogs(id, logs)
		if err != nil {
			t.Fatalf("failed to build logs op: %v", err)
		}
		batch := database.NewWriteBatch()
		batch.Add(op)
		if err := db.SubmitBatches(batch); err != nil {
			t.Fatalf("failed to seed logs: %v", err)
		}
	}

	machine, err := db.GetMachine(id)
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	return machine
}

func stagedRowForCommit(machineID string) *StagedRow {
	return &StagedRow{
		MachineID: machineID,
		Previous: PreviousSnapshot{
			Date: "2024-01-01", Status: database.StatusWorking,
			Client: "ACME", Fabric: "DENIM", Remaining: 500,
		},
		Import: ImportSnapshot{
			HasImportData: true,
			Production:    200,
			Scrap:         10,
			Client:        "ACME",
			Fabric:        "DENIM",
		},
		Forecast:         Forecast{Remaining: 310, Status: database.StatusWorking},
		ValidationStatus: ValidationSafe,
		Selected:         true,
	}
}

func TestCommitApply_WritesSelectedRows(t *testing.T) {
	db := newServiceTestDB(t)
	commit := NewCommitService(db)

	machine := seedCommitMachine(t, db, "1", "Telar 01", []database.DailyLog{
		{Date: "2024-01-01", Status: database.StatusWorking, Client: "ACME", Fabric: "DENIM", Remaining: 500},
	})

	updated, err := commit.Apply([]*database.Machine{machine}, []*StagedRow{stagedRowForCommit("1")}, "2024-01-02")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated machine, got %d", updated)
	}

	reloaded, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	if len(reloaded.Logs) != 2 {
		t.Fatalf("expected 2 logs after apply, got %d", len(reloaded.Logs))
	}
	entry := reloaded.LogForDate("2024-01-02")
	if entry == nil {
		t.Fatal("expected log for target date")
	}
	if entry.Production != 200 || entry.Scrap != 10 || entry.Remaining != 310 {
		t.Errorf("unexpected log values: %+v", entry)
	}
	// Запись за более раннюю дату не тронута
	if prev := reloaded.LogForDate("2024-01-01"); prev == nil || prev.Remaining != 500 {
		t.Errorf("earlier log must stay intact, got %+v", prev)
	}

	// Денормализованное текущее состояние обновлено
	if reloaded.Current.Status != database.StatusWorking || reloaded.Current.Remaining != 310 {
		t.Errorf("unexpected current state: %+v", reloaded.Current)
	}

	// Нормализованная суточная запись продублирована
	logs, err := db.GetProductionLogs("1", "", "")
	if err != nil {
		t.Fatalf("failed to get production logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Date != "2024-01-02" {
		t.Fatalf("expected 1 normalized log for 2024-01-02, got %+v", logs)
	}
}

func TestCommitApply_ReapplyOverwritesWithoutDuplicates(t *testing.T) {
	db := newServiceTestDB(t)
	commit := NewCommitService(db)

	machine := seedCommitMachine(t, db, "1", "Telar 01", []database.DailyLog{
		{Date: "2024-01-01", Status: database.StatusWorking, Client: "ACME", Fabric: "DENIM", Remaining: 500},
	})

	if _, err := commit.Apply([]*database.Machine{machine}, []*StagedRow{stagedRowForCommit("1")}, "2024-01-02"); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}

	// Повторное применение за ту же дату со скорректированными числами
	machine, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	row := stagedRowForCommit("1")
	row.Import.Production = 250
	row.Forecast.Remaining = 260

	if _, err := commit.Apply([]*database.Machine{machine}, []*StagedRow{row}, "2024-01-02"); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}

	reloaded, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	if len(reloaded.Logs) != 2 {
		t.Fatalf("re-apply must not duplicate logs, got %d", len(reloaded.Logs))
	}
	entry := reloaded.LogForDate("2024-01-02")
	if entry.Production != 250 || entry.Remaining != 260 {
		t.Errorf("expected overwritten values 250/260, got %+v", entry)
	}

	logs, err := db.GetProductionLogs("1", "", "")
	if err != nil {
		t.Fatalf("failed to get production logs: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("normalized log must be overwritten, not duplicated: %d", len(logs))
	}
}

func TestCommitApply_BackfillDoesNotTouchCurrentState(t *testing.T) {
	db := newServiceTestDB(t)
	commit := NewCommitService(db)

	machine := seedCommitMachine(t, db, "1", "Telar 01", []database.DailyLog{
		{Date: "2024-01-05", Status: database.StatusWorking, Client: "ACME", Fabric: "DENIM", Remaining: 100},
	})

	// Станок уже имеет более свежий журнал: обновляем текущее состояние вручную
	batch := database.NewWriteBatch()
	batch.Add(database.OpUpdateMachineCurrentState("1", database.MachineState{
		Status: database.StatusWorking, Client: "ACME", Fabric: "DENIM", Remaining: 100,
	}))
	if err := db.SubmitBatches(batch); err != nil {
		t.Fatalf("failed to seed current state: %v", err)
	}

	machine, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}

	// Запись задним числом за 2024-01-02
	row := stagedRowForCommit("1")
	row.Forecast.Remaining = 310

	if _, err := commit.Apply([]*database.Machine{machine}, []*StagedRow{row}, "2024-01-02"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	reloaded, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	// Текущее состояние отражает самый свежий журнал, не задним числом записанный
	if reloaded.Current.Remaining != 100 {
		t.Errorf("backfill must not touch current state, got %+v", reloaded.Current)
	}
	if reloaded.LogForDate("2024-01-02") == nil {
		t.Error("backfilled log must exist")
	}
}

func TestCommitApply_SkipsUnselectedRows(t *testing.T) {
	db := newServiceTestDB(t)
	commit := NewCommitService(db)

	machine := seedCommitMachine(t, db, "1", "Telar 01", nil)

	row := stagedRowForCommit("1")
	row.Selected = false

	updated, err := commit.Apply([]*database.Machine{machine}, []*StagedRow{row}, "2024-01-02")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected 0 updated machines, got %d", updated)
	}

	reloaded, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	if len(reloaded.Logs) != 0 {
		t.Errorf("unselected rows must not write logs, got %d", len(reloaded.Logs))
	}
}

func TestCommitApply_NoImportRowCarriesPreviousContext(t *testing.T) {
	db := newServiceTestDB(t)
	commit := NewCommitService(db)

	machine := seedCommitMachine(t, db, "1", "Telar 01", []database.DailyLog{
		{Date: "2024-01-01", Status: database.StatusWorking, Client: "ACME", Fabric: "DENIM", Remaining: 500},
	})

	row := &StagedRow{
		MachineID: "1",
		Previous: PreviousSnapshot{
			Date: "2024-01-01", Status: database.StatusWorking,
			Client: "ACME", Fabric: "DENIM", Remaining: 500,
		},
		Import:   ImportSnapshot{HasImportData: false},
		Forecast: Forecast{Remaining: 500, Status: database.StatusWorking},
		Selected: true,
	}

	if _, err := commit.Apply([]*database.Machine{machine}, []*StagedRow{row}, "2024-01-02"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	reloaded, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	entry := reloaded.LogForDate("2024-01-02")
	if entry == nil {
		t.Fatal("expected log for target date")
	}
	if entry.Client != "ACME" || entry.Fabric != "DENIM" {
		t.Errorf("row without import data must carry previous client/fabric, got %+v", entry)
	}
	if entry.Production != 0 || entry.Scrap != 0 {
		t.Errorf("expected zero quantities, got %+v", entry)
	}
}

func TestCommitApply_UnknownMachine(t *testing.T) {
	db := newServiceTestDB(t)
	commit := NewCommitService(db)

	if _, err := commit.Apply(nil, []*StagedRow{stagedRowForCommit("ghost")}, "2024-01-02"); err == nil {
		t.Fatal("expected error for staged row referencing unknown machine")
	}
}
