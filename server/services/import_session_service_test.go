package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"prodboard/database"
	apperrors "prodboard/server/errors"
)

func newTestSessionService(t *testing.T, db *database.PlantDB) *ImportSessionService {
	t.Helper()

	resolver := NewResolverService(db)
	fabrics := NewFabricService(db)
	reconciler := NewReconciliationService(50)
	commit := NewCommitService(db)

	return NewImportSessionService(db, resolver, fabrics, reconciler, commit)
}

// sessionWorkbook собирает книгу выгрузки в памяти: заголовок плюс строки
// [ткань, выработка, заказчик, брак, рабочий центр]
func sessionWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{"Tela", "Produccion", "Cliente", "Merma", "Centro"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func seedSessionMachine(t *testing.T, db *database.PlantDB, id, name string, logs ...database.DailyLog) {
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
}

func TestImportSession_FullFlow(t *testing.T) {
	db := newServiceTestDB(t)
	sessions := newTestSessionService(t, db)

	seedSessionMachine(t, db, "1", "Telar 01", database.DailyLog{
		Date: "2024-01-01", Status: database.StatusWorking,
		Client: "ACME", Fabric: "Denim", Remaining: 500,
	})

	workbook := sessionWorkbook(t, [][]interface{}{
		{"Denim", "200", "ACME - Pedido 17", "10", "TEL-01"},
	})

	view, err := sessions.Open(workbook, "2024-01-02")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if view.RowCount != 1 {
		t.Fatalf("expected 1 row, got %d", view.RowCount)
	}
	// Ткань Denim отсутствует в справочнике
	if len(view.MissingFabrics) != 1 || view.MissingFabrics[0] != "Denim" {
		t.Fatalf("expected missing fabric Denim, got %+v", view.MissingFabrics)
	}
	// Метка TEL-01 не разрешена автоматически
	if len(view.Mappings) != 1 || view.Mappings[0].MachineID != "" {
		t.Fatalf("expected unresolved mapping, got %+v", view.Mappings)
	}

	// Оператор сопоставляет метку и создает ткань
	view, err = sessions.SaveMapping("TEL-01", "1")
	if err != nil {
		t.Fatalf("save mapping failed: %v", err)
	}
	if view.Mappings[0].MachineID != "1" {
		t.Fatalf("expected mapping applied to session, got %+v", view.Mappings)
	}

	view, err = sessions.CreateFabrics([]string{"Denim"})
	if err != nil {
		t.Fatalf("create fabrics failed: %v", err)
	}
	if len(view.MissingFabrics) != 0 {
		t.Fatalf("expected no missing fabrics, got %+v", view.MissingFabrics)
	}

	staged, err := sessions.Reconcile()
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(staged) != 1 {
		t.Fatalf("expected 1 staged row, got %d", len(staged))
	}
	if staged[0].ValidationStatus != ValidationSafe {
		t.Fatalf("expected SAFE, got %s (%s)", staged[0].ValidationStatus, staged[0].ValidationMessage)
	}
	if staged[0].Forecast.Remaining != 310 {
		t.Fatalf("expected forecast remaining 310, got %v", staged[0].Forecast.Remaining)
	}

	updated, err := sessions.Apply(map[string]bool{"1": true})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated machine, got %d", updated)
	}

	// Сессия закрыта после применения
	if _, err := sessions.Reconcile(); err == nil {
		t.Fatal("expected error reconciling after apply")
	}

	machine, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	entry := machine.LogForDate("2024-01-02")
	if entry == nil || entry.Remaining != 310 {
		t.Fatalf("expected committed log with remaining 310, got %+v", entry)
	}
}

func TestImportSession_ApplyRequiresReconcile(t *testing.T) {
	db := newServiceTestDB(t)
	sessions := newTestSessionService(t, db)

	seedSessionMachine(t, db, "1", "Telar 01")

	workbook := sessionWorkbook(t, [][]interface{}{
		{"Denim", "100", "ACME", "0", "1"},
	})
	if _, err := sessions.Open(workbook, "2024-01-02"); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	_, err := sessions.Apply(map[string]bool{"1": true})
	if err == nil {
		t.Fatal("expected error applying before reconcile")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
}

func TestImportSession_MappingEditInvalidatesStagedRows(t *testing.T) {
	db := newServiceTestDB(t)
	sessions := newTestSessionService(t, db)

	seedSessionMachine(t, db, "1", "Telar 01")
	seedSessionMachine(t, db, "2", "Telar 02")

	workbook := sessionWorkbook(t, [][]interface{}{
		{"Denim", "100", "ACME", "0", "Telar 01"},
	})
	if _, err := sessions.Open(workbook, "2024-01-02"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := sessions.Reconcile(); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	// Правка соответствия сбрасывает подготовленные строки
	if _, err := sessions.SaveMapping("Telar 01", "2"); err != nil {
		t.Fatalf("save mapping failed: %v", err)
	}
	if _, err := sessions.Apply(map[string]bool{"2": true}); err == nil {
		t.Fatal("expected error applying stale staged rows after mapping edit")
	}
}

func TestImportSession_CloseDiscardsSessionKeepsMappings(t *testing.T) {
	db := newServiceTestDB(t)
	sessions := newTestSessionService(t, db)

	seedSessionMachine(t, db, "1", "Telar 01")

	workbook := sessionWorkbook(t, [][]interface{}{
		{"Denim", "100", "ACME", "0", "TEL-01"},
	})
	if _, err := sessions.Open(workbook, "2024-01-02"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := sessions.SaveMapping("TEL-01", "1"); err != nil {
		t.Fatalf("save mapping failed: %v", err)
	}

	sessions.Close()

	if _, err := sessions.Reconcile(); err == nil {
		t.Fatal("expected error after close")
	}

	// Станок без журналов: закрытие не записало ничего
	machine, err := db.GetMachine("1")
	if err != nil {
		t.Fatalf("failed to reload machine: %v", err)
	}
	if len(machine.Logs) != 0 {
		t.Errorf("close must not write logs, got %d", len(machine.Logs))
	}

	// Правки соответствий переживают закрытие
	mappings, err := db.GetWorkCenterMappings()
	if err != nil {
		t.Fatalf("failed to get mappings: %v", err)
	}
	if mappings["TEL-01"] != "1" {
		t.Errorf("mapping edit must survive close, got %+v", mappings)
	}
}

func TestImportSession_OpenReplacesStaleSession(t *testing.T) {
	db := newServiceTestDB(t)
	sessions := newTestSessionService(t, db)

	seedSessionMachine(t, db, "1", "Telar 01")

	first := sessionWorkbook(t, [][]interface{}{
		{"Denim", "100", "ACME", "0", "1"},
	})
	firstView, err := sessions.Open(first, "2024-01-02")
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}

	second := sessionWorkbook(t, [][]interface{}{
		{"Denim", "100", "ACME", "0", "1"},
		{"Jersey", "50", "OTRO", "0", "1"},
	})
	secondView, err := sessions.Open(second, "2024-01-03")
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}

	if secondView.SessionID == firstView.SessionID {
		t.Error("new session must get a new id")
	}
	if secondView.RowCount != 2 || secondView.TargetDate != "2024-01-03" {
		t.Errorf("expected replaced session state, got %+v", secondView)
	}
}

func TestImportSession_OpenRejectsBadDate(t *testing.T) {
	db := newServiceTestDB(t)
	sessions := newTestSessionService(t, db)

	workbook := sessionWorkbook(t, [][]interface{}{
		{"Denim", "100", "ACME", "0", "1"},
	})
	if _, err := sessions.Open(workbook, "02.01.2024"); err == nil {
		t.Fatal("expected error for malformed target date")
	}
}

func TestImportSession_NoActiveSession(t *testing.T) {
	db := newServiceTestDB(t)
	sessions := newTestSessionService(t, db)

	if _, err := sessions.SaveMapping("TEL-01", "1"); err == nil {
		t.Fatal("expected error saving mapping without session")
	}
	if _, err := sessions.Reconcile(); err == nil {
		t.Fatal("expected error reconciling without session")
	}
	if _, err := sessions.Apply(nil); err == nil {
		t.Fatal("expected error applying without session")
	}
}
