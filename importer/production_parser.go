// Package importer разбирает внешние книги Excel с суточными показателями
// производства по рабочим центрам.
package importer

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"prodboard/normalization"
)

// Позиционные колонки листа выгрузки
const (
	colFabric     = 0 // наименование ткани
	colProduction = 1 // произведенное количество
	colCustomer   = 2 // строка заказчика
	colScrap      = 3 // брак
	colWorkCenter = 4 // идентификатор рабочего центра
)

// minColumns минимум колонок в строке данных
const minColumns = 5

// ImportRow одна разобранная строка выгрузки
type ImportRow struct {
	Fabric      string  `json:"fabric"`
	Production  float64 `json:"production"`
	RawCustomer string  `json:"raw_customer"`
	Client      string  `json:"client"`
	Scrap       float64 `json:"scrap"`
	WorkCenter  string  `json:"work_center"`
}

// ParseProductionWorkbook разбирает первый лист книги: строка 0 — заголовок
// и отбрасывается; строки без рабочего центра пропускаются целиком, так как
// без него строку невозможно сверить.
func ParseProductionWorkbook(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook is too short, expected header row and at least one data row")
	}

	var records []ImportRow
	skipped := 0

	for i := 1; i < len(rows); i++ {
		row := rows[i]

		workCenter := cellValue(row, colWorkCenter)
		if workCenter == "" {
			skipped++
			continue
		}

		fabric := cellValue(row, colFabric)
		rawCustomer := cellValue(row, colCustomer)

		record := ImportRow{
			Fabric:      fabric,
			Production:  parseQuantity(cellValue(row, colProduction)),
			RawCustomer: rawCustomer,
			Client:      normalization.CanonicalClientName(rawCustomer),
			Scrap:       parseQuantity(cellValue(row, colScrap)),
			WorkCenter:  workCenter,
		}

		records = append(records, record)
	}

	log.Printf("[Importer] Parsed %d production rows from sheet %q (%d rows skipped without work center)",
		len(records), sheetName, skipped)

	return records, nil
}

// cellValue безопасно извлекает значение колонки (короткие строки Excel
// не содержат хвостовых пустых ячеек)
func cellValue(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// parseQuantity разбирает количество; запятая принимается как десятичный
// разделитель, нечисловые значения считаются нулем
func parseQuantity(raw string) float64 {
	if raw == "" {
		return 0
	}

	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, ",", ".")

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}

	return value
}
