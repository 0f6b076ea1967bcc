package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet  = "Sheet1"
	maxSheetRunes = 31
)

// XLSXExporter renders datasets into workbooks with one sheet per group.
type XLSXExporter struct{}

// NewXLSXExporter constructs an xlsx exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes every group of the dataset to its own styled sheet.
func (e *XLSXExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	file := excelize.NewFile()
	defer file.Close() //nolint:errcheck

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	totalStyle, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create totals style: %w", err)
	}

	fallback := title
	if fallback == "" {
		fallback = "Register"
	}
	names, groups := data.Groups(fallback)
	used := make(map[string]struct{}, len(names))
	for _, name := range names {
		sheet := uniqueSheetName(name, used)
		if _, err := file.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", sheet, err)
		}
		if err := writeSheet(file, sheet, data, groups[name], headerStyle, totalStyle); err != nil {
			return nil, err
		}
	}

	if idx, _ := file.GetSheetIndex(defaultSheet); idx != -1 {
		if err := file.DeleteSheet(defaultSheet); err != nil {
			return nil, fmt.Errorf("delete default sheet: %w", err)
		}
	}
	file.SetActiveSheet(0)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(file *excelize.File, sheet string, data Dataset, rows []map[string]string, headerStyle, totalStyle int) error {
	headers := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		headers[i] = h
	}
	if err := file.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write headers on %q: %w", sheet, err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(data.Headers))
	if err := file.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style headers on %q: %w", sheet, err)
	}
	if err := file.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("set column width on %q: %w", sheet, err)
	}

	for i, row := range rows {
		if err := setRow(file, sheet, i+2, data.record(row)); err != nil {
			return err
		}
	}
	if len(data.Totals) > 0 {
		rowNum := len(rows) + 2
		if err := setRow(file, sheet, rowNum, data.record(data.Totals)); err != nil {
			return err
		}
		if err := file.SetCellStyle(sheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("%s%d", lastCol, rowNum), totalStyle); err != nil {
			return fmt.Errorf("style totals on %q: %w", sheet, err)
		}
	}
	return nil
}

func setRow(file *excelize.File, sheet string, rowNum int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	cell, _ := excelize.CoordinatesToCellName(1, rowNum)
	if err := file.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d on %q: %w", rowNum, sheet, err)
	}
	return nil
}

// uniqueSheetName trims names to the 31 rune limit, strips forbidden characters and de-duplicates.
func uniqueSheetName(name string, used map[string]struct{}) string {
	cleaned := strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")").Replace(name)
	if strings.TrimSpace(cleaned) == "" {
		cleaned = "Sheet"
	}
	candidate := truncateRunes(cleaned, maxSheetRunes)
	for i := 2; ; i++ {
		if _, taken := used[strings.ToLower(candidate)]; !taken {
			break
		}
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncateRunes(cleaned, maxSheetRunes-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = struct{}{}
	return candidate
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
