package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/ledger"
)

// ExcelExporter writes the ledger to an xlsx workbook: one summary sheet
// plus one sheet per project slug.
type ExcelExporter struct {
	OutputDir string
}

func NewExcelExporter(outputDir string) *ExcelExporter {
	return &ExcelExporter{OutputDir: outputDir}
}

func (e *ExcelExporter) Export(records []ledger.TaskRecord, now time.Time) (string, error) {
	filename := filepath.Join(e.OutputDir, fmt.Sprintf("ledger_%s.xlsx", now.Format("2006-01-02_15-04-05")))

	f := excelize.NewFile()
	defer f.Close()

	projectRecords := make(map[string][]ledger.TaskRecord)
	var projectNames []string
	projectNameSet := make(map[string]bool)

	for _, rec := range records {
		project := projectSlug(rec.TaskKey)
		if !projectNameSet[project] {
			projectNames = append(projectNames, project)
			projectNameSet[project] = true
		}
		projectRecords[project] = append(projectRecords[project], rec)
	}
	sort.Strings(projectNames)

	if err := e.createSummarySheet(f, "Summary", records, projectNames, now); err != nil {
		return "", fmt.Errorf("failed to create summary sheet: %w", err)
	}

	titler := cases.Title(language.English)
	for _, project := range projectNames {
		sheetName := sanitizeSheetName(titler.String(project))
		if err := e.createProjectSheet(f, sheetName, projectRecords[project]); err != nil {
			return "", fmt.Errorf("failed to create sheet for %s: %w", project, err)
		}
	}

	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(filename); err != nil {
		return "", fmt.Errorf("failed to save excel file: %w", err)
	}
	return filename, nil
}

func (e *ExcelExporter) createSummarySheet(f *excelize.File, sheetName string, records []ledger.TaskRecord, projectNames []string, now time.Time) error {
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})

	f.SetCellValue(sheetName, "A1", "Exported:")
	f.SetCellValue(sheetName, "B1", now.Format("02-01-06 15:04"))
	f.SetCellValue(sheetName, "A2", "Tracked tasks:")
	f.SetCellValue(sheetName, "B2", len(records))
	f.SetCellValue(sheetName, "A3", "Projects:")
	f.SetCellValue(sheetName, "B3", len(projectNames))

	headers := []string{"Project", "Tasks", "Total Working Days", "Oldest First Seen", "Newest Last Seen"}
	row := 5
	for i, h := range headers {
		f.SetCellValue(sheetName, cellName(i+1, row), h)
	}
	f.SetCellStyle(sheetName, cellName(1, row), cellName(len(headers), row), headerStyle)

	for _, project := range projectNames {
		row++
		tasks, days := 0, 0
		oldest, newest := "", ""
		for _, rec := range records {
			if projectSlug(rec.TaskKey) != project {
				continue
			}
			tasks++
			days += rec.TotalDays
			if oldest == "" || rec.FirstSeenDate < oldest {
				oldest = rec.FirstSeenDate
			}
			if rec.LastSeenDate > newest {
				newest = rec.LastSeenDate
			}
		}
		f.SetCellValue(sheetName, cellName(1, row), project)
		f.SetCellValue(sheetName, cellName(2, row), tasks)
		f.SetCellValue(sheetName, cellName(3, row), days)
		f.SetCellValue(sheetName, cellName(4, row), oldest)
		f.SetCellValue(sheetName, cellName(5, row), newest)
	}

	f.SetColWidth(sheetName, "A", "A", 25)
	f.SetColWidth(sheetName, "B", "E", 18)
	return nil
}

func (e *ExcelExporter) createProjectSheet(f *excelize.File, sheetName string, records []ledger.TaskRecord) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
	})

	headers := []string{"#", "Task Key", "First Seen", "Last Seen", "Working Days", "Updated At"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cellName(i+1, 1), h)
	}
	f.SetCellStyle(sheetName, cellName(1, 1), cellName(len(headers), 1), headerStyle)

	sort.Slice(records, func(i, j int) bool {
		return records[i].TaskKey < records[j].TaskKey
	})

	for i, rec := range records {
		row := i + 2
		f.SetCellValue(sheetName, cellName(1, row), i+1)
		f.SetCellValue(sheetName, cellName(2, row), rec.TaskKey)
		f.SetCellValue(sheetName, cellName(3, row), rec.FirstSeenDate)
		f.SetCellValue(sheetName, cellName(4, row), rec.LastSeenDate)
		f.SetCellValue(sheetName, cellName(5, row), rec.TotalDays)
		f.SetCellValue(sheetName, cellName(6, row), rec.UpdatedAt.Format("2006-01-02 15:04"))
	}

	f.SetColWidth(sheetName, "A", "A", 5)
	f.SetColWidth(sheetName, "B", "B", 30)
	f.SetColWidth(sheetName, "C", "F", 16)
	return nil
}

func projectSlug(taskKey string) string {
	if i := strings.Index(taskKey, "#"); i > 0 {
		return taskKey[:i]
	}
	return "unknown"
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

func sanitizeSheetName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "[", "(")
	name = strings.ReplaceAll(name, "]", ")")

	if len(name) > 31 {
		name = name[:31]
	}

	return name
}
