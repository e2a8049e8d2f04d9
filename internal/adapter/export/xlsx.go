// Package export writes search results to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fairyhunter13/talentfinder/internal/projection"
)

const (
	candidatesSheet = "Candidates"
	summarySheet    = "Summary"
)

// ReportMeta describes the search the rows came from.
type ReportMeta struct {
	JobDescription string
	RequiredSkills []string
	GeneratedAt    time.Time
}

var candidateHeaders = []string{"#", "Name", "Email", "Experience (years)", "Location", "Score", "Skills"}

// WriteResultsXLSX writes the candidate table and a summary sheet to w.
func WriteResultsXLSX(w io.Writer, rows []projection.TableRow, meta ReportMeta) error {
	f, err := build(rows, meta)
	if err != nil {
		return fmt.Errorf("op=export.WriteResultsXLSX: %w", err)
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("op=export.WriteResultsXLSX: %w", err)
	}
	return nil
}

// SaveResultsXLSX writes the workbook to path, adding .xlsx when missing.
// It returns the path written.
func SaveResultsXLSX(path string, rows []projection.TableRow, meta ReportMeta) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("op=export.SaveResultsXLSX: %w", err)
	}
	if err := WriteResultsXLSX(out, rows, meta); err != nil {
		_ = out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("op=export.SaveResultsXLSX: %w", err)
	}
	return path, nil
}

func build(rows []projection.TableRow, meta ReportMeta) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", candidatesSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeCandidates(f, rows); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("candidates sheet: %w", err)
	}
	if err := writeSummary(f, rows, meta); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	return f, nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
}

func writeCandidates(f *excelize.File, rows []projection.TableRow) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	widths := map[string]float64{"A": 6, "B": 28, "C": 32, "D": 18, "E": 20, "F": 10, "G": 10}
	for col, wd := range widths {
		if err := f.SetColWidth(candidatesSheet, col, col, wd); err != nil {
			return err
		}
	}
	for i, h := range candidateHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(candidatesSheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(candidatesSheet, cell, cell, style); err != nil {
			return err
		}
	}
	for i, r := range rows {
		var years any = ""
		if r.YearsExperience != nil {
			years = *r.YearsExperience
		}
		values := []any{i + 1, r.Name, r.Email, years, r.Location, r.Score, r.SkillCount}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(candidatesSheet, cell, &values); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(candidateHeaders), len(rows)+1)
		if err := f.AutoFilter(candidatesSheet, "A1:"+last, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}
	return f.SetPanes(candidatesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummary(f *excelize.File, rows []projection.TableRow, meta ReportMeta) error {
	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	generated := meta.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 80); err != nil {
		return err
	}
	lines := [][2]any{
		{"Job description", meta.JobDescription},
		{"Required skills", strings.Join(meta.RequiredSkills, ", ")},
		{"Generated", generated.Format("2006-01-02 15:04:05")},
		{"Candidates", len(rows)},
	}
	for i, ln := range lines {
		row := i + 1
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), ln[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), label); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), ln[1]); err != nil {
			return err
		}
	}
	return nil
}
