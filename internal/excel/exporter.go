package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/reviewbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet written by Export and read by default
const DefaultSheet = "Sheet1"

// exportHeader columns A-G line up with DefaultImportConfig
var exportHeader = []string{
	"Word", "Meaning", "Context", "Part of speech", "Exam source", "Difficulty", "Unit",
	"Course", "Errors", "Attempts", "Review count", "Mastered", "Next review",
}

// Export writes the words to an .xlsx or .csv file, chosen by extension
func Export(path string, words []models.WordRecord) error {
	rows := make([][]string, 0, len(words)+1)
	rows = append(rows, exportHeader)
	for i := range words {
		rows = append(rows, exportRow(&words[i]))
	}

	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return writeCSV(path, rows)
	}
	return writeXLSX(path, rows)
}

func exportRow(w *models.WordRecord) []string {
	var pos, exam, unit string
	if w.PartOfSpeech != nil {
		pos = string(*w.PartOfSpeech)
	}
	if w.ExamSource != nil {
		exam = string(*w.ExamSource)
	}
	if w.TextbookSource != nil {
		unit = strconv.Itoa(w.TextbookSource.Unit)
	}
	return []string{
		w.Word,
		w.Meaning,
		w.Context,
		pos,
		exam,
		string(w.Difficulty),
		unit,
		w.Partition.String(),
		strconv.Itoa(w.ErrorCount),
		strconv.Itoa(w.TotalAttempts),
		strconv.Itoa(w.ReviewCount),
		strconv.FormatBool(w.IsMastered),
		w.NextReviewDate.Format(time.RFC3339),
	}
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return file.Close()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(DefaultSheet, cellName, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}
