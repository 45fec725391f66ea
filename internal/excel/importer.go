package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/reviewbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath           string // Path to the Excel or CSV file
	WordColumn         string // Column with the word
	MeaningColumn      string // Column with the meaning
	ContextColumn      string // Column with the example sentence
	PartOfSpeechColumn string
	ExamSourceColumn   string
	DifficultyColumn   string
	UnitColumn         string // Textbook unit inside the active course book
	SheetName          string // Name of the sheet to import
	StartRow           int    // The row to start importing from (1-based index)
}

// DefaultImportConfig matches the layout written by Export
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		WordColumn:         "A",
		MeaningColumn:      "B",
		ContextColumn:      "C",
		PartOfSpeechColumn: "D",
		ExamSourceColumn:   "E",
		DifficultyColumn:   "F",
		UnitColumn:         "G",
		SheetName:          DefaultSheet,
		StartRow:           2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Merged         int
	Skipped        int
	Errors         []string
}

// MissedWordStore is the part of the review store the importer writes to
type MissedWordStore interface {
	FindWord(key models.PartitionKey, word string) (models.WordRecord, bool)
	AddOrMergeMissedWord(active models.PartitionKey, word models.WordRecord) models.WordRecord
}

// ImportMissedWords records every row of an Excel or CSV file as a missed
// word of the active partition. Words already in the partition are merged.
func ImportMissedWords(store MissedWordStore, active models.PartitionKey, config ImportConfig) (*ImportResult, error) {
	rows, err := readRows(config)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Errors: make([]string, 0),
	}

	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		if isBlank(row) {
			continue
		}

		result.TotalProcessed++

		word, err := parseRow(row, config, active)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		if _, exists := store.FindWord(active, word.Word); exists {
			result.Merged++
		} else {
			result.Created++
		}
		store.AddOrMergeMissedWord(active, word)
	}

	return result, nil
}

// readRows loads all rows of the file, picking the reader by extension
func readRows(config ImportConfig) ([][]string, error) {
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return readCSV(config.FilePath)
	}

	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseRow turns a row into the missed word to record
func parseRow(row []string, config ImportConfig, active models.PartitionKey) (models.WordRecord, error) {
	word := cleanWord(cell(row, config.WordColumn))
	meaning := strings.TrimSpace(cell(row, config.MeaningColumn))

	if word == "" {
		return models.WordRecord{}, fmt.Errorf("word cannot be empty")
	}
	if meaning == "" {
		return models.WordRecord{}, fmt.Errorf("meaning cannot be empty")
	}

	rec := models.WordRecord{
		Word:       word,
		Meaning:    meaning,
		Context:    strings.TrimSpace(cell(row, config.ContextColumn)),
		Difficulty: parseDifficulty(cell(row, config.DifficultyColumn)),
	}

	if pos := strings.ToLower(strings.TrimSpace(cell(row, config.PartOfSpeechColumn))); pos != "" {
		p := models.PartOfSpeech(pos)
		rec.PartOfSpeech = &p
	}
	if exam := strings.ToLower(strings.TrimSpace(cell(row, config.ExamSourceColumn))); exam != "" {
		e := models.ExamSource(exam)
		rec.ExamSource = &e
	}
	if unit, err := strconv.Atoi(strings.TrimSpace(cell(row, config.UnitColumn))); err == nil && unit > 0 {
		rec.TextbookSource = &models.TextbookSource{
			CourseType: active.CourseType,
			CourseBook: active.CourseBook,
			Unit:       unit,
		}
	}
	return rec, nil
}

// cell returns the value of a lettered column, "" when absent
func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx, err := excelize.ColumnNameToNumber(column)
	if err != nil || idx > len(row) {
		return ""
	}
	return row[idx-1]
}

// cleanWord удаляет из слова дополнительную информацию в скобках
func cleanWord(word string) string {
	// "go (went, gone)" -> "go"
	if idx := strings.Index(word, "("); idx > 0 {
		return strings.TrimSpace(word[:idx])
	}
	return strings.TrimSpace(word)
}

// parseDifficulty accepts names or the 1-3 rank, defaulting to medium
func parseDifficulty(s string) models.Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "1":
		return models.DifficultyEasy
	case "hard", "3":
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
