package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/lingbot/internal/database"
	"github.com/example/lingbot/internal/srs"
	"github.com/example/lingbot/pkg/models"
)

// ImportConfig defines how a vocabulary file is read
type ImportConfig struct {
	FilePath      string // Path to the Excel or CSV file
	WordColumn    int    // Column with the German word (0-based)
	WordRUColumn  int    // Column with the Russian translation
	ExampleColumn int    // Column with an example sentence (optional)
	SheetName     string // Name of the sheet to import
	StartRow      int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig(filePath string) ImportConfig {
	return ImportConfig{
		FilePath:      filePath,
		WordColumn:    0,
		WordRUColumn:  1,
		ExampleColumn: 2,
		SheetName:     "Sheet1",
		StartRow:      2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// ImportWords imports vocabulary cards from an Excel or CSV file into the
// given user's collection. Cards the user already has are skipped.
func ImportWords(ctx context.Context, userID int64, config ImportConfig) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return importFromCSV(ctx, userID, config)
	}
	return importFromExcel(ctx, userID, config)
}

func importFromExcel(ctx context.Context, userID int64, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	vocabRepo := database.NewVocabularyRepository()
	result := &ImportResult{Errors: make([]string, 0)}

	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		result.TotalProcessed++
		if err := processRow(ctx, userID, row, config, vocabRepo, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

func importFromCSV(ctx context.Context, userID int64, config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	vocabRepo := database.NewVocabularyRepository()
	result := &ImportResult{Errors: make([]string, 0)}

	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %v", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		result.TotalProcessed++
		if err := processRow(ctx, userID, row, config, vocabRepo, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}
	return result, nil
}

func processRow(ctx context.Context, userID int64, row []string, config ImportConfig, vocabRepo *database.VocabularyRepository, result *ImportResult) error {
	wordDE := cell(row, config.WordColumn)
	wordRU := cell(row, config.WordRUColumn)
	example := cell(row, config.ExampleColumn)

	if wordDE == "" || wordRU == "" {
		result.Skipped++
		return nil
	}

	exists, err := vocabRepo.ExistsForUser(ctx, userID, wordDE)
	if err != nil {
		return err
	}
	if exists {
		result.Skipped++
		return nil
	}

	item := &models.VocabularyItem{
		UserID:     userID,
		WordDE:     wordDE,
		WordRU:     wordRU,
		Example:    example,
		EaseFactor: srs.InitialEaseFactor,
	}
	if err := vocabRepo.Create(ctx, item); err != nil {
		return err
	}
	result.Created++
	return nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
