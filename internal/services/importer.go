package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"bilancio/internal/core"
)

// ImportRowError names one rejected row. Row numbers are 1-based over the
// data rows, the header does not count.
type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    []ImportRowError `json:"failed"`
}

// ImportCSV reads entries from CSV (Date,Revenue,Expense) and saves them
// one row at a time. A bad row is recorded and skipped, it never aborts the
// rest of the import. Rows that were already saved stay saved.
func (s *EntryService) ImportCSV(ctx context.Context, userID int64, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := ImportResult{Failed: []ImportRowError{}}
	row := 0
	first := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if first {
			first = false
			if isHeaderRow(record) {
				continue
			}
		}
		row++
		if err != nil {
			result.Failed = append(result.Failed, ImportRowError{Row: row, Error: err.Error()})
			continue
		}

		entry, err := parseImportRecord(userID, record)
		if err != nil {
			result.Failed = append(result.Failed, ImportRowError{Row: row, Error: err.Error()})
			continue
		}

		if _, err := s.CreateEntry(ctx, entry); err != nil {
			result.Failed = append(result.Failed, ImportRowError{Row: row, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}

	slog.InfoContext(ctx, "Import finished",
		"user_id", userID,
		"succeeded", result.Succeeded,
		"failed", len(result.Failed))
	return result, nil
}

// ImportRow is one entry of a JSON bulk import.
type ImportRow struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Expense float64 `json:"expense"`
}

// ImportRows saves a batch of decoded rows under the same per-row error
// contract as ImportCSV.
func (s *EntryService) ImportRows(ctx context.Context, userID int64, rows []ImportRow) (ImportResult, error) {
	result := ImportResult{Failed: []ImportRowError{}}

	for i, r := range rows {
		row := i + 1
		entry, err := parseImportRow(userID, r)
		if err != nil {
			result.Failed = append(result.Failed, ImportRowError{Row: row, Error: err.Error()})
			continue
		}
		if _, err := s.CreateEntry(ctx, entry); err != nil {
			result.Failed = append(result.Failed, ImportRowError{Row: row, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}

	slog.InfoContext(ctx, "Import finished",
		"user_id", userID,
		"succeeded", result.Succeeded,
		"failed", len(result.Failed))
	return result, nil
}

func parseImportRow(userID int64, r ImportRow) (core.Entry, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Entry{}, fmt.Errorf("date %q: %w", r.Date, err)
	}
	revenue, err := core.CentsFromFloat(r.Revenue)
	if err != nil {
		return core.Entry{}, fmt.Errorf("revenue %v: %w", r.Revenue, err)
	}
	expense, err := core.CentsFromFloat(r.Expense)
	if err != nil {
		return core.Entry{}, fmt.Errorf("expense %v: %w", r.Expense, err)
	}

	return core.Entry{
		UserID:  userID,
		Date:    date,
		Revenue: core.Money{Cents: revenue},
		Expense: core.Money{Cents: expense},
	}, nil
}

func parseImportRecord(userID int64, record []string) (core.Entry, error) {
	if len(record) < 3 {
		return core.Entry{}, fmt.Errorf("expected 3 columns (date, revenue, expense), got %d", len(record))
	}

	date, err := core.ParseDate(record[0])
	if err != nil {
		return core.Entry{}, fmt.Errorf("date %q: %w", record[0], err)
	}
	revenue, err := core.ParseDecimalToCents(record[1])
	if err != nil {
		return core.Entry{}, fmt.Errorf("revenue %q: %w", record[1], err)
	}
	expense, err := core.ParseDecimalToCents(record[2])
	if err != nil {
		return core.Entry{}, fmt.Errorf("expense %q: %w", record[2], err)
	}

	return core.Entry{
		UserID:  userID,
		Date:    date,
		Revenue: core.Money{Cents: revenue},
		Expense: core.Money{Cents: expense},
	}, nil
}

func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "date")
}
