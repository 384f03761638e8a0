package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// ExportCSV streams the user's entries as CSV, oldest date first. Columns
// mirror the import format plus the derived profit/loss.
func (s *EntryService) ExportCSV(ctx context.Context, w io.Writer, userID int64) error {
	entries, err := s.ListEntries(ctx, userID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	streamer := newCSVStreamer(w)
	if err := streamer.writeRow([]string{"Date", "Revenue", "Expense", "ProfitLoss"}); err != nil {
		return err
	}

	// ListEntries is newest first; exports read better chronologically.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := streamer.writeRow([]string{
			e.Date.Key(),
			formatDecimal(e.Revenue.Units()),
			formatDecimal(e.Expense.Units()),
			formatDecimal(e.ProfitLoss.Units()),
		}); err != nil {
			return err
		}
	}
	return streamer.Flush()
}

func formatDecimal(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
