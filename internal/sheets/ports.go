package sheets

import (
	"context"

	"bilancio/internal/core"
)

// Ports for the spreadsheet mirror. The sheet is a read-only copy for the
// user; the SQLite record store stays authoritative.
type (
	EntryUpserter interface {
		// Upsert writes the entry's row, replacing an existing row with the
		// same entry id or appending a new one.
		Upsert(ctx context.Context, e core.Entry) (rowRef string, err error)
	}

	EntryDeleter interface {
		// Delete removes the row for entryID. Deleting a row that is not
		// mirrored is not an error.
		Delete(ctx context.Context, entryID int64) error
	}

	EntryLister interface {
		ListRows(ctx context.Context) ([]Row, error)
	}
)

// Row is one mirrored entry as it appears on the sheet. Amounts are in
// currency units because that is what spreadsheet users read.
type Row struct {
	EntryID    int64
	Date       string
	Revenue    float64
	Expense    float64
	ProfitLoss float64
}
