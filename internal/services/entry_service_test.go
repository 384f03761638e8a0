package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

func newTestService(t *testing.T) (*EntryService, int64) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	u, err := repo.CreateUser(context.Background(), core.User{
		Name:  "Mario Rossi",
		Email: "mario@example.com",
	}, "hash")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	// nil AMQP client: publish is skipped, writes must still succeed
	return NewEntryService(repo, nil), u.ID
}

func TestCreateEntryWithoutBroker(t *testing.T) {
	svc, userID := newTestService(t)

	e, err := svc.CreateEntry(context.Background(), core.Entry{
		UserID:  userID,
		Date:    core.NewDate(2025, 9, 15),
		Revenue: core.Money{Cents: 150000},
		Expense: core.Money{Cents: 70000},
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	if e.ProfitLoss.Cents != 80000 {
		t.Errorf("ProfitLoss = %d cents, want 80000", e.ProfitLoss.Cents)
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	svc, userID := newTestService(t)
	ctx := context.Background()

	e, err := svc.CreateEntry(ctx, core.Entry{
		UserID:  userID,
		Date:    core.NewDate(2025, 9, 15),
		Revenue: core.Money{Cents: 1000},
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	e.Expense = core.Money{Cents: 300}
	updated, err := svc.UpdateEntry(ctx, e)
	if err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	if updated.ProfitLoss.Cents != 700 {
		t.Errorf("ProfitLoss = %d cents, want 700", updated.ProfitLoss.Cents)
	}

	if err := svc.DeleteEntry(ctx, userID, e.ID); err != nil {
		t.Fatalf("DeleteEntry() error = %v", err)
	}
	if _, err := svc.GetEntry(ctx, userID, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetEntry() after delete error = %v, want ErrNotFound", err)
	}
}
