package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bilancio/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Name:         "Mario Rossi",
		Organization: "Rossi SRL",
		Email:        email,
	}, "$2a$10$fakehashfortesting")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	newTestUser(t, repo, "mario@example.com")

	_, err := repo.CreateUser(context.Background(), core.User{
		Name:  "Other",
		Email: "mario@example.com",
	}, "hash")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("CreateUser() error = %v, want ErrEmailTaken", err)
	}
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "  Mario@Example.COM ")

	if u.Email != "mario@example.com" {
		t.Errorf("stored email = %q, want %q", u.Email, "mario@example.com")
	}

	got, hash, err := repo.GetUserByEmail(context.Background(), "MARIO@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetUserByEmail() id = %d, want %d", got.ID, u.ID)
	}
	if hash == "" {
		t.Error("GetUserByEmail() returned empty password hash")
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, _, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestCreateEntryRecomputesProfitLoss(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "mario@example.com")

	// Caller-supplied ProfitLoss is deliberately wrong and must be ignored.
	e, err := repo.CreateEntry(context.Background(), core.Entry{
		UserID:     u.ID,
		Date:       core.NewDate(2025, 9, 15),
		Revenue:    core.Money{Cents: 1000000},
		Expense:    core.Money{Cents: 400000},
		ProfitLoss: core.Money{Cents: 99999999},
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	if e.ProfitLoss.Cents != 600000 {
		t.Errorf("ProfitLoss = %d cents, want 600000", e.ProfitLoss.Cents)
	}
	if e.Date.Key() != "2025-09-15" {
		t.Errorf("Date = %q, want 2025-09-15", e.Date.Key())
	}
}

func TestCreateEntryRejectsNegativeAmount(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "mario@example.com")

	_, err := repo.CreateEntry(context.Background(), core.Entry{
		UserID:  u.ID,
		Date:    core.NewDate(2025, 9, 15),
		Revenue: core.Money{Cents: -100},
	})
	if !errors.Is(err, core.ErrNegativeAmount) {
		t.Errorf("CreateEntry() error = %v, want ErrNegativeAmount", err)
	}
}

func TestUpdateEntryRecomputesAndRequeues(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "mario@example.com")
	ctx := context.Background()

	e, err := repo.CreateEntry(ctx, core.Entry{
		UserID:  u.ID,
		Date:    core.NewDate(2025, 9, 15),
		Revenue: core.Money{Cents: 1000},
		Expense: core.Money{Cents: 200},
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	if err := repo.MarkSynced(ctx, e.ID); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	e.Revenue = core.Money{Cents: 3000}
	updated, err := repo.UpdateEntry(ctx, e)
	if err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	if updated.ProfitLoss.Cents != 2800 {
		t.Errorf("ProfitLoss = %d cents, want 2800", updated.ProfitLoss.Cents)
	}

	pending, err := repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingSync() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != e.ID {
		t.Errorf("pending sync = %v, want the updated entry re-queued", pending)
	}
}

func TestEntryOwnerIsolation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	e, err := repo.CreateEntry(ctx, core.Entry{
		UserID:  alice.ID,
		Date:    core.NewDate(2025, 9, 1),
		Revenue: core.Money{Cents: 5000},
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	if _, err := repo.GetEntry(ctx, bob.ID, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetEntry() as other user error = %v, want ErrNotFound", err)
	}

	stolen := e
	stolen.UserID = bob.ID
	if _, err := repo.UpdateEntry(ctx, stolen); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateEntry() as other user error = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteEntry(ctx, bob.ID, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteEntry() as other user error = %v, want ErrNotFound", err)
	}

	entries, err := repo.ListEntries(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ListEntries() for other user = %d entries, want 0", len(entries))
	}
}

func TestListEntriesNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "mario@example.com")

	dates := []core.Date{
		core.NewDate(2025, 9, 1),
		core.NewDate(2025, 9, 20),
		core.NewDate(2025, 9, 10),
	}
	for _, d := range dates {
		if _, err := repo.CreateEntry(ctx, core.Entry{UserID: u.ID, Date: d}); err != nil {
			t.Fatalf("CreateEntry() error = %v", err)
		}
	}

	entries, err := repo.ListEntries(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	want := []string{"2025-09-20", "2025-09-10", "2025-09-01"}
	if len(entries) != len(want) {
		t.Fatalf("ListEntries() = %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Date.Key() != want[i] {
			t.Errorf("entries[%d].Date = %q, want %q", i, e.Date.Key(), want[i])
		}
	}
}

func TestDeleteUserCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "mario@example.com")

	e, err := repo.CreateEntry(ctx, core.Entry{
		UserID:  u.ID,
		Date:    core.NewDate(2025, 9, 1),
		Revenue: core.Money{Cents: 100},
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
	tk, err := repo.CreateTicket(ctx, core.Ticket{UserID: u.ID, Description: "cannot log in"})
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}

	if err := repo.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := repo.GetEntryAnyOwner(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("entry survived user deletion, error = %v", err)
	}
	if _, err := repo.GetTicket(ctx, u.ID, tk.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("ticket survived user deletion, error = %v", err)
	}
}

func TestTicketLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "mario@example.com")

	tk, err := repo.CreateTicket(ctx, core.Ticket{UserID: u.ID, Description: "export is empty"})
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}
	if tk.Status != core.TicketOpen {
		t.Errorf("new ticket status = %q, want %q", tk.Status, core.TicketOpen)
	}

	tk.Status = core.TicketInProgress
	tk, err = repo.UpdateTicket(ctx, tk)
	if err != nil {
		t.Fatalf("UpdateTicket() error = %v", err)
	}
	if tk.Status != core.TicketInProgress {
		t.Errorf("status = %q, want %q", tk.Status, core.TicketInProgress)
	}

	tk.Status = "resolved"
	if _, err := repo.UpdateTicket(ctx, tk); !errors.Is(err, core.ErrInvalidStatus) {
		t.Errorf("UpdateTicket() with bad status error = %v, want ErrInvalidStatus", err)
	}

	if err := repo.DeleteTicket(ctx, u.ID, tk.ID); err != nil {
		t.Fatalf("DeleteTicket() error = %v", err)
	}
	if _, err := repo.GetTicket(ctx, u.ID, tk.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTicket() after delete error = %v, want ErrNotFound", err)
	}
}

func TestTicketOwnerIsolation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	tk, err := repo.CreateTicket(ctx, core.Ticket{UserID: alice.ID, Description: "wrong totals"})
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}

	if _, err := repo.GetTicket(ctx, bob.ID, tk.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTicket() as other user error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteTicket(ctx, bob.ID, tk.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteTicket() as other user error = %v, want ErrNotFound", err)
	}
}

func TestSyncStatusTransitions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, "mario@example.com")

	var ids []int64
	for day := 1; day <= 3; day++ {
		e, err := repo.CreateEntry(ctx, core.Entry{UserID: u.ID, Date: core.NewDate(2025, 9, day)})
		if err != nil {
			t.Fatalf("CreateEntry() error = %v", err)
		}
		ids = append(ids, e.ID)
	}

	pending, err := repo.ListPendingSync(ctx, 2)
	if err != nil {
		t.Fatalf("ListPendingSync() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("ListPendingSync(limit=2) = %d entries, want 2", len(pending))
	}
	if pending[0].ID != ids[0] {
		t.Errorf("oldest pending id = %d, want %d", pending[0].ID, ids[0])
	}

	if err := repo.MarkSynced(ctx, ids[0]); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}
	if err := repo.MarkSyncError(ctx, ids[1]); err != nil {
		t.Fatalf("MarkSyncError() error = %v", err)
	}

	pending, err = repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingSync() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ids[2] {
		t.Errorf("pending after transitions = %v, want only entry %d", pending, ids[2])
	}
}
