// Package storage is the record store: users, profit/loss entries and
// support tickets in SQLite. It is the single write-side validation point;
// nothing unvalidated ever reaches the aggregation engine.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// Sync states for the spreadsheet mirror.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

var ErrEmailTaken = errors.New("email already registered")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// foreign_keys enables the ON DELETE CASCADE from entries/tickets to
	// users; SQLite leaves it off per connection by default.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping reports whether the database is reachable. The readiness probe
// uses it.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- users ----

// CreateUser registers a new account with an already-hashed password.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}

	now := time.Now().Unix()
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO users (name, organization, email, password_hash, whatsapp, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		u.Name, u.Organization, strings.ToLower(strings.TrimSpace(u.Email)), passwordHash, u.Whatsapp, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", id, "email", u.Email)
	return r.GetUser(ctx, id)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, organization, email, whatsapp, is_active, created_at, updated_at
        FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail returns the user and the stored password hash for login.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, string, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, organization, email, whatsapp, is_active, created_at, updated_at, password_hash
        FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))

	var u core.User
	var hash string
	var isActive int64
	var created, updated int64
	err := row.Scan(&u.ID, &u.Name, &u.Organization, &u.Email, &u.Whatsapp, &isActive, &created, &updated, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, "", core.ErrNotFound
		}
		return core.User{}, "", fmt.Errorf("select user by email: %w", err)
	}
	u.IsActive = isActive != 0
	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return u, hash, nil
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res)
}

// DeleteUser removes the account. Entries and tickets go with it via the
// foreign key cascade.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

// ---- entries ----

// CreateEntry validates and persists a new entry for its owner. ProfitLoss
// is recomputed here regardless of what the caller set.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	e = e.ComputeProfitLoss()

	now := time.Now().Unix()
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO entries (user_id, date, revenue_cents, expense_cents, profitloss_cents, sync_status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Date.Key(), e.Revenue.Cents, e.Expense.Cents, e.ProfitLoss.Cents, SyncPending, now, now)
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry id: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"entry_id", id,
		"user_id", e.UserID,
		"date", e.Date.Key(),
		"revenue_cents", e.Revenue.Cents,
		"expense_cents", e.Expense.Cents)

	return r.GetEntry(ctx, e.UserID, id)
}

// GetEntry returns one entry, owner-scoped: an entry belonging to another
// user reads as not found.
func (r *SQLiteRepository) GetEntry(ctx context.Context, userID, id int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, user_id, date, revenue_cents, expense_cents, profitloss_cents, created_at, updated_at
        FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	return scanEntry(row)
}

// UpdateEntry replaces date/revenue/expense of an owned entry, recomputing
// profit/loss and re-queueing the spreadsheet mirror sync.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	e = e.ComputeProfitLoss()

	res, err := r.db.ExecContext(ctx, `
        UPDATE entries
        SET date = ?, revenue_cents = ?, expense_cents = ?, profitloss_cents = ?, sync_status = ?, updated_at = ?
        WHERE id = ? AND user_id = ?`,
		e.Date.Key(), e.Revenue.Cents, e.Expense.Cents, e.ProfitLoss.Cents, SyncPending, time.Now().Unix(), e.ID, e.UserID)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	if err := requireRow(res); err != nil {
		return core.Entry{}, err
	}

	return r.GetEntry(ctx, e.UserID, e.ID)
}

// DeleteEntry hard-deletes an owned entry.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res)
}

// ListEntries returns every entry owned by userID, newest date first. This
// is both the list endpoint's payload and the aggregation engine's input.
func (r *SQLiteRepository) ListEntries(ctx context.Context, userID int64) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_id, date, revenue_cents, expense_cents, profitloss_cents, created_at, updated_at
        FROM entries WHERE user_id = ?
        ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetEntryAnyOwner fetches an entry by id alone. Only the sync worker uses
// it; everything request-facing goes through the owner-scoped GetEntry.
func (r *SQLiteRepository) GetEntryAnyOwner(ctx context.Context, id int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, user_id, date, revenue_cents, expense_cents, profitloss_cents, created_at, updated_at
        FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// ListPendingSync returns entries still waiting to be mirrored, oldest
// first. Backup path for lost broker messages.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_id, date, revenue_cents, expense_cents, profitloss_cents, created_at, updated_at
        FROM entries WHERE sync_status = ?
        ORDER BY id ASC LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncSynced)
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE entries SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}

// ---- tickets ----

func (r *SQLiteRepository) CreateTicket(ctx context.Context, t core.Ticket) (core.Ticket, error) {
	if t.Status == "" {
		t.Status = core.TicketOpen
	}
	if err := t.Validate(); err != nil {
		return core.Ticket{}, err
	}

	now := time.Now().Unix()
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO tickets (user_id, description, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`,
		t.UserID, t.Description, string(t.Status), now, now)
	if err != nil {
		return core.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Ticket{}, fmt.Errorf("ticket id: %w", err)
	}
	return r.GetTicket(ctx, t.UserID, id)
}

func (r *SQLiteRepository) GetTicket(ctx context.Context, userID, id int64) (core.Ticket, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, user_id, description, status, created_at, updated_at
        FROM tickets WHERE id = ? AND user_id = ?`, id, userID)
	return scanTicket(row)
}

func (r *SQLiteRepository) ListTickets(ctx context.Context, userID int64) ([]core.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_id, description, status, created_at, updated_at
        FROM tickets WHERE user_id = ?
        ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select tickets: %w", err)
	}
	defer rows.Close()

	var tickets []core.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *SQLiteRepository) UpdateTicket(ctx context.Context, t core.Ticket) (core.Ticket, error) {
	if err := t.Validate(); err != nil {
		return core.Ticket{}, err
	}

	res, err := r.db.ExecContext(ctx, `
        UPDATE tickets SET description = ?, status = ?, updated_at = ?
        WHERE id = ? AND user_id = ?`,
		t.Description, string(t.Status), time.Now().Unix(), t.ID, t.UserID)
	if err != nil {
		return core.Ticket{}, fmt.Errorf("update ticket: %w", err)
	}
	if err := requireRow(res); err != nil {
		return core.Ticket{}, err
	}
	return r.GetTicket(ctx, t.UserID, t.ID)
}

func (r *SQLiteRepository) DeleteTicket(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return requireRow(res)
}

// ---- scanning ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var u core.User
	var isActive, created, updated int64
	err := row.Scan(&u.ID, &u.Name, &u.Organization, &u.Email, &u.Whatsapp, &isActive, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.IsActive = isActive != 0
	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return u, nil
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var e core.Entry
	var dateStr string
	var created, updated int64
	err := row.Scan(&e.ID, &e.UserID, &dateStr, &e.Revenue.Cents, &e.Expense.Cents, &e.ProfitLoss.Cents, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, core.ErrNotFound
		}
		return core.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Date, err = core.ParseDate(dateStr)
	if err != nil {
		return core.Entry{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	e.CreatedAt = time.Unix(created, 0)
	e.UpdatedAt = time.Unix(updated, 0)
	return e, nil
}

func scanTicket(row rowScanner) (core.Ticket, error) {
	var t core.Ticket
	var status string
	var created, updated int64
	err := row.Scan(&t.ID, &t.UserID, &t.Description, &status, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Ticket{}, core.ErrNotFound
		}
		return core.Ticket{}, fmt.Errorf("scan ticket: %w", err)
	}
	t.Status = core.TicketStatus(status)
	t.CreatedAt = time.Unix(created, 0)
	t.UpdatedAt = time.Unix(updated, 0)
	return t, nil
}

// requireRow turns a zero-row write into core.ErrNotFound so handlers can
// distinguish "not yours / gone" from real failures.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
