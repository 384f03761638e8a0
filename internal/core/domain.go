package core

import (
	"errors"
	"strings"
	"time"
)

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

type (
	TicketStatus string

	// Date is a calendar date. The time component is always UTC midnight;
	// bucketing compares dates in a single implied timezone.
	Date struct {
		time.Time
	}

	// Money is an amount in integer cents. Sums over cents are exact, so
	// aggregation never accumulates floating-point error.
	Money struct {
		Cents int64
	}

	// Entry is a single dated revenue/expense record owned by a user.
	// ProfitLoss is always derived from Revenue and Expense on write and
	// never trusted from a caller.
	Entry struct {
		ID         int64
		UserID     int64
		Date       Date
		Revenue    Money
		Expense    Money
		ProfitLoss Money
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	User struct {
		ID           int64
		Name         string
		Organization string
		Email        string
		Whatsapp     string
		IsActive     bool
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Ticket struct {
		ID          int64
		UserID      int64
		Description string
		Status      TicketStatus
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrNegativeAmount   = errors.New("negative amount")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidStatus    = errors.New("invalid ticket status")
	ErrEmptyEmail       = errors.New("empty email")
	ErrEmptyName        = errors.New("empty name")
	ErrNotFound         = errors.New("not found")
)

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Key returns the daily bucket key (YYYY-MM-DD). Lexicographic order of
// keys is also chronological order.
func (d Date) Key() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the monthly bucket key (YYYY-MM).
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// YearKey returns the yearly bucket key (YYYY).
func (d Date) YearKey() string {
	return d.Format("2006")
}

// Validate rejects negative amounts. Zero is a legal revenue or expense.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Sub returns m minus other.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Units returns the decimal currency value for display and JSON encoding.
// Calculations stay in cents; this is a boundary conversion only.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// Validate checks an entry before it is allowed to reach storage or the
// aggregation engine. The engine assumes every entry passed this.
func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Revenue.Validate(); err != nil {
		return err
	}
	if err := e.Expense.Validate(); err != nil {
		return err
	}
	return nil
}

// ComputeProfitLoss returns the entry with ProfitLoss recomputed from
// Revenue and Expense, discarding whatever the caller supplied.
func (e Entry) ComputeProfitLoss() Entry {
	e.ProfitLoss = e.Revenue.Sub(e.Expense)
	return e
}

func (s TicketStatus) Validate() error {
	switch s {
	case TicketOpen, TicketInProgress, TicketClosed:
		return nil
	}
	return ErrInvalidStatus
}

func (t Ticket) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 2000 {
		return errors.New("description too long (max 2000 characters)")
	}
	return t.Status.Validate()
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(email, "@") {
		return errors.New("malformed email")
	}
	return nil
}
