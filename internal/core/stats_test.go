package core

import (
	"math"
	"reflect"
	"sort"
	"testing"
)

func entry(t *testing.T, date string, revenueCents, expenseCents int64) Entry {
	t.Helper()
	d, err := ParseDate(date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	e := Entry{Date: d, Revenue: Money{Cents: revenueCents}, Expense: Money{Cents: expenseCents}}
	return e.ComputeProfitLoss()
}

func TestAggregateWorkedExample(t *testing.T) {
	// Two entries for the same user; the third entry from the scenario
	// belongs to a different user and never reaches this engine because the
	// record store scopes the read to the owner.
	entries := []Entry{
		entry(t, "2025-09-01", 1000000, 500000),
		entry(t, "2025-09-02", 1500000, 700000),
	}

	stats := Aggregate(entries)

	if got := stats.DailyRevenue["2025-09-01"]; got != 10000 {
		t.Errorf("dailyRevenue[2025-09-01] = %v, want 10000", got)
	}
	if got := stats.DailyExpense["2025-09-01"]; got != 5000 {
		t.Errorf("dailyExpense[2025-09-01] = %v, want 5000", got)
	}
	if got := stats.DailyProfitloss["2025-09-01"]; got != 5000 {
		t.Errorf("dailyProfitloss[2025-09-01] = %v, want 5000", got)
	}

	if len(stats.MonthlyStats) != 1 {
		t.Fatalf("monthlyStats len = %d, want 1", len(stats.MonthlyStats))
	}
	m := stats.MonthlyStats[0]
	if m.Month != "2025-09" {
		t.Errorf("month key = %q, want 2025-09", m.Month)
	}
	if m.Revenue != 25000 || m.Expense != 12000 || m.ProfitLoss != 13000 {
		t.Errorf("monthly rollup = %+v", m)
	}
	if m.ProfitMargin != 52.0 {
		t.Errorf("profitMargin = %v, want 52.0", m.ProfitMargin)
	}

	if got := stats.YearlyProfitloss["2025"]; got != 13000 {
		t.Errorf("yearlyProfitloss[2025] = %v, want 13000", got)
	}
	if got := stats.YearlyProfitMargin["2025"]; got != 52.0 {
		t.Errorf("yearlyProfitMargin[2025] = %v, want 52.0", got)
	}
	if stats.EntryCount != 2 {
		t.Errorf("entryCount = %d, want 2", stats.EntryCount)
	}
}

func TestAggregateSameDateEntriesShareBucket(t *testing.T) {
	entries := []Entry{
		entry(t, "2025-09-01", 1000000, 500000),
		entry(t, "2025-09-01", 2000000, 1200000),
	}

	stats := Aggregate(entries)

	if len(stats.DailyRevenue) != 1 {
		t.Fatalf("daily buckets = %d, want 1", len(stats.DailyRevenue))
	}
	if got := stats.DailyRevenue["2025-09-01"]; got != 30000 {
		t.Errorf("dailyRevenue = %v, want 30000", got)
	}
	if got := stats.DailyProfitloss["2025-09-01"]; got != 13000 {
		t.Errorf("dailyProfitloss = %v, want 13000", got)
	}
}

// Bucketing never drops or double-counts: daily, monthly and yearly
// profit/loss totals all equal the plain sum over the entry set.
func TestAggregateConservation(t *testing.T) {
	entries := []Entry{
		entry(t, "2024-12-31", 500000, 700000), // a loss
		entry(t, "2025-01-01", 1000000, 100000),
		entry(t, "2025-01-15", 0, 30000),
		entry(t, "2025-02-01", 2500000, 2500000),
		entry(t, "2025-02-01", 99, 1),
	}

	var wantCents int64
	for _, e := range entries {
		wantCents += e.ProfitLoss.Cents
	}
	want := Money{Cents: wantCents}.Units()

	stats := Aggregate(entries)

	sum := func(m map[string]float64) float64 {
		var s float64
		for _, v := range m {
			s += v
		}
		return s
	}
	const eps = 1e-9
	if got := sum(stats.DailyProfitloss); math.Abs(got-want) > eps {
		t.Errorf("sum(daily) = %v, want %v", got, want)
	}
	var monthlySum float64
	for _, m := range stats.MonthlyStats {
		monthlySum += m.ProfitLoss
	}
	if math.Abs(monthlySum-want) > eps {
		t.Errorf("sum(monthly) = %v, want %v", monthlySum, want)
	}
	if got := sum(stats.YearlyProfitloss); math.Abs(got-want) > eps {
		t.Errorf("sum(yearly) = %v, want %v", got, want)
	}
}

func TestAggregateZeroRevenueMargin(t *testing.T) {
	stats := Aggregate([]Entry{entry(t, "2025-03-10", 0, 400000)})

	if len(stats.MonthlyStats) != 1 {
		t.Fatalf("monthlyStats len = %d, want 1", len(stats.MonthlyStats))
	}
	margin := stats.MonthlyStats[0].ProfitMargin
	if margin != MarginWhenNoRevenue {
		t.Errorf("margin = %v, want %v", margin, MarginWhenNoRevenue)
	}
	if math.IsNaN(margin) || math.IsInf(margin, 0) {
		t.Errorf("margin is not finite: %v", margin)
	}
	if got := stats.YearlyProfitMargin["2025"]; got != MarginWhenNoRevenue {
		t.Errorf("yearly margin = %v, want %v", got, MarginWhenNoRevenue)
	}
}

func TestAggregateEmptySet(t *testing.T) {
	stats := Aggregate(nil)

	if stats.EntryCount != 0 {
		t.Errorf("entryCount = %d, want 0", stats.EntryCount)
	}
	if stats.AvgRevenue != 0 || stats.MaxProfit != 0 || stats.MinExpense != 0 || stats.MaxRevenue != 0 {
		t.Errorf("insights over empty set = %+v, want zeros", stats)
	}
	if len(stats.DailyRevenue) != 0 || len(stats.MonthlyStats) != 0 || len(stats.YearlyRevenue) != 0 {
		t.Error("empty set produced buckets")
	}
	// Maps are allocated so JSON encodes {} rather than null.
	if stats.DailyRevenue == nil || stats.YearlyProfitMargin == nil {
		t.Error("bucket maps are nil")
	}
}

func TestAggregateInsights(t *testing.T) {
	entries := []Entry{
		entry(t, "2025-01-01", 1000000, 900000), // profit 1000.00
		entry(t, "2025-01-02", 3000000, 100000), // profit 29000.00, max revenue
		entry(t, "2025-01-03", 200000, 50000),   // min expense 500.00
	}

	stats := Aggregate(entries)

	if got := stats.AvgRevenue; got != 14000 {
		t.Errorf("avgRevenue = %v, want 14000", got)
	}
	if got := stats.MaxProfit; got != 29000 {
		t.Errorf("maxProfit = %v, want 29000", got)
	}
	if got := stats.MinExpense; got != 500 {
		t.Errorf("minExpense = %v, want 500", got)
	}
	if got := stats.MaxRevenue; got != 30000 {
		t.Errorf("maxRevenue = %v, want 30000", got)
	}
}

// maxProfit must track the entry with the highest profit even when every
// entry is a loss; seeding the extrema from zero would get this wrong.
func TestAggregateAllLosses(t *testing.T) {
	entries := []Entry{
		entry(t, "2025-05-01", 100000, 300000), // -2000.00
		entry(t, "2025-05-02", 100000, 150000), // -500.00
	}

	stats := Aggregate(entries)

	if got := stats.MaxProfit; got != -500 {
		t.Errorf("maxProfit = %v, want -500", got)
	}
}

func TestAggregateMonthlyOrdering(t *testing.T) {
	entries := []Entry{
		entry(t, "2025-03-01", 100, 0),
		entry(t, "2024-11-01", 100, 0),
		entry(t, "2025-01-01", 100, 0),
	}

	stats := Aggregate(entries)

	got := make([]string, len(stats.MonthlyStats))
	for i, m := range stats.MonthlyStats {
		got[i] = m.Month
	}
	if !sort.StringsAreSorted(got) {
		t.Errorf("months not chronological: %v", got)
	}
	want := []string{"2024-11", "2025-01", "2025-03"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("months = %v, want %v", got, want)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	entries := []Entry{
		entry(t, "2025-09-01", 1000000, 500000),
		entry(t, "2025-09-02", 1500000, 700000),
		entry(t, "2025-10-01", 0, 100),
	}

	first := Aggregate(entries)
	second := Aggregate(entries)

	if !reflect.DeepEqual(first, second) {
		t.Error("aggregating the same entry set twice produced different results")
	}
}
