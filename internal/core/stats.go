package core

import "sort"

// MarginWhenNoRevenue is the profit margin reported for a bucket whose
// revenue is zero. Dividing by zero revenue is undefined; reporting 0 is a
// policy choice, not arithmetic, so it lives here as a named constant.
const MarginWhenNoRevenue = 0.0

// MonthlyStat is one row of the chronological monthly rollup.
type MonthlyStat struct {
	Month        string  `json:"month"`
	Revenue      float64 `json:"revenue"`
	Expense      float64 `json:"expense"`
	ProfitLoss   float64 `json:"profitloss"`
	ProfitMargin float64 `json:"profitMargin"`
}

// Stats is the full aggregation output for one user's entry set.
//
// Daily and yearly rollups are maps keyed by bucket key; consumers sort the
// keys (lexicographic is chronological for YYYY-MM-DD and YYYY). Monthly
// rollups are pre-sorted. Buckets with no entries are omitted, never
// zero-filled. EntryCount distinguishes "no data" from legitimate zeros in
// the insight metrics.
type Stats struct {
	DailyRevenue    map[string]float64 `json:"dailyRevenue"`
	DailyExpense    map[string]float64 `json:"dailyExpense"`
	DailyProfitloss map[string]float64 `json:"dailyProfitloss"`

	MonthlyStats []MonthlyStat `json:"monthlyStats"`

	YearlyRevenue      map[string]float64 `json:"yearlyRevenue"`
	YearlyExpense      map[string]float64 `json:"yearlyExpense"`
	YearlyProfitloss   map[string]float64 `json:"yearlyProfitloss"`
	YearlyProfitMargin map[string]float64 `json:"yearlyProfitMargin"`

	AvgRevenue float64 `json:"avgRevenue"`
	MaxProfit  float64 `json:"maxProfit"`
	MinExpense float64 `json:"minExpense"`
	MaxRevenue float64 `json:"maxRevenue"`

	EntryCount int `json:"entryCount"`
}

// bucket accumulates one time bucket in exact cents.
type bucket struct {
	revenue    int64
	expense    int64
	profitloss int64
}

func (b *bucket) add(e Entry) {
	b.revenue += e.Revenue.Cents
	b.expense += e.Expense.Cents
	b.profitloss += e.ProfitLoss.Cents
}

// ProfitMargin returns profit/loss over revenue as a percentage, computed
// from cents at full precision. Rounding is the consumer's job.
func ProfitMargin(profitlossCents, revenueCents int64) float64 {
	if revenueCents == 0 {
		return MarginWhenNoRevenue
	}
	return float64(profitlossCents) / float64(revenueCents) * 100.0
}

// Aggregate buckets a user's validated entries into daily, monthly and
// yearly rollups and computes the insight metrics.
//
// It is a pure, deterministic, total function of the entry slice: same
// input, same output, no partial results, no errors. Entries must have
// passed Entry.Validate and carry a recomputed ProfitLoss; that is the
// write path's job, never this function's.
func Aggregate(entries []Entry) Stats {
	daily := make(map[string]*bucket)
	monthly := make(map[string]*bucket)
	yearly := make(map[string]*bucket)

	var totalRevenue int64
	var maxProfit, minExpense, maxRevenue int64

	for i, e := range entries {
		key := e.Date.Key()
		if daily[key] == nil {
			daily[key] = &bucket{}
		}
		daily[key].add(e)

		mk := e.Date.MonthKey()
		if monthly[mk] == nil {
			monthly[mk] = &bucket{}
		}
		monthly[mk].add(e)

		yk := e.Date.YearKey()
		if yearly[yk] == nil {
			yearly[yk] = &bucket{}
		}
		yearly[yk].add(e)

		totalRevenue += e.Revenue.Cents
		if i == 0 {
			maxProfit = e.ProfitLoss.Cents
			minExpense = e.Expense.Cents
			maxRevenue = e.Revenue.Cents
			continue
		}
		if e.ProfitLoss.Cents > maxProfit {
			maxProfit = e.ProfitLoss.Cents
		}
		if e.Expense.Cents < minExpense {
			minExpense = e.Expense.Cents
		}
		if e.Revenue.Cents > maxRevenue {
			maxRevenue = e.Revenue.Cents
		}
	}

	stats := Stats{
		DailyRevenue:       make(map[string]float64, len(daily)),
		DailyExpense:       make(map[string]float64, len(daily)),
		DailyProfitloss:    make(map[string]float64, len(daily)),
		YearlyRevenue:      make(map[string]float64, len(yearly)),
		YearlyExpense:      make(map[string]float64, len(yearly)),
		YearlyProfitloss:   make(map[string]float64, len(yearly)),
		YearlyProfitMargin: make(map[string]float64, len(yearly)),
		MonthlyStats:       make([]MonthlyStat, 0, len(monthly)),
		EntryCount:         len(entries),
	}

	for key, b := range daily {
		stats.DailyRevenue[key] = Money{Cents: b.revenue}.Units()
		stats.DailyExpense[key] = Money{Cents: b.expense}.Units()
		stats.DailyProfitloss[key] = Money{Cents: b.profitloss}.Units()
	}

	monthKeys := make([]string, 0, len(monthly))
	for key := range monthly {
		monthKeys = append(monthKeys, key)
	}
	sort.Strings(monthKeys)
	for _, key := range monthKeys {
		b := monthly[key]
		stats.MonthlyStats = append(stats.MonthlyStats, MonthlyStat{
			Month:        key,
			Revenue:      Money{Cents: b.revenue}.Units(),
			Expense:      Money{Cents: b.expense}.Units(),
			ProfitLoss:   Money{Cents: b.profitloss}.Units(),
			ProfitMargin: ProfitMargin(b.profitloss, b.revenue),
		})
	}

	for key, b := range yearly {
		stats.YearlyRevenue[key] = Money{Cents: b.revenue}.Units()
		stats.YearlyExpense[key] = Money{Cents: b.expense}.Units()
		stats.YearlyProfitloss[key] = Money{Cents: b.profitloss}.Units()
		stats.YearlyProfitMargin[key] = ProfitMargin(b.profitloss, b.revenue)
	}

	if len(entries) > 0 {
		avgCents := float64(totalRevenue) / float64(len(entries))
		stats.AvgRevenue = avgCents / 100.0
		stats.MaxProfit = Money{Cents: maxProfit}.Units()
		stats.MinExpense = Money{Cents: minExpense}.Units()
		stats.MaxRevenue = Money{Cents: maxRevenue}.Units()
	}

	return stats
}
