package google

import (
	"fmt"
	"strconv"
	"strings"

	ports "bilancio/internal/sheets"
)

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseRow converts one sheet row into a Row. Header rows and anything the
// sheet user typed by hand that does not parse are skipped.
func parseRow(cols []string) (ports.Row, bool) {
	if len(cols) < 5 {
		return ports.Row{}, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
	if err != nil || id <= 0 {
		return ports.Row{}, false
	}
	revenue, ok := parseDecimal(cols[2])
	if !ok {
		return ports.Row{}, false
	}
	expense, ok := parseDecimal(cols[3])
	if !ok {
		return ports.Row{}, false
	}
	profitloss, ok := parseDecimal(cols[4])
	if !ok {
		return ports.Row{}, false
	}
	return ports.Row{
		EntryID:    id,
		Date:       strings.TrimSpace(cols[1]),
		Revenue:    revenue,
		Expense:    expense,
		ProfitLoss: profitloss,
	}, true
}

func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// Normalize decimal comma
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
