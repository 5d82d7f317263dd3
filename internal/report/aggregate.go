package report

import (
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// CategoryAmount is the total of one top-level category.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Aggregate is the derived view of a filtered ledger snapshot.
type Aggregate struct {
	Filter        Filter
	Total         decimal.Decimal
	Count         int
	ByPayer       map[string]decimal.Decimal
	ByCategory    []CategoryAmount  // descending by amount, ties by name
	MonthlySeries []decimal.Decimal // 12 values, January first; empty for month views
	SeriesYear    int
}

// Clone returns a copy that shares no maps or slices with a.
func (a Aggregate) Clone() Aggregate {
	out := a
	out.ByPayer = maps.Clone(a.ByPayer)
	out.ByCategory = slices.Clone(a.ByCategory)
	out.MonthlySeries = slices.Clone(a.MonthlySeries)
	return out
}

// Compute filters entries and folds them into an Aggregate. It reads only its
// arguments, so the same inputs always produce the same result.
func Compute(entries []core.LedgerEntry, f Filter) (Aggregate, error) {
	if err := f.Validate(); err != nil {
		return Aggregate{}, err
	}

	agg := Aggregate{
		Filter:  f,
		Total:   decimal.Zero,
		ByPayer: make(map[string]decimal.Decimal),
	}
	byCat := make(map[string]decimal.Decimal)
	for _, e := range entries {
		if !f.Matches(e) {
			continue
		}
		agg.Total = agg.Total.Add(e.Amount)
		agg.Count++
		payer := strings.TrimSpace(e.PaidBy)
		agg.ByPayer[payer] = agg.ByPayer[payer].Add(e.Amount)
		byCat[e.Category] = byCat[e.Category].Add(e.Amount)
	}

	agg.ByCategory = make([]CategoryAmount, 0, len(byCat))
	for name, amt := range byCat {
		agg.ByCategory = append(agg.ByCategory, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(agg.ByCategory, func(i, j int) bool {
		a, b := agg.ByCategory[i], agg.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})

	if f.Mode != ModeMonth {
		agg.SeriesYear = seriesYear(entries, f)
		agg.MonthlySeries = monthlySeries(entries, f.PaymentMethod, agg.SeriesYear)
	}
	return agg, nil
}

func seriesYear(entries []core.LedgerEntry, f Filter) int {
	if f.Year > 0 {
		return f.Year
	}
	latest := 0
	for _, e := range entries {
		if y := e.Date.Year(); y > latest {
			latest = y
		}
	}
	return latest
}

func monthlySeries(entries []core.LedgerEntry, method core.PaymentMethod, year int) []decimal.Decimal {
	series := make([]decimal.Decimal, 12)
	for i := range series {
		series[i] = decimal.Zero
	}
	for _, e := range entries {
		if e.Date.Year() != year {
			continue
		}
		if method != "" && e.PaymentMethod != method {
			continue
		}
		m := int(e.Date.Month()) - 1
		series[m] = series[m].Add(e.Amount)
	}
	return series
}

// Share returns amount / total, or zero when total is zero.
func Share(amount, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return amount.Div(total)
}

// Payers returns the payer names of agg sorted alphabetically.
func (a Aggregate) Payers() []string {
	out := make([]string, 0, len(a.ByPayer))
	for p := range a.ByPayer {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
