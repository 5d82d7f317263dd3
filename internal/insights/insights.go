// Package insights turns an aggregate into short observations about it.
package insights

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/report"
)

type (
	Kind     string
	Severity string
)

const (
	KindBalanceSkew           Kind = "balance_skew"
	KindBalanced              Kind = "balanced"
	KindCategoryConcentration Kind = "category_concentration"

	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Insight is one observation about an aggregate.
type Insight struct {
	Kind     Kind     `json:"kind"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

// Rules configures Derive.
type Rules struct {
	Payers                 []string
	SkewThreshold          float64 // fraction of total
	ConcentrationThreshold float64 // fraction of total
}

// DefaultRules compares Tomi and Gabi, flagging a 10% payer gap and a 40%
// single-category share.
func DefaultRules() Rules {
	return Rules{
		Payers:                 []string{"Tomi", "Gabi"},
		SkewThreshold:          0.10,
		ConcentrationThreshold: 0.40,
	}
}

// Derive returns the insights for agg. An empty aggregate yields none.
func Derive(agg report.Aggregate, rules Rules) []Insight {
	if !agg.Total.IsPositive() {
		return []Insight{}
	}
	if len(rules.Payers) == 0 {
		rules.Payers = DefaultRules().Payers
	}

	out := make([]Insight, 0, 2)
	out = append(out, balance(agg, rules))
	if in, ok := concentration(agg, rules); ok {
		out = append(out, in)
	}
	return out
}

func balance(agg report.Aggregate, rules Rules) Insight {
	maxName, minName := rules.Payers[0], rules.Payers[0]
	maxAmt, minAmt := agg.ByPayer[maxName], agg.ByPayer[minName]
	for _, p := range rules.Payers[1:] {
		amt := agg.ByPayer[p]
		if amt.GreaterThan(maxAmt) {
			maxName, maxAmt = p, amt
		}
		if amt.LessThan(minAmt) {
			minName, minAmt = p, amt
		}
	}

	diff := maxAmt.Sub(minAmt)
	limit := agg.Total.Mul(decimal.NewFromFloat(rules.SkewThreshold))
	if diff.GreaterThan(limit) {
		return Insight{
			Kind:     KindBalanceSkew,
			Title:    "Unbalanced spending",
			Text:     fmt.Sprintf("%s paid %s less than %s this period.", minName, core.FormatAmount(diff), maxName),
			Severity: SeverityWarning,
		}
	}
	return Insight{
		Kind:     KindBalanced,
		Title:    "Balanced spending",
		Text:     "Spending is evenly shared.",
		Severity: SeverityInfo,
	}
}

func concentration(agg report.Aggregate, rules Rules) (Insight, bool) {
	if len(agg.ByCategory) == 0 {
		return Insight{}, false
	}
	top := agg.ByCategory[0]
	share := report.Share(top.Amount, agg.Total)
	if !share.GreaterThan(decimal.NewFromFloat(rules.ConcentrationThreshold)) {
		return Insight{}, false
	}
	pct := share.Mul(decimal.NewFromInt(100)).Round(0)
	return Insight{
		Kind:     KindCategoryConcentration,
		Title:    "High concentration",
		Text:     fmt.Sprintf("%s accounts for %s%% of spending.", top.Name, pct.String()),
		Severity: SeverityWarning,
	}, true
}
