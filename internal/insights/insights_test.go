package insights

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/report"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func aggregate(t *testing.T, rows ...core.LedgerEntry) report.Aggregate {
	t.Helper()
	agg, err := report.Compute(rows, report.Filter{Mode: report.ModeMonth, Year: 2024, Month: time.March})
	require.NoError(t, err)
	return agg
}

func row(amount, payer, cat string) core.LedgerEntry {
	return core.LedgerEntry{
		Amount:           dec(amount),
		PaidBy:           payer,
		Category:         cat,
		PaymentMethod:    core.Cash,
		Date:             core.NewDate(2024, time.March, 10),
		InstallmentIndex: 1,
		InstallmentTotal: 1,
	}
}

func kinds(ins []Insight) []Kind {
	out := make([]Kind, 0, len(ins))
	for _, in := range ins {
		out = append(out, in.Kind)
	}
	return out
}

func TestDeriveSkewNamesLowerPayer(t *testing.T) {
	agg := aggregate(t, row("50", "Tomi", "Casa"), row("150", "Gabi", "Autos"))
	ins := Derive(agg, DefaultRules())

	require.NotEmpty(t, ins)
	assert.Equal(t, KindBalanceSkew, ins[0].Kind)
	assert.Equal(t, SeverityWarning, ins[0].Severity)
	assert.Contains(t, ins[0].Text, "Tomi")
	assert.Contains(t, ins[0].Text, "100.00")
}

func TestDeriveBalanced(t *testing.T) {
	agg := aggregate(t,
		row("100", "Tomi", "Casa"), row("95", "Gabi", "Autos"),
		row("100", "Tomi", "Salidas"), row("100", "Gabi", "Perra"),
	)
	ins := Derive(agg, DefaultRules())
	assert.Equal(t, []Kind{KindBalanced}, kinds(ins))
	assert.Equal(t, SeverityInfo, ins[0].Severity)
}

func TestDeriveSkewThresholdIsStrict(t *testing.T) {
	// diff 20 == 0.10 x 200
	agg := aggregate(t, row("90", "Tomi", "Casa"), row("110", "Gabi", "Autos"), row("0.00", "Gabi", "Perra"))
	ins := Derive(agg, Rules{Payers: []string{"Tomi", "Gabi"}, SkewThreshold: 0.10, ConcentrationThreshold: 0.99})
	assert.Equal(t, []Kind{KindBalanced}, kinds(ins))
}

func TestDeriveMissingPayerCountsAsZero(t *testing.T) {
	agg := aggregate(t, row("80", "Gabi", "Casa"), row("80", "Gabi", "Autos"))
	ins := Derive(agg, DefaultRules())
	require.NotEmpty(t, ins)
	assert.Equal(t, KindBalanceSkew, ins[0].Kind)
	assert.Contains(t, ins[0].Text, "Tomi paid")
}

func TestDeriveConcentration(t *testing.T) {
	agg := aggregate(t, row("100", "Tomi", "Casa"), row("90", "Gabi", "Casa"), row("10", "Gabi", "Perra"))
	ins := Derive(agg, DefaultRules())
	assert.Contains(t, kinds(ins), KindCategoryConcentration)
	last := ins[len(ins)-1]
	assert.Contains(t, last.Text, "Casa")
	assert.Contains(t, last.Text, "95%")
}

func TestDeriveNoConcentrationWhenSpread(t *testing.T) {
	agg := aggregate(t,
		row("25", "Tomi", "Casa"), row("25", "Gabi", "Autos"),
		row("25", "Tomi", "Salidas"), row("25", "Gabi", "Perra"),
	)
	assert.NotContains(t, kinds(Derive(agg, DefaultRules())), KindCategoryConcentration)
}

func TestDeriveEmpty(t *testing.T) {
	assert.Empty(t, Derive(aggregate(t), DefaultRules()))
	assert.Empty(t, Derive(report.Aggregate{}, DefaultRules()))
}
