package installments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cardIntent(amount string, n int, date core.Date) core.ExpenseIntent {
	return core.ExpenseIntent{
		Amount:        dec(amount),
		Category:      "Shopping/Compras",
		Date:          date,
		PaymentMethod: core.Card,
		Installments:  n,
		PaidBy:        "Gabi",
		Description:   "TV",
	}
}

func TestExpandSingleInstallment(t *testing.T) {
	in := core.ExpenseIntent{
		Amount:        dec("1500.00"),
		Category:      "Supermercado",
		Date:          core.NewDate(2024, time.March, 15),
		PaymentMethod: core.Cash,
		Installments:  1,
		PaidBy:        "Tomi",
		Description:   "compras",
	}
	entries, err := Expand(in, "src-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.True(t, e.Amount.Equal(dec("1500.00")))
	assert.Equal(t, core.NewDate(2024, time.March, 15), e.Date)
	assert.Equal(t, 1, e.InstallmentIndex)
	assert.Equal(t, 1, e.InstallmentTotal)
	assert.Equal(t, "compras", e.Description)
	assert.Equal(t, "src-1", e.SourceID)
	assert.Empty(t, e.ID, "ids are assigned by the store")
}

func TestExpandThreeInstallmentsAcrossYear(t *testing.T) {
	entries, err := Expand(cardIntent("300.00", 3, core.NewDate(2024, time.November, 10)), "src-2")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	want := []core.Date{
		core.NewDate(2024, time.November, 10),
		core.NewDate(2024, time.December, 10),
		core.NewDate(2025, time.January, 10),
	}
	for i, e := range entries {
		assert.True(t, e.Amount.Equal(dec("100.00")), "entry %d amount %s", i, e.Amount)
		assert.Equal(t, want[i], e.Date)
		assert.Equal(t, i+1, e.InstallmentIndex)
		assert.Equal(t, 3, e.InstallmentTotal)
	}
	assert.Equal(t, "TV (2/3)", entries[1].Description)
	require.NoError(t, CheckGroup(entries))
}

func TestExpandRoundingGap(t *testing.T) {
	entries, err := Expand(cardIntent("100.00", 3, core.NewDate(2024, time.May, 1)), "src-3")
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, e.Amount.Equal(dec("33.33")))
	}
	assert.True(t, Total(entries).Equal(dec("99.99")))
}

func TestExpandNonCardForcesSingle(t *testing.T) {
	for _, pm := range []core.PaymentMethod{core.Cash, core.Debit, core.Transfer} {
		in := cardIntent("120.00", 6, core.NewDate(2024, time.May, 1))
		in.PaymentMethod = pm
		entries, err := Expand(in, "src")
		require.NoError(t, err, pm)
		require.Len(t, entries, 1, pm)
		assert.True(t, entries[0].Amount.Equal(dec("120.00")))
		assert.Equal(t, "TV", entries[0].Description)
	}
}

func TestExpandEndOfMonthClamp(t *testing.T) {
	entries, err := Expand(cardIntent("400.00", 4, core.NewDate(2024, time.January, 31)), "src")
	require.NoError(t, err)
	got := make([]core.Date, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Date)
	}
	assert.Equal(t, []core.Date{
		core.NewDate(2024, time.January, 31),
		core.NewDate(2024, time.February, 29),
		core.NewDate(2024, time.March, 31),
		core.NewDate(2024, time.April, 30),
	}, got)
}

// Properties over a grid of amounts, counts and start dates.
func TestExpandProperties(t *testing.T) {
	amounts := []string{"0.01", "1.00", "99.99", "100.00", "100.01", "1234.56", "99999.99"}
	starts := []core.Date{
		core.NewDate(2023, time.January, 31),
		core.NewDate(2024, time.February, 29),
		core.NewDate(2024, time.August, 15),
		core.NewDate(2024, time.December, 31),
	}
	for _, a := range amounts {
		for n := 1; n <= core.MaxInstallments; n++ {
			for _, start := range starts {
				entries, err := Expand(cardIntent(a, n, start), "src")
				require.NoError(t, err)
				require.Len(t, entries, n)
				require.NoError(t, CheckGroup(entries))

				gap := Total(entries).Sub(dec(a)).Abs()
				bound := decimal.NewFromInt(int64(n)).Mul(dec("0.01"))
				assert.True(t, gap.LessThanOrEqual(bound), "%s/%d gap %s", a, n, gap)

				for k, e := range entries {
					wantMonth := (int(start.Month())-1+k)%12 + 1
					wantYear := start.Year() + (int(start.Month())-1+k)/12
					assert.Equal(t, wantMonth, int(e.Date.Month()))
					assert.Equal(t, wantYear, e.Date.Year())
				}
			}
		}
	}
}

func TestExpandRejects(t *testing.T) {
	base := cardIntent("100.00", 3, core.NewDate(2024, time.May, 1))
	cases := []struct {
		name   string
		mutate func(*core.ExpenseIntent)
		source string
	}{
		{"zero amount", func(in *core.ExpenseIntent) { in.Amount = decimal.Zero }, "s"},
		{"negative amount", func(in *core.ExpenseIntent) { in.Amount = dec("-1") }, "s"},
		{"no category", func(in *core.ExpenseIntent) { in.Category = "" }, "s"},
		{"no date", func(in *core.ExpenseIntent) { in.Date = core.Date{} }, "s"},
		{"zero installments", func(in *core.ExpenseIntent) { in.Installments = 0 }, "s"},
		{"25 installments", func(in *core.ExpenseIntent) { in.Installments = 25 }, "s"},
		{"blank source", func(in *core.ExpenseIntent) {}, "  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			entries, err := Expand(in, tc.source)
			assert.Nil(t, entries)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestCheckGroupDetectsGaps(t *testing.T) {
	entries, err := Expand(cardIntent("300.00", 3, core.NewDate(2024, time.May, 1)), "src")
	require.NoError(t, err)
	broken := []core.LedgerEntry{entries[0], entries[2]}
	assert.Error(t, CheckGroup(broken))
	assert.Error(t, CheckGroup(nil))
}

func TestExpandJanuaryPlan(t *testing.T) {
	entries, err := Expand(cardIntent("300", 3, core.NewDate(2025, time.January, 15)), "src")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, month := range []time.Month{time.January, time.February, time.March} {
		assert.Equal(t, core.NewDate(2025, month, 15), entries[i].Date)
		assert.True(t, entries[i].Amount.Equal(dec("100")))
	}
}

func TestExpandConservationBound(t *testing.T) {
	entries, err := Expand(cardIntent("100.01", 3, core.NewDate(2025, time.January, 15)), "src")
	require.NoError(t, err)
	gap := Total(entries).Sub(dec("100.01")).Abs()
	assert.True(t, gap.LessThanOrEqual(dec("0.02")), "gap %s", gap)
}
