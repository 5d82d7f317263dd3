// Package installments turns one submitted expense into the dated ledger
// entries it is charged as.
package installments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// Expand validates intent and produces its ledger entries, all sharing sourceID.
//
// Non-card methods always yield a single entry carrying the full amount. A card
// plan of n installments yields n entries of amount/n rounded to cents, dated
// one calendar month apart starting on the purchase date. The rounding
// remainder is not redistributed, so the group total may differ from the
// intent amount by at most n cents.
func Expand(intent core.ExpenseIntent, sourceID string) ([]core.LedgerEntry, error) {
	intent = intent.Normalized()
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sourceID) == "" {
		return nil, &core.ValidationError{Field: "source_id", Message: "source id is required"}
	}

	n := intent.Installments
	per := intent.Amount
	if n > 1 {
		per = intent.Amount.DivRound(decimal.NewFromInt(int64(n)), 2)
	}

	entries := make([]core.LedgerEntry, 0, n)
	for k := 0; k < n; k++ {
		entries = append(entries, core.LedgerEntry{
			SourceID:         sourceID,
			Amount:           per,
			Category:         intent.Category,
			Subcategory:      intent.Subcategory,
			PaymentMethod:    intent.PaymentMethod,
			PaidBy:           intent.PaidBy,
			Description:      Describe(intent.Description, k+1, n),
			Date:             intent.Date.AddMonths(k),
			InstallmentIndex: k + 1,
			InstallmentTotal: n,
		})
	}
	return entries, nil
}

// Describe appends the "(k/n)" installment suffix to desc; single entries
// keep desc unchanged.
func Describe(desc string, index, total int) string {
	if total == 1 {
		return desc
	}
	suffix := fmt.Sprintf("(%d/%d)", index, total)
	if desc == "" {
		return suffix
	}
	return desc + " " + suffix
}

// Total sums the amounts of a group.
func Total(entries []core.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// CheckGroup verifies the structural invariants of one source group: shared
// source id, indices exactly 1..n in order and non-decreasing dates.
func CheckGroup(entries []core.LedgerEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("empty group")
	}
	src := entries[0].SourceID
	n := len(entries)
	for i, e := range entries {
		if e.SourceID != src {
			return fmt.Errorf("entry %d: source id %q differs from %q", i, e.SourceID, src)
		}
		if e.InstallmentIndex != i+1 || e.InstallmentTotal != n {
			return fmt.Errorf("entry %d: installment %d/%d, want %d/%d", i, e.InstallmentIndex, e.InstallmentTotal, i+1, n)
		}
		if i > 0 && e.Date.Before(entries[i-1].Date) {
			return fmt.Errorf("entry %d: date %s before %s", i, e.Date, entries[i-1].Date)
		}
	}
	return nil
}
