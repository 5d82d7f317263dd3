// Package report rebuilds period totals from ledger snapshots.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gastos/internal/core"
)

// Mode selects the period a Filter covers.
type Mode string

const (
	ModeMonth   Mode = "month"
	ModeYear    Mode = "year"
	ModeAllTime Mode = "all"
)

// Filter selects the entries an Aggregate covers. Month is only read in
// ModeMonth; Year is read in ModeMonth and ModeYear and picks the series year
// in ModeAllTime (0 means the latest year present).
type Filter struct {
	Mode          Mode
	Year          int
	Month         time.Month
	PaymentMethod core.PaymentMethod // empty matches every method
}

// Validate checks the fields the mode reads.
func (f Filter) Validate() error {
	switch f.Mode {
	case ModeMonth:
		if f.Month < time.January || f.Month > time.December {
			return &core.ValidationError{Field: "month", Message: fmt.Sprintf("month %d out of range 1-12", f.Month)}
		}
		if f.Year < 1 {
			return &core.ValidationError{Field: "year", Message: "year is required"}
		}
	case ModeYear:
		if f.Year < 1 {
			return &core.ValidationError{Field: "year", Message: "year is required"}
		}
	case ModeAllTime:
		if f.Year < 0 {
			return &core.ValidationError{Field: "year", Message: "year cannot be negative"}
		}
	default:
		return &core.ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", f.Mode)}
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.IsValid() {
		return &core.ValidationError{Field: "payment_method", Message: fmt.Sprintf("unknown payment method %q", f.PaymentMethod)}
	}
	return nil
}

// Matches reports whether e falls inside the filter.
func (f Filter) Matches(e core.LedgerEntry) bool {
	if f.PaymentMethod != "" && e.PaymentMethod != f.PaymentMethod {
		return false
	}
	switch f.Mode {
	case ModeMonth:
		return e.Date.Year() == f.Year && e.Date.Month() == f.Month
	case ModeYear:
		return e.Date.Year() == f.Year
	default:
		return true
	}
}

// Key is a stable string form, used as a cache key.
func (f Filter) Key() string {
	return fmt.Sprintf("%s:%d:%d:%s", f.Mode, f.Year, f.Month, f.PaymentMethod)
}

// ParseFilter builds a filter from request strings. Empty year and month
// default to now; an empty mode means the current month; "all" or empty
// method means every method.
func ParseFilter(mode, year, month, method string, now time.Time) (Filter, error) {
	f := Filter{Mode: Mode(strings.ToLower(strings.TrimSpace(mode)))}
	if f.Mode == "" {
		f.Mode = ModeMonth
	}

	switch y := strings.TrimSpace(year); {
	case y != "":
		v, err := strconv.Atoi(y)
		if err != nil {
			return Filter{}, &core.ValidationError{Field: "year", Message: fmt.Sprintf("invalid year %q", year)}
		}
		f.Year = v
	case f.Mode != ModeAllTime:
		f.Year = now.Year()
	}

	switch m := strings.TrimSpace(month); {
	case m != "":
		v, err := strconv.Atoi(m)
		if err != nil {
			return Filter{}, &core.ValidationError{Field: "month", Message: fmt.Sprintf("invalid month %q", month)}
		}
		f.Month = time.Month(v)
	case f.Mode == ModeMonth:
		f.Month = now.Month()
	}

	if m := strings.TrimSpace(method); m != "" && !strings.EqualFold(m, "all") {
		pm, err := core.ParsePaymentMethod(m)
		if err != nil {
			return Filter{}, err
		}
		f.PaymentMethod = pm
	}
	return f, f.Validate()
}
