package report

import (
	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// Summary is the wire form of an Aggregate.
type Summary struct {
	Mode          Mode                       `json:"mode"`
	Year          int                        `json:"year,omitempty"`
	Month         int                        `json:"month,omitempty"`
	PaymentMethod core.PaymentMethod         `json:"payment_method,omitempty"`
	Total         decimal.Decimal            `json:"total"`
	Count         int                        `json:"count"`
	ByPayer       map[string]decimal.Decimal `json:"by_payer"`
	ByCategory    []CategoryAmount           `json:"by_category"`
	MonthlySeries []decimal.Decimal          `json:"monthly_series,omitempty"`
	SeriesYear    int                        `json:"series_year,omitempty"`
}

func (a Aggregate) Summary() Summary {
	return Summary{
		Mode:          a.Filter.Mode,
		Year:          a.Filter.Year,
		Month:         int(a.Filter.Month),
		PaymentMethod: a.Filter.PaymentMethod,
		Total:         a.Total,
		Count:         a.Count,
		ByPayer:       a.ByPayer,
		ByCategory:    a.ByCategory,
		MonthlySeries: a.MonthlySeries,
		SeriesYear:    a.SeriesYear,
	}
}
