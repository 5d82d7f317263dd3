package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// timestampLayout is fixed width so TEXT timestamps sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

// flexTime accepts the column types both drivers hand back for dates and
// timestamps: time.Time from lib/pq, TEXT from the SQLite schema.
type flexTime struct {
	t time.Time
}

func (f *flexTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		f.t = v
		return nil
	case string:
		return f.parse(v)
	case []byte:
		return f.parse(string(v))
	case nil:
		f.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported time column type %T", src)
	}
}

func (f *flexTime) parse(s string) error {
	for _, layout := range []string{time.RFC3339Nano, core.DateLayout, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			f.t = t
			return nil
		}
	}
	return fmt.Errorf("parse time %q", s)
}

func scanEntry(row rowScanner) (core.LedgerEntry, error) {
	var (
		e        core.LedgerEntry
		id       int64
		amount   decimal.Decimal
		method   string
		date     flexTime
		created  flexTime
		idx, tot int
	)
	err := row.Scan(&id, &e.SourceID, &amount, &e.Category, &e.Subcategory, &method, &e.PaidBy,
		&e.Description, &date, &idx, &tot, &created)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.ID = strconv.FormatInt(id, 10)
	e.Amount = amount
	e.PaymentMethod = core.PaymentMethod(method)
	e.Date = core.DateOf(date.t)
	e.InstallmentIndex = idx
	e.InstallmentTotal = tot
	e.CreatedAt = created.t.UTC()
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]core.LedgerEntry, error) {
	defer rows.Close()
	var out []core.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
