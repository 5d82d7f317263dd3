package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/report"
)

const maxBodyBytes = 64 << 10

// errBadRequest marks bodies that could not be decoded at all.
var errBadRequest = errors.New("malformed request body")

// expenseRequest is the JSON body of POST and PUT /api/expenses. Amount is a
// string ("1.234,50") or a number; category may be a "Category - Subcategory"
// label when subcategory is empty.
type expenseRequest struct {
	Amount        json.RawMessage `json:"amount"`
	Category      string          `json:"category"`
	Subcategory   string          `json:"subcategory"`
	Date          string          `json:"date"`
	PaymentMethod string          `json:"payment_method"`
	Installments  int             `json:"installments"`
	PaidBy        string          `json:"paid_by"`
	Description   string          `json:"description"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

// decodeJSON reads one JSON object from r into v, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

// intent converts the request into an intent. A missing date means today, a
// missing method means cash and a missing installment count means one.
func (req expenseRequest) intent(now time.Time) (core.ExpenseIntent, error) {
	amount, err := parseAmountField(req.Amount)
	if err != nil {
		return core.ExpenseIntent{}, err
	}

	date := core.DateOf(now)
	if s := strings.TrimSpace(req.Date); s != "" {
		if date, err = core.ParseDate(s); err != nil {
			return core.ExpenseIntent{}, &core.ValidationError{Field: "date", Message: err.Error(), Err: err}
		}
	}

	method := core.Cash
	if s := strings.TrimSpace(req.PaymentMethod); s != "" {
		if method, err = core.ParsePaymentMethod(s); err != nil {
			return core.ExpenseIntent{}, err
		}
	}

	installments := req.Installments
	if installments == 0 {
		installments = 1
	}

	paidBy := sanitizeInput(req.PaidBy)
	if paidBy == "" {
		return core.ExpenseIntent{}, &core.ValidationError{Field: "paid_by", Message: "paid_by is required"}
	}

	ref := core.CategoryRef{Category: sanitizeInput(req.Category), Subcategory: sanitizeInput(req.Subcategory)}
	if ref.Subcategory == "" {
		ref = core.ParseLabel(ref.Category)
	}

	return core.ExpenseIntent{
		Amount:        amount,
		Category:      ref.Category,
		Subcategory:   ref.Subcategory,
		Date:          date,
		PaymentMethod: method,
		Installments:  installments,
		PaidBy:        paidBy,
		Description:   sanitizeInput(req.Description),
	}, nil
}

func parseAmountField(raw json.RawMessage) (d decimal.Decimal, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return d, &core.ValidationError{Field: "amount", Message: "amount is required", Err: core.ErrInvalidAmount}
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return d, fmt.Errorf("%w: amount: %v", errBadRequest, err)
		}
	}
	if d, err = core.ParseAmount(s); err != nil {
		return d, &core.ValidationError{Field: "amount", Message: fmt.Sprintf("invalid amount %q", s), Err: err}
	}
	return d, nil
}

// parseFilter reads mode, year, month and method from the query string.
func parseFilter(r *http.Request, defaultMode report.Mode, now time.Time) (report.Filter, error) {
	q := r.URL.Query()
	mode := q.Get("mode")
	if strings.TrimSpace(mode) == "" {
		mode = string(defaultMode)
	}
	return report.ParseFilter(mode, q.Get("year"), q.Get("month"), q.Get("method"), now)
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s))
}
