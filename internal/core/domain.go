package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Cash     PaymentMethod = "cash"
	Debit    PaymentMethod = "debit"
	Card     PaymentMethod = "card"
	Transfer PaymentMethod = "transfer"
)

const (
	// MaxInstallments is the longest card plan the submission form offers.
	MaxInstallments = 24
	// MaxDescriptionLength bounds free-text descriptions.
	MaxDescriptionLength = 200
)

type (
	PaymentMethod string

	// ExpenseIntent is what the user submits. It is consumed once by the
	// installment expander and never stored as such.
	ExpenseIntent struct {
		Amount        decimal.Decimal `json:"amount"`
		Category      string          `json:"category"`
		Subcategory   string          `json:"subcategory,omitempty"`
		Date          Date            `json:"date"` // purchase date, first installment
		PaymentMethod PaymentMethod   `json:"payment_method"`
		Installments  int             `json:"installments"` // only meaningful for Card
		PaidBy        string          `json:"paid_by"`
		Description   string          `json:"description,omitempty"`
	}

	// LedgerEntry is one persisted row: a simple expense or one installment of a plan.
	LedgerEntry struct {
		ID               string          `json:"id"`        // assigned by the store
		SourceID         string          `json:"source_id"` // shared by every entry expanded from the same intent
		Amount           decimal.Decimal `json:"amount"`
		Category         string          `json:"category"`
		Subcategory      string          `json:"subcategory,omitempty"`
		PaymentMethod    PaymentMethod   `json:"payment_method"`
		PaidBy           string          `json:"paid_by"`
		Description      string          `json:"description,omitempty"`
		Date             Date            `json:"date"`
		InstallmentIndex int             `json:"installment_index"` // 1-based
		InstallmentTotal int             `json:"installment_total"`
		CreatedAt        time.Time       `json:"created_at"`
	}
)

var paymentMethodAliases = map[string]PaymentMethod{
	"cash":              Cash,
	"efectivo":          Cash,
	"debit":             Debit,
	"debito":            Debit,
	"débito":            Debit,
	"card":              Card,
	"credit":            Card,
	"tarjeta":           Card,
	"tarjeta (crédito)": Card,
	"tarjeta (credito)": Card,
	"transfer":          Transfer,
	"transferencia":     Transfer,
}

// ParsePaymentMethod accepts canonical names and the Spanish labels used by the
// original forms.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if pm, ok := paymentMethodAliases[key]; ok {
		return pm, nil
	}
	return "", &ValidationError{Field: "payment_method", Message: fmt.Sprintf("unknown payment method %q", s)}
}

// PaymentMethods returns the canonical methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{Cash, Debit, Card, Transfer}
}

func (pm PaymentMethod) String() string {
	return string(pm)
}

// IsValid reports whether pm is one of the canonical methods.
func (pm PaymentMethod) IsValid() bool {
	switch pm {
	case Cash, Debit, Card, Transfer:
		return true
	default:
		return false
	}
}

// AllowsInstallments is true only for credit card payments.
func (pm PaymentMethod) AllowsInstallments() bool {
	return pm == Card
}

// Normalized returns a copy of the intent with trimmed text fields and the
// installment count forced to 1 for methods that cannot be split.
func (in ExpenseIntent) Normalized() ExpenseIntent {
	out := in
	out.Category = strings.TrimSpace(in.Category)
	out.Subcategory = strings.TrimSpace(in.Subcategory)
	out.PaidBy = strings.TrimSpace(in.PaidBy)
	out.Description = strings.TrimSpace(in.Description)
	if !in.PaymentMethod.AllowsInstallments() {
		out.Installments = 1
	}
	return out
}

// Validate checks the intrinsic fields of the intent. Category membership is
// checked by the taxonomy, not here.
func (in ExpenseIntent) Validate() error {
	if !in.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "amount must be greater than zero", Err: ErrInvalidAmount}
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return &ValidationError{Field: "amount", Message: "amount has more than 2 decimal places", Err: ErrInvalidAmount}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &ValidationError{Field: "category", Message: "category is required", Err: ErrEmptyCategory}
	}
	if err := in.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Message: err.Error(), Err: err}
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.IsValid() {
		return &ValidationError{Field: "payment_method", Message: fmt.Sprintf("unknown payment method %q", in.PaymentMethod)}
	}
	if in.Installments < 1 {
		return &ValidationError{Field: "installments", Message: "installments must be at least 1", Err: ErrInvalidInstallments}
	}
	if in.Installments > MaxInstallments {
		return &ValidationError{Field: "installments", Message: fmt.Sprintf("installments must be at most %d", MaxInstallments), Err: ErrInvalidInstallments}
	}
	if len(in.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("description too long (max %d characters)", MaxDescriptionLength)}
	}
	return nil
}

// Ref returns the structured category of the entry.
func (e LedgerEntry) Ref() CategoryRef {
	return CategoryRef{Category: e.Category, Subcategory: e.Subcategory}
}

// IsInstallment reports whether the entry belongs to a plan of more than one charge.
func (e LedgerEntry) IsInstallment() bool {
	return e.InstallmentTotal > 1
}

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidInstallments = errors.New("invalid installment count")
)
