// Package legacy reads JSON exports of the original expense app, either the
// browser localStorage dump or rows exported from its database, and turns them
// into ledger groups.
package legacy

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"gastos/internal/core"
	"gastos/internal/installments"
)

// Issue describes a record or group that was skipped or adjusted.
type Issue struct {
	Row     int    `json:"row"` // 0-based position in the export, -1 for group level issues
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Row < 0 {
		return fmt.Sprintf("group %s: %s", i.Key, i.Message)
	}
	return fmt.Sprintf("row %d: %s", i.Row, i.Message)
}

// Group is one source group ready for InsertBatch.
type Group struct {
	Key      string
	SourceID string
	Entries  []core.LedgerEntry
}

// record is one export row after key normalization.
type record struct {
	row         int
	id          string
	originalID  string
	amount      string
	date        string
	category    string
	subcategory string
	method      string
	paidBy      string
	description string
	index       int
	total       int
}

// legacyNamespace derives stable source ids from legacy keys so that
// importing the same export twice yields the same groups.
var legacyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gastos:legacy-import"))

// Parse decodes an export (a JSON array of objects) into groups. Rows that
// cannot be converted are reported as issues and skipped; only a malformed
// document is an error.
func Parse(r io.Reader) ([]Group, []Issue, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("decode legacy export: %w", err)
	}

	var issues []Issue
	order := []string{}
	byKey := map[string][]core.LedgerEntry{}
	declared := map[string]int{}

	for i, m := range raw {
		rec := normalize(i, m)
		e, err := rec.entry()
		if err != nil {
			issues = append(issues, Issue{Row: i, Message: err.Error()})
			continue
		}
		key := rec.groupKey()
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], e)
		if rec.total > declared[key] {
			declared[key] = rec.total
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		g, issue := buildGroup(key, byKey[key], declared[key])
		if issue != nil {
			issues = append(issues, *issue)
		}
		if g != nil {
			groups = append(groups, *g)
		}
	}
	return groups, issues, nil
}

func normalize(row int, m map[string]any) record {
	rec := record{
		row:         row,
		id:          field(m, "id"),
		originalID:  field(m, "originalId", "original_id", "source_id", "sourceId"),
		amount:      field(m, "amount"),
		date:        field(m, "date"),
		category:    field(m, "category"),
		subcategory: field(m, "subcategory", "sub_category"),
		method:      field(m, "paymentMethod", "payment_method"),
		paidBy:      field(m, "paidBy", "paid_by"),
		description: field(m, "description"),
		index:       intField(m, "currentInstallment", "current_installment", "installment_index"),
		total:       intField(m, "totalInstallments", "total_installments", "installment_total", "installments"),
	}
	if rec.category == "" {
		rec.category = field(m, "type")
	}
	if rec.subcategory == "" {
		ref := core.ParseLabel(rec.category)
		rec.category, rec.subcategory = ref.Category, ref.Subcategory
	}
	return rec
}

func (r record) entry() (core.LedgerEntry, error) {
	amount, err := core.ParseAmount(r.amount)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("invalid amount %q", r.amount)
	}
	date, err := core.ParseDate(r.date)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("invalid date %q", r.date)
	}
	if r.category == "" {
		return core.LedgerEntry{}, fmt.Errorf("missing category")
	}
	method := core.Cash
	if r.method != "" {
		if method, err = core.ParsePaymentMethod(r.method); err != nil {
			return core.LedgerEntry{}, err
		}
	}
	return core.LedgerEntry{
		Amount:           amount,
		Date:             date,
		Category:         r.category,
		Subcategory:      r.subcategory,
		PaymentMethod:    method,
		PaidBy:           r.paidBy,
		Description:      r.description,
		InstallmentIndex: r.index,
	}, nil
}

// groupKey ties installment rows together. Rows written by the browser app
// carry ids of the form "<timestamp>-<k>" for installment k.
func (r record) groupKey() string {
	switch {
	case r.originalID != "":
		return r.originalID
	case r.id == "":
		return "row-" + strconv.Itoa(r.row)
	case r.total > 1:
		if _, err := uuid.Parse(r.id); err != nil {
			if prefix, suffix, ok := cutLast(r.id, "-"); ok && isDigits(suffix) {
				return prefix
			}
		}
		return r.id
	default:
		return r.id
	}
}

func buildGroup(key string, entries []core.LedgerEntry, declared int) (*Group, *Issue) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date)
		}
		return a.InstallmentIndex < b.InstallmentIndex
	})

	src := sourceIDFor(key)
	n := len(entries)
	for i := range entries {
		e := &entries[i]
		e.SourceID = src
		e.InstallmentIndex = i + 1
		e.InstallmentTotal = n
		if n > 1 && !strings.HasSuffix(e.Description, fmt.Sprintf("(%d/%d)", i+1, n)) {
			e.Description = installments.Describe(stripSuffix(e.Description), i+1, n)
		}
	}

	if err := installments.CheckGroup(entries); err != nil {
		return nil, &Issue{Row: -1, Key: key, Message: err.Error()}
	}
	g := &Group{Key: key, SourceID: src, Entries: entries}
	if declared > n {
		return g, &Issue{Row: -1, Key: key,
			Message: fmt.Sprintf("expected %d installments, found %d; renumbered", declared, n)}
	}
	return g, nil
}

func sourceIDFor(key string) string {
	if id, err := uuid.Parse(key); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(legacyNamespace, []byte(key)).String()
}

// field returns the first present key rendered as a trimmed string.
func field(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case json.Number:
			return t.String()
		default:
			return strings.TrimSpace(fmt.Sprint(t))
		}
	}
	return ""
}

func intField(m map[string]any, keys ...string) int {
	n, err := strconv.Atoi(field(m, keys...))
	if err != nil {
		return 0
	}
	return n
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stripSuffix drops a trailing "(k/n)" written with different numbers.
func stripSuffix(desc string) string {
	if !strings.HasSuffix(desc, ")") {
		return desc
	}
	open := strings.LastIndex(desc, "(")
	if open < 0 {
		return desc
	}
	k, n, ok := strings.Cut(desc[open+1:len(desc)-1], "/")
	if !ok || !isDigits(k) || !isDigits(n) {
		return desc
	}
	return strings.TrimSpace(desc[:open])
}
