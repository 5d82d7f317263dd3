package sheets

import (
	"fmt"
	"strings"

	"gastos/internal/core"
)

// Header is the first row of the mirror sheet.
var Header = []any{
	"Fecha", "Categoría", "Subcategoría", "Descripción", "Monto",
	"Medio de pago", "Pagó", "Cuota", "source_id", "id",
}

// Column positions within a row.
const (
	colSourceID = 8
	colEntryID  = 9
	numColumns  = 10
)

// LastColumn is the letter of the rightmost mirror column.
const LastColumn = "J"

// EncodeRow renders an entry as sheet cells. Amounts are written as numbers
// so sheet formulas can sum them.
func EncodeRow(e core.LedgerEntry) []any {
	return []any{
		e.Date.String(),
		e.Category,
		e.Subcategory,
		e.Description,
		e.Amount.InexactFloat64(),
		string(e.PaymentMethod),
		e.PaidBy,
		fmt.Sprintf("%d/%d", e.InstallmentIndex, e.InstallmentTotal),
		e.SourceID,
		e.ID,
	}
}

// EncodeRows renders entries in order.
func EncodeRows(entries []core.LedgerEntry) [][]any {
	out := make([][]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, EncodeRow(e))
	}
	return out
}

// SourceIDOf returns the source id cell of a row, or "" for short rows.
func SourceIDOf(row []any) string {
	return cell(row, colSourceID)
}

// EntryIDOf returns the entry id cell of a row.
func EntryIDOf(row []any) string {
	return cell(row, colEntryID)
}

// IsHeader reports whether row is the header row.
func IsHeader(row []any) bool {
	return cell(row, colSourceID) == Header[colSourceID]
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

// SpliceGroup returns rows with every row of sourceID replaced by
// replacement. The replacement lands where the first old row was, or at the
// end when the group had no rows. The header row, if present, stays first.
func SpliceGroup(rows [][]any, sourceID string, replacement [][]any) [][]any {
	out := make([][]any, 0, len(rows)+len(replacement))
	inserted := false
	for _, row := range rows {
		if SourceIDOf(row) != sourceID || IsHeader(row) {
			out = append(out, row)
			continue
		}
		if !inserted {
			out = append(out, replacement...)
			inserted = true
		}
	}
	if !inserted {
		out = append(out, replacement...)
	}
	return out
}

// A1 builds a quoted A1 range for sheet, e.g. 'Gastos 2024'!A1:J.
func A1(sheet, rng string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rng
}
