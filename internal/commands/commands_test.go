package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/backend"
	"gastos/internal/core"
	"gastos/internal/legacy"
	"gastos/internal/report"
	"gastos/internal/services"
)

type cli struct {
	t       *testing.T
	backend *backend.BackendResult
}

// newCLI shares one memory backend across invocations.
func newCLI(t *testing.T) *cli {
	t.Helper()
	res, err := backend.NewFactory(nil).CreateBackend(context.Background(), backend.Config{Type: backend.MemoryBackend})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })
	return &cli{t: t, backend: res}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	shared := *c.backend
	shared.Cleanup = nil
	root := NewRootCommand(func(context.Context) (*backend.BackendResult, error) { return &shared, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) runJSON(v any, args ...string) {
	c.t.Helper()
	out, err := c.run(append(args, "--json")...)
	require.NoError(c.t, err, out)
	require.NoError(c.t, json.Unmarshal([]byte(out), v), out)
}

func TestAddAndList(t *testing.T) {
	c := newCLI(t)

	var sub services.Submission
	c.runJSON(&sub, "add", "--amount", "300", "--category", "Autos - Seguro", "--method", "tarjeta",
		"--installments", "3", "--paid-by", "Gabi", "--date", "2024-11-10", "--description", "seguro")
	require.Len(t, sub.Entries, 3)
	assert.Equal(t, "Seguro", sub.Entries[0].Subcategory)
	assert.Equal(t, "seguro (3/3)", sub.Entries[2].Description)
	assert.Equal(t, core.NewDate(2025, 1, 10), sub.Entries[2].Date)

	out, err := c.run("add", "--amount", "1.234,50", "--category", "Supermercado", "--paid-by", "Tomi", "--date", "2024-11-12")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved ")
	assert.Contains(t, out, "1234.50")

	var all []core.LedgerEntry
	c.runJSON(&all, "list")
	assert.Len(t, all, 4)

	var nov []core.LedgerEntry
	c.runJSON(&nov, "list", "--mode", "month", "--year", "2024", "--month", "11")
	assert.Len(t, nov, 2)

	out, err = c.run("list", "--mode", "month", "--year", "2024", "--month", "11", "--method", "cash")
	require.NoError(t, err)
	assert.Contains(t, out, "Supermercado")
	assert.NotContains(t, out, "Autos")
}

func TestAddValidation(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("add", "--amount", "10", "--category", "Nafta", "--paid-by", "Tomi")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = c.run("add", "--amount", "abc", "--category", "Supermercado", "--paid-by", "Tomi")
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	_, err = c.run("add", "--amount", "10", "--category", "Supermercado")
	assert.Error(t, err, "paid-by is required")
}

func TestSummaryAndInsights(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("add", "--amount", "100", "--category", "Supermercado", "--paid-by", "Tomi", "--date", "2024-03-01")
	require.NoError(t, err)
	_, err = c.run("add", "--amount", "300", "--category", "Casa - Alquiler", "--paid-by", "Gabi", "--date", "2024-03-02")
	require.NoError(t, err)

	var sum report.Summary
	c.runJSON(&sum, "summary", "--year", "2024", "--month", "3")
	assert.True(t, sum.Total.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 2, sum.Count)
	require.Len(t, sum.ByCategory, 2)
	assert.Equal(t, "Casa", sum.ByCategory[0].Name)

	out, err := c.run("summary", "--mode", "year", "--year", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "Total:")
	assert.Contains(t, out, "Mar")
	assert.Contains(t, out, "75.0%")

	out, err = c.run("insights", "--year", "2024", "--month", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Tomi paid")
	assert.Contains(t, out, "Casa accounts for")

	out, err = c.run("insights", "--year", "2023", "--month", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "No spending")

	_, err = c.run("summary", "--mode", "decade")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestDelete(t *testing.T) {
	c := newCLI(t)
	var sub services.Submission
	c.runJSON(&sub, "add", "--amount", "120", "--category", "Perra", "--method", "card",
		"--installments", "2", "--paid-by", "Tomi")

	out, err := c.run("delete", sub.Entries[1].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 entries")

	_, err = c.run("delete", sub.SourceID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEdit(t *testing.T) {
	c := newCLI(t)
	var sub services.Submission
	c.runJSON(&sub, "add", "--amount", "120", "--category", "Perra", "--paid-by", "Tomi", "--date", "2024-01-01")

	var edited services.Submission
	c.runJSON(&edited, "edit", sub.SourceID, "--amount", "240", "--category", "Perra", "--method", "card",
		"--installments", "2", "--paid-by", "Gabi", "--date", "2024-01-01")
	assert.Equal(t, sub.SourceID, edited.SourceID)
	require.Len(t, edited.Entries, 2)
	assert.True(t, edited.Entries[0].Amount.Equal(decimal.NewFromInt(120)))
}

func TestCategories(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("categories", "add", "Vacaciones")
	require.NoError(t, err)
	assert.Contains(t, out, `"Vacaciones"`)

	out, err = c.run("categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Vacaciones *")
	assert.Contains(t, out, "Alquiler, Expensas")

	_, err = c.run("categories", "add", "Casa - Nueva")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestImport(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(t.TempDir(), "export.json")
	doc := `[
	  {"id": 1, "amount": 50, "category": "Salidas", "paymentMethod": "Efectivo", "paidBy": "Tomi", "date": "2024-02-01"},
	  {"id": "9-0", "amount": 10, "category": "Perra", "paymentMethod": "Tarjeta", "paidBy": "Gabi",
	   "date": "2024-02-01", "currentInstallment": 1, "totalInstallments": 2},
	  {"id": "9-1", "amount": 10, "category": "Perra", "paymentMethod": "Tarjeta", "paidBy": "Gabi",
	   "date": "2024-03-01", "currentInstallment": 2, "totalInstallments": 2},
	  {"id": 3, "amount": 5, "category": "Viajes", "date": "2024-02-03"},
	  {"id": 4, "amount": "nope", "category": "Salidas", "date": "2024-02-03"},
	  {"id": 5, "amount": 5, "type": "Playa - Sombrilla", "date": "2024-02-04"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	var plan legacy.Result
	c.runJSON(&plan, "import", path, "--dry-run")
	assert.Equal(t, 3, plan.Imported)
	assert.Equal(t, 4, plan.Entries)
	assert.Len(t, plan.Issues, 2)
	assert.Equal(t, 0, c.backend.Store.(interface{ Len() int }).Len())
	assert.False(t, c.backend.Taxonomy.Has("Viajes"), "dry runs register nothing")

	out, err := c.run("import", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Would import 3 expenses")

	var res legacy.Result
	c.runJSON(&res, "import", path)
	assert.Equal(t, plan.Imported, res.Imported)
	assert.Equal(t, plan.Entries, res.Entries)
	assert.Len(t, res.Issues, 2)
	assert.True(t, c.backend.Taxonomy.Has("Viajes"), "unknown legacy categories become custom ones")
	assert.False(t, c.backend.Taxonomy.Has("Playa"))

	out, err = c.run("import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 expenses (0 entries), skipped 3")

	_, err = c.run("import", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
