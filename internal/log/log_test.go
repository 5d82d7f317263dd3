package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warn": slog.LevelWarn, " error ": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})

	l.Info("stored", FieldSourceID, "abc")
	l.WithComponent(ComponentWorker).Warn("lagging")
	l.Debug("hidden")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "ledger", lines[0][FieldComponent])
	assert.Equal(t, "abc", lines[0][FieldSourceID])
	assert.Equal(t, "worker", lines[1][FieldComponent])
	assert.Equal(t, "WARN", lines[1]["level"])
}

func TestFields(t *testing.T) {
	f := NewFields().
		WithExpense("src", decimal.RequireFromString("12.5"), 3, "Casa", "").
		WithError(nil).
		WithRequestID("")
	assert.Equal(t, "12.50", f[FieldAmount])
	assert.Equal(t, 3, f[FieldInstallments])
	assert.NotContains(t, f, FieldSubcategory)
	assert.NotContains(t, f, FieldError)
	assert.NotContains(t, f, FieldRequestID)
	assert.Len(t, f.ToSlice(), 2*len(f))

	f.WithError(errors.New("boom"))
	assert.Equal(t, "boom", f[FieldError])
}

func TestMiddlewareCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Component: ComponentHTTP, Output: &buf})

	h := Middleware(l)(RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0][FieldRequestID])
	assert.Equal(t, "http", lines[0][FieldComponent])
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, ComponentApp, l.Component())
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", nil)

	sl.LogHTTPEnd(context.Background(), req, 201, 3, "1.2.3.4")
	sl.LogHTTPEnd(context.Background(), req, 422, 1, "1.2.3.4")
	sl.LogHTTPEnd(context.Background(), req, 502, 9, "1.2.3.4")
	sl.LogError(context.Background(), "failed", errors.New("x"), ComponentStorage, OpSubmit, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "ERROR", lines[2]["level"])
	assert.Equal(t, "submit", lines[3][FieldOperation])
}
