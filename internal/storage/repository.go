package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

const entryColumns = `id, source_id, amount, category, subcategory, payment_method, paid_by,
	description, entry_date, installment_index, installment_total, created_at`

// Repository is a ledger.Store over database/sql. Writes that touch more than
// one row run in a single transaction.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var (
	_ ledger.Store         = (*Repository)(nil)
	_ ledger.CategoryStore = (*Repository)(nil)
)

// NewSQLiteRepository opens (and creates if needed) the database file at dbPath
// and brings its schema up to date.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open(SQLite.Name, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return open(db, SQLite, dbPath)
}

// NewPostgresRepository connects to dsn and brings the schema up to date.
func NewPostgresRepository(dsn string) (*Repository, error) {
	db, err := sql.Open(Postgres.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return open(db, Postgres, dsn)
}

func open(db *sql.DB, d Dialect, dsn string) (*Repository, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db, dialect: d, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) InsertBatch(ctx context.Context, entries []core.LedgerEntry) ([]core.LedgerEntry, error) {
	if err := checkBatch(entries); err != nil {
		return nil, err
	}
	var out []core.LedgerEntry
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, src := range sourceIDs(entries) {
			exists, err := r.groupExists(ctx, tx, src)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("source id %s already stored", src)
			}
		}
		var err error
		out, err = r.insertTx(ctx, tx, entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Ledger entries stored",
		"backend", r.dialect.Name,
		"source_id", out[0].SourceID,
		"entries", len(out))
	return out, nil
}

func (r *Repository) ReplaceGroup(ctx context.Context, sourceID string, entries []core.LedgerEntry) ([]core.LedgerEntry, error) {
	if err := checkBatch(entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.SourceID != sourceID {
			return nil, fmt.Errorf("entry source id %s does not match %s", e.SourceID, sourceID)
		}
	}
	var out []core.LedgerEntry
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM entries WHERE source_id = ?`), sourceID)
		if err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("source id %s: %w", sourceID, core.ErrNotFound)
		}
		out, err = r.insertTx(ctx, tx, entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Ledger group replaced",
		"backend", r.dialect.Name,
		"source_id", sourceID,
		"entries", len(out))
	return out, nil
}

func (r *Repository) insertTx(ctx context.Context, tx *sql.Tx, entries []core.LedgerEntry) ([]core.LedgerEntry, error) {
	stmt, err := tx.PrepareContext(ctx, r.dialect.Rebind(`INSERT INTO entries
		(source_id, amount, category, subcategory, payment_method, paid_by,
		 description, entry_date, installment_index, installment_total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`))
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	created := r.now().UTC()
	out := make([]core.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		var id int64
		err := stmt.QueryRowContext(ctx,
			e.SourceID, e.Amount.StringFixed(2), e.Category, e.Subcategory, string(e.PaymentMethod),
			e.PaidBy, e.Description, e.Date.String(), e.InstallmentIndex, e.InstallmentTotal,
			created.Format(timestampLayout),
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert entry %s/%d: %w", e.SourceID, e.InstallmentIndex, err)
		}
		e.ID = strconv.FormatInt(id, 10)
		e.CreatedAt = created
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository) groupExists(ctx context.Context, tx *sql.Tx, sourceID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, r.dialect.Rebind(`SELECT 1 FROM entries WHERE source_id = ? LIMIT 1`), sourceID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check source id: %w", err)
	default:
		return true, nil
	}
}

func (r *Repository) QueryAll(ctx context.Context) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries
		ORDER BY entry_date DESC, source_id ASC, installment_index ASC`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return scanEntries(rows)
}

func (r *Repository) QueryBySourceID(ctx context.Context, sourceID string) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT `+entryColumns+` FROM entries
		WHERE source_id = ? ORDER BY installment_index ASC`), sourceID)
	if err != nil {
		return nil, fmt.Errorf("query group: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("source id %s: %w", sourceID, core.ErrNotFound)
	}
	return entries, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (core.LedgerEntry, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+entryColumns+` FROM entries WHERE id = ?`), n)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	return e, err
}

func (r *Repository) DeleteBySourceID(ctx context.Context, sourceID string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM entries WHERE source_id = ?`), sourceID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("source id %s: %w", sourceID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Ledger group deleted", "backend", r.dialect.Name, "source_id", sourceID, "entries", n)
	return nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM entries WHERE id = ?`), n)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Ledger entry deleted", "backend", r.dialect.Name, "id", id)
	return nil
}

// SaveCategory records a custom category name once.
func (r *Repository) SaveCategory(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO custom_categories (name, created_at)
		VALUES (?, ?) ON CONFLICT (name) DO NOTHING`), name, r.now().UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

// ListCategories returns custom categories in registration order.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM custom_categories ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func checkBatch(entries []core.LedgerEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("empty batch")
	}
	for i, e := range entries {
		if e.SourceID == "" {
			return fmt.Errorf("entry %d: missing source id", i)
		}
	}
	return nil
}

func sourceIDs(entries []core.LedgerEntry) []string {
	seen := make(map[string]struct{}, 1)
	var out []string
	for _, e := range entries {
		if _, ok := seen[e.SourceID]; ok {
			continue
		}
		seen[e.SourceID] = struct{}{}
		out = append(out, e.SourceID)
	}
	return out
}
