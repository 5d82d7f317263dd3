package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gastos/internal/amqp"
	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/insights"
	"gastos/internal/installments"
	"gastos/internal/ledger"
	"gastos/internal/report"
	"gastos/internal/taxonomy"
)

// ErrNoPublisher is returned by Resync when events are disabled.
var ErrNoPublisher = errors.New("no event publisher configured")

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
	Close() error
}

// Submission is the result of a write: the stored group.
type Submission struct {
	SourceID string             `json:"source_id"`
	Entries  []core.LedgerEntry `json:"entries"`
}

// Deletion reports what DeleteExpense removed.
type Deletion struct {
	SourceID string `json:"source_id"`
	EntryID  string `json:"entry_id,omitempty"` // set when a single entry was removed
	Entries  int    `json:"entries"`
}

// ExpenseService is the surface callers use: it validates against the
// taxonomy, expands intents, writes through the store and announces changes.
// Store failures surface as *core.StoreError and are never retried.
type ExpenseService struct {
	store     ledger.Store
	taxonomy  *taxonomy.Taxonomy
	publisher EventPublisher
	rules     insights.Rules
	aggCache  cache.Cache[report.Aggregate]
	newID     func() string
}

type Option func(*ExpenseService)

// WithPublisher announces every write. Publish failures are logged only.
func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithRules overrides the default insight rules.
func WithRules(r insights.Rules) Option {
	return func(s *ExpenseService) { s.rules = r }
}

// WithAggregateCache memoizes GetAggregate; every write purges it. Callers
// get their own copy of each cached aggregate.
func WithAggregateCache(c cache.Cache[report.Aggregate]) Option {
	return func(s *ExpenseService) { s.aggCache = c }
}

// WithIDGenerator replaces the UUID source id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *ExpenseService) { s.newID = fn }
}

func NewExpenseService(store ledger.Store, tx *taxonomy.Taxonomy, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:    store,
		taxonomy: tx,
		rules:    insights.DefaultRules(),
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadCustomCategories registers the custom categories the store remembers.
func (s *ExpenseService) LoadCustomCategories(ctx context.Context) error {
	cs, ok := s.store.(ledger.CategoryStore)
	if !ok {
		return nil
	}
	names, err := cs.ListCategories(ctx)
	if err != nil {
		return core.WrapStore("list categories", err)
	}
	for _, name := range names {
		if err := s.taxonomy.RegisterCustom(name); err != nil {
			slog.WarnContext(ctx, "Skipping stored category", "category", name, "error", err)
		}
	}
	return nil
}

// SubmitExpense validates, expands and stores one intent as a new group.
func (s *ExpenseService) SubmitExpense(ctx context.Context, intent core.ExpenseIntent) (Submission, error) {
	entries, err := s.expand(intent, s.newID())
	if err != nil {
		return Submission{}, err
	}
	stored, err := s.store.InsertBatch(ctx, entries)
	if err != nil {
		return Submission{}, core.WrapStore("insert", err)
	}
	s.afterWrite(ctx, amqp.EventCreated, stored[0].SourceID, len(stored))
	return Submission{SourceID: stored[0].SourceID, Entries: stored}, nil
}

// UpdateExpense re-expands intent and replaces every entry of sourceID.
func (s *ExpenseService) UpdateExpense(ctx context.Context, sourceID string, intent core.ExpenseIntent) (Submission, error) {
	if sourceID == "" {
		return Submission{}, &core.ValidationError{Field: "source_id", Message: "source id is required"}
	}
	entries, err := s.expand(intent, sourceID)
	if err != nil {
		return Submission{}, err
	}
	stored, err := s.store.ReplaceGroup(ctx, sourceID, entries)
	if err != nil {
		return Submission{}, core.WrapStore("replace", err)
	}
	s.afterWrite(ctx, amqp.EventReplaced, sourceID, len(stored))
	return Submission{SourceID: sourceID, Entries: stored}, nil
}

// DeleteExpense removes what ref names. An entry id of a simple expense
// deletes that entry; an entry id inside an installment plan deletes the whole
// plan so the remaining indices never have gaps; anything else is treated as a
// source id. Unknown refs return core.ErrNotFound.
func (s *ExpenseService) DeleteExpense(ctx context.Context, ref string) (Deletion, error) {
	if ref == "" {
		return Deletion{}, &core.ValidationError{Field: "ref", Message: "id or source id is required"}
	}

	e, err := s.store.GetByID(ctx, ref)
	switch {
	case err == nil && !e.IsInstallment():
		if err := s.store.DeleteByID(ctx, e.ID); err != nil {
			return Deletion{}, core.WrapStore("delete", err)
		}
		s.afterWrite(ctx, amqp.EventDeleted, e.SourceID, 1)
		return Deletion{SourceID: e.SourceID, EntryID: e.ID, Entries: 1}, nil
	case err == nil:
		return s.deleteGroup(ctx, e.SourceID)
	case errors.Is(err, core.ErrNotFound):
		return s.deleteGroup(ctx, ref)
	default:
		return Deletion{}, core.WrapStore("get", err)
	}
}

func (s *ExpenseService) deleteGroup(ctx context.Context, sourceID string) (Deletion, error) {
	group, err := s.store.QueryBySourceID(ctx, sourceID)
	if err != nil {
		return Deletion{}, core.WrapStore("query group", err)
	}
	if err := s.store.DeleteBySourceID(ctx, sourceID); err != nil {
		return Deletion{}, core.WrapStore("delete group", err)
	}
	s.afterWrite(ctx, amqp.EventDeleted, sourceID, len(group))
	return Deletion{SourceID: sourceID, Entries: len(group)}, nil
}

// ListEntries returns the ledger, newest first.
func (s *ExpenseService) ListEntries(ctx context.Context) ([]core.LedgerEntry, error) {
	entries, err := s.store.QueryAll(ctx)
	if err != nil {
		return nil, core.WrapStore("query", err)
	}
	return entries, nil
}

// GetGroup returns one source group in installment order.
func (s *ExpenseService) GetGroup(ctx context.Context, sourceID string) ([]core.LedgerEntry, error) {
	entries, err := s.store.QueryBySourceID(ctx, sourceID)
	if err != nil {
		return nil, core.WrapStore("query group", err)
	}
	return entries, nil
}

// GetAggregate rebuilds the aggregate for f from a fresh snapshot.
func (s *ExpenseService) GetAggregate(ctx context.Context, f report.Filter) (report.Aggregate, error) {
	if err := f.Validate(); err != nil {
		return report.Aggregate{}, err
	}
	if s.aggCache != nil {
		if agg, ok := s.aggCache.Get(f.Key()); ok {
			return agg.Clone(), nil
		}
	}
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return report.Aggregate{}, err
	}
	agg, err := report.Compute(entries, f)
	if err != nil {
		return report.Aggregate{}, err
	}
	if s.aggCache != nil {
		s.aggCache.Set(f.Key(), agg.Clone())
	}
	return agg, nil
}

// GetInsights derives insights for agg with the configured rules.
func (s *ExpenseService) GetInsights(agg report.Aggregate) []insights.Insight {
	return insights.Derive(agg, s.rules)
}

func (s *ExpenseService) ListCategories() []taxonomy.Node {
	return s.taxonomy.Snapshot()
}

// RegisterCategory adds a custom category. When the store can remember
// categories it is saved there first, so a failed save registers nothing.
func (s *ExpenseService) RegisterCategory(ctx context.Context, name string) error {
	name, err := taxonomy.CheckName(name)
	if err != nil {
		return err
	}
	if s.taxonomy.Has(name) {
		return nil
	}
	if cs, ok := s.store.(ledger.CategoryStore); ok {
		if err := cs.SaveCategory(ctx, name); err != nil {
			return core.WrapStore("save category", err)
		}
	}
	return s.taxonomy.RegisterCustom(name)
}

// Resync asks mirror consumers to rebuild from the full ledger.
func (s *ExpenseService) Resync(ctx context.Context) error {
	if s.publisher == nil {
		return ErrNoPublisher
	}
	return s.publisher.PublishEvent(ctx, amqp.NewLedgerEvent(amqp.EventResync, "", 0))
}

func (s *ExpenseService) expand(intent core.ExpenseIntent, sourceID string) ([]core.LedgerEntry, error) {
	intent = intent.Normalized()
	if err := s.taxonomy.Validate(intent.Category, intent.Subcategory); err != nil {
		return nil, err
	}
	return installments.Expand(intent, sourceID)
}

func (s *ExpenseService) afterWrite(ctx context.Context, t amqp.EventType, sourceID string, n int) {
	if s.aggCache != nil {
		s.aggCache.Purge()
	}
	slog.InfoContext(ctx, "Ledger changed", "event", t, "source_id", sourceID, "entries", n)
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishEvent(pubCtx, amqp.NewLedgerEvent(t, sourceID, n)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", t, "source_id", sourceID, "error", err)
	}
}

// Close releases the store and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
