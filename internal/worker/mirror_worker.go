// Package worker keeps the spreadsheet mirror in step with the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/sheets"
)

// MirrorWorker applies ledger events to a sheets.Mirror. Events only name a
// source group; the worker always reads the current group from the store, so
// redelivered or reordered events converge on the same rows.
type MirrorWorker struct {
	store  ledger.Reader
	mirror sheets.Mirror
}

func NewMirrorWorker(store ledger.Reader, mirror sheets.Mirror) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror}
}

// HandleEvent is an amqp.Handler.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"type", ev.Type,
		"source_id", ev.SourceID,
		"entries", ev.Entries)

	switch ev.Type {
	case amqp.EventCreated, amqp.EventReplaced, amqp.EventDeleted:
		return w.SyncGroup(ctx, ev.SourceID)
	case amqp.EventResync:
		return w.FullResync(ctx)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// SyncGroup mirrors the stored state of one group, removing its rows when the
// group no longer exists.
func (w *MirrorWorker) SyncGroup(ctx context.Context, sourceID string) error {
	group, err := w.store.QueryBySourceID(ctx, sourceID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		if err := w.mirror.DeleteGroup(ctx, sourceID); err != nil {
			return fmt.Errorf("delete group from mirror: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("query group: %w", err)
	}
	if err := w.mirror.ReplaceGroup(ctx, sourceID, group); err != nil {
		return fmt.Errorf("mirror group: %w", err)
	}
	return nil
}

// FullResync rewrites the mirror from the whole ledger, oldest entry first.
func (w *MirrorWorker) FullResync(ctx context.Context) error {
	entries, err := w.store.QueryAll(ctx)
	if err != nil {
		return fmt.Errorf("query ledger: %w", err)
	}
	ledger.SortOldestFirst(entries)
	if err := w.mirror.ReplaceAll(ctx, entries); err != nil {
		return fmt.Errorf("rebuild mirror: %w", err)
	}
	slog.InfoContext(ctx, "Mirror resynced", "entries", len(entries))
	return nil
}

// StartupSyncCheck rebuilds the mirror once so events missed while the
// worker was down are reflected. Failures are logged, not fatal.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) {
	if err := w.FullResync(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup resync failed", "error", err)
	}
}

// ScheduleResync runs FullResync on a cron schedule (standard five-field
// spec or descriptors such as "@hourly") until ctx is done.
func (w *MirrorWorker) ScheduleResync(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := w.FullResync(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled resync failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid resync schedule %q: %w", spec, err)
	}
	c.Start()
	slog.InfoContext(ctx, "Scheduled mirror resync", "schedule", spec)
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
