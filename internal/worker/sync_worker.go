// Package worker mirrors entries from the SQLite record store to the
// spreadsheet. It consumes AMQP sync messages and periodically sweeps the
// pending backlog as a backup for lost messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	upserter  sheets.EntryUpserter
	deleter   sheets.EntryDeleter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, upserter sheets.EntryUpserter, deleter sheets.EntryDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		upserter:  upserter,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one AMQP message. Returning an error requeues
// the message, so unrecoverable conditions are swallowed after marking the
// entry's sync state.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "op", msg.Op)

	if msg.Op == amqp.OpDelete {
		return w.deleteFromSheet(ctx, msg.ID)
	}

	entry, err := w.storage.GetEntryAnyOwner(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Entry deleted between publish and consume. The delete
			// message that follows will clean up the mirror row.
			slog.WarnContext(ctx, "Entry gone before sync, skipping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get entry from storage: %w", err)
	}

	return w.mirrorEntry(ctx, entry)
}

func (w *SyncWorker) deleteFromSheet(ctx context.Context, id int64) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No sheet deleter configured, skipping", "id", id)
		return nil
	}
	if err := w.deleter.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete mirror row: %w", err)
	}
	slog.InfoContext(ctx, "Removed mirrored entry", "id", id)
	return nil
}

// ProcessPendingEntries sweeps entries still marked pending. This is a
// backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingEntries(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger backlog once at worker startup to
// recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.storage.ListPendingSync(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	synced := 0
	failed := 0
	for _, entry := range pending {
		if err := w.mirrorEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to sync entry", "id", entry.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sweep completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

// Run consumes the sync queue and sweeps the pending backlog every
// interval until the context is cancelled.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client, interval time.Duration) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sync check failed", "error", err)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.ProcessPendingEntries(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
				}
			}
		}
	}()

	return client.ConsumeEntrySync(ctx, func(msg *amqp.EntrySyncMessage) error {
		return w.HandleSyncMessage(ctx, msg)
	})
}

func (w *SyncWorker) mirrorEntry(ctx context.Context, entry core.Entry) error {
	ref, err := w.upserter.Upsert(ctx, entry)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, entry.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", entry.ID, "error", markErr)
		}
		return fmt.Errorf("upsert mirror row: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, entry.ID); err != nil {
		// The sheet write worked; the next sweep will retry the mark.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", entry.ID, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored entry",
		"id", entry.ID,
		"sheets_ref", ref,
		"date", entry.Date.Key(),
		"profitloss_cents", entry.ProfitLoss.Cents)
	return nil
}
