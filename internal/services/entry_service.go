// Package services orchestrates entry operations across the SQLite record
// store and the AMQP sync queue.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// EntryService is the write path for entries. Storage is authoritative;
// sync messages for the spreadsheet mirror are published best-effort and
// never fail the request.
type EntryService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewEntryService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *EntryService {
	return &EntryService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateEntry saves an entry and queues its mirror sync.
func (s *EntryService) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	saved, err := s.storage.CreateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	if err := s.publishSync(ctx, saved.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"entry_id", saved.ID, "error", err)
		// Entry is saved locally, the worker's pending scan will catch up.
	}

	return saved, nil
}

// UpdateEntry replaces an owned entry and queues its mirror sync.
func (s *EntryService) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	updated, err := s.storage.UpdateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, err
	}

	if err := s.publishSync(ctx, updated.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"entry_id", updated.ID, "error", err)
	}

	return updated, nil
}

// DeleteEntry removes an owned entry and queues the mirror row deletion.
func (s *EntryService) DeleteEntry(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteEntry(ctx, userID, id); err != nil {
		return err
	}

	if err := s.publishDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"entry_id", id, "error", err)
	}

	return nil
}

func (s *EntryService) GetEntry(ctx context.Context, userID, id int64) (core.Entry, error) {
	return s.storage.GetEntry(ctx, userID, id)
}

func (s *EntryService) ListEntries(ctx context.Context, userID int64) ([]core.Entry, error) {
	return s.storage.ListEntries(ctx, userID)
}

func (s *EntryService) publishSync(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishEntrySync(ctx, id)
}

func (s *EntryService) publishDelete(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishEntryDelete(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *EntryService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %v", errs)
	}
	return nil
}
