package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
	"bilancio/internal/sheets/google"
	"bilancio/internal/sheets/memory"
	"bilancio/internal/worker"
)

func main() {
	logger, cfg := cli.Bootstrap(log.ComponentWorker)

	repo := cli.OpenStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	// Without a spreadsheet the worker mirrors into memory, which keeps
	// local development going through the same code path.
	var (
		upserter sheets.EntryUpserter
		deleter  sheets.EntryDeleter
	)
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		upserter, deleter = client, client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		store := memory.New()
		upserter, deleter = store, store
		logger.Info("No spreadsheet configured, mirroring in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, upserter, deleter, cfg.SyncBatchSize)

	logger.Info("Starting bilancio worker",
		"queue", cfg.AMQPQueue,
		"batch_size", cfg.SyncBatchSize,
		"sweep_interval", cfg.SyncInterval.String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.Run(ctx, amqpClient, cfg.SyncInterval)
	})
	g.Go(func() error {
		// Closing the client unblocks the consumer when a signal lands.
		<-ctx.Done()
		return amqpClient.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
