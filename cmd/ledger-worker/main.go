package main

import (
	"context"
	"errors"
	"os"
	"time"

	"household/internal/amqp"
	"household/internal/cli"
	"household/internal/ledger/sheets"
	applog "household/internal/log"
	"household/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentLedger)
	if err := cfg.ValidateLedger(); err != nil {
		logger.Error("Ledger configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting ledger-worker")

	sheetsClient, err := sheets.NewClient(context.Background(), sheets.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
	})

	ledgerWorker := worker.NewLedgerWorker(sheetsClient)
	if err := amqpClient.Consume(ctx, ledgerWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
