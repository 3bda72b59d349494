package cmd

import (
	"context"
	"errors"
)

// Ingest runs ingestion cycles until ctx is cancelled.
func Ingest(ctx context.Context, configPath string) error {
	svc, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	err = svc.ingester.Run(ctx)
	if errors.Is(err, context.Canceled) {
		svc.logger.Info("shutting down")
		return nil
	}
	return err
}
