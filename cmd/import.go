package cmd

import (
	"context"
	"fmt"
)

// Import runs a single ingestion cycle and exits.
func Import(ctx context.Context, configPath string) error {
	svc, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	result := svc.ingester.RunCycle(ctx)
	if !result.Succeeded() {
		return fmt.Errorf("import failed (%s): %w", result.Failure, result.Err)
	}

	svc.logger.Info("import complete",
		"stations_inserted", result.StationsInserted,
		"observations", result.Observations)
	return nil
}
