package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rm-hull/godx"

	"github.com/rm-hull/gas-prices-ingest/internal"
	"github.com/rm-hull/gas-prices-ingest/internal/config"
	"github.com/rm-hull/gas-prices-ingest/internal/logging"
	"github.com/rm-hull/gas-prices-ingest/internal/notify"
)

const mqttConnectTimeout = 30 * time.Second

type services struct {
	cfg       config.Config
	logger    *slog.Logger
	client    internal.GasPricesClient
	repo      internal.GasPricesRepository
	publisher *notify.MqttPublisher
	ingester  *internal.Ingester
}

// bootstrap initialises shared resources used by every command. Any failure
// here is fatal: bad config, an unreadable station list or an unusable
// database stop the process before the first cycle.
func bootstrap(ctx context.Context, configPath string) (*services, error) {
	dotenvErr := godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if dotenvErr != nil {
		logger.Debug("no .env file found")
	}

	godx.GitVersion()
	godx.EnvironmentVars()
	godx.UserInfo()

	stationIds, err := internal.LoadStationIDs(cfg.StationsFile)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded station list", "file", cfg.StationsFile, "stations", len(stationIds))

	dbPath := internal.DatabaseFile(cfg.DatabasePath)
	db, err := internal.Connect(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("connected to database", "path", dbPath)

	repo := internal.NewGasPricesRepository(db, dbPath, logger)
	if err := repo.Initialize(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	svc := &services{
		cfg:    cfg,
		logger: logger,
		client: internal.NewGasPricesClient(cfg.ApiUrl, cfg.ApiToken, logger),
		repo:   repo,
	}

	var opts []internal.IngesterOption
	if cfg.MqttBroker != "" {
		publisher := notify.NewMqttPublisher(cfg.MqttBroker, cfg.MqttClientId, cfg.MqttTopic, logger)

		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := publisher.Connect(connectCtx)
		cancel()
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}

		svc.publisher = publisher
		opts = append(opts, internal.WithPublisher(publisher))
	}

	svc.ingester = internal.NewIngester(svc.client, repo, stationIds, logger, opts...)
	return svc, nil
}

// Close releases the database handle and the broker connection.
func (svc *services) Close() {
	if svc.publisher != nil {
		svc.publisher.Close()
	}
	if err := svc.repo.Close(); err != nil {
		svc.logger.Error("failed to close repository", "error", err)
	}
}
