package internal

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

// CycleInterval is the pause between the end of one ingestion cycle and the
// start of the next.
const CycleInterval = 15 * time.Minute

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

type FailureKind string

const (
	FailureNone       FailureKind = "none"
	FailureConstraint FailureKind = "constraint"
	FailureStore      FailureKind = "store"
	FailureCancelled  FailureKind = "cancelled"
	FailureUnexpected FailureKind = "unexpected"
)

// CycleResult describes one ingestion cycle. A failed cycle carries the error
// that abandoned it; the loop carries on regardless.
type CycleResult struct {
	RunId    uuid.UUID
	Started  time.Time
	Duration time.Duration

	// Date and Time are the observation timestamp shared by every price row
	// written in this cycle.
	Date string
	Time string

	StationsInserted    int
	StationsUnavailable int
	Observations        int

	Outcome Outcome
	Failure FailureKind
	Err     error
}

func (r *CycleResult) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// PricePublisher is told about every committed batch of observations.
type PricePublisher interface {
	Publish(ctx context.Context, observations []models.PriceObservation) error
}

type Ingester struct {
	client     GasPricesClient
	repo       GasPricesRepository
	stationIds []string
	publisher  PricePublisher
	now        func() time.Time
	logger     *slog.Logger
}

type IngesterOption func(*Ingester)

func WithPublisher(publisher PricePublisher) IngesterOption {
	return func(ing *Ingester) {
		ing.publisher = publisher
	}
}

func WithClock(now func() time.Time) IngesterOption {
	return func(ing *Ingester) {
		ing.now = now
	}
}

func NewIngester(client GasPricesClient, repo GasPricesRepository, stationIds []string, logger *slog.Logger, opts ...IngesterOption) *Ingester {
	ing := &Ingester{
		client:     client,
		repo:       repo,
		stationIds: append([]string(nil), stationIds...),
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Run executes ingestion cycles until ctx is cancelled, sleeping CycleInterval
// after each one. A failed cycle is logged and never stops the loop.
func (ing *Ingester) Run(ctx context.Context) error {
	ing.logger.Info("starting ingestion loop", "stations", len(ing.stationIds), "interval", CycleInterval)

	for {
		ing.RunCycle(ctx)

		timer := time.NewTimer(CycleInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle performs one fetch-and-store pass. Errors and panics are captured
// in the returned result rather than propagated.
func (ing *Ingester) RunCycle(ctx context.Context) (result CycleResult) {
	started := time.Now()
	now := ing.now()
	result = CycleResult{
		RunId:   uuid.New(),
		Started: now,
		Date:    now.Format("2006-01-02"),
		Time:    now.Format("15:04:05"),
		Outcome: OutcomeSucceeded,
		Failure: FailureNone,
	}

	logger := ing.logger.With("run_id", result.RunId.String())
	logger.Info("starting ingestion cycle", "date", result.Date, "time", result.Time)

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = OutcomeFailed
			result.Failure = FailureUnexpected
			result.Err = errors.Newf("panic during ingestion cycle: %v", r)
		}
		result.Duration = time.Since(started)

		cyclesTotal.WithLabelValues(string(result.Outcome), string(result.Failure)).Inc()
		cycleDuration.Observe(result.Duration.Seconds())

		if result.Err != nil {
			logger.Error("ingestion cycle failed",
				"failure", result.Failure,
				"error", result.Err,
				"duration", result.Duration)
			return
		}
		logger.Info("ingestion cycle finished",
			"stations_inserted", result.StationsInserted,
			"stations_unavailable", result.StationsUnavailable,
			"observations", result.Observations,
			"duration", result.Duration)
	}()

	if err := ing.cycle(ctx, &result, logger); err != nil {
		result.Outcome = OutcomeFailed
		result.Failure = classifyFailure(err)
		result.Err = err
	}
	return result
}

func (ing *Ingester) cycle(ctx context.Context, result *CycleResult, logger *slog.Logger) error {
	if len(ing.stationIds) == 0 {
		logger.Warn("no stations to monitor")
		return nil
	}

	for _, stationId := range ing.stationIds {
		exists, err := ing.repo.StationExists(ctx, stationId)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		details, ok := ing.client.GetStationDetails(ctx, stationId)
		if !ok || details == nil || details.IsEmpty() {
			result.StationsUnavailable++
			continue
		}

		if err := ing.repo.InsertStation(ctx, stationId, details); err != nil {
			return err
		}
		result.StationsInserted++
		stationsInserted.Inc()
		logger.Info("inserted station", "station_id", stationId, "brand", details.Brand, "place", details.Place)
	}

	prices := ing.client.GetGasPrices(ctx, ing.stationIds)
	if len(prices) == 0 {
		logger.Warn("no prices received, retrying next cycle")
		return nil
	}

	count, err := ing.repo.InsertPrices(ctx, prices, result.Date, result.Time)
	if err != nil {
		return err
	}
	result.Observations = count
	observationsInserted.Add(float64(count))

	if ing.publisher != nil && count > 0 {
		if err := ing.publisher.Publish(ctx, prices.Observations(result.Date, result.Time)); err != nil {
			logger.Warn("failed to publish prices", "error", err)
		}
	}
	return nil
}

func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, ErrConstraintViolation):
		return FailureConstraint
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCancelled
	default:
		return FailureStore
	}
}
