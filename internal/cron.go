package internal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler drives ingestion cycles from cron plus one immediate run.
type Scheduler struct {
	cron    *cron.Cron
	initial sync.WaitGroup
}

// StartCron runs an ingestion cycle straight away and then every CycleInterval.
// A cycle that overruns the interval causes the next tick to be skipped rather
// than run concurrently.
func StartCron(ctx context.Context, ingester *Ingester, logger *slog.Logger) *Scheduler {
	cronLogger := slogCronLogger{logger: logger}
	c := cron.New(cron.WithLogger(cronLogger))

	logger.Info("starting CRON job to ingest gas prices", "interval", CycleInterval)

	job := cron.NewChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	).Then(cron.FuncJob(func() {
		ingester.RunCycle(ctx)
	}))

	s := &Scheduler{cron: c}
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()

	c.Schedule(cron.Every(CycleInterval), job)
	c.Start()
	return s
}

// Stop halts the schedule and blocks until every running cycle, including the
// immediate one, has returned.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.initial.Wait()
}

type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
