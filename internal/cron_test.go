package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

func TestStartCronRunsImmediately(t *testing.T) {
	repo := setupTestDB(t)

	fetched := make(chan struct{}, 1)
	client := &fakeClient{
		details: map[string]*models.StationDetails{"S1": acmeStation()},
		onPrices: func() {
			select {
			case fetched <- struct{}{}:
			default:
			}
		},
	}
	ingester := NewIngester(client, repo, []string{"S1"}, discardLogger())

	scheduler := StartCron(context.Background(), ingester, discardLogger())
	defer scheduler.Stop()

	select {
	case <-fetched:
	case <-time.After(10 * time.Second):
		t.Fatal("first cycle did not run")
	}

	assert.Len(t, scheduler.cron.Entries(), 1)
}

func TestSchedulerStopWaitsForFirstCycle(t *testing.T) {
	repo := setupTestDB(t)

	started := make(chan struct{})
	release := make(chan struct{})
	client := &fakeClient{
		details: map[string]*models.StationDetails{"S1": acmeStation()},
		onPrices: func() {
			close(started)
			<-release
		},
	}
	ingester := NewIngester(client, repo, []string{"S1"}, discardLogger())

	scheduler := StartCron(context.Background(), ingester, discardLogger())

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("first cycle did not run")
	}

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the first cycle was still running")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return after the first cycle finished")
	}
}
