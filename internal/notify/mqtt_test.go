package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

func TestBuildMessages(t *testing.T) {
	observations := []models.PriceObservation{
		{StationId: "S2", FuelType: models.Diesel, Date: "2024-01-01", Time: "08:00:00", Price: 1.599},
		{StationId: "S1", FuelType: models.E5, Date: "2024-01-01", Time: "08:00:00", Price: 1.709},
		{StationId: "S2", FuelType: models.E5, Date: "2024-01-01", Time: "08:00:00", Price: 1.719},
	}

	messages := BuildMessages(observations)
	assert.Equal(t, []StationPricesMessage{
		{StationId: "S2", Date: "2024-01-01", Time: "08:00:00", Prices: map[string]float64{"diesel": 1.599, "e5": 1.719}},
		{StationId: "S1", Date: "2024-01-01", Time: "08:00:00", Prices: map[string]float64{"e5": 1.709}},
	}, messages)

	payload, err := json.Marshal(messages[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"station_id":"S1","date":"2024-01-01","time":"08:00:00","prices":{"e5":1.709}}`, string(payload))
}

func TestBuildMessagesEmpty(t *testing.T) {
	assert.Empty(t, BuildMessages(nil))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "gasprices/S1", Topic("gasprices", "S1"))
}

func TestPublishWhenDisconnected(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := NewMqttPublisher("tcp://127.0.0.1:1", "test", "gasprices", logger)

	assert.False(t, publisher.IsConnected())
	err := publisher.Publish(context.Background(), []models.PriceObservation{
		{StationId: "S1", FuelType: models.E5, Price: 1.709},
	})
	assert.EqualError(t, err, "mqtt client not connected")
}
