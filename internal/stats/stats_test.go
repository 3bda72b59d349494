package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

func TestDerive(t *testing.T) {
	results := []models.StationPrices{
		{StationId: "S2", Name: "Acme", Prices: map[string]models.PriceInfo{
			"e5":     {Price: 1.699},
			"diesel": {Price: 1.599},
		}},
		{StationId: "S1", Name: "Acme", Prices: map[string]models.PriceInfo{
			"e5": {Price: 1.699},
		}},
		{StationId: "S3", Name: "Bolt", Prices: map[string]models.PriceInfo{
			"e5": {Price: 1.759},
		}},
	}

	stats := Derive(results)

	assert.Equal(t, 1.699, stats.LowestPrice["e5"])
	assert.Equal(t, 1.759, stats.HighestPrice["e5"])
	assert.Equal(t, 1.719, stats.AveragePrice["e5"])
	assert.InDelta(t, 0.02828, stats.StandardDeviation["e5"], 0.00001)
	assert.Equal(t, []string{"S1", "S2"}, stats.CheapestStations["e5"])

	assert.Equal(t, 1.599, stats.LowestPrice["diesel"])
	assert.Equal(t, []string{"S2"}, stats.CheapestStations["diesel"])
	assert.NotContains(t, stats.StandardDeviation, "diesel")

	assert.Equal(t, map[string]int{"Acme": 2, "Bolt": 1}, stats.BrandDistribution)
}

func TestDeriveEmpty(t *testing.T) {
	stats := Derive(nil)
	assert.Empty(t, stats.LowestPrice)
	assert.Empty(t, stats.CheapestStations)
	assert.Empty(t, stats.BrandDistribution)
}
