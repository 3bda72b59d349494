package stats

import (
	"math"
	"sort"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

func Derive(results []models.StationPrices) *models.PriceStatistics {
	stats := &models.PriceStatistics{
		CheapestStations:  make(map[string][]string),
		LowestPrice:       make(map[string]float64),
		AveragePrice:      make(map[string]float64),
		HighestPrice:      make(map[string]float64),
		StandardDeviation: make(map[string]float64),
		BrandDistribution: make(map[string]int),
	}

	// Group prices by fuel type
	fuelTypePrices := make(map[string][]float64)
	fuelTypeStations := make(map[string]map[float64][]string) // price -> station ids

	for _, result := range results {
		for fuelType, info := range result.Prices {
			fuelTypePrices[fuelType] = append(fuelTypePrices[fuelType], info.Price)

			if fuelTypeStations[fuelType] == nil {
				fuelTypeStations[fuelType] = make(map[float64][]string)
			}
			fuelTypeStations[fuelType][info.Price] = append(fuelTypeStations[fuelType][info.Price], result.StationId)
		}

		if result.Name != "" {
			stats.BrandDistribution[result.Name]++
		}
	}

	for fuelType, prices := range fuelTypePrices {
		if len(prices) == 0 {
			continue
		}

		lowestPrice := prices[0]
		highestPrice := prices[0]
		sum := 0.0

		for _, p := range prices {
			if p < lowestPrice {
				lowestPrice = p
			}
			if p > highestPrice {
				highestPrice = p
			}
			sum += p
		}
		stats.LowestPrice[fuelType] = lowestPrice
		stats.HighestPrice[fuelType] = highestPrice

		cheapest := fuelTypeStations[fuelType][lowestPrice]
		sort.Strings(cheapest)
		stats.CheapestStations[fuelType] = cheapest

		// prices are quoted to a tenth of a cent
		avgPrice := sum / float64(len(prices))
		stats.AveragePrice[fuelType] = math.Round(avgPrice*1000) / 1000

		if len(prices) > 1 {
			variance := 0.0
			for _, p := range prices {
				variance += math.Pow(p-avgPrice, 2)
			}
			variance /= float64(len(prices))
			stats.StandardDeviation[fuelType] = math.Sqrt(variance)
		}
	}

	return stats
}
