package models

import "time"

type PriceInfo struct {
	Price float64 `json:"price"`
	Date  string  `json:"date"`
	Time  string  `json:"time"`
}

type StationPrices struct {
	StationId   string `json:"station_id"`
	Name        string `json:"name"`
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	Place       string `json:"place"`
	PostCode    string `json:"post_code"`

	// Prices holds the most recent observation, keyed by fuel type name.
	Prices map[string]PriceInfo `json:"prices,omitempty"`
}

type PriceStatistics struct {
	CheapestStations  map[string][]string `json:"cheapest_stations"`
	LowestPrice       map[string]float64  `json:"lowest_price"`
	AveragePrice      map[string]float64  `json:"average_price"`
	HighestPrice      map[string]float64  `json:"highest_price"`
	StandardDeviation map[string]float64  `json:"standard_deviation"`
	BrandDistribution map[string]int      `json:"brand_distribution"`
}

type LatestPricesResponse struct {
	Results     []StationPrices  `json:"results"`
	Statistics  *PriceStatistics `json:"statistics,omitempty"`
	LastUpdated *time.Time       `json:"last_updated,omitempty"`
}
