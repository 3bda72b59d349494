package models

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

type FuelType int

const (
	E5     FuelType = 1
	E10    FuelType = 2
	Diesel FuelType = 3
)

// FuelTypes is the fixed enumeration seeded into the gastypes table.
var FuelTypes = []FuelType{E5, E10, Diesel}

func (ft FuelType) String() string {
	switch ft {
	case E5:
		return "e5"
	case E10:
		return "e10"
	case Diesel:
		return "diesel"
	default:
		return fmt.Sprintf("fuel-type-%d", int(ft))
	}
}

type StationStatus string

const (
	StatusOpen       StationStatus = "open"
	StatusClosed     StationStatus = "closed"
	StatusNoStations StationStatus = "no stations"
	StatusNoPrices   StationStatus = "no prices"
)

// OptionalPrice is a price the upstream may omit, send as null, or send as
// false when the station does not sell that fuel type.
type OptionalPrice struct {
	Value float64
	Valid bool
}

func Price(value float64) OptionalPrice {
	return OptionalPrice{Value: value, Valid: true}
}

func (p *OptionalPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "", "null", "false", "true":
		*p = OptionalPrice{}
		return nil
	}

	value, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid price %s: %w", data, err)
	}

	// zero is what the upstream reports for "no price", treat it as absent
	*p = OptionalPrice{Value: value, Valid: value > 0}
	return nil
}

func (p OptionalPrice) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, p.Value, 'f', -1, 64), nil
}

type PriceStatus struct {
	Status StationStatus `json:"status"`
	E5     OptionalPrice `json:"e5"`
	E10    OptionalPrice `json:"e10"`
	Diesel OptionalPrice `json:"diesel"`
}

func (ps PriceStatus) IsOpen() bool {
	return ps.Status == StatusOpen
}

func (ps PriceStatus) Price(fuelType FuelType) OptionalPrice {
	switch fuelType {
	case E5:
		return ps.E5
	case E10:
		return ps.E10
	case Diesel:
		return ps.Diesel
	default:
		return OptionalPrice{}
	}
}

// PriceMap is keyed by station id.
type PriceMap map[string]PriceStatus

type GasPricesResponse struct {
	OK      bool     `json:"ok"`
	Message string   `json:"message,omitempty"`
	Prices  PriceMap `json:"prices"`
}

type PriceObservation struct {
	StationId string   `json:"station_id"`
	FuelType  FuelType `json:"fuel_type"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Price     float64  `json:"price"`
}

func (po *PriceObservation) ToTuple() []any {
	return []any{
		po.StationId,
		int(po.FuelType),
		po.Date,
		po.Time,
		po.Price,
	}
}

// Observations flattens the map into one observation per open station and
// present fuel type, ordered by station id and then fuel type.
func (pm PriceMap) Observations(date, time string) []PriceObservation {
	stationIds := make([]string, 0, len(pm))
	for stationId := range pm {
		stationIds = append(stationIds, stationId)
	}
	sort.Strings(stationIds)

	observations := make([]PriceObservation, 0, len(pm)*len(FuelTypes))
	for _, stationId := range stationIds {
		status := pm[stationId]
		if !status.IsOpen() {
			continue
		}
		for _, fuelType := range FuelTypes {
			price := status.Price(fuelType)
			if !price.Valid {
				continue
			}
			observations = append(observations, PriceObservation{
				StationId: stationId,
				FuelType:  fuelType,
				Date:      date,
				Time:      time,
				Price:     price.Value,
			})
		}
	}
	return observations
}
