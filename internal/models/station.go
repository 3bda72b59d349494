package models

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PostCode holds a postal code. The upstream API sends it as a JSON number,
// which drops leading zeros, so numeric values are padded back to five digits.
type PostCode string

func (pc *PostCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*pc = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid post code %s: %w", data, err)
		}
		*pc = PostCode(s)
		return nil
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid post code %s: %w", data, err)
	}
	if n < 0 || n != math.Trunc(n) || n > math.MaxUint32 {
		return fmt.Errorf("invalid post code %s: not a whole number", data)
	}
	*pc = PostCode(fmt.Sprintf("%05d", uint64(n)))
	return nil
}

type StationDetails struct {
	Id          string   `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Street      string   `json:"street"`
	HouseNumber string   `json:"houseNumber"`
	PostCode    PostCode `json:"postCode"`
	Place       string   `json:"place"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	IsOpen      bool     `json:"isOpen"`
}

type StationDetailsResponse struct {
	OK      bool           `json:"ok"`
	Message string         `json:"message,omitempty"`
	Station StationDetails `json:"station"`
}

// IsEmpty reports whether the upstream sent a station with no identifying
// fields, e.g. `"station": {}` or no station key at all.
func (sd *StationDetails) IsEmpty() bool {
	return sd.Brand == "" && sd.Street == "" && sd.Place == "" && sd.PostCode == ""
}

// ToTuple returns the insert arguments for a gasstations row. The brand is
// stored as the station name.
func (sd *StationDetails) ToTuple(stationId string) []any {
	return []any{
		stationId,
		sd.Brand,
		sd.Street,
		sd.HouseNumber,
		sd.Place,
		string(sd.PostCode),
	}
}
