package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	detailPath = "json/detail.php"
	pricesPath = "json/prices.php"
)

// HTTPStatusError is returned when the remote server responds with anything other than 200 OK.
type HTTPStatusError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status response from %s: %s", e.URL, e.Status)
}

// APIError is returned when the remote server answers with ok=false.
type APIError struct {
	URL     string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error from %s: %s", e.URL, e.Message)
}

// GasPricesClient reads station details and prices from the remote API.
// Both reads are best effort: any failure is logged and yields an empty result.
type GasPricesClient interface {
	GetStationDetails(ctx context.Context, stationId string) (*models.StationDetails, bool)
	GetGasPrices(ctx context.Context, stationIds []string) models.PriceMap
	LastUpdated() *time.Time
}

type gasPricesManager struct {
	baseUrl string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger

	mu              sync.RWMutex
	lastPricesFetch time.Time
}

func NewGasPricesClient(baseUrl, apiKey string, logger *slog.Logger) GasPricesClient {
	return &gasPricesManager{
		baseUrl: strings.TrimRight(baseUrl, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (mgr *gasPricesManager) GetStationDetails(ctx context.Context, stationId string) (*models.StationDetails, bool) {
	params := neturl.Values{}
	params.Set("id", stationId)

	var resp models.StationDetailsResponse
	url, err := mgr.get(ctx, detailPath, params, &resp)
	switch {
	case err != nil:
	case !resp.OK:
		err = &APIError{URL: url, Message: resp.Message}
	case resp.Station.IsEmpty():
		err = &APIError{URL: url, Message: "empty station details"}
	}
	if err != nil {
		mgr.degrade("detail", err, "station_id", stationId)
		return nil, false
	}

	priceSourceRequests.WithLabelValues("detail", "ok").Inc()
	return &resp.Station, true
}

func (mgr *gasPricesManager) GetGasPrices(ctx context.Context, stationIds []string) models.PriceMap {
	params := neturl.Values{}
	params.Set("ids", strings.Join(stationIds, ","))

	startTime := time.Now()
	var resp models.GasPricesResponse
	url, err := mgr.get(ctx, pricesPath, params, &resp)
	if err == nil && !resp.OK {
		err = &APIError{URL: url, Message: resp.Message}
	}
	if err != nil {
		mgr.degrade("prices", err, "stations", len(stationIds))
		return models.PriceMap{}
	}

	priceSourceRequests.WithLabelValues("prices", "ok").Inc()
	mgr.mu.Lock()
	mgr.lastPricesFetch = startTime
	mgr.mu.Unlock()

	if resp.Prices == nil {
		return models.PriceMap{}
	}
	return resp.Prices
}

func (mgr *gasPricesManager) LastUpdated() *time.Time {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	if mgr.lastPricesFetch.IsZero() {
		return nil
	}
	lastUpdated := mgr.lastPricesFetch
	return &lastUpdated
}

// degrade records a failed read. The remote message of an ok=false answer is
// surfaced as a warning; everything else is a transport problem.
func (mgr *gasPricesManager) degrade(endpoint string, err error, args ...any) {
	var apiErr *APIError
	var stErr *HTTPStatusError

	result := "transport_error"
	switch {
	case errors.As(err, &apiErr):
		result = "api_error"
		mgr.logger.Warn("price API reported failure", append(args, "endpoint", endpoint, "message", apiErr.Message)...)
	case errors.As(err, &stErr):
		result = "http_error"
		mgr.logger.Warn("price API returned unexpected status", append(args, "endpoint", endpoint, "status", stErr.StatusCode)...)
	default:
		mgr.logger.Warn("price API request failed", append(args, "endpoint", endpoint, "error", err)...)
	}
	priceSourceRequests.WithLabelValues(endpoint, result).Inc()
}

// get issues a GET for path with params plus the API key and decodes the JSON
// body into v. The returned url has the API key redacted and is safe to log.
func (mgr *gasPricesManager) get(ctx context.Context, path string, params neturl.Values, v any) (string, error) {
	redacted := fmt.Sprintf("%s/%s?%s", mgr.baseUrl, path, params.Encode())

	params.Set("apikey", mgr.apiKey)
	url := fmt.Sprintf("%s/%s?%s", mgr.baseUrl, path, params.Encode())

	mgr.logger.Debug("GET", "url", redacted)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return redacted, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := mgr.client.Do(req)
	if err != nil {
		return redacted, fmt.Errorf("failed to fetch from %s: %s", redacted, mgr.redact(err.Error()))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			mgr.logger.Warn("failed to close body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return redacted, &HTTPStatusError{URL: redacted, Status: resp.Status, StatusCode: resp.StatusCode}
	}

	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return redacted, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return redacted, nil
}

// redact strips the API key from s; transport errors embed the full request url.
func (mgr *gasPricesManager) redact(s string) string {
	if mgr.apiKey == "" {
		return s
	}
	return strings.ReplaceAll(s, neturl.QueryEscape(mgr.apiKey), "***")
}
