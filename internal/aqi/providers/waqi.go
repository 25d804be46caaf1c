package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-monitor/internal/aqi"
	"github.com/i474232898/air-quality-monitor/internal/common"
)

const (
	DefaultWAQIBaseURL = "https://api.waqi.info"
	DefaultWAQIStation = "shanghai/pudonghuinan"
)

// WAQIProvider implements the aqi.Provider interface for the World Air Quality Index feed API.
type WAQIProvider struct {
	name    string
	token   string
	baseURL string
	station string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewWAQIProvider creates a provider for one station feed. Empty baseURL or
// station fall back to the defaults.
func NewWAQIProvider(client *http.Client, token, baseURL, station string) *WAQIProvider {
	if baseURL == "" {
		baseURL = DefaultWAQIBaseURL
	}
	if station == "" {
		station = DefaultWAQIStation
	}
	httpCfg := HTTPClientConfig{Client: client}

	return &WAQIProvider{
		name:    "waqi",
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		station: strings.Trim(station, "/"),
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("waqi", httpCfg),
	}
}

func (p *WAQIProvider) Name() string {
	return p.name
}

// Fetch retrieves the current reading for the configured station.
func (p *WAQIProvider) Fetch(ctx context.Context) (aqi.Reading, error) {
	if p.token == "" {
		return aqi.Reading{}, fmt.Errorf("%w: waqi token is not configured", aqi.ErrConfiguration)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("token", p.token)

		u := fmt.Sprintf("%s/feed/%s/?%s", p.baseURL, escapeStation(p.station), values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	body, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return aqi.Reading{}, err
	}
	return parseFeed(body)
}

// feedResponse mirrors the parts of the WAQI feed payload we use.
// On error, data is a plain string describing the problem.
type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI  json.RawMessage `json:"aqi"`
	Time struct {
		ISO string `json:"iso"`
	} `json:"time"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	DominentPol string `json:"dominentpol"`
}

func parseFeed(body []byte) (aqi.Reading, error) {
	var payload feedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return aqi.Reading{}, &aqi.APIError{Status: "malformed", Detail: err.Error()}
	}

	if payload.Status != "ok" {
		detail := errorDetail(payload.Data)
		return aqi.Reading{}, &aqi.APIError{
			Status:       payload.Status,
			Detail:       detail,
			InvalidToken: common.HasAnyFold(detail, "invalid key", "invalid token"),
		}
	}

	var data feedData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return aqi.Reading{}, &aqi.APIError{Status: "malformed", Detail: fmt.Sprintf("data: %v", err)}
	}

	index, err := parseIndex(data.AQI)
	if err != nil {
		return aqi.Reading{}, &aqi.APIError{Status: "malformed", Detail: err.Error()}
	}

	observedAt, err := time.Parse(time.RFC3339, data.Time.ISO)
	if err != nil {
		return aqi.Reading{}, &aqi.APIError{Status: "malformed", Detail: fmt.Sprintf("time.iso: %v", err)}
	}

	return aqi.Reading{
		AQI:               index,
		ObservedAt:        observedAt,
		Station:           data.City.Name,
		DominantPollutant: data.DominentPol,
	}, nil
}

// parseIndex accepts the AQI as a JSON number or a numeric string.
// WAQI reports "-" when the station has no current value.
func parseIndex(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("aqi: missing")
	}
	s := strings.Trim(string(raw), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("aqi: not a number: %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("aqi: out of range: %q", s)
	}
	return int(f), nil
}

func errorDetail(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if len(raw) == 0 {
		return "no detail"
	}
	return string(raw)
}

// escapeStation escapes each path segment of a feed name such as
// "shanghai/pudonghuinan" or "@1437" while keeping the separators.
func escapeStation(station string) string {
	parts := strings.Split(station, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
