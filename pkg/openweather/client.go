// Package openweather is a thin client for the OpenWeatherMap current
// weather, 5-day forecast and direct geocoding endpoints.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/glasscast-app/glasscast-backend/types"
)

// ClientInterface defines the provider operations the weather service needs.
type ClientInterface interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error)
	Forecast(ctx context.Context, lat, lon float64) (*ForecastResponse, error)
	SearchCities(ctx context.Context, query string, limit int) ([]types.CityCandidate, error)
	IsConfigured() bool
}

type Client struct {
	apiKey     string
	baseURL    string
	geoURL     string
	httpClient *http.Client
}

var _ ClientInterface = (*Client)(nil)

func NewClient(apiKey, baseURL, geoURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		geoURL:  geoURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// CurrentResponse is the provider's current-weather payload.
type CurrentResponse struct {
	Coord struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"coord"`
	Weather []WeatherInfo `json:"weather"`
	Main    MainInfo      `json:"main"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain *struct {
		OneHour   float64 `json:"1h"`
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
}

// ForecastResponse is the provider's 5-day/3-hour forecast payload.
type ForecastResponse struct {
	List []ForecastItem `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

// ForecastItem is one 3-hour forecast slot.
type ForecastItem struct {
	Dt      int64         `json:"dt"`
	Main    MainInfo      `json:"main"`
	Weather []WeatherInfo `json:"weather"`
	Pop     float64       `json:"pop"`
}

type MainInfo struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
}

type WeatherInfo struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type geocodingResponse struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// CurrentWeather fetches and maps the current conditions at a coordinate.
// Temperatures come back in Celsius (metric units); wind speed is converted
// from m/s to km/h.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("units", "metric")
	params.Set("appid", c.apiKey)

	var resp CurrentResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/weather?%s", c.baseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}
	return snapshotFromResponse(&resp), nil
}

// Forecast fetches the raw 5-day/3-hour forecast at a coordinate. The caller
// aggregates slots into daily entries; the raw list is also the source of the
// calendar-day high/low derivation.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*ForecastResponse, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("units", "metric")
	params.Set("appid", c.apiKey)

	var resp ForecastResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/forecast?%s", c.baseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchCities geocodes a free-text query into city candidates. A blank query
// returns no candidates without a network call.
func (c *Client) SearchCities(ctx context.Context, query string, limit int) ([]types.CityCandidate, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("appid", c.apiKey)

	var resp []geocodingResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/direct?%s", c.geoURL, params.Encode()), &resp); err != nil {
		return nil, err
	}

	candidates := make([]types.CityCandidate, 0, len(resp))
	for _, r := range resp {
		candidates = append(candidates, types.CityCandidate{
			Name:    r.Name,
			Country: r.Country,
			State:   r.State,
			Lat:     r.Lat,
			Lon:     r.Lon,
		})
	}
	return candidates, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.GetLogger().Warnw("Weather provider returned non-OK status",
			"statusCode", resp.StatusCode, "url", req.URL.Path)
		return fmt.Errorf("weather provider returned status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func snapshotFromResponse(resp *CurrentResponse) *types.WeatherSnapshot {
	var info WeatherInfo
	if len(resp.Weather) > 0 {
		info = resp.Weather[0]
	}

	rainChance := 0
	if resp.Rain != nil {
		rainChance = int(resp.Rain.OneHour * 10)
	}

	return &types.WeatherSnapshot{
		CityName:    resp.Name,
		Country:     resp.Sys.Country,
		Temperature: resp.Main.Temp,
		FeelsLike:   resp.Main.FeelsLike,
		TempMin:     resp.Main.TempMin,
		TempMax:     resp.Main.TempMax,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed * 3.6,
		Condition:   types.ConditionFromAPI(info.Main),
		Description: info.Description,
		IconCode:    info.Icon,
		RainChance:  rainChance,
		Timestamp:   time.Unix(resp.Dt, 0).UTC(),
	}
}
