package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/glasscast-app/glasscast-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestCurrentWeatherMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"coord": {"lon": 3.38, "lat": 6.52},
			"weather": [{"id": 501, "main": "Rain", "description": "moderate rain", "icon": "10d"}],
			"main": {"temp": 28.4, "feels_like": 31.2, "temp_min": 26.0, "temp_max": 30.1, "humidity": 84},
			"wind": {"speed": 5.0},
			"rain": {"1h": 2.5},
			"sys": {"country": "NG"},
			"name": "Lagos",
			"dt": 1717243200
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL)
	snapshot, err := client.CurrentWeather(context.Background(), 6.52, 3.38)
	require.NoError(t, err)

	assert.Equal(t, "Lagos", snapshot.CityName)
	assert.Equal(t, "NG", snapshot.Country)
	assert.Equal(t, 28.4, snapshot.Temperature)
	assert.Equal(t, types.ConditionRain, snapshot.Condition)
	assert.Equal(t, "moderate rain", snapshot.Description)
	assert.Equal(t, "10d", snapshot.IconCode)
	assert.InDelta(t, 18.0, snapshot.WindSpeed, 0.001) // 5 m/s -> 18 km/h
	assert.Equal(t, 25, snapshot.RainChance)
	assert.Equal(t, time.Unix(1717243200, 0).UTC(), snapshot.Timestamp)
}

func TestCurrentWeatherUnknownCondition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"weather": [{"main": "Tornado", "description": "tornado", "icon": "50d"}],
			"main": {"temp": 20},
			"wind": {"speed": 40},
			"sys": {"country": "US"},
			"name": "Moore",
			"dt": 1717243200
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL)
	snapshot, err := client.CurrentWeather(context.Background(), 35.34, -97.49)
	require.NoError(t, err)
	assert.Equal(t, types.ConditionUnknown, snapshot.Condition)
}

func TestCurrentWeatherProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("bad-key", srv.URL, srv.URL)
	_, err := client.CurrentWeather(context.Background(), 6.52, 3.38)
	assert.ErrorContains(t, err, "401")
}

func TestForecastReturnsRawList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"list": [
				{"dt": 1717243200, "main": {"temp_min": 12, "temp_max": 18}, "weather": [{"main": "Clouds", "icon": "03d"}], "pop": 0.4},
				{"dt": 1717254000, "main": {"temp_min": 10, "temp_max": 20}, "weather": [{"main": "Rain", "icon": "10d"}], "pop": 0.8}
			],
			"city": {"name": "Lagos", "country": "NG"}
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL)
	resp, err := client.Forecast(context.Background(), 6.52, 3.38)
	require.NoError(t, err)
	require.Len(t, resp.List, 2)
	assert.Equal(t, int64(1717243200), resp.List[0].Dt)
	assert.Equal(t, 0.8, resp.List[1].Pop)
	assert.Equal(t, "Lagos", resp.City.Name)
}

func TestSearchCities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/direct", r.URL.Path)
		assert.Equal(t, "Lagos", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"name": "Lagos", "lat": 6.46, "lon": 3.39, "country": "NG", "state": "Lagos"},
			{"name": "Lagos", "lat": 37.10, "lon": -8.67, "country": "PT"}
		]`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, srv.URL)
	cities, err := client.SearchCities(context.Background(), "Lagos", 0)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "NG", cities[0].Country)
	assert.Equal(t, "Lagos, Lagos, NG", cities[0].DisplayName())
	assert.Equal(t, "Lagos, PT", cities[1].DisplayName())
}

func TestSearchCitiesBlankQuery(t *testing.T) {
	client := NewClient("test-key", "http://unused", "http://unused")
	cities, err := client.SearchCities(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, cities)
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, NewClient("key", "", "").IsConfigured())
	assert.False(t, NewClient("", "", "").IsConfigured())
}
