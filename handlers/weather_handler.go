package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/glasscast-app/glasscast-backend/errors"
	"github.com/glasscast-app/glasscast-backend/services"
)

// WeatherHandler serves the weather surface: current conditions, daily
// forecasts, today's temperature range and city search.
type WeatherHandler struct {
	weather *services.WeatherService
	widget  *services.WidgetService
}

func NewWeatherHandler(weather *services.WeatherService, widget *services.WidgetService) *WeatherHandler {
	return &WeatherHandler{weather: weather, widget: widget}
}

func parseCoordinates(c *gin.Context) (float64, float64, bool) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid coordinates", "lat and lon must be decimal numbers"))
		return 0, 0, false
	}
	return lat, lon, true
}

// GetWeather fetches current conditions for a coordinate. The fetch always
// hits the provider; on provider failure a stale cached snapshot of any age
// is served instead. A successful fetch also refreshes the owner's widget
// hand-off entry when the primary flag is set.
func (h *WeatherHandler) GetWeather(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	lat, lon, ok := parseCoordinates(c)
	if !ok {
		return
	}

	snapshot, err := h.weather.FetchWeather(c.Request.Context(), lat, lon)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if primary, _ := strconv.ParseBool(c.Query("primary")); primary {
		h.widget.Publish(c.Request.Context(), ownerID, snapshot)
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetCachedWeather returns the fresh cached snapshot for a coordinate, or
// 204 when none exists. It never touches the provider, so it is safe for
// first paint.
func (h *WeatherHandler) GetCachedWeather(c *gin.Context) {
	if _, ok := ownerFromContext(c); !ok {
		return
	}
	lat, lon, ok := parseCoordinates(c)
	if !ok {
		return
	}

	snapshot := h.weather.GetCachedWeather(c.Request.Context(), lat, lon)
	if snapshot == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetForecast fetches the aggregated daily forecast for a coordinate, with
// the same stale-fallback behavior as GetWeather.
func (h *WeatherHandler) GetForecast(c *gin.Context) {
	if _, ok := ownerFromContext(c); !ok {
		return
	}
	lat, lon, ok := parseCoordinates(c)
	if !ok {
		return
	}

	days, err := h.weather.FetchForecast(c.Request.Context(), lat, lon)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// GetTodayRange derives today's actual temperature extremes from the raw
// forecast. 204 when the provider fails or no forecast slot falls on today.
func (h *WeatherHandler) GetTodayRange(c *gin.Context) {
	if _, ok := ownerFromContext(c); !ok {
		return
	}
	lat, lon, ok := parseCoordinates(c)
	if !ok {
		return
	}

	r, err := h.weather.GetTodayHighLow(c.Request.Context(), lat, lon)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if r == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, r)
}

// GetWidgetSnapshot returns the owner's last published widget hand-off
// entry, or 204 when none has been published yet.
func (h *WeatherHandler) GetWidgetSnapshot(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	data, found := h.widget.Load(c.Request.Context(), ownerID)
	if !found {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, data)
}

// SearchCities geocodes a free-text query into candidate cities.
func (h *WeatherHandler) SearchCities(c *gin.Context) {
	if _, ok := ownerFromContext(c); !ok {
		return
	}

	candidates, err := h.weather.SearchCities(c.Request.Context(), c.Query("q"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}
