package services

import (
	"context"
	"sort"
	"time"

	apperrors "github.com/glasscast-app/glasscast-backend/errors"
	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/glasscast-app/glasscast-backend/pkg/openweather"
	"github.com/glasscast-app/glasscast-backend/store"
	"github.com/glasscast-app/glasscast-backend/types"
	"go.uber.org/zap"
)

// WeatherService is the read-through weather cache. Cached reads serve the
// initial render; fetches always hit the provider and overwrite the cache,
// falling back to a stale entry only when the provider fails.
type WeatherService struct {
	provider openweather.ClientInterface
	cache    store.CacheStore
	log      *zap.SugaredLogger

	// now is injectable so day-boundary derivations are testable.
	now func() time.Time
}

func NewWeatherService(provider openweather.ClientInterface, cache store.CacheStore) *WeatherService {
	return &WeatherService{
		provider: provider,
		cache:    cache,
		log:      logger.GetLogger(),
		now:      time.Now,
	}
}

// GetCachedWeather returns a fresh cached snapshot for the coordinate, or
// nil when none exists. It never touches the network.
func (s *WeatherService) GetCachedWeather(ctx context.Context, lat, lon float64) *types.WeatherSnapshot {
	var snapshot types.WeatherSnapshot
	if !s.cache.Get(ctx, store.CategoryWeather, types.CoordinateKey(lat, lon), &snapshot) {
		return nil
	}
	return &snapshot
}

// GetCachedForecast returns fresh cached daily forecasts for the coordinate,
// or nil when none exist. It never touches the network.
func (s *WeatherService) GetCachedForecast(ctx context.Context, lat, lon float64) []types.ForecastDay {
	var days []types.ForecastDay
	if !s.cache.Get(ctx, store.CategoryForecast, types.CoordinateKey(lat, lon), &days) {
		return nil
	}
	return days
}

// FetchWeather fetches current conditions from the provider and overwrites
// the cache entry for the coordinate. A cached entry being fresh does not
// suppress the fetch. On provider failure a stale entry of any age is
// returned instead; with no entry at all the failure surfaces.
func (s *WeatherService) FetchWeather(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	if !s.provider.IsConfigured() {
		return nil, apperrors.NotConfigured("Weather provider")
	}

	key := types.CoordinateKey(lat, lon)
	snapshot, err := s.provider.CurrentWeather(ctx, lat, lon)
	if err != nil {
		var stale types.WeatherSnapshot
		if s.cache.GetStale(ctx, store.CategoryWeather, key, &stale) {
			s.log.Warnw("Weather fetch failed, serving stale snapshot",
				"key", key, "captured_at", stale.Timestamp, "error", err)
			return &stale, nil
		}
		return nil, apperrors.Wrap(err, apperrors.FetchFailedError, "Failed to fetch current weather")
	}

	s.cache.Put(ctx, store.CategoryWeather, key, snapshot)
	return snapshot, nil
}

// FetchForecast fetches the provider forecast, aggregates it into daily
// entries and overwrites the cache entry for the coordinate. On provider
// failure a stale aggregate of any age is returned instead; with no entry
// at all the failure surfaces.
func (s *WeatherService) FetchForecast(ctx context.Context, lat, lon float64) ([]types.ForecastDay, error) {
	if !s.provider.IsConfigured() {
		return nil, apperrors.NotConfigured("Weather provider")
	}

	key := types.CoordinateKey(lat, lon)
	resp, err := s.provider.Forecast(ctx, lat, lon)
	if err != nil {
		var stale []types.ForecastDay
		if s.cache.GetStale(ctx, store.CategoryForecast, key, &stale) {
			s.log.Warnw("Forecast fetch failed, serving stale aggregate", "key", key, "error", err)
			return stale, nil
		}
		return nil, apperrors.Wrap(err, apperrors.FetchFailedError, "Failed to fetch forecast")
	}

	days := aggregateDaily(resp, s.now().UTC())
	s.cache.Put(ctx, store.CategoryForecast, key, days)
	return days, nil
}

// GetTodayHighLow derives today's actual temperature extremes from the raw
// forecast list, which beats the rolling-window min/max on the current
// snapshot. It returns nil without error when the provider fails or no slot
// falls on the current calendar day.
func (s *WeatherService) GetTodayHighLow(ctx context.Context, lat, lon float64) (*types.TemperatureRange, error) {
	if !s.provider.IsConfigured() {
		return nil, apperrors.NotConfigured("Weather provider")
	}

	resp, err := s.provider.Forecast(ctx, lat, lon)
	if err != nil {
		s.log.Debugw("Today high/low unavailable", "error", err)
		return nil, nil
	}
	return todayRange(resp, s.now().UTC()), nil
}

// SearchCities geocodes a free-text query into city candidates.
func (s *WeatherService) SearchCities(ctx context.Context, query string) ([]types.CityCandidate, error) {
	if !s.provider.IsConfigured() {
		return nil, apperrors.NotConfigured("Weather provider")
	}

	candidates, err := s.provider.SearchCities(ctx, query, 5)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.FetchFailedError, "Failed to search cities")
	}
	return candidates, nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// aggregateDaily groups the provider's 3-hour slots by UTC calendar day and
// reduces each group to one entry: min of slot minimums, max of slot
// maximums, highest precipitation probability. The representative condition
// comes from a midday slot (11:00-14:59) when the day has one, else the
// middle slot. Today's partial day is skipped; at most five future days are
// kept.
func aggregateDaily(resp *openweather.ForecastResponse, now time.Time) []types.ForecastDay {
	today := dayStart(now)
	grouped := make(map[time.Time][]openweather.ForecastItem)
	for _, item := range resp.List {
		day := dayStart(time.Unix(item.Dt, 0).UTC())
		if !day.After(today) {
			continue
		}
		grouped[day] = append(grouped[day], item)
	}

	days := make([]time.Time, 0, len(grouped))
	for day := range grouped {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	if len(days) > 5 {
		days = days[:5]
	}

	out := make([]types.ForecastDay, 0, len(days))
	for _, day := range days {
		items := grouped[day]
		entry := types.ForecastDay{
			Date:    day,
			TempMin: items[0].Main.TempMin,
			TempMax: items[0].Main.TempMax,
		}
		maxPop := 0.0
		for _, item := range items {
			if item.Main.TempMin < entry.TempMin {
				entry.TempMin = item.Main.TempMin
			}
			if item.Main.TempMax > entry.TempMax {
				entry.TempMax = item.Main.TempMax
			}
			if item.Pop > maxPop {
				maxPop = item.Pop
			}
		}
		entry.RainChance = int(maxPop * 100)

		rep := representativeItem(items)
		if len(rep.Weather) > 0 {
			entry.Condition = types.ConditionFromAPI(rep.Weather[0].Main)
			entry.IconCode = rep.Weather[0].Icon
		} else {
			entry.Condition = types.ConditionUnknown
		}
		out = append(out, entry)
	}
	return out
}

func representativeItem(items []openweather.ForecastItem) openweather.ForecastItem {
	for _, item := range items {
		hour := time.Unix(item.Dt, 0).UTC().Hour()
		if hour >= 11 && hour < 15 {
			return item
		}
	}
	return items[len(items)/2]
}

// todayRange reduces the slots falling on the current UTC calendar day to
// their overall min/max. Nil when no slot falls on today.
func todayRange(resp *openweather.ForecastResponse, now time.Time) *types.TemperatureRange {
	today := dayStart(now)
	var r *types.TemperatureRange
	for _, item := range resp.List {
		if !dayStart(time.Unix(item.Dt, 0).UTC()).Equal(today) {
			continue
		}
		if r == nil {
			r = &types.TemperatureRange{TempMin: item.Main.TempMin, TempMax: item.Main.TempMax}
			continue
		}
		if item.Main.TempMin < r.TempMin {
			r.TempMin = item.Main.TempMin
		}
		if item.Main.TempMax > r.TempMax {
			r.TempMax = item.Main.TempMax
		}
	}
	return r
}
