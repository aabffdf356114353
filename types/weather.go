package types

import (
	"fmt"
	"time"
)

// WeatherCondition is the closed set of condition keywords the UI knows how
// to render. Unrecognized provider keywords map to ConditionUnknown.
type WeatherCondition string

const (
	ConditionClear        WeatherCondition = "Clear"
	ConditionClouds       WeatherCondition = "Clouds"
	ConditionRain         WeatherCondition = "Rain"
	ConditionDrizzle      WeatherCondition = "Drizzle"
	ConditionThunderstorm WeatherCondition = "Thunderstorm"
	ConditionSnow         WeatherCondition = "Snow"
	ConditionMist         WeatherCondition = "Mist"
	ConditionFog          WeatherCondition = "Fog"
	ConditionHaze         WeatherCondition = "Haze"
	ConditionDust         WeatherCondition = "Dust"
	ConditionSmoke        WeatherCondition = "Smoke"
	ConditionUnknown      WeatherCondition = "Unknown"
)

var knownConditions = map[WeatherCondition]struct{}{
	ConditionClear: {}, ConditionClouds: {}, ConditionRain: {},
	ConditionDrizzle: {}, ConditionThunderstorm: {}, ConditionSnow: {},
	ConditionMist: {}, ConditionFog: {}, ConditionHaze: {},
	ConditionDust: {}, ConditionSmoke: {},
}

// ConditionFromAPI maps a provider condition keyword to the closed enum.
// It never fails; anything unrecognized becomes ConditionUnknown.
func ConditionFromAPI(apiCondition string) WeatherCondition {
	c := WeatherCondition(apiCondition)
	if _, ok := knownConditions[c]; ok {
		return c
	}
	return ConditionUnknown
}

// WeatherSnapshot is an immutable point-in-time weather reading for a
// coordinate pair. Temperatures are Celsius, wind speed km/h. A snapshot is
// superseded by a newer one, never patched.
type WeatherSnapshot struct {
	CityName    string           `json:"city_name"`
	Country     string           `json:"country"`
	Temperature float64          `json:"temperature"`
	FeelsLike   float64          `json:"feels_like"`
	TempMin     float64          `json:"temp_min"`
	TempMax     float64          `json:"temp_max"`
	Humidity    int              `json:"humidity"`
	WindSpeed   float64          `json:"wind_speed"`
	Condition   WeatherCondition `json:"condition"`
	Description string           `json:"description"`
	IconCode    string           `json:"icon_code"`
	RainChance  int              `json:"rain_chance"`
	Timestamp   time.Time        `json:"timestamp"`
}

// ForecastDay is one daily aggregate of the provider's 3-hour entries.
type ForecastDay struct {
	Date       time.Time        `json:"date"`
	TempMin    float64          `json:"temp_min"`
	TempMax    float64          `json:"temp_max"`
	Condition  WeatherCondition `json:"condition"`
	IconCode   string           `json:"icon_code"`
	RainChance int              `json:"rain_chance"`
}

// TemperatureRange is a derived calendar-day min/max pair. It supersedes the
// provider's rolling-window min/max on the primary snapshot wherever both are
// available.
type TemperatureRange struct {
	TempMin float64 `json:"temp_min"`
	TempMax float64 `json:"temp_max"`
}

// CoordinateKey maps a coordinate pair to a cache key. Both components are
// rounded to 2 decimal places, so requests within roughly 1.1 km of each
// other share a cache entry.
func CoordinateKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lon)
}
