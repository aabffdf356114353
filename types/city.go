package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SavedCity is a city the user has added to their list. Cities are added from
// search with IsFavorite=false and can later be marked as favorites. A single
// list backs both the "all cities" and "favorites" views.
type SavedCity struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	CityName   string    `json:"city_name"`
	Country    *string   `json:"country,omitempty"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	CreatedAt  time.Time `json:"created_at"`
	IsFavorite bool      `json:"is_favorite"`

	// Weather is attached transiently for display and never persisted remotely.
	Weather *WeatherSnapshot `json:"-"`
}

// UnmarshalJSON defaults IsFavorite to true when the backing table predates
// the is_favorite column.
func (c *SavedCity) UnmarshalJSON(data []byte) error {
	type alias SavedCity
	aux := struct {
		IsFavorite *bool `json:"is_favorite"`
		*alias
	}{
		alias: (*alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.IsFavorite == nil {
		c.IsFavorite = true
	} else {
		c.IsFavorite = *aux.IsFavorite
	}
	return nil
}

// SameCity reports whether the saved city matches a (name, country) pair.
func (c *SavedCity) SameCity(name string, country *string) bool {
	if c.CityName != name {
		return false
	}
	if c.Country == nil || country == nil {
		return c.Country == nil && country == nil
	}
	return *c.Country == *country
}

// CityInsert is the insert payload for saved_cities. It deliberately omits
// is_favorite so inserts succeed against databases without the column.
type CityInsert struct {
	UserID   uuid.UUID `json:"user_id"`
	CityName string    `json:"city_name"`
	Country  *string   `json:"country,omitempty"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
}

// CityCandidate is a geocoding search result that can be added to the list.
type CityCandidate struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// DisplayName renders the candidate as "Name, State, Country" or "Name, Country".
func (c CityCandidate) DisplayName() string {
	if c.State != "" {
		return c.Name + ", " + c.State + ", " + c.Country
	}
	return c.Name + ", " + c.Country
}
