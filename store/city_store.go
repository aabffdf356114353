package store

import (
	"context"

	"github.com/glasscast-app/glasscast-backend/types"
	"github.com/google/uuid"
)

// CityStore is the cache-aware CRUD boundary over the remote backend for
// saved cities. Every read is scoped to an owner; writes carry the owner for
// row-level scoping and cache invalidation.
type CityStore interface {
	// GetAllCities returns the owner's city list, newest first. Unless
	// forceRefresh is set, a fresh cached list short-circuits the network.
	// When the remote call fails, an expired cached list is served instead;
	// with no cache at all the fetch failure propagates.
	GetAllCities(ctx context.Context, ownerID uuid.UUID, forceRefresh bool) ([]types.SavedCity, error)
	// GetFavorites delegates to GetAllCities and filters by the favorite
	// flag. It never issues an independent remote query.
	GetFavorites(ctx context.Context, ownerID uuid.UUID, forceRefresh bool) ([]types.SavedCity, error)
	// AddCity inserts a candidate for the owner, rejecting duplicates by
	// (name, country) before any remote write. The returned city carries the
	// server-assigned identifier and timestamp.
	AddCity(ctx context.Context, ownerID uuid.UUID, candidate types.CityCandidate) (*types.SavedCity, error)
	// ToggleFavorite partially updates only the favorite flag. A backend
	// whose schema lacks the column turns the call into a silent no-op.
	ToggleFavorite(ctx context.Context, ownerID, cityID uuid.UUID, isFavorite bool) error
	// DeleteCity removes the city, which drops it from both the all-cities
	// and favorites views since a single list backs both.
	DeleteCity(ctx context.Context, ownerID, cityID uuid.UUID) error
}
