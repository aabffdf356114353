package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"

	apperrors "github.com/glasscast-app/glasscast-backend/errors"
	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/glasscast-app/glasscast-backend/types"
	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

const citiesTable = "saved_cities"

// errInsertReturnedNoRows covers a representation-returning insert that came
// back empty, which points at a row-level security misconfiguration.
var errInsertReturnedNoRows = errors.New("insert returned no rows")

// pgUndefinedColumn is the PostgreSQL error code PostgREST relays when the
// target column does not exist.
const pgUndefinedColumn = "42703"

// SupabaseCityStore implements CityStore against a Supabase PostgREST
// backend, reading through the persistent cache.
type SupabaseCityStore struct {
	client *supabase.Client
	cache  CacheStore
	log    *zap.SugaredLogger

	// favoriteColumnMissing is a schema-capability flag. Legacy deployments
	// predate the is_favorite column; the first undefined-column failure on a
	// toggle latches it and later toggles no-op without a round trip.
	favoriteColumnMissing atomic.Bool
}

var _ CityStore = (*SupabaseCityStore)(nil)

// NewSupabaseCityStore creates the store. client may be nil when Supabase is
// not configured; every remote operation then fails fast as not-configured.
func NewSupabaseCityStore(client *supabase.Client, cache CacheStore) *SupabaseCityStore {
	return &SupabaseCityStore{
		client: client,
		cache:  cache,
		log:    logger.GetLogger(),
	}
}

func (s *SupabaseCityStore) GetAllCities(ctx context.Context, ownerID uuid.UUID, forceRefresh bool) ([]types.SavedCity, error) {
	cacheKey := ownerID.String()

	if !forceRefresh {
		var cached []types.SavedCity
		if s.cache.Get(ctx, CategoryCities, cacheKey, &cached) {
			return cached, nil
		}
	}

	if s.client == nil {
		return nil, apperrors.NotConfigured("Supabase")
	}

	var cities []types.SavedCity
	_, err := s.client.From(citiesTable).
		Select("*", "", false).
		Eq("user_id", ownerID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&cities)
	if err != nil {
		// Network failure: fall back to cached data even if expired.
		var stale []types.SavedCity
		if s.cache.GetStale(ctx, CategoryCities, cacheKey, &stale) {
			s.log.Infow("City list fetch failed, serving stale cache",
				"owner_id", ownerID, "error", err)
			return stale, nil
		}
		return nil, apperrors.FetchFailed(err)
	}

	if cities == nil {
		cities = []types.SavedCity{}
	}
	s.cache.Put(ctx, CategoryCities, cacheKey, cities)
	return cities, nil
}

func (s *SupabaseCityStore) GetFavorites(ctx context.Context, ownerID uuid.UUID, forceRefresh bool) ([]types.SavedCity, error) {
	all, err := s.GetAllCities(ctx, ownerID, forceRefresh)
	if err != nil {
		return nil, err
	}
	favorites := make([]types.SavedCity, 0, len(all))
	for _, city := range all {
		if city.IsFavorite {
			favorites = append(favorites, city)
		}
	}
	return favorites, nil
}

func (s *SupabaseCityStore) AddCity(ctx context.Context, ownerID uuid.UUID, candidate types.CityCandidate) (*types.SavedCity, error) {
	if s.client == nil {
		return nil, apperrors.NotConfigured("Supabase")
	}

	var country *string
	if candidate.Country != "" {
		c := candidate.Country
		country = &c
	}

	// Duplicate check happens locally, cache-permitting, before any write.
	existing, err := s.GetAllCities(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].SameCity(candidate.Name, country) {
			return nil, apperrors.AlreadyExists(candidate.Name)
		}
	}

	insert := types.CityInsert{
		UserID:   ownerID,
		CityName: candidate.Name,
		Country:  country,
		Lat:      candidate.Lat,
		Lon:      candidate.Lon,
	}

	var inserted []types.SavedCity
	_, err = s.client.From(citiesTable).
		Insert(insert, false, "", "representation", "").
		ExecuteTo(&inserted)
	if err != nil {
		return nil, apperrors.AddFailed(err)
	}
	if len(inserted) == 0 {
		return nil, apperrors.AddFailed(errInsertReturnedNoRows)
	}

	s.cache.Invalidate(ctx, CategoryCities, ownerID.String())
	city := inserted[0]
	// A fresh insert is never a favorite. Legacy schemas without the column
	// would otherwise decode to the backward-compatible default of true.
	city.IsFavorite = false
	return &city, nil
}

func (s *SupabaseCityStore) ToggleFavorite(ctx context.Context, ownerID, cityID uuid.UUID, isFavorite bool) error {
	if s.client == nil {
		return apperrors.NotConfigured("Supabase")
	}
	if s.favoriteColumnMissing.Load() {
		s.log.Debugw("Favorite column missing on backend schema, skipping toggle",
			"city_id", cityID)
		return nil
	}

	_, _, err := s.client.From(citiesTable).
		Update(map[string]interface{}{"is_favorite": isFavorite}, "", "").
		Eq("id", cityID.String()).
		Eq("user_id", ownerID.String()).
		Execute()
	if err != nil {
		if isMissingFavoriteColumn(err) {
			// Legacy schema without the column: tolerate the write failure
			// and remember so later toggles skip the round trip.
			s.favoriteColumnMissing.Store(true)
			s.log.Warnw("Backend schema lacks is_favorite column, toggles are now no-ops",
				"error", err)
			return nil
		}
		return apperrors.UpdateFailed(err)
	}

	s.cache.Invalidate(ctx, CategoryCities, ownerID.String())
	return nil
}

func (s *SupabaseCityStore) DeleteCity(ctx context.Context, ownerID, cityID uuid.UUID) error {
	if s.client == nil {
		return apperrors.NotConfigured("Supabase")
	}

	_, _, err := s.client.From(citiesTable).
		Delete("", "").
		Eq("id", cityID.String()).
		Eq("user_id", ownerID.String()).
		Execute()
	if err != nil {
		return apperrors.DeleteFailed(err)
	}

	s.cache.Invalidate(ctx, CategoryCities, ownerID.String())
	return nil
}

// postgrestError is the JSON error body PostgREST returns for failed
// requests.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// isMissingFavoriteColumn detects the undefined-column error for is_favorite
// by structured code, not by free-text matching of the whole error.
func isMissingFavoriteColumn(err error) bool {
	raw := err.Error()
	var pgErr postgrestError
	if jsonErr := json.Unmarshal([]byte(raw), &pgErr); jsonErr == nil && pgErr.Code != "" {
		return pgErr.Code == pgUndefinedColumn && strings.Contains(pgErr.Message, "is_favorite")
	}
	// The PostgREST client does not always surface a parseable body; require
	// both the code and the column name before treating it as schema drift.
	return strings.Contains(raw, pgUndefinedColumn) && strings.Contains(raw, "is_favorite")
}
