package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	apperrors "github.com/glasscast-app/glasscast-backend/errors"
	"github.com/glasscast-app/glasscast-backend/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/supabase-go"
)

// fakeCache is an in-memory CacheStore double. Entries written through Put
// are fresh; seedStale plants entries only reachable through GetStale.
type fakeCache struct {
	mu    sync.Mutex
	fresh map[string][]byte
	stale map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{fresh: map[string][]byte{}, stale: map[string][]byte{}}
}

func (f *fakeCache) cacheKey(cat Category, key string) string {
	return string(cat) + "/" + key
}

func (f *fakeCache) seedStale(cat Category, key string, payload interface{}) {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale[f.cacheKey(cat, key)] = data
}

func (f *fakeCache) Get(ctx context.Context, cat Category, key string, dest interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.fresh[f.cacheKey(cat, key)]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (f *fakeCache) GetStale(ctx context.Context, cat Category, key string, dest interface{}) bool {
	if f.Get(ctx, cat, key, dest) {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.stale[f.cacheKey(cat, key)]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (f *fakeCache) Put(ctx context.Context, cat Category, key string, payload interface{}) {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fresh[f.cacheKey(cat, key)] = data
}

func (f *fakeCache) Invalidate(ctx context.Context, cat Category, keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.fresh, f.cacheKey(cat, k))
		delete(f.stale, f.cacheKey(cat, k))
	}
}

func (f *fakeCache) ClearAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fresh = map[string][]byte{}
	f.stale = map[string][]byte{}
	return nil
}

var _ CacheStore = (*fakeCache)(nil)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// newPostgRESTServer fakes the PostgREST surface of Supabase: one handler
// serves every request and records what arrived.
func newPostgRESTServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*supabase.Client, *httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	requests := &[]recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		*requests = append(*requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := supabase.NewClient(srv.URL, "test-anon-key", nil)
	require.NoError(t, err)
	return client, srv, requests
}

func cityJSON(id, owner uuid.UUID, name, country string, favorite bool) map[string]interface{} {
	row := map[string]interface{}{
		"id":          id.String(),
		"user_id":     owner.String(),
		"city_name":   name,
		"lat":         6.52,
		"lon":         3.38,
		"created_at":  "2024-06-01T10:00:00Z",
		"is_favorite": favorite,
	}
	if country != "" {
		row["country"] = country
	}
	return row
}

func TestGetAllCitiesCacheHitSkipsNetwork(t *testing.T) {
	owner := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected network call on cache hit")
	})

	cache := newFakeCache()
	cache.Put(context.Background(), CategoryCities, owner.String(), []types.SavedCity{
		{ID: uuid.New(), UserID: owner, CityName: "Lagos"},
	})

	store := NewSupabaseCityStore(client, cache)
	cities, err := store.GetAllCities(context.Background(), owner, false)
	require.NoError(t, err)
	assert.Len(t, cities, 1)
	assert.Empty(t, *requests)
}

func TestGetAllCitiesFetchesAndCaches(t *testing.T) {
	owner := uuid.New()
	cityID := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			cityJSON(cityID, owner, "Lagos", "NG", true),
		})
	})

	cache := newFakeCache()
	store := NewSupabaseCityStore(client, cache)

	cities, err := store.GetAllCities(context.Background(), owner, false)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, cityID, cities[0].ID)
	assert.True(t, cities[0].IsFavorite)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Contains(t, req.Query, "user_id=eq."+owner.String())
	assert.Contains(t, req.Query, "order=created_at.desc")

	// Result is cached: second read is served locally.
	more, err := store.GetAllCities(context.Background(), owner, false)
	require.NoError(t, err)
	assert.Len(t, more, 1)
	assert.Len(t, *requests, 1)
}

func TestGetAllCitiesForceRefreshBypassesCache(t *testing.T) {
	owner := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{})
	})

	cache := newFakeCache()
	cache.Put(context.Background(), CategoryCities, owner.String(), []types.SavedCity{
		{ID: uuid.New(), UserID: owner, CityName: "Lagos"},
	})

	store := NewSupabaseCityStore(client, cache)
	cities, err := store.GetAllCities(context.Background(), owner, true)
	require.NoError(t, err)
	assert.Empty(t, cities)
	assert.Len(t, *requests, 1)
}

func TestGetAllCitiesStaleFallback(t *testing.T) {
	owner := uuid.New()
	client, _, _ := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message": "upstream down"}`))
	})

	cache := newFakeCache()
	cache.seedStale(CategoryCities, owner.String(), []types.SavedCity{
		{ID: uuid.New(), UserID: owner, CityName: "Lagos", IsFavorite: true},
	})

	store := NewSupabaseCityStore(client, cache)
	cities, err := store.GetAllCities(context.Background(), owner, false)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, "Lagos", cities[0].CityName)
}

func TestGetAllCitiesNoCachePropagatesFetchFailure(t *testing.T) {
	owner := uuid.New()
	client, _, _ := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message": "upstream down"}`))
	})

	store := NewSupabaseCityStore(client, newFakeCache())
	_, err := store.GetAllCities(context.Background(), owner, false)
	assert.True(t, apperrors.IsType(err, apperrors.FetchFailedError))
}

func TestGetAllCitiesNotConfigured(t *testing.T) {
	store := NewSupabaseCityStore(nil, newFakeCache())
	_, err := store.GetAllCities(context.Background(), uuid.New(), false)
	assert.True(t, apperrors.IsType(err, apperrors.NotConfiguredError))
}

func TestGetFavoritesFiltersWithoutExtraQuery(t *testing.T) {
	owner := uuid.New()
	favID := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			cityJSON(favID, owner, "Lagos", "NG", true),
			cityJSON(uuid.New(), owner, "Abuja", "NG", false),
		})
	})

	store := NewSupabaseCityStore(client, newFakeCache())
	favorites, err := store.GetFavorites(context.Background(), owner, false)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, favID, favorites[0].ID)
	assert.Len(t, *requests, 1)
}

func TestAddCityRejectsDuplicateBeforeRemoteWrite(t *testing.T) {
	owner := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			cityJSON(uuid.New(), owner, "Lagos", "NG", false),
		})
	})

	store := NewSupabaseCityStore(client, newFakeCache())
	_, err := store.AddCity(context.Background(), owner, types.CityCandidate{
		Name: "Lagos", Country: "NG", Lat: 6.52, Lon: 3.38,
	})
	assert.True(t, apperrors.IsType(err, apperrors.AlreadyExistsError))

	// Only the list read went out; no insert was attempted.
	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodGet, (*requests)[0].Method)
}

func TestAddCityInsertsAndInvalidatesCache(t *testing.T) {
	owner := uuid.New()
	newID := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]interface{}{})
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode([]map[string]interface{}{
				cityJSON(newID, owner, "Lagos", "NG", false),
			})
		}
	})

	cache := newFakeCache()
	store := NewSupabaseCityStore(client, cache)
	city, err := store.AddCity(context.Background(), owner, types.CityCandidate{
		Name: "Lagos", Country: "NG", Lat: 6.52, Lon: 3.38,
	})
	require.NoError(t, err)
	assert.Equal(t, newID, city.ID)
	assert.False(t, city.IsFavorite)
	require.NotNil(t, city.Country)
	assert.Equal(t, "NG", *city.Country)

	require.Len(t, *requests, 2)
	insert := (*requests)[1]
	assert.Equal(t, http.MethodPost, insert.Method)
	assert.Contains(t, insert.Body, `"city_name":"Lagos"`)
	// The insert payload must omit is_favorite for legacy schemas.
	assert.NotContains(t, insert.Body, "is_favorite")

	// List cache was invalidated by the successful insert.
	var cached []types.SavedCity
	assert.False(t, cache.Get(context.Background(), CategoryCities, owner.String(), &cached))
}

func TestToggleFavoriteIssuesPartialUpdate(t *testing.T) {
	owner := uuid.New()
	cityID := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	cache := newFakeCache()
	cache.Put(context.Background(), CategoryCities, owner.String(), []types.SavedCity{})
	store := NewSupabaseCityStore(client, cache)

	require.NoError(t, store.ToggleFavorite(context.Background(), owner, cityID, true))

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Contains(t, req.Query, "id=eq."+cityID.String())
	assert.Contains(t, req.Query, "user_id=eq."+owner.String())
	assert.JSONEq(t, `{"is_favorite": true}`, req.Body)

	var cached []types.SavedCity
	assert.False(t, cache.Get(context.Background(), CategoryCities, owner.String(), &cached))
}

func TestToggleFavoriteMissingColumnIsSilentAndLatches(t *testing.T) {
	owner := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code": "42703", "message": "column \"is_favorite\" of relation \"saved_cities\" does not exist"}`))
	})

	store := NewSupabaseCityStore(client, newFakeCache())

	require.NoError(t, store.ToggleFavorite(context.Background(), owner, uuid.New(), true))
	require.Len(t, *requests, 1)

	// Capability flag latched: the next toggle skips the network entirely.
	require.NoError(t, store.ToggleFavorite(context.Background(), owner, uuid.New(), false))
	assert.Len(t, *requests, 1)
}

func TestToggleFavoriteOtherFailureSurfaces(t *testing.T) {
	owner := uuid.New()
	client, _, _ := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code": "42501", "message": "permission denied"}`))
	})

	store := NewSupabaseCityStore(client, newFakeCache())
	err := store.ToggleFavorite(context.Background(), owner, uuid.New(), true)
	assert.True(t, apperrors.IsType(err, apperrors.UpdateFailedError))
}

func TestDeleteCityInvalidatesCache(t *testing.T) {
	owner := uuid.New()
	cityID := uuid.New()
	client, _, requests := newPostgRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	cache := newFakeCache()
	cache.Put(context.Background(), CategoryCities, owner.String(), []types.SavedCity{})
	store := NewSupabaseCityStore(client, cache)

	require.NoError(t, store.DeleteCity(context.Background(), owner, cityID))

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Contains(t, req.Query, "id=eq."+cityID.String())

	var cached []types.SavedCity
	assert.False(t, cache.Get(context.Background(), CategoryCities, owner.String(), &cached))
}

func TestIsMissingFavoriteColumn(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`{"code": "42703", "message": "column \"is_favorite\" does not exist"}`, true},
		{`{"code": "42703", "message": "column \"color\" does not exist"}`, false},
		{`{"code": "42501", "message": "permission denied for is_favorite"}`, false},
		{`(42703) column is_favorite does not exist`, true},
		{`network timeout`, false},
	}
	for _, tc := range cases {
		err := errors.New(tc.raw)
		assert.Equal(t, tc.want, isMissingFavoriteColumn(err), tc.raw)
	}
}
