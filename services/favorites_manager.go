// Package services contains the process-wide authorities of the sync core:
// the favorites reconciliation manager, the weather read-through cache and
// the widget hand-off publisher.
package services

import (
	"context"
	"sync"

	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/glasscast-app/glasscast-backend/store"
	"github.com/glasscast-app/glasscast-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FavoritesManager is the single authoritative view of every owner's saved
// cities and their favorite status. All surfaces read its derived state;
// none keeps an independent copy. It owns the optimistic-update and
// anti-race logic around favorite toggles.
//
// It is an explicitly constructed instance wired at the composition root,
// not an ambient global.
type FavoritesManager struct {
	cityStore store.CityStore
	log       *zap.SugaredLogger

	mu     sync.Mutex
	owners map[uuid.UUID]*ownerState
}

// ownerState is the reconciliation state for a single owner identity.
type ownerState struct {
	// cities is the authoritative ordered sequence, newest first.
	cities []types.SavedCity
	// favoriteIDs is derived from cities: recomputed after every state
	// change, never independently mutated.
	favoriteIDs map[uuid.UUID]struct{}
	// togglingIDs holds identifiers with a toggle in flight, guarding
	// against duplicate concurrent mutations of the same city.
	togglingIDs map[uuid.UUID]struct{}
}

func newOwnerState() *ownerState {
	return &ownerState{
		favoriteIDs: make(map[uuid.UUID]struct{}),
		togglingIDs: make(map[uuid.UUID]struct{}),
	}
}

func (s *ownerState) recomputeFavoriteIDs() {
	s.favoriteIDs = make(map[uuid.UUID]struct{}, len(s.cities))
	for i := range s.cities {
		if s.cities[i].IsFavorite {
			s.favoriteIDs[s.cities[i].ID] = struct{}{}
		}
	}
}

func (s *ownerState) indexOf(cityID uuid.UUID) int {
	for i := range s.cities {
		if s.cities[i].ID == cityID {
			return i
		}
	}
	return -1
}

func NewFavoritesManager(cityStore store.CityStore) *FavoritesManager {
	return &FavoritesManager{
		cityStore: cityStore,
		log:       logger.GetLogger(),
		owners:    make(map[uuid.UUID]*ownerState),
	}
}

// state returns the owner's state, creating it on first use. Callers must
// hold m.mu.
func (m *FavoritesManager) state(ownerID uuid.UUID) *ownerState {
	st, ok := m.owners[ownerID]
	if !ok {
		st = newOwnerState()
		m.owners[ownerID] = st
	}
	return st
}

// LoadCities replaces the owner's authoritative sequence from the city
// store and recomputes the favorite-ID set. On failure the prior state is
// kept and the error returned; whether to surface or swallow it is the
// caller's policy, not this manager's.
//
// Identifiers with a toggle currently in flight keep their optimistic flag
// value so a reload racing a toggle cannot clobber the uncommitted flip.
func (m *FavoritesManager) LoadCities(ctx context.Context, ownerID uuid.UUID, forceRefresh bool) error {
	cities, err := m.cityStore.GetAllCities(ctx, ownerID, forceRefresh)
	if err != nil {
		m.log.Warnw("City reload failed, keeping current state", "owner_id", ownerID, "error", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(ownerID)
	for i := range cities {
		if _, inflight := st.togglingIDs[cities[i].ID]; !inflight {
			continue
		}
		if cur := st.indexOf(cities[i].ID); cur >= 0 {
			cities[i].IsFavorite = st.cities[cur].IsFavorite
		}
	}
	st.cities = cities
	st.recomputeFavoriteIDs()
	return nil
}

// ToggleFavorite optimistically flips the favorite flag of one of the
// owner's cities and persists the change. At most one toggle per identifier
// may be in flight: a concurrent duplicate is a silent no-op. The current
// authoritative flag value decides the toggle direction, not whatever copy
// the caller read earlier. On persistence failure the flag reverts to its
// pre-toggle value. The identifier leaves the in-flight set on every exit
// path.
func (m *FavoritesManager) ToggleFavorite(ctx context.Context, ownerID, cityID uuid.UUID) error {
	m.mu.Lock()
	st := m.state(ownerID)
	if _, inflight := st.togglingIDs[cityID]; inflight {
		m.mu.Unlock()
		return nil
	}
	idx := st.indexOf(cityID)
	if idx < 0 {
		m.mu.Unlock()
		return nil
	}
	previous := st.cities[idx].IsFavorite
	next := !previous
	st.togglingIDs[cityID] = struct{}{}
	st.cities[idx].IsFavorite = next
	st.recomputeFavoriteIDs()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.state(ownerID).togglingIDs, cityID)
		m.mu.Unlock()
	}()

	err := m.cityStore.ToggleFavorite(ctx, ownerID, cityID, next)

	m.mu.Lock()
	if err != nil {
		st := m.state(ownerID)
		if i := st.indexOf(cityID); i >= 0 {
			st.cities[i].IsFavorite = previous
		}
		st.recomputeFavoriteIDs()
	}
	m.mu.Unlock()
	return err
}

// AddCity inserts a city at the front of the owner's authoritative
// sequence. Re-inserting an identifier already present is a no-op.
func (m *FavoritesManager) AddCity(ownerID uuid.UUID, city types.SavedCity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(ownerID)
	if st.indexOf(city.ID) >= 0 {
		return
	}
	st.cities = append([]types.SavedCity{city}, st.cities...)
	st.recomputeFavoriteIDs()
}

// RemoveCity drops a city from the owner's authoritative sequence, which
// removes it from both the all-cities and favorites views at once.
func (m *FavoritesManager) RemoveCity(ownerID, cityID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(ownerID)
	if idx := st.indexOf(cityID); idx >= 0 {
		st.cities = append(st.cities[:idx], st.cities[idx+1:]...)
	}
	st.recomputeFavoriteIDs()
}

// ClearAllData resets the owner's sequence, favorite-ID set and in-flight
// set. Called on sign-out.
func (m *FavoritesManager) ClearAllData(ownerID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, ownerID)
}

// IsFavorite reports membership in the derived favorite-ID set.
func (m *FavoritesManager) IsFavorite(ownerID, cityID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state(ownerID).favoriteIDs[cityID]
	return ok
}

// IsToggling reports whether a toggle for the city is currently in flight.
func (m *FavoritesManager) IsToggling(ownerID, cityID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state(ownerID).togglingIDs[cityID]
	return ok
}

// GetCity looks a city up by identifier in the authoritative sequence.
func (m *FavoritesManager) GetCity(ownerID, cityID uuid.UUID) (types.SavedCity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(ownerID)
	if idx := st.indexOf(cityID); idx >= 0 {
		return st.cities[idx], true
	}
	return types.SavedCity{}, false
}

// Cities returns a copy of the owner's authoritative sequence.
func (m *FavoritesManager) Cities(ownerID uuid.UUID) []types.SavedCity {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(ownerID)
	out := make([]types.SavedCity, len(st.cities))
	copy(out, st.cities)
	return out
}

// Favorites returns the favorited subset of the authoritative sequence, in
// sequence order.
func (m *FavoritesManager) Favorites(ownerID uuid.UUID) []types.SavedCity {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(ownerID)
	out := make([]types.SavedCity, 0, len(st.favoriteIDs))
	for i := range st.cities {
		if st.cities[i].IsFavorite {
			out = append(out, st.cities[i])
		}
	}
	return out
}
