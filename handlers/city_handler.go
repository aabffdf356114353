// Package handlers contains the gin HTTP handlers exposing the sync core.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/glasscast-app/glasscast-backend/errors"
	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/glasscast-app/glasscast-backend/middleware"
	"github.com/glasscast-app/glasscast-backend/services"
	"github.com/glasscast-app/glasscast-backend/store"
	"github.com/glasscast-app/glasscast-backend/types"
	"github.com/google/uuid"
)

// CityHandler serves the saved-city surface: list, favorites, add, favorite
// toggle, delete and sign-out. All reads go through the favorites manager so
// every surface sees the same authoritative state.
type CityHandler struct {
	manager   *services.FavoritesManager
	cityStore store.CityStore
	cache     store.CacheStore
	widget    *services.WidgetService
}

func NewCityHandler(manager *services.FavoritesManager, cityStore store.CityStore, cache store.CacheStore, widget *services.WidgetService) *CityHandler {
	return &CityHandler{
		manager:   manager,
		cityStore: cityStore,
		cache:     cache,
		widget:    widget,
	}
}

// ToggleResponse reports the post-toggle state of a city.
type ToggleResponse struct {
	ID         uuid.UUID `json:"id"`
	IsFavorite bool      `json:"is_favorite"`
	IsToggling bool      `json:"is_toggling"`
}

func ownerFromContext(c *gin.Context) (uuid.UUID, bool) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
	}
	return ownerID, ok
}

func forceRefresh(c *gin.Context) bool {
	force, _ := strconv.ParseBool(c.Query("force_refresh"))
	return force
}

// ListCities returns the owner's saved cities, newest first. A failed reload
// degrades to the last known state; the failure surfaces only when no state
// exists at all.
func (h *CityHandler) ListCities(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	err := h.manager.LoadCities(c.Request.Context(), ownerID, forceRefresh(c))
	cities := h.manager.Cities(ownerID)
	if err != nil && len(cities) == 0 {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cities)
}

// ListFavorites returns the favorited subset of the owner's saved cities.
func (h *CityHandler) ListFavorites(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	err := h.manager.LoadCities(c.Request.Context(), ownerID, forceRefresh(c))
	cities := h.manager.Cities(ownerID)
	if err != nil && len(cities) == 0 {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.manager.Favorites(ownerID))
}

// AddCity persists a new city and front-inserts it into the owner's list.
func (h *CityHandler) AddCity(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	var candidate types.CityCandidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid city payload", err.Error()))
		return
	}
	if candidate.Name == "" {
		_ = c.Error(apperrors.ValidationFailed("Invalid city payload", "name is required"))
		return
	}

	city, err := h.cityStore.AddCity(c.Request.Context(), ownerID, candidate)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.manager.AddCity(ownerID, *city)
	c.JSON(http.StatusCreated, city)
}

// ToggleFavorite flips the favorite flag of one of the owner's cities. The
// response carries the resulting state; a duplicate toggle arriving while
// one is in flight is a no-op and reports the current state.
func (h *CityHandler) ToggleFavorite(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	cityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid city ID", err.Error()))
		return
	}
	if _, found := h.manager.GetCity(ownerID, cityID); !found {
		_ = c.Error(apperrors.NotFound("City", cityID))
		return
	}

	if err := h.manager.ToggleFavorite(c.Request.Context(), ownerID, cityID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToggleResponse{
		ID:         cityID,
		IsFavorite: h.manager.IsFavorite(ownerID, cityID),
		IsToggling: h.manager.IsToggling(ownerID, cityID),
	})
}

// DeleteCity removes a city from persistence and from the owner's list.
func (h *CityHandler) DeleteCity(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	cityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid city ID", err.Error()))
		return
	}

	if err := h.cityStore.DeleteCity(c.Request.Context(), ownerID, cityID); err != nil {
		_ = c.Error(err)
		return
	}
	h.manager.RemoveCity(ownerID, cityID)
	c.Status(http.StatusNoContent)
}

// SignOut clears every piece of the owner's server-held view state: the
// reconciliation state, all cache categories and the widget hand-off entry.
func (h *CityHandler) SignOut(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	log := logger.GetLogger()

	h.manager.ClearAllData(ownerID)
	if err := h.cache.ClearAll(c.Request.Context()); err != nil {
		log.Warnw("Cache wipe on sign-out failed", "owner_id", ownerID, "error", err)
	}
	h.widget.Clear(c.Request.Context(), ownerID)
	c.Status(http.StatusNoContent)
}
