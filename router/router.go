// Package router wires the HTTP surface together.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/glasscast-app/glasscast-backend/config"
	"github.com/glasscast-app/glasscast-backend/handlers"
	"github.com/glasscast-app/glasscast-backend/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds everything SetupRouter needs to define routes.
type Dependencies struct {
	Config         *config.Config
	CityHandler    *handlers.CityHandler
	WeatherHandler *handlers.WeatherHandler
	HealthHandler  *handlers.HealthHandler
}

// SetupRouter configures and returns the gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	r.GET("/health/liveness", deps.HealthHandler.Liveness)
	r.GET("/health/readiness", deps.HealthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(&deps.Config.Supabase))
	{
		cities := v1.Group("/cities")
		{
			cities.GET("", deps.CityHandler.ListCities)
			cities.GET("/favorites", deps.CityHandler.ListFavorites)
			cities.POST("", deps.CityHandler.AddCity)
			cities.PATCH("/:id/favorite", deps.CityHandler.ToggleFavorite)
			cities.DELETE("/:id", deps.CityHandler.DeleteCity)
		}

		weather := v1.Group("/weather")
		{
			weather.GET("", deps.WeatherHandler.GetWeather)
			weather.GET("/cached", deps.WeatherHandler.GetCachedWeather)
			weather.GET("/forecast", deps.WeatherHandler.GetForecast)
			weather.GET("/today-range", deps.WeatherHandler.GetTodayRange)
			weather.GET("/search", deps.WeatherHandler.SearchCities)
		}

		v1.GET("/widget/weather", deps.WeatherHandler.GetWidgetSnapshot)
		v1.POST("/signout", deps.CityHandler.SignOut)
	}

	return r
}
