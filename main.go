package main

import (
	"crypto/tls"

	"github.com/glasscast-app/glasscast-backend/config"
	"github.com/glasscast-app/glasscast-backend/handlers"
	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/glasscast-app/glasscast-backend/pkg/openweather"
	"github.com/glasscast-app/glasscast-backend/router"
	"github.com/glasscast-app/glasscast-backend/services"
	"github.com/glasscast-app/glasscast-backend/store"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() {
		if err := logger.Close(); err != nil {
			log.Errorf("Failed to close logger: %v", err)
		}
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Redis client with TLS in production
	redisOptions := &redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}
	if cfg.IsProduction() || cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			ServerName: cfg.Redis.Address,
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)

	cache := store.NewRedisCache(redisClient, store.TTLPolicy{
		Weather:  cfg.Cache.WeatherTTL,
		Forecast: cfg.Cache.ForecastTTL,
		Cities:   cfg.Cache.CitiesTTL,
	})

	// The Supabase client stays nil when unconfigured; the city store fails
	// fast as not-configured instead of dialing a dead endpoint.
	var supabaseClient *supabase.Client
	if cfg.Supabase.IsConfigured() {
		supabaseClient, err = supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, nil)
		if err != nil {
			log.Fatalf("Failed to initialize Supabase client: %v", err)
		}
	}
	cityStore := store.NewSupabaseCityStore(supabaseClient, cache)

	weatherClient := openweather.NewClient(cfg.Weather.APIKey, cfg.Weather.BaseURL, cfg.Weather.GeoURL)
	weatherService := services.NewWeatherService(weatherClient, cache)
	widgetService := services.NewWidgetService(redisClient)
	favoritesManager := services.NewFavoritesManager(cityStore)

	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		CityHandler:    handlers.NewCityHandler(favoritesManager, cityStore, cache, widgetService),
		WeatherHandler: handlers.NewWeatherHandler(weatherService, widgetService),
		HealthHandler:  handlers.NewHealthHandler(cfg, redisClient),
	})

	log.Infof("Starting server on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
