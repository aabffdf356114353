package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/glasscast-app/glasscast-backend/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const widgetKeyPrefix = "glasscast:widget:weather:"

// WidgetWeatherData is the reduced snapshot handed off to widget surfaces.
// Widgets read only this; they never reach into the weather cache proper.
type WidgetWeatherData struct {
	CityName    string                 `json:"city_name"`
	Temperature float64                `json:"temperature"`
	TempMin     float64                `json:"temp_min"`
	TempMax     float64                `json:"temp_max"`
	Condition   types.WeatherCondition `json:"condition"`
	IconCode    string                 `json:"icon_code"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// WidgetService publishes each owner's latest primary-city weather to a
// well-known key for widget surfaces to poll. Publishing is best effort:
// failures are logged and never surface to the caller, a widget showing
// slightly outdated data is acceptable.
type WidgetService struct {
	client *redis.Client
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewWidgetService(client *redis.Client) *WidgetService {
	return &WidgetService{
		client: client,
		log:    logger.GetLogger(),
		now:    time.Now,
	}
}

func widgetKey(ownerID uuid.UUID) string {
	return widgetKeyPrefix + ownerID.String()
}

// Publish overwrites the owner's widget hand-off entry with the given
// snapshot.
func (s *WidgetService) Publish(ctx context.Context, ownerID uuid.UUID, snapshot *types.WeatherSnapshot) {
	if snapshot == nil {
		return
	}
	data := WidgetWeatherData{
		CityName:    snapshot.CityName,
		Temperature: snapshot.Temperature,
		TempMin:     snapshot.TempMin,
		TempMax:     snapshot.TempMax,
		Condition:   snapshot.Condition,
		IconCode:    snapshot.IconCode,
		UpdatedAt:   s.now().UTC(),
	}
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Errorw("Failed to encode widget hand-off entry", "owner_id", ownerID, "error", err)
		return
	}
	if err := s.client.Set(ctx, widgetKey(ownerID), raw, 0).Err(); err != nil {
		s.log.Warnw("Failed to publish widget hand-off entry", "owner_id", ownerID, "error", err)
	}
}

// Load reads the owner's widget hand-off entry. A missing or unreadable
// entry is reported as absent.
func (s *WidgetService) Load(ctx context.Context, ownerID uuid.UUID) (*WidgetWeatherData, bool) {
	raw, err := s.client.Get(ctx, widgetKey(ownerID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warnw("Failed to read widget hand-off entry", "owner_id", ownerID, "error", err)
		}
		return nil, false
	}
	var data WidgetWeatherData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warnw("Discarding malformed widget hand-off entry", "owner_id", ownerID, "error", err)
		return nil, false
	}
	return &data, true
}

// Clear removes the owner's widget hand-off entry. Called on sign-out so a
// widget cannot keep showing a signed-out account's data.
func (s *WidgetService) Clear(ctx context.Context, ownerID uuid.UUID) {
	if err := s.client.Del(ctx, widgetKey(ownerID)).Err(); err != nil {
		s.log.Warnw("Failed to clear widget hand-off entry", "owner_id", ownerID, "error", err)
	}
}
