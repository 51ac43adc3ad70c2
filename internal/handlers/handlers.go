package handlers

import (
	"context"

	"go.uber.org/zap"

	"weatherbot/internal/weather"
)

type WeatherGetter interface {
	GetWeather(ctx context.Context, place string) (weather.Summary, error)
}

type UpdateProcessor interface {
	Process(ctx context.Context, payload []byte) error
}

// Handler manages HTTP request handlers
type Handler struct {
	weatherService WeatherGetter
	updates        UpdateProcessor
	zoneLabel      string
	log            *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(weatherSvc WeatherGetter, updates UpdateProcessor, zoneLabel string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		weatherService: weatherSvc,
		updates:        updates,
		zoneLabel:      zoneLabel,
		log:            log,
	}
}
