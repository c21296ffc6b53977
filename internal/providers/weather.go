package providers

import (
	"context"
	"fmt"
	"sync"

	"wayfinder/internal/travel"
)

// StaticWeather serves fixed per-city conditions. The zero value answers
// "mild and outdoor-friendly" for every city.
type StaticWeather struct {
	mu         sync.RWMutex
	conditions map[string]travel.Weather
}

// NewStaticWeather creates a provider with the given per-city conditions.
func NewStaticWeather(conditions map[string]travel.Weather) *StaticWeather {
	return &StaticWeather{conditions: conditions}
}

// Set replaces the conditions for one city.
func (w *StaticWeather) Set(cityCode string, weather travel.Weather) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conditions == nil {
		w.conditions = make(map[string]travel.Weather)
	}
	w.conditions[cityCode] = weather
}

func (w *StaticWeather) Current(_ context.Context, cityCode string) (travel.Weather, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if weather, ok := w.conditions[cityCode]; ok {
		return weather, nil
	}
	return travel.Weather{IsOutdoorFriendly: true, TemperatureC: 18, Condition: "clear"}, nil
}

// FailingWeather always errors; tests use it to exercise the best-effort
// weather path.
type FailingWeather struct{}

func (FailingWeather) Current(context.Context, string) (travel.Weather, error) {
	return travel.Weather{}, fmt.Errorf("weather service unavailable")
}
