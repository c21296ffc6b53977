// Package providers defines the external collaborator boundary of the
// pipeline: weather, route candidates, and ride quotes all arrive through
// the interfaces here. The bundled implementations are deterministic and
// data-driven so the pipeline runs end to end without live services.
package providers

import (
	"context"

	"wayfinder/internal/travel"
)

// WeatherProvider returns a current-conditions snapshot for a city. Errors
// are treated by the orchestrator as "no weather data", never as fatal.
type WeatherProvider interface {
	Current(ctx context.Context, cityCode string) (travel.Weather, error)
}

// CandidateProvider supplies route candidates for an origin/destination
// pair. An empty slice is a valid "no routes" result, not an error.
type CandidateProvider interface {
	Candidates(ctx context.Context, origin, destination, cityCode string) ([]travel.RouteCandidate, error)
}
