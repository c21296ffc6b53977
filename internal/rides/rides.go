// Package rides aggregates ride quotes across providers and brokers
// bookings. Quoting fans out to every provider concurrently and tolerates
// individual failures; booking pins the chosen provider in an index so a
// later cancel never has to guess which provider owns an id.
package rides

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// QuoteRequest identifies a trip to price.
type QuoteRequest struct {
	Origin      string `json:"origin" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	CityCode    string `json:"cityCode"`
}

// Quote is one provider's offer for a trip.
type Quote struct {
	Provider      string  `json:"provider"`
	RideClass     string  `json:"rideClass"`
	PriceEstimate float64 `json:"priceEstimate"`
	Currency      string  `json:"currency"`
	PickupETAMin  float64 `json:"pickupEtaMin"`
}

// QuoteSet is the aggregate quoting result. Failures maps provider name to
// the error message; a non-empty Failures with non-empty Quotes is a normal
// partial-success outcome.
type QuoteSet struct {
	Quotes   []Quote           `json:"quotes"`
	Failures map[string]string `json:"failures,omitempty"`
}

// BookingRequest selects one provider's quote to book.
type BookingRequest struct {
	Provider    string `json:"provider" validate:"required"`
	Origin      string `json:"origin" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	RideClass   string `json:"rideClass"`
}

// Booking confirms a reservation with one provider.
type Booking struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Provider is one ride service. Quote prices a trip, Book reserves it, and
// Cancel releases a reservation previously issued by the same provider.
type Provider interface {
	Name() string
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)
	Book(ctx context.Context, req BookingRequest) (Booking, error)
	Cancel(ctx context.Context, bookingID string) error
}

var (
	// ErrUnknownBooking is returned when a booking id was not issued
	// through this aggregator (or was already cancelled).
	ErrUnknownBooking = errors.New("rides: unknown booking id")
	// ErrUnknownProvider is returned when a booking names a provider the
	// aggregator was not configured with.
	ErrUnknownProvider = errors.New("rides: unknown provider")
)

func unknownProvider(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}
