package rides

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DemoProvider is a deterministic in-memory ride provider. Prices and ETAs
// derive from a hash of the trip so repeated requests quote identically.
type DemoProvider struct {
	name      string
	rideClass string
	baseFare  float64
	perKmish  float64

	mu     sync.Mutex
	booked map[string]Booking
}

// NewDemoProvider creates a provider with the given fare profile.
func NewDemoProvider(name, rideClass string, baseFare, perKmish float64) *DemoProvider {
	return &DemoProvider{
		name:      name,
		rideClass: rideClass,
		baseFare:  baseFare,
		perKmish:  perKmish,
		booked:    make(map[string]Booking),
	}
}

// DemoProviders returns the two providers bundled for local runs.
func DemoProviders() []Provider {
	return []Provider{
		NewDemoProvider("swiftcab", "standard", 4.5, 1.6),
		NewDemoProvider("glideride", "comfort", 6.0, 2.1),
	}
}

func (p *DemoProvider) Name() string { return p.name }

func (p *DemoProvider) Quote(_ context.Context, req QuoteRequest) (Quote, error) {
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return Quote{}, fmt.Errorf("origin and destination are required")
	}
	distance := pseudoDistanceKm(req.Origin, req.Destination)
	return Quote{
		Provider:      p.name,
		RideClass:     p.rideClass,
		PriceEstimate: round2(p.baseFare + p.perKmish*distance),
		Currency:      "USD",
		PickupETAMin:  float64(3 + int(distance)%5),
	}, nil
}

func (p *DemoProvider) Book(_ context.Context, req BookingRequest) (Booking, error) {
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return Booking{}, fmt.Errorf("origin and destination are required")
	}
	booking := Booking{
		ID:        uuid.NewString(),
		Provider:  p.name,
		Status:    "confirmed",
		CreatedAt: time.Now().UTC(),
	}
	p.mu.Lock()
	p.booked[booking.ID] = booking
	p.mu.Unlock()
	return booking, nil
}

func (p *DemoProvider) Cancel(_ context.Context, bookingID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.booked[bookingID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBooking, bookingID)
	}
	delete(p.booked, bookingID)
	return nil
}

// FailingProvider always errors; tests use it to exercise partial success.
type FailingProvider struct {
	ProviderName string
}

func (p FailingProvider) Name() string { return p.ProviderName }

func (p FailingProvider) Quote(context.Context, QuoteRequest) (Quote, error) {
	return Quote{}, fmt.Errorf("provider %s offline", p.ProviderName)
}

func (p FailingProvider) Book(context.Context, BookingRequest) (Booking, error) {
	return Booking{}, fmt.Errorf("provider %s offline", p.ProviderName)
}

func (p FailingProvider) Cancel(context.Context, string) error {
	return fmt.Errorf("provider %s offline", p.ProviderName)
}

func pseudoDistanceKm(origin, destination string) float64 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(origin))))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(destination))))
	return 1 + float64(h.Sum32()%120)/10 // 1.0 .. 12.9 km
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
