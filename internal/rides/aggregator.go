package rides

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"wayfinder/internal/logging"
)

const (
	quoteCacheSize = 256
	quoteCacheTTL  = 30 * time.Second
)

// Aggregator fans quote requests out to all configured providers and
// brokers bookings through the provider that issued the chosen quote.
type Aggregator struct {
	providers []Provider
	byName    map[string]Provider
	logger    logging.Logger

	quoteCache *expirable.LRU[string, Quote]

	mu       sync.RWMutex
	bookings map[string]string // booking id -> provider name
}

// NewAggregator creates an aggregator over the given providers.
func NewAggregator(providers []Provider, logger logging.Logger) *Aggregator {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Aggregator{
		providers:  providers,
		byName:     byName,
		logger:     logging.OrNop(logger),
		quoteCache: expirable.NewLRU[string, Quote](quoteCacheSize, nil, quoteCacheTTL),
		bookings:   make(map[string]string),
	}
}

// Quotes collects quotes from every provider concurrently. Provider
// failures are reported in the result, never returned as an error; the
// only error case is a context cancellation that aborts the fan-out.
func (a *Aggregator) Quotes(ctx context.Context, req QuoteRequest) (QuoteSet, error) {
	var (
		mu       sync.Mutex
		quotes   []Quote
		failures = make(map[string]string)
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range a.providers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := quoteKey(p.Name(), req)
			if cached, ok := a.quoteCache.Get(key); ok {
				mu.Lock()
				quotes = append(quotes, cached)
				mu.Unlock()
				return nil
			}
			quote, err := p.Quote(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn("quote from %s failed: %v", p.Name(), err)
				failures[p.Name()] = err.Error()
				return nil
			}
			a.quoteCache.Add(key, quote)
			quotes = append(quotes, quote)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return QuoteSet{}, fmt.Errorf("quote fan-out aborted: %w", err)
	}

	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].PriceEstimate != quotes[j].PriceEstimate {
			return quotes[i].PriceEstimate < quotes[j].PriceEstimate
		}
		return quotes[i].Provider < quotes[j].Provider
	})
	if len(failures) == 0 {
		failures = nil
	}
	return QuoteSet{Quotes: quotes, Failures: failures}, nil
}

// Book reserves a ride with the named provider and records the booking in
// the id index so Cancel can route without scanning providers.
func (a *Aggregator) Book(ctx context.Context, req BookingRequest) (Booking, error) {
	provider, ok := a.byName[req.Provider]
	if !ok {
		return Booking{}, unknownProvider(req.Provider)
	}
	booking, err := provider.Book(ctx, req)
	if err != nil {
		return Booking{}, fmt.Errorf("book with %s: %w", req.Provider, err)
	}
	a.mu.Lock()
	a.bookings[booking.ID] = provider.Name()
	a.mu.Unlock()
	a.logger.Info("booked %s with %s", booking.ID, provider.Name())
	return booking, nil
}

// Cancel releases a booking. The owning provider comes from the booking
// index recorded at Book time; an id the index does not know yields
// ErrUnknownBooking.
func (a *Aggregator) Cancel(ctx context.Context, bookingID string) error {
	a.mu.RLock()
	name, ok := a.bookings[bookingID]
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBooking, bookingID)
	}
	provider, ok := a.byName[name]
	if !ok {
		return unknownProvider(name)
	}
	if err := provider.Cancel(ctx, bookingID); err != nil {
		return fmt.Errorf("cancel with %s: %w", name, err)
	}
	a.mu.Lock()
	delete(a.bookings, bookingID)
	a.mu.Unlock()
	return nil
}

func quoteKey(provider string, req QuoteRequest) string {
	return provider + "|" + req.CityCode + "|" + req.Origin + "|" + req.Destination
}
