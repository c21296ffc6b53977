package rides

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider wraps a DemoProvider and counts Quote calls, for cache
// assertions.
type countingProvider struct {
	*DemoProvider
	quoteCalls atomic.Int64
}

func (p *countingProvider) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	p.quoteCalls.Add(1)
	return p.DemoProvider.Quote(ctx, req)
}

func testRequest() QuoteRequest {
	return QuoteRequest{Origin: "alexanderplatz", Destination: "tempelhofer feld", CityCode: "berlin"}
}

func TestQuotesFansOutToAllProviders(t *testing.T) {
	a := NewAggregator(DemoProviders(), nil)

	set, err := a.Quotes(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, set.Quotes, 2)
	assert.Nil(t, set.Failures)

	names := []string{set.Quotes[0].Provider, set.Quotes[1].Provider}
	assert.ElementsMatch(t, []string{"swiftcab", "glideride"}, names)
	assert.LessOrEqual(t, set.Quotes[0].PriceEstimate, set.Quotes[1].PriceEstimate, "quotes come back cheapest first")
	for _, q := range set.Quotes {
		assert.Equal(t, "USD", q.Currency)
		assert.Positive(t, q.PriceEstimate)
		assert.Positive(t, q.PickupETAMin)
	}
}

func TestQuotesAreDeterministicPerTrip(t *testing.T) {
	first, err := NewAggregator(DemoProviders(), nil).Quotes(context.Background(), testRequest())
	require.NoError(t, err)
	second, err := NewAggregator(DemoProviders(), nil).Quotes(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, first.Quotes, second.Quotes)
}

func TestQuotesPartialFailureIsNotFatal(t *testing.T) {
	providers := append(DemoProviders(), FailingProvider{ProviderName: "brokenride"})
	a := NewAggregator(providers, nil)

	set, err := a.Quotes(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Len(t, set.Quotes, 2)
	require.Contains(t, set.Failures, "brokenride")
	assert.Contains(t, set.Failures["brokenride"], "offline")
}

func TestQuotesAllProvidersDown(t *testing.T) {
	a := NewAggregator([]Provider{FailingProvider{ProviderName: "a"}, FailingProvider{ProviderName: "b"}}, nil)

	set, err := a.Quotes(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, set.Quotes)
	assert.Len(t, set.Failures, 2)
}

func TestQuotesServedFromCacheOnRepeat(t *testing.T) {
	counting := &countingProvider{DemoProvider: NewDemoProvider("swiftcab", "standard", 4.5, 1.6)}
	a := NewAggregator([]Provider{counting}, nil)

	_, err := a.Quotes(context.Background(), testRequest())
	require.NoError(t, err)
	_, err = a.Quotes(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counting.quoteCalls.Load(), "second identical request should hit the cache")

	other := testRequest()
	other.Destination = "museum island"
	_, err = a.Quotes(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counting.quoteCalls.Load(), "a different trip is a different cache key")
}

func TestQuotesCancelledContextAborts(t *testing.T) {
	a := NewAggregator(DemoProviders(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Quotes(ctx, testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBookAndCancelRoundTrip(t *testing.T) {
	a := NewAggregator(DemoProviders(), nil)

	booking, err := a.Book(context.Background(), BookingRequest{
		Provider:    "swiftcab",
		Origin:      "alexanderplatz",
		Destination: "tempelhofer feld",
		RideClass:   "standard",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, "swiftcab", booking.Provider)
	assert.Equal(t, "confirmed", booking.Status)
	assert.False(t, booking.CreatedAt.IsZero())

	require.NoError(t, a.Cancel(context.Background(), booking.ID))

	err = a.Cancel(context.Background(), booking.ID)
	assert.ErrorIs(t, err, ErrUnknownBooking, "a cancelled booking leaves the index")
}

func TestBookUnknownProvider(t *testing.T) {
	a := NewAggregator(DemoProviders(), nil)

	_, err := a.Book(context.Background(), BookingRequest{
		Provider:    "phantomride",
		Origin:      "a",
		Destination: "b",
	})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestCancelUnknownBooking(t *testing.T) {
	a := NewAggregator(DemoProviders(), nil)
	err := a.Cancel(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrUnknownBooking)
}

func TestDemoProviderRejectsBlankEndpoints(t *testing.T) {
	p := NewDemoProvider("swiftcab", "standard", 4.5, 1.6)

	_, err := p.Quote(context.Background(), QuoteRequest{Origin: "  ", Destination: "x"})
	require.Error(t, err)
	_, err = p.Book(context.Background(), BookingRequest{Origin: "x", Destination: ""})
	require.Error(t, err)
}

func TestComfortClassCostsMore(t *testing.T) {
	standard := NewDemoProvider("swiftcab", "standard", 4.5, 1.6)
	comfort := NewDemoProvider("glideride", "comfort", 6.0, 2.1)

	for i := 0; i < 5; i++ {
		req := QuoteRequest{Origin: fmt.Sprintf("origin-%d", i), Destination: "destination", CityCode: "nyc"}
		sq, err := standard.Quote(context.Background(), req)
		require.NoError(t, err)
		cq, err := comfort.Quote(context.Background(), req)
		require.NoError(t, err)
		assert.Greater(t, cq.PriceEstimate, sq.PriceEstimate)
	}
}
