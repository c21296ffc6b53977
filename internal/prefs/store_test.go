package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeUnderTest(t *testing.T, name string) ProfileStore {
	t.Helper()
	if name == "file" {
		return NewFileStore(t.TempDir())
	}
	return NewMemoryStore()
}

func TestProfileStores(t *testing.T) {
	for _, kind := range []string{"memory", "file"} {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			store := storeUnderTest(t, kind)

			_, found, err := store.Get(ctx, "nobody")
			require.NoError(t, err)
			assert.False(t, found)

			profile := DefaultProfile("ada")
			profile.Trips = 3
			require.NoError(t, store.Put(ctx, profile))

			got, found, err := store.Get(ctx, "ada")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, 3, got.Trips)

			reset, err := store.Reset(ctx, "ada")
			require.NoError(t, err)
			assert.Equal(t, 0, reset.Trips)

			got, found, err = store.Get(ctx, "ada")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, 0, got.Trips)
		})
	}
}

func TestEventLogOrderingAndWindow(t *testing.T) {
	for _, kind := range []string{"memory", "file"} {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			store := storeUnderTest(t, kind)

			types := []EventType{EventChoseFaster, EventChoseCalmer, EventChoseCheaper, EventChoseComfort, EventTripCompleted}
			for i, et := range types {
				require.NoError(t, store.AppendEvent(ctx, Event{
					ID:     string(rune('a' + i)),
					UserID: "ada",
					Type:   et,
					At:     time.Now(),
				}))
			}

			all, err := store.RecentEvents(ctx, "ada", 0)
			require.NoError(t, err)
			require.Len(t, all, 5)
			assert.Equal(t, EventChoseFaster, all[0].Type)
			assert.Equal(t, EventTripCompleted, all[4].Type)

			recent, err := store.RecentEvents(ctx, "ada", 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, EventChoseComfort, recent[0].Type)
			assert.Equal(t, EventTripCompleted, recent[1].Type)
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewFileStore(dir)
	profile := DefaultProfile("ada")
	profile.OutdoorBias = 0.4
	require.NoError(t, first.Put(ctx, profile))
	require.NoError(t, first.AppendEvent(ctx, Event{UserID: "ada", Type: EventChoseFaster}))

	second := NewFileStore(dir)
	got, found, err := second.Get(ctx, "ada")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 0.4, got.OutdoorBias, 1e-9)

	events, err := second.RecentEvents(ctx, "ada", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
}

func TestFileStoreSanitizesUserIDs(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	profile := DefaultProfile("../../etc/passwd")
	require.NoError(t, store.Put(ctx, profile))

	got, found, err := store.Get(ctx, "../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, profile.UserID, got.UserID)
}
