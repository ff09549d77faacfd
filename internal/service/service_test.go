package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/auth"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newEventService(store *memStore) *EventService {
	return NewEventService(memEvents{store}, memRegistrations{store}, nopLogger(), WithClock(fixedClock))
}

func identity(u model.User) auth.Identity {
	return auth.Identity{UserID: u.ID, SessionID: "s-" + u.ID}
}

func TestCreateEvent_SanitizesAndStores(t *testing.T) {
	store := newMemStore()
	svc := newEventService(store)

	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Title:    "<script>Hi</script>",
		Datetime: testClock.Add(48 * time.Hour).Format(time.RFC3339),
		Location: "  Main <b>Hall</b> ",
		Capacity: json.Number("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, "scriptHi/script", event.Title)
	assert.Equal(t, "Main bHall/b", event.Location)
	assert.Equal(t, 50, event.Capacity)
	assert.True(t, event.Datetime.Equal(testClock.Add(48*time.Hour)))
}

func TestCreateEvent_ValidationErrorsCollected(t *testing.T) {
	store := newMemStore()
	svc := newEventService(store)

	_, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Title:    "",
		Datetime: "2020-01-01T00:00:00Z",
		Location: "Hall",
		Capacity: json.Number("10"),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Title is required", "Event date must be in the future"}, verr.Messages)
	assert.Empty(t, store.events, "nothing is stored when validation fails")
}

func TestCreateEvent_OnlyBracketsLeft(t *testing.T) {
	svc := newEventService(newMemStore())

	_, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Title:    "<>",
		Datetime: testClock.Add(time.Hour).Format(time.RFC3339),
		Location: "Hall",
		Capacity: json.Number("1"),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Title is required"}, verr.Messages)
}

func TestCreateEvent_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.failWith = errBoom
	svc := newEventService(store)

	_, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Title:    "t",
		Datetime: testClock.Add(time.Hour).Format(time.RFC3339),
		Location: "l",
		Capacity: json.Number("1"),
	})
	require.ErrorIs(t, err, errBoom)
}

func TestRegister_RequiresIdentity(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(5, testClock.Add(time.Hour))
	svc := newEventService(store)

	_, err := svc.Register(context.Background(), event.ID, auth.Identity{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	err = svc.CancelRegistration(context.Background(), event.ID, auth.Identity{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRegister_DomainErrorsPassThrough(t *testing.T) {
	store := newMemStore()
	open := store.addEvent(1, testClock.Add(time.Hour))
	past := store.addEvent(100, testClock.Add(-time.Hour))
	alice := store.addUser("Alice", "alice@example.com")
	bob := store.addUser("Bob", "bob@example.com")
	svc := newEventService(store)
	ctx := context.Background()

	_, err := svc.Register(ctx, open.ID, identity(alice))
	require.NoError(t, err)

	_, err = svc.Register(ctx, open.ID, identity(alice))
	assert.ErrorIs(t, err, repository.ErrAlreadyRegistered)

	_, err = svc.Register(ctx, open.ID, identity(bob))
	assert.ErrorIs(t, err, repository.ErrEventFull)

	_, err = svc.Register(ctx, past.ID, identity(bob))
	assert.ErrorIs(t, err, repository.ErrEventInPast)

	_, err = svc.Register(ctx, "missing", identity(bob))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRegister_StoreFailureWrapped(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(1, testClock.Add(time.Hour))
	alice := store.addUser("Alice", "alice@example.com")
	store.failWith = errBoom
	svc := newEventService(store)

	_, err := svc.Register(context.Background(), event.ID, identity(alice))
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "register for event")
}

func TestRegister_ConcurrentCallersRespectCapacity(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(3, testClock.Add(time.Hour))
	svc := newEventService(store)

	users := make([]model.User, 12)
	for i := range users {
		users[i] = store.addUser(fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@example.com", i))
	}

	results := make([]model.BookingResult, len(users))
	var g errgroup.Group
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			_, err := svc.Register(context.Background(), event.ID, identity(u))
			results[i] = model.BookingResult{UserID: u.ID, Success: err == nil, Error: err}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			assert.ErrorIs(t, r.Error, repository.ErrEventFull)
		}
	}
	assert.Equal(t, 3, ok)
}

func TestCancelThenRegister(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(1, testClock.Add(time.Hour))
	alice := store.addUser("Alice", "alice@example.com")
	svc := newEventService(store)
	ctx := context.Background()

	_, err := svc.Register(ctx, event.ID, identity(alice))
	require.NoError(t, err)
	require.NoError(t, svc.CancelRegistration(ctx, event.ID, identity(alice)))
	assert.ErrorIs(t, svc.CancelRegistration(ctx, event.ID, identity(alice)), repository.ErrNotFound)

	_, err = svc.Register(ctx, event.ID, identity(alice))
	require.NoError(t, err)
}

func TestGetEventDetails(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(5, testClock.Add(time.Hour))
	alice := store.addUser("Alice", "alice@example.com")
	svc := newEventService(store)
	ctx := context.Background()

	details, err := svc.GetEventDetails(ctx, event.ID)
	require.NoError(t, err)
	assert.NotNil(t, details.RegisteredUsers)
	assert.Empty(t, details.RegisteredUsers)

	_, err = svc.Register(ctx, event.ID, identity(alice))
	require.NoError(t, err)

	details, err = svc.GetEventDetails(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, details.ID)
	assert.Equal(t, []model.UserProfile{alice.Profile()}, details.RegisteredUsers)

	_, err = svc.GetEventDetails(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetEventStats(t *testing.T) {
	store := newMemStore()
	event := store.addEvent(3, testClock.Add(time.Hour))
	svc := newEventService(store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		u := store.addUser(fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@example.com", i))
		_, err := svc.Register(ctx, event.ID, identity(u))
		require.NoError(t, err)
	}

	stats, err := svc.GetEventStats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, &model.EventStats{TotalRegistrations: 2, RemainingCapacity: 1, PercentageUsed: 66.67}, stats)

	_, err = svc.GetEventStats(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStats(t *testing.T) {
	assert.Equal(t, &model.EventStats{TotalRegistrations: 2, RemainingCapacity: 0, PercentageUsed: 100}, Stats(2, 2))
	assert.Equal(t, &model.EventStats{TotalRegistrations: 1, RemainingCapacity: 2, PercentageUsed: 33.33}, Stats(3, 1))
	assert.Equal(t, &model.EventStats{TotalRegistrations: 0, RemainingCapacity: 1000, PercentageUsed: 0}, Stats(1000, 0))
	// A count above capacity never reports negative room.
	assert.Equal(t, 0, Stats(2, 3).RemainingCapacity)
}

func TestListUpcomingEvents(t *testing.T) {
	store := newMemStore()
	store.addEvent(5, testClock.Add(-time.Hour))
	later := store.addEvent(5, testClock.Add(2*time.Hour))
	sooner := store.addEvent(5, testClock.Add(time.Hour))
	svc := newEventService(store)

	upcoming, err := svc.ListUpcomingEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, sooner.ID, upcoming[0].ID)
	assert.Equal(t, later.ID, upcoming[1].ID)

	all, err := svc.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListEvents_EmptyIsNotNil(t *testing.T) {
	svc := newEventService(newMemStore())

	all, err := svc.ListEvents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
}
