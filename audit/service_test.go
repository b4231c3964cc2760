// audit/service_test.go
package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cardlyhq/cardly/util"
)

// mockRepository lives here rather than test/mock to avoid an import
// cycle: test/mock imports audit for the shared mocks used by other
// packages.
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Append(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockRepository) Query(ctx context.Context, from, to time.Time, userID, resourceID string, limit, offset int) ([]Event, error) {
	args := m.Called(ctx, from, to, userID, resourceID, limit, offset)
	return args.Get(0).([]Event), args.Error(1)
}

func TestRecordDropsInvalidEvents(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo)

	svc.Record(context.Background(), Event{UserID: "", Action: "login"})
	svc.Record(context.Background(), Event{UserID: "user-1", Action: ""})

	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestRecordFillsDefaults(t *testing.T) {
	repo := new(mockRepository)
	var appended Event
	repo.On("Append", mock.Anything, mock.AnythingOfType("audit.Event")).
		Run(func(args mock.Arguments) {
			appended = args.Get(1).(Event)
		}).
		Return(nil)

	svc := NewService(repo)
	svc.Record(context.Background(), Event{UserID: "user-1", Action: "share_contacts"})

	assert.Equal(t, SeverityInfo, appended.Severity)
	assert.False(t, appended.Timestamp.IsZero())
}

func TestRecordSwallowsRepositoryFailure(t *testing.T) {
	repo := new(mockRepository)
	repo.On("Append", mock.Anything, mock.AnythingOfType("audit.Event")).
		Return(errors.New("elasticsearch down"))

	svc := NewService(repo)

	// Must not panic and must not surface the failure.
	svc.Record(context.Background(), Event{UserID: "user-1", Action: "share_contacts"})
	repo.AssertExpectations(t)
}

func TestQueryEventsPassthrough(t *testing.T) {
	repo := new(mockRepository)
	from := time.Now().Add(-time.Hour)
	to := time.Now()
	want := []Event{{UserID: "user-1", Action: "operation_denied"}}
	repo.On("Query", mock.Anything, from, to, "user-1", "team-1", 20, 0).Return(want, nil)

	svc := NewService(repo)
	got, err := svc.QueryEvents(context.Background(), from, to, "user-1", "team-1", 20, 0)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDispatcherDeliversBusEvents(t *testing.T) {
	repo := new(mockRepository)
	appended := make(chan Event, 1)
	repo.On("Append", mock.Anything, mock.AnythingOfType("audit.Event")).
		Run(func(args mock.Arguments) {
			appended <- args.Get(1).(Event)
		}).
		Return(nil)

	bus := util.NewEventBus()
	NewDispatcher(NewService(repo), bus)

	bus.Publish(context.Background(), TopicSecurityEvent, Event{
		UserID:   "user-1",
		Action:   "operation_denied",
		Severity: SeverityMedium,
	})

	select {
	case event := <-appended:
		assert.Equal(t, "user-1", event.UserID)
		assert.Equal(t, SeverityMedium, event.Severity)
	case <-time.After(time.Second):
		t.Fatal("expected the dispatcher to persist the published event")
	}
}

func TestDispatcherIgnoresForeignPayloads(t *testing.T) {
	repo := new(mockRepository)
	bus := util.NewEventBus()
	NewDispatcher(NewService(repo), bus)

	bus.Publish(context.Background(), TopicSecurityEvent, "not an event")
	time.Sleep(50 * time.Millisecond)

	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}
