package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bookit/apperr"
	"bookit/catalog"
	"bookit/db/dbtest"
	"bookit/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staffOnly struct{}

func (staffOnly) IsAdmin(_ context.Context, s models.Subject) bool {
	return s.IsStaff || s.IsSuperuser
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.BookingEvent
	err    error
}

func (n *recordingNotifier) Emit(_ context.Context, ev models.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

type fixture struct {
	svc      *Service
	bookings *dbtest.Memory[models.Booking]
	services *dbtest.Memory[models.Service]
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bookings: dbtest.NewMemory[models.Booking](),
		services: dbtest.NewMemory(
			models.Service{ID: "svc-1", Title: "Haircut", Price: 49.99, IsActive: true},
			models.Service{ID: "svc-2", Title: "Massage", Price: 20, IsActive: true},
		),
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(f.bookings, f.services, staffOnly{}, f.notifier, zap.NewNop())

	seq := 0
	clock := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	f.svc.newID = func() string {
		seq++
		return fmt.Sprintf("b%d", seq)
	}
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return f
}

func request(serviceID string) models.BookingRequest {
	return models.BookingRequest{
		ServiceID:   serviceID,
		BookingDate: "2026-11-02",
		BookingTime: "10:00",
		Address:     "1 Main St",
	}
}

func TestCreateSnapshotsPriceAndTitle(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.Create(context.Background(), owner, request("svc-1"))
	require.NoError(t, err)

	assert.Equal(t, 49.99, b.TotalPrice)
	assert.Equal(t, "Haircut", b.ServiceTitle)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, owner.ID, b.UserID)
	assert.Equal(t, "2026-10-01T08:01:00.000000Z", b.CreatedAt)
	assert.Equal(t, 1, f.bookings.Len())

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "created", f.notifier.events[0].Type)
}

func TestCreateUnknownServiceIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), owner, request("nope"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, 0, f.bookings.Len())
	assert.Empty(t, f.notifier.events)
}

func TestCreateMissingFieldsIsValidationError(t *testing.T) {
	f := newFixture(t)

	req := request("svc-1")
	req.BookingTime = ""
	_, err := f.svc.Create(context.Background(), owner, req)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateStoreFailureIsDependencyError(t *testing.T) {
	f := newFixture(t)
	f.bookings.FailWith(errors.New("write concern"))

	_, err := f.svc.Create(context.Background(), owner, request("svc-1"))
	assert.True(t, apperr.Is(err, apperr.KindDependency))
}

func TestNotifierFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("redis down")

	_, err := f.svc.Create(context.Background(), owner, request("svc-1"))
	assert.NoError(t, err)
}

func TestServicePriceEditLeavesBookingAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, owner, request("svc-2"))
	require.NoError(t, err)

	cat := catalog.New(f.services, dbtest.NewMemory[models.Category](), nil, zap.NewNop())
	_, err = cat.UpdateService(ctx, "svc-2", map[string]any{"price": 30.0})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.TotalPrice)
}

func TestOwnerCancelsPendingBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, owner, request("svc-1"))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, owner, b.ID, map[string]any{"status": "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, updated.Status)
	assert.NotEmpty(t, updated.UpdatedAt)
	assert.Equal(t, owner.ID, updated.UserID)

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, "updated", f.notifier.events[1].Type)

	_, err = f.svc.Update(ctx, owner, b.ID, map[string]any{"status": "cancelled"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestStrangerCannotUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, owner, request("svc-1"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, stranger, b.ID, map[string]any{"address": "elsewhere"})
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	_, err = f.svc.GetForActor(ctx, stranger, b.ID)
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	got, err := f.svc.GetForActor(ctx, staff, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", got.Address)
}

func TestAdminUpdateRejectsBadTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, owner, request("svc-1"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, staff, b.ID, map[string]any{"total_price": "free"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	updated, err := f.svc.Update(ctx, staff, b.ID, map[string]any{"status": "completed", "total_price": 45.0})
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, updated.Status)
	assert.Equal(t, 45.0, updated.TotalPrice)
}

func TestOwnerNullFieldClearsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, owner, request("svc-1"))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, owner, b.ID, map[string]any{"address": nil})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Address)
	assert.Equal(t, b.BookingDate, updated.BookingDate)
	assert.Equal(t, models.BookingPending, updated.Status)
}

func TestUpdateMissingBookingIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), owner, "missing", map[string]any{"address": "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListForUserNewestFirstAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, owner, request("svc-1"))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, owner, request("svc-2"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, stranger, request("svc-2"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, staff, first.ID, map[string]any{"status": "completed"})
	require.NoError(t, err)

	list, err := f.svc.ListForUser(ctx, owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	st, err := f.svc.Stats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStats{Total: 2, Completed: 1, Pending: 1}, st)
}
