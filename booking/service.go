package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"bookit/apperr"
	"bookit/db"
	"bookit/models"
	"bookit/utils"

	"go.uber.org/zap"
)

const statsLimit = 1000

// Notifier is told about every created or changed booking.
type Notifier interface {
	Emit(ctx context.Context, ev models.BookingEvent) error
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, s models.Subject) bool
}

type Service struct {
	bookings db.Store[models.Booking]
	services db.Store[models.Service]
	admins   AdminChecker
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewService(
	bookings db.Store[models.Booking],
	services db.Store[models.Service],
	admins AdminChecker,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		bookings: bookings,
		services: services,
		admins:   admins,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    utils.GetUUID,
	}
}

// Create books the referenced service for s. The service read and the
// booking write are independent operations.
func (svc *Service) Create(ctx context.Context, s models.Subject, req models.BookingRequest) (*models.Booking, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	service, err := svc.services.Get(ctx, req.ServiceID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Service not found")
	}
	if err != nil {
		return nil, apperr.Dependency("Failed to load service", err)
	}

	b := NewBooking(svc.newID(), s.ID, req, *service, svc.now())
	created, err := svc.bookings.Create(ctx, b)
	if err != nil {
		return nil, apperr.Dependency("Failed to create booking", err)
	}

	svc.logger.Info("booking created",
		zap.String("booking_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.String("service_id", created.ServiceID))
	svc.emit(ctx, "created", *created)
	return created, nil
}

// Update applies the changes actor may make to booking id.
func (svc *Service) Update(ctx context.Context, actor models.Subject, id string, requested map[string]any) (*models.Booking, error) {
	b, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	isAdmin := svc.admins.IsAdmin(ctx, actor)
	update, err := ApplyUpdate(*b, actor, requested, isAdmin)
	if err != nil {
		return nil, err
	}
	if err := checkTypes(update); err != nil {
		return nil, err
	}

	update["updated_at"] = utils.NowUTC(svc.now())
	updated, err := svc.bookings.Update(ctx, id, update)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, apperr.Dependency("Failed to update booking", err)
	}

	svc.logger.Info("booking updated",
		zap.String("booking_id", id),
		zap.String("actor", actor.ID),
		zap.Bool("admin", isAdmin),
		zap.String("status", string(updated.Status)))
	svc.emit(ctx, "updated", *updated)
	return updated, nil
}

func (svc *Service) Get(ctx context.Context, id string) (*models.Booking, error) {
	b, err := svc.bookings.Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, apperr.Dependency("Failed to load booking", err)
	}
	return b, nil
}

// GetForActor returns booking id when actor owns it or is an admin.
func (svc *Service) GetForActor(ctx context.Context, actor models.Subject, id string) (*models.Booking, error) {
	b, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != actor.ID && !svc.admins.IsAdmin(ctx, actor) {
		return nil, apperr.Permission("Forbidden")
	}
	return b, nil
}

// ListForUser returns the bookings of userID, newest first.
func (svc *Service) ListForUser(ctx context.Context, userID string, limit int64) ([]models.Booking, error) {
	out, err := svc.bookings.ListByField(ctx, "user_id", userID, limit)
	if err != nil {
		return nil, apperr.Dependency("Failed to load bookings", err)
	}
	newestFirst(out)
	return out, nil
}

// ListAll returns every booking, newest first.
func (svc *Service) ListAll(ctx context.Context) ([]models.Booking, error) {
	out, err := svc.bookings.List(ctx)
	if err != nil {
		return nil, apperr.Dependency("Failed to load bookings", err)
	}
	newestFirst(out)
	return out, nil
}

// Stats counts the bookings of userID by status.
func (svc *Service) Stats(ctx context.Context, userID string) (models.BookingStats, error) {
	list, err := svc.ListForUser(ctx, userID, statsLimit)
	if err != nil {
		return models.BookingStats{}, err
	}
	st := models.BookingStats{Total: len(list)}
	for _, b := range list {
		switch b.Status {
		case models.BookingCompleted:
			st.Completed++
		case models.BookingPending:
			st.Pending++
		}
	}
	return st, nil
}

func (svc *Service) emit(ctx context.Context, typ string, b models.Booking) {
	if svc.notifier == nil {
		return
	}
	if err := svc.notifier.Emit(ctx, models.BookingEvent{Type: typ, Booking: b}); err != nil {
		svc.logger.Warn("booking event not published", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func newestFirst(list []models.Booking) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt > list[j].CreatedAt
	})
}
