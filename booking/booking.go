// Package booking implements the booking lifecycle: creating bookings from a
// service snapshot and deciding which changes an actor may make.
package booking

import (
	"time"

	"bookit/apperr"
	"bookit/models"
	"bookit/utils"
)

var (
	// fields the owner of a booking may change
	ownerFields = []string{"booking_date", "booking_time", "address"}
	adminFields = []string{"status", "booking_date", "booking_time", "address", "total_price"}
)

// ApplyUpdate decides which of the requested fields actor may change on b.
//
// The owner (when not an admin) may move the date, time and address and may
// cancel while the booking is pending or confirmed. A cancel request on any
// other status is dropped, not rejected. Admins may change status, schedule,
// address and price with no transition guard. Anyone else is refused.
func ApplyUpdate(b models.Booking, actor models.Subject, requested map[string]any, isAdmin bool) (map[string]any, error) {
	if actor.ID != "" && actor.ID == b.UserID && !isAdmin {
		update := utils.PickFields(requested, ownerFields...)
		if st, _ := requested["status"].(string); st == string(models.BookingCancelled) && b.Status.Open() {
			update["status"] = string(models.BookingCancelled)
		}
		if len(update) == 0 {
			return nil, apperr.Validation("No updatable fields provided")
		}
		return update, nil
	}

	if isAdmin {
		// TODO: confirm with product whether admins may reopen cancelled or
		// completed bookings; today any status is accepted.
		update := utils.PickFields(requested, adminFields...)
		if len(update) == 0 {
			return nil, apperr.Validation("No updatable fields provided")
		}
		return update, nil
	}

	return nil, apperr.Permission("Forbidden")
}

// ValidateRequest checks the fields required to create a booking.
func ValidateRequest(req models.BookingRequest) error {
	if req.ServiceID == "" || req.BookingDate == "" || req.BookingTime == "" || req.Address == "" {
		return apperr.Validation("service_id, booking_date, booking_time, address required")
	}
	return nil
}

// NewBooking builds a pending booking for userID. Price and title are
// copied from svc so later edits to the service do not change it.
func NewBooking(id, userID string, req models.BookingRequest, svc models.Service, now time.Time) models.Booking {
	return models.Booking{
		ID:           id,
		UserID:       userID,
		ServiceID:    req.ServiceID,
		BookingDate:  req.BookingDate,
		BookingTime:  req.BookingTime,
		Address:      req.Address,
		TotalPrice:   svc.Price,
		Status:       models.BookingPending,
		ServiceTitle: svc.Title,
		CreatedAt:    utils.NowUTC(now),
	}
}

// checkTypes rejects values the booking document cannot hold. A null
// schedule or address field clears it to the empty string.
func checkTypes(update map[string]any) error {
	for k, v := range update {
		switch k {
		case "total_price":
			switch v.(type) {
			case float64, float32, int, int64:
			default:
				return apperr.Validation("'total_price' must be a number")
			}
		case "booking_date", "booking_time", "address":
			if v == nil {
				update[k] = ""
				continue
			}
			if _, ok := v.(string); !ok {
				return apperr.Validation("'" + k + "' must be a string")
			}
		default:
			if _, ok := v.(string); !ok {
				return apperr.Validation("'" + k + "' must be a string")
			}
		}
	}
	return nil
}
