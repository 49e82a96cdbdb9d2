package models

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Open reports whether an owner may still cancel a booking in this status.
func (s BookingStatus) Open() bool {
	return s == BookingPending || s == BookingConfirmed
}

type Booking struct {
	ID           string        `json:"id" bson:"id"`
	UserID       string        `json:"user_id" bson:"user_id"`
	ServiceID    string        `json:"service_id" bson:"service_id"`
	BookingDate  string        `json:"booking_date" bson:"booking_date"`
	BookingTime  string        `json:"booking_time" bson:"booking_time"`
	Address      string        `json:"address" bson:"address"`
	TotalPrice   float64       `json:"total_price" bson:"total_price"`
	Status       BookingStatus `json:"status" bson:"status"`
	ServiceTitle string        `json:"service_title" bson:"service_title"`
	CreatedAt    string        `json:"created_at" bson:"created_at"`
	UpdatedAt    string        `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// BookingRequest is the payload accepted when creating a booking.
type BookingRequest struct {
	ServiceID   string `json:"service_id"`
	BookingDate string `json:"booking_date"`
	BookingTime string `json:"booking_time"`
	Address     string `json:"address"`
}

type BookingStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// BookingEvent is published whenever a booking is created or changed.
type BookingEvent struct {
	Type    string  `json:"type"`
	Booking Booking `json:"booking"`
}
