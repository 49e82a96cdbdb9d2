package models

// Service is a bookable offering. Price and title are copied onto bookings
// at creation time.
type Service struct {
	ID          string  `json:"id" bson:"id"`
	Title       string  `json:"title" bson:"title"`
	Price       float64 `json:"price" bson:"price"`
	Category    string  `json:"category,omitempty" bson:"category,omitempty"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	Duration    string  `json:"duration,omitempty" bson:"duration,omitempty"`
	ImageURL    string  `json:"image_url,omitempty" bson:"image_url,omitempty"`
	IsActive    bool    `json:"is_active" bson:"is_active"`
	CreatedBy   string  `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

type Category struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name" bson:"name"`
	CreatedAt string `json:"created_at,omitempty" bson:"created_at,omitempty"`
}
