package model

import "time"

// Occupancy asserts that one accommodation is committed for one calendar
// night, owned by exactly one booking. A unique index on
// (accommodation_id, date) makes concurrent double-booking a duplicate-key
// error at the store.
type Occupancy struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty"`
	AccommodationID string    `json:"accommodation_id" bson:"accommodation_id"`
	Date            time.Time `json:"date" bson:"date"`
	BookingID       string    `json:"booking_id" bson:"booking_id"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}
