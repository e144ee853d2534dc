package model

import (
	"time"
)

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// DateLayout is the wire format for check-in/check-out dates.
const DateLayout = "2006-01-02"

type Booking struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	AccommodationIDs []string  `json:"accommodation_ids" bson:"accommodation_ids" validate:"required,min=1,dive,required"`
	GuestName        string    `json:"guest_name" bson:"guest_name" validate:"required,min=2,max=100"`
	GuestEmail       string    `json:"guest_email" bson:"guest_email" validate:"required,email"`
	GuestPhone       string    `json:"guest_phone" bson:"guest_phone" validate:"required,min=6,max=20"`
	Address          string    `json:"address" bson:"address" validate:"required,max=200"`
	City             string    `json:"city" bson:"city" validate:"required,max=100"`
	PostalCode       string    `json:"postal_code" bson:"postal_code" validate:"required,max=20"`
	Country          string    `json:"country" bson:"country" validate:"required,max=100"`
	CheckIn          time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut         time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`
	Guests           int       `json:"guests,omitempty" bson:"guests,omitempty" validate:"omitempty,min=1,max=50"`
	Adults           int       `json:"adults,omitempty" bson:"adults,omitempty" validate:"omitempty,min=0,max=50"`
	Children         int       `json:"children,omitempty" bson:"children,omitempty" validate:"omitempty,min=0,max=50"`
	TotalPrice       float64   `json:"total_price" bson:"total_price" validate:"gte=0"`
	PaymentMethod    string    `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	Status           string    `json:"status" bson:"status" validate:"required,oneof=confirmed cancelled"`
	UserID           string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// BookingRequest is the caller-facing reservation payload. Dates arrive as
// calendar strings and accommodation_id may be a single ID or a list; the
// service normalizes both before validation.
type BookingRequest struct {
	GuestName        string   `json:"guest_name"`
	GuestEmail       string   `json:"guest_email"`
	GuestPhone       string   `json:"guest_phone"`
	Address          string   `json:"address"`
	City             string   `json:"city"`
	PostalCode       string   `json:"postal_code"`
	Country          string   `json:"country"`
	AccommodationID  string   `json:"accommodation_id,omitempty"`
	AccommodationIDs []string `json:"accommodation_ids,omitempty"`
	CheckIn          string   `json:"check_in"`
	CheckOut         string   `json:"check_out"`
	TotalPrice       float64  `json:"total_price"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	Guests           int      `json:"guests,omitempty"`
	Adults           int      `json:"adults,omitempty"`
	Children         int      `json:"children,omitempty"`
	AllowExtraBeds   bool     `json:"allow_extra_beds,omitempty"`
	ExtraBedsQty     int      `json:"extra_beds_qty,omitempty"`
	UserID           string   `json:"-"`
}

type BookingUpdate struct {
	GuestName        string   `json:"guest_name,omitempty" validate:"omitempty,min=2,max=100"`
	GuestEmail       string   `json:"guest_email,omitempty" validate:"omitempty,email"`
	GuestPhone       string   `json:"guest_phone,omitempty" validate:"omitempty,min=6,max=20"`
	Address          string   `json:"address,omitempty" validate:"omitempty,max=200"`
	City             string   `json:"city,omitempty" validate:"omitempty,max=100"`
	PostalCode       string   `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country          string   `json:"country,omitempty" validate:"omitempty,max=100"`
	AccommodationIDs []string `json:"accommodation_ids,omitempty" validate:"omitempty,min=1,dive,required"`
	CheckIn          string   `json:"check_in,omitempty"`
	CheckOut         string   `json:"check_out,omitempty"`
	TotalPrice       *float64 `json:"total_price,omitempty" validate:"omitempty,gte=0"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	Guests           *int     `json:"guests,omitempty" validate:"omitempty,min=1,max=50"`
	Adults           *int     `json:"adults,omitempty" validate:"omitempty,min=0,max=50"`
	Children         *int     `json:"children,omitempty" validate:"omitempty,min=0,max=50"`
	Status           string   `json:"status,omitempty" validate:"omitempty,oneof=confirmed cancelled"`
}
