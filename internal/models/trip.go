package models

import (
	"time"
)

const (
	TripStatusWishlist  = "wishlist"
	TripStatusUpcoming  = "upcoming"
	TripStatusCompleted = "completed"
)

// PackingItem is a single checklist entry on a trip's packing list.
type PackingItem struct {
	Item   string `json:"item"`
	Packed bool   `json:"packed"`
}

// Budget tracks planned vs spent money for a trip.
type Budget struct {
	Total float64 `json:"total"`
	Spent float64 `json:"spent"`
}

// Trip is a user-owned journey with dates, status, budget and packing list.
type Trip struct {
	ID          int           `json:"id" db:"id"`
	UserID      int           `json:"userId" db:"user_id"`
	Title       string        `json:"title" db:"title"`
	Destination string        `json:"destination" db:"destination"`
	StartDate   time.Time     `json:"startDate" db:"start_date"`
	EndDate     time.Time     `json:"endDate" db:"end_date"`
	Status      string        `json:"status" db:"status"`
	PackingList []PackingItem `json:"packingList" db:"packing_list"`
	Budget      Budget        `json:"budget"`
	Notes       string        `json:"notes" db:"notes"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
}

// IsValidTripStatus reports whether status is one of the allowed trip states.
func IsValidTripStatus(status string) bool {
	switch status {
	case TripStatusWishlist, TripStatusUpcoming, TripStatusCompleted:
		return true
	}
	return false
}
