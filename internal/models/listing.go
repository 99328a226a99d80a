package models

import (
	"fmt"
	"strconv"
)

// Status is the rental state of a listing.
type Status string

const (
	StatusAvailable Status = "available"
	StatusRented    Status = "rented"
)

// ParseStatus validates a raw status value against the enum.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusAvailable, StatusRented:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("invalid status %q: must be one of %q, %q", raw, StatusAvailable, StatusRented)
	}
}

// Listing represents one rental property.
// Text is derived: it must always equal Describe applied to the other fields
// as of the last mutation. It is never edited independently.
type Listing struct {
	City        string  `json:"city"`
	Area        string  `json:"area"`
	Electricity string  `json:"electricity"`
	Gas         string  `json:"gas"`
	Location    string  `json:"location"`
	Status      Status  `json:"status"`
	Text        string  `json:"text"`
	SizeMarla   float64 `json:"size_marla"`
	Stories     int     `json:"stories"`
	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   int     `json:"bathrooms"`
	Price       int     `json:"price"`
	ID          int     `json:"id"`
}

// Describe produces the canonical natural-language description of a listing.
// It is deterministic: identical field values always yield an identical string.
// The same template is used at insert time and at status-update time, and the
// output doubles as the embedding input for the search index.
func Describe(l Listing) string {
	return fmt.Sprintf(
		"A %s marla %d-story house in %s, %s with %d bedrooms, %d bathrooms, electricity: %s, gas: %s. Located near %s. Rent: %d PKR. Status: %s.",
		formatMarla(l.SizeMarla),
		l.Stories,
		l.Area,
		l.City,
		l.Bedrooms,
		l.Bathrooms,
		l.Electricity,
		l.Gas,
		l.Location,
		l.Price,
		l.Status,
	)
}

// formatMarla renders the size without a trailing .0 for whole values
// (5 marla, not 5.0 marla) while keeping fractional sizes exact.
func formatMarla(size float64) string {
	return strconv.FormatFloat(size, 'f', -1, 64)
}
