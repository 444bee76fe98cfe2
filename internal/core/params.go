package core

import (
	"fmt"
	"time"
)

// CabinClass enumerates the cabin classes understood by the vendor API.
type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

// DateLayout is the wire format for departure and return dates.
const DateLayout = "2006-01-02"

// PassengerCounts holds how many passengers of each type travel.
type PassengerCounts struct {
	Adults   int `json:"adults"`
	Children int `json:"children,omitempty"`
	Infants  int `json:"infants,omitempty"`
}

// Total returns the number of passengers across all types.
func (p PassengerCounts) Total() int {
	return p.Adults + p.Children + p.Infants
}

// SearchParams is the normalized input of a single search job: exactly one
// origin/destination pair. City codes are expanded into airport pairs before
// jobs are created, so Origin and Destination here are always airports.
type SearchParams struct {
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	DepartureDate string          `json:"departureDate"`
	ReturnDate    string          `json:"returnDate,omitempty"`
	Passengers    PassengerCounts `json:"passengers"`
	CabinClass    CabinClass      `json:"cabinClass"`
}

// RoundTrip reports whether the itinerary has a return leg.
func (p SearchParams) RoundTrip() bool {
	return p.ReturnDate != ""
}

// Validate checks the parameters before a job is created. Invalid parameters
// are rejected synchronously at the dispatch entry point and never reach the
// job store.
func (p SearchParams) Validate() error {
	if err := validateLocationCode(p.Origin); err != nil {
		return fmt.Errorf("invalid origin: %w", err)
	}
	if err := validateLocationCode(p.Destination); err != nil {
		return fmt.Errorf("invalid destination: %w", err)
	}
	if p.Origin == p.Destination {
		return fmt.Errorf("origin and destination must differ, got %q for both", p.Origin)
	}

	depart, err := time.Parse(DateLayout, p.DepartureDate)
	if err != nil {
		return fmt.Errorf("invalid departure date %q: expected YYYY-MM-DD", p.DepartureDate)
	}
	if p.ReturnDate != "" {
		ret, err := time.Parse(DateLayout, p.ReturnDate)
		if err != nil {
			return fmt.Errorf("invalid return date %q: expected YYYY-MM-DD", p.ReturnDate)
		}
		if ret.Before(depart) {
			return fmt.Errorf("return date %s is before departure date %s", p.ReturnDate, p.DepartureDate)
		}
	}

	if p.Passengers.Adults < 1 {
		return fmt.Errorf("at least one adult passenger is required, got %d", p.Passengers.Adults)
	}
	if p.Passengers.Children < 0 || p.Passengers.Infants < 0 {
		return fmt.Errorf("passenger counts cannot be negative")
	}
	if p.Passengers.Infants > p.Passengers.Adults {
		return fmt.Errorf("each infant must be accompanied by an adult: %d infants, %d adults",
			p.Passengers.Infants, p.Passengers.Adults)
	}

	switch p.CabinClass {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
	case "":
		return fmt.Errorf("cabin class is required")
	default:
		return fmt.Errorf("unknown cabin class %q", p.CabinClass)
	}
	return nil
}

// validateLocationCode accepts a three-letter uppercase IATA airport or
// metro code.
func validateLocationCode(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("code %q must be exactly 3 letters", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("code %q must be uppercase letters", code)
		}
	}
	return nil
}
