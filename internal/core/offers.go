package core

// Segment is one flight within a slice: a single take-off and landing.
type Segment struct {
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartingAt    string `json:"departing_at"`
	ArrivingAt     string `json:"arriving_at"`
	CarrierName    string `json:"carrier_name"`
	CarrierCode    string `json:"carrier_code"`
	FlightNumber   string `json:"flight_number"`
	Duration       string `json:"duration,omitempty"`
	Aircraft       string `json:"aircraft,omitempty"`
	OperatedBy     string `json:"operated_by,omitempty"`
	CabinClass     string `json:"cabin_class,omitempty"`
	BaggageChecked int    `json:"baggage_checked,omitempty"`
}

// OfferSlice is one directional leg of an itinerary (outbound or return) as
// understood by the vendor API.
type OfferSlice struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Duration    string    `json:"duration,omitempty"`
	Segments    []Segment `json:"segments"`
}

// Offer is a priced, bookable itinerary returned by the vendor for a given
// search request. ID is the vendor's offer identifier and is the dedupe key
// when results from overlapping jobs are merged.
type Offer struct {
	ID            string       `json:"id"`
	TotalAmount   string       `json:"total_amount"`
	TotalCurrency string       `json:"total_currency"`
	OwnerName     string       `json:"owner_name"`
	OwnerCode     string       `json:"owner_code"`
	ExpiresAt     string       `json:"expires_at,omitempty"`
	Slices        []OfferSlice `json:"slices"`
}

// ResultsMeta records how the offer list was produced.
type ResultsMeta struct {
	RequestID string `json:"request_id"`
	Sort      string `json:"sort"`
	Limit     int    `json:"limit"`
}

// SearchResults is the payload written to a job row when it completes.
type SearchResults struct {
	Offers []Offer     `json:"offers"`
	Meta   ResultsMeta `json:"meta"`
}
