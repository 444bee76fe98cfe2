// Package duffel provides a focused client for the Duffel flight-offers API
// and the translation between search parameters and the vendor's wire shape.
package duffel

// The vendor wraps every request and response body in a {"data": ...}
// envelope.

type requestEnvelope[T any] struct {
	Data T `json:"data"`
}

type responseEnvelope[T any] struct {
	Data T `json:"data"`
}

// sliceInput is one directional leg of an offer request.
type sliceInput struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
}

// passengerInput is one traveller entry. Adults carry a type; children and
// infants carry an age so the vendor can price them.
type passengerInput struct {
	Type string `json:"type,omitempty"`
	Age  int    `json:"age,omitempty"`
}

// offerRequestInput is the body of POST /air/offer_requests.
type offerRequestInput struct {
	Slices     []sliceInput     `json:"slices"`
	Passengers []passengerInput `json:"passengers"`
	CabinClass string           `json:"cabin_class"`
}

// offerRequest is the created search request; only its id is needed for the
// follow-up offers listing.
type offerRequest struct {
	ID       string `json:"id"`
	LiveMode bool   `json:"live_mode"`
}

type place struct {
	IATACode string `json:"iata_code"`
	Name     string `json:"name,omitempty"`
}

type carrier struct {
	Name     string `json:"name"`
	IATACode string `json:"iata_code"`
}

type aircraft struct {
	Name string `json:"name"`
}

type segmentPassenger struct {
	CabinClass string    `json:"cabin_class"`
	Baggages   []baggage `json:"baggages"`
}

type baggage struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

// offerSegment is one flight within an offer slice.
type offerSegment struct {
	Origin                       place              `json:"origin"`
	Destination                  place              `json:"destination"`
	DepartingAt                  string             `json:"departing_at"`
	ArrivingAt                   string             `json:"arriving_at"`
	Duration                     string             `json:"duration"`
	Aircraft                     *aircraft          `json:"aircraft"`
	MarketingCarrier             carrier            `json:"marketing_carrier"`
	MarketingCarrierFlightNumber string             `json:"marketing_carrier_flight_number"`
	OperatingCarrier             *carrier           `json:"operating_carrier"`
	Passengers                   []segmentPassenger `json:"passengers"`
}

// offerSlice is one directional leg of a returned offer.
type offerSlice struct {
	Origin      place          `json:"origin"`
	Destination place          `json:"destination"`
	Duration    string         `json:"duration"`
	Segments    []offerSegment `json:"segments"`
}

// offer is a priced itinerary as returned by GET /air/offers.
type offer struct {
	ID            string       `json:"id"`
	TotalAmount   string       `json:"total_amount"`
	TotalCurrency string       `json:"total_currency"`
	Owner         carrier      `json:"owner"`
	ExpiresAt     string       `json:"expires_at"`
	Slices        []offerSlice `json:"slices"`
}

// apiErrorDoc is one entry of the vendor's error envelope.
type apiErrorDoc struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Errors []apiErrorDoc `json:"errors"`
}
