package duffel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skappel/farescout/internal/config"
	"github.com/skappel/farescout/internal/core"
)

// apiVersion is the Duffel-Version header value this client speaks.
const apiVersion = "v2"

// Client defines the two-step search protocol against the vendor: create an
// offer request, then list offers against its id.
//
//go:generate mockgen -destination=../mocks/mock_duffel_client.go -package=mocks . Client
type Client interface {
	CreateOfferRequest(ctx context.Context, params core.SearchParams) (string, error)
	ListOffers(ctx context.Context, offerRequestID, sort string, limit int) ([]core.Offer, error)
}

type httpClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the configured vendor endpoint.
func NewClient(cfg *config.VendorConfig, logger *slog.Logger) Client {
	return &httpClient{
		baseURL: cfg.APIURL,
		token:   cfg.APIToken,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// CreateOfferRequest posts the search to the vendor and returns the offer
// request id. Offers are not inlined in the response; they are fetched with
// ListOffers so the caller controls sort order and count.
func (c *httpClient) CreateOfferRequest(ctx context.Context, params core.SearchParams) (string, error) {
	input := buildOfferRequestInput(params)

	body, err := json.Marshal(requestEnvelope[offerRequestInput]{Data: input})
	if err != nil {
		return "", fmt.Errorf("failed to encode offer request: %w", err)
	}

	var resp responseEnvelope[offerRequest]
	if err := c.do(ctx, http.MethodPost, "/air/offer_requests?return_offers=false", body, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", &APIError{Kind: KindUnavailable, StatusCode: http.StatusOK, Messages: []string{"offer request response is missing an id"}}
	}

	c.logger.Debug("created vendor offer request", "offer_request_id", resp.Data.ID)
	return resp.Data.ID, nil
}

// ListOffers fetches offers for a previously created offer request.
func (c *httpClient) ListOffers(ctx context.Context, offerRequestID, sort string, limit int) ([]core.Offer, error) {
	q := url.Values{}
	q.Set("offer_request_id", offerRequestID)
	q.Set("sort", sort)
	q.Set("limit", strconv.Itoa(limit))

	var resp responseEnvelope[[]offer]
	if err := c.do(ctx, http.MethodGet, "/air/offers?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	offers := make([]core.Offer, 0, len(resp.Data))
	for _, o := range resp.Data {
		offers = append(offers, toCoreOffer(o))
	}
	return offers, nil
}

// do runs one request against the vendor and decodes the response envelope.
// Non-2xx responses become *APIError; transport failures become
// KindUnavailable.
func (c *httpClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build vendor request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Duffel-Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("vendor request failed", "method", method, "path", path, "error", err)
		return &APIError{Kind: KindUnavailable, StatusCode: 0, Messages: []string{err.Error()}}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &APIError{Kind: KindUnavailable, StatusCode: resp.StatusCode, Messages: []string{err.Error()}}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		_ = json.Unmarshal(raw, &env)
		apiErr := newAPIError(resp.StatusCode, env.Errors)
		c.logger.Warn("vendor returned an error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"kind", apiErr.Kind,
		)
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Kind: KindUnavailable, StatusCode: resp.StatusCode, Messages: []string{"malformed vendor response: " + err.Error()}}
	}
	return nil
}

// buildOfferRequestInput translates normalized search parameters into the
// vendor's request shape: one slice per directional leg and one passenger
// entry per traveller.
func buildOfferRequestInput(params core.SearchParams) offerRequestInput {
	slices := []sliceInput{{
		Origin:        params.Origin,
		Destination:   params.Destination,
		DepartureDate: params.DepartureDate,
	}}
	if params.RoundTrip() {
		slices = append(slices, sliceInput{
			Origin:        params.Destination,
			Destination:   params.Origin,
			DepartureDate: params.ReturnDate,
		})
	}

	passengers := make([]passengerInput, 0, params.Passengers.Total())
	for i := 0; i < params.Passengers.Adults; i++ {
		passengers = append(passengers, passengerInput{Type: "adult"})
	}
	// The vendor prices minors by age rather than by type.
	for i := 0; i < params.Passengers.Children; i++ {
		passengers = append(passengers, passengerInput{Age: 8})
	}
	for i := 0; i < params.Passengers.Infants; i++ {
		passengers = append(passengers, passengerInput{Age: 1})
	}

	return offerRequestInput{
		Slices:     slices,
		Passengers: passengers,
		CabinClass: string(params.CabinClass),
	}
}

// toCoreOffer flattens the vendor's nested offer document into the
// application's offer shape.
func toCoreOffer(o offer) core.Offer {
	out := core.Offer{
		ID:            o.ID,
		TotalAmount:   o.TotalAmount,
		TotalCurrency: o.TotalCurrency,
		OwnerName:     o.Owner.Name,
		OwnerCode:     o.Owner.IATACode,
		ExpiresAt:     o.ExpiresAt,
	}
	for _, s := range o.Slices {
		slice := core.OfferSlice{
			Origin:      s.Origin.IATACode,
			Destination: s.Destination.IATACode,
			Duration:    s.Duration,
		}
		for _, seg := range s.Segments {
			segment := core.Segment{
				Origin:       seg.Origin.IATACode,
				Destination:  seg.Destination.IATACode,
				DepartingAt:  seg.DepartingAt,
				ArrivingAt:   seg.ArrivingAt,
				CarrierName:  seg.MarketingCarrier.Name,
				CarrierCode:  seg.MarketingCarrier.IATACode,
				FlightNumber: seg.MarketingCarrierFlightNumber,
				Duration:     seg.Duration,
			}
			if seg.Aircraft != nil {
				segment.Aircraft = seg.Aircraft.Name
			}
			if seg.OperatingCarrier != nil && seg.OperatingCarrier.Name != seg.MarketingCarrier.Name {
				segment.OperatedBy = seg.OperatingCarrier.Name
			}
			if len(seg.Passengers) > 0 {
				segment.CabinClass = seg.Passengers[0].CabinClass
				for _, b := range seg.Passengers[0].Baggages {
					if b.Type == "checked" {
						segment.BaggageChecked += b.Quantity
					}
				}
			}
			slice.Segments = append(slice.Segments, segment)
		}
		out.Slices = append(out.Slices, slice)
	}
	return out
}
