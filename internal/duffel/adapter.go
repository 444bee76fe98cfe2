package duffel

import (
	"context"

	"github.com/skappel/farescout/internal/core"
)

// Search runs the vendor's two-step protocol end to end and normalizes the
// result payload. Errors from either step are returned as-is so callers can
// inspect the *APIError kind.
func Search(ctx context.Context, c Client, params core.SearchParams, sort string, limit int) (*core.SearchResults, error) {
	requestID, err := c.CreateOfferRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	offers, err := c.ListOffers(ctx, requestID, sort, limit)
	if err != nil {
		return nil, err
	}

	return &core.SearchResults{
		Offers: offers,
		Meta: core.ResultsMeta{
			RequestID: requestID,
			Sort:      sort,
			Limit:     limit,
		},
	}, nil
}
