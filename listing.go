package harvester

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jamesprial/go-reddit-harvester/internal"
	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// FetchListing retrieves one page of posts from req.Community.
//
// The request is validated before anything is sent: the listing must be known
// and a top listing needs a time range. The time range is transmitted as "t"
// for top listings only; for every other listing it is ignored. Limit is passed
// through as-is, zero meaning DefaultLimit.
//
// Exactly one GET is issued, to r/{community}/{listing}.
func (c *Client) FetchListing(ctx context.Context, req types.ListingRequest) (posts []*types.PostRecord, err error) {
	const op = "fetch listing"

	if err := c.ready(op); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateListingRequest(&req); err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}

	ctx, finish := c.startSpan(ctx, op)
	defer func() { finish(err) }()

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	kind := strings.ToLower(string(req.Kind))
	params := listingParams(req)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("reddit.community", req.Community),
		attribute.String("reddit.listing", kind),
		attribute.String("reddit.limit", params.Get("limit")),
	)

	body, err := c.gateway.Get(ctx, internal.ListingPath(req.Community, kind), params)
	if err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}

	posts, err = c.parser.ParsePosts(body)
	if err != nil {
		return nil, &ClientError{Op: op, Err: &pkgerrs.ParseError{Operation: op, Err: err}}
	}

	c.logger.Debug("fetched listing", "community", req.Community, "listing", kind, "posts", len(posts))
	return posts, nil
}

// listingParams builds the query for a validated request.
func listingParams(req types.ListingRequest) url.Values {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if types.ListingKind(strings.ToLower(string(req.Kind))) == types.ListingTop {
		params.Set("t", strings.ToLower(string(req.TimeRange)))
	}
	return params
}
