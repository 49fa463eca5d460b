package harvester

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// FetchAndMerge fetches one listing page, extracts the comments of every post on
// it and merges one row per post into the client's Table.
//
// Each row is merged as soon as it is built. If a request fails the call stops
// and returns the error; rows merged earlier in the same call stay in the table.
func (c *Client) FetchAndMerge(ctx context.Context, req types.ListingRequest) (err error) {
	const op = "fetch and merge"

	if err := c.ready(op); err != nil {
		return err
	}

	ctx, finish := c.startSpan(ctx, op)
	defer func() { finish(err) }()
	span := trace.SpanFromContext(ctx)

	posts, err := c.FetchListing(ctx, req)
	if err != nil {
		return err
	}

	logger := c.logger.With("community", req.Community, "listing", strings.ToLower(string(req.Kind)))
	logger.Info("harvesting listing", "posts", len(posts))

	progress := rate.Sometimes{First: 1, Every: 10, Interval: 5 * time.Second}
	merged := 0
	for i, post := range posts {
		row := types.Post{
			ID:          post.ID,
			Title:       post.Title,
			SelfText:    post.SelfText,
			NumComments: post.NumComments,
		}

		// A post without an id has no comment page to ask for; its row is kept
		// comment-less and left to the table's completeness rule.
		if post.ID != "" {
			row.URL = postURL(req.Community, post.ID)
			row.Comments, err = c.ExtractComments(ctx, req.Community, post.ID)
			if err != nil {
				logger.Error("comment extraction failed", "post_id", post.ID, "merged", merged, "error", err)
				span.SetAttributes(attribute.Int("harvester.rows_merged", merged))
				return err
			}
		}

		merged += c.table.Merge(row)
		progress.Do(func() {
			logger.Info("harvest progress", "post", i+1, "of", len(posts), "rows", c.table.Len())
		})
	}

	span.SetAttributes(attribute.Int("harvester.rows_merged", merged))
	logger.Info("listing harvested", "merged", merged, "rows", c.table.Len())
	return nil
}
