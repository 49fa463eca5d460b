package harvester

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jamesprial/go-reddit-harvester/internal"
	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
)

// ExtractComments fetches the comment tree of one post and flattens it into
// comment bodies.
//
// Only top-level comments start a traversal; "more" placeholders and other
// top-level kinds are skipped along with everything beneath them. Below the top
// level every node is visited. Bodies come out in depth-first pre-order, so a
// comment always precedes its replies, and empty bodies are left out.
//
// Exactly one GET is issued, to r/{community}/comments/{postID}.
func (c *Client) ExtractComments(ctx context.Context, community, postID string) (bodies []string, err error) {
	const op = "extract comments"

	if err := c.ready(op); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateCommunity(community); err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}
	if err := c.validator.ValidatePostID(postID); err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}

	ctx, finish := c.startSpan(ctx, op)
	defer func() { finish(err) }()
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("reddit.community", community),
		attribute.String("reddit.post_id", postID),
	)

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	body, err := c.gateway.Get(ctx, internal.CommentsPath(community, postID), nil)
	if err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}

	nodes, err := c.parser.ParseCommentTree(body)
	if err != nil {
		return nil, &ClientError{Op: op, Err: &pkgerrs.ParseError{Operation: op, Err: err}}
	}

	tree := internal.NewCommentTree(nodes)
	bodies = tree.Bodies()

	roots, count, depth := len(tree.Roots()), tree.Count(), tree.Depth()
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("harvester.comment_roots", roots),
		attribute.Int("harvester.comment_nodes", count),
		attribute.Int("harvester.comment_depth", depth),
	)
	c.logger.Debug("extracted comments", "community", community, "post_id", postID,
		"comments", len(bodies), "roots", roots, "nodes", count, "depth", depth)
	return bodies, nil
}
