package internal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// Parser turns raw API payloads into typed values. It is the only place that
// looks at untyped JSON; everything downstream works on pkg/types.
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseListing extracts a ListingData from a Thing of kind "Listing".
func (p *Parser) ParseListing(thing *types.Thing) (*types.ListingData, error) {
	if thing == nil {
		return nil, fmt.Errorf("thing is nil")
	}
	if thing.Kind != types.KindListing {
		return nil, fmt.Errorf("expected Listing, got %q", thing.Kind)
	}

	var listing types.ListingData
	if err := json.Unmarshal(thing.Data, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse Listing data: %w", err)
	}
	return &listing, nil
}

// ParsePosts decodes a listing response into post records. Children that are not
// links, or whose data cannot be decoded, are skipped.
//
// Most listings answer with a single Listing object. The random listing answers
// with a [post, comments] pair instead; the first element is used.
func (p *Parser) ParsePosts(body []byte) ([]*types.PostRecord, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) > 0 && raw[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("failed to parse listing array: %w", err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("empty listing array")
		}
		raw = parts[0]
	}

	var thing types.Thing
	if err := json.Unmarshal(raw, &thing); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}
	listing, err := p.ParseListing(&thing)
	if err != nil {
		return nil, err
	}

	posts := make([]*types.PostRecord, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child == nil || child.Kind != types.KindLink {
			continue
		}
		var post types.PostRecord
		if err := json.Unmarshal(child.Data, &post); err != nil {
			continue
		}
		posts = append(posts, &post)
	}
	return posts, nil
}

// ParseCommentTree decodes a comments response and returns the typed top-level
// nodes of the comment listing, of every kind, in API order.
//
// The response is a JSON array whose element 1 is the comment listing. Anything
// else is an error. Inside the tree, a missing or malformed body or replies field
// is read as absent.
func (p *Parser) ParseCommentTree(body []byte) ([]*types.CommentNode, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, fmt.Errorf("failed to parse comments response: %w", err)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("expected [post, comments] response, got %d element(s)", len(parts))
	}

	var thing types.Thing
	if err := json.Unmarshal(parts[1], &thing); err != nil {
		return nil, fmt.Errorf("failed to parse comment listing: %w", err)
	}
	listing, err := p.ParseListing(&thing)
	if err != nil {
		return nil, err
	}

	return p.buildTree(listing.Children), nil
}

// frame is a run of sibling Things waiting to be attached to parent.
type frame struct {
	children []*types.Thing
	parent   *types.CommentNode
}

// buildTree converts raw Things into CommentNodes with an explicit stack, so the
// depth of the API's tree never grows the goroutine stack. Siblings are attached
// in array order when their frame is processed.
func (p *Parser) buildTree(top []*types.Thing) []*types.CommentNode {
	root := &types.CommentNode{}
	stack := []frame{{children: top, parent: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range f.children {
			if child == nil {
				continue
			}
			node, replies := decodeNode(child)
			f.parent.Replies = append(f.parent.Replies, node)
			if len(replies) > 0 {
				stack = append(stack, frame{children: replies, parent: node})
			}
		}
	}

	return root.Replies
}

// nodeData holds the two fields the harvester reads from a comment's data. Both
// stay raw so a value of the wrong type degrades to "absent" instead of failing
// the whole decode.
type nodeData struct {
	Body    json.RawMessage `json:"body"`
	Replies json.RawMessage `json:"replies"`
}

func decodeNode(thing *types.Thing) (*types.CommentNode, []*types.Thing) {
	node := &types.CommentNode{Kind: types.NodeKindOf(thing.Kind)}

	var data nodeData
	if err := json.Unmarshal(thing.Data, &data); err != nil {
		return node, nil
	}

	if len(data.Body) > 0 {
		var body string
		if err := json.Unmarshal(data.Body, &body); err == nil {
			node.Body = body
		}
	}

	return node, decodeReplies(data.Replies)
}

// decodeReplies returns the children of a replies Listing. Reddit sends "" when a
// comment has no replies; that, null, and any other non-listing value yield nil.
func decodeReplies(raw json.RawMessage) []*types.Thing {
	if len(raw) == 0 {
		return nil
	}

	var thing types.Thing
	if err := json.Unmarshal(raw, &thing); err != nil || len(thing.Data) == 0 {
		return nil
	}

	var listing types.ListingData
	if err := json.Unmarshal(thing.Data, &listing); err != nil {
		return nil
	}
	return listing.Children
}
