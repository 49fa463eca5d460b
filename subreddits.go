package harvester

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/jamesprial/go-reddit-harvester/internal"
	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
)

// SearchSubredditNames lists community names matching query. With exact set only
// a community named exactly query is returned.
func (c *Client) SearchSubredditNames(ctx context.Context, query string, exact, includeOver18 bool) ([]string, error) {
	const op = "search subreddit names"

	if err := c.ready(op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, &ClientError{Op: op, Err: &pkgerrs.InvalidParameterError{Field: "query", Message: "query cannot be empty"}}
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("exact", strconv.FormatBool(exact))
	params.Set("include_over_18", strconv.FormatBool(includeOver18))

	body, err := c.gateway.Get(ctx, internal.SearchNamesPath, params)
	if err != nil {
		return nil, &ClientError{Op: op, Err: err}
	}

	var result struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ClientError{Op: op, Err: &pkgerrs.ParseError{Operation: op, Err: err}}
	}
	return result.Names, nil
}

// Subscribe subscribes the authenticated user to names, or unsubscribes when
// subscribe is false.
func (c *Client) Subscribe(ctx context.Context, subscribe bool, names ...string) error {
	const op = "subscribe"

	if err := c.ready(op); err != nil {
		return err
	}
	if len(names) == 0 {
		return &ClientError{Op: op, Err: &pkgerrs.InvalidParameterError{Field: "sr_name", Message: "at least one community is required"}}
	}
	for _, name := range names {
		if err := c.validator.ValidateCommunity(name); err != nil {
			return &ClientError{Op: op, Err: err}
		}
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}

	action := "unsub"
	if subscribe {
		action = "sub"
	}
	data := url.Values{}
	data.Set("action", action)
	data.Set("sr_name", strings.Join(names, ", "))

	if _, err := c.gateway.Post(ctx, internal.SubscribePath, data, false); err != nil {
		return &ClientError{Op: op, Err: err}
	}
	c.logger.Info("subscription updated", "action", action, "communities", len(names))
	return nil
}
