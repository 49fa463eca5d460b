package internal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
)

// oauthHostMarker is stripped from URLs before they appear in errors, so messages
// point at the public host rather than the OAuth-only one.
const oauthHostMarker = "oauth."

// HeaderSource supplies the headers attached to every API call.
type HeaderSource interface {
	Headers(ctx context.Context) (http.Header, error)
}

// Gateway issues authenticated calls against a fixed base URL.
type Gateway struct {
	client  *http.Client
	BaseURL *url.URL
	auth    HeaderSource
	logger  *slog.Logger
}

// NewGateway returns a new Gateway. If a nil httpClient is provided,
// http.DefaultClient will be used.
func NewGateway(httpClient *http.Client, auth HeaderSource, baseURL string, logger *slog.Logger) (*Gateway, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	return &Gateway{
		client:  httpClient,
		BaseURL: parsedURL,
		auth:    auth,
		logger:  logger,
	}, nil
}

// Get issues a GET for endpoint with the given query parameters and returns the
// raw body of a 2xx response.
func (g *Gateway) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	u, err := g.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return g.do(ctx, http.MethodGet, u, nil)
}

// Post sends data form-encoded to endpoint, as a PUT when asPut is set. An empty
// 2xx body yields a nil result.
func (g *Gateway) Post(ctx context.Context, endpoint string, data url.Values, asPut bool) (json.RawMessage, error) {
	u, err := g.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	method := http.MethodPost
	if asPut {
		method = http.MethodPut
	}
	return g.do(ctx, method, u, strings.NewReader(data.Encode()))
}

func (g *Gateway) resolve(endpoint string) (*url.URL, error) {
	u, err := g.BaseURL.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: "resolve", Message: "invalid endpoint " + endpoint, Err: err}
	}
	return u, nil
}

func (g *Gateway) do(ctx context.Context, method string, u *url.URL, body io.Reader) (json.RawMessage, error) {
	publicURL := SanitizeURL(u.String())

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: method, URL: publicURL, Err: err}
	}

	headers, err := g.auth.Headers(ctx)
	if err != nil {
		return nil, err
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	g.logger.Debug("api request", "method", method, "url", publicURL)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: method, URL: publicURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Debug("api request failed", "method", method, "url", publicURL, "status", resp.StatusCode)
		return nil, &pkgerrs.HTTPError{
			StatusCode: resp.StatusCode,
			Reason:     reason(resp),
			URL:        publicURL,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Operation: method, URL: publicURL, Message: "failed to read response body", Err: err}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// reason extracts the status text from resp.Status ("404 Not Found" → "Not Found").
func reason(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// SanitizeURL removes the OAuth host marker from a URL's host so it can be shown
// to people. Path and query are left alone. Unparseable input is returned as is.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Host = strings.TrimPrefix(u.Host, oauthHostMarker)
	return u.String()
}
