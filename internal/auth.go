package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
)

const defaultTokenEndpointPath = "api/v1/access_token"

// Authenticator performs the OAuth password grant and hands out the resulting
// header set. The token is fetched once and reused for the life of the
// Authenticator; there is no refresh.
type Authenticator struct {
	client    *http.Client
	config    *oauth2.Config
	username  string
	password  string
	userAgent string
	tokenURL  *url.URL
	logger    *slog.Logger

	mu      sync.Mutex
	headers http.Header
}

// NewAuthenticator creates a new authenticator. baseURL is the host serving the
// token endpoint, e.g. https://www.reddit.com/.
func NewAuthenticator(httpClient *http.Client, username, password, clientID, clientSecret, userAgent, baseURL string, logger *slog.Logger) (*Authenticator, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.AuthError{Message: "failed to parse base URL", Err: err}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}
	tokenURL, err := parsedURL.Parse(defaultTokenEndpointPath)
	if err != nil {
		return nil, &pkgerrs.AuthError{Message: "failed to parse token endpoint path", Err: err}
	}

	return &Authenticator{
		client: httpClient,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL.String(),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		username:  username,
		password:  password,
		userAgent: userAgent,
		tokenURL:  tokenURL,
		logger:    logger,
	}, nil
}

// GetToken performs the password grant exchange and returns the access token.
func (a *Authenticator) GetToken(ctx context.Context) (string, error) {
	// oauth2 sends no User-Agent of its own and Reddit rejects anonymous agents.
	client := *a.client
	client.Transport = &userAgentTransport{base: a.client.Transport, userAgent: a.userAgent}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &client)

	a.logger.Debug("requesting access token", "token_url", a.tokenURL.String())

	token, err := a.config.PasswordCredentialsToken(ctx, a.username, a.password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", &pkgerrs.AuthError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
				Message:    "token exchange rejected",
			}
		}
		return "", &pkgerrs.AuthError{Message: "token exchange failed", Err: err}
	}
	if token.AccessToken == "" {
		return "", &pkgerrs.AuthError{Message: "access token was empty in response"}
	}

	return token.AccessToken, nil
}

// Headers returns the User-Agent and bearer Authorization headers, performing the
// token exchange on first use. A failed exchange is not cached.
func (a *Authenticator) Headers(ctx context.Context) (http.Header, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.headers == nil {
		token, err := a.GetToken(ctx)
		if err != nil {
			return nil, err
		}
		h := make(http.Header)
		h.Set("User-Agent", a.userAgent)
		h.Set("Authorization", fmt.Sprintf("bearer %s", token))
		a.headers = h
	}

	return a.headers.Clone(), nil
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return base.RoundTrip(r)
}
