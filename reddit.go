package harvester

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jamesprial/go-reddit-harvester/internal"
	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
)

const (
	// DefaultBaseURL is the default Reddit API base URL
	DefaultBaseURL = "https://oauth.reddit.com/"
	// DefaultAuthURL is the default Reddit OAuth base URL
	DefaultAuthURL = "https://www.reddit.com/"
	// DefaultPublicURL is the host used for the permalinks stored in rows.
	DefaultPublicURL = "https://reddit.com/"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-reddit-harvester/0.1"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
	// DefaultLimit is the page size used when a ListingRequest leaves Limit at zero.
	DefaultLimit = 25

	tracerName = "github.com/jamesprial/go-reddit-harvester"
)

// Config holds the configuration for the harvester client.
//
// The password grant needs all four credentials:
//
//	config := &Config{
//		Username:     "your-username",
//		Password:     "your-password",
//		ClientID:     "your-client-id",
//		ClientSecret: "your-client-secret",
//		UserAgent:    "myapp/1.0 by /u/yourusername",
//	}
//
// Credentials may be left empty when TokenProvider or Gateway is supplied.
type Config struct {
	// Username and Password for the password grant.
	Username string
	Password string

	// ClientID and ClientSecret of the script app, sent as HTTP Basic credentials.
	ClientID     string
	ClientSecret string

	// UserAgent string to identify your application to Reddit.
	// Defaults to DefaultUserAgent.
	UserAgent string

	// BaseURL for API calls. Defaults to DefaultBaseURL.
	BaseURL string

	// AuthURL for the token exchange. Defaults to DefaultAuthURL.
	AuthURL string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout and an OpenTelemetry transport.
	HTTPClient *http.Client

	// Logger for structured diagnostics. Optional.
	Logger *slog.Logger

	// MergePolicy decides how FetchAndMerge folds rows into the table.
	// Defaults to MergeAppend.
	MergePolicy MergePolicy

	// DropIncomplete removes rows without an id or title after every merge.
	DropIncomplete bool

	// Retry wraps API calls in a retry policy. Nil means every call is tried once.
	Retry *RetryConfig

	// TokenProvider replaces the built-in password grant.
	TokenProvider TokenProvider

	// Gateway replaces the built-in HTTP gateway. TokenProvider is not consulted
	// for requests when a Gateway is supplied.
	Gateway HTTPGateway
}

// RetryConfig is the caller-side retry policy applied around the gateway.
// Transport failures, 429 and 5xx responses are retried; other errors are not.
type RetryConfig struct {
	// Attempts is the total number of tries per call, including the first.
	Attempts uint
	// Delay is the initial backoff, doubled on every retry.
	Delay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// MaxJitter adds random delay up to this amount.
	MaxJitter time.Duration
}

// TokenProvider yields the header set attached to every authenticated call:
// User-Agent and "Authorization: bearer <token>".
type TokenProvider interface {
	Headers(ctx context.Context) (http.Header, error)
}

// HTTPGateway issues authenticated calls against the API base URL. Non-2xx
// responses fail with *errors.HTTPError.
type HTTPGateway interface {
	Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)
	Post(ctx context.Context, endpoint string, data url.Values, asPut bool) (json.RawMessage, error)
}

// Client fetches listings and comment trees and accumulates rows into its Table.
// A Client owns its Table; FetchAndMerge is the only writer.
//
// Calls are sequential by design. The Client is safe to share, but concurrent
// FetchAndMerge calls interleave their rows.
type Client struct {
	config    Config
	auth      TokenProvider
	gateway   HTTPGateway
	parser    *internal.Parser
	validator *internal.Validator
	conn      *internal.ConnectionManager
	table     *Table
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewClient creates a new client with the provided configuration. It validates
// the configuration and fills in defaults but performs no network I/O; call
// Connect, or let the first operation connect lazily.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &ClientError{Op: "new client", Err: &pkgerrs.ConfigError{Message: "config cannot be nil"}}
	}
	cfg := *config

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	validator := internal.NewValidator()
	if err := validator.ValidateUserAgent(cfg.UserAgent); err != nil {
		return nil, &ClientError{Op: "new client", Err: err}
	}
	if !cfg.MergePolicy.Valid() {
		return nil, &ClientError{Op: "new client", Err: &pkgerrs.ConfigError{Field: "MergePolicy", Message: "unknown merge policy " + cfg.MergePolicy.String()}}
	}

	auth := cfg.TokenProvider
	if auth == nil && cfg.Gateway == nil {
		if err := requireCredentials(&cfg); err != nil {
			return nil, &ClientError{Op: "new client", Err: err}
		}
		a, err := internal.NewAuthenticator(
			cfg.HTTPClient,
			cfg.Username,
			cfg.Password,
			cfg.ClientID,
			cfg.ClientSecret,
			cfg.UserAgent,
			cfg.AuthURL,
			cfg.Logger,
		)
		if err != nil {
			return nil, &ClientError{Op: "new client", Err: err}
		}
		auth = a
	}

	return &Client{
		config:    cfg,
		auth:      auth,
		gateway:   cfg.Gateway,
		parser:    internal.NewParser(),
		validator: validator,
		conn:      internal.NewConnectionManager(),
		table:     NewTable(cfg.MergePolicy, cfg.DropIncomplete),
		logger:    cfg.Logger,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

func requireCredentials(cfg *Config) error {
	switch {
	case cfg.ClientID == "":
		return &pkgerrs.ConfigError{Field: "ClientID", Message: "required for the password grant"}
	case cfg.ClientSecret == "":
		return &pkgerrs.ConfigError{Field: "ClientSecret", Message: "required for the password grant"}
	case cfg.Username == "":
		return &pkgerrs.ConfigError{Field: "Username", Message: "required for the password grant"}
	case cfg.Password == "":
		return &pkgerrs.ConfigError{Field: "Password", Message: "required for the password grant"}
	}
	return nil
}

// Connect obtains the bearer token and prepares the gateway. Once it succeeds
// later calls return nil at once; after a failure the next call tries again.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.ready("connect"); err != nil {
		return err
	}
	return c.conn.Initialize(ctx, c.initialize)
}

func (c *Client) initialize(ctx context.Context) error {
	if c.auth != nil {
		if _, err := c.auth.Headers(ctx); err != nil {
			c.logger.Error("authentication failed", "error", err)
			return &ClientError{Op: "connect", Err: err}
		}
	}

	if c.gateway == nil {
		gw, err := internal.NewGateway(c.config.HTTPClient, c.auth, c.config.BaseURL, c.logger)
		if err != nil {
			return &ClientError{Op: "connect", Err: err}
		}
		c.gateway = gw
	}

	if r := c.config.Retry; r != nil {
		c.gateway = internal.NewRetryGateway(c.gateway, internal.RetryPolicy{
			Attempts:  r.Attempts,
			Delay:     r.Delay,
			MaxDelay:  r.MaxDelay,
			MaxJitter: r.MaxJitter,
		}, c.logger)
	}

	c.logger.Debug("client connected", "base_url", internal.SanitizeURL(c.config.BaseURL))
	return nil
}

// IsConnected reports whether Connect has succeeded.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.State() == internal.StateReady
}

// Table returns the table this client accumulates into.
func (c *Client) Table() *Table {
	return c.table
}

// ready rejects a Client that was not built by NewClient.
func (c *Client) ready(op string) error {
	if c == nil || c.conn == nil || c.table == nil {
		return &ClientError{Op: op, Err: &pkgerrs.StateError{Operation: op, Message: "client was not created with NewClient"}}
	}
	return nil
}

// startSpan opens a span named op and returns a finish func that records err on it.
func (c *Client) startSpan(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := c.tracer.Start(ctx, op)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// postURL builds the public permalink stored with a row.
func postURL(community, postID string) string {
	return DefaultPublicURL + internal.CommentsPath(community, postID)
}

// ClientError wraps every error returned by Client methods with the operation
// that failed. The cause stays reachable through errors.As.
type ClientError struct {
	// Op is the client operation, e.g. "fetch listing".
	Op string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for ClientError.
func (e *ClientError) Error() string {
	if e.Err == nil {
		return "reddit client error: " + e.Op
	}
	return "reddit client error: " + e.Op + ": " + e.Err.Error()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}
