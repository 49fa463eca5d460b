package harvester

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"

	"github.com/jamesprial/go-reddit-harvester/test_helpers"
)

// newMockClient returns a client that authenticates and fetches against ms.
func newMockClient(t *testing.T, ms *test_helpers.MockServer, mutate ...func(*Config)) *Client {
	t.Helper()

	config := &Config{
		Username:     "test_user",
		Password:     "test_pass",
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		UserAgent:    "harvester-test/1.0",
		BaseURL:      ms.URL(),
		AuthURL:      ms.URL(),
		HTTPClient:   ms.Client(),
	}
	for _, m := range mutate {
		m(config)
	}

	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// gatewayCall is one call seen by recordingGateway.
type gatewayCall struct {
	Method   string
	Endpoint string
	Values   url.Values
}

// recordingGateway is an HTTPGateway fake that serves canned bodies by endpoint.
type recordingGateway struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  []gatewayCall
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{bodies: map[string]string{}, errs: map[string]error{}}
}

func (g *recordingGateway) Get(_ context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return g.record("GET", endpoint, params)
}

func (g *recordingGateway) Post(_ context.Context, endpoint string, data url.Values, asPut bool) (json.RawMessage, error) {
	method := "POST"
	if asPut {
		method = "PUT"
	}
	return g.record(method, endpoint, data)
}

func (g *recordingGateway) record(method, endpoint string, values url.Values) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{Method: method, Endpoint: endpoint, Values: values})
	if err := g.errs[endpoint]; err != nil {
		return nil, err
	}
	body, ok := g.bodies[endpoint]
	if !ok {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func (g *recordingGateway) Calls() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.calls...)
}

func newGatewayClient(t *testing.T, gw HTTPGateway, mutate ...func(*Config)) *Client {
	t.Helper()
	config := &Config{Gateway: gw}
	for _, m := range mutate {
		m(config)
	}
	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}
