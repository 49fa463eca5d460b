// Package test_helpers provides a mock Reddit API server and JSON builders for
// listing and comment responses.
package test_helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// MockToken is the access token the default token response hands out.
const MockToken = "mock_token"

// MockServer is a configurable mock of the Reddit API.
type MockServer struct {
	server *httptest.Server

	mu          sync.Mutex
	responses   map[string]*MockResponse
	defaultResp *MockResponse
	requestLog  []RequestEntry
	callCount   map[string]int
}

// RequestEntry records one request the server received.
type RequestEntry struct {
	Method       string
	Path         string
	Query        url.Values
	Form         url.Values
	Headers      http.Header
	Timestamp    time.Time
	ResponseCode int
}

// MockResponse defines a mock API response.
type MockResponse struct {
	Status  int
	Body    string
	Headers map[string]string
	// MaxCalls limits how often this response is served; later calls get 404.
	// Zero means unlimited.
	MaxCalls int
}

// JSONResponse returns a 200 response with a JSON content type.
func JSONResponse(body string) *MockResponse {
	return &MockResponse{
		Status:  http.StatusOK,
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
	}
}

// NewMockServer starts a server that answers the token endpoint and returns 404
// for every path without a configured response.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]*MockResponse),
		callCount: make(map[string]int),
		defaultResp: &MockResponse{
			Status: http.StatusNotFound,
			Body:   `{"message": "Not Found", "error": 404}`,
		},
	}
	ms.SetTokenResponse()
	ms.server = httptest.NewServer(http.HandlerFunc(ms.serveHTTP))
	return ms
}

// URL returns the base URL of the mock server
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Client returns an HTTP client wired to the server.
func (ms *MockServer) Client() *http.Client {
	return ms.server.Client()
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse configures the response for an exact path, such as "/r/golang/hot".
func (ms *MockServer) SetResponse(path string, response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = response
}

// SetTokenResponse restores the default token endpoint answer.
func (ms *MockServer) SetTokenResponse() {
	ms.SetResponse("/api/v1/access_token", JSONResponse(`{"access_token":"`+MockToken+`","token_type":"bearer","expires_in":86400,"scope":"*"}`))
}

// SetError makes path answer with status and a Reddit-style error body.
func (ms *MockServer) SetError(path string, status int) {
	ms.SetResponse(path, &MockResponse{
		Status:  status,
		Body:    fmt.Sprintf(`{"message": %q, "error": %d}`, http.StatusText(status), status),
		Headers: map[string]string{"Content-Type": "application/json"},
	})
}

// SetListing serves posts as the listing of community.
func (ms *MockServer) SetListing(community string, kind types.ListingKind, posts ...types.PostRecord) {
	ms.SetResponse("/r/"+community+"/"+string(kind), JSONResponse(ListingJSON(posts...)))
}

// SetComments serves topLevel (built with CommentJSON and MoreJSON) as the
// comment listing of a post.
func (ms *MockServer) SetComments(community, postID string, topLevel ...string) {
	ms.SetResponse("/r/"+community+"/comments/"+postID, JSONResponse(CommentsJSON(topLevel...)))
}

// GetRequestLog returns a copy of the request log
func (ms *MockServer) GetRequestLog() []RequestEntry {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]RequestEntry{}, ms.requestLog...)
}

// GetCallCount returns the call count for a path
func (ms *MockServer) GetCallCount(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.callCount[path]
}

// GetLastRequest returns the most recent request for path.
func (ms *MockServer) GetLastRequest(path string) (*RequestEntry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for i := len(ms.requestLog) - 1; i >= 0; i-- {
		if ms.requestLog[i].Path == path {
			entry := ms.requestLog[i]
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("no requests found for path %s", path)
}

// APIRequestCount returns how many requests hit anything but the token endpoint.
func (ms *MockServer) APIRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	n := 0
	for _, entry := range ms.requestLog {
		if entry.Path != "/api/v1/access_token" {
			n++
		}
	}
	return n
}

// ClearLog clears the request log
func (ms *MockServer) ClearLog() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requestLog = ms.requestLog[:0]
	ms.callCount = make(map[string]int)
}

func (ms *MockServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	entry := RequestEntry{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Headers:   r.Header.Clone(),
		Timestamp: time.Now(),
	}
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		entry.Form, _ = url.ParseQuery(string(raw))
	}

	ms.mu.Lock()
	ms.callCount[r.URL.Path]++
	calls := ms.callCount[r.URL.Path]
	response, ok := ms.responses[r.URL.Path]
	if !ok {
		response = ms.defaultResp
	}
	if response.MaxCalls > 0 && calls > response.MaxCalls {
		response = ms.defaultResp
	}
	entry.ResponseCode = response.Status
	ms.requestLog = append(ms.requestLog, entry)
	ms.mu.Unlock()

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(response.Status)
	io.WriteString(w, response.Body)
}

// ListingJSON renders posts as a Listing of t3 things.
func ListingJSON(posts ...types.PostRecord) string {
	children := make([]string, len(posts))
	for i, post := range posts {
		data, _ := json.Marshal(post)
		children[i] = `{"kind":"t3","data":` + string(data) + `}`
	}
	return listingJSON(children)
}

// CommentJSON renders a t1 comment with the given replies. Reddit sends an empty
// string for "no replies", and so does this helper.
func CommentJSON(body string, replies ...string) string {
	b, _ := json.Marshal(body)
	repliesJSON := `""`
	if len(replies) > 0 {
		repliesJSON = listingJSON(replies)
	}
	return `{"kind":"t1","data":{"body":` + string(b) + `,"replies":` + repliesJSON + `}}`
}

// MoreJSON renders a "load more comments" placeholder.
func MoreJSON(ids ...string) string {
	data, _ := json.Marshal(map[string]any{"count": len(ids), "children": ids})
	return `{"kind":"more","data":` + string(data) + `}`
}

// CommentsJSON renders a [post, comments] response around topLevel.
func CommentsJSON(topLevel ...string) string {
	return "[" + listingJSON(nil) + "," + listingJSON(topLevel) + "]"
}

func listingJSON(children []string) string {
	return `{"kind":"Listing","data":{"after":null,"before":null,"children":[` + strings.Join(children, ",") + `]}}`
}
