package harvester

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
	"github.com/jamesprial/go-reddit-harvester/test_helpers"
)

func TestFetchAndMerge_DisjointFetchesSum(t *testing.T) {
	ms := test_helpers.NewMockServer()
	defer ms.Close()

	hot := []types.PostRecord{
		{ID: "h1", Title: "Hot one", SelfText: "text h1", NumComments: 2},
		{ID: "h2", Title: "Hot two", SelfText: "", NumComments: 0},
	}
	top := []types.PostRecord{
		{ID: "t1", Title: "Top one", SelfText: "text t1", NumComments: 1},
		{ID: "t2", Title: "Top two", SelfText: "text t2", NumComments: 5},
		{ID: "t3", Title: "Top three", SelfText: "text t3", NumComments: 0},
	}
	ms.SetListing("golang", types.ListingHot, hot...)
	ms.SetListing("golang", types.ListingTop, top...)
	comments := map[string][]string{
		"h1": {"first", "reply"},
		"h2": {},
		"t1": {"only"},
		"t2": {"a", "b", "c"},
		"t3": {},
	}
	ms.SetComments("golang", "h1", test_helpers.CommentJSON("first", test_helpers.CommentJSON("reply")))
	ms.SetComments("golang", "h2")
	ms.SetComments("golang", "t1", test_helpers.CommentJSON("only"))
	ms.SetComments("golang", "t2", test_helpers.CommentJSON("a", test_helpers.CommentJSON("b")), test_helpers.CommentJSON("c"))
	ms.SetComments("golang", "t3", test_helpers.MoreJSON("zz"))

	client := newMockClient(t, ms)
	ctx := context.Background()

	if err := client.FetchAndMerge(ctx, listingRequest("golang", types.ListingHot)); err != nil {
		t.Fatalf("FetchAndMerge(hot) error = %v", err)
	}
	if got := client.Table().Len(); got != len(hot) {
		t.Fatalf("rows after hot = %d, want %d", got, len(hot))
	}

	topReq := types.ListingRequest{Community: "golang", Kind: types.ListingTop, TimeRange: types.TimeRangeAll, Limit: 10}
	if err := client.FetchAndMerge(ctx, topReq); err != nil {
		t.Fatalf("FetchAndMerge(top) error = %v", err)
	}

	rows := client.Table().Rows()
	if len(rows) != len(hot)+len(top) {
		t.Fatalf("rows = %d, want %d", len(rows), len(hot)+len(top))
	}

	for i, want := range append(hot, top...) {
		got := rows[i]
		if got.ID != want.ID || got.Title != want.Title || got.SelfText != want.SelfText || got.NumComments != want.NumComments {
			t.Errorf("row %d = %+v, want fields of %+v", i, got, want)
		}
		if wantURL := "https://reddit.com/r/golang/comments/" + want.ID; got.URL != wantURL {
			t.Errorf("row %d URL = %q, want %q", i, got.URL, wantURL)
		}
		if !reflect.DeepEqual(got.Comments, comments[want.ID]) {
			t.Errorf("row %d comments = %q, want %q", i, got.Comments, comments[want.ID])
		}
	}

	// One listing request plus one comments request per post, for each fetch.
	if got, want := ms.APIRequestCount(), 2+len(hot)+len(top); got != want {
		t.Errorf("API requests = %d, want %d", got, want)
	}
}

func TestFetchAndMerge_MergePolicies(t *testing.T) {
	tests := []struct {
		name      string
		policy    MergePolicy
		wantIDs   []string
		wantTitle string
	}{
		{name: "append keeps duplicates", policy: MergeAppend, wantIDs: []string{"p1", "p2", "p2", "p3"}, wantTitle: "old"},
		{name: "upsert replaces in place", policy: MergeUpsert, wantIDs: []string{"p1", "p2", "p3"}, wantTitle: "new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := test_helpers.NewMockServer()
			defer ms.Close()
			ms.SetListing("golang", types.ListingHot,
				types.PostRecord{ID: "p1", Title: "one"},
				types.PostRecord{ID: "p2", Title: "old"},
			)
			ms.SetListing("golang", types.ListingNew,
				types.PostRecord{ID: "p2", Title: "new"},
				types.PostRecord{ID: "p3", Title: "three"},
			)
			for _, id := range []string{"p1", "p2", "p3"} {
				ms.SetComments("golang", id)
			}

			client := newMockClient(t, ms, func(c *Config) { c.MergePolicy = tt.policy })
			ctx := context.Background()
			for _, kind := range []types.ListingKind{types.ListingHot, types.ListingNew} {
				if err := client.FetchAndMerge(ctx, listingRequest("golang", kind)); err != nil {
					t.Fatalf("FetchAndMerge(%s) error = %v", kind, err)
				}
			}

			var ids []string
			for _, row := range client.Table().Rows() {
				ids = append(ids, row.ID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}

			row, ok := client.Table().Get("p2")
			if !ok {
				t.Fatal("p2 missing")
			}
			if row.Title != tt.wantTitle {
				t.Errorf("p2 title = %q, want %q", row.Title, tt.wantTitle)
			}
		})
	}
}

func TestFetchAndMerge_DropIncomplete(t *testing.T) {
	ms := test_helpers.NewMockServer()
	defer ms.Close()
	ms.SetListing("golang", types.ListingHot,
		types.PostRecord{ID: "ok", Title: "Complete"},
		types.PostRecord{ID: "untitled", Title: ""},
		types.PostRecord{ID: "", Title: "No id"},
	)
	ms.SetComments("golang", "ok", test_helpers.CommentJSON("c"))
	ms.SetComments("golang", "untitled")

	client := newMockClient(t, ms, func(c *Config) { c.DropIncomplete = true })
	if err := client.FetchAndMerge(context.Background(), listingRequest("golang", types.ListingHot)); err != nil {
		t.Fatalf("FetchAndMerge() error = %v", err)
	}

	rows := client.Table().Rows()
	if len(rows) != 1 || rows[0].ID != "ok" {
		t.Errorf("rows = %+v, want only the complete row", rows)
	}
	// The post without an id never triggers a comments request.
	if got := ms.APIRequestCount(); got != 3 {
		t.Errorf("API requests = %d, want 3", got)
	}
}

func TestFetchAndMerge_FailureKeepsEarlierRows(t *testing.T) {
	ms := test_helpers.NewMockServer()
	defer ms.Close()
	ms.SetListing("golang", types.ListingNew,
		types.PostRecord{ID: "a", Title: "A"},
		types.PostRecord{ID: "b", Title: "B"},
		types.PostRecord{ID: "c", Title: "C"},
	)
	ms.SetComments("golang", "a", test_helpers.CommentJSON("fine"))
	ms.SetError("/r/golang/comments/b", http.StatusInternalServerError)
	ms.SetComments("golang", "c", test_helpers.CommentJSON("never fetched"))

	client := newMockClient(t, ms)
	err := client.FetchAndMerge(context.Background(), listingRequest("golang", types.ListingNew))

	var httpErr *pkgerrs.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 HTTPError, got %v", err)
	}
	rows := client.Table().Rows()
	if len(rows) != 1 || rows[0].ID != "a" {
		t.Errorf("rows = %+v, want only row a", rows)
	}
	if n := ms.GetCallCount("/r/golang/comments/c"); n != 0 {
		t.Errorf("post c fetched %d times after the failure", n)
	}
}

func TestFetchAndMerge_ListingFailureLeavesTable(t *testing.T) {
	ms := test_helpers.NewMockServer()
	defer ms.Close()
	ms.SetListing("golang", types.ListingHot, types.PostRecord{ID: "a", Title: "A"})
	ms.SetComments("golang", "a")

	client := newMockClient(t, ms)
	ctx := context.Background()
	if err := client.FetchAndMerge(ctx, listingRequest("golang", types.ListingHot)); err != nil {
		t.Fatal(err)
	}
	before := client.Table().Rows()

	err := client.FetchAndMerge(ctx, types.ListingRequest{Community: "golang", Kind: types.ListingTop})
	if !errors.As(err, new(*pkgerrs.InvalidParameterError)) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
	err = client.FetchAndMerge(ctx, listingRequest("golang", types.ListingRising))
	if !errors.As(err, new(*pkgerrs.HTTPError)) {
		t.Fatalf("expected HTTPError for unconfigured listing, got %v", err)
	}

	if after := client.Table().Rows(); !reflect.DeepEqual(before, after) {
		t.Errorf("table changed: before %+v, after %+v", before, after)
	}
}

// flakyGateway fails the first failures[endpoint] calls to an endpoint with a 503.
type flakyGateway struct {
	*recordingGateway
	failures map[string]int
}

func (g *flakyGateway) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	g.mu.Lock()
	left := g.failures[endpoint]
	if left > 0 {
		g.failures[endpoint] = left - 1
	}
	g.mu.Unlock()
	if left > 0 {
		return nil, &pkgerrs.HTTPError{StatusCode: http.StatusServiceUnavailable, Reason: "Service Unavailable"}
	}
	return g.recordingGateway.Get(ctx, endpoint, params)
}

func TestFetchAndMerge_WithRetry(t *testing.T) {
	rec := newRecordingGateway()
	rec.bodies["r/golang/hot"] = test_helpers.ListingJSON(types.PostRecord{ID: "a", Title: "A"})
	rec.bodies["r/golang/comments/a"] = test_helpers.CommentsJSON(test_helpers.CommentJSON("after retry"))
	gw := &flakyGateway{recordingGateway: rec, failures: map[string]int{"r/golang/comments/a": 2}}

	client := newGatewayClient(t, gw, func(c *Config) {
		c.Retry = &RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	})

	if err := client.FetchAndMerge(context.Background(), listingRequest("golang", types.ListingHot)); err != nil {
		t.Fatalf("FetchAndMerge() error = %v", err)
	}
	row, _ := client.Table().Get("a")
	if !reflect.DeepEqual(row.Comments, []string{"after retry"}) {
		t.Errorf("comments = %q", row.Comments)
	}
}

func TestFetchAndMerge_WithoutRetryFailsOnce(t *testing.T) {
	rec := newRecordingGateway()
	rec.bodies["r/golang/hot"] = test_helpers.ListingJSON(types.PostRecord{ID: "a", Title: "A"})
	gw := &flakyGateway{recordingGateway: rec, failures: map[string]int{"r/golang/comments/a": 1}}

	client := newGatewayClient(t, gw)
	err := client.FetchAndMerge(context.Background(), listingRequest("golang", types.ListingHot))
	if !errors.As(err, new(*pkgerrs.HTTPError)) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if client.Table().Len() != 0 {
		t.Errorf("rows = %d, want 0", client.Table().Len())
	}
}

func TestFetchAndMerge_LogsProgress(t *testing.T) {
	ms := test_helpers.NewMockServer()
	defer ms.Close()

	var posts []types.PostRecord
	for _, id := range []string{"p1", "p2", "p3"} {
		posts = append(posts, types.PostRecord{ID: id, Title: strings.ToUpper(id)})
		ms.SetComments("golang", id)
	}
	ms.SetListing("golang", types.ListingHot, posts...)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	client := newMockClient(t, ms, func(c *Config) { c.Logger = logger })

	if err := client.FetchAndMerge(context.Background(), listingRequest("golang", types.ListingHot)); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "listing harvested") || !strings.Contains(out, "community=golang") {
		t.Errorf("missing summary line in log:\n%s", out)
	}
	if n := strings.Count(out, "harvest progress"); n != 1 {
		t.Errorf("progress lines = %d, want 1 (throttled)", n)
	}
}
