package types

import (
	"encoding/json"
	"testing"
)

func TestListingKind_Valid(t *testing.T) {
	tests := []struct {
		kind ListingKind
		want bool
	}{
		{ListingHot, true},
		{ListingTop, true},
		{ListingControversial, true},
		{ListingKind("newest"), false},
		{ListingKind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.want {
				t.Errorf("ListingKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestTimeRange_Valid(t *testing.T) {
	tests := []struct {
		name string
		r    TimeRange
		want bool
	}{
		{"hour", TimeRangeHour, true},
		{"all", TimeRangeAll, true},
		{"upper case", TimeRange("WEEK"), true},
		{"none", TimeRangeNone, false},
		{"unknown", TimeRange("decade"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Valid(); got != tt.want {
				t.Errorf("TimeRange(%q).Valid() = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestNodeKindOf(t *testing.T) {
	tests := []struct {
		tag  string
		want NodeKind
	}{
		{"t1", NodeComment},
		{"more", NodeMore},
		{"t3", NodeOther},
		{"", NodeOther},
	}

	for _, tt := range tests {
		if got := NodeKindOf(tt.tag); got != tt.want {
			t.Errorf("NodeKindOf(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestPostRecord_Unmarshal(t *testing.T) {
	raw := `{"id":"abc123","title":"Hello","selftext":"body text","num_comments":42,"score":7}`

	var rec PostRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ID != "abc123" || rec.Title != "Hello" || rec.SelfText != "body text" || rec.NumComments != 42 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestPost_Complete(t *testing.T) {
	tests := []struct {
		name string
		post *Post
		want bool
	}{
		{"nil", nil, false},
		{"full", &Post{ID: "a", Title: "t"}, true},
		{"no id", &Post{Title: "t"}, false},
		{"no title", &Post{ID: "a"}, false},
		{"no comments is fine", &Post{ID: "a", Title: "t", Comments: nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.post.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}
