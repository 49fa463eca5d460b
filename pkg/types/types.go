package types

import (
	"encoding/json"
	"strings"
)

// Thing is the envelope Reddit wraps every object in: a kind tag plus its data.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// ListingData contains the data for a Listing.
type ListingData struct {
	BeforeFullname string   `json:"before"`
	AfterFullname  string   `json:"after"`
	Children       []*Thing `json:"children"` // Raw Things with kind+data, parsed by caller
}

// Kind tags used by the API.
const (
	KindListing = "Listing"
	KindComment = "t1"
	KindLink    = "t3"
	KindMore    = "more"
)

// ListingKind names an ordering of a community's posts.
type ListingKind string

const (
	ListingBest          ListingKind = "best"
	ListingNew           ListingKind = "new"
	ListingHot           ListingKind = "hot"
	ListingTop           ListingKind = "top"
	ListingRising        ListingKind = "rising"
	ListingControversial ListingKind = "controversial"
	ListingRandom        ListingKind = "random"
	ListingSort          ListingKind = "sort"
)

// ListingKinds lists every listing the client will request.
var ListingKinds = []ListingKind{
	ListingBest, ListingNew, ListingHot, ListingTop,
	ListingRising, ListingControversial, ListingRandom, ListingSort,
}

// Valid reports whether k is one of ListingKinds.
func (k ListingKind) Valid() bool {
	for _, known := range ListingKinds {
		if k == known {
			return true
		}
	}
	return false
}

// TimeRange is the window a top listing is computed over.
type TimeRange string

const (
	TimeRangeNone  TimeRange = ""
	TimeRangeHour  TimeRange = "hour"
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
	TimeRangeAll   TimeRange = "all"
)

// TimeRanges lists every accepted time range.
var TimeRanges = []TimeRange{
	TimeRangeHour, TimeRangeDay, TimeRangeWeek, TimeRangeMonth, TimeRangeYear, TimeRangeAll,
}

// Valid reports whether r is one of TimeRanges. Matching ignores case.
func (r TimeRange) Valid() bool {
	lower := TimeRange(strings.ToLower(string(r)))
	for _, known := range TimeRanges {
		if lower == known {
			return true
		}
	}
	return false
}

// ListingRequest describes one page of posts to fetch from a community.
// TimeRange is only meaningful, and required, when Kind is ListingTop.
type ListingRequest struct {
	Community string
	Kind      ListingKind
	TimeRange TimeRange
	// Limit is sent as-is; the API caps it server-side. Zero selects the client default.
	Limit int
}

// PostRecord is a listing child as returned by the API, reduced to the fields the
// harvester keeps.
type PostRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	SelfText    string `json:"selftext"`
	NumComments int    `json:"num_comments"`
}

// NodeKind discriminates comment tree nodes.
type NodeKind int

const (
	// NodeOther is any kind tag the harvester does not interpret.
	NodeOther NodeKind = iota
	// NodeComment is an actual comment ("t1").
	NodeComment
	// NodeMore is a "load more comments" placeholder.
	NodeMore
)

// NodeKindOf maps an API kind tag to its NodeKind.
func NodeKindOf(tag string) NodeKind {
	switch tag {
	case KindComment:
		return NodeComment
	case KindMore:
		return NodeMore
	default:
		return NodeOther
	}
}

func (k NodeKind) String() string {
	switch k {
	case NodeComment:
		return "comment"
	case NodeMore:
		return "more"
	default:
		return "other"
	}
}

// CommentNode is one node of a typed comment tree. Body is empty when the API sent
// no body, an empty body, or a body that was not a string.
type CommentNode struct {
	Kind    NodeKind
	Body    string
	Replies []*CommentNode
}

// Post is one accumulated row: a post and the flattened bodies of its comment tree.
type Post struct {
	ID          string   `json:"id"`
	URL         string   `json:"url,omitempty"`
	Title       string   `json:"title"`
	SelfText    string   `json:"selftext"`
	NumComments int      `json:"num_comments"`
	Comments    []string `json:"comments"`
}

// Complete reports whether the row carries the fields every consumer relies on.
func (p *Post) Complete() bool {
	return p != nil && p.ID != "" && p.Title != ""
}
