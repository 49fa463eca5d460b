package internal

import "strings"

// Endpoint paths, relative to the API base URL. Segments are lowercased; the API
// treats community names case-insensitively.
const (
	SearchNamesPath = "api/search_reddit_names"
	SubscribePath   = "api/subscribe"
)

// ListingPath returns r/{community}/{listing}.
func ListingPath(community, listing string) string {
	return joinSegments("r", community, listing)
}

// CommentsPath returns r/{community}/comments/{postID}.
func CommentsPath(community, postID string) string {
	return joinSegments("r", community, "comments", postID)
}

func joinSegments(segments ...string) string {
	for i, s := range segments {
		segments[i] = strings.ToLower(strings.Trim(s, "/"))
	}
	return strings.Join(segments, "/")
}
