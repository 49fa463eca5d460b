// Package test_generators builds seeded listings and comment threads for tests
// that need more data than is comfortable to write by hand.
package test_generators

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// PostGenerator generates listing posts for testing
type PostGenerator struct {
	rand           *rand.Rand
	next           int64
	titleTemplates []string
	topics         []string
}

// NewPostGenerator creates a new post generator. Seed zero uses the clock.
func NewPostGenerator(seed int64) *PostGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &PostGenerator{
		rand: rand.New(rand.NewSource(seed)),
		next: 36 * 36 * 36, // first id has four base36 digits
		titleTemplates: []string{
			"Ask r/golang: %s",
			"[Discussion] %s",
			"PSA: %s",
			"TIL about %s",
			"Analysis: %s",
		},
		topics: []string{
			"generics", "error wrapping", "the scheduler", "slog handlers",
			"context cancellation", "module proxies", "fuzzing", "iterators",
		},
	}
}

// GeneratePost returns a post with a fresh, unique base36 id. One post in
// five is a link post with no self text.
func (pg *PostGenerator) GeneratePost() types.PostRecord {
	pg.next++
	post := types.PostRecord{
		ID:          strconv.FormatInt(pg.next, 36),
		Title:       fmt.Sprintf(pg.randElement(pg.titleTemplates), pg.randElement(pg.topics)),
		NumComments: pg.rand.Intn(200),
	}
	if pg.rand.Intn(5) != 0 {
		post.SelfText = "Thoughts on " + pg.randElement(pg.topics) + "?"
	}
	return post
}

// GeneratePosts returns count posts with distinct ids.
func (pg *PostGenerator) GeneratePosts(count int) []types.PostRecord {
	posts := make([]types.PostRecord, count)
	for i := range posts {
		posts[i] = pg.GeneratePost()
	}
	return posts
}

func (pg *PostGenerator) randElement(slice []string) string {
	return slice[pg.rand.Intn(len(slice))]
}
