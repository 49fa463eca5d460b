package test_generators

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jamesprial/go-reddit-harvester/test_helpers"
)

// Thread is a generated comment listing together with the bodies a pre-order
// flatten must yield for it.
type Thread struct {
	// TopLevel holds the top-level children, ready for test_helpers.CommentsJSON.
	TopLevel []string
	// Bodies is every non-empty comment body in pre-order.
	Bodies []string
	// Comments counts the t1 nodes, including those with empty bodies.
	Comments int
}

// CommentThreadOptions shapes a generated thread.
type CommentThreadOptions struct {
	MaxDepth   int
	MaxReplies int
	// EmptyBodyRate is the chance, in [0,1], that a comment has an empty body.
	EmptyBodyRate float64
	// MoreRate is the chance that a "more" placeholder follows a comment's replies.
	MoreRate float64
}

// CommentGenerator generates comment threads for testing
type CommentGenerator struct {
	rand      *rand.Rand
	sentences []string
	n         int
}

// NewCommentGenerator creates a new comment generator. Seed zero uses the clock.
func NewCommentGenerator(seed int64) *CommentGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &CommentGenerator{
		rand: rand.New(rand.NewSource(seed)),
		sentences: []string{
			"Great point",
			"I disagree, and here's why",
			"Source?",
			"This, so much this",
			"Have you tried profiling it",
			"Works on my machine",
		},
	}
}

// GenerateThread builds topLevel top-level comments with random replies.
func (cg *CommentGenerator) GenerateThread(topLevel int, opts CommentThreadOptions) Thread {
	var th Thread
	for i := 0; i < topLevel; i++ {
		th.TopLevel = append(th.TopLevel, cg.generateComment(&th, 1, opts))
		if cg.chance(opts.MoreRate) {
			th.TopLevel = append(th.TopLevel, test_helpers.MoreJSON(fmt.Sprintf("m%d", i)))
		}
	}
	if th.Bodies == nil {
		th.Bodies = []string{}
	}
	return th
}

// generateComment records the body before recursing so Bodies stays in pre-order.
func (cg *CommentGenerator) generateComment(th *Thread, depth int, opts CommentThreadOptions) string {
	cg.n++
	th.Comments++

	body := ""
	if !cg.chance(opts.EmptyBodyRate) {
		body = fmt.Sprintf("%s #%d", cg.sentences[cg.rand.Intn(len(cg.sentences))], cg.n)
		th.Bodies = append(th.Bodies, body)
	}

	var replies []string
	if depth < opts.MaxDepth && opts.MaxReplies > 0 {
		for i := cg.rand.Intn(opts.MaxReplies + 1); i > 0; i-- {
			replies = append(replies, cg.generateComment(th, depth+1, opts))
		}
		if len(replies) > 0 && cg.chance(opts.MoreRate) {
			replies = append(replies, test_helpers.MoreJSON(fmt.Sprintf("r%d", cg.n)))
		}
	}
	return test_helpers.CommentJSON(body, replies...)
}

func (cg *CommentGenerator) chance(rate float64) bool {
	return rate > 0 && cg.rand.Float64() < rate
}
