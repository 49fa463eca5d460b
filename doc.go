// Package harvester collects posts and their flattened comment threads from
// Reddit communities into a growing table.
//
// # Overview
//
// A Client authenticates with the OAuth password grant, fetches a page of a
// community's posts ("listing"), then requests each post's comment tree and
// flattens it into an ordered list of comment bodies. Every post becomes one
// row in the client's Table. Repeated fetches keep adding rows.
//
// # Quick Start
//
//	config := &harvester.Config{
//		Username:     "your-username",
//		Password:     "your-password",
//		ClientID:     "your-client-id",
//		ClientSecret: "your-client-secret",
//		UserAgent:    "myapp/1.0 by /u/yourusername",
//	}
//
//	client, err := harvester.NewClient(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := client.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	err = client.FetchAndMerge(ctx, types.ListingRequest{
//		Community: "golang",
//		Kind:      types.ListingTop,
//		TimeRange: types.TimeRangeWeek,
//		Limit:     50,
//	})
//
//	for _, row := range client.Table().Rows() {
//		fmt.Printf("%s: %d comments harvested\n", row.Title, len(row.Comments))
//	}
//
// # Listings
//
// The known listings are best, new, hot, top, rising, controversial, random and
// sort. A top listing requires a TimeRange (hour, day, week, month, year or all)
// and fails with *errors.InvalidParameterError before any request when it is
// missing. Any other listing ignores TimeRange and never sends it.
//
// # Comment Flattening
//
// Only top-level comments start a traversal; "more comments" placeholders at the
// top level are skipped. Bodies are returned in depth-first pre-order:
//
//	A
//	├── B
//	└── C        → ["A", "B", "C"]
//
// The traversal keeps its own stack, so arbitrarily deep threads are safe.
// Missing or malformed body and replies fields are treated as absent.
//
// # Merging
//
// Config.MergePolicy selects how rows enter the table. MergeAppend, the default,
// concatenates, so a post returned by both the hot and new listings appears
// twice. MergeUpsert keeps one row per post id and replaces it in place.
// Config.DropIncomplete removes rows missing an id or title after every merge.
//
// A failed FetchAndMerge keeps the rows it merged before the failure.
//
// # Error Handling
//
// Client methods return *ClientError, which wraps one of the types in pkg/errors:
//
//	err := client.FetchAndMerge(ctx, req)
//	var httpErr *errors.HTTPError
//	switch {
//	case errors.As(err, &httpErr):
//		// non-2xx response; httpErr.URL never shows the oauth host
//	case errors.As(err, new(*errors.InvalidParameterError)):
//		// rejected before any request
//	case errors.As(err, new(*errors.AuthError)):
//		// token exchange failed
//	}
//
// Nothing is retried unless Config.Retry is set.
//
// # Logging and Tracing
//
// Provide a *slog.Logger in Config.Logger for structured diagnostics. The client
// starts OpenTelemetry spans for FetchAndMerge, FetchListing and ExtractComments
// using the global tracer provider, and the default HTTP client is instrumented
// with otelhttp.
package harvester
