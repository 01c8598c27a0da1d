// Package searchplane embeds the searchplane control plane in a Go program.
//
// The client runs the same command pipeline as the HTTP server: every call is
// authorized against the token store, committed to the search engine, and its
// domain events and log entries are handled by the configured policies.
//
//	client, _ := searchplane.New(ctx,
//	    searchplane.WithRueidis("localhost:6379", ""),
//	    searchplane.WithSuperuserToken("root"),
//	)
//	defer client.Close()
//
//	tok, _ := client.Tokens("shop").Put(ctx, searchplane.Token{Indices: []string{"products"}})
//
//	idx := client.Index("shop", "products", tok.UUID)
//	_, _ = idx.Index(ctx, items)
//	res, _ := idx.Query(ctx, searchplane.Query{
//	    Text: "shoes",
//	    Filters: map[string]searchplane.Filter{
//	        "color": {Values: []string{"red"}},
//	    },
//	    Aggregations: map[string]searchplane.Aggregation{
//	        "color": {ApplicationType: searchplane.AtLeastOne},
//	    },
//	})
//
// Use WithMemory for tests and single-process tools.
package searchplane
