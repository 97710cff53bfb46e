// Package pagination walks cursor-paginated GraphQL connections.
//
// The upstream paginates with `first`/`after` inputs and reports
// `pageInfo { hasNextPage endCursor }`. Each page's cursor depends on the
// previous response, so pages are fetched strictly in order, one at a time,
// with a courtesy delay between them.
//
// Example usage:
//
//	p := pagination.New(client, filesQuery, nil,
//		pagination.ConnectionAt[fileNode]("files"), pagination.DefaultSchedule())
//	for item, err := range p.All(ctx) {
//		if err != nil {
//			return err
//		}
//		...
//	}
//	if p.Truncated() {
//		// MaxPages was reached while more pages remained
//	}
//
// The paginator:
//   - Fetches a page only when the consumer pulls past the previous one
//   - Retries the same page after a fixed backoff on THROTTLED errors
//   - Fails on any other query error
//   - Stops at Schedule.MaxPages and records truncation
//   - Can be consumed once
package pagination
