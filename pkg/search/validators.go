package search

// Query represents the query parameters for catalog search.
type Query struct {
	Query string `query:"q" json:"q" mod:"trim"`
}
