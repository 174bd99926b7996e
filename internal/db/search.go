package db

import "github.com/kailas-cloud/pickperfect/internal/domain/search/query"

// SearchQuery is the input for a composite FT.SEARCH.
type SearchQuery struct {
	IndexName    string
	Query        query.Query
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
//
// Score is the raw KNN distance for vector queries and zero otherwise.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
