package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pickperfect/internal/db"
)

// defaultLimit mirrors the FT.SEARCH server default page size.
const defaultLimit = 10

// Search runs a composite query via FT.SEARCH. KNN queries are sorted by
// ascending distance and carry the raw distance in SearchEntry.Score.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(buildSearchArgs(q)...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	scoreField := ""
	if knn := q.Query.KNN(); knn != nil {
		scoreField = knn.ScoreAlias
	}
	return parseSearchResult(raw, scoreField)
}

func buildSearchArgs(q *db.SearchQuery) []string {
	knn := q.Query.KNN()
	args := []string{q.IndexName, buildQueryString(q.Query)}

	if len(q.ReturnFields) > 0 {
		fields := q.ReturnFields
		if knn != nil && !slices.Contains(fields, knn.ScoreAlias) {
			fields = append(slices.Clone(fields), knn.ScoreAlias)
		}
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	limit := q.Query.Limit()
	if knn != nil {
		args = append(args, "SORTBY", knn.ScoreAlias, "ASC")
		if limit == 0 {
			limit = knn.K
		}
	}
	if limit == 0 {
		limit = defaultLimit
	}
	args = append(args, "LIMIT", strconv.Itoa(q.Query.Offset()), strconv.Itoa(limit))

	if knn != nil {
		args = append(args, "PARAMS", "2", "BLOB", vectorToBytes(knn.Vector))
	}
	return append(args, "DIALECT", "2")
}

func parseSearchResult(raw []rueidis.RedisMessage, scoreField string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if scoreField != "" {
			if scoreStr, ok := entry.Fields[scoreField]; ok {
				if v, err := strconv.ParseFloat(scoreStr, 64); err == nil {
					entry.Score = v
				}
				delete(entry.Fields, scoreField)
			}
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
