package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// ErrMissingUser is returned when a search is not scoped to a user.
var ErrMissingUser = errors.New("search requires a user id")

// SearchParams configures a search query.
type SearchParams struct {
	UserID string    // Required; results never cross users
	Query  string    // Free text
	Types  []DocType // Empty means every type
	BookID string    // Restrict to one book and its topics

	Limit  int
	Offset int
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID          string            `json:"id"`
	Type        DocType           `json:"type"`
	Score       float64           `json:"score"`
	Name        string            `json:"name"`
	Context     string            `json:"context,omitempty"`
	BookID      string            `json:"book_id,omitempty"`
	IsCompleted bool              `json:"is_completed"`
	Highlights  map[string]string `json:"highlights,omitempty"`
}

// Search executes a query scoped to params.UserID.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.UserID == "" {
		return nil, ErrMissingUser
	}
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	params.Offset = max(params.Offset, 0)

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "name"})
	req.Fields = []string{"id", "type", "name", "context", "book_id", "is_completed"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("name")

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["type"].(string); ok {
			h.Type = DocType(v)
		}
		if v, ok := hit.Fields["name"].(string); ok {
			h.Name = v
		}
		if v, ok := hit.Fields["context"].(string); ok {
			h.Context = v
		}
		if v, ok := hit.Fields["book_id"].(string); ok {
			h.BookID = v
		}
		if v, ok := hit.Fields["is_completed"].(string); ok {
			h.IsCompleted = v == "true"
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery ANDs the owner filter with the text query and optional filters.
func buildSearchQuery(params SearchParams) query.Query {
	owner := bleve.NewTermQuery(params.UserID)
	owner.SetField("user_id")
	queries := []query.Query{owner}

	if text := strings.TrimSpace(params.Query); text != "" {
		name := bleve.NewMatchQuery(text)
		name.SetField("name")
		name.SetBoost(3.0)

		desc := bleve.NewMatchQuery(text)
		desc.SetField("description")

		ctxMatch := bleve.NewMatchQuery(text)
		ctxMatch.SetField("context")
		ctxMatch.SetBoost(0.5)

		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("name")
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{name, desc, ctxMatch, fuzzy}
		if len(text) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(text))
			prefix.SetField("name")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if len(params.Types) > 0 {
		typeQueries := make([]query.Query, len(params.Types))
		for i, t := range params.Types {
			tq := bleve.NewTermQuery(string(t))
			tq.SetField("type")
			typeQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(typeQueries...))
	}

	if params.BookID != "" {
		bq := bleve.NewTermQuery(params.BookID)
		bq.SetField("book_id")
		queries = append(queries, bq)
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
