package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/search"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search",
		Description: "Full-text search across the caller's books, topics and exams",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearch)
}

// SearchInput contains parameters for searching.
type SearchInput struct {
	Query  string `query:"q" maxLength:"200" doc:"Search query. Empty lists everything."`
	Types  string `query:"types" maxLength:"100" doc:"Comma-separated types to search (book,topic,exam). Omit for all."`
	BookID string `query:"book_id" doc:"Restrict topics to one book"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset int    `query:"offset" minimum:"0" doc:"Pagination offset"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	req := service.SearchRequest{
		Query:  input.Query,
		BookID: input.BookID,
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if input.Types != "" {
		for t := range strings.SplitSeq(input.Types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.Types = append(req.Types, t)
			}
		}
	}

	result, err := s.services.Search.Search(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Search completed",
		"query", input.Query,
		"total", result.Total,
		"hits", len(result.Hits),
		"took_ms", result.TookMs,
	)
	return &SearchOutput{Body: result}, nil
}
