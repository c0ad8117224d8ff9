package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (s *Server) registerProgressRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress",
		Summary:     "Progress overview",
		Description: "Returns topic completion per book and in total",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleProgressOverview)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress/books/{bookId}",
		Summary:     "Book progress",
		Description: "Returns a book's completion broken down by section and chapter",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleBookProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDayProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress/days/{date}",
		Summary:     "Day progress",
		Description: "Returns task completion across one date's slots",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDayProgress)
}

// DayPathInput identifies a calendar date.
type DayPathInput struct {
	Date string `path:"date" doc:"Date, YYYY-MM-DD"`
}

// OverviewOutput wraps the progress overview for Huma.
type OverviewOutput struct {
	Body *service.Overview
}

// BookBreakdownOutput wraps a book breakdown for Huma.
type BookBreakdownOutput struct {
	Body *service.BookBreakdown
}

// DayProgressOutput wraps a day's progress for Huma.
type DayProgressOutput struct {
	Body *service.DayProgress
}

func (s *Server) handleProgressOverview(ctx context.Context, _ *struct{}) (*OverviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	overview, err := s.services.Progress.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &OverviewOutput{Body: overview}, nil
}

func (s *Server) handleBookProgress(ctx context.Context, input *BookPathInput) (*BookBreakdownOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.services.Progress.Book(ctx, userID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &BookBreakdownOutput{Body: breakdown}, nil
}

func (s *Server) handleDayProgress(ctx context.Context, input *DayPathInput) (*DayProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	day, err := s.services.Progress.Day(ctx, userID, input.Date)
	if err != nil {
		return nil, err
	}
	return &DayProgressOutput{Body: day}, nil
}
