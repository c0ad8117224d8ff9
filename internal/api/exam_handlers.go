package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (s *Server) registerExamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listExams",
		Method:      http.MethodGet,
		Path:        "/api/v1/exams",
		Summary:     "List exams",
		Description: "Returns the caller's exams ordered by date",
		Tags:        []string{"Exams"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListExams)

	huma.Register(s.api, huma.Operation{
		OperationID: "nextExam",
		Method:      http.MethodGet,
		Path:        "/api/v1/exams/next",
		Summary:     "Next exam",
		Description: "Returns the earliest exam dated today or later with the days left",
		Tags:        []string{"Exams"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleNextExam)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createExam",
		Method:        http.MethodPost,
		Path:          "/api/v1/exams",
		Summary:       "Create exam",
		Tags:          []string{"Exams"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateExam)

	huma.Register(s.api, huma.Operation{
		OperationID: "getExam",
		Method:      http.MethodGet,
		Path:        "/api/v1/exams/{examId}",
		Summary:     "Get exam",
		Tags:        []string{"Exams"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetExam)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateExam",
		Method:      http.MethodPatch,
		Path:        "/api/v1/exams/{examId}",
		Summary:     "Update exam",
		Tags:        []string{"Exams"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateExam)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteExam",
		Method:      http.MethodDelete,
		Path:        "/api/v1/exams/{examId}",
		Summary:     "Delete exam",
		Tags:        []string{"Exams"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteExam)
}

// CreateExamRequest is the request body for creating an exam.
type CreateExamRequest struct {
	Title       string `json:"title" doc:"Exam title"`
	ExamDate    string `json:"exam_date" doc:"Exam date, YYYY-MM-DD"`
	Description string `json:"description,omitempty" doc:"Free-form description"`
}

// CreateExamInput wraps the create exam request for Huma.
type CreateExamInput struct {
	Body CreateExamRequest
}

// ExamPathInput identifies an exam.
type ExamPathInput struct {
	ExamID string `path:"examId" doc:"Exam ID"`
}

// UpdateExamInput wraps the update exam request for Huma.
type UpdateExamInput struct {
	ExamID string `path:"examId" doc:"Exam ID"`
	Body   service.UpdateExamRequest
}

// ListExamsResponse contains the caller's exams.
type ListExamsResponse struct {
	Exams []*domain.Exam `json:"exams" doc:"Exams ordered by date"`
}

// ListExamsOutput wraps the list exams response for Huma.
type ListExamsOutput struct {
	Body ListExamsResponse
}

// ExamOutput wraps a single exam for Huma.
type ExamOutput struct {
	Body *domain.Exam
}

// NextExamOutput wraps the upcoming exam for Huma.
type NextExamOutput struct {
	Body *service.UpcomingExam
}

func (s *Server) handleListExams(ctx context.Context, _ *struct{}) (*ListExamsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	exams, err := s.services.Exams.ListExams(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ListExamsOutput{Body: ListExamsResponse{Exams: exams}}, nil
}

func (s *Server) handleNextExam(ctx context.Context, _ *struct{}) (*NextExamOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	next, err := s.services.Exams.NextExam(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NextExamOutput{Body: next}, nil
}

func (s *Server) handleCreateExam(ctx context.Context, input *CreateExamInput) (*ExamOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	exam, err := s.services.Exams.CreateExam(ctx, userID, service.CreateExamRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		ExamDate:    input.Body.ExamDate,
	})
	if err != nil {
		return nil, err
	}
	return &ExamOutput{Body: exam}, nil
}

func (s *Server) handleGetExam(ctx context.Context, input *ExamPathInput) (*ExamOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	exam, err := s.services.Exams.GetExam(ctx, userID, input.ExamID)
	if err != nil {
		return nil, err
	}
	return &ExamOutput{Body: exam}, nil
}

func (s *Server) handleUpdateExam(ctx context.Context, input *UpdateExamInput) (*ExamOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	exam, err := s.services.Exams.UpdateExam(ctx, userID, input.ExamID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ExamOutput{Body: exam}, nil
}

func (s *Server) handleDeleteExam(ctx context.Context, input *ExamPathInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Exams.DeleteExam(ctx, userID, input.ExamID); err != nil {
		return nil, err
	}
	return nil, nil
}
