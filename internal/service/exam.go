package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	domainerrors "github.com/studytrackapp/studytrack-server/internal/errors"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

// ExamService manages dated exams.
type ExamService struct {
	base
	search *SearchService
}

// NewExamService creates a new exam service.
func NewExamService(store store.Store, search *SearchService, clock domain.Clock, logger *slog.Logger) *ExamService {
	return &ExamService{
		base:   newBase(store, nil, clock, logger),
		search: search,
	}
}

// CreateExamRequest contains the fields for a new exam.
type CreateExamRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	ExamDate    string `json:"exam_date" validate:"required,date"`
}

// UpdateExamRequest is a partial update.
type UpdateExamRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	ExamDate    *string `json:"exam_date,omitempty" validate:"omitempty,date"`
}

// UpcomingExam is an exam with the whole days left until it.
type UpcomingExam struct {
	*domain.Exam
	DaysLeft int `json:"days_left"`
}

func (s *ExamService) getExam(ctx context.Context, userID, examID string) (*domain.Exam, error) {
	exam, err := s.store.GetExam(ctx, examID)
	return guard(exam, err, userID, kindExam)
}

// ListExams returns the caller's exams ordered by date.
func (s *ExamService) ListExams(ctx context.Context, userID string) ([]*domain.Exam, error) {
	exams, err := s.store.ListExams(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return nonNil(exams), nil
}

// GetExam returns one exam owned by the caller.
func (s *ExamService) GetExam(ctx context.Context, userID, examID string) (*domain.Exam, error) {
	return s.getExam(ctx, userID, examID)
}

// NextExam returns the earliest exam dated today or later.
func (s *ExamService) NextExam(ctx context.Context, userID string) (*UpcomingExam, error) {
	exams, err := s.store.ListExams(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	today := s.now()
	for _, e := range exams {
		if days := e.DaysUntil(today); days >= 0 {
			return &UpcomingExam{Exam: e, DaysLeft: days}, nil
		}
	}
	return nil, domainerrors.NotFound("No upcoming exam.")
}

// CreateExam records a new exam.
func (s *ExamService) CreateExam(ctx context.Context, userID string, req CreateExamRequest) (*domain.Exam, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	date, err := domain.ParseDate(req.ExamDate)
	if err != nil {
		return nil, domainerrors.Validation("exam_date must be a date in YYYY-MM-DD format")
	}

	examID, err := id.Generate(id.PrefixExam)
	if err != nil {
		return nil, fmt.Errorf("generate exam ID: %w", err)
	}

	exam := &domain.Exam{
		Syncable:    domain.Syncable{ID: examID},
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		ExamDate:    date,
	}
	s.stamp(&exam.Syncable)

	if err := s.store.CreateExam(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.search.IndexExam(exam)
	s.logger.Info("Exam created", "exam_id", exam.ID, "date", req.ExamDate)
	return exam, nil
}

// UpdateExam applies a partial update.
func (s *ExamService) UpdateExam(ctx context.Context, userID, examID string, req UpdateExamRequest) (*domain.Exam, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getExam(ctx, userID, examID)
	if err != nil {
		return nil, err
	}

	if req.ExamDate != nil {
		date, err := domain.ParseDate(*req.ExamDate)
		if err != nil {
			return nil, domainerrors.Validation("exam_date must be a date in YYYY-MM-DD format")
		}
		exam.ExamDate = date
	}
	applyString(&exam.Title, req.Title)
	applyString(&exam.Description, req.Description)
	s.touch(&exam.Syncable)

	if err := s.store.UpdateExam(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	s.search.IndexExam(exam)
	return exam, nil
}

// DeleteExam removes an exam.
func (s *ExamService) DeleteExam(ctx context.Context, userID, examID string) error {
	if _, err := s.getExam(ctx, userID, examID); err != nil {
		return err
	}
	if err := s.store.DeleteExam(ctx, examID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.search.Remove(examID)
	s.logger.Info("Exam deleted", "exam_id", examID)
	return nil
}
