package sqlite

import (
	"context"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

const examColumns = `id, created_at, updated_at, user_id, title, description, exam_date`

func scanExam(sc scanner) (*domain.Exam, error) {
	var (
		e         domain.Exam
		createdAt string
		updatedAt string
		examDate  string
	)
	err := sc.Scan(&e.ID, &createdAt, &updatedAt, &e.UserID, &e.Title, &e.Description, &examDate)
	if err != nil {
		return nil, err
	}
	if err := parseSyncable(&e.Syncable, createdAt, updatedAt); err != nil {
		return nil, err
	}
	if e.ExamDate, err = parseTime(examDate); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExam inserts a new exam.
func (s *Store) CreateExam(ctx context.Context, e *domain.Exam) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO exams (`+examColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.CreatedAt), formatTime(e.UpdatedAt), e.UserID, e.Title, e.Description, formatTime(e.ExamDate))
	return mapConstraint(err)
}

// GetExam retrieves an exam by ID.
func (s *Store) GetExam(ctx context.Context, id string) (*domain.Exam, error) {
	return queryOne(ctx, s.db, scanExam, store.ErrExamNotFound,
		`SELECT `+examColumns+` FROM exams WHERE id = ?`, id)
}

// ListExams returns a user's exams ordered by date.
func (s *Store) ListExams(ctx context.Context, userID string) ([]*domain.Exam, error) {
	return queryAll(ctx, s.db, scanExam,
		`SELECT `+examColumns+` FROM exams WHERE user_id = ? ORDER BY exam_date, id`, userID)
}

// UpdateExam replaces an exam's editable fields.
func (s *Store) UpdateExam(ctx context.Context, e *domain.Exam) error {
	return s.execAffected(ctx, store.ErrExamNotFound,
		`UPDATE exams SET updated_at = ?, title = ?, description = ?, exam_date = ? WHERE id = ?`,
		formatTime(e.UpdatedAt), e.Title, e.Description, formatTime(e.ExamDate), e.ID)
}

// DeleteExam removes an exam.
func (s *Store) DeleteExam(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id)
	return err
}
