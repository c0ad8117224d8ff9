package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

const slotColumns = `id, created_at, updated_at, user_id, date, start_time, end_time,
	title, description, tasks, total_tasks, completed_tasks`

func scanSlot(sc scanner) (*domain.DailySlot, error) {
	var (
		x         domain.DailySlot
		createdAt string
		updatedAt string
		tasks     string
	)
	err := sc.Scan(
		&x.ID,
		&createdAt,
		&updatedAt,
		&x.UserID,
		&x.Date,
		&x.StartTime,
		&x.EndTime,
		&x.Title,
		&x.Description,
		&tasks,
		&x.TotalTasks,
		&x.CompletedTasks,
	)
	if err != nil {
		return nil, err
	}
	if err := parseSyncable(&x.Syncable, createdAt, updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tasks), &x.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks of slot %s: %w", x.ID, err)
	}
	return &x, nil
}

func encodeTasks(tasks []domain.SlotTask) (string, error) {
	if tasks == nil {
		tasks = []domain.SlotTask{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("marshal tasks: %w", err)
	}
	return string(data), nil
}

// CreateSlot inserts a new daily slot with its embedded tasks.
func (s *Store) CreateSlot(ctx context.Context, x *domain.DailySlot) error {
	tasks, err := encodeTasks(x.Tasks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO daily_slots (`+slotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		x.ID,
		formatTime(x.CreatedAt),
		formatTime(x.UpdatedAt),
		x.UserID,
		x.Date,
		x.StartTime,
		x.EndTime,
		x.Title,
		x.Description,
		tasks,
		x.TotalTasks,
		x.CompletedTasks,
	)
	return mapConstraint(err)
}

// GetSlot retrieves a slot by ID.
func (s *Store) GetSlot(ctx context.Context, id string) (*domain.DailySlot, error) {
	return queryOne(ctx, s.db, scanSlot, store.ErrSlotNotFound,
		`SELECT `+slotColumns+` FROM daily_slots WHERE id = ?`, id)
}

// ListSlots returns a user's slots that pass filter, ordered by date then start time.
func (s *Store) ListSlots(ctx context.Context, userID string, filter store.SlotFilter) ([]*domain.DailySlot, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if filter.Date != "" {
		where = append(where, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.From != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.To)
	}

	return queryAll(ctx, s.db, scanSlot,
		`SELECT `+slotColumns+` FROM daily_slots WHERE `+strings.Join(where, " AND ")+
			` ORDER BY date, start_time, id`, args...)
}

// UpdateSlot replaces a slot together with its embedded tasks.
func (s *Store) UpdateSlot(ctx context.Context, x *domain.DailySlot) error {
	tasks, err := encodeTasks(x.Tasks)
	if err != nil {
		return err
	}
	return s.execAffected(ctx, store.ErrSlotNotFound, `UPDATE daily_slots SET
		updated_at = ?, date = ?, start_time = ?, end_time = ?, title = ?, description = ?,
		tasks = ?, total_tasks = ?, completed_tasks = ?
		WHERE id = ?`,
		formatTime(x.UpdatedAt),
		x.Date,
		x.StartTime,
		x.EndTime,
		x.Title,
		x.Description,
		tasks,
		x.TotalTasks,
		x.CompletedTasks,
		x.ID,
	)
}

// DeleteSlot removes a slot and its tasks.
func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM daily_slots WHERE id = ?`, id)
	return err
}
