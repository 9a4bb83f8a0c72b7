package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/questfuel/api/models"
)

// Task list filters.
const (
	TaskStatusAll       = ""
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// TaskService runs the task lifecycle: Pending -> Completed, with the XP award on completion.
// There is no transition back to Pending.
type TaskService struct {
	db     *gorm.DB
	ledger *XPLedger
}

func NewTaskService(db *gorm.DB, ledger *XPLedger) *TaskService {
	return &TaskService{db: db, ledger: ledger}
}

// TaskInput creates a task.
type TaskInput struct {
	Title    string
	XPWeight int64
	Due      *time.Time
}

// TaskUpdate changes a pending task. Nil fields are left alone; ClearDue removes the due date.
type TaskUpdate struct {
	Title    *string
	XPWeight *int64
	Due      *time.Time
	ClearDue bool
}

// TaskCompletion is the outcome of completing a task.
type TaskCompletion struct {
	Task      *models.Task  `json:"task"`
	Award     *models.XPLog `json:"award"`
	Level     LevelInfo     `json:"level"`
	LeveledUp bool          `json:"leveled_up"`
}

func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*models.Task, error) {
	title := cleanText(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.XPWeight <= 0 {
		return nil, fmt.Errorf("%w: xp weight must be positive", ErrInvalidInput)
	}
	task := &models.Task{
		UserID:   userID,
		Title:    title,
		XPWeight: in.XPWeight,
		Due:      utcPtr(in.Due),
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, userID, status string) ([]models.Task, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	switch status {
	case TaskStatusAll:
	case TaskStatusPending:
		q = q.Where("completed = ?", false)
	case TaskStatusCompleted:
		q = q.Where("completed = ?", true)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	var tasks []models.Task
	if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*models.Task, error) {
	return loadOwnedTask(s.db.WithContext(ctx), userID, taskID)
}

// Update edits a pending task. Completed tasks are frozen so awarded XP never changes.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, in TaskUpdate) (*models.Task, error) {
	var task *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = loadOwnedTask(tx, userID, taskID)
		if err != nil {
			return err
		}
		if task.Completed {
			return fmt.Errorf("%w: completed tasks cannot be edited", ErrAlreadyCompleted)
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			title := cleanText(*in.Title)
			if title == "" {
				return fmt.Errorf("%w: title is required", ErrInvalidInput)
			}
			updates["title"] = title
		}
		if in.XPWeight != nil {
			if *in.XPWeight <= 0 {
				return fmt.Errorf("%w: xp weight must be positive", ErrInvalidInput)
			}
			updates["xp_weight"] = *in.XPWeight
		}
		if in.ClearDue {
			updates["due"] = nil
		} else if in.Due != nil {
			updates["due"] = utcPtr(in.Due)
		}
		if len(updates) == 0 {
			return nil
		}

		// guard on completed=false so a concurrent completion wins
		res := tx.Model(&models.Task{}).Where("id = ? AND completed = ?", task.ID, false).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: completed tasks cannot be edited", ErrAlreadyCompleted)
		}
		task, err = loadOwnedTask(tx, userID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Complete moves a pending task to completed and awards its XP weight, at most once.
func (s *TaskService) Complete(ctx context.Context, userID, taskID string) (*TaskCompletion, error) {
	var out TaskCompletion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := loadOwnedTask(tx, userID, taskID)
		if err != nil {
			return err
		}
		if task.Completed {
			return fmt.Errorf("%w: task %s", ErrAlreadyCompleted, task.ID)
		}

		var before models.User
		if err := tx.Select("id", "xp").First(&before, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %s", ErrNotFound, userID)
			}
			return err
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Task{}).
			Where("id = ? AND completed = ?", task.ID, false).
			Updates(map[string]interface{}{
				"completed":    true,
				"completed_at": now,
				"awarded_xp":   task.XPWeight,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// another request completed it between our read and write
			return fmt.Errorf("%w: task %s", ErrAlreadyCompleted, task.ID)
		}

		award, err := awardTx(tx, userID, task.XPWeight, models.XPReasonTaskComplete, task.ID)
		if err != nil {
			return err
		}

		task.Completed = true
		task.CompletedAt = &now
		task.AwardedXP = task.XPWeight

		after := CalcLevel(before.XP + task.XPWeight)
		out = TaskCompletion{
			Task:      task,
			Award:     award,
			Level:     after,
			LeveledUp: after.Level > CalcLevel(before.XP).Level,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ledger.invalidate(ctx, userID)
	return &out, nil
}

// Delete removes a task in any state. Awarded XP stays in the ledger.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := loadOwnedTask(tx, userID, taskID)
		if err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, "id = ?", task.ID).Error
	})
}

// loadOwnedTask returns ErrNotFound for a missing task and ErrForbidden for someone else's.
func loadOwnedTask(db *gorm.DB, userID, taskID string) (*models.Task, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		return nil, err
	}
	if task.UserID != userID {
		return nil, fmt.Errorf("%w: task %s", ErrForbidden, taskID)
	}
	return &task, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
