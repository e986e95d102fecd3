package repository

import (
	"errors"
	"time"

	"mailgreen-backend/internal/analysis/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// taskRepository implements TaskRepository using GORM
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new instance of taskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{
		db: db,
	}
}

func (r *taskRepository) Create(task *domain.AnalysisTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	task.StartedAt = time.Now()
	return r.db.Create(task).Error
}

func (r *taskRepository) FindByID(id string) (*domain.AnalysisTask, error) {
	var task domain.AnalysisTask
	err := r.db.Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) FindLatestByUser(userID string) (*domain.AnalysisTask, error) {
	var task domain.AnalysisTask
	err := r.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) FindLatestCursor(userID string) (string, error) {
	var task domain.AnalysisTask
	err := r.db.Where("user_id = ? AND history_id IS NOT NULL", userID).
		Order("started_at DESC").
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if task.HistoryID == nil {
		return "", nil
	}
	return *task.HistoryID, nil
}

func (r *taskRepository) UpdateProgress(id string, pct int) error {
	return r.db.Model(&domain.AnalysisTask{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress_pct": pct,
			"status":       domain.TaskStatusRunning,
		}).Error
}

func (r *taskRepository) MarkDone(id string, cursor string) error {
	now := time.Now()
	return r.db.Model(&domain.AnalysisTask{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.TaskStatusDone,
			"progress_pct": 100,
			"history_id":   cursor,
			"finished_at":  now,
		}).Error
}

func (r *taskRepository) MarkFailed(id string, errMsg string, entryCursor *string) error {
	now := time.Now()
	return r.db.Model(&domain.AnalysisTask{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      domain.TaskStatusFailed,
			"error_msg":   errMsg,
			"history_id":  entryCursor,
			"finished_at": now,
		}).Error
}
