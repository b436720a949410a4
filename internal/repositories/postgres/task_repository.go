package postgres

import (
	"pairplan-service/internal/models"

	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db}
}

func (r *TaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

func (r *TaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

func (r *TaskRepository) GetByID(taskID uint) (*models.Task, error) {
	var t models.Task
	err := r.db.First(&t, taskID).Error
	return &t, err
}

// GetForUsers returns tasks created by any of the given users, open first
func (r *TaskRepository) GetForUsers(userIDs []uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("created_by IN ?", userIDs).
		Order("completed ASC, due_date ASC NULLS LAST, created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) Delete(taskID uint) error {
	result := r.db.Delete(&models.Task{}, taskID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
