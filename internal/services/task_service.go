package services

import (
	"errors"
	"fmt"

	"pairplan-service/internal/models"
	"pairplan-service/internal/repositories/postgres"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskForbidden = errors.New("no access to this task")
)

// TaskService manages the shared to-do list. Tasks are visible and editable by
// both partners; only the creator may delete one.
type TaskService struct {
	tasks    *postgres.TaskRepository
	partners *PartnerService
}

func NewTaskService(tasks *postgres.TaskRepository, partners *PartnerService) *TaskService {
	return &TaskService{
		tasks:    tasks,
		partners: partners,
	}
}

// visibleOwners returns the user ids whose tasks this user can see
func (s *TaskService) visibleOwners(userID uint) []uint {
	owners := []uint{userID}
	if partnerID, err := s.partners.PartnerID(userID); err == nil {
		owners = append(owners, partnerID)
	}
	return owners
}

func (s *TaskService) hasAccess(userID uint, task *models.Task) bool {
	for _, id := range s.visibleOwners(userID) {
		if task.CreatedBy == id {
			return true
		}
	}
	return false
}

func (s *TaskService) List(userID uint) ([]models.Task, error) {
	tasks, err := s.tasks.GetForUsers(s.visibleOwners(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Create(userID uint, req *models.CreateTaskRequest) (*models.Task, error) {
	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		CreatedBy:   userID,
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Update(userID, taskID uint, req *models.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.tasks.GetByID(taskID)
	if err != nil {
		return nil, ErrTaskNotFound
	}
	if !s.hasAccess(userID, task) {
		return nil, ErrTaskForbidden
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	if err := s.tasks.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Delete(userID, taskID uint) error {
	task, err := s.tasks.GetByID(taskID)
	if err != nil {
		return ErrTaskNotFound
	}
	if task.CreatedBy != userID {
		return ErrTaskForbidden
	}
	return s.tasks.Delete(taskID)
}
