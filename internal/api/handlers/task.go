package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pairplan-service/internal/models"
	"pairplan-service/internal/services"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func taskIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid task ID",
		})
		return 0, false
	}
	return uint(id), true
}

// List godoc
// @Summary List tasks
// @Description List tasks of the current user and their partner, incomplete first
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Task
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	userID := c.GetUint("user_id")

	tasks, err := h.taskService.List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to list tasks",
		})
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// Create godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTaskRequest true "Task data"
// @Success 201 {object} models.Task
// @Failure 400 {object} models.ErrorResponse "Bad request"
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	task, err := h.taskService.Create(userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to create task",
		})
		return
	}

	c.JSON(http.StatusCreated, task)
}

// Update godoc
// @Summary Update a task
// @Description Either partner can update a visible task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body models.UpdateTaskRequest true "Fields to update"
// @Success 200 {object} models.Task
// @Failure 403 {object} models.ErrorResponse "No access to this task"
// @Failure 404 {object} models.ErrorResponse "Task not found"
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID := c.GetUint("user_id")

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid input data",
			Details: err.Error(),
		})
		return
	}

	task, err := h.taskService.Update(userID, taskID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Task not found",
			})
		case errors.Is(err, services.ErrTaskForbidden):
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "No access to this task",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to update task",
			})
		}
		return
	}

	c.JSON(http.StatusOK, task)
}

// Delete godoc
// @Summary Delete a task
// @Description Only the creator can delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse "Only the creator can delete"
// @Failure 404 {object} models.ErrorResponse "Task not found"
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID := c.GetUint("user_id")

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(userID, taskID); err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "Task not found",
			})
		case errors.Is(err, services.ErrTaskForbidden):
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "Only the creator can delete a task",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "Failed to delete task",
			})
		}
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "task deleted"})
}
