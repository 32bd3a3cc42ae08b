package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-planner/internal/models"
	"github.com/adanyl0v/go-planner/internal/services"
)

// flexTime accepts RFC 3339 timestamps as well as plain YYYY-MM-DD dates.
// Values without an offset are read in the server's local time zone and
// every value is converted to it.
type flexTime struct {
	time.Time
}

var flexTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	for _, layout := range flexTimeLayouts {
		parsed, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			t.Time = parsed.In(time.Local)
			return nil
		}
	}
	return fmt.Errorf("invalid time %q", raw)
}

func (t *flexTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

type getTaskResponse struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	AssigneeID    *int64     `json:"assignee_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	Difficulty    int        `json:"difficulty"`
	Status        string     `json:"status"`
	EstimatedTime float64    `json:"estimated_time"`
	ActualTime    float64    `json:"actual_time"`
	EndDate       *time.Time `json:"end_date"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	ArchivedAt    *time.Time `json:"archived_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newGetTaskResponse(task *models.Task) getTaskResponse {
	return getTaskResponse{
		ID:            task.ID,
		UserID:        task.UserID,
		AssigneeID:    task.AssigneeID,
		Name:          task.Name,
		Description:   task.Description,
		Category:      task.Category,
		Priority:      task.Priority,
		Difficulty:    task.Difficulty,
		Status:        task.Status,
		EstimatedTime: task.EstimatedTime,
		ActualTime:    task.ActualTime,
		EndDate:       task.EndDate,
		CreatedAt:     task.CreatedAt,
		CompletedAt:   task.CompletedAt,
		ArchivedAt:    task.ArchivedAt,
		UpdatedAt:     task.UpdatedAt,
	}
}

func newGetTasksResponse(tasks []*models.Task) []getTaskResponse {
	response := make([]getTaskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = newGetTaskResponse(task)
	}
	return response
}

type createTaskRequest struct {
	Name          string    `json:"name" binding:"required,max=255"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Priority      string    `json:"priority" binding:"required"`
	Difficulty    int       `json:"difficulty" binding:"required"`
	Status        string    `json:"status"`
	EstimatedTime float64   `json:"estimated_time"`
	ActualTime    float64   `json:"actual_time"`
	AssigneeID    *int64    `json:"assignee_id"`
	EndDate       *flexTime `json:"end_date"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.CreateTask(c, actor, services.CreateTaskParams{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      req.Priority,
		Difficulty:    req.Difficulty,
		Status:        req.Status,
		EstimatedTime: req.EstimatedTime,
		ActualTime:    req.ActualTime,
		AssigneeID:    req.AssigneeID,
		EndDate:       req.EndDate.ptr(),
	})
	if err != nil {
		h.fail(c, err, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, newGetTaskResponse(task))
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListTasks(c, actor)
	if err != nil {
		h.fail(c, err, "failed to get tasks")
		return
	}

	c.JSON(http.StatusOK, newGetTasksResponse(tasks))
}

func (h *handlerImpl) HandleGetArchivedTasks(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListArchivedTasks(c, actor)
	if err != nil {
		h.fail(c, err, "failed to get archived tasks")
		return
	}

	c.JSON(http.StatusOK, newGetTasksResponse(tasks))
}

type periodResponse struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type getTasksInPeriodResponse struct {
	Period periodResponse    `json:"period"`
	Tasks  []getTaskResponse `json:"tasks"`
}

func (h *handlerImpl) HandleGetTasksInPeriod(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	tasks, period, err := h.tasks.ListTasksInPeriod(c, actor, services.PeriodQuery{
		Period: c.Query("period"),
		Start:  c.Query("start"),
		End:    c.Query("end"),
		Field:  c.Query("field"),
	})
	if err != nil {
		h.fail(c, err, "failed to get tasks in period")
		return
	}

	c.JSON(http.StatusOK, getTasksInPeriodResponse{
		Period: periodResponse{
			Name:  period.Name,
			Start: period.Start,
			End:   period.End,
		},
		Tasks: newGetTasksResponse(tasks),
	})
}

type priorityDistributionResponse struct {
	Priority      string  `json:"priority"`
	AvgDifficulty float64 `json:"avg_difficulty"`
}

type getTaskStatsResponse struct {
	TotalTasks           int64                          `json:"totalTasks"`
	Completed            int64                          `json:"completed"`
	Pending              int64                          `json:"pending"`
	InProgress           int64                          `json:"inProgress"`
	Archived             int64                          `json:"archived"`
	PriorityDistribution []priorityDistributionResponse `json:"priorityDistribution"`
}

func (h *handlerImpl) HandleGetTaskStats(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	stats, err := h.tasks.Stats(c, actor)
	if err != nil {
		h.fail(c, err, "failed to get task stats")
		return
	}

	distribution := make([]priorityDistributionResponse, len(stats.PriorityDistribution))
	for i, pd := range stats.PriorityDistribution {
		distribution[i] = priorityDistributionResponse{
			Priority:      pd.Priority,
			AvgDifficulty: pd.AvgDifficulty,
		}
	}
	c.JSON(http.StatusOK, getTaskStatsResponse{
		TotalTasks:           stats.Total,
		Completed:            stats.Completed,
		Pending:              stats.Pending,
		InProgress:           stats.InProgress,
		Archived:             stats.Archived,
		PriorityDistribution: distribution,
	})
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}
	taskID, ok := h.mustGetIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c, actor, taskID)
	if err != nil {
		h.fail(c, err, "failed to get task")
		return
	}

	c.JSON(http.StatusOK, newGetTaskResponse(task))
}

type updateTaskRequest struct {
	Name          *string   `json:"name,omitempty" binding:"omitempty,max=255"`
	Description   *string   `json:"description,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Priority      *string   `json:"priority,omitempty"`
	Difficulty    *int      `json:"difficulty,omitempty"`
	Status        *string   `json:"status,omitempty"`
	EstimatedTime *float64  `json:"estimated_time,omitempty"`
	ActualTime    *float64  `json:"actual_time,omitempty"`
	AssigneeID    *int64    `json:"assignee_id,omitempty"`
	EndDate       *flexTime `json:"end_date,omitempty"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}
	taskID, ok := h.mustGetIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.UpdateTask(c, actor, services.UpdateTaskParams{
		ID:            taskID,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      req.Priority,
		Difficulty:    req.Difficulty,
		Status:        req.Status,
		EstimatedTime: req.EstimatedTime,
		ActualTime:    req.ActualTime,
		AssigneeID:    req.AssigneeID,
		EndDate:       req.EndDate.ptr(),
	})
	if err != nil {
		h.fail(c, err, "failed to update task")
		return
	}

	c.JSON(http.StatusOK, newGetTaskResponse(task))
}

type taskTransition func(ctx context.Context, actor services.Actor, id int64) (*models.Task, error)

func (h *handlerImpl) handleTransition(c *gin.Context, transition taskTransition, name string) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}
	taskID, ok := h.mustGetIDParam(c)
	if !ok {
		return
	}

	task, err := transition(c, actor, taskID)
	if err != nil {
		h.fail(c, err, "failed to "+name+" task")
		return
	}

	c.JSON(http.StatusOK, newGetTaskResponse(task))
}

func (h *handlerImpl) HandleStartTask(c *gin.Context) {
	h.handleTransition(c, h.tasks.StartTask, "start")
}

func (h *handlerImpl) HandleCompleteTask(c *gin.Context) {
	h.handleTransition(c, h.tasks.CompleteTask, "complete")
}

func (h *handlerImpl) HandleArchiveTask(c *gin.Context) {
	h.handleTransition(c, h.tasks.ArchiveTask, "archive")
}

func (h *handlerImpl) HandleUnarchiveTask(c *gin.Context) {
	h.handleTransition(c, h.tasks.UnarchiveTask, "unarchive")
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}
	taskID, ok := h.mustGetIDParam(c)
	if !ok {
		return
	}

	err := h.tasks.DeleteTask(c, actor, taskID)
	if err != nil {
		h.fail(c, err, "failed to delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

type checkWorkloadRequest struct {
	AssigneeID    *int64    `json:"assignee_id"`
	EstimatedTime float64   `json:"estimated_time"`
	EndDate       *flexTime `json:"end_date"`
}

type workloadResponse struct {
	Capacity  float64 `json:"capacity"`
	Committed float64 `json:"committed"`
	Total     float64 `json:"total"`
}

func (h *handlerImpl) HandleCheckWorkload(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	var req checkWorkloadRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	params := services.WorkloadParams{
		AssigneeID:    actor.UserID,
		EstimatedTime: req.EstimatedTime,
	}
	if req.AssigneeID != nil {
		params.AssigneeID = *req.AssigneeID
	}
	if req.EndDate != nil {
		params.EndDate = req.EndDate.Time
	}

	result, err := h.tasks.CheckWorkload(c, actor, params)
	if err != nil {
		h.fail(c, err, "failed to check workload")
		return
	}

	c.JSON(http.StatusOK, workloadResponse{
		Capacity:  result.Capacity,
		Committed: result.Committed,
		Total:     result.Total,
	})
}
