package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/models"
)

const taskColumns = `id,
       user_id,
       assignee_id,
       name,
       description,
       category,
       priority,
       difficulty,
       status,
       estimated_time,
       actual_time,
       end_date,
       created_at,
       completed_at,
       archived_at,
       updated_at`

// periodFields lists the columns a period query may filter on.
var periodFields = map[string]string{
	"":             "created_at",
	"created_at":   "created_at",
	"end_date":     "end_date",
	"completed_at": "completed_at",
}

type taskServiceImpl struct {
	logger   zerolog.Logger
	db       DB
	workload *workloadValidator
}

func NewTaskService(
	logger zerolog.Logger,
	db DB,
	defaultCapacity float64,
) TaskService {
	return &taskServiceImpl{
		logger: logger,
		db:     db,
		workload: &workloadValidator{
			logger:          logger,
			defaultCapacity: defaultCapacity,
		},
	}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := new(models.Task)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.AssigneeID,
		&task.Name,
		&task.Description,
		&task.Category,
		&task.Priority,
		&task.Difficulty,
		&task.Status,
		&task.EstimatedTime,
		&task.ActualTime,
		&task.EndDate,
		&task.CreatedAt,
		&task.CompletedAt,
		&task.ArchivedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) collectTasks(rows pgx.Rows) ([]*models.Task, error) {
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err := rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return tasks, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, actor Actor, params CreateTaskParams) (*models.Task, error) {
	err := params.Validate()
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", actor.UserID).
			Msg("invalid task")
		return nil, err
	}

	assigneeID := actor.UserID
	if params.AssigneeID != nil {
		assigneeID = *params.AssigneeID
	}
	if assigneeID != actor.UserID && actor.scopeID() != nil {
		s.logger.Error().
			Int64("user_id", actor.UserID).
			Int64("assignee_id", assigneeID).
			Msg("only admins can assign tasks to other users")
		return nil, ErrForbidden
	}

	now := time.Now()
	task := &models.Task{
		UserID:        actor.UserID,
		AssigneeID:    &assigneeID,
		Name:          params.Name,
		Description:   params.Description,
		Category:      params.Category,
		Priority:      params.Priority,
		Difficulty:    params.Difficulty,
		Status:        params.Status,
		EstimatedTime: params.EstimatedTime,
		ActualTime:    params.ActualTime,
		EndDate:       params.EndDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Status == models.StatusCompleted {
		task.CompletedAt = &now
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The assignee row stays locked until commit, so concurrent inserts
	// for the same assignee see each other's estimates.
	if task.EndDate != nil && task.EstimatedTime > 0 {
		_, err = s.workload.validate(ctx, tx, assigneeID, task.EstimatedTime, *task.EndDate, 0, true)
		if err != nil {
			return nil, err
		}
	}

	const insertTaskQuery = `
INSERT INTO tasks (user_id,
                   assignee_id,
                   name,
                   description,
                   category,
                   priority,
                   difficulty,
                   status,
                   estimated_time,
                   actual_time,
                   end_date,
                   created_at,
                   completed_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + taskColumns
	created, err := scanTask(tx.QueryRow(
		ctx,
		insertTaskQuery,
		task.UserID,
		task.AssigneeID,
		task.Name,
		task.Description,
		task.Category,
		task.Priority,
		task.Difficulty,
		task.Status,
		task.EstimatedTime,
		task.ActualTime,
		task.EndDate,
		task.CreatedAt,
		task.CompletedAt,
		task.UpdatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			s.logger.Error().
				Int64("assignee_id", assigneeID).
				Msg("assignee not found")
			return nil, newValidationError("assignee_id", "user %d does not exist", assigneeID)
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}
	s.logger.Debug().
		Int64("task_id", created.ID).
		Msg("inserted task")

	err = tx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return nil, err
	}

	s.logger.Info().
		Int64("task_id", created.ID).
		Int64("user_id", actor.UserID).
		Msg("created task")
	return created, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, actor Actor, id int64) (*models.Task, error) {
	const selectTaskQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1
  AND ($2::bigint IS NULL OR user_id = $2 OR assignee_id = $2)
`
	task, err := scanTask(s.db.QueryRow(
		ctx,
		selectTaskQuery,
		id,
		actor.scopeID(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("task_id", id).
				Int64("user_id", actor.UserID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to select task")
		return nil, err
	}

	s.logger.Info().
		Int64("task_id", id).
		Msg("task found")
	return task, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, actor Actor) ([]*models.Task, error) {
	const selectTasksQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE status <> $1
  AND ($2::bigint IS NULL OR user_id = $2 OR assignee_id = $2)
ORDER BY created_at DESC
`
	return s.listTasks(ctx, actor, selectTasksQuery, models.StatusArchived, actor.scopeID())
}

func (s *taskServiceImpl) ListArchivedTasks(ctx context.Context, actor Actor) ([]*models.Task, error) {
	const selectArchivedTasksQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE status = $1
  AND ($2::bigint IS NULL OR user_id = $2 OR assignee_id = $2)
ORDER BY archived_at DESC
`
	return s.listTasks(ctx, actor, selectArchivedTasksQuery, models.StatusArchived, actor.scopeID())
}

func (s *taskServiceImpl) ListTasksInPeriod(ctx context.Context, actor Actor, query PeriodQuery) ([]*models.Task, *Period, error) {
	column, ok := periodFields[query.Field]
	if !ok {
		return nil, nil, newValidationError("field", "must be one of created_at, end_date, completed_at")
	}

	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}
	period, err := ResolvePeriod(now, query.Period, query.Start, query.End)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("period", query.Period).
			Msg("failed to resolve period")
		return nil, nil, err
	}
	s.logger.Debug().
		Str("period", period.Name).
		Time("start", period.Start).
		Time("end", period.End).
		Msg("resolved period")

	// column comes from periodFields, never from the request.
	selectTasksInPeriodQuery := `
SELECT ` + taskColumns + `
FROM tasks
WHERE ` + column + ` BETWEEN $1 AND $2
  AND ($3::bigint IS NULL OR user_id = $3 OR assignee_id = $3)
ORDER BY ` + column + `
`
	tasks, err := s.listTasks(ctx, actor, selectTasksInPeriodQuery, period.Start, period.End, actor.scopeID())
	if err != nil {
		return nil, nil, err
	}
	return tasks, &period, nil
}

func (s *taskServiceImpl) listTasks(ctx context.Context, actor Actor, query string, args ...any) ([]*models.Task, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", actor.UserID).
			Msg("failed to select tasks")
		return nil, err
	}

	tasks, err := s.collectTasks(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("count", len(tasks)).
		Int64("user_id", actor.UserID).
		Msg("selected tasks")
	return tasks, nil
}

func (s *taskServiceImpl) StartTask(ctx context.Context, actor Actor, id int64) (*models.Task, error) {
	const startTaskQuery = `
UPDATE tasks
SET status = $1,
    archived_at = NULL,
    updated_at = $2
WHERE id = $3
  AND ($4::bigint IS NULL OR user_id = $4 OR assignee_id = $4)
RETURNING ` + taskColumns
	return s.transition(ctx, actor, id, startTaskQuery, models.StatusInProgress)
}

func (s *taskServiceImpl) CompleteTask(ctx context.Context, actor Actor, id int64) (*models.Task, error) {
	const completeTaskQuery = `
UPDATE tasks
SET status = $1,
    completed_at = $2,
    archived_at = NULL,
    updated_at = $2
WHERE id = $3
  AND ($4::bigint IS NULL OR user_id = $4 OR assignee_id = $4)
RETURNING ` + taskColumns
	return s.transition(ctx, actor, id, completeTaskQuery, models.StatusCompleted)
}

func (s *taskServiceImpl) ArchiveTask(ctx context.Context, actor Actor, id int64) (*models.Task, error) {
	const archiveTaskQuery = `
UPDATE tasks
SET status = $1,
    archived_at = $2,
    updated_at = $2
WHERE id = $3
  AND ($4::bigint IS NULL OR user_id = $4 OR assignee_id = $4)
RETURNING ` + taskColumns
	return s.transition(ctx, actor, id, archiveTaskQuery, models.StatusArchived)
}

func (s *taskServiceImpl) UnarchiveTask(ctx context.Context, actor Actor, id int64) (*models.Task, error) {
	// The status before archiving is not kept, so unarchived tasks
	// always start over as Pending.
	const unarchiveTaskQuery = `
UPDATE tasks
SET status = $1,
    archived_at = NULL,
    updated_at = $2
WHERE id = $3
  AND ($4::bigint IS NULL OR user_id = $4 OR assignee_id = $4)
RETURNING ` + taskColumns
	return s.transition(ctx, actor, id, unarchiveTaskQuery, models.StatusPending)
}

// transition runs a single-row status update. The query takes the new
// status, the current time, the task id and the actor scope, in this order.
func (s *taskServiceImpl) transition(ctx context.Context, actor Actor, id int64, query, status string) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRow(
		ctx,
		query,
		status,
		time.Now(),
		id,
		actor.scopeID(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("task_id", id).
				Int64("user_id", actor.UserID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Str("status", status).
			Msg("failed to update task status")
		return nil, err
	}

	s.logger.Info().
		Int64("task_id", id).
		Int64("user_id", actor.UserID).
		Str("status", status).
		Msg("updated task status")
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, actor Actor, params UpdateTaskParams) (*models.Task, error) {
	err := params.Validate()
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", params.ID).
			Msg("invalid task update")
		return nil, err
	}
	if params.AssigneeID != nil && *params.AssigneeID != actor.UserID && actor.scopeID() != nil {
		s.logger.Error().
			Int64("user_id", actor.UserID).
			Int64("assignee_id", *params.AssigneeID).
			Msg("only admins can assign tasks to other users")
		return nil, ErrForbidden
	}

	// Moving hours onto a day runs the capacity check again, inside a
	// transaction like CreateTask does.
	var q querier = s.db
	var tx pgx.Tx
	if params.AssigneeID != nil || params.EndDate != nil || params.EstimatedTime != nil {
		tx, err = s.db.Begin(ctx)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to begin transaction")
			return nil, err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		err = s.checkUpdatedWorkload(ctx, tx, actor, params)
		if err != nil {
			return nil, err
		}
		q = tx
	}

	// Archived is never a valid status here, so any status change also
	// takes the task out of the archive.
	const updateTaskQuery = `
UPDATE tasks
SET name = COALESCE($1, name),
    description = COALESCE($2, description),
    category = COALESCE($3, category),
    priority = COALESCE($4, priority),
    difficulty = COALESCE($5, difficulty),
    status = COALESCE($6, status),
    estimated_time = COALESCE($7, estimated_time),
    actual_time = COALESCE($8, actual_time),
    assignee_id = COALESCE($9, assignee_id),
    end_date = COALESCE($10, end_date),
    completed_at = CASE WHEN $6::text = 'Completed' THEN $11 ELSE completed_at END,
    archived_at = CASE WHEN $6::text IS NOT NULL THEN NULL ELSE archived_at END,
    updated_at = $11
WHERE id = $12
  AND ($13::bigint IS NULL OR user_id = $13 OR assignee_id = $13)
RETURNING ` + taskColumns
	task, err := scanTask(q.QueryRow(
		ctx,
		updateTaskQuery,
		params.Name,
		params.Description,
		params.Category,
		params.Priority,
		params.Difficulty,
		params.Status,
		params.EstimatedTime,
		params.ActualTime,
		params.AssigneeID,
		params.EndDate,
		time.Now(),
		params.ID,
		actor.scopeID(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("task_id", params.ID).
				Int64("user_id", actor.UserID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", params.ID).
			Msg("failed to update task")
		return nil, err
	}

	if tx != nil {
		err = tx.Commit(ctx)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to commit transaction")
			return nil, err
		}
	}

	s.logger.Info().
		Int64("task_id", task.ID).
		Int64("user_id", actor.UserID).
		Msg("updated task")
	return task, nil
}

// checkUpdatedWorkload locks the task row, merges the update into its
// assignee, estimate and end date, and validates the result. The task's own
// current hours are left out of the committed sum.
func (s *taskServiceImpl) checkUpdatedWorkload(ctx context.Context, tx pgx.Tx, actor Actor, params UpdateTaskParams) error {
	const selectTaskWorkloadQuery = `
SELECT COALESCE(assignee_id, user_id),
       estimated_time,
       end_date
FROM tasks
WHERE id = $1
  AND ($2::bigint IS NULL OR user_id = $2 OR assignee_id = $2)
FOR UPDATE
`
	var (
		assigneeID    int64
		estimatedTime float64
		endDate       *time.Time
	)
	err := tx.QueryRow(
		ctx,
		selectTaskWorkloadQuery,
		params.ID,
		actor.scopeID(),
	).Scan(
		&assigneeID,
		&estimatedTime,
		&endDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("task_id", params.ID).
				Int64("user_id", actor.UserID).
				Msg("task not found")
			return ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", params.ID).
			Msg("failed to select task for update")
		return err
	}

	if params.AssigneeID != nil {
		assigneeID = *params.AssigneeID
	}
	if params.EstimatedTime != nil {
		estimatedTime = *params.EstimatedTime
	}
	if params.EndDate != nil {
		endDate = params.EndDate
	}
	if endDate == nil || estimatedTime <= 0 {
		return nil
	}

	_, err = s.workload.validate(ctx, tx, assigneeID, estimatedTime, *endDate, params.ID, true)
	return err
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, actor Actor, id int64) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
  AND ($2::bigint IS NULL OR user_id = $2 OR assignee_id = $2)
`
	tag, err := s.db.Exec(
		ctx,
		deleteTaskQuery,
		id,
		actor.scopeID(),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		s.logger.Error().
			Int64("task_id", id).
			Int64("user_id", actor.UserID).
			Msg("task not found")
		return ErrTaskNotFound
	}

	s.logger.Info().
		Int64("task_id", id).
		Int64("user_id", actor.UserID).
		Msg("deleted task")
	return nil
}

// Stats counts tasks in the actor's scope. Total includes archived tasks,
// so it can be larger than the sum of the other three status counts.
func (s *taskServiceImpl) Stats(ctx context.Context, actor Actor) (*models.TaskStats, error) {
	scope := actor.scopeID()
	stats := new(models.TaskStats)

	const selectStatusCountsQuery = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = $2),
       COUNT(*) FILTER (WHERE status = $3),
       COUNT(*) FILTER (WHERE status = $4),
       COUNT(*) FILTER (WHERE status = $5)
FROM tasks
WHERE ($1::bigint IS NULL OR user_id = $1 OR assignee_id = $1)
`
	err := s.db.QueryRow(
		ctx,
		selectStatusCountsQuery,
		scope,
		models.StatusCompleted,
		models.StatusPending,
		models.StatusInProgress,
		models.StatusArchived,
	).Scan(
		&stats.Total,
		&stats.Completed,
		&stats.Pending,
		&stats.InProgress,
		&stats.Archived,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select task status counts")
		return nil, err
	}

	const selectPriorityDistributionQuery = `
SELECT priority,
       AVG(difficulty)::float8
FROM tasks
WHERE ($1::bigint IS NULL OR user_id = $1 OR assignee_id = $1)
GROUP BY priority
ORDER BY priority
`
	rows, err := s.db.Query(
		ctx,
		selectPriorityDistributionQuery,
		scope,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select priority distribution")
		return nil, err
	}
	defer rows.Close()

	stats.PriorityDistribution = make([]models.PriorityDifficulty, 0, 3)
	for rows.Next() {
		var pd models.PriorityDifficulty
		err = rows.Scan(&pd.Priority, &pd.AvgDifficulty)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan priority distribution")
			return nil, err
		}
		stats.PriorityDistribution = append(stats.PriorityDistribution, pd)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", actor.UserID).
		Int64("total", stats.Total).
		Msg("computed task stats")
	return stats, nil
}
