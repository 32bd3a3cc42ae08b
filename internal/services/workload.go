package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/models"
)

// CheckCapacity returns an *OverCapacityError when committed+requested
// exceeds capacity. Reaching the capacity exactly is allowed.
func CheckCapacity(capacity, committed, requested float64) (*WorkloadResult, error) {
	result := &WorkloadResult{
		Capacity:  capacity,
		Committed: committed,
		Total:     committed + requested,
	}
	if result.Total > capacity {
		return result, &OverCapacityError{
			Capacity: capacity,
			Total:    result.Total,
		}
	}
	return result, nil
}

// querier is satisfied by both DB and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type workloadValidator struct {
	logger          zerolog.Logger
	defaultCapacity float64
}

// validate loads the assignee's capacity and the hours already committed on
// the day of endDate, then checks the new estimate against them. The task
// with id excludeTaskID is left out of the committed hours; pass 0 for a new
// task. With lock set the assignee's user row is locked until the
// surrounding transaction ends.
func (v *workloadValidator) validate(
	ctx context.Context,
	q querier,
	assigneeID int64,
	estimatedTime float64,
	endDate time.Time,
	excludeTaskID int64,
	lock bool,
) (*WorkloadResult, error) {
	selectCapacityQuery := `
SELECT capacity
FROM users
WHERE id = $1
`
	if lock {
		selectCapacityQuery += "FOR UPDATE\n"
	}
	var capacity *float64
	err := q.QueryRow(
		ctx,
		selectCapacityQuery,
		assigneeID,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			v.logger.Error().
				Int64("assignee_id", assigneeID).
				Msg("assignee not found")
			return nil, newValidationError("assignee_id", "user %d does not exist", assigneeID)
		}

		v.logger.Error().
			Err(err).
			Int64("assignee_id", assigneeID).
			Msg("failed to select assignee capacity")
		return nil, err
	}
	limit := v.defaultCapacity
	if capacity != nil {
		limit = *capacity
	}

	dayStart, dayEnd := DayBounds(endDate)
	const selectCommittedQuery = `
SELECT COALESCE(SUM(estimated_time), 0)::float8
FROM tasks
WHERE assignee_id = $1
  AND end_date BETWEEN $2 AND $3
  AND id <> $4
`
	var committed float64
	err = q.QueryRow(
		ctx,
		selectCommittedQuery,
		assigneeID,
		dayStart,
		dayEnd,
		excludeTaskID,
	).Scan(&committed)
	if err != nil {
		v.logger.Error().
			Err(err).
			Int64("assignee_id", assigneeID).
			Msg("failed to select committed hours")
		return nil, err
	}
	v.logger.Debug().
		Int64("assignee_id", assigneeID).
		Float64("capacity", limit).
		Float64("committed", committed).
		Float64("requested", estimatedTime).
		Msg("selected workload")

	result, err := CheckCapacity(limit, committed, estimatedTime)
	if err != nil {
		v.logger.Warn().
			Int64("assignee_id", assigneeID).
			Float64("capacity", result.Capacity).
			Float64("total", result.Total).
			Msg("workload over capacity")
		return result, err
	}
	return result, nil
}

func (s *taskServiceImpl) CheckWorkload(ctx context.Context, actor Actor, params WorkloadParams) (*WorkloadResult, error) {
	err := params.Validate()
	if err != nil {
		return nil, err
	}
	if params.AssigneeID != actor.UserID && actor.scopeID() != nil {
		// Regular users may preview their own workload only.
		return nil, ErrForbidden
	}

	result, err := s.workload.validate(ctx, s.db, params.AssigneeID, params.EstimatedTime, params.EndDate, 0, false)
	if err != nil {
		return result, err
	}

	s.logger.Info().
		Int64("assignee_id", params.AssigneeID).
		Float64("total", result.Total).
		Msg("checked workload")
	return result, nil
}

func (s *taskServiceImpl) Workload(ctx context.Context, day time.Time) ([]*models.UserWorkload, error) {
	dayStart, dayEnd := DayBounds(day)

	const selectWorkloadQuery = `
SELECT u.id,
       u.name,
       u.email,
       COALESCE(u.capacity, $3)::float8,
       COALESCE(SUM(t.estimated_time), 0)::float8
FROM users u
         LEFT JOIN tasks t
                   ON t.assignee_id = u.id
                       AND t.end_date BETWEEN $1 AND $2
GROUP BY u.id
ORDER BY u.id
`
	rows, err := s.db.Query(
		ctx,
		selectWorkloadQuery,
		dayStart,
		dayEnd,
		s.workload.defaultCapacity,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select workload")
		return nil, err
	}
	defer rows.Close()

	workloads := make([]*models.UserWorkload, 0)
	for rows.Next() {
		w := new(models.UserWorkload)
		err = rows.Scan(
			&w.UserID,
			&w.Name,
			&w.Email,
			&w.Capacity,
			&w.Committed,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan workload")
			return nil, err
		}
		workloads = append(workloads, w)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	s.logger.Info().
		Int("count", len(workloads)).
		Time("day", dayStart).
		Msg("selected workload")
	return workloads, nil
}
