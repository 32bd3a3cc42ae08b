package services

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/adanyl0v/go-planner/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

// setLocalZone swaps the process time zone for the duration of the test.
func setLocalZone(t *testing.T, loc *time.Location) {
	t.Helper()

	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })
}

func expectationsMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()

	err := mock.ExpectationsWereMet()
	if err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var taskColumnNames = []string{
	"id", "user_id", "assignee_id", "name", "description", "category",
	"priority", "difficulty", "status", "estimated_time", "actual_time",
	"end_date", "created_at", "completed_at", "archived_at", "updated_at",
}

func taskRows(mock pgxmock.PgxPoolIface, tasks ...*models.Task) *pgxmock.Rows {
	rows := mock.NewRows(taskColumnNames)
	for _, task := range tasks {
		rows.AddRow(
			task.ID,
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
			task.ArchivedAt,
			task.UpdatedAt,
		)
	}
	return rows
}

func sampleTask(id, userID int64, status string) *models.Task {
	now := time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)
	return &models.Task{
		ID:          id,
		UserID:      userID,
		AssigneeID:  ptr(userID),
		Name:        "Write report",
		Description: "Quarterly numbers",
		Category:    "Work",
		Priority:    models.PriorityMedium,
		Difficulty:  2,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
