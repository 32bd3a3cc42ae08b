package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/models"
)

func TestCheckCapacity(t *testing.T) {
	tests := []struct {
		name      string
		capacity  float64
		committed float64
		requested float64
		wantTotal float64
		wantOver  bool
	}{
		{"under capacity", 8, 2, 3, 5, false},
		{"exactly at capacity", 8, 5, 3, 8, false},
		{"over capacity", 8, 5, 4, 9, true},
		{"zero request on a full day", 8, 8, 0, 8, false},
		{"custom capacity", 4, 0, 4.5, 4.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CheckCapacity(tt.capacity, tt.committed, tt.requested)
			if result == nil {
				t.Fatalf("expected a result")
			}
			if result.Total != tt.wantTotal {
				t.Fatalf("total: got %v, want %v", result.Total, tt.wantTotal)
			}

			var overErr *OverCapacityError
			if tt.wantOver {
				if !errors.As(err, &overErr) {
					t.Fatalf("expected *OverCapacityError, got %v", err)
				}
				if overErr.Capacity != tt.capacity || overErr.Total != tt.wantTotal {
					t.Fatalf("unexpected error values: %+v", overErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWorkloadValidator_UsesDefaultCapacity(t *testing.T) {
	mock := newMockPool(t)
	v := &workloadValidator{logger: zerolog.Nop(), defaultCapacity: 8}
	endDate := time.Date(2025, time.June, 1, 18, 0, 0, 0, time.UTC)
	dayStart, dayEnd := DayBounds(endDate)

	mock.ExpectQuery(`SELECT capacity`).
		WithArgs(int64(7)).
		WillReturnRows(mock.NewRows([]string{"capacity"}).AddRow((*float64)(nil)))
	mock.ExpectQuery(`SUM\(estimated_time\)`).
		WithArgs(int64(7), dayStart, dayEnd, int64(0)).
		WillReturnRows(mock.NewRows([]string{"sum"}).AddRow(5.0))

	result, err := v.validate(context.Background(), mock, 7, 4, endDate, 0, false)

	var overErr *OverCapacityError
	if !errors.As(err, &overErr) {
		t.Fatalf("expected *OverCapacityError, got %v", err)
	}
	if result.Capacity != 8 || result.Committed != 5 || result.Total != 9 {
		t.Fatalf("unexpected result: %+v", result)
	}
	expectationsMet(t, mock)
}

func TestWorkloadValidator_SumsServerDay(t *testing.T) {
	loc := time.FixedZone("UTC-4", -4*60*60)
	setLocalZone(t, loc)
	mock := newMockPool(t)
	v := &workloadValidator{logger: zerolog.Nop(), defaultCapacity: 8}
	endDate := time.Date(2025, time.June, 1, 2, 0, 0, 0, time.UTC)
	dayStart := time.Date(2025, time.May, 31, 0, 0, 0, 0, loc)
	dayEnd := time.Date(2025, time.May, 31, 23, 59, 59, int(999*time.Millisecond), loc)

	mock.ExpectQuery(`SELECT capacity`).
		WithArgs(int64(7)).
		WillReturnRows(mock.NewRows([]string{"capacity"}).AddRow((*float64)(nil)))
	mock.ExpectQuery(`SUM\(estimated_time\)`).
		WithArgs(int64(7), dayStart, dayEnd, int64(0)).
		WillReturnRows(mock.NewRows([]string{"sum"}).AddRow(4.0))

	result, err := v.validate(context.Background(), mock, 7, 4, endDate, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 8 {
		t.Fatalf("total: got %v, want 8", result.Total)
	}
	expectationsMet(t, mock)
}

func TestWorkloadValidator_UsesUserCapacity(t *testing.T) {
	mock := newMockPool(t)
	v := &workloadValidator{logger: zerolog.Nop(), defaultCapacity: 8}
	endDate := time.Date(2024, time.May, 15, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT capacity`).
		WithArgs(int64(7)).
		WillReturnRows(mock.NewRows([]string{"capacity"}).AddRow(ptr(10.0)))
	mock.ExpectQuery(`SUM\(estimated_time\)`).
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(0)).
		WillReturnRows(mock.NewRows([]string{"sum"}).AddRow(5.0))

	result, err := v.validate(context.Background(), mock, 7, 4, endDate, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Capacity != 10 || result.Total != 9 {
		t.Fatalf("unexpected result: %+v", result)
	}
	expectationsMet(t, mock)
}

func TestWorkloadValidator_UnknownAssignee(t *testing.T) {
	mock := newMockPool(t)
	v := &workloadValidator{logger: zerolog.Nop(), defaultCapacity: 8}

	mock.ExpectQuery(`SELECT capacity`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := v.validate(context.Background(), mock, 42, 1, time.Now(), 0, false)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Violations[0].Field != "assignee_id" {
		t.Fatalf("expected violation on assignee_id, got %q", verr.Violations[0].Field)
	}
	expectationsMet(t, mock)
}

func TestCheckWorkload_UserCannotPreviewOthers(t *testing.T) {
	mock := newMockPool(t)
	svc := NewTaskService(zerolog.Nop(), mock, 8)

	_, err := svc.CheckWorkload(context.Background(), Actor{UserID: 7, Role: models.RoleUser}, WorkloadParams{
		AssigneeID:    8,
		EstimatedTime: 1,
		EndDate:       time.Now(),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCheckWorkload_AdminPreviewsOthers(t *testing.T) {
	mock := newMockPool(t)
	svc := NewTaskService(zerolog.Nop(), mock, 8)

	mock.ExpectQuery(`SELECT capacity`).
		WithArgs(int64(8)).
		WillReturnRows(mock.NewRows([]string{"capacity"}).AddRow((*float64)(nil)))
	mock.ExpectQuery(`SUM\(estimated_time\)`).
		WithArgs(int64(8), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(0)).
		WillReturnRows(mock.NewRows([]string{"sum"}).AddRow(2.0))

	result, err := svc.CheckWorkload(context.Background(), Actor{UserID: 1, Role: models.RoleAdmin}, WorkloadParams{
		AssigneeID:    8,
		EstimatedTime: 6,
		EndDate:       time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 8 {
		t.Fatalf("total: got %v, want 8", result.Total)
	}
	expectationsMet(t, mock)
}

func TestWorkload_ListsEveryUser(t *testing.T) {
	mock := newMockPool(t)
	svc := NewTaskService(zerolog.Nop(), mock, 8)
	day := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	dayStart, dayEnd := DayBounds(day)

	mock.ExpectQuery(`LEFT JOIN tasks`).
		WithArgs(dayStart, dayEnd, 8.0).
		WillReturnRows(mock.NewRows([]string{"id", "name", "email", "capacity", "committed"}).
			AddRow(int64(1), "Ana", "ana@example.com", 8.0, 6.5).
			AddRow(int64(2), "Luis", "luis@example.com", 4.0, 0.0))

	workloads, err := svc.Workload(context.Background(), day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(workloads) != 2 {
		t.Fatalf("expected 2 workloads, got %d", len(workloads))
	}
	if workloads[0].Committed != 6.5 || workloads[1].Capacity != 4 {
		t.Fatalf("unexpected workloads: %+v, %+v", workloads[0], workloads[1])
	}
	expectationsMet(t, mock)
}
