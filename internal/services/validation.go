package services

import (
	"fmt"
	"strings"

	"github.com/adanyl0v/go-planner/internal/models"
)

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Violations = append(e.Violations, FieldViolation{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// err returns nil when no violation was recorded.
func (e *ValidationError) err() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

func newValidationError(field, format string, args ...any) *ValidationError {
	verr := new(ValidationError)
	verr.add(field, format, args...)
	return verr
}

// OverCapacityError is returned when a task would push the assignee
// past their daily capacity. Both values are hours.
type OverCapacityError struct {
	Capacity float64
	Total    float64
}

func (e *OverCapacityError) Error() string {
	return fmt.Sprintf("workload of %.2fh exceeds the daily capacity of %.2fh", e.Total, e.Capacity)
}

func isValidPriority(p string) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	default:
		return false
	}
}

func isValidDifficulty(d int) bool {
	return d >= models.MinDifficulty && d <= models.MaxDifficulty
}

// isAssignableStatus reports whether the status can be set directly.
// Archived is only reachable through ArchiveTask.
func isAssignableStatus(s string) bool {
	switch s {
	case models.StatusPending, models.StatusInProgress, models.StatusCompleted:
		return true
	default:
		return false
	}
}

func (p *CreateTaskParams) Validate() error {
	verr := new(ValidationError)
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		verr.add("name", "is required")
	} else if len(p.Name) > 255 {
		verr.add("name", "must be at most 255 characters")
	}
	if !isValidPriority(p.Priority) {
		verr.add("priority", "must be one of %s, %s, %s",
			models.PriorityLow, models.PriorityMedium, models.PriorityHigh)
	}
	if !isValidDifficulty(p.Difficulty) {
		verr.add("difficulty", "must be between %d and %d", models.MinDifficulty, models.MaxDifficulty)
	}
	if p.Status != "" && !isAssignableStatus(p.Status) {
		verr.add("status", "must be one of %s, %s, %s",
			models.StatusPending, models.StatusInProgress, models.StatusCompleted)
	}
	if p.EstimatedTime < 0 {
		verr.add("estimated_time", "must not be negative")
	}
	if p.ActualTime < 0 {
		verr.add("actual_time", "must not be negative")
	}
	if p.AssigneeID != nil && *p.AssigneeID <= 0 {
		verr.add("assignee_id", "must be a valid user id")
	}
	return verr.err()
}

func (p *UpdateTaskParams) Validate() error {
	verr := new(ValidationError)
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		if name == "" {
			verr.add("name", "must not be empty")
		} else if len(name) > 255 {
			verr.add("name", "must be at most 255 characters")
		}
	}
	if p.Priority != nil && !isValidPriority(*p.Priority) {
		verr.add("priority", "must be one of %s, %s, %s",
			models.PriorityLow, models.PriorityMedium, models.PriorityHigh)
	}
	if p.Difficulty != nil && !isValidDifficulty(*p.Difficulty) {
		verr.add("difficulty", "must be between %d and %d", models.MinDifficulty, models.MaxDifficulty)
	}
	if p.Status != nil && !isAssignableStatus(*p.Status) {
		verr.add("status", "must be one of %s, %s, %s; use archive to archive a task",
			models.StatusPending, models.StatusInProgress, models.StatusCompleted)
	}
	if p.EstimatedTime != nil && *p.EstimatedTime < 0 {
		verr.add("estimated_time", "must not be negative")
	}
	if p.ActualTime != nil && *p.ActualTime < 0 {
		verr.add("actual_time", "must not be negative")
	}
	if p.AssigneeID != nil && *p.AssigneeID <= 0 {
		verr.add("assignee_id", "must be a valid user id")
	}
	return verr.err()
}

func (p *WorkloadParams) Validate() error {
	verr := new(ValidationError)
	if p.AssigneeID <= 0 {
		verr.add("assignee_id", "must be a valid user id")
	}
	if p.EstimatedTime < 0 {
		verr.add("estimated_time", "must not be negative")
	}
	if p.EndDate.IsZero() {
		verr.add("end_date", "is required")
	}
	return verr.err()
}

func (p *RegisterParams) Validate() error {
	verr := new(ValidationError)
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Name == "" {
		verr.add("name", "is required")
	}
	if p.Email == "" || !strings.Contains(p.Email, "@") {
		verr.add("email", "must be a valid email address")
	}
	if len(p.Password) < 6 {
		verr.add("password", "must be at least 6 characters")
	}
	return verr.err()
}

func isValidRole(role string) bool {
	switch role {
	case models.RoleUser, models.RoleAdmin, models.RoleSuperadmin:
		return true
	default:
		return false
	}
}
