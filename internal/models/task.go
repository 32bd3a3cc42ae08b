package models

import "time"

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusArchived   = "Archived"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 3
)

type Task struct {
	ID            int64
	UserID        int64
	AssigneeID    *int64
	Name          string
	Description   string
	Category      string
	Priority      string
	Difficulty    int
	Status        string
	EstimatedTime float64
	ActualTime    float64
	EndDate       *time.Time
	CreatedAt     time.Time
	CompletedAt   *time.Time
	ArchivedAt    *time.Time
	UpdatedAt     time.Time
}

type TaskStats struct {
	Total                int64
	Completed            int64
	Pending              int64
	InProgress           int64
	Archived             int64
	PriorityDistribution []PriorityDifficulty
}

type PriorityDifficulty struct {
	Priority      string
	AvgDifficulty float64
}
