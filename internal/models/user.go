package models

import "time"

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

type User struct {
	ID        int64
	Name      string
	Email     string
	Password  string
	Role      string
	Capacity  *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Profile struct {
	UserID            int64
	Name              string
	Bio               string
	ProfilePictureURL string
	UpdatedAt         time.Time
}

// UserWorkload is the committed estimated time of a user on a single day.
type UserWorkload struct {
	UserID    int64
	Name      string
	Email     string
	Capacity  float64
	Committed float64
}
