package models

import "time"

const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
)

type Friendship struct {
	ID        int64
	UserID    int64
	FriendID  int64
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Friend is a user on the other side of an accepted friendship.
type Friend struct {
	FriendshipID int64
	UserID       int64
	Name         string
	Email        string
	Since        time.Time
}

// FriendRequest is a pending friendship seen from the recipient side.
type FriendRequest struct {
	ID        int64
	FromID    int64
	FromName  string
	FromEmail string
	CreatedAt time.Time
}
