package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/models"
)

func TestSendRequest_Validation(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)

	for _, to := range []int64{0, -1, regularUser.UserID} {
		_, err := svc.SendRequest(context.Background(), regularUser, to)

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("to=%d: expected *ValidationError, got %v", to, err)
		}
	}
	expectationsMet(t, mock)
}

func TestSendRequest_UnknownUser(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(8)).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.SendRequest(context.Background(), regularUser, 8)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestSendRequest_ExistingFriendshipInEitherDirection(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(8)).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO friendships`).
		WithArgs(regularUser.UserID, int64(8), models.FriendshipPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.SendRequest(context.Background(), regularUser, 8)
	if !errors.Is(err, ErrFriendshipExists) {
		t.Fatalf("expected ErrFriendshipExists, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestSendRequest_CreatesPendingRequest(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(8)).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO friendships`).
		WithArgs(regularUser.UserID, int64(8), models.FriendshipPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(11)))

	friendship, err := svc.SendRequest(context.Background(), regularUser, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if friendship.ID != 11 || friendship.Status != models.FriendshipPending || friendship.FriendID != 8 {
		t.Fatalf("unexpected friendship: %+v", friendship)
	}
	expectationsMet(t, mock)
}

func TestSendRequest_ConcurrentReverseRequest(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(8)).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO friendships`).
		WithArgs(regularUser.UserID, int64(8), models.FriendshipPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "friendships_pair_idx"})

	_, err := svc.SendRequest(context.Background(), regularUser, 8)
	if !errors.Is(err, ErrFriendshipExists) {
		t.Fatalf("expected ErrFriendshipExists, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestAccept_OnlyRecipientCanAnswer(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)

	// The requester tries to accept their own request.
	mock.ExpectQuery(`UPDATE friendships`).
		WithArgs(models.FriendshipAccepted, pgxmock.AnyArg(), int64(11), regularUser.UserID, models.FriendshipPending).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Accept(context.Background(), regularUser, 11)
	if !errors.Is(err, ErrFriendRequestNotFound) {
		t.Fatalf("expected ErrFriendRequestNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestReject(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)
	createdAt := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE friendships`).
		WithArgs(models.FriendshipRejected, pgxmock.AnyArg(), int64(11), regularUser.UserID, models.FriendshipPending).
		WillReturnRows(mock.NewRows([]string{"user_id", "created_at"}).AddRow(int64(8), createdAt))

	friendship, err := svc.Reject(context.Background(), regularUser, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if friendship.UserID != 8 || friendship.Status != models.FriendshipRejected {
		t.Fatalf("unexpected friendship: %+v", friendship)
	}
	expectationsMet(t, mock)
}

func TestSearch_EscapesWildcards(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)
	now := time.Now()

	mock.ExpectQuery(`ILIKE`).
		WithArgs(regularUser.UserID, `%50\%%`, searchLimit).
		WillReturnRows(mock.NewRows([]string{"id", "name", "email", "role", "capacity", "created_at", "updated_at"}).
			AddRow(int64(8), "Luis 50%", "luis@example.com", models.RoleUser, (*float64)(nil), now, now))

	users, err := svc.Search(context.Background(), regularUser, " 50% ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].ID != 8 {
		t.Fatalf("unexpected users: %+v", users)
	}
	expectationsMet(t, mock)
}

func TestSearch_EmptyQuery(t *testing.T) {
	mock := newMockPool(t)
	svc := NewFriendService(zerolog.Nop(), mock)

	_, err := svc.Search(context.Background(), regularUser, "   ")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	expectationsMet(t, mock)
}
