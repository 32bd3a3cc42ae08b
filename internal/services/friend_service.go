package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/models"
)

const searchLimit = 20

type friendServiceImpl struct {
	logger zerolog.Logger
	db     DB
}

func NewFriendService(
	logger zerolog.Logger,
	db DB,
) FriendService {
	return &friendServiceImpl{
		logger: logger,
		db:     db,
	}
}

func (s *friendServiceImpl) Search(ctx context.Context, actor Actor, query string) ([]*models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newValidationError("query", "is required")
	}

	const searchUsersQuery = `
SELECT ` + userColumns + `
FROM users
WHERE id <> $1
  AND (name ILIKE $2 OR email ILIKE $2)
ORDER BY name
LIMIT $3
`
	rows, err := s.db.Query(
		ctx,
		searchUsersQuery,
		actor.UserID,
		"%"+escapeLike(query)+"%",
		searchLimit,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to search users")
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan user")
			return nil, err
		}
		users = append(users, user)
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
		Int("count", len(users)).
		Msg("searched users")
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *friendServiceImpl) ListFriends(ctx context.Context, actor Actor) ([]*models.Friend, error) {
	const selectFriendsQuery = `
SELECT f.id,
       u.id,
       u.name,
       u.email,
       f.updated_at
FROM friendships f
         JOIN users u
              ON u.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
WHERE (f.user_id = $1 OR f.friend_id = $1)
  AND f.status = $2
ORDER BY u.name
`
	rows, err := s.db.Query(
		ctx,
		selectFriendsQuery,
		actor.UserID,
		models.FriendshipAccepted,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select friends")
		return nil, err
	}
	defer rows.Close()

	friends := make([]*models.Friend, 0)
	for rows.Next() {
		friend := new(models.Friend)
		err = rows.Scan(
			&friend.FriendshipID,
			&friend.UserID,
			&friend.Name,
			&friend.Email,
			&friend.Since,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan friend")
			return nil, err
		}
		friends = append(friends, friend)
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
		Int("count", len(friends)).
		Msg("selected friends")
	return friends, nil
}

func (s *friendServiceImpl) ListRequests(ctx context.Context, actor Actor) ([]*models.FriendRequest, error) {
	const selectRequestsQuery = `
SELECT f.id,
       u.id,
       u.name,
       u.email,
       f.created_at
FROM friendships f
         JOIN users u ON u.id = f.user_id
WHERE f.friend_id = $1
  AND f.status = $2
ORDER BY f.created_at DESC
`
	rows, err := s.db.Query(
		ctx,
		selectRequestsQuery,
		actor.UserID,
		models.FriendshipPending,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select friend requests")
		return nil, err
	}
	defer rows.Close()

	requests := make([]*models.FriendRequest, 0)
	for rows.Next() {
		req := new(models.FriendRequest)
		err = rows.Scan(
			&req.ID,
			&req.FromID,
			&req.FromName,
			&req.FromEmail,
			&req.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan friend request")
			return nil, err
		}
		requests = append(requests, req)
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
		Int("count", len(requests)).
		Msg("selected friend requests")
	return requests, nil
}

func (s *friendServiceImpl) SendRequest(ctx context.Context, actor Actor, toUserID int64) (*models.Friendship, error) {
	if toUserID <= 0 {
		return nil, newValidationError("to_user_id", "must be a valid user id")
	}
	if toUserID == actor.UserID {
		return nil, newValidationError("to_user_id", "cannot send a friend request to yourself")
	}

	const selectUserExistsQuery = `
SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
`
	var exists bool
	err := s.db.QueryRow(
		ctx,
		selectUserExistsQuery,
		toUserID,
	).Scan(&exists)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("to_user_id", toUserID).
			Msg("failed to check user existence")
		return nil, err
	}
	if !exists {
		s.logger.Error().
			Int64("to_user_id", toUserID).
			Msg("user not found")
		return nil, ErrUserNotFound
	}

	now := time.Now()
	friendship := &models.Friendship{
		UserID:    actor.UserID,
		FriendID:  toUserID,
		Status:    models.FriendshipPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// A row in either direction, whatever its status, blocks the request.
	const insertFriendshipQuery = `
INSERT INTO friendships (user_id,
                         friend_id,
                         status,
                         created_at,
                         updated_at)
SELECT $1, $2, $3, $4, $5
WHERE NOT EXISTS (SELECT 1
                  FROM friendships
                  WHERE (user_id = $1 AND friend_id = $2)
                     OR (user_id = $2 AND friend_id = $1))
RETURNING id
`
	err = s.db.QueryRow(
		ctx,
		insertFriendshipQuery,
		friendship.UserID,
		friendship.FriendID,
		friendship.Status,
		friendship.CreatedAt,
		friendship.UpdatedAt,
	).Scan(&friendship.ID)
	if err != nil {
		// A concurrent request in the other direction passes the NOT EXISTS
		// check and then trips the pair index.
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) ||
			errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			s.logger.Error().
				Int64("user_id", actor.UserID).
				Int64("to_user_id", toUserID).
				Msg("friendship already exists")
			return nil, ErrFriendshipExists
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert friendship")
		return nil, err
	}

	s.logger.Info().
		Int64("friendship_id", friendship.ID).
		Int64("user_id", actor.UserID).
		Int64("to_user_id", toUserID).
		Msg("sent friend request")
	return friendship, nil
}

func (s *friendServiceImpl) Accept(ctx context.Context, actor Actor, friendshipID int64) (*models.Friendship, error) {
	return s.respond(ctx, actor, friendshipID, models.FriendshipAccepted)
}

func (s *friendServiceImpl) Reject(ctx context.Context, actor Actor, friendshipID int64) (*models.Friendship, error) {
	return s.respond(ctx, actor, friendshipID, models.FriendshipRejected)
}

// respond only matches rows addressed to the actor, so a requester
// answering their own request gets ErrFriendRequestNotFound.
func (s *friendServiceImpl) respond(ctx context.Context, actor Actor, friendshipID int64, status string) (*models.Friendship, error) {
	friendship := &models.Friendship{
		ID:        friendshipID,
		FriendID:  actor.UserID,
		Status:    status,
		UpdatedAt: time.Now(),
	}

	const updateFriendshipQuery = `
UPDATE friendships
SET status = $1,
    updated_at = $2
WHERE id = $3
  AND friend_id = $4
  AND status = $5
RETURNING user_id, created_at
`
	err := s.db.QueryRow(
		ctx,
		updateFriendshipQuery,
		friendship.Status,
		friendship.UpdatedAt,
		friendship.ID,
		friendship.FriendID,
		models.FriendshipPending,
	).Scan(
		&friendship.UserID,
		&friendship.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("friendship_id", friendshipID).
				Int64("user_id", actor.UserID).
				Msg("friend request not found")
			return nil, ErrFriendRequestNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("friendship_id", friendshipID).
			Msg("failed to update friendship")
		return nil, err
	}

	s.logger.Info().
		Int64("friendship_id", friendshipID).
		Str("status", status).
		Msg("answered friend request")
	return friendship, nil
}
