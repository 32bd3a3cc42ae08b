package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/models"
)

const userColumns = `id,
       name,
       email,
       role,
       capacity,
       created_at,
       updated_at`

type userServiceImpl struct {
	logger zerolog.Logger
	db     DB
}

func NewUserService(
	logger zerolog.Logger,
	db DB,
) UserService {
	return &userServiceImpl{
		logger: logger,
		db:     db,
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := new(models.User)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Capacity,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	profile := &models.Profile{
		UserID: userID,
	}

	const selectProfileQuery = `
SELECT name,
       bio,
       profile_picture_url,
       updated_at
FROM profiles
WHERE user_id = $1
`
	err := s.db.QueryRow(
		ctx,
		selectProfileQuery,
		profile.UserID,
	).Scan(
		&profile.Name,
		&profile.Bio,
		&profile.ProfilePictureURL,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("user_id", userID).
				Msg("profile not found")
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Msg("failed to select profile")
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", userID).
		Msg("profile found")
	return profile, nil
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, params UpdateProfileParams) (*models.Profile, error) {
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, newValidationError("name", "must not be empty")
		}
		params.Name = &name
	}

	profile := &models.Profile{
		UserID:    params.UserID,
		UpdatedAt: time.Now(),
	}

	const upsertProfileQuery = `
INSERT INTO profiles (user_id,
                      name,
                      bio,
                      profile_picture_url,
                      updated_at)
VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, ''), $5)
ON CONFLICT (user_id) DO UPDATE
    SET name = COALESCE($2, profiles.name),
        bio = COALESCE($3, profiles.bio),
        profile_picture_url = COALESCE($4, profiles.profile_picture_url),
        updated_at = $5
RETURNING name, bio, profile_picture_url
`
	err := s.db.QueryRow(
		ctx,
		upsertProfileQuery,
		profile.UserID,
		params.Name,
		params.Bio,
		params.ProfilePictureURL,
		profile.UpdatedAt,
	).Scan(
		&profile.Name,
		&profile.Bio,
		&profile.ProfilePictureURL,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", profile.UserID).
			Msg("failed to upsert profile")
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", profile.UserID).
		Msg("updated profile")
	return profile, nil
}

func (s *userServiceImpl) ListUsers(ctx context.Context) ([]*models.User, error) {
	const selectUsersQuery = `
SELECT ` + userColumns + `
FROM users
ORDER BY id
`
	rows, err := s.db.Query(ctx, selectUsersQuery)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select users")
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
		Int("count", len(users)).
		Msg("selected users")
	return users, nil
}

func (s *userServiceImpl) SetRole(ctx context.Context, actor Actor, userID int64, role string) (*models.User, error) {
	if !Authorize(actor.Role, models.RoleSuperadmin) {
		return nil, ErrForbidden
	}
	if !isValidRole(role) {
		return nil, newValidationError("role", "must be one of %s, %s, %s",
			models.RoleUser, models.RoleAdmin, models.RoleSuperadmin)
	}
	if userID == actor.UserID {
		return nil, newValidationError("id", "cannot change your own role")
	}

	const updateRoleQuery = `
UPDATE users
SET role = $1,
    updated_at = $2
WHERE id = $3
RETURNING ` + userColumns
	return s.updateUser(ctx, userID, "role", updateRoleQuery, role, time.Now(), userID)
}

func (s *userServiceImpl) SetCapacity(ctx context.Context, userID int64, capacity *float64) (*models.User, error) {
	if capacity != nil && *capacity <= 0 {
		return nil, newValidationError("capacity", "must be positive")
	}

	// A nil capacity resets the user to the configured default.
	const updateCapacityQuery = `
UPDATE users
SET capacity = $1,
    updated_at = $2
WHERE id = $3
RETURNING ` + userColumns
	return s.updateUser(ctx, userID, "capacity", updateCapacityQuery, capacity, time.Now(), userID)
}

func (s *userServiceImpl) updateUser(ctx context.Context, userID int64, field, query string, args ...any) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Int64("user_id", userID).
				Msg("user not found")
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Str("field", field).
			Msg("failed to update user")
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", userID).
		Str("field", field).
		Msg("updated user")
	return user, nil
}

func (s *userServiceImpl) CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error) {
	reg := RegisterParams{
		Name:     params.Name,
		Email:    params.Email,
		Password: params.Password,
	}
	err := reg.Validate()
	if err != nil {
		return nil, err
	}
	if !isValidRole(params.Role) {
		return nil, newValidationError("role", "must be one of %s, %s, %s",
			models.RoleUser, models.RoleAdmin, models.RoleSuperadmin)
	}

	passwordHash, err := argon2id.CreateHash(reg.Password, argon2id.DefaultParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Name:      reg.Name,
		Email:     reg.Email,
		Password:  passwordHash,
		Role:      params.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = insertUser(ctx, s.db, user)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("email", user.Email).
			Msg("failed to insert user")
		return nil, err
	}

	_, err = s.UpdateProfile(ctx, UpdateProfileParams{
		UserID: user.ID,
		Name:   &user.Name,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("role", user.Role).
		Msg("created user")
	return user, nil
}
