package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/models"
)

// Claims is the payload of an access token.
type Claims struct {
	User ClaimsUser `json:"user"`
	jwt.RegisteredClaims
}

type ClaimsUser struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

var roleRanks = map[string]int{
	models.RoleUser:       1,
	models.RoleAdmin:      2,
	models.RoleSuperadmin: 3,
}

// Authorize reports whether role is at least as privileged as required.
// Unknown roles are never authorized.
func Authorize(role, required string) bool {
	have, ok := roleRanks[role]
	if !ok {
		return false
	}
	return have >= roleRanks[required]
}

type authServiceImpl struct {
	logger            zerolog.Logger
	db                DB
	jwtIssuer         string
	jwtSigningKey     []byte
	jwtAccessTokenTTL time.Duration
}

func NewAuthService(
	logger zerolog.Logger,
	db DB,
	jwtIssuer string,
	jwtSigningKey []byte,
	jwtAccessTokenTTL time.Duration,
) AuthService {
	return &authServiceImpl{
		logger:            logger,
		db:                db,
		jwtIssuer:         jwtIssuer,
		jwtSigningKey:     jwtSigningKey,
		jwtAccessTokenTTL: jwtAccessTokenTTL,
	}
}

func (s *authServiceImpl) Register(ctx context.Context, params RegisterParams) (*TokenResult, error) {
	err := params.Validate()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("invalid registration")
		return nil, err
	}

	passwordHash, err := argon2id.CreateHash(params.Password, argon2id.DefaultParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}

	now := time.Now()
	user := models.User{
		Name:      params.Name,
		Email:     params.Email,
		Password:  passwordHash,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = insertUser(ctx, tx, &user)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			s.logger.Error().
				Str("email", user.Email).
				Msg("user with this email already exists")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return nil, err
	}
	s.logger.Debug().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Msg("inserted user")

	const upsertProfileQuery = `
INSERT INTO profiles (user_id,
                      name,
                      bio,
                      profile_picture_url,
                      updated_at)
VALUES ($1, $2, '', '', $3)
ON CONFLICT (user_id) DO UPDATE
    SET name = EXCLUDED.name,
        updated_at = EXCLUDED.updated_at
`
	_, err = tx.Exec(
		ctx,
		upsertProfileQuery,
		user.ID,
		user.Name,
		now,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", user.ID).
			Msg("failed to upsert profile")
		return nil, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return nil, err
	}

	result, err := s.issueToken(user.ID, user.Role)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate access token")
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Msg("registered user")
	return result, nil
}

// insertUser fills user.ID. A taken email is reported as ErrUserAlreadyExists.
func insertUser(ctx context.Context, q querier, user *models.User) error {
	const insertUserQuery = `
INSERT INTO users (name,
                   email,
                   password,
                   role,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`
	err := q.QueryRow(
		ctx,
		insertUserQuery,
		user.Name,
		user.Email,
		user.Password,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (s *authServiceImpl) Login(ctx context.Context, params LoginParams) (*TokenResult, error) {
	user := models.User{
		Email: params.Email,
	}

	const selectUserByEmailQuery = `
SELECT id,
       password,
       role
FROM users
WHERE email = lower($1)
`
	err := s.db.QueryRow(
		ctx,
		selectUserByEmailQuery,
		user.Email,
	).Scan(
		&user.ID,
		&user.Password,
		&user.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("email", user.Email).
				Msg("user not found")
			return nil, ErrInvalidCredentials
		}

		s.logger.Error().
			Err(err).
			Str("email", user.Email).
			Msg("failed to select user by email")
		return nil, err
	}
	s.logger.Debug().
		Int64("user_id", user.ID).
		Msg("selected user")

	match, err := argon2id.ComparePasswordAndHash(params.Password, user.Password)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Error().
			Int64("user_id", user.ID).
			Msg("passwords do not match")
		return nil, ErrInvalidCredentials
	}

	result, err := s.issueToken(user.ID, user.Role)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate access token")
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Msg("logged in")
	return result, nil
}

func (s *authServiceImpl) ParseToken(token string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(
		token,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.jwtSigningKey, nil
		},
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token is expired: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || claims.User.ID <= 0 {
		return nil, errors.New("failed to parse token: invalid claims")
	}
	return claims, nil
}

func (s *authServiceImpl) issueToken(userID int64, role string) (*TokenResult, error) {
	tokenUUID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(s.jwtAccessTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		User: ClaimsUser{
			ID:   userID,
			Role: role,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenUUID.String(),
			Issuer:    s.jwtIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	signed, err := token.SignedString(s.jwtSigningKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &TokenResult{
		UserID:    userID,
		Role:      role,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}
