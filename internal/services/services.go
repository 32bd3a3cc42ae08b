package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/adanyl0v/go-planner/internal/models"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrTaskNotFound          = errors.New("task not found")
	ErrFriendshipExists      = errors.New("friendship already exists")
	ErrFriendRequestNotFound = errors.New("friend request not found")
	ErrForbidden             = errors.New("forbidden")
	ErrUnsupportedMediaType  = errors.New("unsupported media type")
	ErrFileTooLarge          = errors.New("file too large")
)

// DB is the subset of *pgxpool.Pool used by the services.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int64
	Role   string
}

// scopeID returns the user id that restricts the rows visible to the actor,
// or nil when the actor may see everything.
func (a Actor) scopeID() *int64 {
	if Authorize(a.Role, models.RoleAdmin) {
		return nil
	}
	id := a.UserID
	return &id
}

type AuthService interface {
	// Register creates a user with the "user" role and an empty profile
	// and returns a signed access token for it.
	//
	// It returns ErrUserAlreadyExists if the email is taken.
	Register(ctx context.Context, params RegisterParams) (*TokenResult, error)

	// Login checks the email and password and returns a signed access token.
	//
	// It returns ErrInvalidCredentials if the user doesn't exist or
	// the password doesn't match.
	Login(ctx context.Context, params LoginParams) (*TokenResult, error)

	// ParseToken validates the given token and returns its claims.
	// Expired tokens are reported with jwt.ErrTokenExpired in the chain.
	ParseToken(token string) (*Claims, error)
}

type TaskService interface {
	// CreateTask validates the params, checks the assignee's daily capacity
	// when the task has an end date and an estimate, and inserts the task.
	CreateTask(ctx context.Context, actor Actor, params CreateTaskParams) (*models.Task, error)
	GetTask(ctx context.Context, actor Actor, id int64) (*models.Task, error)
	// ListTasks returns non-archived tasks, newest first.
	ListTasks(ctx context.Context, actor Actor) ([]*models.Task, error)
	ListArchivedTasks(ctx context.Context, actor Actor) ([]*models.Task, error)
	ListTasksInPeriod(ctx context.Context, actor Actor, query PeriodQuery) ([]*models.Task, *Period, error)

	StartTask(ctx context.Context, actor Actor, id int64) (*models.Task, error)
	CompleteTask(ctx context.Context, actor Actor, id int64) (*models.Task, error)
	// ArchiveTask archives the task whatever its current status is.
	ArchiveTask(ctx context.Context, actor Actor, id int64) (*models.Task, error)
	// UnarchiveTask always moves the task back to Pending.
	UnarchiveTask(ctx context.Context, actor Actor, id int64) (*models.Task, error)

	// UpdateTask applies only the non-nil params and refreshes updated_at.
	// Changing the assignee, estimate or end date checks the capacity again.
	UpdateTask(ctx context.Context, actor Actor, params UpdateTaskParams) (*models.Task, error)
	DeleteTask(ctx context.Context, actor Actor, id int64) error

	Stats(ctx context.Context, actor Actor) (*models.TaskStats, error)

	// CheckWorkload runs the capacity check for a prospective task
	// without writing anything.
	CheckWorkload(ctx context.Context, actor Actor, params WorkloadParams) (*WorkloadResult, error)
	// Workload returns the committed hours of every user on the given day.
	Workload(ctx context.Context, day time.Time) ([]*models.UserWorkload, error)
}

type UserService interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	// UpdateProfile creates the profile if it is missing and keeps
	// the current value of every nil field.
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (*models.Profile, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	SetRole(ctx context.Context, actor Actor, userID int64, role string) (*models.User, error)
	SetCapacity(ctx context.Context, userID int64, capacity *float64) (*models.User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
}

type FriendService interface {
	Search(ctx context.Context, actor Actor, query string) ([]*models.User, error)
	ListFriends(ctx context.Context, actor Actor) ([]*models.Friend, error)
	ListRequests(ctx context.Context, actor Actor) ([]*models.FriendRequest, error)
	// SendRequest returns ErrFriendshipExists if any row already links
	// the two users, in either direction.
	SendRequest(ctx context.Context, actor Actor, toUserID int64) (*models.Friendship, error)
	// Accept and Reject only match rows where the actor is the recipient.
	Accept(ctx context.Context, actor Actor, friendshipID int64) (*models.Friendship, error)
	Reject(ctx context.Context, actor Actor, friendshipID int64) (*models.Friendship, error)
}

type UploadService interface {
	UploadProfilePicture(ctx context.Context, actor Actor, params UploadParams) (*UploadResult, error)
}

// ObjectStorage stores uploaded files and reports their public URL.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	URL(key string) string
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

type LoginParams struct {
	Email    string
	Password string
}

type TokenResult struct {
	UserID    int64
	Role      string
	Token     string
	ExpiresAt time.Time
}

type CreateTaskParams struct {
	Name          string
	Description   string
	Category      string
	Priority      string
	Difficulty    int
	Status        string
	EstimatedTime float64
	ActualTime    float64
	AssigneeID    *int64
	EndDate       *time.Time
}

type UpdateTaskParams struct {
	ID            int64
	Name          *string
	Description   *string
	Category      *string
	Priority      *string
	Difficulty    *int
	Status        *string
	EstimatedTime *float64
	ActualTime    *float64
	AssigneeID    *int64
	EndDate       *time.Time
}

type PeriodQuery struct {
	Period string
	// Both are YYYY-MM-DD and only used with the custom range token.
	Start string
	End   string
	// One of created_at, end_date, completed_at. Defaults to created_at.
	Field string
	// Now anchors the period. Zero means time.Now().
	Now time.Time
}

type WorkloadParams struct {
	AssigneeID    int64
	EstimatedTime float64
	EndDate       time.Time
}

type WorkloadResult struct {
	Capacity  float64
	Committed float64
	Total     float64
}

type UpdateProfileParams struct {
	UserID            int64
	Name              *string
	Bio               *string
	ProfilePictureURL *string
}

type CreateUserParams struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type UploadParams struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type UploadResult struct {
	Key      string
	ImageURL string
}
