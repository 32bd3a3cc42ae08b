package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-planner/internal/services"
)

type Handler interface {
	HandleRegister(c *gin.Context)
	HandleLogin(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)
	HandleRequireRole(role string) gin.HandlerFunc

	HandleCreateTask(c *gin.Context)
	HandleGetTasks(c *gin.Context)
	HandleGetArchivedTasks(c *gin.Context)
	HandleGetTasksInPeriod(c *gin.Context)
	HandleGetTaskStats(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleStartTask(c *gin.Context)
	HandleCompleteTask(c *gin.Context)
	HandleArchiveTask(c *gin.Context)
	HandleUnarchiveTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleCheckWorkload(c *gin.Context)

	HandleGetProfile(c *gin.Context)
	HandleUpdateProfile(c *gin.Context)
	HandleUploadProfilePicture(c *gin.Context)

	HandleSearchUsers(c *gin.Context)
	HandleGetFriends(c *gin.Context)
	HandleGetFriendRequests(c *gin.Context)
	HandleSendFriendRequest(c *gin.Context)
	HandleAcceptFriendRequest(c *gin.Context)
	HandleRejectFriendRequest(c *gin.Context)

	HandleGetUsers(c *gin.Context)
	HandleSetUserRole(c *gin.Context)
	HandleSetUserCapacity(c *gin.Context)
	HandleGetWorkload(c *gin.Context)
}

type handlerImpl struct {
	logger  zerolog.Logger
	auth    services.AuthService
	tasks   services.TaskService
	users   services.UserService
	friends services.FriendService
	uploads services.UploadService
	// Multipart bodies above this size are rejected before parsing.
	maxUploadSize int64
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	taskService services.TaskService,
	userService services.UserService,
	friendService services.FriendService,
	uploadService services.UploadService,
	maxUploadSize int64,
) Handler {
	return &handlerImpl{
		logger:        logger,
		auth:          authService,
		tasks:         taskService,
		users:         userService,
		friends:       friendService,
		uploads:       uploadService,
		maxUploadSize: maxUploadSize,
	}
}
