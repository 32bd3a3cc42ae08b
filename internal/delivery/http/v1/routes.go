package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-planner/internal/models"
)

func Register(router gin.IRouter, h Handler) {
	router = router.Group("/api/v1")

	authRouter := router.Group("/auth")
	authRouter.POST("/register", h.HandleRegister)
	authRouter.POST("/login", h.HandleLogin)

	private := router.Group("", h.HandleAuthMiddleware)

	tasksRouter := private.Group("/tasks")
	tasksRouter.POST("", h.HandleCreateTask)
	tasksRouter.GET("", h.HandleGetTasks)
	tasksRouter.GET("/archived", h.HandleGetArchivedTasks)
	tasksRouter.GET("/period", h.HandleGetTasksInPeriod)
	tasksRouter.GET("/stats", h.HandleGetTaskStats)
	tasksRouter.POST("/workload/check", h.HandleCheckWorkload)
	tasksRouter.GET("/:id", h.HandleGetTask)
	tasksRouter.PUT("/:id", h.HandleUpdateTask)
	tasksRouter.DELETE("/:id", h.HandleDeleteTask)
	tasksRouter.PUT("/:id/start", h.HandleStartTask)
	tasksRouter.PUT("/:id/complete", h.HandleCompleteTask)
	tasksRouter.PUT("/:id/archive", h.HandleArchiveTask)
	tasksRouter.PUT("/:id/unarchive", h.HandleUnarchiveTask)

	private.GET("/profile", h.HandleGetProfile)
	private.PUT("/profile", h.HandleUpdateProfile)
	private.POST("/upload/profile-picture", h.HandleUploadProfilePicture)

	friendsRouter := private.Group("/friends")
	friendsRouter.GET("/search", h.HandleSearchUsers)
	friendsRouter.GET("/list", h.HandleGetFriends)
	friendsRouter.GET("/requests", h.HandleGetFriendRequests)
	friendsRouter.POST("/send", h.HandleSendFriendRequest)
	friendsRouter.PUT("/:id/accept", h.HandleAcceptFriendRequest)
	friendsRouter.PUT("/:id/reject", h.HandleRejectFriendRequest)

	adminRouter := private.Group("/admin", h.HandleRequireRole(models.RoleAdmin))
	adminRouter.GET("/users", h.HandleGetUsers)
	adminRouter.PUT("/users/:id/capacity", h.HandleSetUserCapacity)
	adminRouter.GET("/workload", h.HandleGetWorkload)
	adminRouter.PUT("/users/:id/role", h.HandleRequireRole(models.RoleSuperadmin), h.HandleSetUserRole)
}
