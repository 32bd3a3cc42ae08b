package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-planner/internal/models"
	"github.com/adanyl0v/go-planner/internal/services"
)

const profilePictureFormField = "image"

type getProfileResponse struct {
	UserID            int64     `json:"user_id"`
	Name              string    `json:"name"`
	Bio               string    `json:"bio"`
	ProfilePictureURL string    `json:"profile_picture_url"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newGetProfileResponse(profile *models.Profile) getProfileResponse {
	return getProfileResponse{
		UserID:            profile.UserID,
		Name:              profile.Name,
		Bio:               profile.Bio,
		ProfilePictureURL: profile.ProfilePictureURL,
		UpdatedAt:         profile.UpdatedAt,
	}
}

func (h *handlerImpl) HandleGetProfile(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(c, actor.UserID)
	if err != nil {
		h.fail(c, err, "failed to get profile")
		return
	}

	c.JSON(http.StatusOK, newGetProfileResponse(profile))
}

type updateProfileRequest struct {
	Name              *string `json:"name,omitempty" binding:"omitempty,max=255"`
	Bio               *string `json:"bio,omitempty" binding:"omitempty,max=2000"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty" binding:"omitempty,max=2048"`
}

func (h *handlerImpl) HandleUpdateProfile(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	profile, err := h.users.UpdateProfile(c, services.UpdateProfileParams{
		UserID:            actor.UserID,
		Name:              req.Name,
		Bio:               req.Bio,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		h.fail(c, err, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newGetProfileResponse(profile))
}

type uploadResponse struct {
	ImageURL string `json:"imageUrl"`
}

func (h *handlerImpl) HandleUploadProfilePicture(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	// Leave room for the multipart envelope around the file itself.
	const multipartOverhead = 1 << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)

	fileHeader, err := c.FormFile(profilePictureFormField)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to read form file")
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			abort(c, serviceError(services.ErrFileTooLarge))
			return
		}
		abort(c, newBadRequestError("image file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to open form file")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}
	defer file.Close()

	result, err := h.uploads.UploadProfilePicture(c, actor, services.UploadParams{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Body:     file,
	})
	if err != nil {
		h.fail(c, err, "failed to upload profile picture")
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{ImageURL: result.ImageURL})
}

type getUserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Capacity  *float64  `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

func newGetUserResponse(user *models.User) getUserResponse {
	return getUserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Capacity:  user.Capacity,
		CreatedAt: user.CreatedAt,
	}
}

func newGetUsersResponse(users []*models.User) []getUserResponse {
	response := make([]getUserResponse, len(users))
	for i, user := range users {
		response[i] = newGetUserResponse(user)
	}
	return response
}

func (h *handlerImpl) HandleGetUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c)
	if err != nil {
		h.fail(c, err, "failed to get users")
		return
	}

	c.JSON(http.StatusOK, newGetUsersResponse(users))
}

type setUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *handlerImpl) HandleSetUserRole(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}
	userID, ok := h.mustGetIDParam(c)
	if !ok {
		return
	}

	var req setUserRoleRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	user, err := h.users.SetRole(c, actor, userID, req.Role)
	if err != nil {
		h.fail(c, err, "failed to set user role")
		return
	}

	c.JSON(http.StatusOK, newGetUserResponse(user))
}

type setUserCapacityRequest struct {
	// Null resets the user to the default capacity.
	Capacity *float64 `json:"capacity"`
}

func (h *handlerImpl) HandleSetUserCapacity(c *gin.Context) {
	userID, ok := h.mustGetIDParam(c)
	if !ok {
		return
	}

	var req setUserCapacityRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	user, err := h.users.SetCapacity(c, userID, req.Capacity)
	if err != nil {
		h.fail(c, err, "failed to set user capacity")
		return
	}

	c.JSON(http.StatusOK, newGetUserResponse(user))
}

type userWorkloadResponse struct {
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Capacity  float64 `json:"capacity"`
	Committed float64 `json:"committed"`
}

func (h *handlerImpl) HandleGetWorkload(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			h.logger.Error().
				Err(err).
				Str("date", raw).
				Msg("invalid date")
			abort(c, newBadRequestError("date must be a YYYY-MM-DD date"))
			return
		}
		day = parsed
	}

	workloads, err := h.tasks.Workload(c, day)
	if err != nil {
		h.fail(c, err, "failed to get workload")
		return
	}

	response := make([]userWorkloadResponse, len(workloads))
	for i, w := range workloads {
		response[i] = userWorkloadResponse{
			UserID:    w.UserID,
			Name:      w.Name,
			Email:     w.Email,
			Capacity:  w.Capacity,
			Committed: w.Committed,
		}
	}
	c.JSON(http.StatusOK, response)
}
