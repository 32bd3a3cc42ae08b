package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-planner/internal/services"
)

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errInvalidID          = errors.New("invalid id")
	errMissingAuthHeader  = errors.New("authorization header required")
	errInvalidAuthHeader  = errors.New("invalid authorization header")
	errInvalidToken       = errors.New("invalid or expired token")
	errInsufficientRole   = errors.New("insufficient role")
)

type apiError struct {
	Code    int
	Message string
	// Details are merged into the response body next to the message.
	Details gin.H
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	body := gin.H{"message": err.Message}
	for k, v := range err.Details {
		body[k] = v
	}
	c.AbortWithStatusJSON(err.Code, body)
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newForbiddenError(message string) apiError {
	return newAPIError(http.StatusForbidden, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

// serviceError maps a service error to the response sent to the client.
// Anything unrecognised becomes a bare 500.
func serviceError(err error) apiError {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		e := newBadRequestError("validation failed")
		e.Details = gin.H{"errors": validationErr.Violations}
		return e
	}

	var capacityErr *services.OverCapacityError
	if errors.As(err, &capacityErr) {
		e := newBadRequestError(capacityErr.Error())
		e.Details = gin.H{
			"capacity": capacityErr.Capacity,
			"total":    capacityErr.Total,
		}
		return e
	}

	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrFriendRequestNotFound):
		return newNotFoundError(err.Error())
	case errors.Is(err, services.ErrUserAlreadyExists),
		errors.Is(err, services.ErrFriendshipExists):
		return newConflictError(err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return newUnauthorizedError(err.Error())
	case errors.Is(err, services.ErrForbidden):
		return newForbiddenError(err.Error())
	case errors.Is(err, services.ErrUnsupportedMediaType):
		return newAPIError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		return newAPIError(http.StatusRequestEntityTooLarge, err.Error())
	default:
		return newStatusTextError(http.StatusInternalServerError)
	}
}
