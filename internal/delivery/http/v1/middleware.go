package v1

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-planner/internal/services"
)

const (
	userIDCtxKey = "user_id"
	roleCtxKey   = "role"
)

func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Error().Msg("authorization header required")
		abort(c, newUnauthorizedError(errMissingAuthHeader.Error()))
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix || parts[1] == "" {
		h.logger.Error().Msg("invalid authorization header")
		abort(c, newUnauthorizedError(errInvalidAuthHeader.Error()))
		return
	}

	claims, err := h.auth.ParseToken(parts[1])
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse token")
		abort(c, newUnauthorizedError(errInvalidToken.Error()))
		return
	}

	c.Set(userIDCtxKey, claims.User.ID)
	c.Set(roleCtxKey, claims.User.Role)
	c.Next()
}

// HandleRequireRole must run after HandleAuthMiddleware.
func (h *handlerImpl) HandleRequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := getActor(c)
		if !ok {
			h.logger.Error().Msg("no actor found in context")
			abort(c, newUnauthorizedError(errInvalidToken.Error()))
			return
		}

		if !services.Authorize(actor.Role, role) {
			h.logger.Warn().
				Int64("user_id", actor.UserID).
				Str("role", actor.Role).
				Str("required_role", role).
				Msg("insufficient role")
			abort(c, newForbiddenError(errInsufficientRole.Error()))
			return
		}
		c.Next()
	}
}

func getActor(c *gin.Context) (services.Actor, bool) {
	userID := c.GetInt64(userIDCtxKey)
	role := c.GetString(roleCtxKey)
	if userID == 0 || role == "" {
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Role: role}, true
}

// mustGetActor aborts with 401 when the auth middleware didn't run.
func (h *handlerImpl) mustGetActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := getActor(c)
	if !ok {
		h.logger.Error().Msg("no actor found in context")
		abort(c, newUnauthorizedError(errInvalidToken.Error()))
	}
	return actor, ok
}

func (h *handlerImpl) mustGetIDParam(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error().
			Str("id", raw).
			Msg("invalid id param")
		abort(c, newBadRequestError(errInvalidID.Error()))
		return 0, false
	}
	return id, true
}

// fail logs the service error and aborts with its mapped response.
func (h *handlerImpl) fail(c *gin.Context, err error, msg string) {
	h.logger.Error().
		Err(err).
		Msg(msg)
	abort(c, serviceError(err))
}
