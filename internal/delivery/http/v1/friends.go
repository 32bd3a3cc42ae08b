package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-planner/internal/models"
	"github.com/adanyl0v/go-planner/internal/services"
)

type friendResponse struct {
	FriendshipID int64     `json:"friendship_id"`
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Since        time.Time `json:"since"`
}

type friendRequestResponse struct {
	ID        int64     `json:"id"`
	FromID    int64     `json:"from_user_id"`
	FromName  string    `json:"from_name"`
	FromEmail string    `json:"from_email"`
	CreatedAt time.Time `json:"created_at"`
}

type friendshipResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FriendID  int64     `json:"friend_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newFriendshipResponse(f *models.Friendship) friendshipResponse {
	return friendshipResponse{
		ID:        f.ID,
		UserID:    f.UserID,
		FriendID:  f.FriendID,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (h *handlerImpl) HandleSearchUsers(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	users, err := h.friends.Search(c, actor, c.Query("query"))
	if err != nil {
		h.fail(c, err, "failed to search users")
		return
	}

	c.JSON(http.StatusOK, newGetUsersResponse(users))
}

func (h *handlerImpl) HandleGetFriends(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	friends, err := h.friends.ListFriends(c, actor)
	if err != nil {
		h.fail(c, err, "failed to get friends")
		return
	}

	response := make([]friendResponse, len(friends))
	for i, f := range friends {
		response[i] = friendResponse{
			FriendshipID: f.FriendshipID,
			UserID:       f.UserID,
			Name:         f.Name,
			Email:        f.Email,
			Since:        f.Since,
		}
	}
	c.JSON(http.StatusOK, response)
}

func (h *handlerImpl) HandleGetFriendRequests(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	requests, err := h.friends.ListRequests(c, actor)
	if err != nil {
		h.fail(c, err, "failed to get friend requests")
		return
	}

	response := make([]friendRequestResponse, len(requests))
	for i, r := range requests {
		response[i] = friendRequestResponse{
			ID:        r.ID,
			FromID:    r.FromID,
			FromName:  r.FromName,
			FromEmail: r.FromEmail,
			CreatedAt: r.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, response)
}

type sendFriendRequestRequest struct {
	ToUserID int64 `json:"to_user_id" binding:"required"`
}

func (h *handlerImpl) HandleSendFriendRequest(c *gin.Context) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}

	var req sendFriendRequestRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	friendship, err := h.friends.SendRequest(c, actor, req.ToUserID)
	if err != nil {
		h.fail(c, err, "failed to send friend request")
		return
	}

	c.JSON(http.StatusCreated, newFriendshipResponse(friendship))
}

type friendshipAnswer func(ctx context.Context, actor services.Actor, id int64) (*models.Friendship, error)

func (h *handlerImpl) handleFriendshipAnswer(c *gin.Context, answer friendshipAnswer, name string) {
	actor, ok := h.mustGetActor(c)
	if !ok {
		return
	}
	friendshipID, ok := h.mustGetIDParam(c)
	if !ok {
		return
	}

	friendship, err := answer(c, actor, friendshipID)
	if err != nil {
		h.fail(c, err, "failed to "+name+" friend request")
		return
	}

	c.JSON(http.StatusOK, newFriendshipResponse(friendship))
}

func (h *handlerImpl) HandleAcceptFriendRequest(c *gin.Context) {
	h.handleFriendshipAnswer(c, h.friends.Accept, "accept")
}

func (h *handlerImpl) HandleRejectFriendRequest(c *gin.Context) {
	h.handleFriendshipAnswer(c, h.friends.Reject, "reject")
}
