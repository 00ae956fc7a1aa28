package rest

import (
	"net/http"
	"strconv"

	mw "github.com/ayutane/daylink/middleware"
	"github.com/ayutane/daylink/model"
	"github.com/ayutane/daylink/service"
	"github.com/gin-gonic/gin"
)

// FriendHandler handles the friendship endpoints.
type FriendHandler struct {
	friends *service.FriendshipService
	users   *service.UserService
}

// NewFriendHandler creates a new FriendHandler.
func NewFriendHandler(friends *service.FriendshipService, users *service.UserService) *FriendHandler {
	return &FriendHandler{friends: friends, users: users}
}

// friendshipJSON serializes a relationship row with the counterpart profile.
func friendshipJSON(f *model.Friendship, counterpart *model.User) gin.H {
	return gin.H{
		"id":           formatID(f.ID),
		"user_id":      formatID(f.UserID),
		"friend_id":    formatID(f.FriendID),
		"status":       f.Status,
		"requested_at": f.RequestedAt,
		"friend": gin.H{
			"id":         formatID(counterpart.ID),
			"username":   counterpart.Username,
			"color":      counterpart.Color,
			"avatar_url": counterpart.AvatarURL,
		},
	}
}

type friendRequestBody struct {
	Username string `json:"username" binding:"required"`
}

// Request handles POST /api/friends/request.
func (h *FriendHandler) Request(c *gin.Context) {
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "username is required", "validation error")
		return
	}

	f, target, err := h.friends.SendRequest(mw.GetUserID(c), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, friendshipJSON(f, target), "friend request sent")
}

type friendResolveBody struct {
	FriendshipID string `json:"friendship_id" binding:"required"`
}

func (h *FriendHandler) bindFriendshipID(c *gin.Context) (int64, bool) {
	var req friendResolveBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "friendship_id is required", "validation error")
		return 0, false
	}
	id, err := strconv.ParseInt(req.FriendshipID, 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid friendship_id", "validation error")
		return 0, false
	}
	return id, true
}

// Accept handles POST /api/friends/accept.
func (h *FriendHandler) Accept(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, ok := h.bindFriendshipID(c)
	if !ok {
		return
	}

	f, err := h.friends.Accept(userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	counterpart, err := h.users.GetByID(counterpartOf(f, userID))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, friendshipJSON(f, counterpart), "friend request accepted")
}

// Reject handles POST /api/friends/reject.
func (h *FriendHandler) Reject(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, ok := h.bindFriendshipID(c)
	if !ok {
		return
	}

	f, err := h.friends.Reject(userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	counterpart, err := h.users.GetByID(counterpartOf(f, userID))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, friendshipJSON(f, counterpart), "friend request rejected")
}

func counterpartOf(f *model.Friendship, viewerID int64) int64 {
	if f.UserID == viewerID {
		return f.FriendID
	}
	return f.UserID
}

// List handles GET /api/friends: the viewer's relationships flattened around
// the counterpart profile.
func (h *FriendHandler) List(c *gin.Context) {
	entries, err := h.friends.ListForUser(mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"id":            formatID(e.User.ID),
			"username":      e.User.Username,
			"display_name":  e.User.DisplayName,
			"avatar_url":    e.User.AvatarURL,
			"color":         e.User.Color,
			"friendship_id": formatID(e.FriendshipID),
			"status":        e.Status,
			"is_sender":     e.IsSender,
			"requested_at":  e.RequestedAt,
		})
	}
	respond(c, http.StatusOK, out, "")
}

// Requests handles GET /api/friends/requests: the incoming pending inbox.
func (h *FriendHandler) Requests(c *gin.Context) {
	pending, err := h.friends.PendingFor(mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(pending))
	for _, p := range pending {
		out = append(out, gin.H{
			"id":           formatID(p.Friendship.ID),
			"user_id":      formatID(p.Friendship.UserID),
			"friend_id":    formatID(p.Friendship.FriendID),
			"status":       p.Friendship.Status,
			"requested_at": p.Friendship.RequestedAt,
			"updated_at":   p.Friendship.UpdatedAt,
			"user": gin.H{
				"id":           formatID(p.Requester.ID),
				"username":     p.Requester.Username,
				"display_name": p.Requester.DisplayName,
				"avatar_url":   p.Requester.AvatarURL,
				"color":        p.Requester.Color,
			},
		})
	}
	respond(c, http.StatusOK, out, "")
}

// DeleteByUsername handles DELETE /api/friends/:username.
func (h *FriendHandler) DeleteByUsername(c *gin.Context) {
	if err := h.friends.DeleteByUsername(mw.GetUserID(c), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "friend removed")
}

// DeleteByID handles DELETE /api/friends/request/:friendshipId.
func (h *FriendHandler) DeleteByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("friendshipId"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid friendship id", "validation error")
		return
	}
	if err := h.friends.DeleteByID(mw.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "friend removed")
}
