package rest

import (
	"net/http"

	mw "github.com/ayutane/daylink/middleware"
	"github.com/ayutane/daylink/model"
	"github.com/ayutane/daylink/service"
	"github.com/gin-gonic/gin"
)

// MergeHandler serves the combined two-person timeline view.
type MergeHandler struct {
	friends *service.FriendshipService
	users   *service.UserService
	events  *service.EventService
}

// NewMergeHandler creates a new MergeHandler.
func NewMergeHandler(friends *service.FriendshipService, users *service.UserService, events *service.EventService) *MergeHandler {
	return &MergeHandler{friends: friends, users: users, events: events}
}

// Merge handles GET /api/merge/:username. Both sides' events are returned
// only when the pair is in accepted status.
func (h *MergeHandler) Merge(c *gin.Context) {
	viewerID := mw.GetUserID(c)

	friend, err := h.users.GetByUsername(c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	if friend.ID == viewerID {
		respondFail(c, http.StatusBadRequest, "cannot merge with yourself", "validation error")
		return
	}

	ok, err := h.friends.Verify(viewerID, friend.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondFail(c, http.StatusForbidden, "not friends", "forbidden")
		return
	}

	viewer, err := h.users.GetByID(viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	mine, err := h.events.ListByUser(viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	theirs, err := h.events.ListByUser(friend.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"me":     mergeSideJSON(c, viewer, mine),
		"friend": mergeSideJSON(c, friend, theirs),
	}, "")
}

func mergeSideJSON(c *gin.Context, u *model.User, events []model.Event) gin.H {
	out := make([]gin.H, 0, len(events))
	for i := range events {
		out = append(out, eventJSON(c, &events[i]))
	}
	return gin.H{
		"username":   u.Username,
		"color":      u.Color,
		"avatar_url": u.AvatarURL,
		"events":     out,
	}
}
