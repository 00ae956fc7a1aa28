package rest

import (
	"net/http"
	"strings"

	mw "github.com/ayutane/daylink/middleware"
	"github.com/ayutane/daylink/service"
	"github.com/ayutane/daylink/upload"
	"github.com/gin-gonic/gin"
)

// UserHandler handles profile and search endpoints.
type UserHandler struct {
	users *service.UserService
	store *upload.Store
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, store *upload.Store) *UserHandler {
	return &UserHandler{users: users, store: store}
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, userJSON(user), "")
}

// Search handles GET /api/users/search?q=.
func (h *UserHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		respondFail(c, http.StatusBadRequest, "search query must be at least 2 characters", "validation error")
		return
	}

	users, err := h.users.Search(q, mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]gin.H, 0, len(users))
	for i := range users {
		results = append(results, publicUserJSON(&users[i]))
	}
	respond(c, http.StatusOK, results, "")
}

// UpdateMe handles PUT /api/users/me (multipart form with optional avatar).
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID := mw.GetUserID(c)

	params := service.UpdateParams{
		Username:        c.PostForm("username"),
		Color:           c.PostForm("color"),
		OldPassword:     c.PostForm("old_password"),
		NewPassword:     c.PostForm("new_password"),
		ConfirmPassword: c.PostForm("confirm_password"),
	}

	newAvatar := ""
	if fh, err := c.FormFile("avatar"); err == nil {
		ref, err := h.store.SaveAvatar(fh)
		if err != nil {
			respondError(c, err)
			return
		}
		newAvatar = ref
		params.AvatarURL = &ref
	}

	user, oldAvatar, err := h.users.Update(userID, params)
	if err != nil {
		// The row was not updated; drop the freshly stored avatar so it
		// cannot be orphaned.
		if newAvatar != "" {
			_ = h.store.Remove(newAvatar)
		}
		respondError(c, err)
		return
	}

	// Old avatar file is deleted only after the update committed.
	if newAvatar != "" && oldAvatar != "" {
		_ = h.store.Remove(oldAvatar)
	}

	respond(c, http.StatusOK, userJSON(user), "profile updated")
}

// PublicProfile handles GET /api/users/:username (no auth).
func (h *UserHandler) PublicProfile(c *gin.Context) {
	user, err := h.users.GetByUsername(c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, publicUserJSON(user), "")
}
