package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayutane/daylink/cache"
	"github.com/ayutane/daylink/config"
	mw "github.com/ayutane/daylink/middleware"
	"github.com/ayutane/daylink/model"
	"github.com/ayutane/daylink/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	users *service.UserService
	cache cache.Cache
	sec   config.SecurityConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *service.UserService, c cache.Cache, sec config.SecurityConfig) *AuthHandler {
	return &AuthHandler{users: users, cache: c, sec: sec}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "email, username and password are required", "validation error")
		return
	}

	user, err := h.users.Create(req.Email, req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.issueSession(c, user)
	if err != nil {
		respondFail(c, http.StatusInternalServerError, "internal server error", "internal")
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"user":  sessionUserJSON(user),
		"token": token,
	}, "registered")
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "email and password are required", "validation error")
		return
	}

	user, err := h.users.Validate(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.issueSession(c, user)
	if err != nil {
		respondFail(c, http.StatusInternalServerError, "internal server error", "internal")
		return
	}

	respond(c, http.StatusOK, gin.H{
		"user":  sessionUserJSON(user),
		"token": token,
	}, "logged in")
}

// Logout handles POST /api/auth/logout. The token stays cryptographically
// valid until expiry; dropping the session entry is what kills it.
func (h *AuthHandler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		respondFail(c, http.StatusBadRequest, "missing token", "validation error")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, "session:"+tokenStr)
	respond(c, http.StatusOK, nil, "logged out")
}

func (h *AuthHandler) issueSession(c *gin.Context, user *model.User) (string, error) {
	token, err := mw.GenerateToken(user.ID, h.sec.JWTSecret, h.sec.JWTTTL)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, "session:"+token, strconv.FormatInt(user.ID, 10), h.sec.JWTTTL); err != nil {
		return "", err
	}
	return token, nil
}

// sessionUserJSON is the compact user shape returned next to a token.
func sessionUserJSON(u *model.User) gin.H {
	return gin.H{
		"id":           formatID(u.ID),
		"email":        u.Email,
		"username":     u.Username,
		"display_name": u.DisplayName,
		"avatar_url":   u.AvatarURL,
		"color":        u.Color,
	}
}
