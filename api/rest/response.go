// Package rest contains the HTTP handlers. Every response uses the
// {success, data?, message?, error?} envelope.
package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayutane/daylink/apperr"
	"github.com/ayutane/daylink/model"
	"github.com/ayutane/daylink/upload"
	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{"success": true}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondFail(c *gin.Context, status int, message, errCode string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   errCode,
	})
}

// respondError maps a service error to its HTTP status.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	respondFail(c, statusOf(kind), apperr.MessageOf(err), codeOf(kind))
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func codeOf(kind apperr.Kind) string {
	switch kind {
	case apperr.Validation:
		return "validation error"
	case apperr.Unauthorized:
		return "unauthorized"
	case apperr.Forbidden:
		return "forbidden"
	case apperr.NotFound:
		return "not found"
	case apperr.Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// requestScheme derives the public scheme, honoring proxy headers.
func requestScheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

const dateLayout = "2006-01-02"

// parseDate accepts a bare calendar date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// userJSON is the private profile shape (self-facing endpoints).
func userJSON(u *model.User) gin.H {
	return gin.H{
		"id":           formatID(u.ID),
		"email":        u.Email,
		"username":     u.Username,
		"display_name": u.DisplayName,
		"avatar_url":   u.AvatarURL,
		"color":        u.Color,
		"created_at":   u.CreatedAt,
		"updated_at":   u.UpdatedAt,
	}
}

// publicUserJSON is the public profile shape: no email, no timestamps other
// than created_at.
func publicUserJSON(u *model.User) gin.H {
	return gin.H{
		"id":           formatID(u.ID),
		"username":     u.Username,
		"display_name": u.DisplayName,
		"avatar_url":   u.AvatarURL,
		"color":        u.Color,
		"created_at":   u.CreatedAt,
	}
}

// eventJSON serializes an event, materializing the image URL against the
// request's scheme and host. This is the single absolutization site shared
// by event listing, event-by-id and the merge view.
func eventJSON(c *gin.Context, ev *model.Event) gin.H {
	var imageURL interface{}
	if ev.ImageURL != nil {
		imageURL = upload.AbsoluteURL(requestScheme(c), c.Request.Host, *ev.ImageURL)
	}
	return gin.H{
		"id":         formatID(ev.ID),
		"user_id":    formatID(ev.UserID),
		"event_date": time.Time(ev.EventDate).Format(dateLayout),
		"title":      ev.Title,
		"content":    ev.Content,
		"image_url":  imageURL,
		"event_type": ev.EventType,
		"mood":       ev.Mood,
		"created_at": ev.CreatedAt,
		"updated_at": ev.UpdatedAt,
	}
}
