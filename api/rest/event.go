package rest

import (
	"net/http"
	"strconv"
	"strings"

	mw "github.com/ayutane/daylink/middleware"
	"github.com/ayutane/daylink/service"
	"github.com/ayutane/daylink/upload"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventHandler handles the event CRUD endpoints.
type EventHandler struct {
	events *service.EventService
	store  *upload.Store
	log    *zap.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *service.EventService, store *upload.Store, log *zap.Logger) *EventHandler {
	return &EventHandler{events: events, store: store, log: log}
}

func isJSONRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json")
}

type createEventJSON struct {
	EventDate string `json:"event_date"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	EventType string `json:"event_type"`
	Mood      string `json:"mood"`
	ImageURL  string `json:"image_url"`
}

// Create handles POST /api/events. Accepts multipart form (optional image
// file) or plain JSON.
func (h *EventHandler) Create(c *gin.Context) {
	userID := mw.GetUserID(c)

	var params service.CreateEventParams
	uploadedFile := ""

	if isJSONRequest(c) {
		var req createEventJSON
		if err := c.ShouldBindJSON(&req); err != nil {
			respondFail(c, http.StatusBadRequest, "invalid request body", "validation error")
			return
		}
		if req.EventDate == "" || req.Title == "" || req.Content == "" {
			respondFail(c, http.StatusBadRequest, "event date, title and content are required", "validation error")
			return
		}
		date, err := parseDate(req.EventDate)
		if err != nil {
			respondFail(c, http.StatusBadRequest, "invalid event date", "validation error")
			return
		}
		params = service.CreateEventParams{
			EventDate: date,
			Title:     req.Title,
			Content:   req.Content,
			EventType: req.EventType,
		}
		if req.Mood != "" {
			params.Mood = &req.Mood
		}
		if req.ImageURL != "" {
			params.ImageURL = &req.ImageURL
		}
	} else {
		dateStr := c.PostForm("event_date")
		title := c.PostForm("title")
		content := c.PostForm("content")
		if dateStr == "" || title == "" || content == "" {
			respondFail(c, http.StatusBadRequest, "event date, title and content are required", "validation error")
			return
		}
		date, err := parseDate(dateStr)
		if err != nil {
			respondFail(c, http.StatusBadRequest, "invalid event date", "validation error")
			return
		}
		params = service.CreateEventParams{
			EventDate: date,
			Title:     title,
			Content:   content,
			EventType: c.PostForm("event_type"),
		}
		if mood := c.PostForm("mood"); mood != "" {
			params.Mood = &mood
		}
		if fh, err := c.FormFile("image"); err == nil {
			ref, err := h.store.SaveEventImage(fh)
			if err != nil {
				respondError(c, err)
				return
			}
			uploadedFile = ref
			params.ImageURL = &ref
		}
	}

	ev, err := h.events.Create(userID, params)
	if err != nil {
		// DB write failed: remove the freshly stored image rather than
		// orphaning it.
		if uploadedFile != "" {
			_ = h.store.Remove(uploadedFile)
		}
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, eventJSON(c, ev), "event created")
}

// List handles GET /api/events.
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.events.ListByUser(mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(events))
	for i := range events {
		out = append(out, eventJSON(c, &events[i]))
	}
	respond(c, http.StatusOK, out, "")
}

// GetByID handles GET /api/events/:id.
func (h *EventHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid event id", "validation error")
		return
	}
	ev, err := h.events.GetOwned(id, mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, eventJSON(c, ev), "")
}

type updateEventJSON struct {
	EventDate   *string `json:"event_date"`
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	EventType   *string `json:"event_type"`
	Mood        *string `json:"mood"`
	RemoveImage bool    `json:"remove_image"`
}

// Update handles PUT /api/events/:id. Only supplied fields change; image
// precedence is new upload > explicit removal > keep current.
func (h *EventHandler) Update(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid event id", "validation error")
		return
	}

	existing, err := h.events.GetOwned(id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	oldImage := ""
	if existing.ImageURL != nil {
		oldImage = *existing.ImageURL
	}

	var params service.UpdateEventParams
	uploadedFile := ""

	if isJSONRequest(c) {
		var req updateEventJSON
		if err := c.ShouldBindJSON(&req); err != nil {
			respondFail(c, http.StatusBadRequest, "invalid request body", "validation error")
			return
		}
		if req.EventDate != nil {
			date, err := parseDate(*req.EventDate)
			if err != nil {
				respondFail(c, http.StatusBadRequest, "invalid event date", "validation error")
				return
			}
			params.EventDate = &date
		}
		params.Title = req.Title
		params.Content = req.Content
		params.EventType = req.EventType
		params.Mood = req.Mood
		params.ClearImage = req.RemoveImage
	} else {
		if v, ok := c.GetPostForm("event_date"); ok {
			date, err := parseDate(v)
			if err != nil {
				respondFail(c, http.StatusBadRequest, "invalid event date", "validation error")
				return
			}
			params.EventDate = &date
		}
		if v, ok := c.GetPostForm("title"); ok {
			params.Title = &v
		}
		if v, ok := c.GetPostForm("content"); ok {
			params.Content = &v
		}
		if v, ok := c.GetPostForm("event_type"); ok {
			params.EventType = &v
		}
		if v, ok := c.GetPostForm("mood"); ok {
			params.Mood = &v
		}
		params.ClearImage = c.PostForm("remove_image") == "true"

		if fh, err := c.FormFile("image"); err == nil {
			ref, err := h.store.SaveEventImage(fh)
			if err != nil {
				respondError(c, err)
				return
			}
			uploadedFile = ref
			params.ImageURL = &ref
			params.ClearImage = false
		}
	}

	ev, err := h.events.Update(id, userID, params)
	if err != nil {
		if uploadedFile != "" {
			_ = h.store.Remove(uploadedFile)
		}
		respondError(c, err)
		return
	}

	// The row is committed; old file cleanup is best-effort from here.
	if oldImage != "" && (uploadedFile != "" || params.ClearImage) {
		if err := h.store.Remove(oldImage); err != nil {
			h.log.Warn("event image cleanup failed",
				zap.Int64("event_id", id), zap.String("ref", oldImage), zap.Error(err))
		}
	}

	respond(c, http.StatusOK, eventJSON(c, ev), "event updated")
}

// Delete handles DELETE /api/events/:id. The row deletion is final; file
// deletion afterwards is best-effort and never fails the request.
func (h *EventHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid event id", "validation error")
		return
	}

	ev, err := h.events.Delete(id, mw.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if ev.ImageURL != nil {
		if err := h.store.Remove(*ev.ImageURL); err != nil {
			h.log.Warn("event image cleanup failed",
				zap.Int64("event_id", id), zap.String("ref", *ev.ImageURL), zap.Error(err))
		}
	}

	respond(c, http.StatusOK, nil, "event deleted")
}
