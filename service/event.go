package service

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ayutane/daylink/apperr"
	"github.com/ayutane/daylink/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxTitleLen is the title limit in characters, not bytes.
const maxTitleLen = 120

var validEventTypes = map[string]bool{
	model.EventTypePlan:   true,
	model.EventTypeRecord: true,
}

var validMoods = map[string]bool{
	model.MoodHappy:   true,
	model.MoodCalm:    true,
	model.MoodSad:     true,
	model.MoodExcited: true,
	model.MoodTired:   true,
}

// EventService owns dated journal/plan entries.
type EventService struct {
	db *gorm.DB
}

// NewEventService creates an EventService.
func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

// CreateEventParams are the fields for a new event.
type CreateEventParams struct {
	EventDate time.Time
	Title     string
	Content   string
	ImageURL  *string
	EventType string
	Mood      *string
}

// Create validates and stores a new event for the given owner.
func (s *EventService) Create(userID int64, p CreateEventParams) (*model.Event, error) {
	if p.EventDate.IsZero() {
		return nil, apperr.New(apperr.Validation, "event date is required")
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, apperr.New(apperr.Validation, "event title is required")
	}
	if utf8.RuneCountInString(p.Title) > maxTitleLen {
		return nil, apperr.New(apperr.Validation, "event title must be at most 120 characters")
	}
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return nil, apperr.New(apperr.Validation, "event content is required")
	}

	eventType := p.EventType
	if eventType == "" {
		eventType = model.EventTypeRecord
	}
	if !validEventTypes[eventType] {
		return nil, apperr.New(apperr.Validation, "event type must be plan or record")
	}

	var mood *string
	if p.Mood != nil && *p.Mood != "" {
		if !validMoods[*p.Mood] {
			return nil, apperr.New(apperr.Validation, "invalid mood")
		}
		mood = p.Mood
	}

	ev := &model.Event{
		UserID:    userID,
		EventDate: datatypes.Date(p.EventDate),
		Title:     title,
		Content:   content,
		ImageURL:  p.ImageURL,
		EventType: eventType,
		Mood:      mood,
	}
	if err := s.db.Create(ev).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return ev, nil
}

// UpdateEventParams carry partial-field update semantics: nil leaves a field
// unchanged. An empty Mood clears it; ClearImage removes the image reference.
type UpdateEventParams struct {
	EventDate  *time.Time
	Title      *string
	Content    *string
	EventType  *string
	Mood       *string
	ImageURL   *string
	ClearImage bool
}

// Update re-verifies ownership, then applies only the supplied fields.
func (s *EventService) Update(id, userID int64, p UpdateEventParams) (*model.Event, error) {
	ev, err := s.GetOwned(id, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if p.EventDate != nil {
		if p.EventDate.IsZero() {
			return nil, apperr.New(apperr.Validation, "event date is required")
		}
		updates["event_date"] = datatypes.Date(*p.EventDate)
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, apperr.New(apperr.Validation, "event title is required")
		}
		if utf8.RuneCountInString(*p.Title) > maxTitleLen {
			return nil, apperr.New(apperr.Validation, "event title must be at most 120 characters")
		}
		updates["title"] = title
	}
	if p.Content != nil {
		content := strings.TrimSpace(*p.Content)
		if content == "" {
			return nil, apperr.New(apperr.Validation, "event content is required")
		}
		updates["content"] = content
	}
	if p.EventType != nil {
		if !validEventTypes[*p.EventType] {
			return nil, apperr.New(apperr.Validation, "event type must be plan or record")
		}
		updates["event_type"] = *p.EventType
	}
	if p.Mood != nil {
		if *p.Mood == "" {
			updates["mood"] = nil
		} else {
			if !validMoods[*p.Mood] {
				return nil, apperr.New(apperr.Validation, "invalid mood")
			}
			updates["mood"] = *p.Mood
		}
	}
	if p.ImageURL != nil {
		updates["image_url"] = *p.ImageURL
	} else if p.ClearImage {
		updates["image_url"] = nil
	}

	if len(updates) > 0 {
		if err := s.db.Model(ev).Updates(updates).Error; err != nil {
			return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
		}
	}
	return s.GetByID(id)
}

// Delete verifies ownership and removes the event, returning the deleted row
// so the caller can clean up the associated image file afterwards.
func (s *EventService) Delete(id, userID int64) (*model.Event, error) {
	ev, err := s.GetOwned(id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Delete(&model.Event{}, id).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return ev, nil
}

// ListByUser returns all events of one owner, most recent event date first.
func (s *EventService) ListByUser(userID int64) ([]model.Event, error) {
	var events []model.Event
	if err := s.db.Where("user_id = ?", userID).Order("event_date DESC").Find(&events).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return events, nil
}

// GetByID returns the event with the given id regardless of owner.
func (s *EventService) GetByID(id int64) (*model.Event, error) {
	var ev model.Event
	if err := s.db.First(&ev, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "event not found")
		}
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return &ev, nil
}

// GetOwned returns the event only if it belongs to userID. Absence reports
// not-found before ownership reports forbidden.
func (s *EventService) GetOwned(id, userID int64) (*model.Event, error) {
	ev, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ev.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "not allowed to access this event")
	}
	return ev, nil
}
