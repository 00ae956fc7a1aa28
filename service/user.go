package service

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"

	"github.com/ayutane/daylink/apperr"
	"github.com/ayutane/daylink/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Letters, digits, underscore and CJK ideographs, 2-50 characters.
	usernameRe = regexp.MustCompile(`^[\x{4e00}-\x{9fa5}a-zA-Z0-9_]{2,50}$`)
	colorRe    = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

const bcryptCost = 10

// UserService owns user records, credentials and search.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Create registers a new user and assigns a random accent color.
func (s *UserService) Create(email, username, password string) (*model.User, error) {
	if !emailRe.MatchString(email) {
		return nil, apperr.New(apperr.Validation, "invalid email format")
	}
	if !usernameRe.MatchString(username) {
		return nil, apperr.New(apperr.Validation, "username may contain letters, digits, underscores and CJK characters, 2-50 characters long")
	}
	if len(password) < 6 {
		return nil, apperr.New(apperr.Validation, "password must be at least 6 characters")
	}

	var existing model.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperr.New(apperr.Conflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	if err := s.db.Where("username = ?", username).First(&existing).Error; err == nil {
		return nil, apperr.New(apperr.Conflict, "username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Color:        randomColor(),
	}
	if err := s.db.Create(user).Error; err != nil {
		// The unique indexes close the race the pre-checks leave open.
		if isUniqueViolation(err) {
			return nil, apperr.New(apperr.Conflict, "email or username already taken")
		}
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return user, nil
}

// Validate checks email+password credentials. Unknown email and wrong
// password surface identically so callers cannot probe which field failed.
func (s *UserService) Validate(email, password string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.Unauthorized, "invalid email or password")
		}
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid email or password")
	}
	return &user, nil
}

// GetByID returns the user with the given id.
func (s *UserService) GetByID(id int64) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return &user, nil
}

// GetByUsername returns the user with the given username.
func (s *UserService) GetByUsername(username string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return &user, nil
}

// searchLimit caps search results.
const searchLimit = 10

// Search finds users by username, or by email when the query itself looks
// like an email. Matching is case-insensitive substring; the caller is
// always excluded.
func (s *UserService) Search(query string, selfID int64) ([]model.User, error) {
	q := strings.TrimSpace(query)
	if len(q) < 2 {
		return []model.User{}, nil
	}

	pattern := "%" + strings.ToLower(q) + "%"
	tx := s.db.Where("id <> ?", selfID).Limit(searchLimit)
	if emailRe.MatchString(q) {
		tx = tx.Where("LOWER(email) LIKE ?", pattern)
	} else {
		tx = tx.Where("LOWER(username) LIKE ?", pattern)
	}

	var users []model.User
	if err := tx.Find(&users).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return users, nil
}

// UpdateParams are the optional self-service profile changes. Zero values
// mean "leave unchanged"; AvatarURL is set only when a new avatar was
// uploaded.
type UpdateParams struct {
	Username        string
	Color           string
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
	AvatarURL       *string
}

// Update applies a partial profile update and returns the updated user plus
// the previous avatar reference when the avatar was replaced (so the caller
// can delete the old file after the write committed).
func (s *UserService) Update(id int64, params UpdateParams) (*model.User, string, error) {
	current, err := s.GetByID(id)
	if err != nil {
		return nil, "", err
	}

	updates := map[string]interface{}{}
	oldAvatar := ""

	if params.Username != "" && params.Username != current.Username {
		if !usernameRe.MatchString(params.Username) {
			return nil, "", apperr.New(apperr.Validation, "username may contain letters, digits, underscores and CJK characters, 2-50 characters long")
		}
		var other model.User
		if err := s.db.Where("username = ? AND id <> ?", params.Username, id).First(&other).Error; err == nil {
			return nil, "", apperr.New(apperr.Validation, "username already taken")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperr.Wrap(err, apperr.Internal, "internal server error")
		}
		updates["username"] = params.Username
	}

	if params.Color != "" {
		if !colorRe.MatchString(params.Color) {
			return nil, "", apperr.New(apperr.Validation, "color must be in #RRGGBB format")
		}
		updates["color"] = params.Color
	}

	if params.NewPassword != "" {
		// Note the asymmetry with registration: password changes require 8+.
		if len(params.NewPassword) < 8 {
			return nil, "", apperr.New(apperr.Validation, "new password must be at least 8 characters")
		}
		if params.NewPassword != params.ConfirmPassword {
			return nil, "", apperr.New(apperr.Validation, "new password and confirmation do not match")
		}
		if params.OldPassword == "" {
			return nil, "", apperr.New(apperr.Validation, "old password is required to change password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(current.PasswordHash), []byte(params.OldPassword)); err != nil {
			return nil, "", apperr.New(apperr.Validation, "old password is incorrect")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), bcryptCost)
		if err != nil {
			return nil, "", apperr.Wrap(err, apperr.Internal, "internal server error")
		}
		updates["password_hash"] = string(hash)
	}

	if params.AvatarURL != nil {
		oldAvatar = current.AvatarURL
		updates["avatar_url"] = *params.AvatarURL
	}

	if len(updates) == 0 {
		return nil, "", apperr.New(apperr.Validation, "no fields to update")
	}

	if err := s.db.Model(current).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, "", apperr.New(apperr.Validation, "username already taken")
		}
		return nil, "", apperr.Wrap(err, apperr.Internal, "internal server error")
	}

	updated, err := s.GetByID(id)
	if err != nil {
		return nil, "", err
	}
	return updated, oldAvatar, nil
}

// randomColor samples HSL with hue uniform, saturation in [40,100) and
// lightness in [30,70), which keeps accents vivid and never near-white.
func randomColor() string {
	h := rand.Intn(360)
	s := rand.Intn(60) + 40
	l := rand.Intn(40) + 30
	r, g, b := hslToRGB(float64(h), float64(s)/100, float64(l)/100)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return uint8(math.Round((r + m) * 255)),
		uint8(math.Round((g + m) * 255)),
		uint8(math.Round((b + m) * 255))
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
