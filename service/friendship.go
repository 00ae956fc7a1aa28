package service

import (
	"errors"
	"time"

	"github.com/ayutane/daylink/apperr"
	"github.com/ayutane/daylink/model"
	"gorm.io/gorm"
)

// FriendshipService owns the pairwise relationship state machine.
type FriendshipService struct {
	db    *gorm.DB
	users *UserService
}

// NewFriendshipService creates a FriendshipService.
func NewFriendshipService(db *gorm.DB, users *UserService) *FriendshipService {
	return &FriendshipService{db: db, users: users}
}

// canonicalPair orders two user ids ascending. Every read and write of the
// friendships table goes through this one function so the unordered pair
// always maps to the same row.
func canonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// find returns the row for the unordered pair, or nil when absent.
func (s *FriendshipService) find(a, b int64) (*model.Friendship, error) {
	lo, hi := canonicalPair(a, b)
	var f model.Friendship
	err := s.db.Where("user_id = ? AND friend_id = ?", lo, hi).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return &f, nil
}

// getByID returns the row or a not-found error.
func (s *FriendshipService) getByID(id int64) (*model.Friendship, error) {
	var f model.Friendship
	if err := s.db.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "friend request not found")
		}
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return &f, nil
}

func onRow(f *model.Friendship, userID int64) bool {
	return f.UserID == userID || f.FriendID == userID
}

// counterpartID returns the other side of the pair for the given viewer.
func counterpartID(f *model.Friendship, viewerID int64) int64 {
	if f.UserID == viewerID {
		return f.FriendID
	}
	return f.UserID
}

// SendRequest creates or revives a pending request from requester to the
// named user. It returns the row and the counterpart profile.
func (s *FriendshipService) SendRequest(requesterID int64, targetUsername string) (*model.Friendship, *model.User, error) {
	target, err := s.users.GetByUsername(targetUsername)
	if err != nil {
		return nil, nil, err
	}
	if target.ID == requesterID {
		return nil, nil, apperr.New(apperr.Validation, "cannot add yourself as a friend")
	}

	existing, err := s.find(requesterID, target.ID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		switch existing.Status {
		case model.FriendshipAccepted:
			return nil, nil, apperr.New(apperr.Conflict, "you are already friends")
		case model.FriendshipPending:
			if existing.RequestedBy == requesterID {
				return nil, nil, apperr.New(apperr.Conflict, "friend request already sent")
			}
			return nil, nil, apperr.New(apperr.Conflict, "this user has already sent you a friend request")
		case model.FriendshipBlocked:
			return nil, nil, apperr.New(apperr.Forbidden, "cannot add this user as a friend")
		case model.FriendshipRejected:
			// A rejected pair may be re-requested: reset to a fresh pending
			// request from the current caller.
			updates := map[string]interface{}{
				"requested_by": requesterID,
				"status":       model.FriendshipPending,
				"requested_at": time.Now(),
			}
			if err := s.db.Model(existing).Updates(updates).Error; err != nil {
				return nil, nil, apperr.Wrap(err, apperr.Internal, "internal server error")
			}
			revived, err := s.getByID(existing.ID)
			if err != nil {
				return nil, nil, err
			}
			return revived, target, nil
		}
	}

	lo, hi := canonicalPair(requesterID, target.ID)
	f := &model.Friendship{
		UserID:      lo,
		FriendID:    hi,
		RequestedBy: requesterID,
		Status:      model.FriendshipPending,
		RequestedAt: time.Now(),
	}
	if err := s.db.Create(f).Error; err != nil {
		// Concurrent requests for the same pair race past find(); the unique
		// pair index turns the loser into a conflict.
		if isUniqueViolation(err) {
			return nil, nil, apperr.New(apperr.Conflict, "friend request already sent")
		}
		return nil, nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return f, target, nil
}

// requireRecipient checks that caller is the party the request was sent to.
func requireRecipient(f *model.Friendship, callerID int64) error {
	if !onRow(f, callerID) || f.RequestedBy == callerID {
		return apperr.New(apperr.Forbidden, "not allowed to act on this friend request")
	}
	return nil
}

// Accept transitions a pending request to accepted. Only the recipient may
// accept.
func (s *FriendshipService) Accept(callerID, friendshipID int64) (*model.Friendship, error) {
	return s.resolve(callerID, friendshipID, model.FriendshipAccepted)
}

// Reject transitions a pending request to rejected. Only the recipient may
// reject. The row persists so the requester can still see the outcome.
func (s *FriendshipService) Reject(callerID, friendshipID int64) (*model.Friendship, error) {
	return s.resolve(callerID, friendshipID, model.FriendshipRejected)
}

func (s *FriendshipService) resolve(callerID, friendshipID int64, status string) (*model.Friendship, error) {
	f, err := s.getByID(friendshipID)
	if err != nil {
		return nil, err
	}
	if err := requireRecipient(f, callerID); err != nil {
		return nil, err
	}
	if f.Status != model.FriendshipPending {
		return nil, apperr.New(apperr.Validation, "friend request is not pending")
	}
	if err := s.db.Model(f).Update("status", status).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return s.getByID(friendshipID)
}

// DeleteByUsername removes the relationship with the named user in any
// status. Either party may delete.
func (s *FriendshipService) DeleteByUsername(callerID int64, friendUsername string) error {
	target, err := s.users.GetByUsername(friendUsername)
	if err != nil {
		return err
	}
	if target.ID == callerID {
		return apperr.New(apperr.Validation, "cannot remove yourself")
	}
	f, err := s.find(callerID, target.ID)
	if err != nil {
		return err
	}
	if f == nil {
		return apperr.New(apperr.NotFound, "friendship not found")
	}
	if err := s.db.Delete(&model.Friendship{}, f.ID).Error; err != nil {
		return apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return nil
}

// DeleteByID removes a relationship row by id in any status. Either party
// may delete.
func (s *FriendshipService) DeleteByID(callerID, friendshipID int64) error {
	f, err := s.getByID(friendshipID)
	if err != nil {
		return err
	}
	if !onRow(f, callerID) {
		return apperr.New(apperr.Forbidden, "not allowed to delete this friendship")
	}
	if err := s.db.Delete(&model.Friendship{}, f.ID).Error; err != nil {
		return apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	return nil
}

// FriendEntry is one relationship as seen by a viewer: the counterpart's
// profile plus the relationship metadata.
type FriendEntry struct {
	User         model.User
	FriendshipID int64
	Status       string
	IsSender     bool
	RequestedAt  time.Time
}

// ListForUser returns the viewer's relationships. Pending and rejected rows
// are visible only to their requester here; the receiving side sees pending
// requests through PendingFor instead and never sees rejections it issued.
func (s *FriendshipService) ListForUser(viewerID int64) ([]FriendEntry, error) {
	var rows []model.Friendship
	err := s.db.
		Where("user_id = ? OR friend_id = ?", viewerID, viewerID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}

	visible := rows[:0]
	ids := make([]int64, 0, len(rows))
	for i := range rows {
		f := rows[i]
		if (f.Status == model.FriendshipPending || f.Status == model.FriendshipRejected) &&
			f.RequestedBy != viewerID {
			continue
		}
		visible = append(visible, f)
		ids = append(ids, counterpartID(&f, viewerID))
	}

	profiles, err := s.usersByID(ids)
	if err != nil {
		return nil, err
	}

	entries := make([]FriendEntry, 0, len(visible))
	for i := range visible {
		f := visible[i]
		u, ok := profiles[counterpartID(&f, viewerID)]
		if !ok {
			continue
		}
		entries = append(entries, FriendEntry{
			User:         u,
			FriendshipID: f.ID,
			Status:       f.Status,
			IsSender:     f.RequestedBy == viewerID,
			RequestedAt:  f.RequestedAt,
		})
	}
	return entries, nil
}

// PendingRequest is an incoming friend request with the requester's profile.
type PendingRequest struct {
	Friendship model.Friendship
	Requester  model.User
}

// PendingFor returns the viewer's inbox: pending rows where the viewer is
// the recipient, newest request first.
func (s *FriendshipService) PendingFor(viewerID int64) ([]PendingRequest, error) {
	var rows []model.Friendship
	err := s.db.
		Where("(user_id = ? OR friend_id = ?) AND status = ? AND requested_by <> ?",
			viewerID, viewerID, model.FriendshipPending, viewerID).
		Order("requested_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}

	ids := make([]int64, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].RequestedBy)
	}
	profiles, err := s.usersByID(ids)
	if err != nil {
		return nil, err
	}

	requests := make([]PendingRequest, 0, len(rows))
	for i := range rows {
		u, ok := profiles[rows[i].RequestedBy]
		if !ok {
			continue
		}
		requests = append(requests, PendingRequest{Friendship: rows[i], Requester: u})
	}
	return requests, nil
}

// Verify reports whether a and b are accepted friends.
func (s *FriendshipService) Verify(a, b int64) (bool, error) {
	f, err := s.find(a, b)
	if err != nil {
		return false, err
	}
	return f != nil && f.Status == model.FriendshipAccepted, nil
}

func (s *FriendshipService) usersByID(ids []int64) (map[int64]model.User, error) {
	out := make(map[int64]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.Internal, "internal server error")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
