package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ridedesk/internal/identity"
	"ridedesk/internal/lifecycle"
	"ridedesk/internal/models"
	"ridedesk/internal/queue"
	"ridedesk/internal/realtime"
	"ridedesk/internal/repository"
)

var (
	ErrCannotDeleteSelf = errors.New("cannot delete own account")
	ErrUserIDRequired   = errors.New("user id required")
	ErrNotPending       = errors.New("user is not awaiting review")
)

// DriverDashboardLink is where drivers follow up on verification notifications.
const DriverDashboardLink = "/rider/dashboard"

type UserService struct {
	users         UserStore
	sessions      SessionStore
	verifications VerificationStore
	purger        UserPurger
	identity      identity.Provider
	tasks         TaskQueue
	notifications *NotificationService
	events        EventPublisher
	log           zerolog.Logger
}

func NewUserService(
	users UserStore,
	sessions SessionStore,
	verifications VerificationStore,
	purger UserPurger,
	provider identity.Provider,
	tasks TaskQueue,
	notifications *NotificationService,
	events EventPublisher,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:         users,
		sessions:      sessions,
		verifications: verifications,
		purger:        purger,
		identity:      provider,
		tasks:         tasks,
		notifications: notifications,
		events:        events,
		log:           log,
	}
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	if err := checkUserFilter(filter); err != nil {
		return nil, err
	}
	return s.users.List(ctx, filter)
}

func checkUserFilter(filter models.UserFilter) error {
	if filter.Role != "" && !filter.Role.Valid() {
		return ErrInvalidRole
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return lifecycle.ErrInvalidTransition
	}
	return nil
}

type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Status    *models.UserStatus
}

// Update edits profile fields and, when requested, moves the status through the admin table.
func (s *UserService) Update(ctx context.Context, actorID, id string, input UpdateUserInput) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if input.FirstName != nil || input.LastName != nil || input.Phone != nil {
		if input.FirstName != nil {
			user.FirstName = strings.TrimSpace(*input.FirstName)
		}
		if input.LastName != nil {
			user.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.Phone != nil {
			user.Phone = strings.TrimSpace(*input.Phone)
		}
		if err := s.users.UpdateProfile(ctx, user); err != nil {
			return models.User{}, err
		}
	}

	if input.Status != nil && *input.Status != user.Status {
		if err := s.setStatus(ctx, actorID, &user, *input.Status); err != nil {
			return models.User{}, err
		}
	}
	return user, nil
}

func (s *UserService) setStatus(ctx context.Context, actorID string, user *models.User, to models.UserStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", lifecycle.ErrInvalidTransition, to)
	}
	if err := lifecycle.CanTransitionUser(user.Status, to, lifecycle.ActorAdmin); err != nil {
		return err
	}
	if err := s.users.UpdateStatus(ctx, user.ID, user.Status, to); err != nil {
		return err
	}
	s.log.Info().
		Str("actor_id", actorID).
		Str("user_id", user.ID).
		Str("from", string(user.Status)).
		Str("to", string(to)).
		Msg("user status changed")
	user.Status = to
	if to == models.UserStatusSuspended {
		if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("revoke sessions of suspended user failed")
		}
	}
	publishEvent(ctx, s.events, s.log, realtime.EventUserStatus, user.ID, map[string]string{"status": string(to)})
	return nil
}

type PendingReview struct {
	User         models.User
	Verification *models.Verification
}

// ListPending returns drivers awaiting review together with their latest automated decision.
func (s *UserService) ListPending(ctx context.Context, limit, offset int) ([]PendingReview, error) {
	users, err := s.users.List(ctx, models.UserFilter{
		Role:   models.UserRoleDriver,
		Status: models.UserStatusPending,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	out := make([]PendingReview, 0, len(users))
	for _, u := range users {
		review := PendingReview{User: u}
		v, err := s.verifications.LatestByUser(ctx, u.ID)
		switch {
		case err == nil:
			review.Verification = &v
		case errors.Is(err, repository.ErrVerificationNotFound):
		default:
			return nil, err
		}
		out = append(out, review)
	}
	return out, nil
}

// Approve verifies a pending driver.
func (s *UserService) Approve(ctx context.Context, actorID, userID string) (models.User, error) {
	return s.review(ctx, actorID, userID, models.ReviewApproved, "Approved by an administrator.")
}

// Reject returns a pending driver to unverified so they can resubmit.
func (s *UserService) Reject(ctx context.Context, actorID, userID, reason string) (models.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Rejected by an administrator."
	}
	return s.review(ctx, actorID, userID, models.ReviewRejected, reason)
}

func (s *UserService) review(ctx context.Context, actorID, userID string, outcome models.ReviewOutcome, reason string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if user.Status != models.UserStatusPending {
		return models.User{}, ErrNotPending
	}

	to := models.UserStatusVerified
	if outcome == models.ReviewRejected {
		to = models.UserStatusUnverified
	}
	if err := s.setStatus(ctx, actorID, &user, to); err != nil {
		return models.User{}, err
	}

	if err := s.verifications.RecordReview(ctx, userID, actorID, outcome); err != nil {
		if !errors.Is(err, repository.ErrVerificationNotFound) {
			return models.User{}, fmt.Errorf("record review: %w", err)
		}
		s.log.Warn().Str("user_id", userID).Msg("review recorded without verification record")
	}

	if _, err := s.notifications.Notify(ctx, userID, StatusMessage(string(to), reason), DriverDashboardLink); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("review notification failed")
	}
	return user, nil
}

type DeleteUserResult struct {
	Success bool
	Message string
}

// DeleteUser removes an account and everything it owns. Deleting an absent user succeeds.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) (DeleteUserResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DeleteUserResult{}, ErrUserIDRequired
	}
	if userID == actorID {
		return DeleteUserResult{}, ErrCannotDeleteSelf
	}

	user, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		if user.FirebaseUID != nil {
			if err := s.identity.DeleteUser(ctx, *user.FirebaseUID); err != nil {
				return DeleteUserResult{}, err
			}
		}
	case errors.Is(err, repository.ErrUserNotFound):
	default:
		return DeleteUserResult{}, err
	}

	result, err := s.purger.PurgeUser(ctx, userID)
	if err != nil {
		return DeleteUserResult{}, fmt.Errorf("purge user: %w", err)
	}

	if _, err := s.tasks.Enqueue(ctx, queue.Task{Type: queue.TaskMediaPurge, UserID: userID, Reason: "user.deleted"}); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("enqueue media purge failed")
	}

	s.log.Info().
		Str("actor_id", actorID).
		Str("user_id", userID).
		Bool("existed", result.UserExisted).
		Interface("rows", result.Rows).
		Msg("user deleted")

	return DeleteUserResult{
		Success: true,
		Message: fmt.Sprintf("User %s has been successfully deleted.", userID),
	}, nil
}

// StatusMessage is the notification text sent on every verification status change.
func StatusMessage(status, reason string) string {
	return fmt.Sprintf("Your verification status is now: %s. Reason: %s", status, reason)
}
