package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ridedesk/internal/ids"
	"ridedesk/internal/kyc"
	"ridedesk/internal/lifecycle"
	"ridedesk/internal/media/capture"
	"ridedesk/internal/models"
	"ridedesk/internal/realtime"
	"ridedesk/internal/storage"
	"ridedesk/internal/wizard"
)

var (
	ErrNotDriver          = errors.New("only drivers can be verified")
	ErrAlreadySubmitted   = errors.New("verification already submitted")
	ErrAlreadyVerified    = errors.New("user already verified")
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrVerificationFailed = errors.New("verification could not be completed")
)

type Normalizer interface {
	Normalize(data []byte, declaredMIME string, spec capture.Spec) ([]byte, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, sub kyc.Submission) (kyc.Outcome, error)
}

type VerificationService struct {
	users         UserStore
	drafts        DraftStore
	captures      CaptureStore
	normalizer    Normalizer
	evaluator     Evaluator
	verifications VerificationStore
	notifications *NotificationService
	events        EventPublisher
	lockTTL       time.Duration
	log           zerolog.Logger
	now           func() time.Time
}

func NewVerificationService(
	users UserStore,
	drafts DraftStore,
	captures CaptureStore,
	normalizer Normalizer,
	evaluator Evaluator,
	verifications VerificationStore,
	notifications *NotificationService,
	events EventPublisher,
	modelTimeout time.Duration,
	log zerolog.Logger,
) *VerificationService {
	return &VerificationService{
		users:         users,
		drafts:        drafts,
		captures:      captures,
		normalizer:    normalizer,
		evaluator:     evaluator,
		verifications: verifications,
		notifications: notifications,
		events:        events,
		lockTTL:       modelTimeout + time.Minute,
		log:           log,
		now:           time.Now,
	}
}

// DraftView is the wizard state returned to the driver.
type DraftView struct {
	Draft   wizard.Draft
	Missing []string
	Specs   []capture.Spec
}

func newDraftView(d wizard.Draft) DraftView {
	return DraftView{Draft: d, Missing: d.Missing(), Specs: capture.Specs()}
}

// Start opens a fresh draft, discarding any earlier one and its captures.
func (s *VerificationService) Start(ctx context.Context, userID string) (DraftView, error) {
	if _, err := s.eligibleDriver(ctx, userID); err != nil {
		return DraftView{}, err
	}

	locked, err := s.drafts.Locked(ctx, userID)
	if err != nil {
		return DraftView{}, err
	}
	if locked {
		return DraftView{}, ErrSubmissionInFlight
	}
	if old, err := s.drafts.Load(ctx, userID); err == nil {
		s.discardCaptures(ctx, old)
	} else if !errors.Is(err, wizard.ErrDraftNotFound) {
		return DraftView{}, err
	}

	d := wizard.NewDraft(ids.New(), userID, s.now())
	if err := s.drafts.Save(ctx, d); err != nil {
		return DraftView{}, err
	}
	return newDraftView(d), nil
}

func (s *VerificationService) Get(ctx context.Context, userID string) (DraftView, error) {
	d, err := s.load(ctx, userID)
	if err != nil {
		return DraftView{}, err
	}
	return newDraftView(d), nil
}

func (s *VerificationService) SelectVehicle(ctx context.Context, userID string, vehicle models.VehicleType) (DraftView, error) {
	return s.mutate(ctx, userID, func(d *wizard.Draft) error {
		return d.SelectVehicle(vehicle)
	})
}

func (s *VerificationService) Navigate(ctx context.Context, userID string, step wizard.Step) (DraftView, error) {
	return s.mutate(ctx, userID, func(d *wizard.Draft) error {
		return d.GoTo(step)
	})
}

type CaptureInput struct {
	Type         models.CaptureType
	Data         []byte
	DeclaredMIME string
}

// AttachCapture normalizes a frame for the current step and stages it in object storage.
func (s *VerificationService) AttachCapture(ctx context.Context, userID string, input CaptureInput) (DraftView, error) {
	spec, err := capture.SpecFor(input.Type)
	if err != nil {
		return DraftView{}, err
	}

	d, err := s.load(ctx, userID)
	if err != nil {
		return DraftView{}, err
	}
	// Reject before the resize work when the frame cannot be attached.
	if d.Phase != wizard.PhaseCapturing {
		return DraftView{}, wizard.ErrDraftLocked
	}
	if step, _ := wizard.StepOf(input.Type); step != d.Step {
		return DraftView{}, wizard.ErrWrongStep
	}

	frame, err := s.normalizer.Normalize(input.Data, input.DeclaredMIME, spec)
	if err != nil {
		return DraftView{}, err
	}

	key := storage.CaptureKey(userID, d.ID, string(input.Type))
	if err := s.captures.Put(ctx, key, frame, capture.MIMEType); err != nil {
		return DraftView{}, fmt.Errorf("stage capture: %w", err)
	}
	if _, err := d.Attach(input.Type, key); err != nil {
		return DraftView{}, err
	}
	d.UpdatedAt = s.now()
	if err := s.drafts.Save(ctx, d); err != nil {
		return DraftView{}, err
	}
	return newDraftView(d), nil
}

// Retake drops a capture so the step can be shot again.
func (s *VerificationService) Retake(ctx context.Context, userID string, c models.CaptureType) (DraftView, error) {
	var removed string
	view, err := s.mutate(ctx, userID, func(d *wizard.Draft) error {
		key, err := d.Retake(c)
		removed = key
		return err
	})
	if err != nil {
		return DraftView{}, err
	}
	if removed != "" {
		if err := s.captures.Remove(ctx, removed); err != nil {
			s.log.Warn().Err(err).Str("key", removed).Msg("remove retaken capture failed")
		}
	}
	return view, nil
}

type SubmitResult struct {
	Status     models.VerificationStatus
	Decision   string
	UserStatus models.UserStatus
}

// Submit runs the automated checks on a complete draft. The driver is marked
// pending before the checks; any failure rolls that back and keeps the draft
// for another attempt.
func (s *VerificationService) Submit(ctx context.Context, userID string) (SubmitResult, error) {
	user, err := s.eligibleDriver(ctx, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := lifecycle.CanTransitionUser(user.Status, models.UserStatusPending, lifecycle.ActorDriver); err != nil {
		return SubmitResult{}, err
	}

	locked, err := s.drafts.Lock(ctx, userID, s.lockTTL)
	if err != nil {
		return SubmitResult{}, err
	}
	if !locked {
		return SubmitResult{}, ErrSubmissionInFlight
	}
	defer func() {
		if err := s.drafts.Unlock(context.WithoutCancel(ctx), userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("release submission lock failed")
		}
	}()

	d, err := s.drafts.Load(ctx, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	// Holding the lock means no other submission owns this draft.
	if d.Phase == wizard.PhaseSubmitting {
		d.FailSubmit()
	}
	if err := d.BeginSubmit(); err != nil {
		return SubmitResult{}, err
	}
	if err := s.drafts.Save(ctx, d); err != nil {
		return SubmitResult{}, err
	}

	if err := s.users.UpdateStatus(ctx, userID, models.UserStatusUnverified, models.UserStatusPending); err != nil {
		s.restoreDraft(ctx, d)
		return SubmitResult{}, err
	}
	publishEvent(ctx, s.events, s.log, realtime.EventUserStatus, userID, map[string]string{"status": string(models.UserStatusPending)})

	outcome, err := s.evaluate(ctx, d)
	var notice models.Notification
	if err == nil {
		notice, err = s.record(ctx, d, outcome)
	}
	if err != nil {
		s.rollback(ctx, d, err)
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	s.notifications.push(ctx, notice)

	d.Finish()
	if err := s.drafts.Delete(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("delete submitted draft failed")
	}
	s.discardCaptures(ctx, d)

	s.log.Info().
		Str("user_id", userID).
		Str("status", string(outcome.Status)).
		Msg("verification submitted")

	return SubmitResult{
		Status:     outcome.Status,
		Decision:   outcome.Decision,
		UserStatus: models.UserStatusPending,
	}, nil
}

func (s *VerificationService) evaluate(ctx context.Context, d wizard.Draft) (kyc.Outcome, error) {
	images := make(map[models.CaptureType]kyc.Image, len(d.Captures))
	for c, key := range d.Captures {
		data, err := s.captures.Get(ctx, key)
		if err != nil {
			return kyc.Outcome{}, fmt.Errorf("load %s: %w", c, err)
		}
		images[c] = kyc.Image{MIMEType: capture.MIMEType, Data: data}
	}
	return s.evaluator.Evaluate(ctx, kyc.Submission{VehicleType: d.VehicleType, Captures: images})
}

// record persists the decision together with the driver's notice; neither is
// stored without the other.
func (s *VerificationService) record(ctx context.Context, d wizard.Draft, outcome kyc.Outcome) (models.Notification, error) {
	v := models.Verification{
		ID:          ids.New(),
		UserID:      d.UserID,
		VehicleType: d.VehicleType,
		Status:      outcome.Status,
		Decision:    outcome.Decision,
		Documents:   outcome.Documents,
		Facial:      outcome.Facial,
	}
	notice := newNotification(d.UserID, StatusMessage(string(outcome.Status), outcome.Decision), DriverDashboardLink)
	if err := s.verifications.Create(ctx, v, notice); err != nil {
		return models.Notification{}, fmt.Errorf("persist verification: %w", err)
	}
	return notice, nil
}

func (s *VerificationService) rollback(ctx context.Context, d wizard.Draft, cause error) {
	ctx = context.WithoutCancel(ctx)
	s.log.Error().Err(cause).Str("user_id", d.UserID).Msg("verification submission failed")

	if err := s.users.UpdateStatus(ctx, d.UserID, models.UserStatusPending, models.UserStatusUnverified); err != nil {
		s.log.Error().Err(err).Str("user_id", d.UserID).Msg("revert driver status failed")
	} else {
		publishEvent(ctx, s.events, s.log, realtime.EventUserStatus, d.UserID, map[string]string{"status": string(models.UserStatusUnverified)})
	}
	s.restoreDraft(ctx, d)
}

func (s *VerificationService) restoreDraft(ctx context.Context, d wizard.Draft) {
	d.FailSubmit()
	d.UpdatedAt = s.now()
	if err := s.drafts.Save(context.WithoutCancel(ctx), d); err != nil {
		s.log.Error().Err(err).Str("user_id", d.UserID).Msg("restore draft failed")
	}
}

func (s *VerificationService) mutate(ctx context.Context, userID string, fn func(d *wizard.Draft) error) (DraftView, error) {
	d, err := s.load(ctx, userID)
	if err != nil {
		return DraftView{}, err
	}
	if err := fn(&d); err != nil {
		return DraftView{}, err
	}
	d.UpdatedAt = s.now()
	if err := s.drafts.Save(ctx, d); err != nil {
		return DraftView{}, err
	}
	return newDraftView(d), nil
}

// load returns the user's draft. A draft left submitting by a submission that
// no longer holds the lock is reopened for another attempt.
func (s *VerificationService) load(ctx context.Context, userID string) (wizard.Draft, error) {
	d, err := s.drafts.Load(ctx, userID)
	if err != nil || d.Phase != wizard.PhaseSubmitting {
		return d, err
	}
	locked, err := s.drafts.Locked(ctx, userID)
	if err != nil {
		return wizard.Draft{}, err
	}
	if !locked {
		d.FailSubmit()
	}
	return d, nil
}

func (s *VerificationService) eligibleDriver(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if user.Role != models.UserRoleDriver {
		return models.User{}, ErrNotDriver
	}
	switch user.Status {
	case models.UserStatusPending:
		return models.User{}, ErrAlreadySubmitted
	case models.UserStatusVerified:
		return models.User{}, ErrAlreadyVerified
	case models.UserStatusSuspended:
		return models.User{}, ErrUserSuspended
	}
	return user, nil
}

func (s *VerificationService) discardCaptures(ctx context.Context, d wizard.Draft) {
	if _, err := s.captures.RemovePrefix(context.WithoutCancel(ctx), storage.DraftPrefix(d.UserID, d.ID)); err != nil {
		s.log.Warn().Err(err).Str("user_id", d.UserID).Msg("discard draft captures failed")
	}
}

// LatestDecision returns the driver's most recent automated decision, if any.
func (s *VerificationService) LatestDecision(ctx context.Context, userID string) (*models.Verification, error) {
	v, err := s.verifications.LatestByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
