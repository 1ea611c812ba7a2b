// Package wizard models the driver verification wizard: a vehicle choice followed
// by six camera captures, then a single submission.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"ridedesk/internal/models"
)

var (
	ErrDraftNotFound   = errors.New("verification draft not found")
	ErrDraftLocked     = errors.New("verification draft already submitted")
	ErrInvalidStep     = errors.New("invalid wizard step")
	ErrStepIncomplete  = errors.New("previous wizard step incomplete")
	ErrWrongStep       = errors.New("capture does not belong to the current step")
	ErrInvalidVehicle  = errors.New("invalid vehicle type")
	ErrDraftIncomplete = errors.New("verification draft incomplete")
)

type Step int

const (
	StepVehicleSelect Step = iota + 1
	StepLicenseFront
	StepLicenseBack
	StepRegistrationFront
	StepRegistrationBack
	StepVehiclePhoto
	StepFacePhoto
)

const (
	FirstStep = StepVehicleSelect
	LastStep  = StepFacePhoto
)

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Capture returns the photo taken at this step, if any.
func (s Step) Capture() (models.CaptureType, bool) {
	if s <= StepVehicleSelect || s > LastStep {
		return "", false
	}
	return models.CaptureOrder[s-StepLicenseFront], true
}

func (s Step) Name() string {
	if c, ok := s.Capture(); ok {
		return string(c)
	}
	if s == StepVehicleSelect {
		return "vehicle-select"
	}
	return fmt.Sprintf("step-%d", int(s))
}

func StepOf(c models.CaptureType) (Step, bool) {
	for i, t := range models.CaptureOrder {
		if t == c {
			return StepLicenseFront + Step(i), true
		}
	}
	return 0, false
}

type Phase string

const (
	PhaseCapturing  Phase = "capturing"
	PhaseSubmitting Phase = "submitting"
	PhaseDone       Phase = "done"
)

// Draft is the in-progress state of one driver's wizard. Captures hold object
// keys of normalized frames, never the frames themselves.
type Draft struct {
	ID          string                        `json:"id"`
	UserID      string                        `json:"userId"`
	VehicleType models.VehicleType            `json:"vehicleType,omitempty"`
	Step        Step                          `json:"step"`
	Phase       Phase                         `json:"phase"`
	Captures    map[models.CaptureType]string `json:"captures"`
	CreatedAt   time.Time                     `json:"createdAt"`
	UpdatedAt   time.Time                     `json:"updatedAt"`
}

func NewDraft(id, userID string, now time.Time) Draft {
	return Draft{
		ID:        id,
		UserID:    userID,
		Step:      StepVehicleSelect,
		Phase:     PhaseCapturing,
		Captures:  make(map[models.CaptureType]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (d Draft) StepComplete(s Step) bool {
	if s == StepVehicleSelect {
		return d.VehicleType.Valid()
	}
	c, ok := s.Capture()
	return ok && d.Captures[c] != ""
}

func (d Draft) editable() error {
	if d.Phase != PhaseCapturing {
		return ErrDraftLocked
	}
	return nil
}

func (d *Draft) SelectVehicle(v models.VehicleType) error {
	if err := d.editable(); err != nil {
		return err
	}
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidVehicle, v)
	}
	if d.Step != StepVehicleSelect {
		return fmt.Errorf("%w: vehicle is chosen at %s", ErrWrongStep, StepVehicleSelect.Name())
	}
	d.VehicleType = v
	return nil
}

// GoTo moves to target. Going back is always allowed before submission; going
// forward requires every earlier step to be complete.
func (d *Draft) GoTo(target Step) error {
	if err := d.editable(); err != nil {
		return err
	}
	if !target.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStep, target)
	}
	for s := FirstStep; s < target; s++ {
		if !d.StepComplete(s) {
			return fmt.Errorf("%w: %s", ErrStepIncomplete, s.Name())
		}
	}
	d.Step = target
	return nil
}

// Attach records the frame for the current step and returns the key it replaced.
func (d *Draft) Attach(c models.CaptureType, key string) (string, error) {
	if err := d.editable(); err != nil {
		return "", err
	}
	if current, ok := d.Step.Capture(); !ok || current != c {
		return "", fmt.Errorf("%w: current step is %s", ErrWrongStep, d.Step.Name())
	}
	previous := d.Captures[c]
	d.Captures[c] = key
	return previous, nil
}

// Retake clears the frame of the current step and returns its key.
func (d *Draft) Retake(c models.CaptureType) (string, error) {
	if err := d.editable(); err != nil {
		return "", err
	}
	if current, ok := d.Step.Capture(); !ok || current != c {
		return "", fmt.Errorf("%w: current step is %s", ErrWrongStep, d.Step.Name())
	}
	previous := d.Captures[c]
	delete(d.Captures, c)
	return previous, nil
}

// Missing names the steps still to be completed.
func (d Draft) Missing() []string {
	var missing []string
	for s := FirstStep; s <= LastStep; s++ {
		if !d.StepComplete(s) {
			missing = append(missing, s.Name())
		}
	}
	return missing
}

func (d *Draft) BeginSubmit() error {
	if err := d.editable(); err != nil {
		return err
	}
	if missing := d.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrDraftIncomplete, missing)
	}
	d.Phase = PhaseSubmitting
	return nil
}

// FailSubmit returns a draft to its last step with every capture kept, ready to retry.
func (d *Draft) FailSubmit() {
	d.Phase = PhaseCapturing
	d.Step = LastStep
}

func (d *Draft) Finish() {
	d.Phase = PhaseDone
}
