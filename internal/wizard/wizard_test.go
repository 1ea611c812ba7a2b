package wizard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/models"
	"ridedesk/internal/wizard"
)

func completeDraft(t *testing.T) wizard.Draft {
	t.Helper()
	d := wizard.NewDraft("draft-1", "user-1", time.Now())
	require.NoError(t, d.SelectVehicle(models.VehicleCar))
	for _, c := range models.CaptureOrder {
		step, ok := wizard.StepOf(c)
		require.True(t, ok)
		require.NoError(t, d.GoTo(step))
		_, err := d.Attach(c, "key/"+string(c))
		require.NoError(t, err)
	}
	return d
}

func TestStepCaptureMapping(t *testing.T) {
	_, ok := wizard.StepVehicleSelect.Capture()
	require.False(t, ok)

	c, ok := wizard.StepLicenseFront.Capture()
	require.True(t, ok)
	require.Equal(t, models.CaptureLicenseFront, c)

	c, ok = wizard.StepFacePhoto.Capture()
	require.True(t, ok)
	require.Equal(t, models.CaptureFacePhoto, c)

	require.Equal(t, "vehicle-select", wizard.StepVehicleSelect.Name())
	require.Equal(t, "registrationBack", wizard.StepRegistrationBack.Name())
}

func TestForwardNavigationRequiresCompletedSteps(t *testing.T) {
	d := wizard.NewDraft("draft-1", "user-1", time.Now())

	require.ErrorIs(t, d.GoTo(wizard.StepLicenseFront), wizard.ErrStepIncomplete)
	require.ErrorIs(t, d.SelectVehicle("truck"), wizard.ErrInvalidVehicle)

	require.NoError(t, d.SelectVehicle(models.VehicleMotorbike))
	require.NoError(t, d.GoTo(wizard.StepLicenseFront))
	require.ErrorIs(t, d.GoTo(wizard.StepLicenseBack), wizard.ErrStepIncomplete)

	_, err := d.Attach(models.CaptureLicenseBack, "k")
	require.ErrorIs(t, err, wizard.ErrWrongStep)

	_, err = d.Attach(models.CaptureLicenseFront, "k1")
	require.NoError(t, err)
	require.NoError(t, d.GoTo(wizard.StepLicenseBack))
}

func TestBackNavigationAndRetake(t *testing.T) {
	d := completeDraft(t)

	require.NoError(t, d.GoTo(wizard.StepLicenseBack))
	old, err := d.Retake(models.CaptureLicenseBack)
	require.NoError(t, err)
	require.Equal(t, "key/licenseBack", old)
	require.Equal(t, []string{"licenseBack"}, d.Missing())

	prev, err := d.Attach(models.CaptureLicenseBack, "key/new")
	require.NoError(t, err)
	require.Empty(t, prev)
	require.Empty(t, d.Missing())

	require.NoError(t, d.GoTo(wizard.StepVehicleSelect))
	require.NoError(t, d.SelectVehicle(models.VehicleMotorbike))
	require.NoError(t, d.GoTo(wizard.StepFacePhoto))
}

func TestSubmitRequiresEverything(t *testing.T) {
	d := wizard.NewDraft("draft-1", "user-1", time.Now())
	require.ErrorIs(t, d.BeginSubmit(), wizard.ErrDraftIncomplete)
	require.Len(t, d.Missing(), 7)
}

func TestSubmissionLocksDraft(t *testing.T) {
	d := completeDraft(t)
	require.NoError(t, d.BeginSubmit())
	require.Equal(t, wizard.PhaseSubmitting, d.Phase)

	require.ErrorIs(t, d.GoTo(wizard.StepLicenseFront), wizard.ErrDraftLocked)
	_, err := d.Retake(models.CaptureFacePhoto)
	require.ErrorIs(t, err, wizard.ErrDraftLocked)
	require.ErrorIs(t, d.BeginSubmit(), wizard.ErrDraftLocked)

	d.Finish()
	require.ErrorIs(t, d.GoTo(wizard.StepLicenseFront), wizard.ErrDraftLocked)
}

func TestFailedSubmissionIsRetryable(t *testing.T) {
	d := completeDraft(t)
	require.NoError(t, d.GoTo(wizard.StepLicenseFront))
	require.NoError(t, d.BeginSubmit())

	d.FailSubmit()
	require.Equal(t, wizard.PhaseCapturing, d.Phase)
	require.Equal(t, wizard.LastStep, d.Step)
	require.Len(t, d.Captures, 6)
	require.NoError(t, d.BeginSubmit())
}
