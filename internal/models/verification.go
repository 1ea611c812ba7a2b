package models

import "time"

type VehicleType string

const (
	VehicleMotorbike VehicleType = "motorbike"
	VehicleCar       VehicleType = "car"
)

func (v VehicleType) Valid() bool {
	return v == VehicleMotorbike || v == VehicleCar
}

// CaptureType names one photo taken during the driver wizard.
type CaptureType string

const (
	CaptureLicenseFront      CaptureType = "licenseFront"
	CaptureLicenseBack       CaptureType = "licenseBack"
	CaptureRegistrationFront CaptureType = "registrationFront"
	CaptureRegistrationBack  CaptureType = "registrationBack"
	CaptureVehiclePhoto      CaptureType = "vehiclePhoto"
	CaptureFacePhoto         CaptureType = "facePhoto"
)

// CaptureOrder is the order in which the wizard asks for photos.
var CaptureOrder = []CaptureType{
	CaptureLicenseFront,
	CaptureLicenseBack,
	CaptureRegistrationFront,
	CaptureRegistrationBack,
	CaptureVehiclePhoto,
	CaptureFacePhoto,
}

type DocumentType string

const (
	DocumentLicenseFront      DocumentType = "license_front"
	DocumentLicenseBack       DocumentType = "license_back"
	DocumentRegistrationFront DocumentType = "registration_front"
	DocumentRegistrationBack  DocumentType = "registration_back"
)

type DocumentCheck struct {
	OCRData          map[string]string `json:"ocrData"`
	IsValid          bool              `json:"isValid"`
	ValidationErrors []string          `json:"validationErrors"`
}

type FacialCheck struct {
	LivenessScore  float64  `json:"livenessScore"`
	FaceMatchScore float64  `json:"faceMatchScore"`
	IsMatch        bool     `json:"isMatch"`
	SpoofFlags     []string `json:"spoofFlags"`
}

type VerificationStatus string

const (
	VerificationRejected    VerificationStatus = "rejected"
	VerificationUnderReview VerificationStatus = "under_review"
)

type ReviewOutcome string

const (
	ReviewApproved ReviewOutcome = "approved"
	ReviewRejected ReviewOutcome = "rejected"
)

type Verification struct {
	ID            string
	UserID        string
	VehicleType   VehicleType
	Status        VerificationStatus
	Decision      string
	Documents     map[DocumentType]DocumentCheck
	Facial        FacialCheck
	ReviewedBy    *string
	ReviewedAt    *time.Time
	ReviewOutcome *ReviewOutcome
	CreatedAt     time.Time
}
