package kyc

import "ridedesk/internal/models"

const (
	MinLivenessScore  = 0.9
	MinFaceMatchScore = 0.85
)

const (
	DecisionFailed     = "Failed initial document or facial verification."
	DecisionBorderline = "Facial verification scores are borderline. Requires manual review."
	DecisionPassed     = "All checks passed. Application submitted for manual review."
)

// Decide aggregates the individual checks. An application is never approved here;
// the best outcome is a queue position for an administrator.
func Decide(docs map[models.DocumentType]models.DocumentCheck, face models.FacialCheck) (models.VerificationStatus, string) {
	for _, docType := range DocumentOrder {
		check, ok := docs[docType]
		if !ok || !check.IsValid {
			return models.VerificationRejected, DecisionFailed
		}
	}
	if !face.IsMatch {
		return models.VerificationRejected, DecisionFailed
	}
	if face.LivenessScore < MinLivenessScore || face.FaceMatchScore < MinFaceMatchScore {
		return models.VerificationUnderReview, DecisionBorderline
	}
	return models.VerificationUnderReview, DecisionPassed
}
