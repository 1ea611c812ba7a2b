package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"ridedesk/internal/models"
)

var ErrMissingCapture = errors.New("missing capture")

// DocumentOrder lists the documents every application is checked against.
var DocumentOrder = []models.DocumentType{
	models.DocumentLicenseFront,
	models.DocumentLicenseBack,
	models.DocumentRegistrationFront,
	models.DocumentRegistrationBack,
}

// DocumentCapture maps a document to the wizard photo that carries it.
var DocumentCapture = map[models.DocumentType]models.CaptureType{
	models.DocumentLicenseFront:      models.CaptureLicenseFront,
	models.DocumentLicenseBack:       models.CaptureLicenseBack,
	models.DocumentRegistrationFront: models.CaptureRegistrationFront,
	models.DocumentRegistrationBack:  models.CaptureRegistrationBack,
}

// Image is an encoded photo handed to the model.
type Image struct {
	MIMEType string
	Data     []byte
}

type Submission struct {
	VehicleType models.VehicleType
	Captures    map[models.CaptureType]Image
}

type Outcome struct {
	Documents map[models.DocumentType]models.DocumentCheck
	Facial    models.FacialCheck
	Status    models.VerificationStatus
	Decision  string
}

type Verifier struct {
	model   Model
	prompts Prompts
	timeout time.Duration
	logger  zerolog.Logger
}

func NewVerifier(model Model, prompts Prompts, timeout time.Duration, logger zerolog.Logger) *Verifier {
	return &Verifier{
		model:   model,
		prompts: prompts,
		timeout: timeout,
		logger:  logger,
	}
}

type documentAnswer struct {
	OCRData []struct {
		Field string `json:"field"`
		Value string `json:"value"`
	} `json:"ocrData"`
	IsValid          bool     `json:"isValid"`
	ValidationErrors []string `json:"validationErrors"`
}

// ProcessDocument asks the model whether the image is a genuine document of the given type
// and extracts whatever fields it can read.
func (v *Verifier) ProcessDocument(ctx context.Context, img Image, docType models.DocumentType, vehicle models.VehicleType) (models.DocumentCheck, error) {
	prompt := v.prompts[promptProcessDocument]
	text, err := prompt.Render(map[string]any{
		"DocumentType": strings.ReplaceAll(string(docType), "_", " "),
		"VehicleType":  string(vehicle),
	})
	if err != nil {
		return models.DocumentCheck{}, err
	}

	raw, err := v.model.Generate(ctx, GenerateRequest{
		Parts: []Part{
			{Text: text},
			{MIMEType: img.MIMEType, Data: img.Data},
		},
		Schema: prompt.Schema,
	})
	if err != nil {
		return models.DocumentCheck{}, fmt.Errorf("process %s: %w", docType, err)
	}

	var answer documentAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return models.DocumentCheck{}, fmt.Errorf("decode %s answer: %w", docType, err)
	}

	check := models.DocumentCheck{
		OCRData:          make(map[string]string, len(answer.OCRData)),
		IsValid:          answer.IsValid,
		ValidationErrors: answer.ValidationErrors,
	}
	for _, kv := range answer.OCRData {
		if kv.Field == "" {
			continue
		}
		check.OCRData[kv.Field] = kv.Value
	}
	if check.ValidationErrors == nil {
		check.ValidationErrors = []string{}
	}
	return check, nil
}

// VerifyFace scores the selfie for liveness and compares it with the document portrait.
func (v *Verifier) VerifyFace(ctx context.Context, selfie, portrait Image) (models.FacialCheck, error) {
	prompt := v.prompts[promptFacialVerification]
	text, err := prompt.Render(map[string]any{
		"MinLiveness": MinLivenessScore,
		"MinMatch":    MinFaceMatchScore,
	})
	if err != nil {
		return models.FacialCheck{}, err
	}

	raw, err := v.model.Generate(ctx, GenerateRequest{
		Parts: []Part{
			{Text: text},
			{MIMEType: selfie.MIMEType, Data: selfie.Data},
			{MIMEType: portrait.MIMEType, Data: portrait.Data},
		},
		Schema: prompt.Schema,
	})
	if err != nil {
		return models.FacialCheck{}, fmt.Errorf("facial verification: %w", err)
	}

	var check models.FacialCheck
	if err := json.Unmarshal(raw, &check); err != nil {
		return models.FacialCheck{}, fmt.Errorf("decode facial answer: %w", err)
	}
	if check.SpoofFlags == nil {
		check.SpoofFlags = []string{}
	}
	return check, nil
}

// Evaluate runs every document check and the facial check concurrently and
// combines them into a decision. Any model failure fails the whole evaluation.
func (v *Verifier) Evaluate(ctx context.Context, sub Submission) (Outcome, error) {
	for _, c := range models.CaptureOrder {
		if img, ok := sub.Captures[c]; !ok || len(img.Data) == 0 {
			return Outcome{}, fmt.Errorf("%w: %s", ErrMissingCapture, c)
		}
	}

	ctx, span := otel.Tracer("ridedesk/kyc").Start(ctx, "kyc.evaluate")
	defer span.End()
	span.SetAttributes(attribute.String("vehicle_type", string(sub.VehicleType)))

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		docs   = make(map[models.DocumentType]models.DocumentCheck, len(DocumentOrder))
		facial models.FacialCheck
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, docType := range DocumentOrder {
		img := sub.Captures[DocumentCapture[docType]]
		g.Go(func() error {
			check, err := v.ProcessDocument(gctx, img, docType, sub.VehicleType)
			if err != nil {
				return err
			}
			mu.Lock()
			docs[docType] = check
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		check, err := v.VerifyFace(gctx, sub.Captures[models.CaptureFacePhoto], sub.Captures[models.CaptureLicenseFront])
		if err != nil {
			return err
		}
		facial = check
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Outcome{}, err
	}

	status, decision := Decide(docs, facial)
	span.SetAttributes(attribute.String("status", string(status)))
	v.logger.Info().
		Str("status", string(status)).
		Float64("liveness", facial.LivenessScore).
		Float64("face_match", facial.FaceMatchScore).
		Bool("is_match", facial.IsMatch).
		Msg("verification evaluated")

	return Outcome{
		Documents: docs,
		Facial:    facial,
		Status:    status,
		Decision:  decision,
	}, nil
}
