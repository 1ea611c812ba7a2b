// Package capture turns uploaded camera frames into the fixed-size JPEGs the
// verification flow works with.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"ridedesk/internal/media/sniffer"
	"ridedesk/internal/models"
)

const MIMEType = "image/jpeg"

var ErrUnknownCapture = errors.New("unknown capture type")

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Spec describes the frame a capture step produces.
type Spec struct {
	Type        models.CaptureType `json:"type"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Orientation Orientation        `json:"orientation"`
	AspectRatio string             `json:"aspectRatio"`
	FacingMode  FacingMode         `json:"facingMode"`
	Mirror      bool               `json:"mirror"`
}

var (
	portrait  = Spec{Width: 600, Height: 800, Orientation: Portrait, AspectRatio: "3:4"}
	landscape = Spec{Width: 1280, Height: 720, Orientation: Landscape, AspectRatio: "16:9"}
)

var specs = map[models.CaptureType]Spec{
	models.CaptureLicenseFront:      withType(landscape, models.CaptureLicenseFront),
	models.CaptureLicenseBack:       withType(landscape, models.CaptureLicenseBack),
	models.CaptureRegistrationFront: withType(portrait, models.CaptureRegistrationFront),
	models.CaptureRegistrationBack:  withType(portrait, models.CaptureRegistrationBack),
	models.CaptureVehiclePhoto:      withType(landscape, models.CaptureVehiclePhoto),
	models.CaptureFacePhoto:         selfie(withType(portrait, models.CaptureFacePhoto)),
}

func withType(s Spec, t models.CaptureType) Spec {
	s.Type = t
	s.FacingMode = FacingEnvironment
	return s
}

// The selfie is mirrored so the stored frame matches the viewfinder.
func selfie(s Spec) Spec {
	s.FacingMode = FacingUser
	s.Mirror = true
	return s
}

func SpecFor(t models.CaptureType) (Spec, error) {
	spec, ok := specs[t]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownCapture, t)
	}
	return spec, nil
}

// Specs lists every capture step in wizard order.
func Specs() []Spec {
	out := make([]Spec, 0, len(models.CaptureOrder))
	for _, t := range models.CaptureOrder {
		out = append(out, specs[t])
	}
	return out
}

type Normalizer struct {
	quality int
}

func NewNormalizer(jpegQuality int) *Normalizer {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 90
	}
	return &Normalizer{quality: jpegQuality}
}

// Normalize center-crops data to the spec's aspect ratio, scales it to the
// spec's exact size and re-encodes it as JPEG. Output dimensions never depend
// on the input resolution.
func (n *Normalizer) Normalize(data []byte, declaredMIME string, spec Spec) ([]byte, error) {
	if _, err := sniffer.Check(data, declaredMIME); err != nil {
		return nil, err
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("decode frame: empty image")
	}

	var dst image.Image = imaging.Fill(src, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)
	if spec.Mirror {
		dst = imaging.FlipH(dst)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(n.quality)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
