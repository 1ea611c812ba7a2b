package capture_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/media/capture"
	"ridedesk/internal/media/sniffer"
	"ridedesk/internal/models"
)

func encodePNG(t *testing.T, w, h int, fill func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(c color.Color) func(int, int) color.Color {
	return func(int, int) color.Color { return c }
}

func TestNormalizeAlwaysProducesTargetSize(t *testing.T) {
	inputs := map[string][]byte{
		"wide":   encodePNG(t, 1920, 480, solid(color.White)),
		"tall":   encodePNG(t, 300, 1200, solid(color.White)),
		"tiny":   encodePNG(t, 40, 30, solid(color.White)),
		"square": encodePNG(t, 512, 512, solid(color.White)),
	}
	n := capture.NewNormalizer(85)

	for _, spec := range capture.Specs() {
		for name, input := range inputs {
			out, err := n.Normalize(input, "image/png", spec)
			require.NoError(t, err, "%s/%s", spec.Type, name)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			require.Equal(t, "jpeg", format)
			require.Equal(t, spec.Width, cfg.Width, "%s/%s", spec.Type, name)
			require.Equal(t, spec.Height, cfg.Height, "%s/%s", spec.Type, name)
		}
	}
}

func TestSpecs(t *testing.T) {
	specs := capture.Specs()
	require.Len(t, specs, 6)
	require.Equal(t, models.CaptureLicenseFront, specs[0].Type)
	require.Equal(t, models.CaptureFacePhoto, specs[5].Type)

	face, err := capture.SpecFor(models.CaptureFacePhoto)
	require.NoError(t, err)
	require.True(t, face.Mirror)
	require.Equal(t, capture.FacingUser, face.FacingMode)
	require.Equal(t, "3:4", face.AspectRatio)

	reg, err := capture.SpecFor(models.CaptureRegistrationFront)
	require.NoError(t, err)
	require.Equal(t, 600, reg.Width)
	require.Equal(t, 800, reg.Height)
	require.False(t, reg.Mirror)
	require.Equal(t, capture.FacingEnvironment, reg.FacingMode)

	vehicle, err := capture.SpecFor(models.CaptureVehiclePhoto)
	require.NoError(t, err)
	require.Equal(t, "16:9", vehicle.AspectRatio)

	_, err = capture.SpecFor("passport")
	require.ErrorIs(t, err, capture.ErrUnknownCapture)
}

func TestSelfieIsMirrored(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	input := encodePNG(t, 600, 800, func(x, _ int) color.Color {
		if x < 300 {
			return red
		}
		return blue
	})

	n := capture.NewNormalizer(95)
	face, err := capture.SpecFor(models.CaptureFacePhoto)
	require.NoError(t, err)
	out, err := n.Normalize(input, "image/png", face)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, _, b, _ := img.At(20, 400).RGBA()
	require.Greater(t, b, r, "left edge should be blue after mirroring")

	reg, err := capture.SpecFor(models.CaptureRegistrationFront)
	require.NoError(t, err)
	out, err = n.Normalize(input, "image/png", reg)
	require.NoError(t, err)
	img, err = jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, _, b, _ = img.At(20, 400).RGBA()
	require.Greater(t, r, b, "documents keep their orientation")
}

func TestNormalizeRejectsMismatchedContent(t *testing.T) {
	n := capture.NewNormalizer(90)
	spec, err := capture.SpecFor(models.CaptureLicenseFront)
	require.NoError(t, err)

	_, err = n.Normalize(encodePNG(t, 10, 10, solid(color.Black)), "image/jpeg", spec)
	require.ErrorIs(t, err, sniffer.ErrTypeMismatch)

	_, err = n.Normalize([]byte("not an image"), "", spec)
	require.ErrorIs(t, err, sniffer.ErrUnknownType)
}
