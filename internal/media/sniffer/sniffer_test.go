package sniffer_test

import (
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/media/sniffer"
)

var (
	jpegHead = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	pngHead  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}
	webpHead = []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
	heicHead = []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00")
)

func TestDetectHead(t *testing.T) {
	cases := map[string]struct {
		head []byte
		want sniffer.MediaType
	}{
		"jpeg": {jpegHead, sniffer.TypeJPEG},
		"png":  {pngHead, sniffer.TypePNG},
		"webp": {webpHead, sniffer.TypeWEBP},
		"heic": {heicHead, sniffer.TypeHEIC},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := sniffer.DetectHead(tc.head)
			require.NoError(t, err)
			require.Equal(t, tc.want, got.Type)
		})
	}

	_, err := sniffer.DetectHead([]byte("<svg></svg>"))
	require.ErrorIs(t, err, sniffer.ErrUnknownType)
}

func TestCheck(t *testing.T) {
	res, err := sniffer.Check(jpegHead, "image/jpg")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", res.MIME)

	_, err = sniffer.Check(jpegHead, "")
	require.NoError(t, err)

	_, err = sniffer.Check(jpegHead, "image/png")
	require.ErrorIs(t, err, sniffer.ErrTypeMismatch)

	_, err = sniffer.Check(heicHead, "image/heic")
	require.ErrorIs(t, err, sniffer.ErrUnsupported)
}

func TestMimeTypeFromHeader(t *testing.T) {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "image/png; charset=binary")
	require.Equal(t, "image/png", sniffer.MimeTypeFromHeader(header))
}
