// Package sniffer identifies uploaded photos by their magic bytes.
package sniffer

import (
	"bytes"
	"errors"
	"mime"
	"net/textproto"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeWEBP MediaType = "webp"
	TypeHEIC MediaType = "heic"
)

var (
	ErrUnknownType  = errors.New("unknown media type")
	ErrUnsupported  = errors.New("unsupported media type")
	ErrTypeMismatch = errors.New("declared content type does not match content")
)

type Result struct {
	Type MediaType
	MIME string
}

// Decodable reports whether the photo pipeline can decode this type.
func (r Result) Decodable() bool {
	switch r.Type {
	case TypeJPEG, TypePNG, TypeWEBP:
		return true
	}
	return false
}

func DetectHead(head []byte) (Result, error) {
	switch {
	case len(head) == 0:
		return Result{}, ErrUnknownType
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, MIME: "image/webp"}, nil
	case isHEIC(head):
		return Result{Type: TypeHEIC, MIME: "image/heic"}, nil
	}
	return Result{}, ErrUnknownType
}

// Check sniffs data and cross-checks it against the content type the client declared.
// An empty or generic declared type is accepted.
func Check(data []byte, declared string) (Result, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	result, err := DetectHead(head)
	if err != nil {
		return Result{}, err
	}
	if !result.Decodable() {
		return result, ErrUnsupported
	}

	declared = normalizeMIME(declared)
	if declared != "" && declared != "application/octet-stream" && declared != result.MIME {
		return result, ErrTypeMismatch
	}
	return result, nil
}

// MimeTypeFromHeader returns the bare media type of a multipart part header.
func MimeTypeFromHeader(header textproto.MIMEHeader) string {
	return normalizeMIME(header.Get("Content-Type"))
}

func normalizeMIME(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

// iPhones upload HEIC by default; it is recognised so the error can say so.
func isHEIC(head []byte) bool {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return false
	}
	brand := string(head[8:12])
	return brand == "heic" || brand == "heix" || brand == "mif1"
}
