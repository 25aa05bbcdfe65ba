package mimetypes

import (
	"chat-relay/domain"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MIME string

const (
	Unknown     MIME = "unknown"
	OctetStream MIME = "application/octet-stream"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"
)

// Wallpapers are the image formats accepted as a chat background.
var Wallpapers = []MIME{ImagePNG, ImageJPEG, ImageGIF, ImageWebP}

// Matches reports whether a detected media type (possibly with parameters)
// is exactly the expected one.
func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

func IsImage(detected string) bool { return hasTopLevel(detected, "image") }

// IsWallpaper reports whether detected is one of the Wallpapers formats.
func IsWallpaper(detected string) bool {
	for _, expected := range Wallpapers {
		if _, ok := Matches(detected, expected); ok {
			return true
		}
	}
	return false
}

func IsVideo(detected string) bool { return hasTopLevel(detected, "video") }

func hasTopLevel(detected, top string) bool {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, top+"/")
}

// Detect sniffs the file content; the extension is never trusted.
func Detect(path string) (MIME, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return Unknown, err
	}
	return MIME(m.String()), nil
}

// MessageTypeOf maps a detected media type to the envelope type used to send it.
func MessageTypeOf(detected MIME) domain.MessageType {
	switch {
	case IsImage(string(detected)):
		return domain.Image
	case IsVideo(string(detected)):
		return domain.Video
	default:
		return domain.File
	}
}
