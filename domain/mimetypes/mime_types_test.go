package mimetypes

import (
	"chat-relay/domain"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		expected MIME
		want     bool
	}{
		{"PNG", "image/png", ImagePNG, true},
		{"JPEG", "image/jpeg", ImageJPEG, true},
		{"With parameters", "image/webp; charset=binary", ImageWebP, true},
		{"Mismatch", "image/png", ImageJPEG, false},
		{"Invalid MIME", "not a mime", ImagePNG, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Matches(tt.detected, tt.expected)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestIsWallpaper(t *testing.T) {
	tests := []struct {
		detected string
		want     bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"image/gif", true},
		{"image/webp", true},
		{"image/svg+xml", false},
		{"image/bmp", false},
		{"text/plain; charset=utf-8", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.detected, func(t *testing.T) {
			require.Equal(t, tt.want, IsWallpaper(tt.detected))
		})
	}
}

func TestMessageTypeOf(t *testing.T) {
	req := require.New(t)
	req.Equal(domain.Image, MessageTypeOf(ImagePNG))
	req.Equal(domain.Video, MessageTypeOf("video/webm"))
	req.Equal(domain.File, MessageTypeOf("application/pdf"))
	req.Equal(domain.File, MessageTypeOf(Unknown))
}

func TestDetect_SniffsContentNotExtension(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	// Given a PNG signature saved with a misleading extension
	png := filepath.Join(dir, "wallpaper.txt")
	req.NoError(os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600))

	// And plain text saved as .png
	fake := filepath.Join(dir, "fake.png")
	req.NoError(os.WriteFile(fake, []byte("just some text"), 0o600))

	detected, err := Detect(png)
	req.NoError(err)
	req.True(IsImage(string(detected)))

	detected, err = Detect(fake)
	req.NoError(err)
	req.False(IsImage(string(detected)))
}
