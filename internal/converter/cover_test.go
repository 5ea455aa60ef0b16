package converter

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func encodeTestImage(t *testing.T, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(4, 3, color.NRGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestDefaultCover(t *testing.T) {
	data, err := DefaultCover("A Fairly Long Book Title That Needs Wrapping")
	if err != nil {
		t.Fatalf("DefaultCover() error = %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	if cfg.Width != coverWidth || cfg.Height != coverHeight {
		t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, coverWidth, coverHeight)
	}

	blank, err := DefaultCover("")
	if err != nil {
		t.Fatalf("DefaultCover(\"\") error = %v", err)
	}
	if bytes.Equal(blank, data) {
		t.Error("title is not drawn on the cover")
	}
}

func TestWrapTitle(t *testing.T) {
	tests := []struct {
		title string
		width int
		want  []string
	}{
		{"", 10, nil},
		{"Short", 10, []string{"Short"}},
		{"one two three four", 9, []string{"one two", "three", "four"}},
		{"abcdefghijkl", 5, []string{"abcde", "fghij", "kl"}},
		{"日本語のタイトル", 4, []string{"日本語の", "タイトル"}},
	}
	for _, tt := range tests {
		got := wrapTitle(tt.title, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("wrapTitle(%q, %d) = %q, want %q", tt.title, tt.width, got, tt.want)
		}
	}
}

func TestNewCoverImage(t *testing.T) {
	tests := []struct {
		format    imaging.Format
		wantName  string
		wantMedia string
	}{
		{imaging.PNG, "cover.png", "image/png"},
		{imaging.JPEG, "cover.jpg", "image/jpeg"},
		{imaging.GIF, "cover.gif", "image/gif"},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			data := encodeTestImage(t, tt.format)
			cover, err := NewCoverImage(data)
			if err != nil {
				t.Fatalf("NewCoverImage() error = %v", err)
			}
			if cover.Name != tt.wantName || cover.MediaType != tt.wantMedia {
				t.Errorf("cover = {%q %q}, want {%q %q}", cover.Name, cover.MediaType, tt.wantName, tt.wantMedia)
			}
			if !bytes.Equal(cover.Data, data) {
				t.Error("cover bytes were modified")
			}
		})
	}
}

func TestNewCoverImage_Unsupported(t *testing.T) {
	if _, err := NewCoverImage([]byte("not an image")); !errors.Is(err, ErrUnsupportedCover) {
		t.Errorf("NewCoverImage() error = %v, want %v", err, ErrUnsupportedCover)
	}
}

func TestMediaType(t *testing.T) {
	png := encodeTestImage(t, imaging.PNG)
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"image/0/0.png", nil, "image/png"},
		{"image/0/1.JPG", nil, "image/jpeg"},
		{"image/0/2.jpeg", nil, "image/jpeg"},
		{"image/0/3.gif", nil, "image/gif"},
		{"image/0/4.svg", nil, "image/svg+xml"},
		{"image/0/5", png, "image/png"},
		{"image/0/6.php", png, "image/png"},
		{"image/0/7", []byte("plain text"), "image/jpeg"},
		{"image/0/8", nil, "image/jpeg"},
	}
	for _, tt := range tests {
		if got := MediaType(tt.name, tt.data); got != tt.want {
			t.Errorf("MediaType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
