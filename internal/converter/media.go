package converter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

const defaultImageMediaType = "image/jpeg"

// ErrUnsupportedCover is returned when the cover image cannot be decoded.
var ErrUnsupportedCover = errors.New("unsupported cover image format")

var formatMediaTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

var formatExtensions = map[imaging.Format]string{
	imaging.JPEG: ".jpg",
	imaging.PNG:  ".png",
	imaging.GIF:  ".gif",
	imaging.TIFF: ".tif",
	imaging.BMP:  ".bmp",
}

// MediaType returns the media type of an image resource. The file name
// extension wins, then content sniffing, then image/jpeg.
func MediaType(name string, data []byte) string {
	if f, err := imaging.FormatFromFilename(name); err == nil {
		return formatMediaTypes[f]
	}
	if ext := path.Ext(name); ext != "" {
		if mt, _, err := mime.ParseMediaType(mime.TypeByExtension(strings.ToLower(ext))); err == nil && strings.HasPrefix(mt, "image/") {
			return mt
		}
	}
	if len(data) > 0 {
		if mt, _, err := mime.ParseMediaType(http.DetectContentType(data)); err == nil && strings.HasPrefix(mt, "image/") {
			return mt
		}
	}
	return defaultImageMediaType
}

// CoverImage is a decoded-format cover ready to be packaged.
type CoverImage struct {
	Name      string
	Data      []byte
	MediaType string
}

// NewCoverImage detects the format of data and names the cover "cover" with
// the matching extension.
func NewCoverImage(data []byte) (CoverImage, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return CoverImage{}, fmt.Errorf("%w: %v", ErrUnsupportedCover, err)
	}
	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return CoverImage{}, fmt.Errorf("%w: %s", ErrUnsupportedCover, format)
	}
	return CoverImage{
		Name:      "cover" + formatExtensions[f],
		Data:      data,
		MediaType: formatMediaTypes[f],
	}, nil
}
