// Package image synthesizes placeholder image URLs and resizes stored images
// into thumbnails.
package image

import (
	"errors"
	"fmt"

	"github.com/h2non/bimg"
)

// ErrUnsupportedImage is returned when the input cannot be decoded.
var ErrUnsupportedImage = errors.New("unsupported image")

// ThumbnailConfig holds configuration for thumbnail resizing.
type ThumbnailConfig struct {
	// Quality for JPEG/WebP encoding (1-100, default: 85)
	Quality int
	// MaxWidth caps the requested width (default: 1600)
	MaxWidth int
	// StripMetadata removes all EXIF/metadata (default: true)
	StripMetadata bool
}

// DefaultThumbnailConfig returns sensible defaults for thumbnails.
func DefaultThumbnailConfig() ThumbnailConfig {
	return ThumbnailConfig{
		Quality:       85,
		MaxWidth:      1600,
		StripMetadata: true,
	}
}

// Thumbnailer resizes images to a requested width.
type Thumbnailer struct {
	config ThumbnailConfig
}

// NewThumbnailer creates a Thumbnailer with the given config.
func NewThumbnailer(config ThumbnailConfig) *Thumbnailer {
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = 85
	}
	return &Thumbnailer{config: config}
}

// Thumbnail is a resized image.
type Thumbnail struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Resize scales data down to width, keeping the aspect ratio and the source
// format. Images already narrower than width are returned unchanged, as is
// everything when width <= 0.
func (t *Thumbnailer) Resize(data []byte, width int) (*Thumbnail, error) {
	img := bimg.NewImage(data)
	metadata, err := img.Metadata()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	if t.config.MaxWidth > 0 && width > t.config.MaxWidth {
		width = t.config.MaxWidth
	}
	if width <= 0 || width >= metadata.Size.Width {
		return &Thumbnail{
			Data:        data,
			ContentType: contentType(metadata.Type),
			Width:       metadata.Size.Width,
			Height:      metadata.Size.Height,
		}, nil
	}

	out, err := img.Process(bimg.Options{
		Width:         width,
		Quality:       t.config.Quality,
		StripMetadata: t.config.StripMetadata,
		Type:          imageType(metadata.Type),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	size, err := bimg.NewImage(out).Size()
	if err != nil {
		return nil, fmt.Errorf("failed to read resized image: %w", err)
	}

	return &Thumbnail{
		Data:        out,
		ContentType: contentType(metadata.Type),
		Width:       size.Width,
		Height:      size.Height,
	}, nil
}

// imageType maps bimg's string type to bimg.ImageType constant.
func imageType(typeStr string) bimg.ImageType {
	switch typeStr {
	case "png":
		return bimg.PNG
	case "webp":
		return bimg.WEBP
	case "gif":
		return bimg.GIF
	default:
		return bimg.JPEG
	}
}

func contentType(typeStr string) string {
	switch typeStr {
	case "png", "webp", "gif":
		return "image/" + typeStr
	case "svg":
		return "image/svg+xml"
	default:
		return "image/jpeg"
	}
}
