package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/newsbias/internal/binary"
	"github.com/onnwee/newsbias/internal/store"
	"github.com/onnwee/newsbias/internal/tracing"
)

// ImageResult is either image bytes or a placeholder to redirect to.
type ImageResult struct {
	Data        []byte
	ContentType string
	Bucket      string

	// RedirectURL is set instead of Data when the image does not exist.
	RedirectURL string
}

// Found reports whether the result carries image bytes.
func (r *ImageResult) Found() bool {
	return r.RedirectURL == ""
}

// GetImage fetches a stored image. A missing image is not an error: the
// result redirects to a placeholder. width > 0 requests a thumbnail; a
// resize failure falls back to the original bytes.
func (s *Service) GetImage(ctx context.Context, id string, hint binary.Hint, width int) (result *ImageResult, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "news.get_image",
		attribute.String("hint", string(hint)),
		attribute.Int("width", width))
	defer func() { endSpan(err) }()

	if s.gateway == nil {
		return nil, fmt.Errorf("%w: binary store is not configured", store.ErrUpstreamUnavailable)
	}

	obj, err := s.gateway.Fetch(ctx, id, hint)
	if errors.Is(err, binary.ErrNotFound) {
		return s.placeholder(), nil
	}
	if err != nil {
		return nil, err
	}

	result = &ImageResult{Data: obj.Data, ContentType: obj.ContentType, Bucket: obj.Bucket}
	if width > 0 && s.thumbnails != nil {
		thumb, err := s.thumbnails.Resize(obj.Data, width)
		if err != nil {
			s.logger.WarnContext(ctx, "thumbnail failed, serving original",
				slog.String("id", id),
				slog.Int("width", width),
				slog.String("error", err.Error()))
			return result, nil
		}
		result.Data, result.ContentType = thumb.Data, thumb.ContentType
	}
	return result, nil
}

// GetArticleImage looks up an article's image and fetches it from the
// article bucket. Articles without an image redirect to a placeholder.
func (s *Service) GetArticleImage(ctx context.Context, articleID string, width int) (*ImageResult, error) {
	ctx, endSpan := tracing.StartSpan(ctx, "news.get_article_image")

	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		err := fmt.Errorf("%w: article id is required", ErrValidation)
		endSpan(err)
		return nil, err
	}
	if s.articles == nil {
		endSpan(nil)
		return s.placeholder(), nil
	}

	imageID, err := s.articles.FindImageID(ctx, articleID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && strings.TrimSpace(imageID) == "") {
		endSpan(nil)
		return s.placeholder(), nil
	}
	if err != nil {
		endSpan(err)
		return nil, err
	}
	endSpan(nil)

	return s.GetImage(ctx, imageID, binary.HintArticle, width)
}

func (s *Service) placeholder() *ImageResult {
	return &ImageResult{RedirectURL: s.placeholders.ForText("")}
}
