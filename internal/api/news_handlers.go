package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/onnwee/newsbias/internal/binary"
	"github.com/onnwee/newsbias/internal/cache"
	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/middleware"
	"github.com/onnwee/newsbias/internal/news"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/stats"
)

// NewsService is the core the handlers delegate to. *news.Service implements it.
type NewsService interface {
	ListClusters(ctx context.Context, f query.Filters, page, limit int) query.Envelope
	Search(ctx context.Context, f query.Filters, page, limit int) query.Envelope
	GetCluster(ctx context.Context, id string) query.Envelope
	GetStatistics(ctx context.Context, f query.Filters, req stats.Request) query.Envelope
	GetTrendingKeywords(ctx context.Context, f query.Filters, side cluster.Side, limit int) query.Envelope
	Trending(ctx context.Context, f query.Filters, limit int) query.Envelope
	ListCategories(ctx context.Context) query.Envelope
	ListDates(ctx context.Context) query.Envelope
	GetImage(ctx context.Context, id string, hint binary.Hint, width int) (*news.ImageResult, error)
	GetArticleImage(ctx context.Context, articleID string, width int) (*news.ImageResult, error)
}

// ImageCacheControl is sent with image bytes. Stored images never change.
const ImageCacheControl = "public, max-age=86400"

// snapshotWriteTimeout bounds the best-effort snapshot write after a response.
const snapshotWriteTimeout = 2 * time.Second

// NewsHandlers holds dependencies for the news HTTP handlers.
type NewsHandlers struct {
	svc       NewsService
	snapshots cache.Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewNewsHandlers creates the handlers. snapshots may be nil, which disables
// the upstream outage fallback.
func NewNewsHandlers(svc NewsService, snapshots cache.Store, logger *slog.Logger) *NewsHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsHandlers{
		svc:       svc,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// ListClusters handles GET /clusters.
func (h *NewsHandlers) ListClusters(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	f := p.filters()
	page, limit := p.int("page"), p.int("limit")
	if msg := p.err(); msg != "" {
		WriteError(w, r.Context(), query.CodeValidation, msg)
		return
	}
	h.respond(w, r, h.svc.ListClusters(r.Context(), f, page, limit))
}

// Search handles GET /search.
func (h *NewsHandlers) Search(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	f := p.filters()
	if f.Search == "" {
		f.Search = p.str("q")
	}
	page, limit := p.int("page"), p.int("limit")
	if msg := p.err(); msg != "" {
		WriteError(w, r.Context(), query.CodeValidation, msg)
		return
	}
	h.respond(w, r, h.svc.Search(r.Context(), f, page, limit))
}

// GetCluster handles GET /clusters/{id}.
func (h *NewsHandlers) GetCluster(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.GetCluster(r.Context(), r.PathValue("id")))
}

// Statistics handles GET /statistics.
func (h *NewsHandlers) Statistics(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	f := p.filters()
	req := p.statsRequest()
	if msg := p.err(); msg != "" {
		WriteError(w, r.Context(), query.CodeValidation, msg)
		return
	}
	h.respond(w, r, h.svc.GetStatistics(r.Context(), f, req))
}

// TrendingKeywords handles GET /trending/keywords.
func (h *NewsHandlers) TrendingKeywords(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	f := p.filters()
	side := p.side("side", cluster.Left)
	limit := p.nonNegative("limit")
	if msg := p.err(); msg != "" {
		WriteError(w, r.Context(), query.CodeValidation, msg)
		return
	}
	h.respond(w, r, h.svc.GetTrendingKeywords(r.Context(), f, side, limit))
}

// Trending handles GET /trending.
func (h *NewsHandlers) Trending(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	f := p.filters()
	limit := p.nonNegative("limit")
	if msg := p.err(); msg != "" {
		WriteError(w, r.Context(), query.CodeValidation, msg)
		return
	}
	h.respond(w, r, h.svc.Trending(r.Context(), f, limit))
}

// Categories handles GET /categories.
func (h *NewsHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.ListCategories(r.Context()))
}

// Dates handles GET /dates.
func (h *NewsHandlers) Dates(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.ListDates(r.Context()))
}

// Image handles GET /images/{id}?hint=&w=.
func (h *NewsHandlers) Image(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	hint := binary.ParseHint(p.str("hint"))
	width := p.nonNegative("w")
	if msg := p.err(); msg != "" {
		WriteError(w, r.Context(), query.CodeValidation, msg)
		return
	}
	res, err := h.svc.GetImage(r.Context(), r.PathValue("id"), hint, width)
	h.writeImage(w, r, res, err)
}

// ArticleImage handles GET /images/article/{id}?w=.
func (h *NewsHandlers) ArticleImage(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	width := p.nonNegative("w")
	if msg := p.err(); msg != "" {
		WriteError(w, r.Context(), query.CodeValidation, msg)
		return
	}
	res, err := h.svc.GetArticleImage(r.Context(), r.PathValue("id"), width)
	h.writeImage(w, r, res, err)
}

// NotFound answers unknown routes with a not_found envelope.
func (h *NewsHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r.Context(), query.CodeNotFound, "route not found")
}

func (h *NewsHandlers) writeImage(w http.ResponseWriter, r *http.Request, res *news.ImageResult, err error) {
	if err != nil {
		code := news.Code(err)
		msg := err.Error()
		if code == query.CodeInternal {
			h.logger.ErrorContext(r.Context(), "image request failed", slog.String("error", msg))
			msg = "internal error"
		}
		WriteError(w, r.Context(), code, msg)
		return
	}
	if !res.Found() {
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("Cache-Control", ImageCacheControl)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(res.Data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write image", slog.String("error", err.Error()))
	}
}

// respond writes env. Successful responses are stored as snapshots; an
// upstream outage is answered from the last stored snapshot when one exists.
func (h *NewsHandlers) respond(w http.ResponseWriter, r *http.Request, env query.Envelope) {
	ctx := r.Context()
	if h.snapshots == nil {
		WriteEnvelope(w, ctx, env)
		return
	}

	key := cache.Key(r.URL.Path, r.URL.Query())
	if env.Code == query.CodeUpstreamUnavailable && h.serveSnapshot(w, r, key) {
		return
	}

	body := WriteEnvelope(w, ctx, env)
	if env.Code != query.CodeOK || body == nil {
		return
	}

	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotWriteTimeout)
	defer cancel()
	snap := &cache.Snapshot{
		Body:        body,
		ContentType: "application/json; charset=utf-8",
		StoredAt:    h.now().UTC(),
	}
	if err := h.snapshots.Put(putCtx, key, snap); err != nil {
		h.logger.WarnContext(ctx, "snapshot write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func (h *NewsHandlers) serveSnapshot(w http.ResponseWriter, r *http.Request, key string) bool {
	ctx := r.Context()
	snap, err := h.snapshots.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			h.logger.WarnContext(ctx, "snapshot read failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return false
	}

	age := snap.Age(h.now())
	h.logger.WarnContext(ctx, "serving snapshot during upstream outage",
		slog.String("key", key),
		slog.Duration("age", age))

	w.Header().Set("Content-Type", snap.ContentType)
	w.Header().Set(middleware.SnapshotAgeHeader, strconv.Itoa(int(age.Seconds())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(snap.Body); err != nil {
		h.logger.WarnContext(ctx, "failed to write snapshot", slog.String("error", err.Error()))
	}
	return true
}
