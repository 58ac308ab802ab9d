package api

import (
	"net/http"
)

// NewMux registers every route. metrics may be nil when metrics are disabled.
func NewMux(newsHandlers *NewsHandlers, healthHandlers *HealthHandlers, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /clusters", newsHandlers.ListClusters)
	mux.HandleFunc("GET /clusters/{id}", newsHandlers.GetCluster)
	mux.HandleFunc("GET /search", newsHandlers.Search)
	mux.HandleFunc("GET /statistics", newsHandlers.Statistics)
	mux.HandleFunc("GET /trending", newsHandlers.Trending)
	mux.HandleFunc("GET /trending/keywords", newsHandlers.TrendingKeywords)
	mux.HandleFunc("GET /categories", newsHandlers.Categories)
	mux.HandleFunc("GET /dates", newsHandlers.Dates)
	mux.HandleFunc("GET /images/{id}", newsHandlers.Image)
	mux.HandleFunc("GET /images/article/{id}", newsHandlers.ArticleImage)

	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	mux.HandleFunc("/", newsHandlers.NotFound)
	return mux
}
