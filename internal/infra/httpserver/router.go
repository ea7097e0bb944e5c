package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
	"github.com/bryanwahyu/ayursense/internal/middleware"
)

// Options configures the bridge router. Only Cache and Channel are required.
type Options struct {
	Cache   reading.Cache
	Channel reading.Channel
	Checks  map[string]middleware.HealthChecker
	Metrics *middleware.Metrics
	Limiter *middleware.RateLimiter
	Logger  *slog.Logger
}

type Router struct {
	cache   reading.Cache
	channel reading.Channel
	logger  *slog.Logger
}

// NewRouter builds the polling bridge. Every handler is a pure read of the
// cache and never waits for the device.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{cache: opts.Cache, channel: opts.Channel, logger: logger}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(logger))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimit(opts.Limiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checks))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler)
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Get("/api/{channel}", r.wrap(r.handleReading))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, reading.ErrUnknownChannel) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			r.logger.Error("request failed", "path", req.URL.Path, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// GET /api/{channel}
// Response: {"<channel>": "<number>"} or {"<channel>": null} before the first reading.
func (r *Router) handleReading(w http.ResponseWriter, req *http.Request) error {
	ch := reading.Channel(chi.URLParam(req, "channel"))
	if ch != r.channel {
		return reading.ErrUnknownChannel
	}

	var value *string
	if v, ok := r.cache.Get(ch).Float(); ok {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		value = &s
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	return json.NewEncoder(w).Encode(map[string]*string{string(ch): value})
}
