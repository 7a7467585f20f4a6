package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chimerad/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Modules() []types.ModuleInfo
	Toggle(id string) (types.ModuleInfo, error)
	Publish(source, typ string, payload map[string]any) (types.Event, error)
	ProcessFrame(ctx context.Context, frame string) types.VisionFrameResponse
	ProcessAudio(ctx context.Context, audio string) (types.AudioChunkResponse, error)
	Recent(limit int) []types.Event
	Subscribe() (<-chan types.Event, func())
	Ready() bool
}

// maxLogsLimit bounds GET /logs?limit=N.
const maxLogsLimit = 10000

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when the
// handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(accessLog)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   corsAllowedMethods,
			AllowedHeaders:   corsAllowedHeaders,
			AllowCredentials: true,
		}))
	}

	r.Get("/modules", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModulesResponse{Modules: svc.Modules()})
	})

	r.Post("/modules/{id}/toggle", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		m, err := svc.Toggle(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	})

	r.Post("/events", func(w http.ResponseWriter, r *http.Request) {
		var req types.PublishEventRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.SourceModule) == "" {
			writeJSONError(w, http.StatusBadRequest, "ValidationError", "source_module is required")
			return
		}
		if req.Payload == nil {
			writeJSONError(w, http.StatusBadRequest, "ValidationError", "payload must be an object")
			return
		}
		ev, err := svc.Publish(req.SourceModule, req.Type, req.Payload)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	})

	r.Post("/vision/frame", func(w http.ResponseWriter, r *http.Request) {
		var req types.VisionFrameRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		// Anything shorter cannot be a real image; reject before the eye
		// burns cycles on it.
		if len(strings.TrimSpace(req.Frame)) < 10 {
			writeJSONError(w, http.StatusBadRequest, "ValidationError", "frame data too short to be a valid image")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		writeJSON(w, http.StatusOK, svc.ProcessFrame(ctx, req.Frame))
	})

	r.Post("/audio/chunk", func(w http.ResponseWriter, r *http.Request) {
		var req types.AudioChunkRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Audio) == "" {
			writeJSONError(w, http.StatusBadRequest, "ValidationError", "audio is required")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.ProcessAudio(ctx, req.Audio)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/logs", func(w http.ResponseWriter, r *http.Request) {
		limit := 0 // service default
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeJSONError(w, http.StatusBadRequest, "ValidationError", "limit must be a positive integer")
				return
			}
			if n > maxLogsLimit {
				writeJSONError(w, http.StatusBadRequest, "ValidationError", "limit must be at most 10000")
				return
			}
			limit = n
		}
		events := svc.Recent(limit)
		if events == nil {
			events = []types.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	})

	r.Get("/events/stream", streamSSE(svc))
	r.Get("/events/ws", streamWS(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("stopping"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// decodeJSON enforces content type and body size, then decodes into dst.
// It writes the error response itself and reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "ValidationError", "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logError("encode response: " + err.Error())
	}
}
