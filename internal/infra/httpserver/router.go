package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/vision-assist/internal/application/analysis"
	domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"
	"github.com/bryanwahyu/vision-assist/internal/infra/notify/ws"
	"github.com/bryanwahyu/vision-assist/internal/middleware"
)

type Router struct {
	svc       *appanalysis.Service
	hub       *ws.Hub
	maxUpload int64
}

func NewRouter(svc *appanalysis.Service, hub *ws.Hub, maxUpload int64, checkers map[string]middleware.HealthChecker) http.Handler {
	rt := &Router{svc: svc, hub: hub, maxUpload: maxUpload}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"}, // replace with the frontend origin in production
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"*"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(30, 10))

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Get("/ws", rt.handleWS)

	mux.Route("/api", func(r chi.Router) {
		r.Post("/ai/analyze", rt.wrap(rt.handleAnalyze))
		r.Get("/history", rt.wrap(rt.handleHistory))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries a status code through the wrap helper
type httpError struct {
	status int
	err    error
}

func (e *httpError) Error() string { return e.err.Error() }

func badRequest(err error) error { return &httpError{status: http.StatusBadRequest, err: err} }

func (rt *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var he *httpError
			if errors.As(err, &he) {
				http.Error(w, he.Error(), he.status)
				return
			}
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// POST /api/ai/analyze
// Multipart form: image file, command text, save flag, optional socketId.
// Without a socketId the terminal payload is the response body; with one,
// the payload goes over the push channel and this endpoint only acknowledges.
func (rt *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, rt.maxUpload)
	if err := req.ParseMultipartForm(rt.maxUpload); err != nil {
		return badRequest(fmt.Errorf("parsing upload: %w", err))
	}

	var (
		image       []byte
		filename    string
		contentType string
	)
	if file, header, err := req.FormFile("image"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return badRequest(fmt.Errorf("reading upload: %w", err))
		}
		image = data
		filename = header.Filename
		contentType = header.Header.Get("Content-Type")

		if err := middleware.ValidateImageType(contentType); err != nil {
			return badRequest(err)
		}
	}

	command := middleware.SanitizeString(req.FormValue("command"))
	if command != "" {
		if err := middleware.ValidateCommand(command); err != nil {
			return badRequest(err)
		}
	}

	socketID := req.FormValue("socketId")
	if socketID != "" {
		if err := middleware.ValidateClientID(socketID); err != nil {
			return badRequest(err)
		}
	}

	middleware.IncrementAnalyses()
	payload := rt.svc.Handle(req.Context(), domain.Request{
		Image:       image,
		Filename:    filename,
		ContentType: contentType,
		Command:     command,
		Save:        req.FormValue("save") == "true",
		SocketID:    socketID,
	})
	if payload.Status == domain.StatusError {
		middleware.IncrementAnalysesFailed()
	}

	w.Header().Set("Content-Type", "application/json")

	if socketID != "" {
		// Push path: the real payload arrives over the websocket
		return json.NewEncoder(w).Encode(map[string]any{
			"message": "Result will be sent via WebSocket",
			"status":  "processing",
		})
	}

	if payload.Failure != nil && payload.Failure.Kind == domain.FailureInvalidRequest {
		w.WriteHeader(http.StatusBadRequest)
	}
	return json.NewEncoder(w).Encode(payload)
}

// GET /api/history?limit=20
func (rt *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := rt.svc.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}
