package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sttd/internal/registry"
	"sttd/internal/transcribe"
	"sttd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Upload(ctx context.Context, audio io.Reader, filename, language string) (types.UploadResponse, error)
	Transcribe(ctx context.Context, req types.TranscribeRequest) (types.TranscribeResponse, error)
	ListModels() types.ModelsResponse
	Status(ctx context.Context) types.StatusResponse
	History(ctx context.Context, limit int) ([]types.TranscriptionRecord, error)
	Ready() bool
}

const (
	defaultUploadLanguage = transcribe.LabelVietnamese
	defaultModelSize      = "base"
	multipartMemory       = 32 << 20
)

const msgUnsupportedLanguage = "Unsupported language"

func invalidModelSizeMsg() string {
	return "Invalid model size. Choose from: " + strings.Join(registry.Sizes, ", ")
}

// NewMux builds the router. Package-level Set* options must be applied
// before calling it.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
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
			MaxAge:           300,
		}))
	}

	h := &handlers{svc: svc}
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Post("/upload-audio", h.upload)
		r.Post("/transcribe", h.transcribe)
		r.Get("/models", h.models)
		r.Get("/status", h.status)
		r.Get("/transcriptions", h.transcriptions)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if staticDir != "" {
		r.Get("/app", http.RedirectHandler("/app/", http.StatusMovedPermanently).ServeHTTP)
		r.Handle("/app/*", http.StripPrefix("/app/", http.FileServer(http.Dir(staticDir))))
	}
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// health godoc
// @Summary  Liveness check
// @Tags     api
// @Produce  json
// @Success  200 {object} types.HealthResponse
// @Router   /api/health [get]
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.HealthResponse{Status: "ok"})
}

// upload godoc
// @Summary  Store an audio recording
// @Tags     api
// @Accept   multipart/form-data
// @Produce  json
// @Param    file     formData file   true  "audio file"
// @Param    language formData string false "english or tiếng việt"
// @Success  200 {object} types.UploadResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  413 {object} types.ErrorResponse
// @Router   /api/upload-audio [post]
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "audio file too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	language := r.FormValue("language")
	if language == "" {
		language = defaultUploadLanguage
	}
	if !transcribe.IsLabel(language) {
		writeJSONError(w, http.StatusBadRequest, msgUnsupportedLanguage)
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()

	resp, err := h.svc.Upload(r.Context(), f, hdr.Filename, language)
	if err != nil {
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		logEnd(r, "upload", status, start, err, nil)
		return
	}
	uploadBytesTotal.Add(float64(hdr.Size))
	writeJSON(w, resp)
	logEnd(r, "upload", http.StatusOK, start, nil, map[string]any{"path": resp.FilePath, "bytes": hdr.Size})
}

// transcribe godoc
// @Summary  Transcribe a stored recording
// @Tags     api
// @Accept   json
// @Produce  json
// @Param    request body types.TranscribeRequest true "session and options"
// @Success  200 {object} types.TranscribeResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Failure  429 {object} types.ErrorResponse
// @Failure  500 {object} types.ErrorResponse
// @Router   /api/transcribe [post]
func (h *handlers) transcribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req := types.TranscribeRequest{Language: defaultUploadLanguage, ModelSize: defaultModelSize}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.DateFolder) == "" || strings.TrimSpace(req.SessionFolder) == "" {
		writeJSONError(w, http.StatusBadRequest, "date_folder and session_folder are required")
		return
	}
	if !transcribe.IsLabel(req.Language) {
		writeJSONError(w, http.StatusBadRequest, msgUnsupportedLanguage)
		return
	}
	req.ModelSize = strings.ToLower(strings.TrimSpace(req.ModelSize))
	if !registry.ValidSize(req.ModelSize) {
		writeJSONError(w, http.StatusBadRequest, invalidModelSizeMsg())
		return
	}

	ctx, cancel := workContext(r.Context())
	defer cancel()
	resp, err := h.svc.Transcribe(ctx, req)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusFor(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("transcribe")
		}
		transcriptionsTotal.WithLabelValues(req.ModelSize, strconv.Itoa(status)).Inc()
		writeJSONError(w, status, err.Error())
		logEnd(r, "transcribe", status, start, err, map[string]any{"model": req.ModelSize})
		return
	}
	transcriptionsTotal.WithLabelValues(req.ModelSize, "200").Inc()
	writeJSON(w, resp)
	logEnd(r, "transcribe", http.StatusOK, start, nil, map[string]any{"model": req.ModelSize, "path": resp.TranscriptionPath})
}

// models godoc
// @Summary  List model sizes and their weights files
// @Tags     api
// @Produce  json
// @Success  200 {object} types.ModelsResponse
// @Router   /api/models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.ListModels())
}

// status godoc
// @Summary  Loaded models and limits
// @Tags     api
// @Produce  json
// @Success  200 {object} types.StatusResponse
// @Router   /api/status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Status(r.Context()))
}

// transcriptions godoc
// @Summary  Recent transcriptions, newest first
// @Tags     api
// @Produce  json
// @Param    limit query int false "maximum records"
// @Success  200 {object} types.TranscriptionsResponse
// @Failure  400 {object} types.ErrorResponse
// @Router   /api/transcriptions [get]
func (h *handlers) transcriptions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	recs, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	if recs == nil {
		recs = []types.TranscriptionRecord{}
	}
	writeJSON(w, types.TranscriptionsResponse{Transcriptions: recs})
}
