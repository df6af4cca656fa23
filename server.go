package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ---------------------------------------------------------------------------
// HTTP API
// ---------------------------------------------------------------------------

const (
	letterPath  = "/api/letter"
	usageText   = "POST " + letterPath + " { adresse, plzOrt, text? }"
	pdfMimeType = "application/pdf"
)

type letterResponse struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type usageResponse struct {
	OK    bool   `json:"ok"`
	Usage string `json:"usage"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type handler struct {
	gen          *Generator
	log          logrus.FieldLogger
	maxBodyBytes int64
}

// newRouter wires the letter endpoint. It answers on "/" as well so the
// service can sit behind a path-stripping proxy.
func newRouter(gen *Generator, cfg ServerConfig, log logrus.FieldLogger) http.Handler {
	h := &handler{gen: gen, log: log, maxBodyBytes: cfg.MaxBodyBytes}

	r := chi.NewRouter()
	r.Use(corsHeaders)
	r.Use(requestLogging(log))
	r.Use(recoverer(log))
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)))
	}

	for _, path := range []string{"/", letterPath} {
		r.Get(path, h.usage)
		r.Options(path, h.preflight)
		r.Post(path, h.letter)
	}
	r.MethodNotAllowed(h.methodNotAllowed)

	return r
}

func (h *handler) usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, usageResponse{OK: true, Usage: usageText})
}

func (h *handler) preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Use POST with JSON body"})
}

func (h *handler) letter(w http.ResponseWriter, r *http.Request) {
	// Unreadable or oversized bodies are treated like an empty object.
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.log.WithError(err).Debug("Ignoring unreadable request body")
		raw = nil
	}

	req := decodeLetterRequest(raw)
	letter, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"request_id": requestID(r),
		"font_size":  letter.Fit.FontSize,
		"fits":       letter.Fit.Fits,
		"bytes":      len(letter.PDF),
	}).Info("Letter generated")

	writeJSON(w, http.StatusOK, letterResponse{
		FileName: letter.FileName,
		MimeType: pdfMimeType,
		Data:     base64.StdEncoding.EncodeToString(letter.PDF),
	})
}

func (h *handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithError(err).WithField("request_id", requestID(r)).Error("Letter generation failed")
	sentry.CaptureException(err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error", Details: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsHeaders sets permissive CORS headers on every response.
func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

const requestIDHeader = "X-Request-ID"

func requestID(r *http.Request) string {
	return r.Header.Get(requestIDHeader)
}

// requestLogging tags each request with an id and logs its outcome.
func requestLogging(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.New().String()
				r.Header.Set(requestIDHeader, id)
			}
			w.Header().Set(requestIDHeader, id)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			entry := log.WithFields(logrus.Fields{
				"request_id":  id,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": duration.Milliseconds(),
			})
			if rec.status >= http.StatusInternalServerError {
				entry.Error("Request failed with server error")
				return
			}
			entry.Info("Request completed")
		})
	}
}

// recoverer turns a panic into the same 500 body as a returned error.
func recoverer(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					stack := make([]byte, 4096)
					stack = stack[:runtime.Stack(stack, false)]
					log.WithFields(logrus.Fields{
						"request_id": requestID(r),
						"panic":      v,
						"stack":      string(stack),
					}).Error("Panic recovered")

					err := fmt.Errorf("%v", v)
					sentry.CaptureException(err)
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error", Details: err.Error()})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit rejects requests beyond the limiter's rate.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
