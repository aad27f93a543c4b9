package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/scrapejob"
)

// DefaultShutdownTimeout bounds graceful shutdown in Close.
const DefaultShutdownTimeout = 10 * time.Second

// MaxRequestBodySize caps submission payloads.
const MaxRequestBodySize = 1 << 20

// RateLimitMessage is returned with 429 responses.
const RateLimitMessage = "Rate limit exceeded. Please wait 5 seconds between requests."

// Server serves the job API over HTTP.
type Server struct {
	ln     net.Listener
	server *http.Server
	router *http.ServeMux

	// Bind address for the server's listener.
	Addr string

	// TrustProxy takes the client identity from X-Forwarded-For.
	TrustProxy bool

	// Services used by the handlers. Limiter and MetricsHandler are optional.
	JobService     scrapejob.JobService
	Limiter        scrapejob.ClientLimiter
	MetricsHandler http.Handler

	// Middleware wraps the router when set.
	Middleware func(http.Handler) http.Handler

	Logger *slog.Logger
}

// NewServer returns a new Server with routes registered.
func NewServer() *Server {
	s := &Server{
		server: &http.Server{
			ReadHeaderTimeout: 10 * time.Second,
		},
		router: http.NewServeMux(),
		Logger: slog.Default(),
	}

	s.router.HandleFunc("POST /api/scrape", s.handleSubmitJob)
	s.router.HandleFunc("GET /api/scraping-jobs", s.handleListJobs)
	s.router.HandleFunc("GET /api/scraping-jobs/{id}", s.handleFindJob)
	s.router.HandleFunc("POST /api/scraping-jobs/{id}/cancel", s.handleCancelJob)
	s.router.HandleFunc("GET /metrics", s.handleMetrics)
	s.router.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	if s.Middleware != nil {
		return s.Middleware(s.router)
	}
	return s.router
}

// Open starts listening on Addr and serves in the background.
func (s *Server) Open() (err error) {
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	s.server.Handler = s.Handler()

	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("http server", "err", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

type submitJobRequest struct {
	URL     string                      `json:"url"`
	Options scrapejob.ExtractionOptions `json:"options"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.Limiter != nil {
		if ok, retryAfter := s.Limiter.Allow(s.clientID(r)); !ok {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Message: RateLimitMessage})
			return
		}
	}

	var req submitJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodySize)).Decode(&req); err != nil {
		s.Error(w, r, scrapejob.Errorf(scrapejob.EINVALID, "Invalid request data"))
		return
	}

	job, err := s.JobService.SubmitJob(r.Context(), req.URL, req.Options)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		s.Error(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize")
	if err != nil {
		s.Error(w, r, err)
		return
	}

	jobs, err := s.JobService.ListJobs(r.Context(), page, pageSize)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleFindJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.JobService.FindJobByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.JobService.CancelJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.MetricsHandler == nil {
		http.NotFound(w, r)
		return
	}
	s.MetricsHandler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// clientID identifies the caller for rate limiting.
func (s *Server) clientID(r *http.Request) string {
	if s.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorResponse struct {
	Message string `json:"message"`
}

// Error writes err as a JSON message with a status derived from its code.
// Internal errors are logged and replaced by a generic message.
func (s *Server) Error(w http.ResponseWriter, r *http.Request, err error) {
	code, message := scrapejob.ErrorCode(err), scrapejob.ErrorMessage(err)
	status := ErrorStatusCode(code)
	if status == http.StatusInternalServerError {
		s.Logger.Error("http error", "method", r.Method, "path", r.URL.Path, "err", err)
		message = "Internal server error"
	}
	writeJSON(w, status, errorResponse{Message: message})
}

var codes = map[string]int{
	scrapejob.EINVALID:  http.StatusBadRequest,
	scrapejob.ENOTFOUND: http.StatusNotFound,
	scrapejob.ECONFLICT: http.StatusConflict,
}

// ErrorStatusCode maps an application error code to an HTTP status.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, scrapejob.Errorf(scrapejob.EINVALID, "Invalid %s parameter", name)
	}
	return v, nil
}
