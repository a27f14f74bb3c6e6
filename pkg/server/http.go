package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/receitas/pkg/export"
	"github.com/dasmlab/receitas/pkg/mealdb"
	"github.com/dasmlab/receitas/pkg/service"
	"github.com/dasmlab/receitas/pkg/translate"
)

// DefaultSSEInterval is how often job streams poll for changes.
const DefaultSSEInterval = time.Second

// HTTPServer serves the recipe API, job status with SSE progress updates,
// health and metrics.
type HTTPServer struct {
	recipes     *service.RecipeService
	translator  *translate.ChunkedTranslator
	jobQueue    *service.JobQueue
	logger      *logrus.Logger
	port        int
	sseInterval time.Duration
	srv         *http.Server
}

// NewHTTPServer creates a new HTTP server. The listener is only opened by Start,
// but Shutdown is safe to call from another goroutine at any time.
func NewHTTPServer(recipes *service.RecipeService, translator *translate.ChunkedTranslator, jobQueue *service.JobQueue, logger *logrus.Logger, port int) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}
	s := &HTTPServer{
		recipes:     recipes,
		translator:  translator,
		jobQueue:    jobQueue,
		logger:      logger,
		port:        port,
		sseInterval: DefaultSSEInterval,
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetSSEInterval changes the job stream poll interval. Call it before Start.
func (s *HTTPServer) SetSSEInterval(d time.Duration) {
	if d > 0 {
		s.sseInterval = d
	}
}

// Handler returns the routed handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/recipes", s.handleSearch)
	mux.HandleFunc("GET /api/v1/recipes/{id}", s.handleRecipe)
	mux.HandleFunc("GET /api/v1/recipes/{id}/sheet.xlsx", s.handleRecipeSheet)
	mux.HandleFunc("POST /api/v1/translate", s.handleTranslate)

	mux.HandleFunc("POST /api/v1/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/v1/jobs/{id}/events", s.handleJobEvents)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown,
// including when Shutdown ran first.
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"port": s.port,
	}).Info("Starting HTTP server")

	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.recipes.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipes": recipes,
	})
}

func (s *HTTPServer) handleRecipe(w http.ResponseWriter, r *http.Request) {
	detail, err := s.recipes.Detail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *HTTPServer) handleRecipeSheet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	detail, err := s.recipes.Detail(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"receita-%s.xlsx\"", id))
	if err := export.WriteRecipeSheet(w, detail); err != nil {
		s.logger.WithError(err).WithField("meal_id", id).Error("Failed to write recipe sheet")
	}
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Source == "" {
		req.Source = translate.AutoDetect
	}
	if req.Target == "" {
		req.Target = service.UserLang
	}

	res := s.translator.TranslateUnits(r.Context(), req.Text, req.Source, req.Target, nil)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"translated_text": res.String(),
		"units":           len(res.Outcomes),
		"fallbacks":       res.Count(translate.Fallback),
		"skipped":         res.Count(translate.Skipped),
	})
}

type createJobRequest struct {
	MealID string `json:"meal_id"`
}

func (s *HTTPServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.MealID = strings.TrimSpace(req.MealID)

	job, err := s.jobQueue.CreateJob(req.MealID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(service.JobStatusQueued),
	})
}

// handleJobStatus returns the current state of a recipe job as JSON.
func (s *HTTPServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobQueue.GetJob(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Job not found: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobEvents streams job progress as Server-Sent Events until the job
// finishes or the client goes away.
func (s *HTTPServer) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobQueue.GetJob(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Job not found: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ticker := time.NewTicker(s.sseInterval)
	defer ticker.Stop()

	lastStatus, _, lastProgress := job.GetStatus()
	s.sendSSEEvent(w, "status", job)
	if lastStatus.Done() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			status, _, progress := job.GetStatus()
			if status == lastStatus && progress == lastProgress {
				continue
			}
			s.sendSSEEvent(w, "status", job)
			lastStatus = status
			lastProgress = progress

			if status.Done() {
				return
			}
		}
	}
}

// sendSSEEvent writes one event: <type>\ndata: <json>\n\n frame.
func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, eventType string, job *service.RecipeJob) {
	data, err := json.Marshal(job.Snapshot())
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal SSE event")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", data)

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"jobs":   s.jobQueue.Len(),
	})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, mealdb.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.WithError(err).Error("Recipe database request failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
