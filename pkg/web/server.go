// Package web serves the latest analysis report as a read-only JSON API
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/ritzau/coco/pkg/analysis"
	"github.com/ritzau/coco/pkg/cycles"
	"github.com/ritzau/coco/pkg/logging"
	"github.com/ritzau/coco/pkg/model"
	"github.com/ritzau/coco/pkg/pubsub"
)

var log = logging.New("web")

// ReportInfo is the response of /api/report
type ReportInfo struct {
	RunID      string           `json:"runId"`
	Workspace  string           `json:"workspace"`
	Reason     string           `json:"reason,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	DurationMs int64            `json:"durationMs"`
	Summary    analysis.Summary `json:"summary"`
	Warnings   []string         `json:"warnings"`
}

// ClassSummary is one entry of /api/classes
type ClassSummary struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Kind       model.Kind `json:"kind"`
	Language   string     `json:"language,omitempty"`
	SourceFile string     `json:"sourceFile"`
	Parents    int        `json:"parents"`
	Unresolved int        `json:"unresolved"`
}

// PluginsInfo is the response of /api/plugins
type PluginsInfo struct {
	Runs   []analysis.PluginRun       `json:"runs"`
	Errors []analysis.PluginErrorJSON `json:"errors"`
}

// Server represents the web server
type Server struct {
	router *mux.Router
	events *pubsub.Broker

	mu     sync.RWMutex
	report *analysis.Report
	json   *analysis.ReportJSON
}

// NewServer creates a new web server
func NewServer() *Server {
	s := &Server{
		router: mux.NewRouter(),
		events: pubsub.NewBroker(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.traceRequests)

	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/report/full", s.handleFullReport).Methods("GET")
	s.router.HandleFunc("/api/tags", s.handleTags).Methods("GET")
	s.router.HandleFunc("/api/classes", s.handleClasses).Methods("GET")
	s.router.HandleFunc("/api/classes/{name}", s.handleClass).Methods("GET")
	s.router.HandleFunc("/api/cycles", s.handleCycles).Methods("GET")
	s.router.HandleFunc("/api/plugins", s.handlePlugins).Methods("GET")
}

// Handler returns the router, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReport replaces the served report and notifies report subscribers
func (s *Server) SetReport(report *analysis.Report) {
	if report == nil {
		return
	}
	serialized := report.JSON()

	s.mu.Lock()
	s.report = report
	s.json = serialized
	s.mu.Unlock()

	summary := serialized.Summary
	update := pubsub.ReportUpdate{
		RunID:    report.RunID,
		Classes:  summary.Classes,
		Edges:    summary.Edges,
		Cycles:   summary.Cycles,
		Failures: summary.PluginErrors,
	}
	if err := s.events.PublishReport(update); err != nil {
		log.Warn("Failed to publish report update", "error", err)
	}
}

// PublishStatus publishes an analysis status event
func (s *Server) PublishStatus(status pubsub.AnalysisStatus) error {
	return s.events.PublishStatus(status)
}

// current returns the served report, or nil before the first one
func (s *Server) current() (*analysis.Report, *analysis.ReportJSON) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report, s.json
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !s.events.HasTopic(topic) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown topic %q", topic))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial comment establishes the stream (Safari)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	sub, err := s.events.Subscribe(r.Context(), topic)
	if err != nil {
		log.ErrorContext(r.Context(), "Subscribe failed", "topic", topic, "error", err)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if _, err := event.WriteTo(w); err != nil {
				log.DebugContext(r.Context(), "Error writing SSE event", "error", err)
				return
			}
			flush(w)
		}
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, serialized := s.current()
	if report == nil {
		notReady(w)
		return
	}

	writeJSON(w, ReportInfo{
		RunID:      serialized.RunID,
		Workspace:  serialized.Workspace,
		Reason:     serialized.Reason,
		StartedAt:  serialized.StartedAt,
		DurationMs: serialized.DurationMs,
		Summary:    serialized.Summary,
		Warnings:   serialized.Warnings,
	})
}

func (s *Server) handleFullReport(w http.ResponseWriter, r *http.Request) {
	_, serialized := s.current()
	if serialized == nil {
		notReady(w)
		return
	}
	writeJSON(w, serialized)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	report, _ := s.current()
	if report == nil {
		notReady(w)
		return
	}
	writeJSON(w, report.Tags)
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	report, _ := s.current()
	if report == nil || report.Graph == nil {
		notReady(w)
		return
	}

	nodes := report.Graph.Nodes()
	classes := make([]ClassSummary, 0, len(nodes))
	for _, node := range nodes {
		classes = append(classes, ClassSummary{
			ID:         node.ID,
			Name:       node.Name,
			Kind:       node.Kind,
			Language:   node.Language,
			SourceFile: node.SourceFile,
			Parents:    len(node.ResolvedParents),
			Unresolved: len(node.UnresolvedParents),
		})
	}
	writeJSON(w, classes)
}

func (s *Server) handleClass(w http.ResponseWriter, r *http.Request) {
	report, _ := s.current()
	if report == nil || report.Graph == nil {
		notReady(w)
		return
	}

	name := mux.Vars(r)["name"]
	details := analysis.GetClassDetails(name, report.Graph, report.CrossPackage)
	if details == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("class %q not found", name))
		return
	}
	writeJSON(w, details)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	report, _ := s.current()
	if report == nil {
		notReady(w)
		return
	}

	out := report.Cycles
	if out == nil {
		out = []cycles.ClassCycle{}
	}
	writeJSON(w, out)
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	_, serialized := s.current()
	if serialized == nil {
		notReady(w)
		return
	}
	writeJSON(w, PluginsInfo{Runs: serialized.Plugins, Errors: serialized.PluginErrors})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func notReady(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "no analysis report yet")
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start serves on the given port until ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.events.Close()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
