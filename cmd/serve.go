package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/progress"
	"github.com/sells-group/atlas/internal/store"
)

var servePort int

// eventRetention is how long a finished run's progress stays replayable.
const eventRetention = 15 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research API server",
	Long: `Serves the research API:
  POST /research            start a run: {"company": "Acme Corp"}
  GET  /runs                list runs (?status=&company=&limit=&offset=)
  GET  /runs/{id}           run status and profile
  GET  /runs/{id}/events    progress as server-sent events
  GET  /reports/{file}      report files
  GET  /health`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initResearch(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(ctx, env.Runner, progress.NewHub(progress.DefaultHistory), cfg.Report.Dir),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// server holds the HTTP handlers' dependencies.
type server struct {
	ctx        context.Context
	runner     *runner
	hub        *progress.Hub
	reportsDir string
	// retain is how long finished runs keep their event history.
	retain time.Duration
	// wait, when set, is called after each background run finishes.
	wait func()
}

// buildRouter wires the API routes. Background runs use ctx so they stop
// when the server shuts down.
func buildRouter(ctx context.Context, r *runner, hub *progress.Hub, reportsDir string) http.Handler {
	s := &server{ctx: ctx, runner: r, hub: hub, reportsDir: reportsDir, retain: eventRetention}
	return s.routes()
}

func (s *server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Post("/research", s.handleResearch)
	router.Get("/runs", s.handleListRuns)
	router.Get("/runs/{id}", s.handleGetRun)
	router.Get("/runs/{id}/events", s.handleEvents)
	router.Get("/reports/{file}", s.handleReport)
	return router
}

func (s *server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Company string `json:"company"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Company = strings.TrimSpace(req.Company)
	if req.Company == "" {
		writeError(w, http.StatusBadRequest, "company is required")
		return
	}

	run, err := s.runner.Start(r.Context(), req.Company)
	if err != nil {
		zap.L().Error("start run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start run")
		return
	}

	// Run research asynchronously
	go s.execute(run)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id":  run.ID,
		"company": run.Company,
		"status":  string(run.Status),
		"events":  "/runs/" + run.ID + "/events",
	})
}

func (s *server) execute(run *model.Run) {
	if s.wait != nil {
		defer s.wait()
	}
	reporter := s.hub.Reporter(run.ID)
	final, err := s.runner.Execute(s.ctx, run, reporter)
	switch {
	case err != nil:
		s.hub.Finish(run.ID, "Research failed: "+err.Error())
	case final != nil:
		s.hub.Finish(run.ID, "Research complete for "+final.Company)
	}
	s.hub.ForgetAfter(run.ID, s.retain)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.RunFilter{
		Status:  model.RunStatus(q.Get("status")),
		Company: q.Get("company"),
	}
	if _, err := fmt.Sscan(q.Get("limit"), &filter.Limit); err != nil && q.Get("limit") != "" {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if _, err := fmt.Sscan(q.Get("offset"), &filter.Offset); err != nil && q.Get("offset") != "" {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := s.runner.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleEvents streams a run's progress as server-sent events. History is
// replayed first; the stream ends with the run's final event. A finished run
// whose history has been dropped gets a single final event built from the
// stored run.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	run, err := s.runner.store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if final, ok := finalEvent(run); ok && len(s.hub.History(runID)) == 0 {
		w.WriteHeader(http.StatusOK)
		writeEvent(w, final)
		flusher.Flush()
		return
	}

	events, cancel := s.hub.Subscribe(runID)
	defer cancel()

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

// finalEvent reports the closing event of a terminal run.
func finalEvent(run *model.Run) (progress.Event, bool) {
	ev := progress.Event{RunID: run.ID, Time: run.UpdatedAt, Done: true}
	switch run.Status {
	case model.RunStatusComplete:
		ev.Message = "Research complete for " + run.Company
	case model.RunStatusFailed:
		ev.Message = "Research failed: " + run.Error
	default:
		return progress.Event{}, false
	}
	return ev, true
}

func writeEvent(w io.Writer, ev progress.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	name := "progress"
	if ev.Done {
		name = "done"
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.reportsDir, name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
