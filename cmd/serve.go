package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse/internal/agent"
	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/model"
	"github.com/edupulse/edupulse/internal/monitoring"
	"github.com/edupulse/edupulse/internal/pipeline"
	"github.com/edupulse/edupulse/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the risk scoring API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initApp(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		calls := agent.NewSimulator(cfg.Agent, agent.NewStoreNotifier(env.Store))
		defer calls.Close()

		h := buildRouter(env, calls, routerOptions{
			MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
			CORSOrigins:    cfg.Server.CORSOrigins,
		})
		return startServer(ctx, h, resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// routerOptions are the HTTP-level settings of the API.
type routerOptions struct {
	MaxUploadBytes int64
	CORSOrigins    []string
}

// api carries the handler dependencies. store and calls may be nil, in which
// case the routes that need them answer 503.
type api struct {
	env       *appEnv
	store     store.Store
	calls     *agent.Simulator
	collector *monitoring.Collector
	maxUpload int64
}

// buildRouter wires every route of the API.
func buildRouter(env *appEnv, calls *agent.Simulator, opts routerOptions) http.Handler {
	a := &api{env: env, store: env.Store, calls: calls, maxUpload: opts.MaxUploadBytes}
	if a.store != nil {
		a.collector = monitoring.NewCollector(a.store)
	}
	if a.maxUpload <= 0 {
		a.maxUpload = 20 << 20
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "EduPulse API is online",
			"docs":    "/api/v1",
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", env.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict/{domain}", a.predict)
		r.Get("/models", a.models)
		r.Get("/students", a.listStudents)
		r.Get("/students/{student_id}", a.getStudent)
		r.Get("/stats", a.stats)

		r.Post("/agent/call/{student_id}", a.triggerCall)
		r.Post("/agent/webhook/summary", a.receiveSummary)
		r.Get("/agent/calls/{student_id}", a.listCalls)
	})

	return r
}

func (a *api) predict(w http.ResponseWriter, r *http.Request) {
	d, _ := domain.Parse(chi.URLParam(r, "domain"))

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid CSV")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid CSV")
		return
	}

	report, err := a.env.Processor.ProcessUpload(r.Context(), pipeline.Upload{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, d)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidUpload) {
			writeError(w, http.StatusBadRequest, "Invalid CSV")
			return
		}
		zap.L().Error("predict failed", zap.String("domain", d.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *api) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": a.env.Models.Status()})
}

func (a *api) listStudents(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	q := r.URL.Query()
	filter := store.StudentFilter{
		Label:         model.RiskLabel(q.Get("label")),
		FinancialOnly: q.Get("financial") == "true",
		Limit:         queryInt(q.Get("limit")),
		Offset:        queryInt(q.Get("offset")),
	}
	if raw := q.Get("domain"); raw != "" {
		d, _ := domain.Parse(raw)
		filter.Domain = d.String()
	}
	if filter.Label != "" && !filter.Label.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown label %q", filter.Label))
		return
	}

	students, err := a.store.ListStudents(r.Context(), filter)
	if err != nil {
		zap.L().Error("list students failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(students), "data": students})
}

func (a *api) getStudent(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	s, err := a.store.GetStudent(r.Context(), chi.URLParam(r, "student_id"))
	if err != nil {
		zap.L().Error("get student failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	if a.collector == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	snap, err := a.collector.Collect(r.Context(), queryInt(r.URL.Query().Get("lookback_hours")))
	if err != nil {
		zap.L().Error("collect stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *api) triggerCall(w http.ResponseWriter, r *http.Request) {
	if a.calls == nil {
		writeError(w, http.StatusServiceUnavailable, "call agent not configured")
		return
	}
	status, err := a.calls.Trigger(chi.URLParam(r, "student_id"))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *api) receiveSummary(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	var summary model.CallSummary
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if summary.StudentID == "" {
		writeError(w, http.StatusUnprocessableEntity, "student_id is required")
		return
	}
	if !summary.Sentiment.Valid() {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid sentiment %q", summary.Sentiment))
		return
	}

	saved, err := a.store.SaveCallLog(r.Context(), summary)
	if err != nil {
		zap.L().Error("save call log failed", zap.String("student_id", summary.StudentID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "id": saved.ID})
}

func (a *api) listCalls(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	logs, err := a.store.ListCallLogs(r.Context(), store.CallFilter{
		StudentID: chi.URLParam(r, "student_id"),
		Limit:     queryInt(r.URL.Query().Get("limit")),
	})
	if err != nil {
		zap.L().Error("list call logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(logs), "data": logs})
}

// requestLogger logs each request with zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves h on port until ctx is cancelled, then shuts down
// gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	<-shutdownDone
	return nil
}
