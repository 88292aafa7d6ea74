package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
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

	"github.com/sells-group/saferoute/internal/recommend"
	"github.com/sells-group/saferoute/internal/risk"
	"github.com/sells-group/saferoute/internal/route"
	"github.com/sells-group/saferoute/internal/store"
)

var servePort int

// serverDeps are the components the HTTP handlers use. Store may be nil.
type serverDeps struct {
	Service     *recommend.Service
	Holder      *risk.Holder
	Store       store.Store
	CORSOrigins []string
	Timeout     time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the route safety HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		go reloadOnHangup(ctx, env.Holder)

		handler := buildRouter(serverDeps{
			Service:     env.Service,
			Holder:      env.Holder,
			Store:       env.Store,
			CORSOrigins: cfg.Server.CORSOrigins,
			Timeout:     time.Duration(cfg.Scoring.TimeoutSecs) * time.Second,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// reloadOnHangup rebuilds the risk snapshot on each SIGHUP until ctx ends.
func reloadOnHangup(ctx context.Context, holder *risk.Holder) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			_ = reloadSnapshot(ctx, holder)
		}
	}
}

func reloadSnapshot(ctx context.Context, holder *risk.Holder) error {
	start := time.Now()
	snap, err := holder.Reload(ctx)
	if err != nil {
		zap.L().Error("snapshot reload failed, keeping previous", zap.Error(err))
		return err
	}
	zap.L().Info("snapshot reloaded",
		zap.Int("districts", len(snap.Districts())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// buildRouter wires the API routes.
func buildRouter(deps serverDeps) http.Handler {
	origins := deps.CORSOrigins
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
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handlers{deps: deps}
	r.Get("/health", h.health)
	r.Get("/districts", h.districts)
	r.Route("/routes", func(r chi.Router) {
		r.Post("/score", h.score)
		r.Post("/recommend", h.recommend)
		r.Post("/compare", h.compare)
	})
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.listRuns)
		r.Get("/{id}", h.getRun)
	})
	r.Post("/reload", h.reload)
	return r
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
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

type handlers struct {
	deps serverDeps
}

func (h *handlers) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.deps.Timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.deps.Timeout)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if snap := h.deps.Holder.Current(); snap != nil {
		body["districts"] = len(snap.Districts())
		body["snapshot_built_at"] = snap.BuiltAt()
	} else {
		body["status"] = "loading"
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) districts(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Holder.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "risk model not loaded")
		return
	}
	writeJSON(w, http.StatusOK, districtViews(snap, r.URL.Query().Get("q")))
}

// scoreRequest carries pre-fetched routes to score.
type scoreRequest struct {
	Routes  []route.Candidate `json:"routes"`
	At      time.Time         `json:"travel_time"`
	Explain bool              `json:"explain"`
}

func (h *handlers) score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Routes) == 0 {
		writeError(w, http.StatusBadRequest, "routes is required")
		return
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.deps.Service.Score(ctx, req.Routes, req.At, req.Explain)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "geojson" {
		body, err := route.MarshalGeoJSON(res.Routes, routeHotspots(h.deps.Holder.Current(), res.Routes))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "encode geojson")
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		w.Write(body) //nolint:errcheck
		return
	}

	saveRun(ctx, h.deps.Store, store.KindScore, recommend.Request{At: req.At}, res)
	writeJSON(w, http.StatusOK, res)
}

func decodeRouteRequest(r *http.Request) (recommend.Request, error) {
	var req recommend.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, eris.New("invalid request body")
	}
	if req.Origin == "" || req.Destination == "" {
		return req, eris.New("origin and destination are required")
	}
	return req, nil
}

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRouteRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.deps.Service.Recommend(ctx, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	saveRun(ctx, h.deps.Store, store.KindRecommend, req, res)
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) compare(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRouteRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	cmps, err := h.deps.Service.CompareTimes(ctx, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comparisons": cmps})
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store == nil {
		writeError(w, http.StatusNotImplemented, "run history disabled")
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Kind:        q.Get("kind"),
		Destination: q.Get("destination"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	runs, err := h.deps.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store == nil {
		writeError(w, http.StatusNotImplemented, "run history disabled")
		return
	}
	run, err := h.deps.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	if err := reloadSnapshot(r.Context(), h.deps.Holder); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap := h.deps.Holder.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "reloaded",
		"districts":         len(snap.Districts()),
		"snapshot_built_at": snap.BuiltAt(),
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "scoring timed out")
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
