package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/resolve"
)

var servePort int

// maxBodyBytes caps extraction payloads posted to the resolve endpoints.
const maxBodyBytes = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resolution API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initResolveEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		api := &server{
			resolver: env.Resolver,
			geocoder: env.Geocoder,
			matcher:  env.Matcher,
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// orderResolver is the part of resolve.Resolver the API uses.
type orderResolver interface {
	ResolveOrder(ctx context.Context, raw map[string]any, orderID string) *model.MergedResult
}

type server struct {
	resolver orderResolver
	geocoder resolve.Geocoder
	matcher  resolve.Matcher
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/orders/{orderID}/resolve", func(w http.ResponseWriter, req *http.Request) {
			s.handleResolve(w, req, chi.URLParam(req, "orderID"))
		})
		r.Post("/resolve", func(w http.ResponseWriter, req *http.Request) {
			s.handleResolve(w, req, uuid.NewString())
		})
		r.Get("/geocode", s.handleGeocode)
		r.Get("/providers/nearest", s.handleNearest)
	})
	return r
}

func (s *server) handleResolve(w http.ResponseWriter, r *http.Request, orderID string) {
	var raw map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	result := s.resolver.ResolveOrder(r.Context(), raw, orderID)

	switch format := r.URL.Query().Get("format"); format {
	case formatGeoJSON:
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_ = printResult(w, result, formatGeoJSON)
	case "", formatJSON:
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
	}
}

func (s *server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	res, err := s.geocoder.Geocode(r.Context(), address)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "geocoding interrupted")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "address not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := parseLatLon(q.Get("lat") + "," + q.Get("lon"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 || limit > 50 {
			writeError(w, http.StatusBadRequest, "limit must be between 0 and 50")
			return
		}
	}

	ranked, err := s.matcher.Match(r.Context(), lat, lon, q.Get("cpt"), limit)
	if err != nil {
		zap.L().Error("provider match failed", zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "provider store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": ranked})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
