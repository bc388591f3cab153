package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"

	"flybin/cfg"
	"flybin/svc/db"
	"flybin/svc/lim"
	"flybin/svc/render"
	"flybin/svc/svc"
	"flybin/svc/util"
)

// Server is the structured query/mutation channel: read, lock and delete on
// existing pastes. Creation happens on the raw ingestion listener.
type Server struct {
	router     *chi.Mux
	cfg        *cfg.Cfg
	db         *db.SQLite
	rdb        *db.Redis
	httpServer *http.Server
}

func NewServer(c *cfg.Cfg, p *svc.Paste, bucket lim.Bucket, sqlDB *db.SQLite, rdb *db.Redis) *Server {
	r := chi.NewRouter()
	mw := NewMw(bucket, c)
	s := &Server{
		router: r,
		cfg:    c,
		db:     sqlDB,
		rdb:    rdb,
	}
	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Get("/health", s.Health)
		r.Get("/ready", s.Ready)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Handle("/metrics", promhttp.Handler())
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Use(mw.RequestID)
		r.Use(hlog.NewHandler(util.GetLogger()))
		r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, dur time.Duration) {
			hlog.FromRequest(req).Info().
				Str("method", req.Method).
				Str("url", req.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", dur).
				Str("request_id", util.GetRequestID(req.Context())).
				Msg("http request")
		}))
		r.Use(mw.ContextTimeout)
		r.Use(mw.SecurityHeaders)
		r.Use(mw.Admit)
		hdl := &Hdl{paste: p, hl: render.New(), cfg: c}
		r.With(mw.Observe("read")).Get("/{slug}", hdl.GetPaste)
		r.With(mw.Observe("read_highlighted")).Get("/{slug}/{lang}", hdl.GetHighlighted)
		r.With(mw.Observe("lock")).Post("/{slug}", hdl.LockPaste)
		r.With(mw.Observe("delete")).Delete("/{slug}", hdl.DeletePaste)
	})
	s.httpServer = &http.Server{
		Addr:           ":" + c.HTTPPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 256 * 1024,
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	util.Info().Str("port", s.cfg.HTTPPort).Msg("starting http server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		util.Error().Err(err).Str("port", s.cfg.HTTPPort).Msg("http server failed")
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
