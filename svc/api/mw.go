package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"flybin/cfg"
	"flybin/metrics"
	"flybin/pkg/domain"
	"flybin/svc/lim"
	"flybin/svc/util"
)

type Mw struct {
	bucket lim.Bucket
	cfg    *cfg.Cfg
}

func NewMw(bucket lim.Bucket, c *cfg.Cfg) *Mw {
	return &Mw{bucket: bucket, cfg: c}
}

func (m *Mw) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := util.NewRequestID()
		ctx := util.SetRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Mw) ContextTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), m.cfg.ContextTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Mw) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (m *Mw) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				util.Error().
					Interface("panic", rvr).
					Str("request_id", util.GetRequestID(r.Context())).
					Msg("panic recovered")
				writeErr(w, domain.ErrInternalServer)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Admit gates every paste operation behind the shared global bucket. The
// budget is one pool across all callers; waiters queue up to a bound and
// anything past that is turned away with 503.
func (m *Mw) Admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.bucket.Acquire(r.Context()); err != nil {
			metrics.AdmissionRejected.Inc()
			util.Warn().
				Str("ip", util.RedactIP(r.RemoteAddr)).
				Str("path", r.URL.Path).
				Msg("admission rejected")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.cfg.AdmitWindow.Seconds())))
			writeErr(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Observe records the request duration histogram keyed by route pattern.
func (m *Mw) Observe(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			metrics.RequestDuration.
				WithLabelValues(r.Method, endpoint, fmt.Sprintf("%d", ww.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
