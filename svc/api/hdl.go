package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"

	"flybin/cfg"
	"flybin/pkg/domain"
	"flybin/svc/render"
	"flybin/svc/svc"
)

type Hdl struct {
	paste *svc.Paste
	hl    *render.Highlighter
	cfg   *cfg.Cfg
}

func (h *Hdl) GetPaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	slug := chi.URLParam(r, "slug")
	password := r.URL.Query().Get("password")
	paste, err := h.paste.Get(r.Context(), slug, password)
	if err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("get failed")
		writeErr(w, err)
		return
	}
	log.Info().Str("slug", slug).Msg("paste retrieved")
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, paste.Content)
}

// GetHighlighted serves the paste rendered for the requested language. An
// unrecognized language token falls back to the verbatim content instead of
// failing. The output form follows the client: curl gets ANSI escapes,
// browsers an HTML fragment.
func (h *Hdl) GetHighlighted(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	slug := chi.URLParam(r, "slug")
	lang := chi.URLParam(r, "lang")
	password := r.URL.Query().Get("password")
	paste, err := h.paste.Get(r.Context(), slug, password)
	if err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("get failed")
		writeErr(w, err)
		return
	}
	mode := render.ModeHTML
	if strings.Contains(r.UserAgent(), "curl/") {
		mode = render.ModeTerminal
	}
	out, ok, err := h.hl.Highlight(paste.Content, lang, mode)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Str("lang", lang).Msg("highlight failed")
		writeErr(w, domain.ErrInternalServer)
		return
	}
	if !ok {
		log.Debug().Str("lang", lang).Msg("unknown language token, serving verbatim")
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, paste.Content)
		return
	}
	log.Info().Str("slug", slug).Str("lang", lang).Msg("paste retrieved highlighted")
	w.Header().Set("Content-Type", mode.ContentType())
	fmt.Fprint(w, out)
}

func (h *Hdl) LockPaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	slug := chi.URLParam(r, "slug")
	password := r.URL.Query().Get("password")
	secret := r.URL.Query().Get("secret")
	if password == "" {
		writeErr(w, domain.ErrMissingPassword)
		return
	}
	if secret == "" {
		writeErr(w, domain.ErrMissingSecret)
		return
	}
	if err := h.paste.Lock(r.Context(), slug, secret, password); err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			writeText(w, http.StatusNotFound, "unable to lock paste")
			return
		}
		log.Error().Err(err).Str("slug", slug).Msg("lock failed")
		writeErr(w, err)
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("paste(%s) successfully locked", slug))
}

func (h *Hdl) DeletePaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	slug := chi.URLParam(r, "slug")
	secret := r.URL.Query().Get("secret")
	if secret == "" {
		writeErr(w, domain.ErrMissingSecret)
		return
	}
	if err := h.paste.Delete(r.Context(), slug, secret); err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			log.Error().Err(err).Str("slug", slug).Msg("delete failed")
		}
		writeErr(w, err)
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("Post successfully deleted %s/%s", h.cfg.BaseURL(), slug))
}

func writeErr(w http.ResponseWriter, err error) {
	writeText(w, domain.Status(err), domain.Message(err))
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	fmt.Fprintln(w, msg)
}
