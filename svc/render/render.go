package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	htmlfmt "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/pkg/errors"
)

// Mode selects the output form: ANSI escapes for terminal clients, an HTML
// fragment for everything else. The choice is a presentation decision made
// by the HTTP handler, not by the store.
type Mode int

const (
	ModeTerminal Mode = iota
	ModeHTML
)

func (m Mode) ContentType() string {
	if m == ModeHTML {
		return "text/html"
	}
	return "text/plain"
}

type Highlighter struct {
	style    *chroma.Style
	terminal chroma.Formatter
	html     chroma.Formatter
}

func New() *Highlighter {
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	return &Highlighter{
		style:    style,
		terminal: formatters.TTY16m,
		html:     htmlfmt.New(htmlfmt.WithLineNumbers(false)),
	}
}

// Highlight renders content for the given language token. ok is false when
// the token names no known lexer; the caller then serves the content
// verbatim rather than failing the request.
func (h *Highlighter) Highlight(content, lang string, mode Mode) (out string, ok bool, err error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false, nil
	}
	lexer = chroma.Coalesce(lexer)
	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return "", false, errors.Wrap(err, "tokenise")
	}
	formatter := h.terminal
	if mode == ModeHTML {
		formatter = h.html
	}
	var sb strings.Builder
	if err := formatter.Format(&sb, h.style, iterator); err != nil {
		return "", false, errors.Wrap(err, "format")
	}
	return sb.String(), true, nil
}
