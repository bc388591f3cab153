package render

import (
	"strings"
	"testing"
)

const goSnippet = "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"

func TestHighlightUnknownLanguage(t *testing.T) {
	h := New()
	out, ok, err := h.Highlight(goSnippet, "no-such-language", ModeHTML)
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if ok {
		t.Errorf("unknown language token must not highlight, got %q", out)
	}
}

func TestHighlightHTML(t *testing.T) {
	h := New()
	out, ok, err := h.Highlight(goSnippet, "go", ModeHTML)
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if !ok {
		t.Fatal("go lexer not found")
	}
	if !strings.Contains(out, "<") {
		t.Errorf("HTML mode output has no markup: %q", out)
	}
	if !strings.Contains(out, "main") {
		t.Errorf("output lost the source text: %q", out)
	}
}

func TestHighlightTerminal(t *testing.T) {
	h := New()
	out, ok, err := h.Highlight(goSnippet, "go", ModeTerminal)
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if !ok {
		t.Fatal("go lexer not found")
	}
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("terminal mode output has no ANSI escapes: %q", out)
	}
}

func TestModeContentType(t *testing.T) {
	if got := ModeTerminal.ContentType(); got != "text/plain" {
		t.Errorf("ModeTerminal.ContentType() = %q", got)
	}
	if got := ModeHTML.ContentType(); got != "text/html" {
		t.Errorf("ModeHTML.ContentType() = %q", got)
	}
}
