package ingest

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flybin/cfg"
	"flybin/pkg/domain"
	"flybin/svc/cache"
	"flybin/svc/db"
	"flybin/svc/svc"
	"flybin/svc/util"
)

func startTestListener(t *testing.T, maxPasteSize int) (*Listener, *svc.Paste) {
	t.Helper()
	util.InitLog("error", false)
	c := &cfg.Cfg{
		HTTPPort:       "8080",
		IngestPort:     "0",
		Host:           "localhost",
		DatabasePath:   filepath.Join(t.TempDir(), "flybin_test.db"),
		DBMaxOpenConns: 10,
		DBMaxIdleConns: 2,
		DBQueryTimeout: 5 * time.Second,
		MaxPasteSize:   maxPasteSize,
		LRUCacheSize:   16,
		ContextTimeout: 5 * time.Second,
		IngestTimeout:  5 * time.Second,
	}
	store, err := db.NewSQLiteWithConfig(c.DatabasePath, c.DBMaxOpenConns, c.DBMaxIdleConns, c.DBQueryTimeout)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	lru, err := cache.NewLRU(c.LRUCacheSize)
	if err != nil {
		t.Fatalf("new lru: %v", err)
	}
	pasteSvc := svc.NewPaste(store, lru)
	l := New(c, pasteSvc)
	go l.Start()
	deadline := time.Now().Add(2 * time.Second)
	for l.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("listener did not bind")
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		l.Shutdown(ctx)
	})
	return l, pasteSvc
}

// submit dials the listener, writes the payload in one shot and returns the
// reply parsed into its labelled lines.
func submit(t *testing.T, addr net.Addr, payload string) map[string]string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}
	fields := make(map[string]string)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			t.Fatalf("malformed reply line %q", line)
		}
		fields[key] = val
	}
	return fields
}

func TestSubmitAndReadBack(t *testing.T) {
	l, pasteSvc := startTestListener(t, 4096)

	fields := submit(t, l.Addr(), "hello world")
	rawURL, ok := fields["Url"]
	if !ok || !strings.HasPrefix(rawURL, "http://localhost:8080/") {
		t.Fatalf("reply url = %q", rawURL)
	}
	slug := rawURL[strings.LastIndex(rawURL, "/")+1:]
	if len(slug) != domain.SlugLen {
		t.Errorf("slug length = %d, want %d", len(slug), domain.SlugLen)
	}
	secret, ok := fields["Secret"]
	if !ok || len(secret) != domain.SecretLen {
		t.Errorf("secret = %q", secret)
	}
	expires, ok := fields["Expires at"]
	if !ok {
		t.Fatal("reply missing expiry")
	}
	exp, err := time.ParseInLocation("2006-01-02 15:04:05", expires, time.Local)
	if err != nil {
		t.Fatalf("parse expiry %q: %v", expires, err)
	}
	if until := time.Until(exp); until < 360*24*time.Hour {
		t.Errorf("tiny paste expiry too soon: %v away", until)
	}

	got, err := pasteSvc.Get(context.Background(), slug, "")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Content != "hello world" {
		t.Errorf("content = %q", got.Content)
	}
	if got.Secret != secret {
		t.Errorf("stored secret differs from reply")
	}
}

func TestSubmitTruncatedAtCap(t *testing.T) {
	l, pasteSvc := startTestListener(t, 16)

	payload := strings.Repeat("a", 64)
	fields := submit(t, l.Addr(), payload)
	rawURL := fields["Url"]
	slug := rawURL[strings.LastIndex(rawURL, "/")+1:]

	got, err := pasteSvc.Get(context.Background(), slug, "")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Content != payload[:16] {
		t.Errorf("content length = %d, want truncation at 16", len(got.Content))
	}
}

func TestShutdownUnblocksStart(t *testing.T) {
	l, _ := startTestListener(t, 4096)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := net.Dial("tcp", l.Addr().String()); err == nil {
		t.Error("listener still accepting after shutdown")
	}
}
