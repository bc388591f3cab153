package ingest

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"flybin/cfg"
	"flybin/metrics"
	"flybin/svc/svc"
	"flybin/svc/util"
)

const expiresFormat = "2006-01-02 15:04:05"

// Listener is the raw submission channel: a client connects, streams bytes,
// and gets back the retrieval URL, the secret and the expiry. One bounded
// read is the whole paste; longer submissions are silently truncated. The
// channel is unauthenticated and unmetered on purpose (the structured API
// is the gated one).
type Listener struct {
	paste *svc.Paste
	cfg   *cfg.Cfg

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func New(c *cfg.Cfg, p *svc.Paste) *Listener {
	if c == nil || p == nil {
		panic("ingest listener: nil dependency")
	}
	return &Listener{paste: p, cfg: c}
}

// Start binds the ingestion port and serves until Shutdown closes the
// listener. Each accepted connection is handled on its own goroutine.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", ":"+l.cfg.IngestPort)
	if err != nil {
		return errors.Wrap(err, "bind ingest listener")
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	util.Info().Str("port", l.cfg.IngestPort).Msg("starting ingest listener")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			util.Warn().Err(err).Msg("accept failed")
			continue
		}
		l.wg.Add(1)
		go l.handle(conn)
	}
}

// Addr returns the bound address, nil before Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Shutdown stops accepting and waits for in-flight handlers up to the
// context deadline.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			util.Error().Interface("panic", r).Msg("ingest handler panicked")
		}
	}()
	remote := conn.RemoteAddr().String()
	ip := remote
	if host, _, err := net.SplitHostPort(remote); err == nil {
		ip = host
	}
	metrics.IngestConnections.Inc()
	util.Info().Str("ip", util.RedactIP(remote)).Msg("accepted ingest connection")

	deadline := time.Now().Add(l.cfg.IngestTimeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)

	// One read against a bounded buffer is the entire submission. No
	// framing: whatever arrives in the first chunk, up to the size cap,
	// is the paste.
	buf := make([]byte, l.cfg.MaxPasteSize)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		util.Warn().Err(err).Str("ip", util.RedactIP(remote)).Msg("ingest read failed")
		return
	}
	metrics.IngestBytes.Add(float64(n))

	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.ContextTimeout)
	defer cancel()
	paste, err := l.paste.Create(ctx, string(buf[:n]), ip)
	if err != nil {
		util.Error().Err(err).Str("ip", util.RedactIP(remote)).Msg("ingest create failed")
		fmt.Fprintln(conn, "An error occured")
		return
	}
	util.Info().
		Str("slug", paste.Slug).
		Int("bytes", n).
		Time("expires_at", paste.ExpiresAt).
		Msg("paste created via ingest")

	// The secret appears here and nowhere else.
	fmt.Fprintf(conn, "\nUrl: %s/%s\nSecret: %s\nExpires at: %s\n",
		l.cfg.BaseURL(), paste.Slug, paste.Secret, paste.ExpiresAt.Format(expiresFormat))
}
