package db

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"flybin/pkg/domain"
)

var ErrCircuitOpen = errors.New("database circuit breaker open")

const (
	circuitClosed   = 0
	circuitOpen     = 1
	circuitHalfOpen = 2
	maxFailures     = 5
	cooldownSeconds = 30
)

const (
	defaultMaxOpenConns = 100
	defaultMaxIdleConns = 10
	defaultQueryTimeout = 5 * time.Second
)

// SQLite is the paste store. Every operation is a single statement whose
// WHERE clause carries the full authorization predicate, so the check and
// the mutation cannot be separated by a race window.
type SQLite struct {
	db            *sql.DB
	failures      int32
	circuitState  int32
	circuitOpened int64
	queryTimeout  time.Duration
}

func (s *SQLite) DB() *sql.DB {
	return s.db
}

func NewSQLite(path string) (*SQLite, error) {
	return NewSQLiteWithConfig(path, defaultMaxOpenConns, defaultMaxIdleConns, defaultQueryTimeout)
}

func NewSQLiteWithConfig(path string, maxOpenConns, maxIdleConns int, queryTimeout time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}
	s := &SQLite{
		db:           db,
		queryTimeout: queryTimeout,
	}
	if err := s.migrate(); err != nil {
		return nil, errors.Wrap(err, "migration failed")
	}
	return s, nil
}

func (s *SQLite) checkCircuit() error {
	state := atomic.LoadInt32(&s.circuitState)
	switch state {
	case circuitClosed:
		return nil
	case circuitOpen:
		opened := atomic.LoadInt64(&s.circuitOpened)
		if time.Now().Unix()-opened >= cooldownSeconds {
			if atomic.CompareAndSwapInt32(&s.circuitState, circuitOpen, circuitHalfOpen) {
				return nil
			}
		}
		return ErrCircuitOpen
	case circuitHalfOpen:
		return nil
	default:
		return nil
	}
}

func (s *SQLite) recordError(err error) {
	if err == nil {
		atomic.StoreInt32(&s.failures, 0)
		atomic.StoreInt32(&s.circuitState, circuitClosed)
		return
	}
	if errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		isConstraintErr(err) {
		return
	}
	failures := atomic.AddInt32(&s.failures, 1)
	if atomic.LoadInt32(&s.circuitState) == circuitHalfOpen {
		atomic.StoreInt32(&s.circuitState, circuitOpen)
		atomic.StoreInt64(&s.circuitOpened, time.Now().Unix())
		atomic.StoreInt32(&s.failures, 0)
		return
	}
	if failures >= maxFailures && atomic.LoadInt32(&s.circuitState) == circuitClosed {
		atomic.StoreInt32(&s.circuitState, circuitOpen)
		atomic.StoreInt64(&s.circuitOpened, time.Now().Unix())
	}
}

func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func (s *SQLite) migrate() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return errors.Wrap(err, "enable WAL mode")
	}
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return errors.Wrap(err, "set busy timeout")
	}
	query := `
	CREATE TABLE IF NOT EXISTS pastes (
		slug TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		secret TEXT NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		password_hash TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_pastes_expires_at ON pastes(expires_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// Create inserts a new paste. A slug collision surfaces as ErrSlugConflict
// so the caller can retry with a freshly generated slug.
func (s *SQLite) Create(ctx context.Context, p *domain.Paste) error {
	if err := s.checkCircuit(); err != nil {
		return err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `
	INSERT INTO pastes (slug, content, created_at, expires_at, secret, ip_address)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(queryCtx, q,
		p.Slug, p.Content, p.CreatedAt, p.ExpiresAt, p.Secret, p.IPAddress,
	)
	s.recordError(err)
	if isConstraintErr(err) {
		return domain.ErrSlugConflict
	}
	return errors.Wrap(err, "db create")
}

// Get returns a live paste only when it is open or the supplied password
// digest matches. A wrong or missing password on a locked paste is
// indistinguishable from an absent slug: both are ErrPasteNotFound, so the
// response never reveals whether a slug exists or is locked.
func (s *SQLite) Get(ctx context.Context, slug string, passwordDigest string) (*domain.Paste, error) {
	if err := s.checkCircuit(); err != nil {
		return nil, err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	digest := sql.NullString{String: passwordDigest, Valid: passwordDigest != ""}
	q := `
	SELECT slug, content, created_at, expires_at, password_hash
	FROM pastes
	WHERE slug = ? AND (password_hash IS NULL OR password_hash = ?) AND expires_at > ?
	`
	var p domain.Paste
	var stored sql.NullString
	err := s.db.QueryRowContext(queryCtx, q, slug, digest, time.Now()).Scan(
		&p.Slug, &p.Content, &p.CreatedAt, &p.ExpiresAt, &stored,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPasteNotFound
	}
	s.recordError(err)
	if err != nil {
		return nil, errors.Wrap(err, "db get")
	}
	if stored.Valid {
		p.Access = domain.PasswordGated(stored.String)
	} else {
		p.Access = domain.Open()
	}
	return &p, nil
}

// Lock sets the password digest on the row matching both slug and secret.
// Zero rows affected means the secret is wrong or the slug absent; the two
// are not told apart. Re-locking an already-locked paste overwrites the
// previous password, since the secret is the sole capability.
func (s *SQLite) Lock(ctx context.Context, slug, secret, passwordDigest string) error {
	if err := s.checkCircuit(); err != nil {
		return err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `UPDATE pastes SET password_hash = ? WHERE slug = ? AND secret = ?`
	res, err := s.db.ExecContext(queryCtx, q, passwordDigest, slug, secret)
	s.recordError(err)
	if err != nil {
		return errors.Wrap(err, "db lock")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db lock rows affected")
	}
	if affected == 0 {
		return domain.ErrPasteNotFound
	}
	return nil
}

// Delete removes the row matching both slug and secret. Zero rows affected
// is an authorization failure.
func (s *SQLite) Delete(ctx context.Context, slug, secret string) error {
	if err := s.checkCircuit(); err != nil {
		return err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `DELETE FROM pastes WHERE slug = ? AND secret = ?`
	res, err := s.db.ExecContext(queryCtx, q, slug, secret)
	s.recordError(err)
	if err != nil {
		return errors.Wrap(err, "db delete")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db delete rows affected")
	}
	if affected == 0 {
		return domain.ErrUnauthorized
	}
	return nil
}

// Exists reports whether a slug is taken, expired rows included.
func (s *SQLite) Exists(ctx context.Context, slug string) (bool, error) {
	if err := s.checkCircuit(); err != nil {
		return false, err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	var one int
	err := s.db.QueryRowContext(queryCtx, `SELECT 1 FROM pastes WHERE slug = ? LIMIT 1`, slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	s.recordError(err)
	if err != nil {
		return false, errors.Wrap(err, "exists check failed")
	}
	return true, nil
}

// SweepExpired physically removes expired rows in batches. Reads already
// filter on expires_at, so the sweep only reclaims space.
func (s *SQLite) SweepExpired(ctx context.Context) (int, error) {
	if err := s.checkCircuit(); err != nil {
		return 0, err
	}
	totalDeleted := 0
	const maxIterations = 10000
	for i := 0; i < maxIterations; i++ {
		select {
		case <-ctx.Done():
			return totalDeleted, ctx.Err()
		default:
		}
		queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		result, err := s.db.ExecContext(queryCtx, `
			DELETE FROM pastes
			WHERE slug IN (
				SELECT slug FROM pastes
				WHERE expires_at < ?
				LIMIT 100
			)
		`, time.Now())
		cancel()
		s.recordError(err)
		if err != nil {
			return totalDeleted, errors.Wrap(err, "sweep batch failed")
		}
		deleted, _ := result.RowsAffected()
		totalDeleted += int(deleted)
		if deleted == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return totalDeleted, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return totalDeleted, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
