package pglink

import (
	"context"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Conn is the subset of *pgx.Conn the tools use. It exists so the
// connection lifecycle can be exercised in tests without a live server.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	IsClosed() bool
	Close(ctx context.Context) error
}

// DialFunc opens a database connection from a connection string.
type DialFunc func(ctx context.Context, connString string) (Conn, error)

func pgxDial(ctx context.Context, connString string) (Conn, error) {
	return pgx.Connect(ctx, connString)
}

// ConnManager owns the lifecycle of a single database connection: it
// opens the connection lazily on first need, hands out the same handle
// across calls, discards a handle the driver has marked closed, and
// closes the handle on shutdown. Access to the handle is exchange-only
// through Ensure and Close; no other component touches it directly.
//
// Health checking is reactive: Ensure never pings. A dead connection
// is only noticed through the driver's closed flag or a failed query,
// so the first call after an undetected failure may itself fail and
// trigger recreation for the call after.
type ConnManager struct {
	mu      sync.Mutex
	cfg     *ConnConfig
	conn    Conn
	dial    DialFunc
	resolve func() *ConnConfig
	logger  zerolog.Logger
}

// ConnOption is a functional option for NewConnManager.
type ConnOption func(*ConnManager)

// WithDialFunc replaces the pgx dialer. Used by tests.
func WithDialFunc(dial DialFunc) ConnOption {
	return func(m *ConnManager) {
		m.dial = dial
	}
}

// WithResolver replaces the configuration re-resolver invoked when no
// configuration is held. The default re-reads the process environment,
// which covers environments that are populated after startup.
func WithResolver(resolve func() *ConnConfig) ConnOption {
	return func(m *ConnManager) {
		m.resolve = resolve
	}
}

// NewConnManager creates a ConnManager. cfg may be nil; resolution is
// retried on each Ensure until configuration appears.
func NewConnManager(cfg *ConnConfig, logger zerolog.Logger, opts ...ConnOption) *ConnManager {
	m := &ConnManager{
		cfg:     cfg,
		dial:    pgxDial,
		resolve: func() *ConnConfig { return ResolveConfig(os.Getenv) },
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure guarantees a live connection exists and returns it. When a
// handle is already held and not marked closed, this is a no-op. A
// handle the driver marked closed (the server dropped the session
// since last use) is discarded first, so exactly one reconnect happens
// here rather than surfacing the stale handle to the caller.
func (m *ConnManager) Ensure(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		if !m.conn.IsClosed() {
			return m.conn, nil
		}
		m.logger.Warn().Msg("held connection is closed, discarding")
		m.conn = nil
	}

	if m.cfg == nil {
		if m.resolve != nil {
			m.cfg = m.resolve()
		}
		if m.cfg == nil {
			return nil, configErr("no database configuration: set " + EnvDatabaseURL +
				" or " + EnvHost + "/" + EnvUser + "/" + EnvPassword + "/" + EnvDatabase)
		}
	}

	conn, err := m.dial(ctx, m.cfg.ConnString())
	if err != nil {
		return nil, connectionErr("failed to connect to database", err)
	}
	m.conn = conn
	m.logger.Info().Msg("database connection established")
	return conn, nil
}

// Close idempotently closes the held connection, if any, and clears
// the handle so a future Ensure recreates it. A close error on an
// already-broken connection is logged and swallowed; a close error on
// a live connection is returned so the caller can report cleanup
// failure.
func (m *ConnManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	conn := m.conn
	m.conn = nil

	alreadyBroken := conn.IsClosed()
	if err := conn.Close(ctx); err != nil {
		if alreadyBroken {
			m.logger.Warn().Err(err).Msg("error closing already-broken connection")
			return nil
		}
		m.logger.Error().Err(err).Msg("error closing database connection")
		return err
	}
	m.logger.Info().Msg("database connection closed")
	return nil
}
