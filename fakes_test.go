package pglink

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows implements pgx.Rows over in-memory data. Only the scan
// shapes the dispatcher actually uses are supported.
type fakeRows struct {
	cols   []string
	data   [][]any
	idx    int
	err    error
	tag    pgconn.CommandTag
	closed bool
}

func newFakeRows(cols []string, data [][]any) *fakeRows {
	return &fakeRows{cols: cols, data: data, idx: -1}
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return r.tag }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.idx], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(row))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, val any) error {
	switch d := dest.(type) {
	case *string:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
		*d = s
	case *bool:
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", val)
		}
		*d = b
	case *int64:
		switch v := val.(type) {
		case int64:
			*d = v
		case int:
			*d = int64(v)
		default:
			return fmt.Errorf("expected int, got %T", val)
		}
	case **int:
		if val == nil {
			*d = nil
			return nil
		}
		n, ok := val.(int)
		if !ok {
			return fmt.Errorf("expected int, got %T", val)
		}
		*d = &n
	case *any:
		*d = val
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}
	return nil
}

// fakeConn implements Conn and records the last statement issued.
type fakeConn struct {
	mu         sync.Mutex
	closed     bool
	closeCalls int
	lastSQL    string
	lastArgs   []any

	queryFn func(ctx context.Context, sql string, args []any) (pgx.Rows, error)
	execFn  func(ctx context.Context, sql string, args []any) (pgconn.CommandTag, error)
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.mu.Lock()
	c.lastSQL = sql
	c.lastArgs = args
	fn := c.queryFn
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, sql, args)
	}
	return newFakeRows(nil, nil), nil
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	c.lastSQL = sql
	c.lastArgs = args
	fn := c.execFn
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, sql, args)
	}
	return pgconn.NewCommandTag(""), nil
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	c.closed = true
	return nil
}

func (c *fakeConn) markDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// fakeDialer counts connect attempts and hands out fresh fakeConns.
type fakeDialer struct {
	mu    sync.Mutex
	dials int
	err   error
	conns []*fakeConn

	// next customizes the conn handed out on the upcoming dial.
	next func(*fakeConn)
}

func (f *fakeDialer) dial(ctx context.Context, connString string) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	if f.err != nil {
		return nil, f.err
	}
	conn := &fakeConn{}
	if f.next != nil {
		f.next(conn)
	}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *fakeDialer) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}
