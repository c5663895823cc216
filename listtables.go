package pglink

import (
	"context"
	"time"
)

const listTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public'
  AND table_type = 'BASE TABLE'
ORDER BY table_name;
`

// ListTables returns the names of base tables in the public schema,
// ordered by name. Views and system catalogs are excluded.
func (d *Dispatcher) ListTables(ctx context.Context) (*ListTablesOutput, error) {
	startTime := time.Now()

	conn, err := d.conns.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, listTablesSQL)
	if err != nil {
		return nil, executionErr("failed to list tables", err)
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, executionErr("failed to list tables", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, executionErr("failed to list tables", err)
	}

	d.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Msg("list_tables executed")

	return &ListTablesOutput{Tables: tables}, nil
}
