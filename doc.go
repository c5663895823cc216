// Package pglink exposes a small set of PostgreSQL operations (query,
// execute, list_tables, and describe_table) to an AI agent through
// the Model Context Protocol over stdio.
//
// The package is built from two parts. A [ConnManager] owns the
// lifecycle of a single lazily-created database connection: resolved
// from the environment, opened on first need, reused across calls,
// discarded when the server drops it, and closed once on shutdown.
// A [Dispatcher] validates each tool call, routes it to parameterized
// SQL over that connection, and shapes rows or command tags into JSON
// tool results.
//
//	conns := pglink.NewConnManager(pglink.ResolveConfig(os.Getenv), logger)
//	d := pglink.NewDispatcher(conns, logger)
//	pglink.RegisterTools(mcpServer, d)
//	defer conns.Close(ctx)
//
// SQL injection is prevented at the protocol level: parameters are
// always bound positionally, never interpolated. Callers may write
// either `$n` or `?` placeholders; the latter are rewritten in order.
//
// There is deliberately no connection pool, no retry, and no
// transaction management here: one agent, one session, one statement
// at a time.
package pglink
