// Package sqlguard performs lightweight AST checks on incoming SQL
// using PostgreSQL's own parser (via pg_query).
package sqlguard

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// SingleStatement rejects SQL containing more than one statement.
// Parse failures are not reported here: the database produces a better
// error message for malformed SQL than the embedded parser would, and
// the execution error path already carries the driver's text through.
func SingleStatement(sql string) error {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil
	}
	if len(result.Stmts) > 1 {
		return fmt.Errorf("expected a single SQL statement, got %d", len(result.Stmts))
	}
	return nil
}
