// Package sqlparam rewrites `?` SQL placeholders into PostgreSQL's
// numbered `$n` form, so callers may use either placeholder convention
// with a single positional-parameter list.
package sqlparam

import (
	"strconv"
	"strings"
)

// Rewrite replaces each `?` in sql with $1, $2, ... in left-to-right
// order. Input without `?` is returned unchanged, which also makes the
// transform idempotent on already-numbered SQL.
//
// This is a pure text transform with no SQL parsing: a `?` inside a
// string literal or comment is rewritten too.
func Rewrite(sql string) string {
	if !strings.ContainsRune(sql, '?') {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
