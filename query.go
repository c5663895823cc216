package pglink

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/vportella/pglink/internal/sqlguard"
	"github.com/vportella/pglink/internal/sqlparam"
)

// Dispatcher validates tool requests, guarantees a live connection
// through the ConnManager, executes the corresponding SQL, and shapes
// results. Safe for concurrent use; concurrent calls sharing the one
// connection are serialized by the driver at the session level.
type Dispatcher struct {
	conns  *ConnManager
	logger zerolog.Logger
}

// NewDispatcher creates a Dispatcher on top of the given ConnManager.
func NewDispatcher(conns *ConnManager, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{conns: conns, logger: logger}
}

// Query runs a read-only SELECT statement with positional parameters.
// Validation happens before any connection is established, so a
// misrouted statement never costs a dial.
func (d *Dispatcher) Query(ctx context.Context, input QueryInput) (*QueryOutput, error) {
	startTime := time.Now()

	trimmed := strings.TrimSpace(input.SQL)
	if trimmed == "" {
		return nil, invalidArgErr("sql must be a non-empty string")
	}
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return nil, invalidArgErr("only SELECT statements are allowed here; use the execute tool for mutating statements")
	}

	sql := sqlparam.Rewrite(input.SQL)
	if err := sqlguard.SingleStatement(sql); err != nil {
		return nil, invalidArgErr(err.Error())
	}

	conn, err := d.conns.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, sql, input.Params...)
	if err != nil {
		return nil, executionErr("query failed", err)
	}

	output, err := collectRows(rows)
	if err != nil {
		return nil, executionErr("query failed", err)
	}

	d.logger.Info().
		Str("sql", truncateForLog(sql, 200)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", len(output.Rows)).
		Msg("query executed")

	return output, nil
}

// Exec runs a mutating statement (anything but SELECT) with positional
// parameters and returns the row count and command name from the
// server's command tag.
func (d *Dispatcher) Exec(ctx context.Context, input ExecInput) (*ExecOutput, error) {
	startTime := time.Now()

	trimmed := strings.TrimSpace(input.SQL)
	if trimmed == "" {
		return nil, invalidArgErr("sql must be a non-empty string")
	}
	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return nil, invalidArgErr("SELECT statements are not allowed here; use the query tool for reads")
	}

	sql := sqlparam.Rewrite(input.SQL)
	if err := sqlguard.SingleStatement(sql); err != nil {
		return nil, invalidArgErr(err.Error())
	}

	conn, err := d.conns.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	tag, err := conn.Exec(ctx, sql, input.Params...)
	if err != nil {
		return nil, executionErr("statement failed", err)
	}

	output := &ExecOutput{
		RowCount: tag.RowsAffected(),
		Command:  commandName(tag.String()),
	}

	d.logger.Info().
		Str("sql", truncateForLog(sql, 200)).
		Dur("duration", time.Since(startTime)).
		Int64("rows_affected", output.RowCount).
		Str("command", output.Command).
		Msg("statement executed")

	return output, nil
}

// commandName extracts the leading command word from a command tag
// like "INSERT 0 1" or "CREATE TABLE".
func commandName(tag string) string {
	if i := strings.IndexByte(tag, ' '); i > 0 {
		return tag[:i]
	}
	return tag
}

// collectRows reads all rows from pgx.Rows into JSON-friendly maps.
func collectRows(rows pgx.Rows) (*QueryOutput, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryOutput{Columns: columns, Rows: resultRows}, nil
}

// convertValue converts a pgx-returned value to a JSON-friendly Go type.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		return convertFloat(float64(val))
	case float64:
		return convertFloat(val)
	case netip.Prefix:
		return val.String()
	case net.HardwareAddr:
		return val.String()
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		us := val.Microseconds
		hours := us / 3_600_000_000
		us -= hours * 3_600_000_000
		minutes := us / 60_000_000
		us -= minutes * 60_000_000
		seconds := us / 1_000_000
		us -= seconds * 1_000_000
		if us > 0 {
			return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, seconds, us)
		}
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		parts := []string{}
		if val.Months != 0 {
			years := val.Months / 12
			months := val.Months % 12
			if years != 0 {
				parts = append(parts, fmt.Sprintf("%d year(s)", years))
			}
			if months != 0 {
				parts = append(parts, fmt.Sprintf("%d mon(s)", months))
			}
		}
		if val.Days != 0 {
			parts = append(parts, fmt.Sprintf("%d day(s)", val.Days))
		}
		if val.Microseconds != 0 {
			dur := time.Duration(val.Microseconds) * time.Microsecond
			parts = append(parts, dur.String())
		}
		if len(parts) == 0 {
			return "0"
		}
		return strings.Join(parts, " ")
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if val.NaN {
			return "NaN"
		}
		if val.InfinityModifier == pgtype.Infinity {
			return "Infinity"
		}
		if val.InfinityModifier == pgtype.NegativeInfinity {
			return "-Infinity"
		}
		b, err := val.MarshalJSON()
		if err != nil {
			return nil
		}
		return string(b)
	case pgtype.Range[any]:
		if !val.Valid {
			return nil
		}
		if val.LowerType == pgtype.Empty {
			return "empty"
		}
		var sb strings.Builder
		if val.LowerType == pgtype.Inclusive {
			sb.WriteByte('[')
		} else {
			sb.WriteByte('(')
		}
		if val.LowerType != pgtype.Unbounded {
			sb.WriteString(fmt.Sprintf("%v", convertValue(val.Lower)))
		}
		sb.WriteByte(',')
		if val.UpperType != pgtype.Unbounded {
			sb.WriteString(fmt.Sprintf("%v", convertValue(val.Upper)))
		}
		if val.UpperType == pgtype.Inclusive {
			sb.WriteByte(']')
		} else {
			sb.WriteByte(')')
		}
		return sb.String()
	case pgtype.Point:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("(%g,%g)", val.P.X, val.P.Y)
	case pgtype.Line:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("{%g,%g,%g}", val.A, val.B, val.C)
	case pgtype.Lseg:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("[(%g,%g),(%g,%g)]", val.P[0].X, val.P[0].Y, val.P[1].X, val.P[1].Y)
	case pgtype.Box:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("(%g,%g),(%g,%g)", val.P[0].X, val.P[0].Y, val.P[1].X, val.P[1].Y)
	case pgtype.Path:
		if !val.Valid {
			return nil
		}
		points := make([]string, len(val.P))
		for i, p := range val.P {
			points[i] = fmt.Sprintf("(%g,%g)", p.X, p.Y)
		}
		joined := strings.Join(points, ",")
		if val.Closed {
			return "(" + joined + ")"
		}
		return "[" + joined + "]"
	case pgtype.Polygon:
		if !val.Valid {
			return nil
		}
		points := make([]string, len(val.P))
		for i, p := range val.P {
			points[i] = fmt.Sprintf("(%g,%g)", p.X, p.Y)
		}
		return "(" + strings.Join(points, ",") + ")"
	case pgtype.Circle:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("<(%g,%g),%g>", val.P.X, val.P.Y, val.R)
	case pgtype.Bits:
		if !val.Valid {
			return nil
		}
		result := make([]byte, val.Len)
		for i := int32(0); i < val.Len; i++ {
			byteIdx := i / 8
			bitIdx := 7 - (i % 8)
			if val.Bytes[byteIdx]&(1<<uint(bitIdx)) != 0 {
				result[i] = '1'
			} else {
				result[i] = '0'
			}
		}
		return string(result)
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []byte:
		// bytea values are base64 encoded
		return base64.StdEncoding.EncodeToString(val)
	case string:
		return val
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertValue(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertValue(v)
		}
		return result
	default:
		return val
	}
}

// convertFloat maps NaN and infinities to strings, since JSON has no
// representation for them.
func convertFloat(f float64) any {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return f
}

// truncateForLog truncates a string for log output to avoid oversized
// log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
