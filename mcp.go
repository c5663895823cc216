package pglink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers query, execute, list_tables, and
// describe_table as MCP tools on the given MCP server. Unknown tool
// names are rejected by the server itself with a method-not-found
// protocol error.
func RegisterTools(mcpServer *server.MCPServer, d *Dispatcher) {
	queryTool := mcp.NewTool("query",
		mcp.WithDescription("Run a read-only SQL query (SELECT) against the PostgreSQL database. Returns matching rows as a JSON array."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SELECT statement to run. '?' placeholders are rewritten to $1..$n."),
		),
		mcp.WithArray("params",
			mcp.Description("Positional query parameters: strings, numbers, booleans, or nulls."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(queryTool, d.withCallLog("query", d.handleQuery))

	executeTool := mcp.NewTool("execute",
		mcp.WithDescription("Run a mutating SQL statement (INSERT, UPDATE, DELETE, DDL) against the PostgreSQL database. Returns the affected row count and command."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The statement to run. Must not be a SELECT; use the query tool for reads."),
		),
		mcp.WithArray("params",
			mcp.Description("Positional statement parameters: strings, numbers, booleans, or nulls."),
		),
	)
	mcpServer.AddTool(executeTool, d.withCallLog("execute", d.handleExecute))

	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List all base tables in the public schema, ordered by name."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(listTablesTool, d.withCallLog("list_tables", d.handleListTables))

	describeTableTool := mcp.NewTool("describe_table",
		mcp.WithDescription("Describe the columns of a table in the public schema: name, type, nullability, default, and primary-key flag."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table name to describe."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(describeTableTool, d.withCallLog("describe_table", d.handleDescribeTable))
}

func (d *Dispatcher) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := req.RequireString("sql")
	if err != nil {
		return toolError(invalidArgErr("sql parameter is required")), nil
	}
	params, perr := extractParams(req)
	if perr != nil {
		return toolError(perr), nil
	}

	output, qerr := d.Query(ctx, QueryInput{SQL: sql, Params: params})
	if qerr != nil {
		return toolError(qerr), nil
	}
	jsonBytes, err := json.Marshal(output.Rows)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal query result"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (d *Dispatcher) handleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := req.RequireString("sql")
	if err != nil {
		return toolError(invalidArgErr("sql parameter is required")), nil
	}
	params, perr := extractParams(req)
	if perr != nil {
		return toolError(perr), nil
	}

	output, xerr := d.Exec(ctx, ExecInput{SQL: sql, Params: params})
	if xerr != nil {
		return toolError(xerr), nil
	}
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal execute result"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (d *Dispatcher) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := d.ListTables(ctx)
	if err != nil {
		return toolError(err), nil
	}
	jsonBytes, merr := json.Marshal(output.Tables)
	if merr != nil {
		return mcp.NewToolResultError("failed to marshal list_tables result"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (d *Dispatcher) handleDescribeTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table")
	if err != nil {
		return toolError(invalidArgErr("table parameter is required")), nil
	}

	output, derr := d.DescribeTable(ctx, table)
	if derr != nil {
		return toolError(derr), nil
	}
	if len(output.Columns) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Table %q not found in schema %q.", table, "public")), nil
	}
	jsonBytes, merr := json.Marshal(output.Columns)
	if merr != nil {
		return mcp.NewToolResultError("failed to marshal describe_table result"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// extractParams pulls the optional params argument and validates each
// element is a JSON scalar (string, number, boolean, or null).
// Anything else (objects, arrays) is rejected before any query runs.
func extractParams(req mcp.CallToolRequest) ([]any, *Error) {
	raw, ok := req.GetArguments()["params"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, invalidArgErr("params must be an array")
	}
	for i, v := range list {
		switch v.(type) {
		case nil, string, bool, float64, int, int64, json.Number:
		default:
			return nil, invalidArgErr(fmt.Sprintf("params[%d] must be a string, number, boolean, or null", i))
		}
	}
	return list, nil
}

// toolError maps a dispatcher error onto an MCP tool error result as
// "kind: message". Only structured kinds reach this point.
func toolError(err error) *mcp.CallToolResult {
	var e *Error
	if errors.As(err, &e) {
		return mcp.NewToolResultError(string(e.Kind) + ": " + e.Error())
	}
	return mcp.NewToolResultError("internal: " + err.Error())
}

// withCallLog wraps a tool handler so every call, successful or not,
// leaves exactly one log line: tool name, payload sizes, duration, and
// whether the result carried an error.
func (d *Dispatcher) withCallLog(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, req)
		d.logger.Info().
			Str("tool", tool).
			Int("request_bytes", argumentBytes(req)).
			Int("response_bytes", textBytes(result)).
			Bool("is_error", result != nil && result.IsError).
			Dur("duration", time.Since(start)).
			Msg("tool call")
		return result, err
	}
}

// argumentBytes measures the call arguments as JSON.
func argumentBytes(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// textBytes sums the text content of a tool result. A nil result
// (a protocol-level failure) counts as zero.
func textBytes(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
