package pglink

// QueryInput is the input for the query tool. Params are bound
// positionally; `?` placeholders in SQL are rewritten to $1..$n first.
type QueryInput struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// QueryOutput is the output of the query tool. The MCP layer serializes
// Rows alone; Columns preserve the result's column order for library
// callers, since Rows maps do not.
type QueryOutput struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ExecInput is the input for the execute tool.
type ExecInput struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// ExecOutput is the output of the execute tool, derived from the
// command tag the server returned.
type ExecOutput struct {
	RowCount int64  `json:"rowCount"`
	Command  string `json:"command"`
}

// ListTablesOutput is the output of the list_tables tool: base-table
// names in the public schema, ordered by name.
type ListTablesOutput struct {
	Tables []string `json:"tables"`
}

// ColumnInfo describes a single column of a table.
type ColumnInfo struct {
	Name             string `json:"name"`
	DataType         string `json:"dataType"`
	UDTName          string `json:"udtName"`
	Nullable         bool   `json:"nullable"`
	Default          string `json:"default,omitempty"`
	IsPrimaryKey     bool   `json:"isPrimaryKey"`
	MaxLength        *int   `json:"maxLength,omitempty"`
	NumericPrecision *int   `json:"numericPrecision,omitempty"`
	NumericScale     *int   `json:"numericScale,omitempty"`
}

// DescribeTableOutput is the output of the describe_table tool. Zero
// columns means the table does not exist in the public schema; the MCP
// layer reports that as plain text rather than an empty array.
type DescribeTableOutput struct {
	Table   string       `json:"table"`
	Columns []ColumnInfo `json:"columns"`
}
