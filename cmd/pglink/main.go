// Command pglink is a PostgreSQL MCP server speaking the Model
// Context Protocol over stdin/stdout. Configuration comes from the
// environment; logs go to stderr.
package main

import (
	"os"
)

func main() {
	os.Exit(run())
}
