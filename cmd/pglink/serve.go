package main

import (
	"context"
	"errors"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	pglink "github.com/vportella/pglink"
)

const version = "1.0.0"

// closeTimeout bounds connection teardown on shutdown.
const closeTimeout = 5 * time.Second

func run() int {
	logger := setupLogger()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Warn().Msg("stdin is a terminal; pglink speaks MCP over stdio and expects to be launched by an MCP client")
	}

	// Missing configuration is not fatal here; it is surfaced on the
	// first tool call that needs a connection.
	cfg := pglink.ResolveConfig(os.Getenv)
	if cfg == nil {
		logger.Warn().Msg("no database configuration in environment yet; will re-resolve on first tool call")
	}

	conns := pglink.NewConnManager(cfg, logger)
	dispatcher := pglink.NewDispatcher(conns, logger)

	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("pglink", version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)
	pglink.RegisterTools(mcpServer, dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdio := server.NewStdioServer(mcpServer)
	stdio.SetErrorLogger(stdlog.New(logger, "", 0))

	logger.Info().Str("version", version).Msg("starting pglink stdio server")
	serveErr := stdio.Listen(ctx, os.Stdin, os.Stdout)

	return finish(logger, serveErr, conns)
}

// connCloser is the one piece of shutdown that can fail.
type connCloser interface {
	Close(ctx context.Context) error
}

// finish folds the serve result and connection cleanup into the exit
// code: 0 for a clean shutdown, 1 when the server failed or cleanup
// raised. Cancellation and EOF are the two normal ways the stdio
// transport ends, so neither taints the exit code. Cleanup runs
// exactly once, even after a server error.
func finish(logger zerolog.Logger, serveErr error, conns connCloser) int {
	code := 0
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) && !errors.Is(serveErr, io.EOF) {
		logger.Error().Err(serveErr).Msg("server error")
		code = 1
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := conns.Close(closeCtx); err != nil {
		logger.Error().Err(err).Msg("cleanup failed")
		code = 1
	}

	logger.Info().Int("exit_code", code).Msg("pglink stopped")
	return code
}

// setupLogger builds the process logger from PGLINK_LOG_LEVEL and
// PGLINK_LOG_FORMAT. Output is always stderr; stdout carries the MCP
// transport.
func setupLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(os.Getenv("PGLINK_LOG_LEVEL")) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if strings.ToLower(os.Getenv("PGLINK_LOG_FORMAT")) == "text" {
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
