package pglink

// Kind classifies tool errors so the MCP layer can surface a stable
// error code alongside the human-readable message.
type Kind string

const (
	// KindConfig: no usable database configuration was found when a
	// tool needing a connection was invoked.
	KindConfig Kind = "config"
	// KindConnection: the connect attempt to the database failed.
	KindConnection Kind = "connection"
	// KindInvalidArgument: a missing or malformed tool argument, or a
	// statement routed to the wrong tool.
	KindInvalidArgument Kind = "invalid_argument"
	// KindExecution: the database rejected or failed the statement.
	// Carries only the driver's message text.
	KindExecution Kind = "execution"
)

// Error is the structured error every handler boundary re-raises.
// No raw error crosses into the protocol layer.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func configErr(msg string) *Error {
	return &Error{Kind: KindConfig, Msg: msg}
}

func connectionErr(msg string, cause error) *Error {
	return &Error{Kind: KindConnection, Msg: msg, Cause: cause}
}

func invalidArgErr(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Msg: msg}
}

func executionErr(msg string, cause error) *Error {
	return &Error{Kind: KindExecution, Msg: msg, Cause: cause}
}
