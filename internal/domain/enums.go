// Package domain defines the core domain models for page sessions.
package domain

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// LogLevel is the severity of a console call relayed from a preview frame.
type LogLevel string

const (
	LogLevelLog   LogLevel = "log"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Valid reports whether l is one of the relayed console levels.
func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelLog, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// BridgeEventType identifies what a preview frame is reporting.
type BridgeEventType string

const (
	// BridgeEventConsole carries a console call or an uncaught error.
	BridgeEventConsole BridgeEventType = "console"
	// BridgeEventNavigation reports a suppressed link activation.
	BridgeEventNavigation BridgeEventType = "navigation"
	// BridgeEventForm reports a suppressed form submission.
	BridgeEventForm BridgeEventType = "form"
	// BridgeEventHistory reports a pushState/replaceState call.
	BridgeEventHistory BridgeEventType = "history"
)

// Valid reports whether t is a known bridge event type.
func (t BridgeEventType) Valid() bool {
	switch t {
	case BridgeEventConsole, BridgeEventNavigation, BridgeEventForm, BridgeEventHistory:
		return true
	}
	return false
}
