package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyLoop      = "loop"
	KeyMessageID = "message_id"
	KeyItemID    = "item_id"
	KeyMeetingID = "meeting_id"
	KeyProjectID = "project_id"
	KeySender    = "sender_hash"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyDuration  = "duration"
)

// Status values for consistent logging.
const (
	StatusSuccess   = "success"
	StatusDuplicate = "duplicate"
	StatusError     = "error"
)

// Setup configures the default slog logger. JSON output is used unless
// asText is set (local terminals), and level accepts the usual slog
// level names case-insensitively.
func Setup(level string, asText bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if asText {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// WithLoop returns a logger with the polling-loop attribute set.
func WithLoop(logger *slog.Logger, loop string) *slog.Logger {
	return logger.With(slog.String(KeyLoop, loop))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// MessageID returns a slog attribute for a Gmail message ID.
func MessageID(id string) slog.Attr {
	return slog.String(KeyMessageID, id)
}

// ItemID returns a slog attribute for a store item ID.
func ItemID(id string) slog.Attr {
	return slog.String(KeyItemID, id)
}

// MeetingID returns a slog attribute for a store meeting ID.
func MeetingID(id string) slog.Attr {
	return slog.String(KeyMeetingID, id)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted
// from output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging
// purposes. This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "user:" + hex.EncodeToString(hash[:8])
}

// Sender returns a slog attribute with the anonymized sender address.
func Sender(email string) slog.Attr {
	return slog.String(KeySender, AnonymizeEmail(email))
}

// ExtractDomain extracts the domain part from an email address. Useful
// for lower-cardinality logging where the full address would create too
// many unique values.
func ExtractDomain(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Domain returns a slog attribute for the sender's email domain.
func Domain(email string) slog.Attr {
	return slog.String("sender_domain", ExtractDomain(email))
}
