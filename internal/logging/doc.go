// Package logging provides structured logging helpers built on log/slog.
//
// It defines canonical attribute keys so that log entries from the email
// pipeline and the meeting scheduler can be correlated, and helpers that
// keep personally identifiable information (sender addresses) out of the
// logs by hashing.
package logging
