// Package runner drives the two recurring cycles of the service, the
// email pipeline and the meeting scheduler, on independent tickers
// with context-based shutdown.
package runner
