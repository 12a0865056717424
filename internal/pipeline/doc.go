// Package pipeline orchestrates the email processing cycle: polling
// the watched Gmail label, deduplicating, extracting structured data,
// geocoding, archiving attachments, creating Items, and linking them
// to related records.
package pipeline
