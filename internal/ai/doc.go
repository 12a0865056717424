// Package ai wraps the Anthropic Messages API for the analysis the
// pipeline needs: structured extraction from email text, vision
// analysis of image attachments, relationship detection, and agenda
// writing. Model responses are validated against the store's enums and
// flagged for human review when they drift off schema.
package ai
