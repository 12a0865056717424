// Package dedup detects duplicate emails before they become records.
// It layers an exact Gmail message ID check with fuzzy subject and
// content matching to catch forwards and resends.
package dedup
