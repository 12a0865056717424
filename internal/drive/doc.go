// Package drive archives email attachments to Google Drive and hands
// back shareable links for the record store.
package drive
