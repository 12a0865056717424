// Package google manages OAuth credentials for the Gmail and Drive
// APIs using an offline refresh-token grant.
package google
