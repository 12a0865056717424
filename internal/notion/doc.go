// Package notion implements the record store on top of the Notion REST
// API. Items, Projects, and Meetings each live in their own database;
// the client maps between Go types and Notion property payloads and
// retries transient API failures with exponential backoff.
package notion
