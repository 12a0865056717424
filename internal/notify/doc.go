// Package notify sends operator emails over SMTP: agenda approvals,
// meeting reminders, error alerts, and health warnings. It degrades to
// a logged no-op when credentials are absent.
package notify
