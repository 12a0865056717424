// Package agenda drives the meeting agenda lifecycle: generating
// agendas for upcoming meetings and sending approval, day-before, and
// minutes reminders. State transitions and reminder bookkeeping are
// persisted on the Meeting record, so the guarantees survive restarts.
package agenda
