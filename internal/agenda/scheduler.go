package agenda

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/notify"
	"github.com/lambethcyclists/mailroom/internal/store"
)

const (
	nagWindowDays     = 7
	minutesWindowDays = 7
	meetingQueryLimit = 10
	dayFormat         = "2006-01-02"
)

// Sender delivers scheduler notifications. notify.Notifier implements
// it.
type Sender interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Metrics receives scheduler activity counts. The instrumentation
// package provides the real implementation.
type Metrics interface {
	AgendaGenerated()
	ReminderSent(kind string)
}

type nopMetrics struct{}

func (nopMetrics) AgendaGenerated()    {}
func (nopMetrics) ReminderSent(string) {}

// Scheduler drives the meeting agenda lifecycle. It moves meetings
// from pending to generated and emits reminders while the agenda sits
// in generated. Approval and publication are operator actions; the
// scheduler never touches them.
//
// All once-only and once-per-day guarantees key off fields persisted
// on the Meeting record, so they hold across restarts.
type Scheduler struct {
	store     store.Store
	generator *Generator
	sender    Sender
	metrics   Metrics
	now       func() time.Time
	logger    *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithNow overrides the scheduler clock, for tests.
func WithNow(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics wires an activity counter sink.
func WithMetrics(m Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a Scheduler.
func NewScheduler(st store.Store, gen *Generator, sender Sender, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:     st,
		generator: gen,
		sender:    sender,
		metrics:   nopMetrics{},
		now:       time.Now,
		logger:    logging.WithService(slog.Default(), "scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one scheduling cycle: agenda generation, then
// reminders. Per-meeting failures are logged and skipped so one bad
// record cannot stall the rest.
func (s *Scheduler) Run(ctx context.Context) {
	s.generateAgendas(ctx)
	s.sendNags(ctx)
	s.sendDayBefore(ctx)
	s.sendMinutesReminders(ctx)
}

// generateAgendas handles pending→generated. Eligible meetings are 1-2
// days out, manually created, and still pending; the status field is
// the sole guard against regeneration.
func (s *Scheduler) generateAgendas(ctx context.Context) {
	now := s.now().UTC()

	meetings, err := s.store.QueryMeetings(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropMeetingDate, store.CondOnOrAfter, now.Add(24*time.Hour)),
			store.DateFilter(store.PropMeetingDate, store.CondBefore, now.Add(48*time.Hour)),
			store.CheckboxFilter(store.PropCreatedManually, true),
		},
		Limit: meetingQueryLimit,
	})
	if err != nil {
		s.logger.Error("meeting query failed", logging.Err(err))
		return
	}

	for _, m := range meetings {
		if m.AgendaStatus != "" && m.AgendaStatus != store.AgendaPending {
			continue
		}
		if err := s.generateOne(ctx, m, now); err != nil {
			s.logger.Error("agenda generation failed",
				logging.MeetingID(m.ID), logging.Err(err))
		}
	}
}

func (s *Scheduler) generateOne(ctx context.Context, m *store.Meeting, now time.Time) error {
	agenda, itemIDs, projectIDs, err := s.generator.Generate(ctx, m, now)
	if err != nil {
		return err
	}

	if err := s.store.UpdateMeetingAgenda(ctx, m.ID, agenda, itemIDs, projectIDs, now); err != nil {
		return fmt.Errorf("save agenda for meeting %s: %w", m.ID, err)
	}
	s.metrics.AgendaGenerated()

	s.logger.Info("agenda generated",
		logging.MeetingID(m.ID),
		slog.Int("items", len(itemIDs)),
		slog.Int("projects", len(projectIDs)))

	if err := s.sender.Send(ctx, notify.AgendaGenerated(m, agenda, now)); err != nil {
		// Agenda is saved; a lost notification is not worth a retry
		// next cycle regenerating it.
		s.logger.Warn("agenda notification failed",
			logging.MeetingID(m.ID), logging.Err(err))
	}
	return nil
}

// sendNags sends the daily approval reminder for meetings whose agenda
// sits in generated during the week before the meeting. LastNagDate
// limits it to one per calendar day.
func (s *Scheduler) sendNags(ctx context.Context) {
	now := s.now().UTC()
	today := now.Format(dayFormat)

	meetings, err := s.store.QueryMeetings(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropMeetingDate, store.CondOnOrAfter, now),
			store.DateFilter(store.PropMeetingDate, store.CondBefore, now.AddDate(0, 0, nagWindowDays)),
			store.SelectFilter(store.PropAgendaStatus, store.CondEquals, string(store.AgendaGenerated)),
		},
		Limit: meetingQueryLimit,
	})
	if err != nil {
		s.logger.Error("nag query failed", logging.Err(err))
		return
	}

	for _, m := range meetings {
		if m.LastNagDate == today {
			continue
		}
		daysUntil := int(m.Date.Sub(now).Hours() / 24)
		if err := s.sender.Send(ctx, notify.ApprovalReminder(m, daysUntil)); err != nil {
			s.logger.Error("approval reminder failed",
				logging.MeetingID(m.ID), logging.Err(err))
			continue
		}
		state := reminderState(m)
		state.LastNagDate = today
		if err := s.store.UpdateMeetingReminders(ctx, m.ID, state); err != nil {
			s.logger.Error("reminder state save failed",
				logging.MeetingID(m.ID), logging.Err(err))
			continue
		}
		s.metrics.ReminderSent("approval_nag")
		s.logger.Info("approval reminder sent",
			logging.MeetingID(m.ID), slog.Int("days_until", daysUntil))
	}
}

// sendDayBefore sends the meeting-tomorrow reminder once, guarded by
// the persisted flag rather than a narrow time window, so a cycle
// missed to downtime still sends it.
func (s *Scheduler) sendDayBefore(ctx context.Context) {
	now := s.now().UTC()

	meetings, err := s.store.QueryMeetings(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropMeetingDate, store.CondOnOrAfter, now),
			store.DateFilter(store.PropMeetingDate, store.CondBefore, now.Add(24*time.Hour)),
		},
		Limit: meetingQueryLimit,
	})
	if err != nil {
		s.logger.Error("day-before query failed", logging.Err(err))
		return
	}

	for _, m := range meetings {
		if m.DayBeforeSent {
			continue
		}
		if err := s.sender.Send(ctx, notify.MeetingTomorrow(m)); err != nil {
			s.logger.Error("day-before reminder failed",
				logging.MeetingID(m.ID), logging.Err(err))
			continue
		}
		state := reminderState(m)
		state.DayBeforeSent = true
		if err := s.store.UpdateMeetingReminders(ctx, m.ID, state); err != nil {
			s.logger.Error("reminder state save failed",
				logging.MeetingID(m.ID), logging.Err(err))
			continue
		}
		s.metrics.ReminderSent("day_before")
		s.logger.Info("day-before reminder sent", logging.MeetingID(m.ID))
	}
}

// sendMinutesReminders nudges for minutes on the first cycle after a
// meeting has passed with empty notes. Once per meeting, persisted.
func (s *Scheduler) sendMinutesReminders(ctx context.Context) {
	now := s.now().UTC()

	meetings, err := s.store.QueryMeetings(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropMeetingDate, store.CondBefore, now),
			store.DateFilter(store.PropMeetingDate, store.CondOnOrAfter, now.AddDate(0, 0, -minutesWindowDays)),
		},
		Limit: meetingQueryLimit,
	})
	if err != nil {
		s.logger.Error("minutes query failed", logging.Err(err))
		return
	}

	for _, m := range meetings {
		if m.MinutesReminderSent || m.Notes != "" {
			continue
		}
		if err := s.sender.Send(ctx, notify.MinutesReminder(m)); err != nil {
			s.logger.Error("minutes reminder failed",
				logging.MeetingID(m.ID), logging.Err(err))
			continue
		}
		state := reminderState(m)
		state.MinutesReminderSent = true
		if err := s.store.UpdateMeetingReminders(ctx, m.ID, state); err != nil {
			s.logger.Error("reminder state save failed",
				logging.MeetingID(m.ID), logging.Err(err))
			continue
		}
		s.metrics.ReminderSent("minutes")
		s.logger.Info("minutes reminder sent", logging.MeetingID(m.ID))
	}
}

func reminderState(m *store.Meeting) store.ReminderState {
	return store.ReminderState{
		LastNagDate:         m.LastNagDate,
		DayBeforeSent:       m.DayBeforeSent,
		MinutesReminderSent: m.MinutesReminderSent,
	}
}
