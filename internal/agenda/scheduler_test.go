package agenda

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambethcyclists/mailroom/internal/notify"
	"github.com/lambethcyclists/mailroom/internal/store"
)

type fakeSender struct {
	sent []notify.Message
	fail bool
}

func (f *fakeSender) Send(_ context.Context, msg notify.Message) error {
	if f.fail {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count(subjectPart string) int {
	n := 0
	for _, msg := range f.sent {
		if strings.Contains(msg.Subject, subjectPart) {
			n++
		}
	}
	return n
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(s store.Store, sender Sender, clock *fakeClock) *Scheduler {
	return NewScheduler(s, NewGenerator(s, nil), sender, WithNow(clock.now))
}

func TestPendingMeetingGetsAgendaOnce(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	meeting := s.AddMeeting(&store.Meeting{
		Title:           "March Committee Meeting",
		Date:            clock.t.Add(36 * time.Hour),
		CreatedManually: true,
	})

	sched := newTestScheduler(s, sender, clock)
	sched.Run(context.Background())

	got := s.Meeting(meeting.ID)
	assert.Equal(t, store.AgendaGenerated, got.AgendaStatus)
	require.NotNil(t, got.AgendaGeneratedAt)
	assert.NotEmpty(t, got.GeneratedAgenda)
	assert.Equal(t, 1, sender.count("Agenda Generated:"))

	// Another cycle must not regenerate; the status field is the guard.
	sched.Run(context.Background())
	assert.Equal(t, 1, sender.count("Agenda Generated:"))
}

func TestMeetingNotCreatedManuallySkipped(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	meeting := s.AddMeeting(&store.Meeting{
		Title: "Imported meeting",
		Date:  clock.t.Add(36 * time.Hour),
	})

	newTestScheduler(s, sender, clock).Run(context.Background())

	assert.NotEqual(t, store.AgendaGenerated, s.Meeting(meeting.ID).AgendaStatus)
	assert.Zero(t, sender.count("Agenda Generated:"))
}

func TestMeetingOutsideWindowSkipped(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	tooSoon := s.AddMeeting(&store.Meeting{
		Title: "Tonight", Date: clock.t.Add(6 * time.Hour), CreatedManually: true,
	})
	tooFar := s.AddMeeting(&store.Meeting{
		Title: "Next week", Date: clock.t.Add(5 * 24 * time.Hour), CreatedManually: true,
	})

	newTestScheduler(s, sender, clock).Run(context.Background())

	assert.NotEqual(t, store.AgendaGenerated, s.Meeting(tooSoon.ID).AgendaStatus)
	assert.NotEqual(t, store.AgendaGenerated, s.Meeting(tooFar.ID).AgendaStatus)
}

func TestDailyNagOncePerCalendarDay(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	s.AddMeeting(&store.Meeting{
		Title:        "March Committee Meeting",
		Date:         clock.t.Add(5 * 24 * time.Hour),
		AgendaStatus: store.AgendaGenerated,
	})

	sched := newTestScheduler(s, sender, clock)

	// Hourly cycles from five days out until the meeting. Polling
	// touches six calendar days, one nag each.
	for i := 0; i < 120; i++ {
		sched.Run(context.Background())
		clock.advance(time.Hour)
	}

	assert.Equal(t, 6, sender.count("Agenda Needs Approval:"))
}

func TestNagSurvivesRestart(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	s.AddMeeting(&store.Meeting{
		Title:        "March Committee Meeting",
		Date:         clock.t.Add(3 * 24 * time.Hour),
		AgendaStatus: store.AgendaGenerated,
	})

	newTestScheduler(s, sender, clock).Run(context.Background())
	require.Equal(t, 1, sender.count("Agenda Needs Approval:"))

	// A fresh process later the same day reads the persisted nag date
	// and stays quiet.
	clock.advance(4 * time.Hour)
	newTestScheduler(s, sender, clock).Run(context.Background())
	assert.Equal(t, 1, sender.count("Agenda Needs Approval:"))
}

func TestNagStopsWhenApproved(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	meeting := s.AddMeeting(&store.Meeting{
		Title:        "March Committee Meeting",
		Date:         clock.t.Add(3 * 24 * time.Hour),
		AgendaStatus: store.AgendaApproved,
	})

	newTestScheduler(s, sender, clock).Run(context.Background())

	assert.Zero(t, sender.count("Agenda Needs Approval:"))
	assert.Empty(t, s.Meeting(meeting.ID).LastNagDate)
}

func TestDayBeforeReminderSentOnce(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	meeting := s.AddMeeting(&store.Meeting{
		Title:        "March Committee Meeting",
		Date:         clock.t.Add(12 * time.Hour),
		AgendaStatus: store.AgendaApproved,
	})

	sched := newTestScheduler(s, sender, clock)
	for i := 0; i < 6; i++ {
		sched.Run(context.Background())
		clock.advance(time.Hour)
	}

	assert.Equal(t, 1, sender.count("Meeting Tomorrow:"))
	assert.True(t, s.Meeting(meeting.ID).DayBeforeSent)
}

func TestMinutesReminderAfterMeetingWithEmptyNotes(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	noNotes := s.AddMeeting(&store.Meeting{
		Title: "March Committee Meeting",
		Date:  clock.t.Add(-20 * time.Hour),
	})
	withNotes := s.AddMeeting(&store.Meeting{
		Title: "February Committee Meeting",
		Date:  clock.t.Add(-30 * time.Hour),
		Notes: "Minutes already recorded.",
	})

	sched := newTestScheduler(s, sender, clock)
	sched.Run(context.Background())
	sched.Run(context.Background())

	assert.Equal(t, 1, sender.count("Please Add Minutes: March Committee Meeting"))
	assert.Zero(t, sender.count("Please Add Minutes: February Committee Meeting"))
	assert.True(t, s.Meeting(noNotes.ID).MinutesReminderSent)
	assert.False(t, s.Meeting(withNotes.ID).MinutesReminderSent)
}

func TestReminderStateNotPersistedWhenSendFails(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{fail: true}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	meeting := s.AddMeeting(&store.Meeting{
		Title:        "March Committee Meeting",
		Date:         clock.t.Add(3 * 24 * time.Hour),
		AgendaStatus: store.AgendaGenerated,
	})

	sched := newTestScheduler(s, sender, clock)
	sched.Run(context.Background())
	assert.Empty(t, s.Meeting(meeting.ID).LastNagDate)

	// The next cycle retries once delivery recovers.
	sender.fail = false
	sched.Run(context.Background())
	assert.Equal(t, 1, sender.count("Agenda Needs Approval:"))
	assert.NotEmpty(t, s.Meeting(meeting.ID).LastNagDate)
}

func TestSchedulerRecordsMetrics(t *testing.T) {
	s := store.NewMemoryStore()
	sender := &fakeSender{}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	s.AddMeeting(&store.Meeting{
		Title:           "March Committee Meeting",
		Date:            clock.t.Add(36 * time.Hour),
		CreatedManually: true,
	})

	metrics := &countingMetrics{reminders: map[string]int{}}
	sched := NewScheduler(s, NewGenerator(s, nil), sender, WithNow(clock.now), WithMetrics(metrics))
	sched.Run(context.Background())

	assert.Equal(t, 1, metrics.agendas)
	assert.Equal(t, 1, metrics.reminders["approval_nag"])
}

type countingMetrics struct {
	agendas   int
	reminders map[string]int
}

func (m *countingMetrics) AgendaGenerated()         { m.agendas++ }
func (m *countingMetrics) ReminderSent(kind string) { m.reminders[kind]++ }
