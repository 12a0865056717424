package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambethcyclists/mailroom/internal/store"
)

func testMeeting() *store.Meeting {
	return &store.Meeting{
		ID:       "meeting-1",
		Title:    "September monthly meeting",
		Date:     time.Date(2026, 9, 10, 19, 0, 0, 0, time.UTC),
		Format:   "hybrid",
		Location: "Brixton Library",
		URL:      "https://notion.so/meeting-1",
	}
}

func TestSendBuildsMultipartMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewNotifier("smtp.example.org", 587, "bot@example.org", "secret",
		[]string{"chair@example.org", "secretary@example.org"},
		WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		}))

	require.True(t, n.Enabled())
	require.NoError(t, n.Send(context.Background(), Message{
		Subject: "Test subject",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	}))

	assert.Equal(t, "smtp.example.org:587", gotAddr)
	assert.Equal(t, "bot@example.org", gotFrom)
	assert.Equal(t, []string{"chair@example.org", "secretary@example.org"}, gotTo)

	raw := string(gotMsg)
	assert.Contains(t, raw, "Subject: Test subject")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "plain body")
	assert.Contains(t, raw, "<p>html body</p>")
}

func TestSendDisabledIsNoop(t *testing.T) {
	called := false
	n := NewNotifier("smtp.example.org", 587, "", "", nil,
		WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			called = true
			return nil
		}))

	assert.False(t, n.Enabled())
	require.NoError(t, n.Send(context.Background(), Message{Subject: "ignored"}))
	assert.False(t, called)
}

func TestEncodeHeader(t *testing.T) {
	assert.Equal(t, "Plain subject", encodeHeader("Plain subject"))
	encoded := encodeHeader("Tagesordnung für Donnerstag")
	assert.True(t, strings.HasPrefix(encoded, "=?UTF-8?"))
}

func TestApprovalReminderUrgency(t *testing.T) {
	meeting := testMeeting()

	relaxed := ApprovalReminder(meeting, 5)
	assert.Equal(t, "Agenda Needs Approval: September monthly meeting", relaxed.Subject)
	assert.Contains(t, relaxed.Text, "Days until meeting: 5")
	assert.Contains(t, relaxed.Text, "daily reminders")

	urgent := ApprovalReminder(meeting, 2)
	assert.True(t, strings.HasPrefix(urgent.Subject, "URGENT: "))
}

func TestAgendaGeneratedPreviewTruncation(t *testing.T) {
	meeting := testMeeting()
	agenda := strings.Repeat("agenda line\n", 100)
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	msg := AgendaGenerated(meeting, agenda, now)
	assert.Contains(t, msg.Subject, meeting.Title)
	assert.Contains(t, msg.Text, "Time until meeting: 3 days")
	assert.Contains(t, msg.Text, "...")
	assert.Contains(t, msg.Text, meeting.URL)
}

func TestMeetingTomorrowIncludesOptionalDetails(t *testing.T) {
	meeting := testMeeting()
	meeting.VideoLink = "https://zoom.example/123"

	msg := MeetingTomorrow(meeting)
	assert.Contains(t, msg.Text, "Format: hybrid")
	assert.Contains(t, msg.Text, "Location: Brixton Library")
	assert.Contains(t, msg.Text, "Video Link: https://zoom.example/123")

	bare := testMeeting()
	bare.Format = ""
	bare.Location = ""
	bareMsg := MeetingTomorrow(bare)
	assert.NotContains(t, bareMsg.Text, "Format:")
	assert.NotContains(t, bareMsg.Text, "Location:")
}

func TestErrorAlertWithContext(t *testing.T) {
	msg := ErrorAlert("gmail_auth", "token refresh failed", "message msg-123")
	assert.Contains(t, msg.Subject, "gmail_auth")
	assert.Contains(t, msg.Text, "token refresh failed")
	assert.Contains(t, msg.Text, "Context: message msg-123")

	noCtx := ErrorAlert("notion", "rate limited", "")
	assert.NotContains(t, noCtx.Text, "Context:")
}

func TestHealthAlert(t *testing.T) {
	msg := HealthAlert("No emails processed in 7 days")
	assert.Contains(t, msg.Text, "No emails processed in 7 days")
	assert.Contains(t, msg.HTML, "System Health Alert")
}

func TestMinutesReminder(t *testing.T) {
	msg := MinutesReminder(testMeeting())
	assert.Equal(t, "Please Add Minutes: September monthly meeting", msg.Subject)
	assert.Contains(t, msg.Text, "Set the next meeting date")
}
