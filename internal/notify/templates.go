package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/lambethcyclists/mailroom/internal/store"
)

const (
	footerText = "---\nLambeth Cyclists Email Processor"
	footerHTML = `<hr><p style="color: #666; font-size: 0.9em;">Lambeth Cyclists Email Processor</p>`

	dateTimeFormat = "Monday, 02 January 2006 at 15:04"
	dateFormat     = "Monday, 02 January 2006"

	previewLen = 500
)

// AgendaGenerated announces a freshly generated agenda that now needs
// approval.
func AgendaGenerated(meeting *store.Meeting, agenda string, now time.Time) Message {
	daysUntil := int(meeting.Date.Sub(now).Hours() / 24)
	preview := agenda
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}

	text := fmt.Sprintf(`The agenda has been generated for your upcoming meeting:

Meeting: %s
Date: %s
Time until meeting: %d days

Please review and approve the agenda in Notion:
%s

AGENDA PREVIEW:
%s

Mark the agenda as "approved" when ready to send it out to attendees.

%s`, meeting.Title, meeting.Date.Format(dateTimeFormat), daysUntil, meeting.URL, preview, footerText)

	html := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <h2>Agenda Generated</h2>
    <ul>
        <li><strong>Meeting:</strong> %s</li>
        <li><strong>Date:</strong> %s</li>
        <li><strong>Time until meeting:</strong> %d days</li>
    </ul>
    <p><a href="%s" style="background-color: #0066cc; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Review Agenda</a></p>
    <h3>Agenda Preview:</h3>
    <pre style="background-color: #f5f5f5; padding: 15px; border-radius: 5px; overflow: auto; font-size: 0.9em;">%s</pre>
    <p style="color: #cc6600;"><strong>Mark the agenda as "approved" when ready to send it out to attendees.</strong></p>
    %s
</body>
</html>`, meeting.Title, meeting.Date.Format(dateTimeFormat), daysUntil, meeting.URL, htmlEscape(preview), footerHTML)

	return Message{
		Subject: "Agenda Generated: " + meeting.Title,
		Text:    text,
		HTML:    html,
	}
}

// ApprovalReminder is the daily nag for an agenda sitting in generated
// state during the week before the meeting.
func ApprovalReminder(meeting *store.Meeting, daysUntil int) Message {
	urgency := ""
	if daysUntil <= 2 {
		urgency = "URGENT: "
	}

	text := fmt.Sprintf(`REMINDER: Agenda needs approval

Meeting: %s
Date: %s
Days until meeting: %d

The agenda has been generated but still needs your approval.

Please review and mark as "approved" in Notion:
%s

You will continue to receive daily reminders until the agenda is approved.

%s`, meeting.Title, meeting.Date.Format(dateTimeFormat), daysUntil, meeting.URL, footerText)

	html := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <div style="background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin-bottom: 20px;">
        <h2 style="margin-top: 0;">REMINDER: Agenda Needs Approval</h2>
    </div>
    <ul>
        <li><strong>Meeting:</strong> %s</li>
        <li><strong>Date:</strong> %s</li>
        <li><strong>Days until meeting:</strong> %d</li>
    </ul>
    <p>The agenda has been generated but still needs your approval.</p>
    <p><a href="%s" style="background-color: #dc3545; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Review &amp; Approve Agenda</a></p>
    <p style="color: #666; font-size: 0.9em;">You will continue to receive daily reminders until the agenda is approved.</p>
    %s
</body>
</html>`, meeting.Title, meeting.Date.Format(dateTimeFormat), daysUntil, meeting.URL, footerHTML)

	return Message{
		Subject: urgency + "Agenda Needs Approval: " + meeting.Title,
		Text:    text,
		HTML:    html,
	}
}

// MeetingTomorrow is the final reminder the day before a meeting.
func MeetingTomorrow(meeting *store.Meeting) Message {
	details := []string{
		"Meeting: " + meeting.Title,
		"Date: " + meeting.Date.Format(dateTimeFormat),
	}
	if meeting.Format != "" {
		details = append(details, "Format: "+meeting.Format)
	}
	if meeting.Location != "" {
		details = append(details, "Location: "+meeting.Location)
	}
	if meeting.VideoLink != "" {
		details = append(details, "Video Link: "+meeting.VideoLink)
	}

	var detailsHTML strings.Builder
	for _, d := range details {
		fmt.Fprintf(&detailsHTML, "<li>%s</li>\n", htmlEscape(d))
	}

	text := fmt.Sprintf(`REMINDER: Meeting Tomorrow

%s

View meeting details in Notion:
%s

See you tomorrow!

%s`, strings.Join(details, "\n"), meeting.URL, footerText)

	html := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <div style="background-color: #d1ecf1; border-left: 4px solid #0c5460; padding: 15px; margin-bottom: 20px;">
        <h2 style="margin-top: 0;">REMINDER: Meeting Tomorrow</h2>
    </div>
    <ul>
        %s
    </ul>
    <p><a href="%s">View meeting details in Notion</a></p>
    <p><strong>See you tomorrow!</strong></p>
    %s
</body>
</html>`, detailsHTML.String(), meeting.URL, footerHTML)

	return Message{
		Subject: "Meeting Tomorrow: " + meeting.Title,
		Text:    text,
		HTML:    html,
	}
}

// MinutesReminder asks for minutes the day after a meeting.
func MinutesReminder(meeting *store.Meeting) Message {
	text := fmt.Sprintf(`Meeting yesterday: %s
Date: %s

Please add the meeting minutes and notes to Notion:
%s

Don't forget to:
- Add meeting notes
- Record decisions made
- List action items
- Set the next meeting date

%s`, meeting.Title, meeting.Date.Format(dateFormat), meeting.URL, footerText)

	html := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <h2>Please Add Meeting Minutes</h2>
    <p><strong>Meeting yesterday:</strong> %s<br>
    <strong>Date:</strong> %s</p>
    <p><a href="%s" style="background-color: #28a745; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Add Minutes</a></p>
    <h3>Don't forget to:</h3>
    <ul>
        <li>Add meeting notes</li>
        <li>Record decisions made</li>
        <li>List action items</li>
        <li>Set the next meeting date</li>
    </ul>
    %s
</body>
</html>`, htmlEscape(meeting.Title), meeting.Date.Format(dateFormat), meeting.URL, footerHTML)

	return Message{
		Subject: "Please Add Minutes: " + meeting.Title,
		Text:    text,
		HTML:    html,
	}
}

// ErrorAlert reports a processing failure to the operators.
func ErrorAlert(errorType, errorMessage, context string) Message {
	contextText := ""
	contextHTML := ""
	if context != "" {
		contextText = "Context: " + context + "\n\n"
		contextHTML = "<li><strong>Context:</strong> " + htmlEscape(context) + "</li>"
	}

	text := fmt.Sprintf(`An error occurred in the Lambeth Cyclists Email Processor:

Error Type: %s
Error Message: %s

%sPlease check the service logs for more details.

%s`, errorType, errorMessage, contextText, footerText)

	html := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <div style="background-color: #f8d7da; border-left: 4px solid #dc3545; padding: 15px; margin-bottom: 20px;">
        <h2 style="margin-top: 0; color: #721c24;">Error in Email Processor</h2>
    </div>
    <ul>
        <li><strong>Error Type:</strong> %s</li>
        <li><strong>Error Message:</strong> %s</li>
        %s
    </ul>
    <p>Please check the service logs for more details.</p>
    %s
</body>
</html>`, htmlEscape(errorType), htmlEscape(errorMessage), contextHTML, footerHTML)

	return Message{
		Subject: "Error in Email Processor: " + errorType,
		Text:    text,
		HTML:    html,
	}
}

// HealthAlert flags prolonged inactivity or another system-level
// condition worth a look.
func HealthAlert(message string) Message {
	text := fmt.Sprintf(`System Health Alert:

%s

Please check:
- The deployment is running
- Gmail API credentials are valid
- Notion API is accessible
- No rate limits hit

%s`, message, footerText)

	html := fmt.Sprintf(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
    <div style="background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin-bottom: 20px;">
        <h2 style="margin-top: 0;">System Health Alert</h2>
    </div>
    <p>%s</p>
    <h3>Please check:</h3>
    <ul>
        <li>The deployment is running</li>
        <li>Gmail API credentials are valid</li>
        <li>Notion API is accessible</li>
        <li>No rate limits hit</li>
    </ul>
    %s
</body>
</html>`, htmlEscape(message), footerHTML)

	return Message{
		Subject: "System Health Alert: Email Processor",
		Text:    text,
		HTML:    html,
	}
}

func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
