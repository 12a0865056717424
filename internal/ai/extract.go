package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lambethcyclists/mailroom/internal/store"
)

// Analysis is the structured output of email text extraction, already
// mapped onto store types. NeedsReview is set when the model returned
// something that failed validation and a human should double-check the
// record.
type Analysis struct {
	Title                string
	Summary              string
	ConsultationDeadline *time.Time
	ActionDueDate        *time.Time
	EstimatedCompletion  *time.Time
	Category             store.Category
	ActionRequired       store.ActionRequired
	Priority             store.Priority
	Tags                 []string
	Locations            []string
	KeyPoints            string
	NeedsReview          bool
	ReviewReasons        []string
}

// extraction mirrors the JSON contract in the extraction prompt.
type extraction struct {
	Title                string   `json:"title"`
	Summary              string   `json:"summary"`
	ConsultationDeadline *string  `json:"consultation_deadline"`
	ActionDueDate        *string  `json:"action_due_date"`
	EstimatedCompletion  *string  `json:"original_estimated_completion"`
	ProjectType          string   `json:"project_type"`
	ActionRequired       string   `json:"action_required"`
	Priority             string   `json:"priority"`
	Tags                 []string `json:"tags"`
	Locations            []string `json:"locations"`
	KeyPoints            string   `json:"ai_key_points"`
}

// AnalyzeEmail extracts structured data from an email. API failures
// return an error; a malformed or schema-violating model response
// degrades to a minimal analysis flagged for review, so one confused
// response does not stall the pipeline.
func (c *Client) AnalyzeEmail(ctx context.Context, subject, body, attachmentText string) (*Analysis, error) {
	text, err := c.complete(ctx, 2048, 0, []block{
		textBlock(buildExtractionPrompt(subject, body, attachmentText)),
	})
	if err != nil {
		return nil, err
	}

	var raw extraction
	if err := parseJSON(text, &raw); err != nil {
		return fallbackAnalysis(subject, fmt.Sprintf("model returned invalid JSON: %v", err)), nil
	}
	return raw.validate(subject), nil
}

// validate converts the raw extraction into an Analysis, collecting
// every schema violation instead of stopping at the first.
func (e *extraction) validate(subject string) *Analysis {
	a := &Analysis{
		Title:     strings.TrimSpace(e.Title),
		Summary:   strings.TrimSpace(e.Summary),
		Tags:      e.Tags,
		Locations: e.Locations,
		KeyPoints: e.KeyPoints,
	}

	if a.Title == "" {
		a.Title = clipText(subject, 100)
		a.flag("missing title")
	}
	if a.Summary == "" {
		a.flag("missing summary")
	}

	a.Category = store.Category(e.ProjectType)
	if !store.ValidCategory(a.Category) {
		a.flag(fmt.Sprintf("unknown project_type %q", e.ProjectType))
		a.Category = store.CategoryOther
	}
	a.ActionRequired = store.ActionRequired(e.ActionRequired)
	if !store.ValidActionRequired(a.ActionRequired) {
		a.flag(fmt.Sprintf("unknown action_required %q", e.ActionRequired))
		a.ActionRequired = store.ActionInformationOnly
	}
	a.Priority = store.Priority(e.Priority)
	if !store.ValidPriority(a.Priority) {
		a.flag(fmt.Sprintf("unknown priority %q", e.Priority))
		a.Priority = store.PriorityMedium
	}

	a.ConsultationDeadline = a.parseDate("consultation_deadline", e.ConsultationDeadline)
	a.ActionDueDate = a.parseDate("action_due_date", e.ActionDueDate)
	a.EstimatedCompletion = a.parseDate("original_estimated_completion", e.EstimatedCompletion)

	return a
}

func (a *Analysis) parseDate(field string, value *string) *time.Time {
	if value == nil || *value == "" || strings.EqualFold(*value, "null") {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, *value); err == nil {
			return &t
		}
	}
	a.flag(fmt.Sprintf("unparseable %s %q", field, *value))
	return nil
}

func (a *Analysis) flag(reason string) {
	a.NeedsReview = true
	a.ReviewReasons = append(a.ReviewReasons, reason)
}

func fallbackAnalysis(subject, reason string) *Analysis {
	a := &Analysis{
		Title:          clipText(subject, 100),
		Summary:        "Error analyzing email content. Manual review required.",
		Category:       store.CategoryOther,
		ActionRequired: store.ActionInformationOnly,
		Priority:       store.PriorityMedium,
		KeyPoints:      "- AI analysis failed\n- Manual review required",
	}
	a.flag(reason)
	return a
}

// DiscussionPrompts generates meeting discussion questions for the
// most critical items, keyed by item ID.
func (c *Client) DiscussionPrompts(ctx context.Context, items []*store.Item) (map[string][]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	text, err := c.complete(ctx, 1024, 0.3, []block{
		textBlock(buildDiscussionPrompt(items)),
	})
	if err != nil {
		return nil, err
	}

	prompts := make(map[string][]string)
	if err := parseJSON(text, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// AgendaSummary writes the opening paragraph for a meeting agenda.
func (c *Client) AgendaSummary(ctx context.Context, meetingDate string, itemCount, deadlineCount, projectCount int, topItems []*store.Item) (string, error) {
	text, err := c.complete(ctx, 512, 0.5, []block{
		textBlock(buildSummaryPrompt(meetingDate, itemCount, deadlineCount, projectCount, topItems)),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
