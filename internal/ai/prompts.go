package ai

import (
	"fmt"
	"strings"

	"github.com/lambethcyclists/mailroom/internal/store"
)

const (
	maxBodyLen       = 5000
	maxAttachmentLen = 10000
	maxPromptItems   = 5
	maxTopItems      = 3
)

const extractionPrompt = `You are analyzing an email sent to Lambeth Cyclists, a local cycling advocacy organization in London. Your task is to extract structured information from the email and any attached document text.

Email Subject: %s
Email Body:
%s

Attached Document Text (if any):
%s

Please extract the following information and return it as valid JSON:

1. **title**: A clear, concise title for this item (50-100 characters).

2. **summary**: A 2-3 sentence summary explaining what this is about and why it matters for cycling in Lambeth.

3. **consultation_deadline**: The deadline for consultation responses, if mentioned (ISO 8601 format: YYYY-MM-DDTHH:MM:SS, or null if none).

4. **action_due_date**: When Lambeth Cyclists needs to take action by, if different from consultation deadline (ISO 8601 format, or null).

5. **original_estimated_completion**: Project completion date mentioned in the email/documents (ISO 8601 format, or null).

6. **project_type**: One of: "traffic_order", "consultation", "infrastructure_project", "event", "other"

7. **action_required**: One of: "response_needed", "information_only", "monitoring", "urgent_action"

8. **priority**: One of: "critical", "high", "medium", "low"
   - critical: Deadline within 7 days OR major infrastructure change
   - high: Deadline within 14 days OR significant cycling impact
   - medium: Deadline within 30 days OR moderate cycling relevance
   - low: No urgent deadline OR minor cycling relevance

9. **tags**: Array of relevant tags from this list (select all that apply):
   - LTN, cycle_infrastructure, parking, public_realm, traffic_order, consultation
   - traffic_filters, cycle_lane, bridge_works, healthy_neighbourhood, CPZ
   - contraflow_cycling, cycle_storage, car_free, pedestrian_crossing
   - barrier_removal, cycle_crossing, cycle_network, micromobility, cycle_hire
   - development, business_development, vehicle_access, street_closure
   - parking_removal, parklets, accessibility, infrastructure_downgrade
   Add custom tags if needed for specific topics not covered above.

10. **locations**: Array of street names, junctions, neighborhoods, or landmarks mentioned (e.g., ["Brixton Hill", "Lambert Road", "A23"])

11. **ai_key_points**: Bullet-point list (markdown format) of 3-5 key points that committee members should know.

Return ONLY valid JSON in this exact format:
{
  "title": "...",
  "summary": "...",
  "consultation_deadline": "2025-09-26T23:59:59" or null,
  "action_due_date": null,
  "original_estimated_completion": null,
  "project_type": "traffic_order",
  "action_required": "response_needed",
  "priority": "high",
  "tags": ["LTN", "traffic_filters"],
  "locations": ["Glasshouse Walk", "Vauxhall Street"],
  "ai_key_points": "- Point 1\n- Point 2\n- Point 3"
}

Important:
- Use null for any fields where information is not available
- Dates must be in ISO 8601 format (YYYY-MM-DDTHH:MM:SS) or null
- Be precise with project_type, action_required, and priority (use exact values listed)
- Extract ALL mentioned locations (streets, junctions, areas)`

const visionPrompt = `You are analyzing an image related to cycling infrastructure in Lambeth, London. This image was attached to an email sent to Lambeth Cyclists advocacy group.

Please analyze the image and provide:

1. **Image Type**: Infrastructure photo, diagram/technical drawing, map, document/text, or other.
2. **Visual Description**: Describe what you see in 2-3 sentences.
3. **Streets/Locations Identified**: List any street names, junctions, or landmarks visible.
4. **Proposed Changes** (if applicable): New or removed cycle lanes, traffic filters, parking changes, road layout modifications, signage.
5. **Measurements/Dimensions** (if visible).
6. **Key Details for Cyclists**: The 2-3 most important things a cycling advocate should know from this image.
7. **Text Content** (if readable): Transcribe any visible text, signs, labels, or annotations.

Format your response as clear paragraphs with headers. Be specific about locations and infrastructure details. If the image quality is poor or details are unclear, note that.`

const discussionPrompt = `You are helping generate discussion prompts for a cycling advocacy committee meeting.

These are the most critical/urgent items on the agenda:

%s

For each item, generate 1-2 discussion prompts or questions that would help the committee decide on action. Good prompts:
- Encourage strategic thinking
- Identify who should take action
- Consider collaboration opportunities
- Highlight time-sensitive decisions

Return as JSON mapping item IDs to prompt lists:
{
  "item_id_1": ["Discussion prompt 1", "Discussion prompt 2"],
  "item_id_2": ["Discussion prompt 1"]
}

Keep prompts concise (under 100 characters) and actionable.`

const summaryPrompt = `You are generating the opening summary for a cycling advocacy committee meeting agenda.

**Meeting Info:**
Date: %s
Items since last meeting: %d
Upcoming deadlines: %d
Active projects: %d

**Top Priority Items:**
%s

Write a 2-3 sentence opening summary that:
1. Acknowledges the volume of activity since last meeting
2. Highlights the most significant or time-sensitive items
3. Sets the tone for focused discussion and action

Write in a professional but energetic tone. Return only the summary text (no JSON).`

func buildExtractionPrompt(subject, body, attachmentText string) string {
	if attachmentText == "" {
		attachmentText = "(No attachments)"
	}
	return fmt.Sprintf(extractionPrompt, subject, clipText(body, maxBodyLen), clipText(attachmentText, maxAttachmentLen))
}

func buildDiscussionPrompt(items []*store.Item) string {
	var b strings.Builder
	for i, item := range items {
		if i >= maxPromptItems {
			break
		}
		deadline := "None"
		if item.ConsultationDeadline != nil {
			deadline = item.ConsultationDeadline.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "Item %d:\nID: %s\nTitle: %s\nSummary: %s\nDeadline: %s\nAction Required: %s\n\n",
			i+1, item.ID, item.Title, item.Summary, deadline, item.ActionRequired)
	}
	return fmt.Sprintf(discussionPrompt, strings.TrimSpace(b.String()))
}

func buildSummaryPrompt(meetingDate string, itemCount, deadlineCount, projectCount int, topItems []*store.Item) string {
	var b strings.Builder
	for i, item := range topItems {
		if i >= maxTopItems {
			break
		}
		fmt.Fprintf(&b, "- %s (%s, %s)\n", item.Title, item.Category, item.ActionRequired)
	}
	return fmt.Sprintf(summaryPrompt, meetingDate, itemCount, deadlineCount, projectCount, strings.TrimSpace(b.String()))
}

func clipText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
