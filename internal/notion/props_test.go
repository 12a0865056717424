package notion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambethcyclists/mailroom/internal/store"
)

func TestBuildQuery(t *testing.T) {
	when := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query store.Query
		check func(t *testing.T, payload map[string]any)
	}{
		{
			name:  "no filters",
			query: store.Query{},
			check: func(t *testing.T, payload map[string]any) {
				assert.NotContains(t, payload, "filter")
				assert.Equal(t, 100, payload["page_size"])
			},
		},
		{
			name: "single filter is not wrapped in and",
			query: store.Query{
				Filters: []store.Filter{store.SelectFilter(store.PropAgendaStatus, store.CondEquals, "pending")},
			},
			check: func(t *testing.T, payload map[string]any) {
				f, ok := payload["filter"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, store.PropAgendaStatus, f["property"])
				sel, ok := f["select"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "pending", sel["equals"])
			},
		},
		{
			name: "multiple filters joined with and",
			query: store.Query{
				Filters: []store.Filter{
					store.DateFilter(store.PropMeetingDate, store.CondOnOrAfter, when),
					store.CheckboxFilter(store.PropCreatedManually, true),
				},
			},
			check: func(t *testing.T, payload map[string]any) {
				f, ok := payload["filter"].(map[string]any)
				require.True(t, ok)
				and, ok := f["and"].([]map[string]any)
				require.True(t, ok)
				require.Len(t, and, 2)
				date, ok := and[0]["date"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "2026-09-01T00:00:00Z", date["on_or_after"])
			},
		},
		{
			name: "sorts and limit",
			query: store.Query{
				Sorts: []store.Sort{{Property: store.PropDateReceived, Descending: true}},
				Limit: 5,
			},
			check: func(t *testing.T, payload map[string]any) {
				sorts, ok := payload["sorts"].([]map[string]any)
				require.True(t, ok)
				require.Len(t, sorts, 1)
				assert.Equal(t, "descending", sorts[0]["direction"])
				assert.Equal(t, 5, payload["page_size"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, buildQuery(tt.query))
		})
	}
}

func TestBuildFilterIsEmpty(t *testing.T) {
	f := buildFilter(store.Filter{
		Property:  store.PropGeneratedAgenda,
		Type:      "rich_text",
		Condition: store.CondIsEmpty,
	})
	rt, ok := f["rich_text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, rt["is_empty"])
}

func TestItemPropertiesRoundTrip(t *testing.T) {
	deadline := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	item := &store.Item{
		Title:                "Railton Road LTN review",
		Summary:              "Annual review of the low traffic neighbourhood",
		DateReceived:         time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC),
		MessageID:            "msg-railton",
		SenderEmail:          "transport@lambeth.gov.uk",
		HasAttachments:       true,
		ConsultationDeadline: &deadline,
		Category:             store.CategoryConsultation,
		ActionRequired:       store.ActionResponseNeeded,
		Tags:                 []string{"LTN", "review"},
		Locations:            []string{"Railton Road", "Herne Hill"},
		Coordinates: []store.Coordinate{{
			Name:             "Railton Road",
			FormattedAddress: "Railton Rd, London SE24",
			Lat:              51.456,
			Lng:              -0.108,
			PlaceID:          "place-1",
		}},
		KeyPoints:        "Deadline mid September",
		Attachments:      []store.AttachmentRef{{Filename: "map.pdf", URL: "https://drive.example/map.pdf"}},
		RelatedItemIDs:   []string{"item-9"},
		ProjectID:        "project-3",
		Status:           store.ItemStatusNew,
		Priority:         store.PriorityHigh,
		ProcessingStatus: store.ProcessingComplete,
	}

	props := buildItemProperties(item)

	pg := propsToPage(t, props)
	pg.ID = "item-1"
	parsed := parseItem(pg)

	assert.Equal(t, item.Title, parsed.Title)
	assert.Equal(t, item.Summary, parsed.Summary)
	assert.Equal(t, item.MessageID, parsed.MessageID)
	assert.Equal(t, item.SenderEmail, parsed.SenderEmail)
	assert.True(t, parsed.HasAttachments)
	require.NotNil(t, parsed.ConsultationDeadline)
	assert.Equal(t, deadline, parsed.ConsultationDeadline.UTC())
	assert.Equal(t, item.Category, parsed.Category)
	assert.Equal(t, item.Tags, parsed.Tags)
	assert.Equal(t, item.Locations, parsed.Locations)
	require.Len(t, parsed.Coordinates, 1)
	assert.Equal(t, "Railton Road", parsed.Coordinates[0].Name)
	assert.InDelta(t, 51.456, parsed.Coordinates[0].Lat, 0.0001)
	require.Len(t, parsed.Attachments, 1)
	assert.Equal(t, "map.pdf", parsed.Attachments[0].Filename)
	assert.Equal(t, item.RelatedItemIDs, parsed.RelatedItemIDs)
	assert.Equal(t, "project-3", parsed.ProjectID)
	assert.Equal(t, item.ProcessingStatus, parsed.ProcessingStatus)
}

func TestMeetingReminderFieldsParse(t *testing.T) {
	yes := true
	pg := &page{
		ID: "meeting-1",
		Properties: map[string]property{
			store.PropMeetingTitle: {
				Type:  "title",
				Title: []richText{{PlainText: "September monthly meeting"}},
			},
			store.PropMeetingDate: {
				Type: "date",
				Date: &dateValue{Start: "2026-09-10T19:00:00Z"},
			},
			store.PropAgendaStatus: {
				Type:   "select",
				Select: &selectValue{Name: "generated"},
			},
			store.PropLastNagDate: {
				Type:     "rich_text",
				RichText: []richText{{PlainText: "2026-09-05"}},
			},
			store.PropDayBeforeSent: {
				Type:     "checkbox",
				Checkbox: &yes,
			},
			store.PropCreatedManually: {
				Type:     "checkbox",
				Checkbox: &yes,
			},
			store.PropPreviousMeeting: {
				Type:     "relation",
				Relation: []relation{{ID: "meeting-0"}},
			},
		},
	}

	meeting := parseMeeting(pg)
	assert.Equal(t, "September monthly meeting", meeting.Title)
	assert.Equal(t, store.AgendaGenerated, meeting.AgendaStatus)
	assert.Equal(t, "2026-09-05", meeting.LastNagDate)
	assert.True(t, meeting.DayBeforeSent)
	assert.False(t, meeting.MinutesReminderSent)
	assert.True(t, meeting.CreatedManually)
	assert.Equal(t, "meeting-0", meeting.PreviousMeeting)
	assert.Equal(t, time.Date(2026, 9, 10, 19, 0, 0, 0, time.UTC), meeting.Date.UTC())
}

func TestRichTextClipping(t *testing.T) {
	long := make([]byte, maxRichTextLen+500)
	for i := range long {
		long[i] = 'a'
	}
	prop := richTextProp(string(long))
	blocks, ok := prop["rich_text"].([]map[string]any)
	require.True(t, ok)
	text, ok := blocks[0]["text"].(map[string]any)
	require.True(t, ok)
	content, ok := text["content"].(string)
	require.True(t, ok)
	assert.Len(t, content, maxRichTextLen)
}

func TestParseNotionDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-09-10", time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)},
		{"2026-09-10T19:00:00Z", time.Date(2026, 9, 10, 19, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseNotionDate(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.UTC())
	}

	_, err := parseNotionDate("next tuesday")
	assert.Error(t, err)
}

// propsToPage converts an outbound property payload into the inbound
// page representation so build/parse pairs can be checked against each
// other without a live API.
func propsToPage(t *testing.T, props map[string]any) *page {
	t.Helper()
	out := make(map[string]property, len(props))
	for name, raw := range props {
		m, ok := raw.(map[string]any)
		require.True(t, ok)
		var p property
		switch {
		case m["title"] != nil:
			p.Type = "title"
			for _, b := range m["title"].([]map[string]any) {
				text := b["text"].(map[string]any)
				p.Title = append(p.Title, richText{PlainText: text["content"].(string)})
			}
		case m["rich_text"] != nil:
			p.Type = "rich_text"
			for _, b := range m["rich_text"].([]map[string]any) {
				text := b["text"].(map[string]any)
				p.RichText = append(p.RichText, richText{PlainText: text["content"].(string)})
			}
		case m["date"] != nil:
			p.Type = "date"
			d := m["date"].(map[string]any)
			p.Date = &dateValue{Start: d["start"].(string)}
		case m["select"] != nil:
			p.Type = "select"
			s := m["select"].(map[string]any)
			p.Select = &selectValue{Name: s["name"].(string)}
		case m["multi_select"] != nil:
			p.Type = "multi_select"
			for _, s := range m["multi_select"].([]map[string]any) {
				p.MultiSelect = append(p.MultiSelect, selectValue{Name: s["name"].(string)})
			}
		case m["checkbox"] != nil:
			p.Type = "checkbox"
			v := m["checkbox"].(bool)
			p.Checkbox = &v
		case m["email"] != nil:
			p.Type = "email"
			v := m["email"].(string)
			p.Email = &v
		case m["relation"] != nil:
			p.Type = "relation"
			for _, r := range m["relation"].([]map[string]any) {
				p.Relation = append(p.Relation, relation{ID: r["id"].(string)})
			}
		default:
			t.Fatalf("unhandled property shape for %q", name)
		}
		out[name] = p
	}
	return &page{Properties: out}
}
