package notion

import (
	"encoding/json"
	"time"

	"github.com/lambethcyclists/mailroom/internal/store"
)

// Notion truncates rich_text content above 2000 characters per block;
// long fields are cut client-side to keep writes from failing.
const maxRichTextLen = 2000

// page is the subset of a Notion page object the automation reads.
type page struct {
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]property `json:"properties"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type property struct {
	Type        string        `json:"type"`
	Title       []richText    `json:"title,omitempty"`
	RichText    []richText    `json:"rich_text,omitempty"`
	Date        *dateValue    `json:"date,omitempty"`
	Select      *selectValue  `json:"select,omitempty"`
	MultiSelect []selectValue `json:"multi_select,omitempty"`
	Checkbox    *bool         `json:"checkbox,omitempty"`
	Email       *string       `json:"email,omitempty"`
	URL         *string       `json:"url,omitempty"`
	Relation    []relation    `json:"relation,omitempty"`
}

type richText struct {
	Type      string     `json:"type,omitempty"`
	Text      *textValue `json:"text,omitempty"`
	PlainText string     `json:"plain_text,omitempty"`
}

type textValue struct {
	Content string `json:"content"`
}

type dateValue struct {
	Start string `json:"start"`
}

type selectValue struct {
	Name string `json:"name"`
}

type relation struct {
	ID string `json:"id"`
}

func (p *page) text(prop string) string {
	v, ok := p.Properties[prop]
	if !ok {
		return ""
	}
	parts := v.RichText
	if v.Type == "title" || len(v.Title) > 0 {
		parts = v.Title
	}
	out := ""
	for _, rt := range parts {
		if rt.PlainText != "" {
			out += rt.PlainText
		} else if rt.Text != nil {
			out += rt.Text.Content
		}
	}
	return out
}

func (p *page) date(prop string) *time.Time {
	v, ok := p.Properties[prop]
	if !ok || v.Date == nil || v.Date.Start == "" {
		return nil
	}
	t, err := parseNotionDate(v.Date.Start)
	if err != nil {
		return nil
	}
	return &t
}

func (p *page) selectName(prop string) string {
	v, ok := p.Properties[prop]
	if !ok || v.Select == nil {
		return ""
	}
	return v.Select.Name
}

func (p *page) multiSelect(prop string) []string {
	v, ok := p.Properties[prop]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(v.MultiSelect))
	for _, s := range v.MultiSelect {
		out = append(out, s.Name)
	}
	return out
}

func (p *page) checkbox(prop string) bool {
	v, ok := p.Properties[prop]
	return ok && v.Checkbox != nil && *v.Checkbox
}

func (p *page) email(prop string) string {
	v, ok := p.Properties[prop]
	if !ok || v.Email == nil {
		return ""
	}
	return *v.Email
}

func (p *page) relationIDs(prop string) []string {
	v, ok := p.Properties[prop]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(v.Relation))
	for _, r := range v.Relation {
		out = append(out, r.ID)
	}
	return out
}

// parseNotionDate accepts both date-only and datetime property values.
func parseNotionDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func titleProp(s string) map[string]any {
	return map[string]any{"title": []map[string]any{{"text": map[string]any{"content": clip(s, maxRichTextLen)}}}}
}

func richTextProp(s string) map[string]any {
	return map[string]any{"rich_text": []map[string]any{{"text": map[string]any{"content": clip(s, maxRichTextLen)}}}}
}

func dateProp(t time.Time) map[string]any {
	return map[string]any{"date": map[string]any{"start": t.UTC().Format(time.RFC3339)}}
}

func selectProp(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func multiSelectProp(names []string) map[string]any {
	opts := make([]map[string]any, 0, len(names))
	for _, n := range names {
		opts = append(opts, map[string]any{"name": n})
	}
	return map[string]any{"multi_select": opts}
}

func checkboxProp(v bool) map[string]any {
	return map[string]any{"checkbox": v}
}

func emailProp(addr string) map[string]any {
	return map[string]any{"email": addr}
}

func relationProp(ids []string) map[string]any {
	rels := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			rels = append(rels, map[string]any{"id": id})
		}
	}
	return map[string]any{"relation": rels}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func buildItemProperties(item *store.Item) map[string]any {
	props := map[string]any{
		store.PropTitle:            titleProp(item.Title),
		store.PropSummary:          richTextProp(item.Summary),
		store.PropDateReceived:     dateProp(item.DateReceived),
		store.PropHasAttachments:   checkboxProp(item.HasAttachments),
		store.PropStatus:           selectProp(string(item.Status)),
		store.PropPriority:         selectProp(string(item.Priority)),
		store.PropProcessingStatus: selectProp(string(item.ProcessingStatus)),
	}

	if item.MessageID != "" {
		props[store.PropMessageID] = richTextProp(item.MessageID)
	}
	if item.SenderEmail != "" {
		props[store.PropSenderEmail] = emailProp(item.SenderEmail)
	}
	if item.ConsultationDeadline != nil {
		props[store.PropConsultationDeadline] = dateProp(*item.ConsultationDeadline)
	}
	if item.ActionDueDate != nil {
		props[store.PropActionDueDate] = dateProp(*item.ActionDueDate)
	}
	if item.EstimatedCompletion != nil {
		props[store.PropEstimatedCompletion] = dateProp(*item.EstimatedCompletion)
	}
	if item.Category != "" {
		props[store.PropCategory] = selectProp(string(item.Category))
	}
	if item.ActionRequired != "" {
		props[store.PropActionRequired] = selectProp(string(item.ActionRequired))
	}
	if len(item.Tags) > 0 {
		props[store.PropTags] = multiSelectProp(item.Tags)
	}
	if len(item.Locations) > 0 {
		props[store.PropLocations] = multiSelectProp(item.Locations)
	}
	if len(item.Coordinates) > 0 {
		if data, err := json.Marshal(item.Coordinates); err == nil {
			props[store.PropCoordinates] = richTextProp(string(data))
		}
	}
	if item.KeyPoints != "" {
		props[store.PropKeyPoints] = richTextProp(item.KeyPoints)
	}
	if len(item.Attachments) > 0 {
		if data, err := json.Marshal(item.Attachments); err == nil {
			props[store.PropAttachmentURLs] = richTextProp(string(data))
		}
	}
	if item.ImageAnalysis != "" {
		props[store.PropImageAnalysis] = richTextProp(item.ImageAnalysis)
	}
	if len(item.RelatedItemIDs) > 0 {
		props[store.PropRelatedItems] = relationProp(item.RelatedItemIDs)
	}
	if item.ProjectID != "" {
		props[store.PropProject] = relationProp([]string{item.ProjectID})
	}

	return props
}

func parseItem(pg *page) *store.Item {
	item := &store.Item{
		ID:               pg.ID,
		URL:              pg.URL,
		CreatedTime:      pg.CreatedTime,
		Title:            pg.text(store.PropTitle),
		Summary:          pg.text(store.PropSummary),
		MessageID:        pg.text(store.PropMessageID),
		SenderEmail:      pg.email(store.PropSenderEmail),
		HasAttachments:   pg.checkbox(store.PropHasAttachments),
		Category:         store.Category(pg.selectName(store.PropCategory)),
		ActionRequired:   store.ActionRequired(pg.selectName(store.PropActionRequired)),
		Tags:             pg.multiSelect(store.PropTags),
		Locations:        pg.multiSelect(store.PropLocations),
		KeyPoints:        pg.text(store.PropKeyPoints),
		ImageAnalysis:    pg.text(store.PropImageAnalysis),
		RelatedItemIDs:   pg.relationIDs(store.PropRelatedItems),
		MeetingIDs:       pg.relationIDs(store.PropMeetings),
		Status:           store.ItemStatus(pg.selectName(store.PropStatus)),
		Priority:         store.Priority(pg.selectName(store.PropPriority)),
		ProcessingStatus: store.ProcessingStatus(pg.selectName(store.PropProcessingStatus)),
	}

	if t := pg.date(store.PropDateReceived); t != nil {
		item.DateReceived = *t
	}
	item.ConsultationDeadline = pg.date(store.PropConsultationDeadline)
	item.ActionDueDate = pg.date(store.PropActionDueDate)
	item.EstimatedCompletion = pg.date(store.PropEstimatedCompletion)

	if raw := pg.text(store.PropCoordinates); raw != "" {
		_ = json.Unmarshal([]byte(raw), &item.Coordinates)
	}
	if raw := pg.text(store.PropAttachmentURLs); raw != "" {
		_ = json.Unmarshal([]byte(raw), &item.Attachments)
	}
	if rel := pg.relationIDs(store.PropProject); len(rel) > 0 {
		item.ProjectID = rel[0]
	}

	return item
}

func buildProjectProperties(project *store.Project) map[string]any {
	props := map[string]any{
		store.PropProjectName: titleProp(project.Name),
		store.PropDescription: richTextProp(project.Description),
		store.PropStatus:      selectProp(string(project.Status)),
		store.PropPriority:    selectProp(string(project.Priority)),
	}
	if project.Type != "" {
		props[store.PropProjectType] = selectProp(project.Type)
	}
	if project.StartDate != nil {
		props[store.PropStartDate] = dateProp(*project.StartDate)
	}
	if project.TargetCompletion != nil {
		props[store.PropTargetDate] = dateProp(*project.TargetCompletion)
	}
	if len(project.Locations) > 0 {
		props[store.PropLocations] = multiSelectProp(project.Locations)
	}
	if project.GeographicScope != "" {
		props[store.PropGeographicScope] = selectProp(project.GeographicScope)
	}
	if project.CurrentStatus != "" {
		props[store.PropCurrentStatus] = richTextProp(project.CurrentStatus)
	}
	if len(project.ItemIDs) > 0 {
		props[store.PropProjectItems] = relationProp(project.ItemIDs)
	}
	return props
}

func parseProject(pg *page) *store.Project {
	project := &store.Project{
		ID:              pg.ID,
		URL:             pg.URL,
		CreatedTime:     pg.CreatedTime,
		Name:            pg.text(store.PropProjectName),
		Description:     pg.text(store.PropDescription),
		Type:            pg.selectName(store.PropProjectType),
		Status:          store.ProjectStatus(pg.selectName(store.PropStatus)),
		Priority:        store.Priority(pg.selectName(store.PropPriority)),
		Locations:       pg.multiSelect(store.PropLocations),
		GeographicScope: pg.selectName(store.PropGeographicScope),
		CurrentStatus:   pg.text(store.PropCurrentStatus),
		ItemIDs:         pg.relationIDs(store.PropProjectItems),
	}
	project.StartDate = pg.date(store.PropStartDate)
	project.TargetCompletion = pg.date(store.PropTargetDate)
	return project
}

func parseMeeting(pg *page) *store.Meeting {
	meeting := &store.Meeting{
		ID:                  pg.ID,
		URL:                 pg.URL,
		CreatedTime:         pg.CreatedTime,
		Title:               pg.text(store.PropMeetingTitle),
		Type:                pg.selectName(store.PropMeetingType),
		Format:              pg.selectName(store.PropMeetingFormat),
		Location:            pg.text(store.PropMeetingLocation),
		GeneratedAgenda:     pg.text(store.PropGeneratedAgenda),
		ManualAgendaItems:   pg.text(store.PropManualAgenda),
		AgendaStatus:        store.AgendaStatus(pg.selectName(store.PropAgendaStatus)),
		LastNagDate:         pg.text(store.PropLastNagDate),
		DayBeforeSent:       pg.checkbox(store.PropDayBeforeSent),
		MinutesReminderSent: pg.checkbox(store.PropMinutesSent),
		Notes:               pg.text(store.PropMeetingNotes),
		ItemIDs:             pg.relationIDs(store.PropItemsToDiscuss),
		ProjectIDs:          pg.relationIDs(store.PropProjectsToReview),
		CreatedManually:     pg.checkbox(store.PropCreatedManually),
	}
	if v, ok := pg.Properties[store.PropVideoLink]; ok && v.URL != nil {
		meeting.VideoLink = *v.URL
	}
	if t := pg.date(store.PropMeetingDate); t != nil {
		meeting.Date = *t
	}
	meeting.AgendaGeneratedAt = pg.date(store.PropAgendaGeneratedAt)
	if rel := pg.relationIDs(store.PropPreviousMeeting); len(rel) > 0 {
		meeting.PreviousMeeting = rel[0]
	}
	return meeting
}

func buildQuery(q store.Query) map[string]any {
	payload := map[string]any{}

	filters := make([]map[string]any, 0, len(q.Filters))
	for _, f := range q.Filters {
		filters = append(filters, buildFilter(f))
	}
	if len(filters) == 1 {
		payload["filter"] = filters[0]
	} else if len(filters) > 1 {
		payload["filter"] = map[string]any{"and": filters}
	}

	if len(q.Sorts) > 0 {
		sorts := make([]map[string]any, 0, len(q.Sorts))
		for _, s := range q.Sorts {
			dir := "ascending"
			if s.Descending {
				dir = "descending"
			}
			sorts = append(sorts, map[string]any{"property": s.Property, "direction": dir})
		}
		payload["sorts"] = sorts
	}

	pageSize := 100
	if q.Limit > 0 && q.Limit < pageSize {
		pageSize = q.Limit
	}
	payload["page_size"] = pageSize

	return payload
}

func buildFilter(f store.Filter) map[string]any {
	var value any
	switch v := f.Value.(type) {
	case time.Time:
		value = v.UTC().Format(time.RFC3339)
	default:
		value = v
	}

	var condition map[string]any
	if f.Condition == store.CondIsEmpty {
		condition = map[string]any{string(store.CondIsEmpty): true}
	} else {
		condition = map[string]any{string(f.Condition): value}
	}

	return map[string]any{
		"property": f.Property,
		f.Type:     condition,
	}
}
