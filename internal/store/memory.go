package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. It backs tests and dry runs and
// interprets the same property names and filter semantics as the Notion
// client, so state-machine behaviour can be exercised without a network.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int
	items    []*Item
	projects []*Project
	meetings []*Meeting
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// AddMeeting seeds a meeting, assigning an ID if none is set. Meetings
// are operator-created in production, so the store itself exposes no
// create operation for them.
func (s *MemoryStore) AddMeeting(m *Meeting) *Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = s.nextID("meeting")
	}
	s.meetings = append(s.meetings, m)
	return m
}

// AddProject seeds a project directly, assigning an ID if none is set.
func (s *MemoryStore) AddProject(p *Project) *Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.nextID("project")
	}
	s.projects = append(s.projects, p)
	return p
}

// CreateItem implements ItemStore.
func (s *MemoryStore) CreateItem(_ context.Context, item *Item) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	cp.ID = s.nextID("item")
	cp.CreatedTime = time.Now().UTC()
	s.items = append(s.items, &cp)
	return &cp, nil
}

// FindItemByMessageID implements ItemStore.
func (s *MemoryStore) FindItemByMessageID(_ context.Context, messageID string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.MessageID == messageID {
			cp := *it
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// QueryItems implements ItemStore.
func (s *MemoryStore) QueryItems(_ context.Context, q Query) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Item
	for _, it := range s.items {
		if matchAll(q.Filters, func(p string) (any, bool) { return itemProp(it, p) }) {
			cp := *it
			out = append(out, &cp)
		}
	}
	sortRecords(out, q.Sorts, func(it *Item, p string) (any, bool) { return itemProp(it, p) })
	return limit(out, q.Limit), nil
}

// AddItemRelations implements ItemStore.
func (s *MemoryStore) AddItemRelations(_ context.Context, itemID string, relatedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.findItem(itemID)
	if it == nil {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	it.RelatedItemIDs = appendMissing(it.RelatedItemIDs, relatedIDs)
	return nil
}

// SetItemProject implements ItemStore.
func (s *MemoryStore) SetItemProject(_ context.Context, itemID, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.findItem(itemID)
	if it == nil {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	it.ProjectID = projectID
	return nil
}

// UpdateItemProcessing implements ItemStore.
func (s *MemoryStore) UpdateItemProcessing(_ context.Context, itemID string, status ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.findItem(itemID)
	if it == nil {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	it.ProcessingStatus = status
	return nil
}

// CreateProject implements ProjectStore.
func (s *MemoryStore) CreateProject(_ context.Context, project *Project) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *project
	cp.ID = s.nextID("project")
	cp.CreatedTime = time.Now().UTC()
	s.projects = append(s.projects, &cp)
	return &cp, nil
}

// QueryProjects implements ProjectStore.
func (s *MemoryStore) QueryProjects(_ context.Context, q Query) ([]*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Project
	for _, p := range s.projects {
		if matchAll(q.Filters, func(prop string) (any, bool) { return projectProp(p, prop) }) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortRecords(out, q.Sorts, func(p *Project, prop string) (any, bool) { return projectProp(p, prop) })
	return limit(out, q.Limit), nil
}

// AddProjectItems implements ProjectStore.
func (s *MemoryStore) AddProjectItems(_ context.Context, projectID string, itemIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.ID == projectID {
			p.ItemIDs = appendMissing(p.ItemIDs, itemIDs)
			return nil
		}
	}
	return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
}

// QueryMeetings implements MeetingStore.
func (s *MemoryStore) QueryMeetings(_ context.Context, q Query) ([]*Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Meeting
	for _, m := range s.meetings {
		if matchAll(q.Filters, func(prop string) (any, bool) { return meetingProp(m, prop) }) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sortRecords(out, q.Sorts, func(m *Meeting, prop string) (any, bool) { return meetingProp(m, prop) })
	return limit(out, q.Limit), nil
}

// UpdateMeetingAgenda implements MeetingStore.
func (s *MemoryStore) UpdateMeetingAgenda(_ context.Context, meetingID, agenda string, itemIDs, projectIDs []string, generatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findMeeting(meetingID)
	if m == nil {
		return fmt.Errorf("meeting %s: %w", meetingID, ErrNotFound)
	}
	m.GeneratedAgenda = agenda
	m.ItemIDs = appendMissing(m.ItemIDs, itemIDs)
	m.ProjectIDs = appendMissing(m.ProjectIDs, projectIDs)
	m.AgendaStatus = AgendaGenerated
	t := generatedAt
	m.AgendaGeneratedAt = &t
	return nil
}

// UpdateMeetingReminders implements MeetingStore.
func (s *MemoryStore) UpdateMeetingReminders(_ context.Context, meetingID string, state ReminderState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findMeeting(meetingID)
	if m == nil {
		return fmt.Errorf("meeting %s: %w", meetingID, ErrNotFound)
	}
	m.LastNagDate = state.LastNagDate
	m.DayBeforeSent = state.DayBeforeSent
	m.MinutesReminderSent = state.MinutesReminderSent
	return nil
}

// Item returns the live item record, for test assertions.
func (s *MemoryStore) Item(id string) *Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findItem(id)
}

// Meeting returns the live meeting record, for test assertions.
func (s *MemoryStore) Meeting(id string) *Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findMeeting(id)
}

// ItemCount returns the number of stored items.
func (s *MemoryStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryStore) findItem(id string) *Item {
	for _, it := range s.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (s *MemoryStore) findMeeting(id string) *Meeting {
	for _, m := range s.meetings {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func itemProp(it *Item, prop string) (any, bool) {
	switch prop {
	case PropTitle:
		return it.Title, true
	case PropDateReceived:
		return it.DateReceived, true
	case PropMessageID:
		return it.MessageID, true
	case PropSenderEmail:
		return it.SenderEmail, true
	case PropConsultationDeadline:
		return timePtr(it.ConsultationDeadline), true
	case PropCategory:
		return string(it.Category), true
	case PropStatus:
		return string(it.Status), true
	case PropPriority:
		return string(it.Priority), true
	case PropProcessingStatus:
		return string(it.ProcessingStatus), true
	case PropProject:
		return it.ProjectID, true
	}
	return nil, false
}

func projectProp(p *Project, prop string) (any, bool) {
	switch prop {
	case PropProjectName:
		return p.Name, true
	case PropStatus:
		return string(p.Status), true
	case PropPriority:
		return string(p.Priority), true
	case PropProjectType:
		return p.Type, true
	}
	return nil, false
}

func meetingProp(m *Meeting, prop string) (any, bool) {
	switch prop {
	case PropMeetingTitle:
		return m.Title, true
	case PropMeetingDate:
		return m.Date, true
	case PropAgendaStatus:
		return string(m.AgendaStatus), true
	case PropCreatedManually:
		return m.CreatedManually, true
	case PropMeetingNotes:
		return m.Notes, true
	}
	return nil, false
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func matchAll(filters []Filter, get func(string) (any, bool)) bool {
	for _, f := range filters {
		value, ok := get(f.Property)
		if !ok {
			return false
		}
		if !matchOne(f, value) {
			return false
		}
	}
	return true
}

func matchOne(f Filter, value any) bool {
	switch f.Condition {
	case CondIsEmpty:
		switch v := value.(type) {
		case nil:
			return true
		case string:
			return strings.TrimSpace(v) == ""
		}
		return false
	case CondEquals, CondDoesNotEqual:
		equal := false
		switch v := value.(type) {
		case string:
			want, _ := f.Value.(string)
			equal = v == want
		case bool:
			want, _ := f.Value.(bool)
			equal = v == want
		case time.Time:
			want, _ := f.Value.(time.Time)
			equal = v.Equal(want)
		}
		if f.Condition == CondDoesNotEqual {
			return !equal
		}
		return equal
	case CondContains:
		v, _ := value.(string)
		want, _ := f.Value.(string)
		return strings.Contains(v, want)
	case CondBefore, CondAfter, CondOnOrBefore, CondOnOrAfter:
		v, ok := value.(time.Time)
		if !ok {
			return false
		}
		want, ok := f.Value.(time.Time)
		if !ok {
			return false
		}
		switch f.Condition {
		case CondBefore:
			return v.Before(want)
		case CondAfter:
			return v.After(want)
		case CondOnOrBefore:
			return !v.After(want)
		case CondOnOrAfter:
			return !v.Before(want)
		}
	}
	return false
}

func sortRecords[T any](records []T, sorts []Sort, get func(T, string) (any, bool)) {
	if len(sorts) == 0 {
		return
	}
	s := sorts[0]
	sort.SliceStable(records, func(i, j int) bool {
		a, okA := get(records[i], s.Property)
		b, okB := get(records[j], s.Property)
		if !okA || !okB {
			return false
		}
		less := lessValue(a, b)
		if s.Descending {
			return lessValue(b, a)
		}
		return less
	})
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Before(bv)
	case string:
		bv, ok := b.(string)
		return ok && av < bv
	}
	return false
}

func limit[T any](records []T, n int) []T {
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}

func appendMissing(existing []string, add []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range add {
		if id != "" && !seen[id] {
			existing = append(existing, id)
			seen[id] = true
		}
	}
	return existing
}
