package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("store: record not found")

// Condition is a filter comparison operator, a subset of what the Notion
// query API supports and all the automation needs.
type Condition string

const (
	CondEquals       Condition = "equals"
	CondDoesNotEqual Condition = "does_not_equal"
	CondBefore       Condition = "before"
	CondAfter        Condition = "after"
	CondOnOrBefore   Condition = "on_or_before"
	CondOnOrAfter    Condition = "on_or_after"
	CondIsEmpty      Condition = "is_empty"
	CondContains     Condition = "contains"
)

// Filter restricts a query to records whose property satisfies the
// condition. Value holds a string, bool, or time.Time depending on the
// property type.
type Filter struct {
	Property  string
	Type      string // "select", "date", "checkbox", "rich_text", "relation"
	Condition Condition
	Value     any
}

// Sort orders query results by one property.
type Sort struct {
	Property   string
	Descending bool
}

// Query bundles filters, sorting, and a result limit.
type Query struct {
	Filters []Filter
	Sorts   []Sort
	Limit   int
}

// DateFilter is a convenience constructor for date-valued filters.
func DateFilter(property string, cond Condition, t time.Time) Filter {
	return Filter{Property: property, Type: "date", Condition: cond, Value: t}
}

// SelectFilter is a convenience constructor for select-valued filters.
func SelectFilter(property string, cond Condition, value string) Filter {
	return Filter{Property: property, Type: "select", Condition: cond, Value: value}
}

// CheckboxFilter is a convenience constructor for checkbox filters.
func CheckboxFilter(property string, value bool) Filter {
	return Filter{Property: property, Type: "checkbox", Condition: CondEquals, Value: value}
}

// Store is the record store holding the three linked collections. The
// automation only creates records and updates the fields it owns; it
// never deletes.
type Store interface {
	ItemStore
	ProjectStore
	MeetingStore
}

// ItemStore covers the Items collection.
type ItemStore interface {
	// CreateItem writes a new Item and returns it with its assigned ID.
	CreateItem(ctx context.Context, item *Item) (*Item, error)
	// FindItemByMessageID returns the Item carrying the given source
	// message ID, or ErrNotFound.
	FindItemByMessageID(ctx context.Context, messageID string) (*Item, error)
	// QueryItems returns Items matching the query.
	QueryItems(ctx context.Context, q Query) ([]*Item, error)
	// AddItemRelations appends related-item links to an Item. Links that
	// already exist are not duplicated.
	AddItemRelations(ctx context.Context, itemID string, relatedIDs []string) error
	// SetItemProject sets the parent project of an Item.
	SetItemProject(ctx context.Context, itemID, projectID string) error
	// UpdateItemProcessing updates the processing status of an Item.
	UpdateItemProcessing(ctx context.Context, itemID string, status ProcessingStatus) error
}

// ProjectStore covers the Projects collection.
type ProjectStore interface {
	// CreateProject writes a new Project and returns it with its ID.
	CreateProject(ctx context.Context, project *Project) (*Project, error)
	// QueryProjects returns Projects matching the query.
	QueryProjects(ctx context.Context, q Query) ([]*Project, error)
	// AddProjectItems appends item links to a Project without duplicates.
	AddProjectItems(ctx context.Context, projectID string, itemIDs []string) error
}

// MeetingStore covers the Meetings collection.
type MeetingStore interface {
	// QueryMeetings returns Meetings matching the query.
	QueryMeetings(ctx context.Context, q Query) ([]*Meeting, error)
	// UpdateMeetingAgenda writes the generated agenda, links the gathered
	// items and projects, stamps the generation time, and moves the
	// agenda status to generated.
	UpdateMeetingAgenda(ctx context.Context, meetingID, agenda string, itemIDs, projectIDs []string, generatedAt time.Time) error
	// UpdateMeetingReminders persists the reminder bookkeeping fields.
	UpdateMeetingReminders(ctx context.Context, meetingID string, state ReminderState) error
}
