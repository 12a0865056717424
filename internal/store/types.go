package store

import (
	"time"
)

// Category classifies what kind of matter an Item concerns.
type Category string

const (
	CategoryTrafficOrder   Category = "traffic_order"
	CategoryConsultation   Category = "consultation"
	CategoryInfrastructure Category = "infrastructure_project"
	CategoryEvent          Category = "event"
	CategoryOther          Category = "other"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryTrafficOrder, CategoryConsultation, CategoryInfrastructure, CategoryEvent, CategoryOther:
		return true
	}
	return false
}

// ActionRequired classifies what the committee needs to do about an Item.
type ActionRequired string

const (
	ActionResponseNeeded  ActionRequired = "response_needed"
	ActionInformationOnly ActionRequired = "information_only"
	ActionMonitoring      ActionRequired = "monitoring"
	ActionUrgent          ActionRequired = "urgent_action"
)

// ValidActionRequired reports whether a is one of the known action classes.
func ValidActionRequired(a ActionRequired) bool {
	switch a {
	case ActionResponseNeeded, ActionInformationOnly, ActionMonitoring, ActionUrgent:
		return true
	}
	return false
}

// Priority ranks how urgently an Item or Project needs attention.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ItemStatus is the manual workflow status of an Item.
type ItemStatus string

const (
	ItemStatusNew             ItemStatus = "new"
	ItemStatusReviewed        ItemStatus = "reviewed"
	ItemStatusResponseDrafted ItemStatus = "response_drafted"
	ItemStatusSubmitted       ItemStatus = "submitted"
	ItemStatusMonitoring      ItemStatus = "monitoring"
	ItemStatusClosed          ItemStatus = "closed"
)

// ProcessingStatus tracks how far the automation got with an Item.
type ProcessingStatus string

const (
	ProcessingPending     ProcessingStatus = "pending_ai_analysis"
	ProcessingComplete    ProcessingStatus = "ai_complete"
	ProcessingNeedsReview ProcessingStatus = "needs_review"
	ProcessingApproved    ProcessingStatus = "approved"
	// ProcessingMigrated marks records imported from the old tracking
	// sheet. Set by operators, never by the automation.
	ProcessingMigrated ProcessingStatus = "migrated"
)

// ProjectStatus is the lifecycle status of a Project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// AgendaStatus is the lifecycle of a Meeting's agenda. Only
// pending->generated is automated; approved and published are set by
// operators and terminal for the automation.
type AgendaStatus string

const (
	AgendaPending   AgendaStatus = "pending"
	AgendaGenerated AgendaStatus = "generated"
	AgendaApproved  AgendaStatus = "approved"
	AgendaPublished AgendaStatus = "published"
)

// Coordinate is a geocoded place name.
type Coordinate struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	PlaceID          string  `json:"place_id,omitempty"`
}

// AttachmentRef points at an uploaded attachment copy.
type AttachmentRef struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Item is one reactive record derived from a single inbound email.
// A given source message ID maps to at most one Item.
type Item struct {
	ID             string
	Title          string
	Summary        string
	DateReceived   time.Time
	MessageID      string
	SenderEmail    string
	HasAttachments bool

	ConsultationDeadline *time.Time
	ActionDueDate        *time.Time
	EstimatedCompletion  *time.Time

	Category       Category
	ActionRequired ActionRequired
	Tags           []string
	Locations      []string
	Coordinates    []Coordinate
	KeyPoints      string
	Attachments    []AttachmentRef
	ImageAnalysis  string

	RelatedItemIDs []string
	ProjectID      string
	MeetingIDs     []string

	Status           ItemStatus
	Priority         Priority
	ProcessingStatus ProcessingStatus

	CreatedTime time.Time
	URL         string
}

// Project is a long-lived initiative aggregating related Items.
type Project struct {
	ID          string
	Name        string
	Description string
	Type        string
	Status      ProjectStatus
	Priority    Priority

	StartDate        *time.Time
	TargetCompletion *time.Time

	Locations       []string
	GeographicScope string
	CurrentStatus   string

	ItemIDs []string

	CreatedTime time.Time
	URL         string
}

// Meeting is a scheduled committee event with an automatable agenda
// lifecycle. The automation mutates only the agenda and reminder fields.
type Meeting struct {
	ID        string
	Title     string
	Date      time.Time
	Type      string
	Format    string
	Location  string
	VideoLink string

	GeneratedAgenda   string
	ManualAgendaItems string
	AgendaStatus      AgendaStatus
	AgendaGeneratedAt *time.Time

	// Reminder bookkeeping, persisted so per-day and once-only
	// guarantees survive process restarts.
	LastNagDate         string // calendar day, YYYY-MM-DD
	DayBeforeSent       bool
	MinutesReminderSent bool

	Notes           string
	ItemIDs         []string
	ProjectIDs      []string
	PreviousMeeting string
	CreatedManually bool

	CreatedTime time.Time
	URL         string
}

// ReminderState is the persisted reminder bookkeeping of a Meeting,
// written back as a unit after each scheduler decision.
type ReminderState struct {
	LastNagDate         string
	DayBeforeSent       bool
	MinutesReminderSent bool
}
