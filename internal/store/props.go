package store

// Canonical property names of the three collections. Queries are written
// against these names and both backends interpret them, so they live
// here rather than in the Notion client.
const (
	// Items
	PropTitle                = "Title"
	PropSummary              = "Summary"
	PropDateReceived         = "Date Received"
	PropMessageID            = "Gmail Message ID"
	PropSenderEmail          = "Sender Email"
	PropHasAttachments       = "Has Attachments"
	PropConsultationDeadline = "Consultation Deadline"
	PropActionDueDate        = "Action Due Date"
	PropEstimatedCompletion  = "Estimated Completion"
	PropCategory             = "Category"
	PropActionRequired       = "Action Required"
	PropTags                 = "Tags"
	PropLocations            = "Locations"
	PropCoordinates          = "Geocoded Coordinates"
	PropKeyPoints            = "AI Key Points"
	PropAttachmentURLs       = "Attachment URLs"
	PropImageAnalysis        = "Attachment Analysis"
	PropRelatedItems         = "Related Past Items"
	PropProject              = "Related Project"
	PropMeetings             = "Discussed in Meetings"
	PropStatus               = "Status"
	PropPriority             = "Priority"
	PropProcessingStatus     = "Processing Status"

	// Projects
	PropProjectName     = "Project Name"
	PropDescription     = "Description"
	PropProjectType     = "Project Type"
	PropStartDate       = "Start Date"
	PropTargetDate      = "Target Completion"
	PropGeographicScope = "Geographic Scope"
	PropCurrentStatus   = "Current Status"
	PropProjectItems    = "Related Items"

	// Meetings
	PropMeetingTitle      = "Meeting Title"
	PropMeetingDate       = "Meeting Date"
	PropMeetingType       = "Meeting Type"
	PropMeetingFormat     = "Meeting Format"
	PropMeetingLocation   = "Location"
	PropVideoLink         = "Video Link"
	PropGeneratedAgenda   = "Auto Generated Agenda"
	PropManualAgenda      = "Manual Agenda Items"
	PropAgendaStatus      = "Agenda Generation Status"
	PropAgendaGeneratedAt = "Agenda Generated At"
	PropLastNagDate       = "Last Approval Reminder"
	PropDayBeforeSent     = "Day Before Reminder Sent"
	PropMinutesSent       = "Minutes Reminder Sent"
	PropMeetingNotes      = "Meeting Notes"
	PropItemsToDiscuss    = "Items to Discuss"
	PropProjectsToReview  = "Projects to Review"
	PropPreviousMeeting   = "Previous Meeting"
	PropCreatedManually   = "Meeting Created Manually"
)
