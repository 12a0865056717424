package agenda

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/store"
)

const (
	fallbackLookbackDays = 60
	deadlineWindowDays   = 30
	newItemLimit         = 50
	deadlineItemLimit    = 20
	projectLimit         = 20
	summaryTopItems      = 3
)

// introduction opens every generated agenda. Kept in code so edits go
// through review rather than a database field.
const introduction = `INTRODUCTION

Hello and welcome to the meeting for Lambeth Cyclists - we are the Lambeth branch of the charity London Cycling Campaign. Whether you are a member of LCC or not, you are more than welcome to join and give your thoughts. We are interested in basically anyone who wants to make conditions in Lambeth better for cyclists of all ages.

We try to be studiously apolitical, but part of our role is often as a consultee on TfL or Lambeth Council road or infrastructure plans. We also organise social rides when we can, and we support the central London Cycling Campaign as we can.`

const promptsPlaceholder = "## DISCUSSION PROMPTS\n\n_Discussion prompts will be added during the meeting_"

// Prompter produces the AI-written parts of an agenda. Both methods
// may fail without failing the agenda; the generator degrades to fixed
// placeholders.
type Prompter interface {
	AgendaSummary(ctx context.Context, meetingDate string, itemCount, deadlineCount, projectCount int, topItems []*store.Item) (string, error)
	DiscussionPrompts(ctx context.Context, items []*store.Item) (map[string][]string, error)
}

// Generator assembles meeting agendas from store contents.
type Generator struct {
	store    store.Store
	prompter Prompter
	logger   *slog.Logger

	lookbackDays int
	deadlineDays int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLookback overrides the item lookback used when a meeting has no
// predecessor.
func WithLookback(days int) GeneratorOption {
	return func(g *Generator) { g.lookbackDays = days }
}

// WithDeadlineWindow overrides how far ahead deadline items are pulled
// into the agenda.
func WithDeadlineWindow(days int) GeneratorOption {
	return func(g *Generator) { g.deadlineDays = days }
}

// NewGenerator creates a Generator. prompter may be nil, in which case
// the AI sections are skipped.
func NewGenerator(s store.Store, prompter Prompter, opts ...GeneratorOption) *Generator {
	g := &Generator{
		store:        s,
		prompter:     prompter,
		logger:       logging.WithService(slog.Default(), "agenda"),
		lookbackDays: fallbackLookbackDays,
		deadlineDays: deadlineWindowDays,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the agenda text for a meeting and returns it with
// the IDs of the items and projects it references.
func (g *Generator) Generate(ctx context.Context, meeting *store.Meeting, now time.Time) (string, []string, []string, error) {
	previous := g.previousMeeting(ctx, meeting)

	newItems, err := g.newItems(ctx, previous, now)
	if err != nil {
		return "", nil, nil, err
	}
	deadlineItems, err := g.deadlineItems(ctx, now)
	if err != nil {
		return "", nil, nil, err
	}
	projects, err := g.activeProjects(ctx)
	if err != nil {
		return "", nil, nil, err
	}

	g.logger.Info("gathered agenda material",
		slog.String(logging.KeyMeetingID, meeting.ID),
		slog.Int("new_items", len(newItems)),
		slog.Int("deadline_items", len(deadlineItems)),
		slog.Int("projects", len(projects)))

	var b strings.Builder
	g.writeHeader(&b, meeting)
	g.writeSummary(ctx, &b, meeting, newItems, deadlineItems, projects)
	b.WriteString(introduction)
	b.WriteString("\n\n---\n\n")
	g.writeFollowUps(&b, previous)
	g.writeProjects(&b, projects)
	g.writeItems(&b, newItems, deadlineItems)
	b.WriteString("## ANY OTHER BUSINESS\n\n_To be added during the meeting_\n\n")
	b.WriteString(g.discussionSection(ctx, newItems, deadlineItems))

	itemIDs := collectItemIDs(newItems, deadlineItems)
	projectIDs := make([]string, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}

	return b.String(), itemIDs, projectIDs, nil
}

// previousMeeting finds the most recent meeting before this one.
// Absence is normal for a first meeting, and query failure degrades
// the same way.
func (g *Generator) previousMeeting(ctx context.Context, meeting *store.Meeting) *store.Meeting {
	meetings, err := g.store.QueryMeetings(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropMeetingDate, store.CondBefore, meeting.Date),
		},
		Sorts: []store.Sort{{Property: store.PropMeetingDate, Descending: true}},
		Limit: 1,
	})
	if err != nil {
		g.logger.Warn("previous meeting lookup failed", logging.Err(err))
		return nil
	}
	if len(meetings) == 0 {
		return nil
	}
	return meetings[0]
}

// newItems returns items received since the previous meeting, or
// within the fallback lookback when there is none.
func (g *Generator) newItems(ctx context.Context, previous *store.Meeting, now time.Time) ([]*store.Item, error) {
	cutoff := now.AddDate(0, 0, -g.lookbackDays)
	if previous != nil {
		cutoff = previous.Date
	}

	items, err := g.store.QueryItems(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropDateReceived, store.CondOnOrAfter, cutoff),
		},
		Sorts: []store.Sort{{Property: store.PropDateReceived, Descending: true}},
		Limit: newItemLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("query new items: %w", err)
	}
	return items, nil
}

func (g *Generator) deadlineItems(ctx context.Context, now time.Time) ([]*store.Item, error) {
	items, err := g.store.QueryItems(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropConsultationDeadline, store.CondOnOrAfter, now),
			store.DateFilter(store.PropConsultationDeadline, store.CondOnOrBefore, now.AddDate(0, 0, g.deadlineDays)),
		},
		Sorts: []store.Sort{{Property: store.PropConsultationDeadline}},
		Limit: deadlineItemLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("query deadline items: %w", err)
	}
	return items, nil
}

func (g *Generator) activeProjects(ctx context.Context) ([]*store.Project, error) {
	projects, err := g.store.QueryProjects(ctx, store.Query{
		Filters: []store.Filter{
			store.SelectFilter(store.PropStatus, store.CondDoesNotEqual, string(store.ProjectCompleted)),
		},
		Sorts: []store.Sort{{Property: store.PropPriority, Descending: true}},
		Limit: projectLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("query active projects: %w", err)
	}
	return projects, nil
}

func (g *Generator) writeHeader(b *strings.Builder, meeting *store.Meeting) {
	fmt.Fprintf(b, "# %s\n", meeting.Title)
	fmt.Fprintf(b, "**Date:** %s\n", meeting.Date.Format("Monday, 02 January 2006 at 15:04"))
	if meeting.Format != "" {
		fmt.Fprintf(b, "**Format:** %s\n", meeting.Format)
	}
	if meeting.Location != "" {
		fmt.Fprintf(b, "**Location:** %s\n", meeting.Location)
	}
	if meeting.VideoLink != "" {
		fmt.Fprintf(b, "**Video Link:** %s\n", meeting.VideoLink)
	}
	b.WriteString("\n---\n\n")
}

// writeSummary adds the AI opening paragraph. Failure skips the
// section.
func (g *Generator) writeSummary(ctx context.Context, b *strings.Builder, meeting *store.Meeting, newItems, deadlineItems []*store.Item, projects []*store.Project) {
	if g.prompter == nil {
		return
	}

	top := newItems
	if len(top) > summaryTopItems {
		top = top[:summaryTopItems]
	}
	summary, err := g.prompter.AgendaSummary(ctx, meeting.Date.Format("2 January 2006"),
		len(newItems), len(deadlineItems), len(projects), top)
	if err != nil {
		g.logger.Warn("agenda summary generation failed", logging.Err(err))
		return
	}
	if summary != "" {
		fmt.Fprintf(b, "%s\n\n---\n\n", summary)
	}
}

func (g *Generator) writeFollowUps(b *strings.Builder, previous *store.Meeting) {
	if previous == nil {
		return
	}
	b.WriteString("## FOLLOW-UPS FROM LAST MEETING\n\n")
	fmt.Fprintf(b, "_Review actions from %s (%s):_\n\n", previous.Title, previous.Date.Format("2 January 2006"))
	if strings.TrimSpace(previous.Notes) != "" {
		b.WriteString(clip(previous.Notes, 500))
		b.WriteString("\n")
	} else {
		b.WriteString("_No minutes were recorded for the last meeting._\n")
	}
	b.WriteString("\n---\n\n")
}

func (g *Generator) writeProjects(b *strings.Builder, projects []*store.Project) {
	b.WriteString("## CURRENT CAMPAIGNS & PROJECTS\n\n")
	b.WriteString("_This is our main focus - what we're actively working on:_\n\n")

	if len(projects) == 0 {
		b.WriteString("_No ongoing projects - consider what we should be focusing on!_\n\n---\n\n")
		return
	}
	for _, p := range projects {
		fmt.Fprintf(b, "### %s\n\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(b, "%s\n\n", p.Description)
		}
		if p.CurrentStatus != "" {
			fmt.Fprintf(b, "**Status:** %s\n\n", p.CurrentStatus)
		}
		fmt.Fprintf(b, "**Project Status:** %s\n\n", p.Status)
	}
	b.WriteString("---\n\n")
}

func (g *Generator) writeItems(b *strings.Builder, newItems, deadlineItems []*store.Item) {
	b.WriteString("## RECENT ITEMS FOR DISCUSSION\n\n")
	b.WriteString("_Latest items received - review and delete items not needing discussion:_\n\n")

	if len(newItems) == 0 {
		b.WriteString("_No recent items_\n\n")
	}
	for _, item := range newItems {
		line := fmt.Sprintf("- **%s**", item.Title)
		if len(item.Locations) > 0 {
			locs := item.Locations
			if len(locs) > 2 {
				locs = locs[:2]
			}
			line += " • " + strings.Join(locs, ", ")
		}
		if item.ConsultationDeadline != nil {
			line += " • Deadline: " + item.ConsultationDeadline.Format("02 Jan 2006")
		}
		if !item.DateReceived.IsZero() {
			line += " • Received: " + item.DateReceived.Format("02 Jan")
		}
		b.WriteString(line + "\n")
		if item.Summary != "" {
			fmt.Fprintf(b, "  %s\n", clip(item.Summary, 200))
		}
		b.WriteString("\n")
	}

	if len(deadlineItems) > 0 {
		fmt.Fprintf(b, "### Approaching Deadlines (Next %d Days)\n\n", g.deadlineDays)
		for _, item := range deadlineItems {
			deadline := "TBD"
			if item.ConsultationDeadline != nil {
				deadline = item.ConsultationDeadline.Format("02 Jan 2006")
			}
			fmt.Fprintf(b, "- **%s** - Deadline: %s\n", item.Title, deadline)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
}

// discussionSection renders the AI discussion prompts, falling back to
// a fixed placeholder when the model is unavailable or answers badly.
func (g *Generator) discussionSection(ctx context.Context, newItems, deadlineItems []*store.Item) string {
	if g.prompter == nil {
		return promptsPlaceholder
	}

	items := append(append([]*store.Item{}, deadlineItems...), newItems...)
	if len(items) == 0 {
		return promptsPlaceholder
	}

	prompts, err := g.prompter.DiscussionPrompts(ctx, items)
	if err != nil {
		g.logger.Warn("discussion prompt generation failed", logging.Err(err))
		return promptsPlaceholder
	}
	if len(prompts) == 0 {
		return promptsPlaceholder
	}

	var b strings.Builder
	b.WriteString("## DISCUSSION PROMPTS\n\n")
	for _, item := range items {
		questions, ok := prompts[item.ID]
		if !ok || len(questions) == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s**\n", item.Title)
		for _, q := range questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func collectItemIDs(lists ...[]*store.Item) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, list := range lists {
		for _, item := range list {
			if !seen[item.ID] {
				seen[item.ID] = true
				ids = append(ids, item.ID)
			}
		}
	}
	return ids
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
