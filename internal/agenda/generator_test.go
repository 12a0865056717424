package agenda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambethcyclists/mailroom/internal/store"
)

type fakePrompter struct {
	summary    string
	summaryErr error
	prompts    map[string][]string
	promptsErr error
}

func (f *fakePrompter) AgendaSummary(_ context.Context, _ string, _, _, _ int, _ []*store.Item) (string, error) {
	return f.summary, f.summaryErr
}

func (f *fakePrompter) DiscussionPrompts(_ context.Context, _ []*store.Item) (map[string][]string, error) {
	return f.prompts, f.promptsErr
}

func seedItem(t *testing.T, s *store.MemoryStore, title string, received time.Time, deadline *time.Time) *store.Item {
	t.Helper()
	item, err := s.CreateItem(context.Background(), &store.Item{
		Title:                title,
		Summary:              "Summary of " + title,
		DateReceived:         received,
		ConsultationDeadline: deadline,
	})
	require.NoError(t, err)
	return item
}

func TestGenerateAssemblesAgenda(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	deadline := now.AddDate(0, 0, 10)
	recent := seedItem(t, s, "Cycle lane consultation", now.Add(-48*time.Hour), &deadline)
	older := seedItem(t, s, "Junction complaint", now.Add(-10*24*time.Hour), nil)

	active := s.AddProject(&store.Project{
		Name:          "Brixton Hill",
		Description:   "Safer cycling on the hill.",
		Status:        store.ProjectActive,
		CurrentStatus: "Awaiting council response",
	})
	s.AddProject(&store.Project{Name: "Finished scheme", Status: store.ProjectCompleted})

	meeting := s.AddMeeting(&store.Meeting{
		Title:    "March Committee Meeting",
		Date:     now.Add(36 * time.Hour),
		Format:   "Hybrid",
		Location: "Brixton Library",
	})

	prompter := &fakePrompter{
		summary: "A busy month with two consultations open.",
		prompts: map[string][]string{
			recent.ID: {"Who will draft our response?"},
		},
	}

	agenda, itemIDs, projectIDs, err := NewGenerator(s, prompter).Generate(context.Background(), meeting, now)
	require.NoError(t, err)

	assert.Contains(t, agenda, "# March Committee Meeting")
	assert.Contains(t, agenda, "**Format:** Hybrid")
	assert.Contains(t, agenda, "A busy month with two consultations open.")
	assert.Contains(t, agenda, "INTRODUCTION")
	assert.Contains(t, agenda, "### Brixton Hill")
	assert.Contains(t, agenda, "Awaiting council response")
	assert.NotContains(t, agenda, "Finished scheme")
	assert.Contains(t, agenda, "**Cycle lane consultation**")
	assert.Contains(t, agenda, "Approaching Deadlines (Next 30 Days)")
	assert.Contains(t, agenda, "ANY OTHER BUSINESS")
	assert.Contains(t, agenda, "Who will draft our response?")

	// The deadline item is also a recent item; it must appear once.
	assert.ElementsMatch(t, []string{recent.ID, older.ID}, itemIDs)
	assert.Equal(t, []string{active.ID}, projectIDs)
}

func TestGenerateDeadlineHeadingTracksWindow(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	deadline := now.AddDate(0, 0, 40)
	seedItem(t, s, "Bridge closure consultation", now.Add(-time.Hour), &deadline)
	meeting := s.AddMeeting(&store.Meeting{Title: "Meeting", Date: now.Add(36 * time.Hour)})

	agenda, _, _, err := NewGenerator(s, nil, WithDeadlineWindow(45)).Generate(context.Background(), meeting, now)
	require.NoError(t, err)

	assert.Contains(t, agenda, "### Approaching Deadlines (Next 45 Days)")
	assert.NotContains(t, agenda, "Next 30 Days")
}

func TestGeneratePrompterFailureDegrades(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	seedItem(t, s, "Some consultation", now.Add(-time.Hour), nil)
	meeting := s.AddMeeting(&store.Meeting{Title: "Meeting", Date: now.Add(36 * time.Hour)})

	prompter := &fakePrompter{
		summaryErr: errors.New("model overloaded"),
		promptsErr: errors.New("model overloaded"),
	}

	agenda, _, _, err := NewGenerator(s, prompter).Generate(context.Background(), meeting, now)
	require.NoError(t, err)
	assert.Contains(t, agenda, "_Discussion prompts will be added during the meeting_")
	assert.NotContains(t, agenda, "model overloaded")
}

func TestGenerateWithoutPrompter(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	meeting := s.AddMeeting(&store.Meeting{Title: "Meeting", Date: now.Add(36 * time.Hour)})

	agenda, itemIDs, projectIDs, err := NewGenerator(s, nil).Generate(context.Background(), meeting, now)
	require.NoError(t, err)
	assert.Contains(t, agenda, "_Discussion prompts will be added during the meeting_")
	assert.Empty(t, itemIDs)
	assert.Empty(t, projectIDs)
	assert.Contains(t, agenda, "_No recent items_")
	assert.Contains(t, agenda, "_No ongoing projects - consider what we should be focusing on!_")
}

func TestGenerateCutsOffAtPreviousMeeting(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	s.AddMeeting(&store.Meeting{
		Title: "February Committee Meeting",
		Date:  now.AddDate(0, 0, -30),
		Notes: "Agreed to respond to the LTN consultation.",
	})
	meeting := s.AddMeeting(&store.Meeting{Title: "March Committee Meeting", Date: now.Add(36 * time.Hour)})

	before := seedItem(t, s, "Stale item", now.AddDate(0, 0, -40), nil)
	after := seedItem(t, s, "Fresh item", now.AddDate(0, 0, -5), nil)

	agenda, itemIDs, _, err := NewGenerator(s, nil).Generate(context.Background(), meeting, now)
	require.NoError(t, err)

	assert.Contains(t, agenda, "FOLLOW-UPS FROM LAST MEETING")
	assert.Contains(t, agenda, "February Committee Meeting")
	assert.Contains(t, agenda, "Agreed to respond to the LTN consultation.")
	assert.Contains(t, itemIDs, after.ID)
	assert.NotContains(t, itemIDs, before.ID)
}

func TestGenerateFallbackLookbackWithoutPreviousMeeting(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	meeting := s.AddMeeting(&store.Meeting{Title: "First Meeting", Date: now.Add(36 * time.Hour)})

	ancient := seedItem(t, s, "Ancient item", now.AddDate(0, 0, -90), nil)
	recent := seedItem(t, s, "Recent item", now.AddDate(0, 0, -30), nil)

	agenda, itemIDs, _, err := NewGenerator(s, nil).Generate(context.Background(), meeting, now)
	require.NoError(t, err)

	assert.NotContains(t, agenda, "FOLLOW-UPS FROM LAST MEETING")
	assert.Contains(t, itemIDs, recent.ID)
	assert.NotContains(t, itemIDs, ancient.ID)
}
