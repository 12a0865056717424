package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Gmail: GmailConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RefreshToken: "token",
			Label:        "Lambeth Cycling Projects",
		},
		Claude: ClaudeConfig{APIKey: "sk-test"},
		Notion: NotionConfig{
			APIKey:       "ntn-test",
			ItemsDBID:    "items-db",
			ProjectsDBID: "projects-db",
			MeetingsDBID: "meetings-db",
		},
		Drive: DriveConfig{FolderID: "folder"},
		Poll: PollConfig{
			EmailInterval:   5 * time.Minute,
			MeetingInterval: time.Hour,
		},
		Matching: MatchingConfig{
			SubjectSimilarity:  0.95,
			ContentSimilarity:  0.90,
			LinkSimilarity:     0.55,
			LinkWindowDays:     90,
			PromotionThreshold: 3,
		},
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateMissingKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Notion.APIKey = ""
	cfg.Gmail.RefreshToken = "  "

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTION_API_KEY")
	assert.Contains(t, err.Error(), "GMAIL_REFRESH_TOKEN")
}

func TestValidateInvalidIntervals(t *testing.T) {
	cfg := validConfig()
	cfg.Poll.EmailInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_POLL_INTERVAL")
}

func TestValidateSimilarityRange(t *testing.T) {
	cfg := validConfig()
	cfg.Matching.LinkSimilarity = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINK_TEXT_SIMILARITY")
}

func TestValidatePromotionThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Matching.PromotionThreshold = 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROJECT_PROMOTION_THRESHOLD")
}

func TestRecipients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "chair@example.org", want: []string{"chair@example.org"}},
		{name: "list with spaces", raw: "a@x.org, b@y.org ,c@z.org", want: []string{"a@x.org", "b@y.org", "c@z.org"}},
		{name: "trailing comma", raw: "a@x.org,", want: []string{"a@x.org"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.SMTP.Recipients = tt.raw
			assert.Equal(t, tt.want, cfg.Recipients())
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GMAIL_CLIENT_ID", "client")
	t.Setenv("GMAIL_CLIENT_SECRET", "secret")
	t.Setenv("GMAIL_REFRESH_TOKEN", "token")
	t.Setenv("CLAUDE_API_KEY", "sk-test")
	t.Setenv("NOTION_API_KEY", "ntn-test")
	t.Setenv("NOTION_ITEMS_DB_ID", "items")
	t.Setenv("NOTION_PROJECTS_DB_ID", "projects")
	t.Setenv("NOTION_MEETINGS_DB_ID", "meetings")
	t.Setenv("GOOGLE_DRIVE_FOLDER_ID", "folder")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Lambeth Cycling Projects", cfg.Gmail.Label)
	assert.Equal(t, "processed", cfg.Gmail.ProcessedLabel)
	assert.Equal(t, 5*time.Minute, cfg.Poll.EmailInterval)
	assert.Equal(t, time.Hour, cfg.Poll.MeetingInterval)
	assert.Equal(t, 0.95, cfg.Matching.SubjectSimilarity)
	assert.Equal(t, 3, cfg.Matching.PromotionThreshold)
	assert.Equal(t, ":9090", cfg.OpsAddr)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("GMAIL_CLIENT_ID", "client")
	t.Setenv("GMAIL_CLIENT_SECRET", "")
	t.Setenv("GMAIL_REFRESH_TOKEN", "")
	t.Setenv("CLAUDE_API_KEY", "")
	t.Setenv("NOTION_API_KEY", "")
	t.Setenv("NOTION_ITEMS_DB_ID", "")
	t.Setenv("NOTION_PROJECTS_DB_ID", "")
	t.Setenv("NOTION_MEETINGS_DB_ID", "")
	t.Setenv("GOOGLE_DRIVE_FOLDER_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration")
}

func TestLoadOverridesIntervals(t *testing.T) {
	t.Setenv("GMAIL_CLIENT_ID", "client")
	t.Setenv("GMAIL_CLIENT_SECRET", "secret")
	t.Setenv("GMAIL_REFRESH_TOKEN", "token")
	t.Setenv("CLAUDE_API_KEY", "sk-test")
	t.Setenv("NOTION_API_KEY", "ntn-test")
	t.Setenv("NOTION_ITEMS_DB_ID", "items")
	t.Setenv("NOTION_PROJECTS_DB_ID", "projects")
	t.Setenv("NOTION_MEETINGS_DB_ID", "meetings")
	t.Setenv("GOOGLE_DRIVE_FOLDER_ID", "folder")
	t.Setenv("EMAIL_POLL_INTERVAL", "30s")
	t.Setenv("MEETING_CHECK_INTERVAL", "10m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Poll.EmailInterval)
	assert.Equal(t, 10*time.Minute, cfg.Poll.MeetingInterval)
}
