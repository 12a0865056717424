package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration, loaded from
// environment variables at startup. Required keys are validated by
// Validate; the process must not start if any of them are missing.
type Config struct {
	Gmail    GmailConfig    `mapstructure:",squash"`
	Claude   ClaudeConfig   `mapstructure:",squash"`
	Notion   NotionConfig   `mapstructure:",squash"`
	Geocode  GeocodeConfig  `mapstructure:",squash"`
	Drive    DriveConfig    `mapstructure:",squash"`
	SMTP     SMTPConfig     `mapstructure:",squash"`
	Poll     PollConfig     `mapstructure:",squash"`
	Matching MatchingConfig `mapstructure:",squash"`
	LogLevel string         `mapstructure:"log_level"`
	LogText  bool           `mapstructure:"log_text"`
	OpsAddr  string         `mapstructure:"ops_addr"`
}

// GmailConfig holds Gmail OAuth and polling settings.
type GmailConfig struct {
	ClientID       string `mapstructure:"gmail_client_id"`
	ClientSecret   string `mapstructure:"gmail_client_secret"`
	RefreshToken   string `mapstructure:"gmail_refresh_token"`
	Label          string `mapstructure:"gmail_label"`
	ProcessedLabel string `mapstructure:"gmail_processed_label"`
	MaxPerPoll     int64  `mapstructure:"gmail_max_per_poll"`
}

// ClaudeConfig holds Anthropic API settings.
type ClaudeConfig struct {
	APIKey string `mapstructure:"claude_api_key"`
	Model  string `mapstructure:"claude_model"`
}

// NotionConfig holds the Notion API key and the three database IDs.
type NotionConfig struct {
	APIKey       string `mapstructure:"notion_api_key"`
	ItemsDBID    string `mapstructure:"notion_items_db_id"`
	ProjectsDBID string `mapstructure:"notion_projects_db_id"`
	MeetingsDBID string `mapstructure:"notion_meetings_db_id"`
}

// GeocodeConfig holds the optional Google Maps geocoder settings.
type GeocodeConfig struct {
	APIKey string `mapstructure:"google_maps_api_key"`
	Region string `mapstructure:"geocode_region"`
	Bounds string `mapstructure:"geocode_bounds"`
	Area   string `mapstructure:"geocode_area"`
}

// DriveConfig holds the Google Drive attachment folder.
type DriveConfig struct {
	FolderID string `mapstructure:"google_drive_folder_id"`
}

// SMTPConfig holds the notification channel settings. Username and
// password may be empty, which disables outbound notifications.
type SMTPConfig struct {
	Host       string `mapstructure:"smtp_host"`
	Port       int    `mapstructure:"smtp_port"`
	Username   string `mapstructure:"smtp_username"`
	Password   string `mapstructure:"smtp_password"`
	Recipients string `mapstructure:"alert_email"`
}

// PollConfig holds timing for both polling loops and the health alert.
type PollConfig struct {
	EmailInterval     time.Duration `mapstructure:"email_poll_interval"`
	MeetingInterval   time.Duration `mapstructure:"meeting_check_interval"`
	StaleActivityWarn time.Duration `mapstructure:"stale_activity_window"`
}

// MatchingConfig holds the tunable constants of the dedup and linking
// logic. These are deployment knobs, not business rules.
type MatchingConfig struct {
	SubjectSimilarity  float64 `mapstructure:"dedup_subject_similarity"`
	ContentSimilarity  float64 `mapstructure:"dedup_content_similarity"`
	LinkSimilarity     float64 `mapstructure:"link_text_similarity"`
	LinkWindowDays     int     `mapstructure:"link_window_days"`
	PromotionThreshold int     `mapstructure:"project_promotion_threshold"`
	FallbackLookback   int     `mapstructure:"agenda_fallback_lookback_days"`
	DeadlineWindowDays int     `mapstructure:"agenda_deadline_window_days"`
}

// Load reads configuration from the environment, applies defaults, and
// validates required keys. It returns an error suitable for printing to
// the operator verbatim.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	setDefaults(v)

	// AutomaticEnv alone does not surface env-only keys to Unmarshal;
	// bind each known key explicitly.
	for _, key := range allKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gmail_label", "Lambeth Cycling Projects")
	v.SetDefault("gmail_processed_label", "processed")
	v.SetDefault("gmail_max_per_poll", 50)
	v.SetDefault("claude_model", "claude-sonnet-4-20250514")
	v.SetDefault("geocode_region", "uk")
	v.SetDefault("geocode_bounds", "51.4,-0.2|51.5,-0.05")
	v.SetDefault("geocode_area", "Lambeth, London, UK")
	v.SetDefault("smtp_host", "smtp.gmail.com")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("email_poll_interval", "5m")
	v.SetDefault("meeting_check_interval", "1h")
	v.SetDefault("stale_activity_window", "168h")
	v.SetDefault("dedup_subject_similarity", 0.95)
	v.SetDefault("dedup_content_similarity", 0.90)
	v.SetDefault("link_text_similarity", 0.55)
	v.SetDefault("link_window_days", 90)
	v.SetDefault("project_promotion_threshold", 3)
	v.SetDefault("agenda_fallback_lookback_days", 60)
	v.SetDefault("agenda_deadline_window_days", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_text", false)
	v.SetDefault("ops_addr", ":9090")
}

var allKeys = []string{
	"gmail_client_id", "gmail_client_secret", "gmail_refresh_token",
	"gmail_label", "gmail_processed_label", "gmail_max_per_poll",
	"claude_api_key", "claude_model",
	"notion_api_key", "notion_items_db_id", "notion_projects_db_id", "notion_meetings_db_id",
	"google_maps_api_key", "geocode_region", "geocode_bounds", "geocode_area",
	"google_drive_folder_id",
	"smtp_host", "smtp_port", "smtp_username", "smtp_password", "alert_email",
	"email_poll_interval", "meeting_check_interval", "stale_activity_window",
	"dedup_subject_similarity", "dedup_content_similarity",
	"link_text_similarity", "link_window_days", "project_promotion_threshold",
	"agenda_fallback_lookback_days", "agenda_deadline_window_days",
	"log_level", "log_text", "ops_addr",
}

// Validate checks that all required keys are present and all numeric
// knobs are in range. It reports every problem at once rather than the
// first one found.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"GMAIL_CLIENT_ID", c.Gmail.ClientID},
		{"GMAIL_CLIENT_SECRET", c.Gmail.ClientSecret},
		{"GMAIL_REFRESH_TOKEN", c.Gmail.RefreshToken},
		{"CLAUDE_API_KEY", c.Claude.APIKey},
		{"NOTION_API_KEY", c.Notion.APIKey},
		{"NOTION_ITEMS_DB_ID", c.Notion.ItemsDBID},
		{"NOTION_PROJECTS_DB_ID", c.Notion.ProjectsDBID},
		{"NOTION_MEETINGS_DB_ID", c.Notion.MeetingsDBID},
		{"GOOGLE_DRIVE_FOLDER_ID", c.Drive.FolderID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	var invalid []string
	if c.Poll.EmailInterval <= 0 {
		invalid = append(invalid, "EMAIL_POLL_INTERVAL must be positive")
	}
	if c.Poll.MeetingInterval <= 0 {
		invalid = append(invalid, "MEETING_CHECK_INTERVAL must be positive")
	}
	for _, sim := range []struct {
		name  string
		value float64
	}{
		{"DEDUP_SUBJECT_SIMILARITY", c.Matching.SubjectSimilarity},
		{"DEDUP_CONTENT_SIMILARITY", c.Matching.ContentSimilarity},
		{"LINK_TEXT_SIMILARITY", c.Matching.LinkSimilarity},
	} {
		if sim.value <= 0 || sim.value > 1 {
			invalid = append(invalid, sim.name+" must be in (0, 1]")
		}
	}
	if c.Matching.PromotionThreshold < 2 {
		invalid = append(invalid, "PROJECT_PROMOTION_THRESHOLD must be at least 2")
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, "; "))
	}

	return nil
}

// Recipients splits the comma-separated alert address list.
func (c *Config) Recipients() []string {
	if strings.TrimSpace(c.SMTP.Recipients) == "" {
		return nil
	}
	parts := strings.Split(c.SMTP.Recipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if addr := strings.TrimSpace(p); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
