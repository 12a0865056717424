package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/lambethcyclists/mailroom/internal/apierr"
	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/store"
)

const (
	baseURL    = "https://api.notion.com/v1"
	apiVersion = "2022-06-28"
	maxTries   = 4
)

// Client talks to the Notion REST API and implements store.Store over
// three databases: Items, Projects, and Meetings.
type Client struct {
	apiKey       string
	itemsDBID    string
	projectsDBID string
	meetingsDBID string
	baseURL      string
	httpClient   *http.Client
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a Notion client for the three database IDs.
func NewClient(apiKey, itemsDBID, projectsDBID, meetingsDBID string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		itemsDBID:    itemsDBID,
		projectsDBID: projectsDBID,
		meetingsDBID: meetingsDBID,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logging.WithService(slog.Default(), "notion"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ store.Store = (*Client)(nil)

// do performs one Notion API request with bounded retries for transient
// failures. Auth and client errors are permanent and surface at once.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	operation := func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Notion-Version", apiVersion)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err // transport errors retry
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			apiErr := apierr.New("notion", resp.StatusCode, truncate(string(data), 200))
			if apierr.IsTransient(apiErr) {
				if resp.StatusCode == http.StatusTooManyRequests {
					if d := retryAfter(resp); d > 0 {
						return nil, backoff.RetryAfter(int(d.Seconds()))
					}
				}
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return data, nil
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries))
	if err != nil {
		return nil, fmt.Errorf("notion %s %s: %w", method, path, err)
	}
	return data, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CreateItem implements store.ItemStore.
func (c *Client) CreateItem(ctx context.Context, item *store.Item) (*store.Item, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": c.itemsDBID},
		"properties": buildItemProperties(item),
	}
	data, err := c.do(ctx, http.MethodPost, "/pages", payload)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	var pg page
	if err := json.Unmarshal(data, &pg); err != nil {
		return nil, fmt.Errorf("parse create item response: %w", err)
	}
	created := parseItem(&pg)
	c.logger.Info("created item", logging.ItemID(created.ID), slog.String("title", created.Title))
	return created, nil
}

// FindItemByMessageID implements store.ItemStore.
func (c *Client) FindItemByMessageID(ctx context.Context, messageID string) (*store.Item, error) {
	items, err := c.QueryItems(ctx, store.Query{
		Filters: []store.Filter{{
			Property:  store.PropMessageID,
			Type:      "rich_text",
			Condition: store.CondEquals,
			Value:     messageID,
		}},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, store.ErrNotFound
	}
	return items[0], nil
}

// QueryItems implements store.ItemStore.
func (c *Client) QueryItems(ctx context.Context, q store.Query) ([]*store.Item, error) {
	pages, err := c.queryDatabase(ctx, c.itemsDBID, q)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	items := make([]*store.Item, 0, len(pages))
	for i := range pages {
		items = append(items, parseItem(&pages[i]))
	}
	return items, nil
}

// AddItemRelations implements store.ItemStore. Notion relation updates
// replace the whole list, so the current relations are read first and
// merged; existing links are preserved and never duplicated.
func (c *Client) AddItemRelations(ctx context.Context, itemID string, relatedIDs []string) error {
	pg, err := c.getPage(ctx, itemID)
	if err != nil {
		return fmt.Errorf("add item relations: %w", err)
	}
	current := pg.relationIDs(store.PropRelatedItems)
	merged := mergeIDs(current, relatedIDs)
	if len(merged) == len(current) {
		return nil
	}

	payload := map[string]any{
		"properties": map[string]any{
			store.PropRelatedItems: relationProp(merged),
		},
	}
	if _, err := c.do(ctx, http.MethodPatch, "/pages/"+itemID, payload); err != nil {
		return fmt.Errorf("add item relations: %w", err)
	}
	return nil
}

// SetItemProject implements store.ItemStore.
func (c *Client) SetItemProject(ctx context.Context, itemID, projectID string) error {
	payload := map[string]any{
		"properties": map[string]any{
			store.PropProject: relationProp([]string{projectID}),
		},
	}
	if _, err := c.do(ctx, http.MethodPatch, "/pages/"+itemID, payload); err != nil {
		return fmt.Errorf("set item project: %w", err)
	}
	return nil
}

// UpdateItemProcessing implements store.ItemStore.
func (c *Client) UpdateItemProcessing(ctx context.Context, itemID string, status store.ProcessingStatus) error {
	payload := map[string]any{
		"properties": map[string]any{
			store.PropProcessingStatus: selectProp(string(status)),
		},
	}
	if _, err := c.do(ctx, http.MethodPatch, "/pages/"+itemID, payload); err != nil {
		return fmt.Errorf("update item processing: %w", err)
	}
	return nil
}

// CreateProject implements store.ProjectStore.
func (c *Client) CreateProject(ctx context.Context, project *store.Project) (*store.Project, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": c.projectsDBID},
		"properties": buildProjectProperties(project),
	}
	data, err := c.do(ctx, http.MethodPost, "/pages", payload)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	var pg page
	if err := json.Unmarshal(data, &pg); err != nil {
		return nil, fmt.Errorf("parse create project response: %w", err)
	}
	created := parseProject(&pg)
	c.logger.Info("created project", slog.String(logging.KeyProjectID, created.ID), slog.String("name", created.Name))
	return created, nil
}

// QueryProjects implements store.ProjectStore.
func (c *Client) QueryProjects(ctx context.Context, q store.Query) ([]*store.Project, error) {
	pages, err := c.queryDatabase(ctx, c.projectsDBID, q)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	projects := make([]*store.Project, 0, len(pages))
	for i := range pages {
		projects = append(projects, parseProject(&pages[i]))
	}
	return projects, nil
}

// AddProjectItems implements store.ProjectStore.
func (c *Client) AddProjectItems(ctx context.Context, projectID string, itemIDs []string) error {
	pg, err := c.getPage(ctx, projectID)
	if err != nil {
		return fmt.Errorf("add project items: %w", err)
	}
	current := pg.relationIDs(store.PropProjectItems)
	merged := mergeIDs(current, itemIDs)
	if len(merged) == len(current) {
		return nil
	}

	payload := map[string]any{
		"properties": map[string]any{
			store.PropProjectItems: relationProp(merged),
		},
	}
	if _, err := c.do(ctx, http.MethodPatch, "/pages/"+projectID, payload); err != nil {
		return fmt.Errorf("add project items: %w", err)
	}
	return nil
}

// QueryMeetings implements store.MeetingStore.
func (c *Client) QueryMeetings(ctx context.Context, q store.Query) ([]*store.Meeting, error) {
	pages, err := c.queryDatabase(ctx, c.meetingsDBID, q)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	meetings := make([]*store.Meeting, 0, len(pages))
	for i := range pages {
		meetings = append(meetings, parseMeeting(&pages[i]))
	}
	return meetings, nil
}

// UpdateMeetingAgenda implements store.MeetingStore. The relation lists
// are merged with whatever is already on the page so that links added by
// hand survive a regenerated agenda.
func (c *Client) UpdateMeetingAgenda(ctx context.Context, meetingID, agenda string, itemIDs, projectIDs []string, generatedAt time.Time) error {
	pg, err := c.getPage(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("update meeting agenda: %w", err)
	}
	mergedItems := mergeIDs(pg.relationIDs(store.PropItemsToDiscuss), itemIDs)
	mergedProjects := mergeIDs(pg.relationIDs(store.PropProjectsToReview), projectIDs)

	payload := map[string]any{
		"properties": map[string]any{
			store.PropGeneratedAgenda:   richTextProp(agenda),
			store.PropItemsToDiscuss:    relationProp(mergedItems),
			store.PropProjectsToReview:  relationProp(mergedProjects),
			store.PropAgendaStatus:      selectProp(string(store.AgendaGenerated)),
			store.PropAgendaGeneratedAt: dateProp(generatedAt),
		},
	}
	if _, err := c.do(ctx, http.MethodPatch, "/pages/"+meetingID, payload); err != nil {
		return fmt.Errorf("update meeting agenda: %w", err)
	}
	c.logger.Info("agenda written", logging.MeetingID(meetingID))
	return nil
}

// UpdateMeetingReminders implements store.MeetingStore.
func (c *Client) UpdateMeetingReminders(ctx context.Context, meetingID string, state store.ReminderState) error {
	payload := map[string]any{
		"properties": map[string]any{
			store.PropLastNagDate:   richTextProp(state.LastNagDate),
			store.PropDayBeforeSent: checkboxProp(state.DayBeforeSent),
			store.PropMinutesSent:   checkboxProp(state.MinutesReminderSent),
		},
	}
	if _, err := c.do(ctx, http.MethodPatch, "/pages/"+meetingID, payload); err != nil {
		return fmt.Errorf("update meeting reminders: %w", err)
	}
	return nil
}

func (c *Client) getPage(ctx context.Context, pageID string) (*page, error) {
	data, err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil)
	if err != nil {
		return nil, err
	}
	var pg page
	if err := json.Unmarshal(data, &pg); err != nil {
		return nil, fmt.Errorf("parse page %s: %w", pageID, err)
	}
	return &pg, nil
}

func (c *Client) queryDatabase(ctx context.Context, dbID string, q store.Query) ([]page, error) {
	payload := buildQuery(q)

	var all []page
	for {
		data, err := c.do(ctx, http.MethodPost, "/databases/"+dbID+"/query", payload)
		if err != nil {
			return nil, err
		}
		var res queryResponse
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("parse query response: %w", err)
		}
		all = append(all, res.Results...)
		if q.Limit > 0 && len(all) >= q.Limit {
			return all[:q.Limit], nil
		}
		if !res.HasMore || res.NextCursor == "" {
			return all, nil
		}
		payload["start_cursor"] = res.NextCursor
	}
}

func mergeIDs(current, add []string) []string {
	seen := make(map[string]bool, len(current))
	merged := make([]string, 0, len(current)+len(add))
	for _, id := range current {
		if !seen[id] {
			merged = append(merged, id)
			seen[id] = true
		}
	}
	for _, id := range add {
		if id != "" && !seen[id] {
			merged = append(merged, id)
			seen[id] = true
		}
	}
	return merged
}
