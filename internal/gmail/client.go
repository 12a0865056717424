package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/lambethcyclists/mailroom/internal/logging"
)

// Client wraps the Gmail Users service for the watched inbox.
type Client struct {
	svc    *gmail.UsersService
	logger *slog.Logger

	watchLabel     string
	processedLabel string
	maxPerPoll     int64

	// label name -> id, resolved lazily
	labelIDs map[string]string
}

// NewClient builds a Gmail client from an OAuth-authenticated HTTP
// client. watchLabel is the label incoming mail is filtered into;
// processedLabel marks messages the automation has finished with.
func NewClient(ctx context.Context, hc *http.Client, watchLabel, processedLabel string, maxPerPoll int64) (*Client, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if maxPerPoll <= 0 {
		maxPerPoll = 50
	}
	return &Client{
		svc:            svc.Users,
		logger:         logging.WithService(slog.Default(), "gmail"),
		watchLabel:     watchLabel,
		processedLabel: processedLabel,
		maxPerPoll:     maxPerPoll,
		labelIDs:       make(map[string]string),
	}, nil
}

// PollQuery is the search used each cycle: everything under the watch
// label that has not been marked processed yet.
func (c *Client) PollQuery() string {
	return fmt.Sprintf("label:%s -label:%s", quoteLabel(c.watchLabel), quoteLabel(c.processedLabel))
}

func quoteLabel(name string) string {
	if strings.ContainsAny(name, " \t") {
		return `"` + name + `"`
	}
	return name
}

// Poll lists unprocessed message IDs under the watch label, oldest
// first so earlier mail wins dedup races.
func (c *Client) Poll(ctx context.Context) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		remaining := c.maxPerPoll - int64(len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > 100 {
			pageSize = 100
		}

		req := c.svc.Messages.List("me").Q(c.PollQuery()).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	// The API returns newest first; reverse so processing order
	// follows arrival order.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	c.logger.Debug("polled inbox", slog.Int("messages", len(ids)))
	return ids, nil
}

// GetEmail fetches and decodes one message, including all attachment
// content.
func (c *Client) GetEmail(ctx context.Context, messageID string) (*Email, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	email := &Email{
		MessageID: msg.Id,
		ThreadID:  msg.ThreadId,
		Subject:   headerValue(msg.Payload, "Subject"),
		Sender:    headerValue(msg.Payload, "From"),
		Date:      time.UnixMilli(msg.InternalDate).UTC(),
	}
	email.SenderEmail = extractAddress(email.Sender)
	email.Body = extractBody(msg.Payload)

	for _, info := range listAttachmentParts(msg.Payload) {
		data, err := c.getAttachment(ctx, messageID, info.attachmentID, info.size)
		if err != nil {
			c.logger.Warn("skipping attachment",
				logging.MessageID(messageID),
				slog.String("filename", info.filename),
				logging.Err(err))
			continue
		}
		email.Attachments = append(email.Attachments, Attachment{
			Filename: sanitizeFilename(info.filename),
			MimeType: info.mimeType,
			Size:     info.size,
			Data:     data,
		})
	}

	return email, nil
}

func (c *Client) getAttachment(ctx context.Context, messageID, attachmentID string, size int64) ([]byte, error) {
	if size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum %d", size, MaxAttachmentSize)
	}
	att, err := c.svc.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return decodeBase64(att.Data)
}

// MarkProcessed labels a message as handled so the next poll skips it.
// The processed label is created on first use if it does not exist.
func (c *Client) MarkProcessed(ctx context.Context, messageID string) error {
	labelID, err := c.ensureLabel(ctx, c.processedLabel)
	if err != nil {
		return err
	}
	_, err = c.svc.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to label message %s: %w", messageID, err)
	}
	return nil
}

func (c *Client) ensureLabel(ctx context.Context, name string) (string, error) {
	if id, ok := c.labelIDs[name]; ok {
		return id, nil
	}

	res, err := c.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}
	for _, l := range res.Labels {
		if strings.EqualFold(l.Name, name) {
			c.labelIDs[name] = l.Id
			return l.Id, nil
		}
	}

	created, err := c.svc.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}
	c.labelIDs[name] = created.Id
	return created.Id, nil
}

func headerValue(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractAddress pulls the bare, lowercased address out of a From
// header. Unparseable headers fall back to the raw value.
func extractAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(from))
	}
	return strings.ToLower(addr.Address)
}

// extractBody returns the message body, preferring text/plain and
// falling back to tag-stripped text/html.
func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if body := findBody(payload, "text/plain"); body != "" {
		return body
	}
	if body := findBody(payload, "text/html"); body != "" {
		return stripHTML(body)
	}
	return ""
}

func findBody(payload *gmail.MessagePart, mimeType string) string {
	var body string
	walkParts(payload, func(part *gmail.MessagePart) {
		if body != "" || part.MimeType != mimeType {
			return
		}
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		if decoded, err := decodeBase64(part.Body.Data); err == nil {
			body = string(decoded)
		}
	})
	return body
}

type attachmentPart struct {
	attachmentID string
	filename     string
	mimeType     string
	size         int64
}

func listAttachmentParts(payload *gmail.MessagePart) []attachmentPart {
	var parts []attachmentPart
	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			parts = append(parts, attachmentPart{
				attachmentID: part.Body.AttachmentId,
				filename:     part.Filename,
				mimeType:     part.MimeType,
				size:         part.Body.Size,
			})
		}
	})
	return parts
}

func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// decodeBase64 handles Gmail's base64url encoding, falling back to
// standard base64 for the occasional non-conforming message.
func decodeBase64(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message data: %w", err)
	}
	return decoded, nil
}

// stripHTML reduces an HTML body to readable text. Script and style
// contents are dropped entirely, block tags become newlines.
func stripHTML(html string) string {
	var b strings.Builder
	inTag := false
	skipDepth := 0
	lower := strings.ToLower(html)

	for i := 0; i < len(html); i++ {
		ch := html[i]
		switch {
		case ch == '<':
			inTag = true
			rest := lower[i:]
			if strings.HasPrefix(rest, "<script") || strings.HasPrefix(rest, "<style") {
				skipDepth++
			} else if strings.HasPrefix(rest, "</script") || strings.HasPrefix(rest, "</style") {
				if skipDepth > 0 {
					skipDepth--
				}
			} else if skipDepth == 0 {
				switch {
				case strings.HasPrefix(rest, "<br"), strings.HasPrefix(rest, "<p"),
					strings.HasPrefix(rest, "</p"), strings.HasPrefix(rest, "<div"),
					strings.HasPrefix(rest, "</div"), strings.HasPrefix(rest, "<tr"),
					strings.HasPrefix(rest, "<li"):
					b.WriteByte('\n')
				}
			}
		case ch == '>':
			inTag = false
		case !inTag && skipDepth == 0:
			b.WriteByte(ch)
		}
	}

	text := b.String()
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&quot;", `"`)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
