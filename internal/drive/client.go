package drive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/lambethcyclists/mailroom/internal/gmail"
	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/store"
)

// Client wraps the Google Drive API for attachment archival.
type Client struct {
	service  *drive.Service
	folderID string
	logger   *slog.Logger
}

// NewClient builds a Drive client from an OAuth-authenticated HTTP
// client. folderID is the Drive folder uploads land in; empty means
// the root of My Drive.
func NewClient(ctx context.Context, hc *http.Client, folderID string) (*Client, error) {
	service, err := drive.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{
		service:  service,
		folderID: folderID,
		logger:   logging.WithService(slog.Default(), "drive"),
	}, nil
}

// UploadAttachment stores one attachment and returns a link anyone
// with the URL can open, for embedding in records.
func (c *Client) UploadAttachment(ctx context.Context, att gmail.Attachment) (store.AttachmentRef, error) {
	file := &drive.File{
		Name:     att.Filename,
		MimeType: att.MimeType,
	}
	if c.folderID != "" {
		file.Parents = []string{c.folderID}
	}

	uploaded, err := c.service.Files.Create(file).
		Context(ctx).
		Media(bytes.NewReader(att.Data), googleapi.ContentType(att.MimeType)).
		Fields("id, name, webViewLink").
		Do()
	if err != nil {
		return store.AttachmentRef{}, fmt.Errorf("failed to upload %s: %w", att.Filename, err)
	}

	// Anyone-with-link read access so the Notion records stay
	// viewable without per-file sharing.
	_, err = c.service.Permissions.Create(uploaded.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return store.AttachmentRef{}, fmt.Errorf("failed to share %s: %w", att.Filename, err)
	}

	c.logger.Debug("uploaded attachment",
		slog.String("filename", att.Filename),
		slog.String("file_id", uploaded.Id))

	return store.AttachmentRef{
		Filename: att.Filename,
		URL:      uploaded.WebViewLink,
	}, nil
}

// UploadAll uploads every attachment on an email. A failed upload is
// logged and skipped so one bad file does not block the record.
func (c *Client) UploadAll(ctx context.Context, messageID string, atts []gmail.Attachment) []store.AttachmentRef {
	refs := make([]store.AttachmentRef, 0, len(atts))
	for _, att := range atts {
		ref, err := c.UploadAttachment(ctx, att)
		if err != nil {
			c.logger.Warn("attachment upload failed",
				logging.MessageID(messageID),
				slog.String("filename", att.Filename),
				logging.Err(err))
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// EnsureFolder resolves a folder by name under the configured parent,
// creating it if missing. Used for one-time setup.
func (c *Client) EnsureFolder(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.folder' and trashed = false", name)
	res, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id, name)").
		PageSize(1).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up folder %q: %w", name, err)
	}
	if len(res.Files) > 0 {
		return res.Files[0].Id, nil
	}

	created, err := c.service.Files.Create(&drive.File{
		Name:        name,
		MimeType:    "application/vnd.google-apps.folder",
		CreatedTime: time.Now().UTC().Format(time.RFC3339),
	}).Context(ctx).Fields("id").Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	return created.Id, nil
}
