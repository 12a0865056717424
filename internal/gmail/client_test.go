package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestPollQuery(t *testing.T) {
	tests := []struct {
		name      string
		watch     string
		processed string
		wantQuery string
	}{
		{
			name:      "plain labels",
			watch:     "cycling",
			processed: "processed",
			wantQuery: "label:cycling -label:processed",
		},
		{
			name:      "label with spaces is quoted",
			watch:     "Lambeth Cycling Projects",
			processed: "processed",
			wantQuery: `label:"Lambeth Cycling Projects" -label:processed`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{watchLabel: tt.watch, processedLabel: tt.processed}
			assert.Equal(t, tt.wantQuery, c.PollQuery())
		})
	}
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"display name form", "Jane Doe <Jane@Lambeth.gov.uk>", "jane@lambeth.gov.uk"},
		{"bare address", "traffic@lambeth.gov.uk", "traffic@lambeth.gov.uk"},
		{"unparseable falls back to raw", "not an address", "not an address"},
		{"quoted display name", `"Doe, Jane" <jane@lambeth.gov.uk>`, "jane@lambeth.gov.uk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractAddress(tt.from))
		})
	}
}

func TestExtractBodyPrefersPlainText(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/html",
				Body:     &gmail.MessagePartBody{Data: b64("<p>html version</p>")},
			},
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: b64("plain version")},
			},
		},
	}
	assert.Equal(t, "plain version", extractBody(payload))
}

func TestExtractBodyFallsBackToHTML(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/html",
		Body: &gmail.MessagePartBody{
			Data: b64("<html><style>p{color:red}</style><body><p>Consultation open</p><p>Closes &amp; ends soon</p></body></html>"),
		},
	}
	body := extractBody(payload)
	assert.Equal(t, "Consultation open\nCloses & ends soon", body)
}

func TestExtractBodyNestedMultipart(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: b64("nested body")},
					},
				},
			},
			{
				MimeType: "application/pdf",
				Filename: "map.pdf",
				Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 1024},
			},
		},
	}
	assert.Equal(t, "nested body", extractBody(payload))
}

func TestListAttachmentParts(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: b64("body")},
			},
			{
				MimeType: "application/pdf",
				Filename: "plans.pdf",
				Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 2048},
			},
			{
				MimeType: "image/png",
				Filename: "../evil.png",
				Body:     &gmail.MessagePartBody{AttachmentId: "att-2", Size: 512},
			},
			{
				// inline part without attachment id is skipped
				MimeType: "image/png",
				Filename: "logo.png",
				Body:     &gmail.MessagePartBody{Data: b64("inline")},
			},
		},
	}

	parts := listAttachmentParts(payload)
	require.Len(t, parts, 2)
	assert.Equal(t, "plans.pdf", parts[0].filename)
	assert.Equal(t, "att-1", parts[0].attachmentID)
	assert.Equal(t, int64(2048), parts[0].size)
	assert.Equal(t, "att-2", parts[1].attachmentID)
}

func TestDecodeBase64Variants(t *testing.T) {
	content := []byte("hello?>world")

	urlEncoded := base64.URLEncoding.EncodeToString(content)
	rawEncoded := base64.RawURLEncoding.EncodeToString(content)
	stdEncoded := base64.StdEncoding.EncodeToString(content)

	for _, encoded := range []string{urlEncoded, rawEncoded, stdEncoded} {
		got, err := decodeBase64(encoded)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}

	_, err := decodeBase64("not base64 at all!!!")
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plans.pdf", "plans.pdf"},
		{"../../etc/passwd", "____etc_passwd"},
		{`maps\route.png`, "maps_route.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.input))
	}
}

func TestAttachmentIsImage(t *testing.T) {
	assert.True(t, Attachment{MimeType: "image/png"}.IsImage())
	assert.True(t, Attachment{MimeType: "image/jpeg"}.IsImage())
	assert.False(t, Attachment{MimeType: "application/pdf"}.IsImage())
}
