package gmail

import "time"

// MaxAttachmentSize caps downloaded attachments at 25MB, the Gmail
// message size limit.
const MaxAttachmentSize = 25 * 1024 * 1024

// Email is one message pulled from the watched label, decoded and
// flattened for the processing pipeline.
type Email struct {
	MessageID   string
	ThreadID    string
	Subject     string
	Sender      string // display form, e.g. "Jane Doe <jane@example.org>"
	SenderEmail string // bare address, lowercased
	Date        time.Time
	Body        string
	Attachments []Attachment
}

// Attachment is a decoded attachment with its content in memory.
type Attachment struct {
	Filename string
	MimeType string
	Size     int64
	Data     []byte
}

// IsImage reports whether the attachment can go through vision
// analysis.
func (a Attachment) IsImage() bool {
	switch a.MimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}
