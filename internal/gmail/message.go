package gmail

import (
	"strconv"
	"strings"
	"time"
)

// MessageRef is a message id/thread pair from a list call.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Message is a full Gmail message with headers, snippet, and MIME tree.
type Message struct {
	ID           string `json:"id"`
	ThreadID     string `json:"threadId"`
	Snippet      string `json:"snippet"`
	InternalDate string `json:"internalDate"` // milliseconds since epoch
	Payload      *Part  `json:"payload"`
}

// Part is one node of the MIME tree.
type Part struct {
	PartID   string   `json:"partId"`
	MimeType string   `json:"mimeType"`
	Filename string   `json:"filename"`
	Headers  []Header `json:"headers"`
	Body     PartBody `json:"body"`
	Parts    []*Part  `json:"parts"`
}

// Header is a single message header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartBody holds inline data or an attachment reference.
type PartBody struct {
	AttachmentID string `json:"attachmentId"`
	Size         int    `json:"size"`
	Data         string `json:"data"`
}

// AttachmentRef points at one downloadable attachment inside a message.
type AttachmentRef struct {
	Filename     string
	MimeType     string
	AttachmentID string
}

// Header returns the value of the named header, case-insensitively.
func (m *Message) Header(name string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ReceivedAt converts the provider's internalDate (epoch milliseconds) to a
// time. A zero time is returned when the field is missing or malformed.
func (m *Message) ReceivedAt() time.Time {
	ms, err := strconv.ParseInt(m.InternalDate, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Attachments walks the MIME tree, including nested multiparts, and collects
// every part that has both a filename and an attachment reference.
func (m *Message) Attachments() []AttachmentRef {
	var refs []AttachmentRef
	if m.Payload == nil {
		return refs
	}
	collectAttachments(m.Payload.Parts, &refs)
	return refs
}

func collectAttachments(parts []*Part, refs *[]AttachmentRef) {
	for _, p := range parts {
		if p == nil {
			continue
		}
		if p.Filename != "" && p.Body.AttachmentID != "" {
			*refs = append(*refs, AttachmentRef{
				Filename:     p.Filename,
				MimeType:     p.MimeType,
				AttachmentID: p.Body.AttachmentID,
			})
		}
		if len(p.Parts) > 0 {
			collectAttachments(p.Parts, refs)
		}
	}
}
