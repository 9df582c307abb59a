package gmail

import (
	"encoding/base64"
	"fmt"
	"html"
	"regexp"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Message is the normalized, immutable form of a raw Gmail message. It is
// constructed per poll cycle and discarded after processing.
type Message struct {
	ID          string
	ThreadID    string
	Sender      string
	Subject     string
	Body        string
	Snippet     string
	Attachments []AttachmentRef
}

// AttachmentRef is a handle to attachment content, resolvable through the
// client's GetAttachment. It does not hold content itself.
type AttachmentRef struct {
	Filename     string
	MimeType     string
	AttachmentID string
	Size         int64
}

// MalformedMessageError reports a raw message missing a required field. The
// orchestrator skips the message and continues.
type MalformedMessageError struct {
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return "malformed message: " + e.Reason
}

// ParseMessage transforms a raw Gmail message into a Message. Missing
// optional fields become empty values; only a missing message id fails.
func ParseMessage(raw *gmail.Message) (*Message, error) {
	if raw == nil {
		return nil, &MalformedMessageError{Reason: "nil payload"}
	}
	if raw.Id == "" {
		return nil, &MalformedMessageError{Reason: "missing message id"}
	}

	m := &Message{
		ID:       raw.Id,
		ThreadID: raw.ThreadId,
		Sender:   HeaderValue(raw, "From"),
		Subject:  HeaderValue(raw, "Subject"),
		Snippet:  raw.Snippet,
	}

	if raw.Payload != nil {
		m.Body = extractBody(raw.Payload)
		walkParts(raw.Payload, func(part *gmail.MessagePart) {
			if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
				m.Attachments = append(m.Attachments, AttachmentRef{
					Filename:     part.Filename,
					MimeType:     part.MimeType,
					AttachmentID: part.Body.AttachmentId,
					Size:         part.Body.Size,
				})
			}
		})
	}

	return m, nil
}

// HeaderValue extracts a header value from a Gmail message. Header names are
// compared case-insensitively, as mail headers are.
func HeaderValue(m *gmail.Message, header string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// walkParts recursively walks through message parts.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// extractBody pulls a plain-text body out of any MIME structure: a
// text/plain part is preferred, then stripped text/html, then the top-level
// body of a non-multipart message.
func extractBody(payload *gmail.MessagePart) string {
	var plain, htmlBody string
	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		switch part.MimeType {
		case "text/plain":
			if plain == "" {
				plain = decodeBody(part.Body.Data)
			}
		case "text/html":
			if htmlBody == "" {
				htmlBody = decodeBody(part.Body.Data)
			}
		}
	})

	if plain != "" {
		return plain
	}
	if htmlBody != "" {
		return StripHTML(htmlBody)
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := decodeBase64(data)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// decodeBase64 decodes Gmail API body data, which is base64url and may come
// with or without padding.
func decodeBase64(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	return decoded, nil
}

var (
	htmlBlockPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespaceRuns   = regexp.MustCompile(`[ \t]+`)
	blankLineRuns    = regexp.MustCompile(`\n{3,}`)
)

// StripHTML reduces an HTML body to its visible text: script/style blocks
// and tags removed, entities unescaped, whitespace collapsed.
func StripHTML(s string) string {
	s = htmlBlockPattern.ReplaceAllString(s, " ")
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRuns.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// SanitizeFilename sanitizes a filename to prevent path traversal attacks.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}
