package gmail

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestParseMessage(t *testing.T) {
	raw := &gmail.Message{
		Id:       "msg-1",
		ThreadId: "thread-1",
		Snippet:  "preview text",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Bob <bob@company.com>"},
				{Name: "subject", Value: "Team standup notes"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: b64("plain body")},
				},
				{
					MimeType: "text/html",
					Body:     &gmail.MessagePartBody{Data: b64("<p>html body</p>")},
				},
				{
					Filename: "notes.pdf",
					MimeType: "application/pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 2048},
				},
			},
		},
	}

	msg, err := ParseMessage(raw)
	require.NoError(t, err)

	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, "thread-1", msg.ThreadID)
	assert.Equal(t, "Bob <bob@company.com>", msg.Sender)
	assert.Equal(t, "Team standup notes", msg.Subject, "header match is case-insensitive")
	assert.Equal(t, "plain body", msg.Body, "text/plain is preferred over text/html")
	assert.Equal(t, "preview text", msg.Snippet)

	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, AttachmentRef{
		Filename:     "notes.pdf",
		MimeType:     "application/pdf",
		AttachmentID: "att-1",
		Size:         2048,
	}, msg.Attachments[0])
}

func TestParseMessageHTMLFallback(t *testing.T) {
	raw := &gmail.Message{
		Id: "msg-2",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmail.MessagePart{
				{
					MimeType: "text/html",
					Body:     &gmail.MessagePartBody{Data: b64("<html><body><p>Hello &amp; welcome</p></body></html>")},
				},
			},
		},
	}

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "Hello & welcome", msg.Body)
}

func TestParseMessageNestedParts(t *testing.T) {
	raw := &gmail.Message{
		Id: "msg-3",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{
							MimeType: "text/plain",
							Body:     &gmail.MessagePartBody{Data: b64("nested plain")},
						},
					},
				},
				{
					MimeType: "multipart/mixed",
					Parts: []*gmail.MessagePart{
						{
							Filename: "deep.png",
							MimeType: "image/png",
							Body:     &gmail.MessagePartBody{AttachmentId: "att-deep"},
						},
					},
				},
			},
		},
	}

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "nested plain", msg.Body)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "deep.png", msg.Attachments[0].Filename)
}

func TestParseMessageSimpleBody(t *testing.T) {
	raw := &gmail.Message{
		Id: "msg-4",
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: b64("non-multipart body")},
		},
	}

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "non-multipart body", msg.Body)
}

func TestParseMessageMissingOptionalFields(t *testing.T) {
	msg, err := ParseMessage(&gmail.Message{Id: "msg-5"})
	require.NoError(t, err)

	assert.Equal(t, "msg-5", msg.ID)
	assert.Empty(t, msg.Sender)
	assert.Empty(t, msg.Subject)
	assert.Empty(t, msg.Body)
	assert.Empty(t, msg.Attachments)
}

func TestParseMessageMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  *gmail.Message
	}{
		{"nil message", nil},
		{"missing id", &gmail.Message{Snippet: "no id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage(tt.raw)
			require.Error(t, err)

			var malformed *MalformedMessageError
			assert.True(t, errors.As(err, &malformed))
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"padded base64url", base64.URLEncoding.EncodeToString([]byte("hi there")), "hi there"},
		{"unpadded base64url", base64.RawURLEncoding.EncodeToString([]byte("hi there")), "hi there"},
		{"standard base64", base64.StdEncoding.EncodeToString([]byte("hi+there/x")), "hi+there/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBase64(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := decodeBase64("!!! not base64 !!!")
	assert.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "tags removed",
			html: "<p>Hello <b>world</b></p>",
			want: "Hello world",
		},
		{
			name: "style block removed",
			html: "<html><head><style>body { color: red; }</style></head><body>visible</body></html>",
			want: "visible",
		},
		{
			name: "entities unescaped",
			html: "fish &amp; chips &lt;now&gt;",
			want: "fish & chips <now>",
		},
		{
			name: "empty input",
			html: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.html))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{
			name:     "normal filename",
			filename: "document.pdf",
			want:     "document.pdf",
		},
		{
			name:     "filename with forward slash",
			filename: "path/to/document.pdf",
			want:     "path_to_document.pdf",
		},
		{
			name:     "filename with backslash",
			filename: "path\\to\\document.pdf",
			want:     "path_to_document.pdf",
		},
		{
			name:     "filename with parent directory",
			filename: "../../../etc/passwd",
			want:     "______etc_passwd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.filename); got != tt.want {
				t.Errorf("SanitizeFilename() = %v, want %v", got, tt.want)
			}
		})
	}
}
