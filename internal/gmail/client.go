package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tfischer/inboxpilot/internal/google"
	"github.com/tfischer/inboxpilot/internal/instrumentation"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024

	// maxRetries bounds how often a transient API failure is retried
	// before it surfaces to the caller.
	maxRetries = 3

	// retryBaseDelay is the first backoff interval; it doubles per attempt.
	retryBaseDelay = 500 * time.Millisecond
)

// SendError reports a failed send or reply for one message. Per-message:
// the orchestrator records it and continues with the rest of the batch.
type SendError struct {
	MessageID string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send reply for message %s: %v", e.MessageID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	account string

	// metrics records per-operation counters and durations. May be nil.
	metrics *instrumentation.Metrics

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(time.Duration)
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccount checks if a stored OAuth token exists for the account.
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// NewClientForAccount creates a Gmail client authenticated with the stored
// OAuth token for the account. A missing or rejected credential surfaces as
// *google.AuthError. metrics may be nil when instrumentation is not set up.
func NewClientForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics) (*Client, error) {
	httpClient, err := google.GetHTTPClientForAccount(ctx, account, metrics)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		account: account,
		metrics: metrics,
		sleep:   time.Sleep,
	}, nil
}

// NewClient creates a Gmail client for the default account.
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default", nil)
}

// isTransient reports whether an API error is worth retrying: rate limiting
// or a server-side failure.
func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return false
}

// withRetry runs fn up to maxRetries times, backing off between attempts.
// Non-transient errors return immediately. Every call records the operation
// name, outcome and total duration, retries included.
func (c *Client) withRetry(op string, fn func() error) error {
	start := time.Now()
	err := c.attempt(fn)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGmailOperation(context.Background(), op, status, time.Since(start))

	if err != nil && isTransient(err) {
		return fmt.Errorf("%s: giving up after %d attempts: %w", op, maxRetries, err)
	}
	return err
}

func (c *Client) attempt(fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			c.sleep(retryBaseDelay << (i - 1))
		}
		if err = fn(); err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
	}
	return err
}

// ListMessageIDs lists ids of messages matching the query, in the order the
// provider returns them, fetching up to maxResults across pages.
func (c *Client) ListMessageIDs(q string, maxResults int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}

		// Gmail caps page size at 100.
		pageSize := remaining
		if pageSize > 100 {
			pageSize = 100
		}

		var res *gmail.ListMessagesResponse
		err := c.withRetry("list messages", func() error {
			req := c.svc.Messages.List("me").Q(q).MaxResults(pageSize)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" || int64(len(ids)) >= maxResults {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// GetMessage retrieves a full Gmail message.
func (c *Client) GetMessage(messageID string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.withRetry("get message", func() error {
		var err error
		msg, err = c.svc.Messages.Get("me", messageID).Format("full").Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// GetAttachment retrieves the decoded content of an attachment.
func (c *Client) GetAttachment(messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	var attachment *gmail.MessagePartBody
	err := c.withRetry("get attachment", func() error {
		var err error
		attachment, err = c.svc.Messages.Attachments.Get("me", messageID, attachmentID).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if attachment.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, MaxAttachmentSize)
	}

	data, err := decodeBase64(attachment.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}

// GetOrCreateLabel returns the id of the named label, creating it when it
// does not exist yet. Matching is case-insensitive, so repeated runs reuse
// the same label.
func (c *Client) GetOrCreateLabel(name string) (string, error) {
	var list *gmail.ListLabelsResponse
	err := c.withRetry("list labels", func() error {
		var err error
		list, err = c.svc.Labels.List("me").Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}

	for _, lbl := range list.Labels {
		if strings.EqualFold(lbl.Name, name) {
			return lbl.Id, nil
		}
	}

	var created *gmail.Label
	err = c.withRetry("create label", func() error {
		var err error
		created, err = c.svc.Labels.Create("me", &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}
	return created.Id, nil
}

// ApplyLabel adds the label to a message.
func (c *Client) ApplyLabel(messageID, labelID string) error {
	err := c.withRetry("apply label", func() error {
		_, err := c.svc.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
			AddLabelIds: []string{labelID},
		}).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to apply label to message %s: %w", messageID, err)
	}
	return nil
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

// encodeRFC2047 encodes a string for use in email headers according to RFC
// 2047. Necessary for non-ASCII characters (like umlauts) in subjects.
func encodeRFC2047(s string) string {
	needsEncoding := false
	for _, r := range s {
		if r > 127 {
			needsEncoding = true
			break
		}
	}
	if !needsEncoding {
		return s
	}
	return mime.BEncoding.Encode("UTF-8", s)
}

// buildRawMessage assembles an RFC 2822 message and encodes it the way the
// Gmail API expects (base64url). extraHeaders are emitted verbatim after the
// Subject header.
func buildRawMessage(to []string, subject, body string, isHTML bool, extraHeaders []string) string {
	var b strings.Builder

	b.WriteString("To: ")
	b.WriteString(strings.Join(to, ", "))
	b.WriteString("\r\n")

	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(subject))
	b.WriteString("\r\n")

	for _, h := range extraHeaders {
		b.WriteString(h)
		b.WriteString("\r\n")
	}

	if isHTML {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// SendEmail sends an email through the Gmail API and returns the sent
// message id.
func (c *Client) SendEmail(msg *EmailMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}
	if msg.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if msg.Body == "" {
		return "", fmt.Errorf("body is required")
	}

	raw := buildRawMessage(msg.To, msg.Subject, msg.Body, msg.IsHTML, nil)

	var sent *gmail.Message
	err := c.withRetry("send message", func() error {
		var err error
		sent, err = c.svc.Messages.Send("me", &gmail.Message{Raw: raw}).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return sent.Id, nil
}

// ReplyToEmail sends a reply to an existing message, addressed to its sender
// and threaded into the original conversation via In-Reply-To/References.
// An empty subject falls back to "Re: <original subject>".
func (c *Client) ReplyToEmail(messageID, threadID, subject, body string, isHTML bool) (string, error) {
	if messageID == "" {
		return "", fmt.Errorf("messageID is required")
	}
	if body == "" {
		return "", fmt.Errorf("body is required")
	}

	original, err := c.GetMessage(messageID)
	if err != nil {
		return "", fmt.Errorf("failed to get original message: %w", err)
	}

	originalFrom := HeaderValue(original, "From")
	originalSubject := HeaderValue(original, "Subject")
	originalMessageID := HeaderValue(original, "Message-ID")
	originalReferences := HeaderValue(original, "References")

	if originalFrom == "" {
		return "", fmt.Errorf("original message has no From header")
	}

	if subject == "" {
		subject = originalSubject
		if !strings.HasPrefix(strings.ToLower(subject), "re:") {
			subject = "Re: " + subject
		}
	}

	var headers []string
	if originalMessageID != "" {
		headers = append(headers, "In-Reply-To: "+originalMessageID)
		references := originalMessageID
		if originalReferences != "" {
			references = originalReferences + " " + originalMessageID
		}
		headers = append(headers, "References: "+references)
	}

	raw := buildRawMessage([]string{originalFrom}, subject, body, isHTML, headers)

	var sent *gmail.Message
	err = c.withRetry("send reply", func() error {
		var err error
		sent, err = c.svc.Messages.Send("me", &gmail.Message{
			Raw:      raw,
			ThreadId: threadID,
		}).Do()
		return err
	})
	if err != nil {
		return "", &SendError{MessageID: messageID, Err: err}
	}
	return sent.Id, nil
}
