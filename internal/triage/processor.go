package triage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/tfischer/inboxpilot/internal/attachments"
	"github.com/tfischer/inboxpilot/internal/classify"
	"github.com/tfischer/inboxpilot/internal/config"
	"github.com/tfischer/inboxpilot/internal/gmail"
	"github.com/tfischer/inboxpilot/internal/instrumentation"
	"github.com/tfischer/inboxpilot/internal/logging"
	"github.com/tfischer/inboxpilot/internal/template"
)

// MailboxClient is the subset of the Gmail client the processor needs.
type MailboxClient interface {
	ListMessageIDs(q string, maxResults int64) ([]string, error)
	GetMessage(messageID string) (*gmailapi.Message, error)
	GetOrCreateLabel(name string) (string, error)
	ApplyLabel(messageID, labelID string) error
	ReplyToEmail(messageID, threadID, subject, body string, isHTML bool) (string, error)
}

// Extractor saves a message's attachments to disk.
type Extractor interface {
	Extract(messageID string, refs []gmail.AttachmentRef) ([]attachments.Result, error)
}

// State is the processor's lifecycle phase. A processor is single-use per
// cycle and moves Idle -> Polling -> Processing -> Idle.
type State string

const (
	StateIdle       State = "idle"
	StatePolling    State = "polling"
	StateProcessing State = "processing"
)

// Summary reports what one cycle did.
type Summary struct {
	// Processed counts messages that went through classification, whether
	// or not a later step failed for them.
	Processed int

	// Skipped counts messages dropped before classification: fetch
	// failures and malformed payloads.
	Skipped int

	// PerCategory counts processed messages by assigned category.
	PerCategory map[classify.Category]int

	// RepliesSent counts automatic replies delivered.
	RepliesSent int

	// AttachmentsSaved counts attachment files written to disk.
	AttachmentsSaved int

	// LabelFailures, SendFailures and AttachmentFailures count per-message
	// step errors that did not stop the cycle.
	LabelFailures      int
	SendFailures       int
	AttachmentFailures int
}

// Processor orchestrates one triage cycle.
type Processor struct {
	client     MailboxClient
	extractor  Extractor
	classifier *classify.Classifier
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *instrumentation.Metrics

	state State

	// labelIDs caches category -> label id lookups for the cycle so a
	// category seen many times costs one GetOrCreateLabel call.
	labelIDs map[classify.Category]string
}

// New creates a Processor. A nil logger falls back to slog.Default; a nil
// metrics recorder is replaced with a no-op one.
func New(client MailboxClient, extractor Extractor, cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Processor{
		client:     client,
		extractor:  extractor,
		classifier: classify.New(cfg.CompiledRules()),
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		state:      StateIdle,
		labelIDs:   make(map[classify.Category]string),
	}
}

// State returns the processor's current lifecycle phase.
func (p *Processor) State() State {
	return p.state
}

// Run executes one cycle: poll for matching messages, then process each in
// the order the provider returned them. Per-message failures are counted in
// the Summary; only a failed poll or a canceled context aborts the cycle.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	ctx, span := instrumentation.StartSpan(ctx, "triage.run")
	defer span.End()

	summary := &Summary{
		PerCategory: make(map[classify.Category]int),
	}

	p.state = StatePolling
	defer func() { p.state = StateIdle }()

	ids, err := p.client.ListMessageIDs(p.cfg.Query, p.cfg.MaxResults)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		p.metrics.RecordCycleDuration(ctx, instrumentation.StatusError, time.Since(start))
		return nil, err
	}

	p.logger.Info("poll complete",
		logging.Operation("poll"),
		slog.Int("messages", len(ids)),
		slog.String("query", p.cfg.Query),
	)

	p.state = StateProcessing
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			instrumentation.SetSpanError(span, err)
			p.metrics.RecordCycleDuration(ctx, instrumentation.StatusError, time.Since(start))
			return summary, err
		}
		p.processMessage(ctx, id, summary)
	}

	instrumentation.SetSpanSuccess(span)
	p.metrics.RecordCycleDuration(ctx, instrumentation.StatusSuccess, time.Since(start))

	p.logger.Info("cycle complete",
		logging.Operation("run"),
		slog.Int("processed", summary.Processed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("replies_sent", summary.RepliesSent),
		slog.Int("attachments_saved", summary.AttachmentsSaved),
	)
	return summary, nil
}

func (p *Processor) processMessage(ctx context.Context, id string, summary *Summary) {
	ctx, span := instrumentation.StartSpan(ctx, "triage.message",
		instrumentation.NewSpanAttributeBuilder().WithMessageID(id).Build()...)
	defer span.End()

	raw, err := p.client.GetMessage(id)
	if err != nil {
		summary.Skipped++
		p.metrics.RecordTriageFailure(ctx, instrumentation.StepFetch)
		instrumentation.SetSpanError(span, err)
		p.logger.Warn("failed to fetch message, skipping",
			logging.MessageID(id), logging.Err(err))
		return
	}

	msg, err := gmail.ParseMessage(raw)
	if err != nil {
		summary.Skipped++
		p.metrics.RecordTriageFailure(ctx, instrumentation.StepFetch)
		instrumentation.SetSpanError(span, err)

		var malformed *gmail.MalformedMessageError
		if errors.As(err, &malformed) {
			p.logger.Warn("malformed message, skipping",
				logging.MessageID(id), logging.Err(err))
		} else {
			p.logger.Warn("failed to parse message, skipping",
				logging.MessageID(id), logging.Err(err))
		}
		return
	}

	category := p.classifier.Classify(classify.Email{
		Sender:  msg.Sender,
		Subject: msg.Subject,
		Body:    msg.Body,
	})

	summary.Processed++
	summary.PerCategory[category]++
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithCategory(string(category)).Build()...)

	failed := false
	if category != classify.Uncategorized {
		if !p.applyLabel(ctx, msg, category, summary) {
			failed = true
		}
	}
	if !p.sendReply(ctx, msg, category, summary) {
		failed = true
	}
	if !p.saveAttachments(ctx, msg, summary) {
		failed = true
	}

	status := instrumentation.StatusSuccess
	if failed {
		status = instrumentation.StatusError
	}
	p.metrics.RecordMessageProcessed(ctx, string(category), status)

	p.logger.Info("message processed",
		logging.MessageID(msg.ID),
		logging.Category(string(category)),
		logging.Domain(msg.Sender),
	)
}

// applyLabel ensures the category label exists and attaches it to the
// message. Returns false when either step failed.
func (p *Processor) applyLabel(ctx context.Context, msg *gmail.Message, category classify.Category, summary *Summary) bool {
	labelID, ok := p.labelIDs[category]
	if !ok {
		var err error
		labelID, err = p.client.GetOrCreateLabel(string(category))
		if err != nil {
			summary.LabelFailures++
			p.metrics.RecordTriageFailure(ctx, instrumentation.StepLabel)
			p.logger.Warn("failed to resolve label",
				logging.MessageID(msg.ID),
				logging.Category(string(category)),
				logging.Err(err))
			return false
		}
		p.labelIDs[category] = labelID
	}

	if err := p.client.ApplyLabel(msg.ID, labelID); err != nil {
		summary.LabelFailures++
		p.metrics.RecordTriageFailure(ctx, instrumentation.StepLabel)
		p.logger.Warn("failed to apply label",
			logging.MessageID(msg.ID),
			logging.Category(string(category)),
			logging.Err(err))
		return false
	}
	return true
}

// sendReply sends the configured auto-reply for the category, if any.
// Returns false when rendering or sending failed.
func (p *Processor) sendReply(ctx context.Context, msg *gmail.Message, category classify.Category, summary *Summary) bool {
	name := p.cfg.ReplyTemplateFor(category)
	if name == "" {
		return true
	}

	tmpl, ok := p.cfg.Template(name)
	if !ok {
		// Load-time validation makes this unreachable for loaded configs.
		summary.SendFailures++
		p.metrics.RecordTriageFailure(ctx, instrumentation.StepReply)
		p.logger.Error("reply template missing",
			logging.MessageID(msg.ID), slog.String("template", name))
		return false
	}

	rendered, err := template.Render(tmpl, map[string]string{
		"original_subject": msg.Subject,
		"sender":           msg.Sender,
		"sender_name":      p.cfg.Reply.SenderName,
		"category":         string(category),
	})
	if err != nil {
		summary.SendFailures++
		p.metrics.RecordTriageFailure(ctx, instrumentation.StepReply)
		p.logger.Warn("failed to render reply",
			logging.MessageID(msg.ID),
			slog.String("template", name),
			logging.Err(err))
		return false
	}

	if _, err := p.client.ReplyToEmail(msg.ID, msg.ThreadID, rendered.Subject, rendered.Body, false); err != nil {
		summary.SendFailures++
		p.metrics.RecordTriageFailure(ctx, instrumentation.StepReply)
		p.logger.Warn("failed to send reply",
			logging.MessageID(msg.ID),
			logging.Category(string(category)),
			logging.Err(err))
		return false
	}

	summary.RepliesSent++
	p.metrics.RecordReplySent(ctx, string(category), logging.ExtractDomain(msg.Sender))
	return true
}

// saveAttachments extracts the message's attachments to disk. Returns false
// when the destination could not be prepared or any item failed.
func (p *Processor) saveAttachments(ctx context.Context, msg *gmail.Message, summary *Summary) bool {
	if len(msg.Attachments) == 0 {
		return true
	}

	results, err := p.extractor.Extract(msg.ID, msg.Attachments)
	if err != nil {
		summary.AttachmentFailures++
		p.metrics.RecordTriageFailure(ctx, instrumentation.StepAttachments)
		p.logger.Warn("failed to extract attachments",
			logging.MessageID(msg.ID), logging.Err(err))
		return false
	}

	ok := true
	var saved int64
	for _, res := range results {
		if res.Err != nil {
			summary.AttachmentFailures++
			p.metrics.RecordTriageFailure(ctx, instrumentation.StepAttachments)
			ok = false
			continue
		}
		saved++
		summary.AttachmentsSaved++
	}
	p.metrics.RecordAttachmentsSaved(ctx, saved)
	return ok
}
