package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lambethcyclists/mailroom/internal/ai"
	"github.com/lambethcyclists/mailroom/internal/apierr"
	"github.com/lambethcyclists/mailroom/internal/gmail"
	"github.com/lambethcyclists/mailroom/internal/instrumentation"
	"github.com/lambethcyclists/mailroom/internal/linker"
	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/notify"
	"github.com/lambethcyclists/mailroom/internal/store"
)

// DefaultStaleWindow is how long the pipeline tolerates zero successful
// cycles before escalating a health alert.
const DefaultStaleWindow = 7 * 24 * time.Hour

const titleLimit = 100

// Mailbox is the slice of the Gmail client the pipeline needs.
type Mailbox interface {
	Poll(ctx context.Context) ([]string, error)
	GetEmail(ctx context.Context, messageID string) (*gmail.Email, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// Analyzer extracts structured data from email text and images.
type Analyzer interface {
	AnalyzeEmail(ctx context.Context, subject, body, attachmentText string) (*ai.Analysis, error)
	AnalyzeImages(ctx context.Context, images []gmail.Attachment) string
}

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	Enabled() bool
	LookupAll(ctx context.Context, locations []string) []store.Coordinate
}

// Uploader copies attachments to long-term storage.
type Uploader interface {
	UploadAll(ctx context.Context, messageID string, atts []gmail.Attachment) []store.AttachmentRef
}

// Deduper decides whether an inbound email already has an Item.
type Deduper interface {
	Check(ctx context.Context, email *gmail.Email) (*store.Item, error)
}

// Relater connects a freshly created Item to its neighbours.
type Relater interface {
	Link(ctx context.Context, item *store.Item) (*linker.Result, error)
}

// Sender delivers operator notifications.
type Sender interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Metrics is the slice of the instrumentation the pipeline records to.
// *instrumentation.Metrics satisfies it.
type Metrics interface {
	RecordEmailProcessed(ctx context.Context, result string)
	RecordCycle(ctx context.Context, loop string, duration time.Duration)
	RecordNeedsReview(ctx context.Context)
}

// Health receives liveness signals from completed cycles.
// *server.HealthChecker satisfies it.
type Health interface {
	RecordSuccess(t time.Time)
}

type nopMetrics struct{}

func (nopMetrics) RecordEmailProcessed(context.Context, string)       {}
func (nopMetrics) RecordCycle(context.Context, string, time.Duration) {}
func (nopMetrics) RecordNeedsReview(context.Context)                  {}

type nopHealth struct{}

func (nopHealth) RecordSuccess(time.Time) {}

// Deps are the collaborators a Pipeline orchestrates.
type Deps struct {
	Mailbox  Mailbox
	Store    store.ItemStore
	Dedup    Deduper
	Analyzer Analyzer
	Geocoder Geocoder
	Uploader Uploader
	Relater  Relater
	Sender   Sender
}

// Pipeline runs the email processing cycle: poll the watched label,
// turn each message into an Item, link it, and mark the message
// processed. Failures are isolated per message.
type Pipeline struct {
	mailbox  Mailbox
	store    store.ItemStore
	dedup    Deduper
	analyzer Analyzer
	geocoder Geocoder
	uploader Uploader
	relater  Relater
	sender   Sender

	metrics     Metrics
	health      Health
	now         func() time.Time
	staleWindow time.Duration
	logger      *slog.Logger

	mu           sync.Mutex
	lastSuccess  time.Time
	staleAlerted bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics wires cycle and outcome counters.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithHealth wires successful cycles into the health checker.
func WithHealth(h Health) Option {
	return func(p *Pipeline) { p.health = h }
}

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithStaleWindow overrides the zero-activity alert window. Zero
// disables the alert.
func WithStaleWindow(d time.Duration) Option {
	return func(p *Pipeline) { p.staleWindow = d }
}

// New builds a Pipeline over its collaborators.
func New(deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		mailbox:     deps.Mailbox,
		store:       deps.Store,
		dedup:       deps.Dedup,
		analyzer:    deps.Analyzer,
		geocoder:    deps.Geocoder,
		uploader:    deps.Uploader,
		relater:     deps.Relater,
		sender:      deps.Sender,
		metrics:     nopMetrics{},
		health:      nopHealth{},
		now:         time.Now,
		staleWindow: DefaultStaleWindow,
		logger:      logging.WithLoop(slog.Default(), instrumentation.LoopEmail),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastSuccess = p.now()
	return p
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeDuplicate
)

// Run executes one full processing cycle. A poll failure aborts the
// cycle; per-message failures are counted and the cycle continues,
// except for provider auth failures, which pause the rest of the cycle
// so the same broken credential is not hammered per message.
func (p *Pipeline) Run(ctx context.Context) error {
	start := p.now()
	p.logger.Info("starting email processing cycle")

	ids, err := p.mailbox.Poll(ctx)
	if err != nil {
		p.logger.Error("polling mailbox failed", logging.Err(err))
		p.checkStale(ctx)
		return fmt.Errorf("poll mailbox: %w", err)
	}

	var succeeded, duplicates, errored int
	for _, id := range ids {
		out, err := p.processMessage(ctx, id)
		if err != nil {
			errored++
			p.metrics.RecordEmailProcessed(ctx, instrumentation.ResultError)
			p.logger.Error("processing email failed", logging.MessageID(id), logging.Err(err))
			p.alertError(ctx, id, err)
			if apierr.IsAuth(err) {
				p.logger.Warn("provider auth failure, pausing until next cycle",
					logging.MessageID(id))
				break
			}
			continue
		}
		switch out {
		case outcomeDuplicate:
			duplicates++
			p.metrics.RecordEmailProcessed(ctx, instrumentation.ResultDuplicate)
		default:
			succeeded++
			p.metrics.RecordEmailProcessed(ctx, instrumentation.ResultSuccess)
		}
	}

	p.metrics.RecordCycle(ctx, instrumentation.LoopEmail, p.now().Sub(start))
	p.logger.Info("email processing cycle complete",
		slog.Int("succeeded", succeeded),
		slog.Int("duplicates", duplicates),
		slog.Int("errored", errored),
		slog.Int("total", len(ids)))

	if errored == 0 {
		p.recordSuccess()
	}
	p.checkStale(ctx)
	return nil
}

func (p *Pipeline) processMessage(ctx context.Context, id string) (outcome, error) {
	email, err := p.mailbox.GetEmail(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get email: %w", err)
	}
	logger := p.logger.With(logging.MessageID(id), logging.Sender(email.SenderEmail))
	logger.Info("processing email", slog.String("subject", email.Subject))

	dup, err := p.dedup.Check(ctx, email)
	if err != nil {
		// Store unreachable. Leave the message unmarked so the next
		// cycle retries it.
		return 0, fmt.Errorf("duplicate check: %w", err)
	}
	if dup != nil {
		logger.Info("skipping duplicate email", logging.ItemID(dup.ID))
		if err := p.mailbox.MarkProcessed(ctx, id); err != nil {
			return 0, fmt.Errorf("mark duplicate processed: %w", err)
		}
		return outcomeDuplicate, nil
	}

	analysis, err := p.analyzer.AnalyzeEmail(ctx, email.Subject, email.Body, attachmentText(email.Attachments))
	if err != nil {
		return 0, fmt.Errorf("analyze email: %w", err)
	}

	var imageAnalysis string
	if images := imageAttachments(email.Attachments); len(images) > 0 {
		logger.Info("analyzing image attachments", slog.Int("count", len(images)))
		imageAnalysis = p.analyzer.AnalyzeImages(ctx, images)
	}

	var coords []store.Coordinate
	if len(analysis.Locations) > 0 && p.geocoder.Enabled() {
		coords = p.geocoder.LookupAll(ctx, analysis.Locations)
	}

	var refs []store.AttachmentRef
	if len(email.Attachments) > 0 {
		refs = p.uploader.UploadAll(ctx, email.MessageID, email.Attachments)
	}

	item := &store.Item{
		Title:                clip(analysis.Title, titleLimit),
		Summary:              analysis.Summary,
		DateReceived:         email.Date,
		MessageID:            email.MessageID,
		SenderEmail:          email.SenderEmail,
		HasAttachments:       len(email.Attachments) > 0,
		ConsultationDeadline: analysis.ConsultationDeadline,
		ActionDueDate:        analysis.ActionDueDate,
		EstimatedCompletion:  analysis.EstimatedCompletion,
		Category:             analysis.Category,
		ActionRequired:       analysis.ActionRequired,
		Tags:                 analysis.Tags,
		Locations:            analysis.Locations,
		Coordinates:          coords,
		KeyPoints:            analysis.KeyPoints,
		Attachments:          refs,
		ImageAnalysis:        imageAnalysis,
		Status:               store.ItemStatusNew,
		Priority:             analysis.Priority,
		ProcessingStatus:     store.ProcessingComplete,
	}
	if analysis.NeedsReview {
		item.ProcessingStatus = store.ProcessingNeedsReview
	}

	created, err := p.store.CreateItem(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("create item: %w", err)
	}
	logger.Info("created item", logging.ItemID(created.ID), slog.String("title", created.Title))

	if analysis.NeedsReview {
		p.metrics.RecordNeedsReview(ctx)
		logger.Warn("item flagged for review",
			logging.ItemID(created.ID),
			slog.String("reasons", strings.Join(analysis.ReviewReasons, "; ")))
	}

	// The item exists now. A linking failure must not fail the message:
	// retrying would only hit the duplicate check, so log and move on.
	if _, err := p.relater.Link(ctx, created); err != nil {
		logger.Warn("linking item failed", logging.ItemID(created.ID), logging.Err(err))
	}

	if err := p.mailbox.MarkProcessed(ctx, id); err != nil {
		return 0, fmt.Errorf("mark processed: %w", err)
	}
	return outcomeProcessed, nil
}

func (p *Pipeline) alertError(ctx context.Context, messageID string, procErr error) {
	if p.sender == nil {
		return
	}
	msg := notify.ErrorAlert("email_processing", procErr.Error(), "message "+messageID)
	if err := p.sender.Send(ctx, msg); err != nil {
		p.logger.Warn("sending error alert failed", logging.Err(err))
	}
}

func (p *Pipeline) recordSuccess() {
	now := p.now()
	p.mu.Lock()
	p.lastSuccess = now
	p.staleAlerted = false
	p.mu.Unlock()
	p.health.RecordSuccess(now)
}

// checkStale escalates one health alert per stale period. The flag
// resets on the next successful cycle.
func (p *Pipeline) checkStale(ctx context.Context) {
	if p.staleWindow <= 0 || p.sender == nil {
		return
	}
	p.mu.Lock()
	stale := p.now().Sub(p.lastSuccess) >= p.staleWindow && !p.staleAlerted
	last := p.lastSuccess
	if stale {
		p.staleAlerted = true
	}
	p.mu.Unlock()
	if !stale {
		return
	}

	p.logger.Error("no successful processing cycle within the stale window",
		slog.Time("last_success", last))
	msg := notify.HealthAlert(fmt.Sprintf(
		"No successful email processing cycle since %s.", last.Format(time.RFC1123)))
	if err := p.sender.Send(ctx, msg); err != nil {
		p.logger.Warn("sending health alert failed", logging.Err(err))
	}
}

// attachmentText concatenates the content of plain-text attachments so
// the extraction prompt sees them alongside the body. Binary formats
// are covered by vision analysis or the Drive copy instead.
func attachmentText(atts []gmail.Attachment) string {
	var b strings.Builder
	for _, att := range atts {
		if !strings.HasPrefix(att.MimeType, "text/") || len(att.Data) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("--- ")
		b.WriteString(att.Filename)
		b.WriteString(" ---\n")
		b.Write(att.Data)
	}
	return b.String()
}

func imageAttachments(atts []gmail.Attachment) []gmail.Attachment {
	var images []gmail.Attachment
	for _, att := range atts {
		if att.IsImage() {
			images = append(images, att)
		}
	}
	return images
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
