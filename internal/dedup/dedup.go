package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lambethcyclists/mailroom/internal/gmail"
	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/store"
)

const (
	subjectWindow = 24 * time.Hour
	contentWindow = 7 * 24 * time.Hour

	subjectQueryLimit = 50
	contentQueryLimit = 100

	comparePrefixLen = 500
)

// Deduplicator decides whether an incoming email already has a record.
// Three layers, cheapest first: exact Gmail message ID, fuzzy subject
// match within a day, then same-sender content similarity within a
// week. The last two catch forwards and resends that carry fresh
// message IDs.
type Deduplicator struct {
	items store.ItemStore

	subjectThreshold float64
	contentThreshold float64

	logger *slog.Logger
}

// New creates a Deduplicator with the given similarity thresholds.
func New(items store.ItemStore, subjectThreshold, contentThreshold float64) *Deduplicator {
	return &Deduplicator{
		items:            items,
		subjectThreshold: subjectThreshold,
		contentThreshold: contentThreshold,
		logger:           logging.WithService(slog.Default(), "dedup"),
	}
}

// Check returns the existing item the email duplicates, or nil if the
// email is new. Only layer 1 failures are hard errors; the fuzzy
// layers degrade to "not a duplicate" so a flaky query never drops
// mail.
func (d *Deduplicator) Check(ctx context.Context, email *gmail.Email) (*store.Item, error) {
	item, err := d.byMessageID(ctx, email.MessageID)
	if err != nil {
		return nil, err
	}
	if item != nil {
		d.logDuplicate(email, item, 1, "message_id")
		return item, nil
	}

	if item := d.bySubject(ctx, email); item != nil {
		d.logDuplicate(email, item, 2, "subject")
		return item, nil
	}

	if item := d.byContent(ctx, email); item != nil {
		d.logDuplicate(email, item, 3, "content")
		return item, nil
	}

	return nil, nil
}

func (d *Deduplicator) logDuplicate(email *gmail.Email, item *store.Item, layer int, cause string) {
	d.logger.Info("duplicate detected",
		logging.MessageID(email.MessageID),
		logging.ItemID(item.ID),
		slog.Int("layer", layer),
		slog.String("cause", cause))
}

// byMessageID is layer 1: exact match on the Gmail message ID.
func (d *Deduplicator) byMessageID(ctx context.Context, messageID string) (*store.Item, error) {
	item, err := d.items.FindItemByMessageID(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dedup message id lookup: %w", err)
	}
	return item, nil
}

// bySubject is layer 2: near-identical subject among items received in
// the past day. Catches the same notice forwarded by two members.
func (d *Deduplicator) bySubject(ctx context.Context, email *gmail.Email) *store.Item {
	recent, err := d.items.QueryItems(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropDateReceived, store.CondAfter, email.Date.Add(-subjectWindow)),
		},
		Limit: subjectQueryLimit,
	})
	if err != nil {
		d.logger.Warn("subject dedup query failed", logging.Err(err))
		return nil
	}

	for _, item := range recent {
		if sim := Ratio(email.Subject, item.Title); sim > d.subjectThreshold {
			d.logger.Debug("subject similarity hit",
				slog.String("subject", email.Subject),
				slog.String("title", item.Title),
				slog.Float64("similarity", sim))
			return item
		}
	}
	return nil
}

// byContent is layer 3: same sender with a very similar body among
// items from the past week. Catches resends with edited subjects.
func (d *Deduplicator) byContent(ctx context.Context, email *gmail.Email) *store.Item {
	recent, err := d.items.QueryItems(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropDateReceived, store.CondAfter, email.Date.Add(-contentWindow)),
		},
		Limit: contentQueryLimit,
	})
	if err != nil {
		d.logger.Warn("content dedup query failed", logging.Err(err))
		return nil
	}

	body := prefix(email.Body, comparePrefixLen)
	for _, item := range recent {
		if item.SenderEmail != email.SenderEmail || item.Summary == "" {
			continue
		}
		if sim := Ratio(body, prefix(item.Summary, comparePrefixLen)); sim > d.contentThreshold {
			d.logger.Debug("content similarity hit",
				logging.Sender(email.SenderEmail),
				logging.ItemID(item.ID),
				slog.Float64("similarity", sim))
			return item
		}
	}
	return nil
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
