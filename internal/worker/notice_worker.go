// Package worker holds the consumers that run outside the web process.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"scoreboard/internal/amqp"
	"scoreboard/internal/cache"
	"scoreboard/internal/log"
)

// seenTTL bounds how long a delivered notice id is remembered for
// de-duplication of broker redeliveries.
const seenTTL = 24 * time.Hour

// NoticeWorker records rollover notices delivered by the broker. The broker
// delivers at least once, so notices already seen are acknowledged and skipped.
type NoticeWorker struct {
	seen   *cache.LRU[string, time.Time]
	logger *log.Logger

	mu      sync.Mutex
	handled int
	skipped int
	banked  map[string]decimal.Decimal
}

// NewNoticeWorker remembers up to memory notice ids. logger may be nil.
func NewNoticeWorker(memory int, logger *log.Logger) *NoticeWorker {
	if logger == nil {
		logger = log.WithComponent(log.ComponentNotifier)
	}
	return &NoticeWorker{
		seen:   cache.NewLRU[string, time.Time](memory, seenTTL),
		logger: logger,
		banked: make(map[string]decimal.Decimal),
	}
}

// Seen exposes the id cache so the caller can sweep it.
func (w *NoticeWorker) Seen() cache.Cleaner { return w.seen }

// HandleRolloverNotice logs one notice. Returning an error requeues the
// message, so only transient conditions do; a notice with unreadable amounts
// is logged and dropped.
func (w *NoticeWorker) HandleRolloverNotice(ctx context.Context, n *amqp.RolloverNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.ID == "" {
		w.logger.WarnContext(ctx, "Dropping rollover notice without id", log.FieldRevision, n.Revision)
		w.skip()
		return nil
	}
	if _, dup := w.seen.Get(n.ID); dup {
		w.logger.DebugContext(ctx, "Skipping duplicate rollover notice", log.FieldNoticeID, n.ID)
		w.skip()
		return nil
	}

	amounts, err := parseKidAmounts(n)
	if err != nil {
		w.logger.ErrorContext(ctx, "Dropping malformed rollover notice", log.FieldNoticeID, n.ID, log.FieldError, err)
		w.skip()
		return nil
	}

	w.logger.InfoContext(ctx, "Week rolled over",
		log.FieldNoticeID, n.ID,
		log.FieldRevision, n.Revision,
		log.FieldCount, len(n.Kids),
		"at", n.Timestamp.Format(time.RFC3339))
	for i, k := range n.Kids {
		w.logger.InfoContext(ctx, "Kid banked",
			log.FieldNoticeID, n.ID,
			log.FieldKid, k.Index,
			"name", k.Name,
			log.FieldAmount, amounts[i].banked.StringFixed(2),
			"monthly", amounts[i].monthly.StringFixed(2))
	}

	w.mu.Lock()
	for i, k := range n.Kids {
		w.banked[k.Name] = w.banked[k.Name].Add(amounts[i].banked)
	}
	w.handled++
	w.mu.Unlock()

	w.seen.Set(n.ID, time.Now())
	return nil
}

type kidAmounts struct {
	banked  decimal.Decimal
	monthly decimal.Decimal
}

func parseKidAmounts(n *amqp.RolloverNotice) ([]kidAmounts, error) {
	out := make([]kidAmounts, len(n.Kids))
	for i, k := range n.Kids {
		b, err := decimal.NewFromString(k.Banked)
		if err != nil {
			return nil, fmt.Errorf("kid %d banked %q: %w", k.Index, k.Banked, err)
		}
		m, err := decimal.NewFromString(k.Monthly)
		if err != nil {
			return nil, fmt.Errorf("kid %d monthly %q: %w", k.Index, k.Monthly, err)
		}
		out[i] = kidAmounts{banked: b, monthly: m}
	}
	return out, nil
}

func (w *NoticeWorker) skip() {
	w.mu.Lock()
	w.skipped++
	w.mu.Unlock()
}

// Stats summarizes what the worker has processed since start.
type Stats struct {
	Handled int
	Skipped int
	// Banked is the total banked per kid name across handled notices.
	Banked map[string]decimal.Decimal
}

func (w *NoticeWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	banked := make(map[string]decimal.Decimal, len(w.banked))
	for k, v := range w.banked {
		banked[k] = v
	}
	return Stats{Handled: w.handled, Skipped: w.skipped, Banked: banked}
}
