// Package relay orchestrates the full pipeline: collect from the
// storefront, validate, normalize, deliver to the CRM, and record the
// delivery in the dedup ledger. It owns the batch propagation policy: one
// record's failure never aborts the records after it.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/magazord-bridge/internal/dedup"
	"github.com/ignite/magazord-bridge/internal/ghl"
	"github.com/ignite/magazord-bridge/internal/magazord"
	"github.com/ignite/magazord-bridge/internal/pkg/logger"
	"github.com/ignite/magazord-bridge/internal/transform"
)

// Record outcome statuses reported in batch summaries.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)

// Lister is the listing surface of the storefront client.
type Lister interface {
	ListCarts(ctx context.Context, limit, daysBack int, status string) ([]magazord.Cart, error)
	ListOrders(ctx context.Context, situations []int, daysBack int) ([]magazord.Order, error)
}

// Sink delivers canonical events to the CRM.
type Sink interface {
	Deliver(ctx context.Context, event *transform.Event) (*ghl.DeliveryResult, error)
}

// ProcessResult is the outcome of a single-record run.
type ProcessResult struct {
	Event    *transform.Event    `json:"event"`
	Delivery *ghl.DeliveryResult `json:"delivery"`
}

// RecordOutcome is one entry of a batch summary.
type RecordOutcome struct {
	CartID    int    `json:"cart_id,omitempty"`
	OrderCode string `json:"order_code,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Customer  string `json:"customer,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

// ScanSummary reports a whole batch run. Partial failure is normal: the
// summary carries every per-record outcome for operator visibility.
type ScanSummary struct {
	RunID      string          `json:"run_id"`
	Found      int             `json:"total_found"`
	Eligible   int             `json:"total_eligible"`
	Processed  int             `json:"total_processed"`
	Skipped    int             `json:"total_skipped"`
	Errors     int             `json:"total_errors"`
	Outcomes   []RecordOutcome `json:"results"`
	ElapsedMS  int64           `json:"elapsed_ms"`
	StartedAt  string          `json:"started_at"`
	FinishedAt string          `json:"finished_at"`
}

// Processor wires the pipeline together. Construct once and inject; the
// ledger in particular is shared state that must not be created per call.
type Processor struct {
	agg         *magazord.Aggregator
	lister      Lister
	transformer *transform.Transformer
	sink        Sink
	ledger      dedup.Ledger
	cartStatus  string
	now         func() time.Time
}

// NewProcessor creates a Processor. cartStatus is the listing filter for
// cart scans (comma-separated codes; "" selects the checkout-completed set).
func NewProcessor(agg *magazord.Aggregator, lister Lister, tr *transform.Transformer, sink Sink, ledger dedup.Ledger, cartStatus string) *Processor {
	return &Processor{
		agg:         agg,
		lister:      lister,
		transformer: tr,
		sink:        sink,
		ledger:      ledger,
		cartStatus:  cartStatus,
		now:         time.Now,
	}
}

func cartKey(id int) string { return fmt.Sprintf("cart:%d", id) }

func orderKey(code string) string { return "order:" + code }

// ProcessCart runs the full pipeline for one cart: collect → validate →
// transform → deliver. On successful delivery the cart id is recorded in
// the ledger. A pre-fetched cart skips the redundant upstream lookup.
func (p *Processor) ProcessCart(ctx context.Context, cartID int, prefetched *magazord.Cart, headers map[string]string) (*ProcessResult, error) {
	bundle, err := p.agg.CollectFromCart(ctx, cartID, prefetched)
	if err != nil {
		return nil, err
	}
	result, err := p.finish(ctx, bundle, headers)
	if err != nil {
		return nil, err
	}
	if err := p.ledger.MarkSeen(ctx, cartKey(cartID)); err != nil {
		logger.Warn("failed to record processed cart", "cart_id", cartID, "error", err.Error())
	}
	return result, nil
}

// ProcessOrder runs the full pipeline for one order code, including the
// optional tracking fetch.
func (p *Processor) ProcessOrder(ctx context.Context, code string, headers map[string]string) (*ProcessResult, error) {
	bundle, err := p.agg.CollectFromOrder(ctx, code)
	if err != nil {
		return nil, err
	}
	result, err := p.finish(ctx, bundle, headers)
	if err != nil {
		return nil, err
	}
	if err := p.ledger.MarkSeen(ctx, orderKey(code)); err != nil {
		logger.Warn("failed to record processed order", "order_code", code, "error", err.Error())
	}
	return result, nil
}

// finish validates, transforms and delivers a collected bundle. Only
// validation errors block delivery; warnings (an itemless order, say) are
// logged and the event ships with defaulted fields.
func (p *Processor) finish(ctx context.Context, bundle *magazord.Bundle, headers map[string]string) (*ProcessResult, error) {
	res := magazord.ValidateBundle(bundle)
	if !res.Valid {
		return nil, fmt.Errorf("%s: %w", strings.Join(res.Errors, "; "), magazord.ErrValidation)
	}
	for _, warn := range res.Warnings {
		logger.Warn("delivering with incomplete data", "order_code", bundle.Order.Code, "reason", warn)
	}

	event := p.transformer.Transform(bundle, headers)

	delivery, err := p.sink.Deliver(ctx, event)
	if err != nil {
		return nil, err
	}
	return &ProcessResult{Event: event, Delivery: delivery}, nil
}

// ScanCarts lists recently updated carts and relays every eligible one.
// Already-relayed carts and contact-gate failures tally as skipped; any
// other per-record failure tallies as an error and processing continues.
// Only a failure of the listing itself returns an error.
func (p *Processor) ScanCarts(ctx context.Context, limit, daysBack int) (*ScanSummary, error) {
	started := p.now()

	carts, err := p.lister.ListCarts(ctx, limit, daysBack, p.cartStatus)
	if err != nil {
		return nil, fmt.Errorf("cart listing failed: %w", err)
	}

	summary := &ScanSummary{
		RunID:     uuid.NewString(),
		Found:     len(carts),
		Outcomes:  []RecordOutcome{},
		StartedAt: started.UTC().Format(time.RFC3339),
	}

	for i := range carts {
		cart := &carts[i]
		if !cart.HasOrder() {
			continue
		}
		summary.Eligible++

		outcome := RecordOutcome{CartID: cart.ID, OrderCode: cart.OrderCode()}

		seen, err := p.ledger.Seen(ctx, cartKey(cart.ID))
		if err != nil {
			logger.Warn("ledger check failed, processing anyway", "cart_id", cart.ID, "error", err.Error())
		}
		if seen {
			outcome.Status = OutcomeSkipped
			outcome.Reason = "already processed"
			summary.Skipped++
			summary.Outcomes = append(summary.Outcomes, outcome)
			continue
		}

		result, err := p.ProcessCart(ctx, cart.ID, cart, nil)
		switch {
		case errors.Is(err, magazord.ErrContactMissing):
			outcome.Status = OutcomeSkipped
			outcome.Reason = "no contact channel"
			summary.Skipped++
		case err != nil:
			outcome.Status = OutcomeError
			outcome.Reason = err.Error()
			summary.Errors++
		default:
			outcome.Status = OutcomeProcessed
			outcome.Customer = result.Event.Person.Name
			outcome.EventType = result.Event.EventType
			summary.Processed++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	p.finishSummary(summary, started)
	logger.Info("cart scan complete",
		"run_id", summary.RunID,
		"found", summary.Found,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"errors", summary.Errors)
	return summary, nil
}

// ScanOrders lists orders in the given situations and relays each one,
// with the same propagation policy as ScanCarts.
func (p *Processor) ScanOrders(ctx context.Context, situations []int, daysBack int) (*ScanSummary, error) {
	started := p.now()

	orders, err := p.lister.ListOrders(ctx, situations, daysBack)
	if err != nil {
		return nil, fmt.Errorf("order listing failed: %w", err)
	}

	summary := &ScanSummary{
		RunID:     uuid.NewString(),
		Found:     len(orders),
		Outcomes:  []RecordOutcome{},
		StartedAt: started.UTC().Format(time.RFC3339),
	}

	for i := range orders {
		order := &orders[i]
		if order.Code == "" {
			continue
		}
		summary.Eligible++

		outcome := RecordOutcome{OrderCode: order.Code}

		seen, err := p.ledger.Seen(ctx, orderKey(order.Code))
		if err != nil {
			logger.Warn("ledger check failed, processing anyway", "order_code", order.Code, "error", err.Error())
		}
		if seen {
			outcome.Status = OutcomeSkipped
			outcome.Reason = "already processed"
			summary.Skipped++
			summary.Outcomes = append(summary.Outcomes, outcome)
			continue
		}

		result, err := p.ProcessOrder(ctx, order.Code, nil)
		switch {
		case errors.Is(err, magazord.ErrContactMissing):
			outcome.Status = OutcomeSkipped
			outcome.Reason = "no contact channel"
			summary.Skipped++
		case err != nil:
			outcome.Status = OutcomeError
			outcome.Reason = err.Error()
			summary.Errors++
		default:
			outcome.Status = OutcomeProcessed
			outcome.Customer = result.Event.Person.Name
			outcome.EventType = result.Event.EventType
			summary.Processed++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	p.finishSummary(summary, started)
	logger.Info("order scan complete",
		"run_id", summary.RunID,
		"found", summary.Found,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"errors", summary.Errors)
	return summary, nil
}

func (p *Processor) finishSummary(s *ScanSummary, started time.Time) {
	finished := p.now()
	s.FinishedAt = finished.UTC().Format(time.RFC3339)
	s.ElapsedMS = finished.Sub(started).Milliseconds()
}
