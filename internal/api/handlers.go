package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/magazord-bridge/internal/config"
	"github.com/ignite/magazord-bridge/internal/dedup"
	"github.com/ignite/magazord-bridge/internal/ghl"
	"github.com/ignite/magazord-bridge/internal/magazord"
	"github.com/ignite/magazord-bridge/internal/pkg/httputil"
	"github.com/ignite/magazord-bridge/internal/relay"
)

// RelayService is the orchestration surface the handlers call.
// *relay.Processor satisfies it; tests substitute a stub.
type RelayService interface {
	ProcessCart(ctx context.Context, cartID int, prefetched *magazord.Cart, headers map[string]string) (*relay.ProcessResult, error)
	ProcessOrder(ctx context.Context, code string, headers map[string]string) (*relay.ProcessResult, error)
	ScanCarts(ctx context.Context, limit, daysBack int) (*relay.ScanSummary, error)
	ScanOrders(ctx context.Context, situations []int, daysBack int) (*relay.ScanSummary, error)
}

// Handlers holds the HTTP handlers for the trigger surface.
type Handlers struct {
	relay    RelayService
	ledger   dedup.Ledger
	defaults config.DefaultsConfig
}

// NewHandlers creates the handler set.
func NewHandlers(relaySvc RelayService, ledger dedup.Ledger, defaults config.DefaultsConfig) *Handlers {
	return &Handlers{relay: relaySvc, ledger: ledger, defaults: defaults}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// HealthCheck reports service identity.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":    "ok",
		"service":   "magazord-crm-bridge",
		"timestamp": timestamp(),
	})
}

// triggerRequest is the accepted body for the single-record endpoints.
// Every field can alternatively arrive as a query parameter.
type triggerRequest struct {
	CartID    int    `json:"cart_id"`
	OrderCode string `json:"order_code"`
	Limit     int    `json:"limit"`
	Days      int    `json:"days"`
	Statuses  []int  `json:"situations"`
}

// decodeTrigger reads the optional JSON body; an empty or absent body is
// fine because query parameters are an equal citizen.
func decodeTrigger(r *http.Request) triggerRequest {
	var req triggerRequest
	if r.Body != nil {
		// Best-effort: malformed bodies fall back to query params.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.CartID == 0 {
		if v := r.URL.Query().Get("cart_id"); v != "" {
			req.CartID, _ = strconv.Atoi(v)
		}
	}
	if req.OrderCode == "" {
		req.OrderCode = r.URL.Query().Get("order_code")
	}
	if req.Limit == 0 {
		if v := r.URL.Query().Get("limit"); v != "" {
			req.Limit, _ = strconv.Atoi(v)
		}
	}
	if req.Days == 0 {
		if v := r.URL.Query().Get("days"); v != "" {
			req.Days, _ = strconv.Atoi(v)
		}
	}
	if len(req.Statuses) == 0 {
		if v := r.URL.Query().Get("situations"); v != "" {
			for _, part := range strings.Split(v, ",") {
				if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
					req.Statuses = append(req.Statuses, n)
				}
			}
		}
	}
	return req
}

// inboundHeaders flattens the request headers for diagnostic pass-through
// on the canonical event.
func inboundHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return headers
}

// ProcessCart relays a single cart to the CRM.
func (h *Handlers) ProcessCart(w http.ResponseWriter, r *http.Request) {
	req := decodeTrigger(r)
	if req.CartID == 0 {
		httputil.BadRequest(w, "cart_id parameter is required")
		return
	}

	result, err := h.relay.ProcessCart(r.Context(), req.CartID, nil, inboundHeaders(r))
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"success":    true,
		"message":    "cart processed and delivered",
		"cart_id":    req.CartID,
		"order_id":   result.Event.OrderID,
		"event_type": result.Event.EventType,
		"delivery":   result.Delivery,
		"timestamp":  timestamp(),
	})
}

// ProcessOrder relays a single order (with tracking, when available).
func (h *Handlers) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	req := decodeTrigger(r)
	if req.OrderCode == "" {
		httputil.BadRequest(w, "order_code parameter is required")
		return
	}

	result, err := h.relay.ProcessOrder(r.Context(), req.OrderCode, inboundHeaders(r))
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"success":    true,
		"message":    "order processed and delivered",
		"order_code": req.OrderCode,
		"order_id":   result.Event.OrderID,
		"event_type": result.Event.EventType,
		"delivery":   result.Delivery,
		"timestamp":  timestamp(),
	})
}

// writeProcessError maps pipeline error kinds onto HTTP statuses.
func (h *Handlers) writeProcessError(w http.ResponseWriter, err error) {
	var deliveryErr *ghl.DeliveryError
	switch {
	case errors.Is(err, magazord.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, magazord.ErrInvalidState):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, magazord.ErrMissingLink),
		errors.Is(err, magazord.ErrContactMissing),
		errors.Is(err, magazord.ErrValidation):
		httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &deliveryErr):
		httputil.Error(w, http.StatusBadGateway, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

// ScanCarts runs a windowed cart scan and relays every eligible cart.
// Partial failure still returns 200 with the structured summary; only a
// failed listing is a 500.
func (h *Handlers) ScanCarts(w http.ResponseWriter, r *http.Request) {
	req := decodeTrigger(r)
	if req.Limit == 0 {
		req.Limit = h.defaults.ScanLimit
	}
	if req.Days == 0 {
		req.Days = h.defaults.DaysLookback
	}

	summary, err := h.relay.ScanCarts(r.Context(), req.Limit, req.Days)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"success":   true,
		"message":   scanMessage(summary),
		"summary":   summary,
		"timestamp": timestamp(),
	})
}

// ScanOrders runs an order scan over the requested situations.
func (h *Handlers) ScanOrders(w http.ResponseWriter, r *http.Request) {
	req := decodeTrigger(r)
	if req.Days == 0 {
		req.Days = h.defaults.DaysLookback
	}
	if len(req.Statuses) == 0 {
		req.Statuses = h.defaults.OrderSituations
	}

	summary, err := h.relay.ScanOrders(r.Context(), req.Statuses, req.Days)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]any{
		"success":   true,
		"message":   scanMessage(summary),
		"summary":   summary,
		"timestamp": timestamp(),
	})
}

func scanMessage(s *relay.ScanSummary) string {
	return "scan complete: " + strconv.Itoa(s.Processed) + " delivered, " +
		strconv.Itoa(s.Skipped) + " skipped, " + strconv.Itoa(s.Errors) + " errors"
}

// DedupStats reports the ledger size.
func (h *Handlers) DedupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// DedupReset clears the ledger (operational/test utility).
func (h *Handlers) DedupReset(w http.ResponseWriter, r *http.Request) {
	removed, err := h.ledger.Reset(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"success":   true,
		"message":   "dedup ledger cleared",
		"removed":   removed,
		"timestamp": timestamp(),
	})
}
