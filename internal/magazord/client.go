// Package magazord implements the read-side integration with the Magazord
// storefront API: the authenticated client, record validation, and the
// aggregation of carts, orders, people and shipment tracking into the raw
// bundle the transformer consumes.
package magazord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/magazord-bridge/internal/pkg/httpretry"
	"github.com/ignite/magazord-bridge/internal/pkg/logger"
)

// listWindowDays is the hard cap the upstream API places on date-range
// queries. Wider lookbacks are split into sequential windows.
const listWindowDays = 30

// dateLayout is the upstream's local date-time format (DD/MM/YYYY HH:MM:SS).
const dateLayout = "02/01/2006 15:04:05"

// Config holds Magazord API connection settings.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is the Magazord API client. All reads go through a retrying HTTP
// client: transient 5xx and network failures are retried with exponential
// backoff before an error surfaces.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient httpretry.HTTPDoer
	now        func() time.Time
}

// NewClient creates a new Magazord API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, 3),
		now: time.Now,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetClock overrides the time source (useful for testing window math).
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// doRequest performs an authenticated GET against the API and returns the
// raw payload under the response's "data" envelope. A 404 maps to
// ErrNotFound so callers can distinguish absence from failure.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", endpoint, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", err)
	}
	return envelope.Data, nil
}

// listItems unwraps the {"data":{"items":[...]}} list envelope.
func listItems(data json.RawMessage) (json.RawMessage, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var payload listPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse list payload: %w", err)
	}
	return payload.Items, nil
}

// GetCart fetches a cart by id. The API has no direct get-by-id for carts,
// so this is emulated with a filtered single-item listing; an empty result
// is ErrNotFound, not a transport error.
func (c *Client) GetCart(ctx context.Context, id int) (*Cart, error) {
	params := url.Values{}
	params.Set("limit", "1")
	params.Set("page", "1")
	params.Set("id", strconv.Itoa(id))

	data, err := c.doRequest(ctx, "/carrinho", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart %d: %w", id, err)
	}

	items, err := listItems(data)
	if err != nil {
		return nil, fmt.Errorf("cart %d: %w", id, err)
	}

	var carts []Cart
	if len(items) > 0 {
		if err := json.Unmarshal(items, &carts); err != nil {
			return nil, fmt.Errorf("failed to parse cart %d: %w", id, err)
		}
	}
	if len(carts) == 0 {
		return nil, fmt.Errorf("cart %d: %w", id, ErrNotFound)
	}
	return &carts[0], nil
}

// GetOrder fetches an order by its human-readable code, with the contact
// list side-loaded.
func (c *Client) GetOrder(ctx context.Context, code string) (*Order, error) {
	params := url.Values{}
	params.Set("listaContatos", "1")

	data, err := c.doRequest(ctx, "/pedido/"+url.PathEscape(code), params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", code, err)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("order %s: %w", code, ErrNotFound)
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to parse order %s: %w", code, err)
	}
	return &order, nil
}

// GetPerson fetches a person by id, with contacts and addresses side-loaded.
func (c *Client) GetPerson(ctx context.Context, id int) (*Person, error) {
	params := url.Values{}
	params.Set("listaContatos", "1")
	params.Set("listaEnderecos", "1")

	data, err := c.doRequest(ctx, "/pessoa/"+strconv.Itoa(id), params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch person %d: %w", id, err)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("person %d: %w", id, ErrNotFound)
	}

	var person Person
	if err := json.Unmarshal(data, &person); err != nil {
		return nil, fmt.Errorf("failed to parse person %d: %w", id, err)
	}
	return &person, nil
}

// GetTracking fetches shipment tracking for an order. Absence of tracking
// is a normal outcome (the order has not shipped yet), so any failure here
// resolves to (nil, nil) rather than an error.
func (c *Client) GetTracking(ctx context.Context, code string) (*TrackingInfo, error) {
	data, err := c.doRequest(ctx, "/pedido/"+url.PathEscape(code)+"/rastreio", nil)
	if err != nil {
		logger.Debug("no tracking available", "order_code", code, "reason", err.Error())
		return nil, nil
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var info TrackingInfo
	if err := json.Unmarshal(data, &info); err != nil {
		logger.Warn("failed to parse tracking payload", "order_code", code, "error", err.Error())
		return nil, nil
	}
	return &info, nil
}

// ListCarts lists carts updated within the last daysBack days that match
// the given status filter (comma-separated codes, e.g. "2,3").
//
// The API limits each date-range query to 30 days, so wider lookbacks are
// issued as sequential 30-day windows, most recent first. A failed window
// is logged and skipped; one bad batch must not abort the whole listing.
func (c *Client) ListCarts(ctx context.Context, limit, daysBack int, status string) ([]Cart, error) {
	if limit <= 0 {
		limit = 100
	}
	if daysBack <= 0 {
		daysBack = listWindowDays
	}
	if status == "" {
		status = fmt.Sprintf("%d,%d", CartAbandoned, CartConverted)
	}

	batches := (daysBack + listWindowDays - 1) / listWindowDays
	logger.Info("listing carts", "days_back", daysBack, "batches", batches, "status", status)

	var all []Cart
	for i := 0; i < batches; i++ {
		windowEnd := c.now().AddDate(0, 0, -i*listWindowDays)
		windowDays := listWindowDays
		if remaining := daysBack - i*listWindowDays; remaining < windowDays {
			windowDays = remaining
		}
		windowStart := windowEnd.AddDate(0, 0, -windowDays)

		params := url.Values{}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("page", "1")
		params.Set("orderDirection", "desc")
		params.Set("status", status)
		params.Set("dataAtualizacaoInicio", windowStart.Format(dateLayout))
		params.Set("dataAtualizacaoFim", windowEnd.Format(dateLayout))

		data, err := c.doRequest(ctx, "/carrinho", params)
		if err != nil {
			logger.Warn("cart listing window failed, skipping",
				"batch", i+1, "batches", batches, "error", err.Error())
			continue
		}

		items, err := listItems(data)
		if err != nil {
			logger.Warn("cart listing window unparseable, skipping",
				"batch", i+1, "batches", batches, "error", err.Error())
			continue
		}

		var carts []Cart
		if len(items) > 0 {
			if err := json.Unmarshal(items, &carts); err != nil {
				logger.Warn("cart listing window unparseable, skipping",
					"batch", i+1, "batches", batches, "error", err.Error())
				continue
			}
		}
		all = append(all, carts...)
	}

	logger.Info("cart listing complete", "total", len(all), "days_back", daysBack)
	return all, nil
}

// ListOrders lists orders in the given situations created within the last
// daysBack days.
func (c *Client) ListOrders(ctx context.Context, situations []int, daysBack int) ([]Order, error) {
	if len(situations) == 0 {
		situations = []int{OrderAwaitingPayment, OrderPaid, OrderApproved}
	}
	if daysBack <= 0 {
		daysBack = 7
	}

	codes := make([]string, len(situations))
	for i, s := range situations {
		codes[i] = strconv.Itoa(s)
	}

	end := c.now()
	start := end.AddDate(0, 0, -daysBack)

	params := url.Values{}
	params.Set("limit", "100")
	params.Set("page", "1")
	params.Set("orderDirection", "desc")
	params.Set("situacao", strings.Join(codes, ","))
	params.Set("dataHoraInicio", start.Format(dateLayout))
	params.Set("dataHoraFim", end.Format(dateLayout))

	data, err := c.doRequest(ctx, "/pedido", params)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	items, err := listItems(data)
	if err != nil {
		return nil, fmt.Errorf("order listing: %w", err)
	}

	var orders []Order
	if len(items) > 0 {
		if err := json.Unmarshal(items, &orders); err != nil {
			return nil, fmt.Errorf("failed to parse order listing: %w", err)
		}
	}
	return orders, nil
}
