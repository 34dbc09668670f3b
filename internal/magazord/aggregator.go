package magazord

import (
	"context"
	"fmt"

	"github.com/ignite/magazord-bridge/internal/pkg/logger"
)

// Fetcher is the read surface the Aggregator needs. *Client satisfies it;
// tests substitute a stub.
type Fetcher interface {
	GetCart(ctx context.Context, id int) (*Cart, error)
	GetOrder(ctx context.Context, code string) (*Order, error)
	GetPerson(ctx context.Context, id int) (*Person, error)
	GetTracking(ctx context.Context, code string) (*TrackingInfo, error)
}

// Aggregator walks the cart → order → person (→ tracking) foreign-key
// chain and assembles the raw bundle, enforcing the contact gate. It is
// the only component that knows the whole chain.
type Aggregator struct {
	api Fetcher
}

// NewAggregator creates an Aggregator over the given read API.
func NewAggregator(api Fetcher) *Aggregator {
	return &Aggregator{api: api}
}

// CollectFromCart assembles a bundle starting from a cart id. A pre-fetched
// cart (from a batch listing) avoids the redundant emulated get-by-id.
//
// Failure kinds: ErrNotFound (cart/order/person absent), ErrInvalidState
// (cart never completed checkout), ErrMissingLink (broken foreign key),
// ErrContactMissing (person unreachable — callers treat as skip).
func (a *Aggregator) CollectFromCart(ctx context.Context, cartID int, prefetched *Cart) (*Bundle, error) {
	cart := prefetched
	if cart == nil {
		var err error
		cart, err = a.api.GetCart(ctx, cartID)
		if err != nil {
			return nil, err
		}
	}

	if cart.Status != CartAbandoned && cart.Status != CartConverted {
		return nil, fmt.Errorf("cart %d has status %d, expected %d or %d: %w",
			cartID, cart.Status, CartAbandoned, CartConverted, ErrInvalidState)
	}

	orderCode := cart.OrderCode()
	if orderCode == "" {
		return nil, fmt.Errorf("cart %d has no associated order: %w", cartID, ErrMissingLink)
	}

	order, person, err := a.fetchOrderChain(ctx, orderCode)
	if err != nil {
		return nil, fmt.Errorf("cart %d: %w", cartID, err)
	}

	logger.Debug("bundle collected from cart", "cart_id", cartID, "order_code", orderCode)
	return &Bundle{Cart: cart, Order: order, Person: person}, nil
}

// CollectFromOrder assembles a bundle starting from an order code. Tracking
// is attempted but optional: its absence never fails the collection.
func (a *Aggregator) CollectFromOrder(ctx context.Context, code string) (*Bundle, error) {
	order, person, err := a.fetchOrderChain(ctx, code)
	if err != nil {
		return nil, err
	}

	tracking, _ := a.api.GetTracking(ctx, code)

	logger.Debug("bundle collected from order", "order_code", code, "has_tracking", tracking != nil)
	return &Bundle{Order: order, Person: person, Tracking: tracking}, nil
}

// fetchOrderChain fetches the order and its person and applies the contact
// gate shared by both flows.
func (a *Aggregator) fetchOrderChain(ctx context.Context, code string) (*Order, *Person, error) {
	order, err := a.api.GetOrder(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	if order.PersonID == 0 {
		return nil, nil, fmt.Errorf("order %s has no associated person: %w", code, ErrMissingLink)
	}

	person, err := a.api.GetPerson(ctx, order.PersonID)
	if err != nil {
		return nil, nil, err
	}

	if !person.HasContactChannel() {
		return nil, nil, fmt.Errorf("person %d on order %s: %w", person.ID, code, ErrContactMissing)
	}

	return order, person, nil
}
