// Package cart owns the mutable shopping cart: an ordered sequence of line
// items, one per distinct product, persisted write-through on every mutation.
package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmstore/storefront/internal/domain/pricing"
	"github.com/mmstore/storefront/internal/domain/product"
	"github.com/mmstore/storefront/internal/storage"
)

// SnapshotName is the fixed name of the cart's durable record.
const SnapshotName = "cart"

// LineItem pairs a product snapshot with a quantity. The ID is stable across
// quantity updates and unique within the cart.
type LineItem struct {
	ID       string          `json:"id"`
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Total returns the discounted price of this line: effective unit price times
// quantity.
func (li LineItem) Total() decimal.Decimal {
	return pricing.LineTotal(li.Product.Price, li.Product.DiscountPercentage, li.Quantity)
}

// Store holds the cart state. All methods are safe for concurrent use; every
// mutation persists the new state before returning. Mutations on unknown line
// item ids are silent no-ops, so stale ids from the UI never fault.
type Store struct {
	mu        sync.Mutex
	items     []LineItem
	snapshots storage.Store
	lg        *zap.Logger

	// newID generates line item ids; overridable in tests.
	newID func() string
}

// snapshot is the persisted wire form of the cart.
type snapshot struct {
	Items []LineItem `json:"items"`
}

// NewStore hydrates a Store from the snapshot store. A missing snapshot
// yields an empty cart; a corrupt one is an error.
func NewStore(ctx context.Context, snapshots storage.Store, lg *zap.Logger) (*Store, error) {
	s := &Store{
		snapshots: snapshots,
		lg:        lg.Named("cart"),
		newID:     func() string { return uuid.New().String() },
	}

	data, err := snapshots.Load(ctx, SnapshotName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s, nil
		}
		return nil, errors.Wrap(err, "load cart snapshot")
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, "decode cart snapshot")
	}
	s.items = snap.Items
	return s, nil
}

// AddItem merges the product into the cart: an existing line for the same
// product id gets its quantity incremented, otherwise a new line is appended.
// Quantities below 1 are treated as 1. Stock checks are the caller's job.
func (s *Store) AddItem(ctx context.Context, p product.Product, quantity int) LineItem {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID == p.ID {
			s.items[i].Quantity += quantity
			s.persist(ctx)
			return s.items[i]
		}
	}

	li := LineItem{ID: s.newID(), Product: p, Quantity: quantity}
	s.items = append(s.items, li)
	s.persist(ctx)
	return li
}

// UpdateQuantity sets the line's quantity. A result of zero or less removes
// the line entirely; a line is never retained at quantity 0. Unknown ids are
// a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, lineItemID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != lineItemID {
			continue
		}
		if quantity <= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		} else {
			s.items[i].Quantity = quantity
		}
		s.persist(ctx)
		return
	}
}

// RemoveItem deletes the line if present; unknown ids are a no-op.
func (s *Store) RemoveItem(ctx context.Context, lineItemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == lineItemID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persist(ctx)
			return
		}
	}
}

// Consume removes the given lines from the cart, matching by line item id and
// subtracting quantities. Lines added, or quantities raised, after the lines
// were snapshotted survive; a line never drops below quantity zero, it is
// removed instead. Unknown ids are a no-op.
func (s *Store) Consume(ctx context.Context, lines []LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, consumed := range lines {
		for i := range s.items {
			if s.items[i].ID != consumed.ID {
				continue
			}
			s.items[i].Quantity -= consumed.Quantity
			if s.items[i].Quantity <= 0 {
				s.items = append(s.items[:i], s.items[i+1:]...)
			}
			break
		}
	}
	s.persist(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persist(ctx)
}

// Items returns a copy of the current line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of distinct line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// TotalItems returns the sum of quantities across all lines, for the badge.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, li := range s.items {
		n += li.Quantity
	}
	return n
}

// TotalPrice returns the sum of discounted line totals.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, li := range s.items {
		total = total.Add(li.Total())
	}
	return total
}

// persist writes the current state through to the snapshot store. Must be
// called with s.mu held. A failed write keeps the in-memory state
// authoritative and is logged, never propagated.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(snapshot{Items: s.items})
	if err != nil {
		s.lg.Error("encode cart snapshot", zap.Error(err))
		return
	}
	if err := s.snapshots.Save(ctx, SnapshotName, data); err != nil {
		s.lg.Error("persist cart snapshot", zap.Error(err))
	}
}
