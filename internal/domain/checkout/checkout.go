// Package checkout assembles immutable orders from the cart. Submission is
// all-or-nothing: either an order is recorded and the cart cleared, or both
// stay exactly as they were.
package checkout

import (
	"context"
	"crypto/rand"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmstore/storefront/internal/domain/cart"
	"github.com/mmstore/storefront/internal/domain/order"
	"github.com/mmstore/storefront/internal/domain/user"
)

var (
	// ErrEmptyCart blocks checkout before any other work happens.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPaymentDeclined is surfaced when settlement fails; the cart is left
	// intact for a retry.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrCheckoutInProgress rejects a submission arriving while another one is
	// still settling.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// State tracks the assembler through a submission.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Settler stands in for the payment gateway round trip. Settle blocks until
// settlement resolves and returns nil on approval.
type Settler interface {
	Settle(ctx context.Context, amount decimal.Decimal) error
}

// DelaySettler approves every payment after a fixed delay. Cancelling the
// context cuts the wait short and fails the settlement.
type DelaySettler struct {
	Delay time.Duration
}

func (s DelaySettler) Settle(ctx context.Context, _ decimal.Decimal) error {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DeclineSettler rejects every payment. Useful in tests and demos of the
// failure path.
type DeclineSettler struct{}

func (DeclineSettler) Settle(_ context.Context, _ decimal.Decimal) error {
	return ErrPaymentDeclined
}

// Assembler validates the checkout form, runs settlement, and commits the
// order: append to the order history, then clear the cart.
type Assembler struct {
	cart    *cart.Store
	users   *user.Store
	settler Settler
	lg      *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// NewAssembler wires the assembler to its collaborators.
func NewAssembler(c *cart.Store, u *user.Store, settler Settler, lg *zap.Logger) *Assembler {
	return &Assembler{
		cart:    c,
		users:   u,
		settler: settler,
		lg:      lg.Named("checkout"),
		now:     time.Now,
		state:   StateIdle,
	}
}

// State returns the assembler's current submission state.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Assembler) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// begin moves the assembler to Processing, rejecting re-entry while a prior
// submission is still settling.
func (a *Assembler) begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateProcessing {
		return ErrCheckoutInProgress
	}
	a.state = StateProcessing
	return nil
}

// Submit runs a checkout. Preconditions (non-empty cart, valid form) are
// checked before the state machine leaves Idle; settlement failures move to
// Failed and leave every store untouched. On success the order is recorded,
// the cart cleared, and the frozen order returned.
func (a *Assembler) Submit(ctx context.Context, form Form) (*order.Order, error) {
	if a.cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	if err := a.begin(); err != nil {
		return nil, err
	}

	if err := a.settler.Settle(ctx, a.cart.TotalPrice().Round(2)); err != nil {
		a.setState(StateFailed)
		a.lg.Warn("settlement failed", zap.Error(err))
		if errors.Is(err, ErrPaymentDeclined) {
			return nil, err
		}
		return nil, errors.Wrap(err, "settle payment")
	}

	// Frozen copy: the cart may have changed during settlement, so the
	// snapshot is captured after it resolves and the total is derived from
	// that snapshot alone, never from a second cart read.
	items := a.cart.Items()
	if len(items) == 0 {
		a.setState(StateFailed)
		return nil, ErrEmptyCart
	}
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Total())
	}
	total = total.Round(2)

	now := a.now()
	o := order.Order{
		ID:     newOrderID(now),
		UserID: a.users.CurrentID(),
		Items:  items,
		Total:  total,
		Status: order.StatusProcessing,
		ShippingAddress: order.Address{
			Street:  form.Street,
			City:    form.City,
			State:   form.State,
			ZipCode: form.ZipCode,
			Country: form.Country,
		},
		PaymentMethod: string(form.Payment),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Consume exactly the snapshotted lines: anything added to the cart
	// during the commit window survives instead of being wiped.
	a.users.AddOrder(ctx, o)
	a.cart.Consume(ctx, items)
	a.setState(StateComplete)

	a.lg.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total.String()),
	)
	return &o, nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newOrderID builds a time-based id with a random suffix, so two submissions
// in the same millisecond still get distinct ids.
func newOrderID(now time.Time) string {
	var buf [9]byte
	rand.Read(buf[:])
	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = base36[int(b)%len(base36)]
	}
	return "ORD-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix)
}
