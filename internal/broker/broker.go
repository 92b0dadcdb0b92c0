// Package broker provides a paper-trading broker that participates in the
// dispatch loop as a subject. It runs at the last dispatch priority so that
// every feed for the current step has already delivered its bar before
// pending orders are matched against the step's prices.
package broker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahroberts/tickflow/internal/dispatch"
	"github.com/ahroberts/tickflow/internal/feed"
	"github.com/ahroberts/tickflow/internal/log"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderType selects the matching rule for an order.
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// OrderState tracks an order through its lifecycle.
type OrderState string

const (
	StateSubmitted OrderState = "submitted"
	StateFilled    OrderState = "filled"
	StateCanceled  OrderState = "canceled"
	StateRejected  OrderState = "rejected"
)

// Order is a request to trade. Limit is only consulted for limit orders.
type Order struct {
	ID          string     `json:"id"`
	Symbol      string     `json:"symbol"`
	Side        Side       `json:"side"`
	Type        OrderType  `json:"type"`
	Qty         float64    `json:"qty"`
	Limit       float64    `json:"limit,omitempty"`
	State       OrderState `json:"state"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// Fill records an executed order.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"`
	DateTime time.Time `json:"datetime"`
}

// Paper simulates order execution against the prices the feeds deliver.
// It holds cash and positions, matches pending orders once per dispatch
// step, and notifies fill subscribers synchronously during its step.
type Paper struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]float64
	pending   []*Order
	fills     []Fill
	lastPrice map[string]float64

	feeds  []*feed.BarFeed
	onFill feed.Notifier[Fill]
	disp   *dispatch.Dispatcher
	logger *slog.Logger
}

// NewPaper returns a broker seeded with cash. The given feeds drive both the
// broker's price book and its end-of-data signal: the broker is done when
// every driving feed is done.
func NewPaper(cash float64, feeds ...*feed.BarFeed) *Paper {
	b := &Paper{
		cash:      cash,
		positions: make(map[string]float64),
		lastPrice: make(map[string]float64),
		feeds:     feeds,
		logger:    log.WithComponent("broker"),
	}
	for _, f := range feeds {
		f.OnBar(func(bar feed.Bar) {
			b.mu.Lock()
			b.lastPrice[bar.Symbol] = bar.Close
			b.mu.Unlock()
		})
	}
	return b
}

func (b *Paper) String() string { return "broker:paper" }

// OnFill registers fn for every fill. The returned function unsubscribes.
func (b *Paper) OnFill(fn func(Fill)) func() {
	return b.onFill.Subscribe(fn)
}

// SubmitOrder queues an order for matching on the next dispatch step and
// returns its ID.
func (b *Paper) SubmitOrder(o Order) (string, error) {
	if o.Symbol == "" {
		return "", fmt.Errorf("order has no symbol")
	}
	if o.Qty <= 0 {
		return "", fmt.Errorf("order qty must be positive, got %v", o.Qty)
	}
	switch o.Side {
	case Buy, Sell:
	default:
		return "", fmt.Errorf("unknown order side %q", o.Side)
	}
	switch o.Type {
	case Market:
	case Limit:
		if o.Limit <= 0 {
			return "", fmt.Errorf("limit order needs a positive limit price")
		}
	default:
		return "", fmt.Errorf("unknown order type %q", o.Type)
	}

	o.ID = uuid.NewString()
	o.State = StateSubmitted
	o.SubmittedAt = b.now()

	b.mu.Lock()
	b.pending = append(b.pending, &o)
	b.mu.Unlock()

	b.logger.Info("order submitted",
		"order_id", o.ID, "symbol", o.Symbol, "side", o.Side, "type", o.Type, "qty", o.Qty)
	return o.ID, nil
}

// CancelOrder removes a pending order.
func (b *Paper) CancelOrder(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, o := range b.pending {
		if o.ID == id {
			o.State = StateCanceled
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no pending order %s", id)
}

// Cash returns the current cash balance.
func (b *Paper) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// Position returns the held quantity for symbol, zero if flat.
func (b *Paper) Position(symbol string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positions[symbol]
}

// Fills returns a copy of all fills so far in execution order.
func (b *Paper) Fills() []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Fill, len(b.fills))
	copy(out, b.fills)
	return out
}

// PendingOrders returns a snapshot of orders awaiting a match.
func (b *Paper) PendingOrders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Order, 0, len(b.pending))
	for _, o := range b.pending {
		out = append(out, *o)
	}
	return out
}

func (b *Paper) Start() error { return nil }
func (b *Paper) Stop() error  { return nil }
func (b *Paper) Join() error  { return nil }

// Eof reports whether every driving feed has run out of data. A broker with
// no feeds never ends the run on its own.
func (b *Paper) Eof() bool {
	if len(b.feeds) == 0 {
		return false
	}
	for _, f := range b.feeds {
		if !f.Eof() {
			return false
		}
	}
	return true
}

// PeekDateTime returns nil so the broker participates in every step.
func (b *Paper) PeekDateTime() *time.Time { return nil }

// Dispatch matches pending orders against the prices delivered earlier in
// this step. It reports true when at least one order filled.
func (b *Paper) Dispatch() (bool, error) {
	now := b.now()

	b.mu.Lock()
	var filled []Fill
	remaining := b.pending[:0]
	for _, o := range b.pending {
		fill, done := b.match(o, now)
		if !done {
			remaining = append(remaining, o)
			continue
		}
		if fill != nil {
			filled = append(filled, *fill)
		}
	}
	b.pending = remaining
	b.mu.Unlock()

	for _, f := range filled {
		b.logger.Info("order filled",
			"order_id", f.OrderID, "symbol", f.Symbol, "side", f.Side, "qty", f.Qty, "price", f.Price)
		b.onFill.Emit(f)
	}
	return len(filled) > 0, nil
}

// match decides whether o executes at the current prices. It reports done
// when the order leaves the pending book, with a nil fill for rejections.
// Caller holds mu.
func (b *Paper) match(o *Order, now time.Time) (*Fill, bool) {
	price, known := b.lastPrice[o.Symbol]
	if !known {
		return nil, false
	}

	if o.Type == Limit {
		if o.Side == Buy && price > o.Limit {
			return nil, false
		}
		if o.Side == Sell && price < o.Limit {
			return nil, false
		}
		price = o.Limit
	}

	if o.Side == Buy {
		cost := price * o.Qty
		if cost > b.cash {
			o.State = StateRejected
			b.logger.Warn("order rejected, insufficient cash",
				"order_id", o.ID, "cost", cost, "cash", b.cash)
			return nil, true
		}
		b.cash -= cost
		b.positions[o.Symbol] += o.Qty
	} else {
		b.cash += price * o.Qty
		b.positions[o.Symbol] -= o.Qty
	}

	o.State = StateFilled
	f := Fill{
		OrderID:  o.ID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Qty:      o.Qty,
		Price:    price,
		DateTime: now,
	}
	b.fills = append(b.fills, f)
	return &f, true
}

func (b *Paper) DispatchPriority() dispatch.Priority { return dispatch.PriorityLast }

func (b *Paper) OnDispatcherRegistered(d *dispatch.Dispatcher) {
	b.mu.Lock()
	b.disp = d
	b.mu.Unlock()
}

// now returns the dispatcher's current step time when a run is in flight,
// falling back to wall clock for orders submitted outside a run.
func (b *Paper) now() time.Time {
	b.mu.Lock()
	d := b.disp
	b.mu.Unlock()
	if d != nil {
		if t := d.CurrentDateTime(); t != nil {
			return *t
		}
	}
	return time.Now().UTC()
}
