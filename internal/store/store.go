// Package store owns the cart and any attached coupon. It is the single
// authority for that state: all mutations go through its operations, every
// mutation is persisted through the key-value store, and subscribers are
// notified after each change so the reconciler can re-check coupon
// validity when the subtotal moves.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cartsync/internal/commerce"
	"github.com/fairyhunter13/cartsync/internal/kv"
	"github.com/fairyhunter13/cartsync/internal/model"
)

// persistTimeout bounds each background write to the key-value store.
const persistTimeout = 5 * time.Second

// CouponValidator is the pricing-service boundary used when a coupon is
// applied explicitly.
type CouponValidator interface {
	ValidateCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*commerce.CouponTerms, error)
}

// Event is delivered to subscribers after every mutation. LinesChanged is
// true when cart contents moved (add/remove/quantity/clear) as opposed to
// a coupon-only change; only content changes can invalidate a coupon.
type Event struct {
	Snapshot     model.Snapshot
	LinesChanged bool
}

type persistOp struct {
	key    string
	value  string
	remove bool
}

// Store holds the cart in memory and writes it behind through the
// key-value store. In-memory state is always the authoritative view;
// persistence is fire-and-forget with writes issued in mutation order
// through a single writer goroutine (last write wins).
type Store struct {
	mu      sync.Mutex
	lines   []model.CartLine
	coupon  *model.Coupon
	subs    []func(Event)
	kv      kv.Store
	pricing CouponValidator
	writeCh chan persistOp
	done    chan struct{}
	closing bool
	closed  sync.Once
}

// New restores any persisted cart state and starts the write-behind
// worker. A corrupt or missing blob falls back to an empty cart.
func New(ctx context.Context, kvStore kv.Store, pricing CouponValidator) (*Store, error) {
	s := &Store{
		kv:      kvStore,
		pricing: pricing,
		writeCh: make(chan persistOp, 64),
		done:    make(chan struct{}),
	}
	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	go s.writeLoop()
	return s, nil
}

// Close drains pending persistence writes and stops the worker. A
// mutation landing after Close (a revalidation that was already in
// flight at shutdown) still updates memory but is no longer persisted.
func (s *Store) Close() {
	s.closed.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		close(s.writeCh)
		<-s.done
	})
}

// Subscribe registers a listener invoked synchronously after every
// mutation, in registration order.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// AddLine resolves the unit price for the product/variant pair and either
// increments the quantity of the existing line for that pair or appends a
// new line with quantity 1.
func (s *Store) AddLine(product model.Product, variant *model.Variant) model.Snapshot {
	s.mu.Lock()

	variantID := ""
	if variant != nil {
		variantID = variant.ID
	}

	found := false
	for i := range s.lines {
		if s.lines[i].ProductID == product.ID && s.lines[i].VariantID == variantID {
			s.lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		line := model.CartLine{
			LineID:    uuid.NewString(),
			ProductID: product.ID,
			VariantID: variantID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: model.ResolveUnitPrice(product, variant),
			Quantity:  1,
		}
		if variant != nil {
			line.VariantLabel = variant.Label
		}
		s.lines = append(s.lines, line)
	}

	s.persistCartLocked()
	ev := Event{Snapshot: s.snapshotLocked(), LinesChanged: true}
	subs := s.subs
	s.mu.Unlock()

	notify(subs, ev)
	return ev.Snapshot
}

// RemoveLine deletes the line with the given ID. A missing line is a
// no-op, not an error.
func (s *Store) RemoveLine(lineID string) model.Snapshot {
	s.mu.Lock()

	for i := range s.lines {
		if s.lines[i].LineID == lineID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			break
		}
	}

	s.persistCartLocked()
	ev := Event{Snapshot: s.snapshotLocked(), LinesChanged: true}
	subs := s.subs
	s.mu.Unlock()

	notify(subs, ev)
	return ev.Snapshot
}

// SetQuantityDelta adds delta to the line's quantity. A result below 1
// leaves the quantity unchanged; only RemoveLine removes a line.
func (s *Store) SetQuantityDelta(lineID string, delta int) (model.Snapshot, error) {
	s.mu.Lock()

	idx := -1
	for i := range s.lines {
		if s.lines[i].LineID == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.Snapshot{}, ErrLineNotFound
	}
	if q := s.lines[idx].Quantity + delta; q >= 1 {
		s.lines[idx].Quantity = q
	}

	s.persistCartLocked()
	ev := Event{Snapshot: s.snapshotLocked(), LinesChanged: true}
	subs := s.subs
	s.mu.Unlock()

	notify(subs, ev)
	return ev.Snapshot, nil
}

// Clear empties the cart and drops any coupon.
func (s *Store) Clear() model.Snapshot {
	s.mu.Lock()

	s.lines = nil
	s.coupon = nil
	s.persistCartLocked()
	s.persistCouponLocked()
	ev := Event{Snapshot: s.snapshotLocked(), LinesChanged: true}
	subs := s.subs
	s.mu.Unlock()

	notify(subs, ev)
	return ev.Snapshot
}

// ApplyCoupon normalizes the code and validates it against the current
// subtotal. On success the returned terms become the attached coupon; on
// failure nothing is attached and the error is returned for the caller
// to surface.
func (s *Store) ApplyCoupon(ctx context.Context, code string) (model.Snapshot, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return model.Snapshot{}, ErrEmptyCode
	}

	snap := s.Snapshot()
	if snap.Empty() {
		return model.Snapshot{}, ErrEmptyCart
	}

	terms, err := s.pricing.ValidateCoupon(ctx, normalized, snap.Subtotal)
	if err != nil {
		return model.Snapshot{}, err
	}

	snap = s.SetValidatedCoupon(model.Coupon{
		Code:           normalized,
		DiscountAmount: terms.DiscountAmount,
		NewTotal:       terms.NewTotal,
	})
	if snap.Coupon == nil {
		// The cart emptied while the validation was in flight; the
		// attach was refused.
		return model.Snapshot{}, ErrEmptyCart
	}
	return snap, nil
}

// SetValidatedCoupon attaches a coupon whose terms were confirmed by the
// pricing service. Also used by the reconciler to refresh terms after a
// successful revalidation. Validation runs outside the lock, so the cart
// may have emptied since the call was issued; an empty cart never keeps
// a coupon, and the attach is refused.
func (s *Store) SetValidatedCoupon(coupon model.Coupon) model.Snapshot {
	s.mu.Lock()

	if len(s.lines) == 0 {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}

	s.coupon = &coupon
	s.persistCouponLocked()
	ev := Event{Snapshot: s.snapshotLocked()}
	subs := s.subs
	s.mu.Unlock()

	notify(subs, ev)
	return ev.Snapshot
}

// RemoveCoupon unconditionally detaches the coupon. No network call.
func (s *Store) RemoveCoupon() model.Snapshot {
	s.mu.Lock()

	s.coupon = nil
	s.persistCouponLocked()
	ev := Event{Snapshot: s.snapshotLocked()}
	subs := s.subs
	s.mu.Unlock()

	notify(subs, ev)
	return ev.Snapshot
}

// Snapshot returns the read-only checkout view of the cart.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// NormalizeCode trims and upper-cases a user-entered coupon code. Every
// remote call carries the normalized form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Store) snapshotLocked() model.Snapshot {
	snap := model.Snapshot{
		Lines: make([]model.CartLine, len(s.lines)),
	}
	copy(snap.Lines, s.lines)

	subtotal := decimal.Zero
	for _, line := range s.lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	snap.Subtotal = subtotal
	snap.FinalTotal = subtotal

	if s.coupon != nil {
		adjusted := subtotal.Sub(s.coupon.DiscountAmount)
		if s.coupon.NewTotal != nil {
			adjusted = *s.coupon.NewTotal
		}
		snap.Coupon = &model.CouponView{
			Code:           s.coupon.Code,
			DiscountAmount: s.coupon.DiscountAmount,
			AdjustedTotal:  adjusted,
		}
		snap.FinalTotal = adjusted
	}
	return snap
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

// restore loads persisted lines and coupon. A coupon without lines to
// back it is dropped on the spot.
func (s *Store) restore(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, kv.KeyCart)
	if err != nil {
		return err
	}
	if ok {
		var lines []model.CartLine
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			log.Warn().Err(err).Msg("persisted cart is corrupt, starting empty")
		} else {
			s.lines = lines
		}
	}

	raw, ok, err = s.kv.Get(ctx, kv.KeyCoupon)
	if err != nil {
		return err
	}
	if ok && len(s.lines) > 0 {
		var coupon model.Coupon
		if err := json.Unmarshal([]byte(raw), &coupon); err != nil {
			log.Warn().Err(err).Msg("persisted coupon is corrupt, dropping")
		} else {
			s.coupon = &coupon
		}
	}
	return nil
}

func (s *Store) persistCartLocked() {
	lines := s.lines
	if lines == nil {
		lines = []model.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		log.Error().Err(err).Msg("encode cart for persistence")
		return
	}
	s.enqueueLocked(persistOp{key: kv.KeyCart, value: string(raw)})
}

func (s *Store) persistCouponLocked() {
	if s.coupon == nil {
		s.enqueueLocked(persistOp{key: kv.KeyCoupon, remove: true})
		return
	}
	raw, err := json.Marshal(s.coupon)
	if err != nil {
		log.Error().Err(err).Msg("encode coupon for persistence")
		return
	}
	s.enqueueLocked(persistOp{key: kv.KeyCoupon, value: string(raw)})
}

// enqueueLocked hands an op to the writer unless the worker is shutting
// down; Close sets closing under the same lock, so no send can race the
// channel close.
func (s *Store) enqueueLocked(op persistOp) {
	if s.closing {
		log.Warn().Str("key", op.key).Msg("store closed, dropping persistence write")
		return
	}
	s.writeCh <- op
}

// writeLoop applies persistence ops one at a time in the order they were
// issued. Failures are logged only; the in-memory state stays
// authoritative for the session.
func (s *Store) writeLoop() {
	defer close(s.done)
	for op := range s.writeCh {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		var err error
		if op.remove {
			err = s.kv.Remove(ctx, op.key)
		} else {
			err = s.kv.Set(ctx, op.key, op.value)
		}
		cancel()
		if err != nil {
			log.Error().Err(err).Str("key", op.key).Msg("persist cart state")
		}
	}
}
