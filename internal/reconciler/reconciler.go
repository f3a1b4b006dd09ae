// Package reconciler keeps an attached coupon consistent with the cart it
// is attached to. Cart edits change the subtotal, and coupon validity
// depends on that subtotal; the reconciler re-validates the coupon against
// the pricing service after edits settle and evicts it when the service
// no longer confirms it.
package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cartsync/internal/commerce"
	"github.com/fairyhunter13/cartsync/internal/model"
	"github.com/fairyhunter13/cartsync/internal/store"
)

// validateTimeout bounds each background revalidation call.
const validateTimeout = 10 * time.Second

// CartStore is the subset of the store the reconciler drives.
type CartStore interface {
	Subscribe(fn func(store.Event))
	Snapshot() model.Snapshot
	SetValidatedCoupon(coupon model.Coupon) model.Snapshot
	RemoveCoupon() model.Snapshot
}

// CouponValidator is the pricing-service boundary for revalidation.
type CouponValidator interface {
	ValidateCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*commerce.CouponTerms, error)
}

// Reconciler owns a single-slot debounce timer. A burst of cart edits
// collapses into one revalidation carrying the subtotal at the time the
// window elapses; an edit during the window restarts it, so at most one
// call is in flight per settled period. Each call carries a sequence
// token and a response is discarded when a newer edit has been made since
// the call was issued.
type Reconciler struct {
	mu      sync.Mutex
	timer   *time.Timer
	store   CartStore
	pricing CouponValidator
	window  time.Duration
	seq     atomic.Uint64
	closed  bool
}

// New creates a Reconciler and subscribes it to the store's change
// events. window is the debounce interval.
func New(cartStore CartStore, pricing CouponValidator, window time.Duration) *Reconciler {
	r := &Reconciler{
		store:   cartStore,
		pricing: pricing,
		window:  window,
	}
	cartStore.Subscribe(r.onChange)
	return r
}

// Close cancels any pending revalidation. An in-flight call is not
// interrupted; its response is discarded.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.stopTimerLocked()
	r.seq.Add(1)
}

// Kick schedules a revalidation as if the cart had just changed. Used at
// startup for a coupon restored from persistence, which may have gone
// stale across the restart.
func (r *Reconciler) Kick() {
	r.onChange(store.Event{Snapshot: r.store.Snapshot(), LinesChanged: true})
}

func (r *Reconciler) onChange(ev store.Event) {
	// Any change invalidates responses issued before it.
	r.seq.Add(1)

	evict := false

	r.mu.Lock()
	switch {
	case r.closed:
	case ev.Snapshot.Coupon == nil:
		// Nothing attached (or just detached): nothing pending to check.
		r.stopTimerLocked()
	case !ev.LinesChanged:
		// Coupon attach/refresh without a subtotal change.
	case ev.Snapshot.Empty():
		// No subtotal to validate against; evict without a network call.
		r.stopTimerLocked()
		evict = true
	default:
		r.stopTimerLocked()
		r.timer = time.AfterFunc(r.window, r.revalidate)
	}
	r.mu.Unlock()

	if evict {
		log.Info().Str("code", ev.Snapshot.Coupon.Code).Msg("cart emptied, evicting coupon")
		r.store.RemoveCoupon()
	}
}

func (r *Reconciler) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// revalidate runs when the debounce window elapses. The failure path
// deliberately mirrors an explicit apply, except the coupon is evicted
// instead of the error being surfaced: there is no caller to report to.
func (r *Reconciler) revalidate() {
	// Token first: a mutation landing after the snapshot is taken must
	// fail the staleness check below.
	token := r.seq.Load()
	snap := r.store.Snapshot()
	if snap.Coupon == nil || snap.Empty() {
		return
	}
	code := snap.Coupon.Code

	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	terms, err := r.pricing.ValidateCoupon(ctx, code, snap.Subtotal)

	if r.seq.Load() != token {
		// The cart changed while the call was in flight; a newer
		// revalidation owns the outcome.
		log.Debug().Str("code", code).Msg("discarding stale coupon validation response")
		return
	}

	if err != nil {
		log.Warn().Err(err).Str("code", code).Stringer("subtotal", snap.Subtotal).
			Msg("coupon no longer valid for cart, evicting")
		r.store.RemoveCoupon()
		return
	}

	r.store.SetValidatedCoupon(model.Coupon{
		Code:           code,
		DiscountAmount: terms.DiscountAmount,
		NewTotal:       terms.NewTotal,
	})
}
