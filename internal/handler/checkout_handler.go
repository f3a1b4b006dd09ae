package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/cartsync/internal/commerce"
	"github.com/fairyhunter13/cartsync/internal/model"
)

// OrderPlacer is the commerce-API boundary for order submission.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, snap model.Snapshot) (*commerce.OrderConfirmation, error)
}

// CheckoutStoreInterface defines the store operations checkout uses.
type CheckoutStoreInterface interface {
	Snapshot() model.Snapshot
	Clear() model.Snapshot
}

// CheckoutHandler submits the current cart as an order.
type CheckoutHandler struct {
	store  CheckoutStoreInterface
	orders OrderPlacer
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(s CheckoutStoreInterface, orders OrderPlacer) *CheckoutHandler {
	return &CheckoutHandler{store: s, orders: orders}
}

// Checkout handles POST /api/checkout requests. The snapshot sent to the
// backend is the one the user saw; the backend re-verifies pricing and
// coupon validity and is the final authority. The cart is cleared only
// after the order is accepted.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	snap := h.store.Snapshot()
	if snap.Empty() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "cart is empty"})
	}

	conf, err := h.orders.PlaceOrder(c.Context(), snap)
	if err != nil {
		if errors.Is(err, commerce.ErrOrderRejected) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Msg("order placement failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "commerce service unavailable"})
	}

	h.store.Clear()
	log.Info().Str("order_id", conf.OrderID).Stringer("final_total", snap.FinalTotal).Msg("order placed")
	return c.JSON(conf)
}
