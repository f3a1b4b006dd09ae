package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cartsync/internal/commerce"
	"github.com/fairyhunter13/cartsync/internal/model"
)

// mockOrderPlacer is a mock implementation of OrderPlacer.
type mockOrderPlacer struct {
	placeOrderFn func(ctx context.Context, snap model.Snapshot) (*commerce.OrderConfirmation, error)
}

func (m *mockOrderPlacer) PlaceOrder(ctx context.Context, snap model.Snapshot) (*commerce.OrderConfirmation, error) {
	if m.placeOrderFn != nil {
		return m.placeOrderFn(ctx, snap)
	}
	return &commerce.OrderConfirmation{OrderID: "ord-1"}, nil
}

func setupCheckoutApp(mockStore *mockCartStore, orders *mockOrderPlacer) *fiber.App {
	app := fiber.New()
	h := NewCheckoutHandler(mockStore, orders)
	app.Post("/api/checkout", h.Checkout)
	return app
}

func checkoutSnapshot() model.Snapshot {
	return model.Snapshot{
		Lines:      []model.CartLine{{LineID: "l1", ProductID: "p1", UnitPrice: decimal.NewFromInt(100), Quantity: 2}},
		Subtotal:   decimal.NewFromInt(200),
		Coupon:     &model.CouponView{Code: "SAVE50", DiscountAmount: decimal.NewFromInt(50), AdjustedTotal: decimal.NewFromInt(150)},
		FinalTotal: decimal.NewFromInt(150),
	}
}

func TestCheckout_Success_ClearsCart(t *testing.T) {
	cleared := false
	mockStore := &mockCartStore{
		snapshotFn: func() model.Snapshot { return checkoutSnapshot() },
		clearFn: func() model.Snapshot {
			cleared = true
			return model.Snapshot{}
		},
	}
	var placed model.Snapshot
	orders := &mockOrderPlacer{
		placeOrderFn: func(_ context.Context, snap model.Snapshot) (*commerce.OrderConfirmation, error) {
			placed = snap
			return &commerce.OrderConfirmation{OrderID: "ord-42"}, nil
		},
	}
	app := setupCheckoutApp(mockStore, orders)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/checkout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var conf commerce.OrderConfirmation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conf))
	assert.Equal(t, "ord-42", conf.OrderID)

	assert.True(t, cleared, "cart is cleared after the order is accepted")
	assert.True(t, placed.FinalTotal.Equal(decimal.NewFromInt(150)), "order carries the snapshot the user saw")
}

func TestCheckout_EmptyCart(t *testing.T) {
	app := setupCheckoutApp(&mockCartStore{}, &mockOrderPlacer{})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/checkout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCheckout_Rejected_KeepsCart(t *testing.T) {
	cleared := false
	mockStore := &mockCartStore{
		snapshotFn: func() model.Snapshot { return checkoutSnapshot() },
		clearFn: func() model.Snapshot {
			cleared = true
			return model.Snapshot{}
		},
	}
	orders := &mockOrderPlacer{
		placeOrderFn: func(context.Context, model.Snapshot) (*commerce.OrderConfirmation, error) {
			return nil, commerce.ErrOrderRejected
		},
	}
	app := setupCheckoutApp(mockStore, orders)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/checkout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.False(t, cleared, "a rejected order must not clear the cart")
}

func TestCheckout_ServiceUnavailable(t *testing.T) {
	mockStore := &mockCartStore{
		snapshotFn: func() model.Snapshot { return checkoutSnapshot() },
	}
	orders := &mockOrderPlacer{
		placeOrderFn: func(context.Context, model.Snapshot) (*commerce.OrderConfirmation, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	app := setupCheckoutApp(mockStore, orders)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/checkout", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}
