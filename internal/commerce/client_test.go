package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cartsync/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateCoupon_Success(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/coupons/validate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"discountAmount": 50, "newTotal": 150}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	terms, err := client.ValidateCoupon(context.Background(), "SAVE50", dec("200"))
	require.NoError(t, err)

	assert.Equal(t, "SAVE50", gotBody["code"])
	assert.True(t, terms.DiscountAmount.Equal(dec("50")))
	require.NotNil(t, terms.NewTotal)
	assert.True(t, terms.NewTotal.Equal(dec("150")))
}

func TestValidateCoupon_NoNewTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"discountAmount": 25}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	terms, err := client.ValidateCoupon(context.Background(), "SAVE25", dec("100"))
	require.NoError(t, err)
	assert.Nil(t, terms.NewTotal, "absent newTotal stays nil so the caller derives the adjusted total")
}

func TestValidateCoupon_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": "minimum spend not met"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.ValidateCoupon(context.Background(), "MIN100", dec("80"))
	require.ErrorIs(t, err, ErrCouponRejected)
	assert.Contains(t, err.Error(), "minimum spend not met")
}

func TestValidateCoupon_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.ValidateCoupon(context.Background(), "SAVE50", dec("200"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCouponRejected, "a 5xx is not a rejection verdict")
}

func TestValidateCoupon_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := client.ValidateCoupon(context.Background(), "SAVE50", dec("200"))
	require.Error(t, err)
}

func TestPlaceOrder_Success(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"order_id": "ord-123"}`))
	}))
	defer srv.Close()

	snap := model.Snapshot{
		Lines: []model.CartLine{
			{LineID: "l1", ProductID: "p1", VariantID: "v1", UnitPrice: dec("100"), Quantity: 2},
		},
		Subtotal:   dec("200"),
		Coupon:     &model.CouponView{Code: "SAVE50", DiscountAmount: dec("50"), AdjustedTotal: dec("150")},
		FinalTotal: dec("150"),
	}

	client := NewClient(srv.URL, 5*time.Second)
	conf, err := client.PlaceOrder(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "ord-123", conf.OrderID)

	assert.Equal(t, "SAVE50", gotBody["coupon_code"])
	items, ok := gotBody["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestPlaceOrder_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error": "out of stock"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	_, err := client.PlaceOrder(context.Background(), model.Snapshot{FinalTotal: dec("10")})
	require.ErrorIs(t, err, ErrOrderRejected)
	assert.Contains(t, err.Error(), "out of stock")
}
