package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/cartsync/internal/commerce"
	"github.com/fairyhunter13/cartsync/internal/model"
	"github.com/fairyhunter13/cartsync/internal/store"
)

// CartStoreInterface defines the store operations the cart endpoints use.
type CartStoreInterface interface {
	AddLine(product model.Product, variant *model.Variant) model.Snapshot
	RemoveLine(lineID string) model.Snapshot
	SetQuantityDelta(lineID string, delta int) (model.Snapshot, error)
	Clear() model.Snapshot
	ApplyCoupon(ctx context.Context, code string) (model.Snapshot, error)
	RemoveCoupon() model.Snapshot
	Snapshot() model.Snapshot
}

// CartHandler handles HTTP requests for cart and coupon operations.
type CartHandler struct {
	store     CartStoreInterface
	validator *validator.Validate
}

// NewCartHandler creates a new CartHandler with the given store and validator.
func NewCartHandler(s CartStoreInterface, v *validator.Validate) *CartHandler {
	return &CartHandler{store: s, validator: v}
}

// formatValidationError converts validator errors to consistent
// "invalid request: ..." messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fieldName(fe)
			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required"
			case "notblank":
				return "invalid request: " + field + " cannot be whitespace only"
			case "max":
				return "invalid request: " + field + " exceeds maximum length"
			case "ne":
				return "invalid request: " + field + " must not be zero"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// fieldName maps a struct field to its wire name.
func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "ID":
		return "id"
	case "FinalPrice":
		return "final_price"
	case "ImageURL":
		return "image_url"
	default:
		return strings.ToLower(fe.Field())
	}
}

// GetCart handles GET /api/cart requests.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	return c.JSON(h.store.Snapshot())
}

// AddItem handles POST /api/cart/items requests. An item already in the
// cart for the same product/variant pair has its quantity incremented.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req model.AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	finalPrice, err := decimal.NewFromString(req.Product.FinalPrice)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: final_price is not a number"})
	}
	product := model.Product{
		ID:         req.Product.ID,
		Name:       req.Product.Name,
		ImageURL:   req.Product.ImageURL,
		FinalPrice: finalPrice,
	}

	var variant *model.Variant
	if req.Variant != nil {
		offer, modifier, err := parseVariantPrices(req.Variant.OfferPrice, req.Variant.PriceModifier)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: variant price is not a number"})
		}
		variant = &model.Variant{
			ID:            req.Variant.ID,
			Label:         req.Variant.Label,
			OfferPrice:    offer,
			PriceModifier: modifier,
		}
	}

	snap := h.store.AddLine(product, variant)
	log.Info().Str("product_id", product.ID).Int("lines", len(snap.Lines)).Msg("item added to cart")
	return c.JSON(snap)
}

func parseVariantPrices(offer, modifier string) (decimal.Decimal, decimal.Decimal, error) {
	o := decimal.Zero
	m := decimal.Zero
	var err error
	if offer != "" {
		if o, err = decimal.NewFromString(offer); err != nil {
			return o, m, err
		}
	}
	if modifier != "" {
		if m, err = decimal.NewFromString(modifier); err != nil {
			return o, m, err
		}
	}
	return o, m, nil
}

// AdjustQuantity handles PATCH /api/cart/items/:lineID requests.
func (h *CartHandler) AdjustQuantity(c *fiber.Ctx) error {
	lineID := c.Params("lineID")

	var req model.AdjustQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	snap, err := h.store.SetQuantityDelta(lineID, *req.Delta)
	if err != nil {
		if errors.Is(err, store.ErrLineNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cart line not found"})
		}
		log.Error().Err(err).Str("line_id", lineID).Msg("failed to adjust quantity")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(snap)
}

// RemoveItem handles DELETE /api/cart/items/:lineID requests. Removing a
// line that is not present is not an error.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	return c.JSON(h.store.RemoveLine(c.Params("lineID")))
}

// ClearCart handles DELETE /api/cart requests.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	return c.JSON(h.store.Clear())
}

// ApplyCoupon handles POST /api/cart/coupon requests. A rejected code
// leaves the cart unchanged and carries the rejection reason back.
func (h *CartHandler) ApplyCoupon(c *fiber.Ctx) error {
	var req model.ApplyCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	snap, err := h.store.ApplyCoupon(c.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyCart):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "cart is empty"})
		case errors.Is(err, store.ErrEmptyCode):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code is required"})
		case errors.Is(err, commerce.ErrCouponRejected):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("code", req.Code).Msg("coupon validation failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "pricing service unavailable"})
	}

	log.Info().Str("code", snap.Coupon.Code).Stringer("final_total", snap.FinalTotal).Msg("coupon applied")
	return c.JSON(snap)
}

// RemoveCoupon handles DELETE /api/cart/coupon requests.
func (h *CartHandler) RemoveCoupon(c *fiber.Ctx) error {
	return c.JSON(h.store.RemoveCoupon())
}
