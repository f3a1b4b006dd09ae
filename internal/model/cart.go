package model

import "github.com/shopspring/decimal"

// Product is the catalog product data needed to add a cart line.
// Display fields are snapshotted into the line at add-time and never
// re-synced from the catalog.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// Variant is an optional size/color/SKU selection for a product.
type Variant struct {
	ID            string          `json:"id"`
	Label         string          `json:"label"`
	OfferPrice    decimal.Decimal `json:"offer_price"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// CartLine is one purchasable unit in the cart. LineID is unique within
// the cart and stable across edits; it is distinct from ProductID because
// the same product with different variants occupies different lines.
type CartLine struct {
	LineID       string          `json:"line_id"`
	ProductID    string          `json:"product_id"`
	VariantID    string          `json:"variant_id,omitempty"`
	Name         string          `json:"name"`
	VariantLabel string          `json:"variant_label,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
}

// Coupon is a discount currently attached to the cart, as last confirmed
// by the pricing service. NewTotal is the service's authoritative
// post-discount total when it provided one; when nil the adjusted total
// is derived as subtotal minus DiscountAmount.
type Coupon struct {
	Code           string           `json:"code"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	NewTotal       *decimal.Decimal `json:"new_total,omitempty"`
}

// CouponView is the checkout-facing view of an attached coupon with the
// adjusted total resolved against the current subtotal.
type CouponView struct {
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	AdjustedTotal  decimal.Decimal `json:"adjusted_total"`
}

// Snapshot is the read-only view of the cart handed to display and to the
// order-submission payload. Subtotal is always recomputed from the lines.
type Snapshot struct {
	Lines      []CartLine      `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Coupon     *CouponView     `json:"coupon,omitempty"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

// Empty reports whether the snapshot has no lines.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// ResolveUnitPrice resolves the price for a new cart line. With a variant
// the precedence is: offer price if positive, else price modifier if
// positive, else the product's final price. Without a variant the
// product's final price is used directly.
func ResolveUnitPrice(product Product, variant *Variant) decimal.Decimal {
	if variant != nil {
		if variant.OfferPrice.IsPositive() {
			return variant.OfferPrice
		}
		if variant.PriceModifier.IsPositive() {
			return variant.PriceModifier
		}
	}
	return product.FinalPrice
}
