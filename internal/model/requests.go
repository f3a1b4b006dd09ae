package model

// AddItemRequest is the DTO for POST /api/cart/items.
type AddItemRequest struct {
	Product struct {
		ID         string `json:"id" validate:"required,notblank,max=255"`
		Name       string `json:"name" validate:"max=255"`
		ImageURL   string `json:"image_url" validate:"max=2048"`
		FinalPrice string `json:"final_price" validate:"required,notblank"`
	} `json:"product" validate:"required"`
	Variant *struct {
		ID            string `json:"id" validate:"required,notblank,max=255"`
		Label         string `json:"label" validate:"max=255"`
		OfferPrice    string `json:"offer_price"`
		PriceModifier string `json:"price_modifier"`
	} `json:"variant"`
}

// AdjustQuantityRequest is the DTO for PATCH /api/cart/items/:lineID.
// Delta is signed; zero is rejected because it would be a no-op request.
type AdjustQuantityRequest struct {
	Delta *int `json:"delta" validate:"required,ne=0"`
}

// ApplyCouponRequest is the DTO for POST /api/cart/coupon.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,notblank,max=255"`
}
