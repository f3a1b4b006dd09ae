package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cartsync/internal/model"
)

// TestNew verifies that New() returns a properly configured validator
func TestNew(t *testing.T) {
	v := New()
	require.NotNil(t, v, "New() should return a non-nil validator")
}

// TestNotblankValidator tests the custom notblank validation
func TestNotblankValidator(t *testing.T) {
	v := New()

	type TestStruct struct {
		Code string `validate:"notblank"`
	}

	testCases := []struct {
		name        string
		input       string
		expectError bool
	}{
		{"valid_string", "SAVE50", false},
		{"valid_with_spaces", "  SAVE50  ", false},
		{"whitespace_only_spaces", "   ", true},
		{"whitespace_only_tabs", "\t\t", true},
		{"whitespace_mixed", " \t\n ", true},
		{"empty_string", "", true},
		{"unicode_content", "優待", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(TestStruct{Code: tc.input})
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestApplyCouponRequestRules exercises the rules on the coupon DTO.
func TestApplyCouponRequestRules(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(model.ApplyCouponRequest{Code: "SAVE50"}))
	assert.Error(t, v.Struct(model.ApplyCouponRequest{Code: ""}), "required")
	assert.Error(t, v.Struct(model.ApplyCouponRequest{Code: "   "}), "notblank")
}

// TestAdjustQuantityRequestRules exercises the rules on the quantity DTO.
func TestAdjustQuantityRequestRules(t *testing.T) {
	v := New()

	delta := -1
	assert.NoError(t, v.Struct(model.AdjustQuantityRequest{Delta: &delta}))

	zero := 0
	assert.Error(t, v.Struct(model.AdjustQuantityRequest{Delta: &zero}), "ne=0")
	assert.Error(t, v.Struct(model.AdjustQuantityRequest{}), "required")
}

// TestNotblankOnNonStringField tests that notblank handles non-string fields gracefully
func TestNotblankOnNonStringField(t *testing.T) {
	v := New()

	type TestStructInt struct {
		Value int `validate:"notblank"`
	}

	assert.NoError(t, v.Struct(TestStructInt{Value: 0}), "notblank should pass for non-string types")
}
