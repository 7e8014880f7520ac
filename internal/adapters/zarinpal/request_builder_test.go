package zarinpal

import (
	"testing"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenRequest() *ports.PayRequest {
	return &ports.PayRequest{
		Reference:   "SO042",
		OrderID:     42,
		Amount:      decimal.NewFromInt(75000),
		Currency:    "IRR",
		CallbackURL: "https://shop.example.com/payment/zarinpal/redirect",
		Description: "INV/2026/0042",
	}
}

func TestBuildTokenPayload(t *testing.T) {
	payload, err := buildTokenPayload("merchant-uuid", tokenRequest())
	require.NoError(t, err)

	assert.Equal(t, "merchant-uuid", payload.MerchantID)
	assert.Equal(t, int64(75000), payload.Amount)
	assert.Equal(t, "INV/2026/0042", payload.Description)
	assert.Equal(t, "https://shop.example.com/payment/zarinpal/redirect", payload.CallbackURL)
	assert.Nil(t, payload.Metadata, "metadata omitted when payer gave neither phone nor email")
}

func TestBuildTokenPayloadMetadata(t *testing.T) {
	req := tokenRequest()
	req.Customer.Phone = "09120000000"

	payload, err := buildTokenPayload("merchant-uuid", req)
	require.NoError(t, err)
	require.NotNil(t, payload.Metadata)
	assert.Equal(t, "09120000000", payload.Metadata.Mobile)
	assert.Empty(t, payload.Metadata.Email)
}

func TestBuildTokenPayloadValidation(t *testing.T) {
	t.Run("missing description", func(t *testing.T) {
		req := tokenRequest()
		req.Description = ""
		_, err := buildTokenPayload("m", req)
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingField))
	})

	t.Run("missing reference", func(t *testing.T) {
		req := tokenRequest()
		req.Reference = ""
		_, err := buildTokenPayload("m", req)
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingField))
	})

	t.Run("non-positive amount", func(t *testing.T) {
		req := tokenRequest()
		req.Amount = decimal.Zero
		_, err := buildTokenPayload("m", req)
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingField))
	})
}

func TestComputeFee(t *testing.T) {
	policy := FeePolicy{
		Active:     true,
		Percentage: decimal.NewFromFloat(2.5),
		UpperLimit: decimal.NewFromInt(5000),
	}

	tests := []struct {
		name   string
		amount decimal.Decimal
		want   decimal.Decimal
	}{
		{"floored", decimal.NewFromInt(1001), decimal.NewFromInt(25)},       // 25.025 -> 25
		{"exact", decimal.NewFromInt(100000), decimal.NewFromInt(2500)},
		{"capped at upper limit", decimal.NewFromInt(1000000), decimal.NewFromInt(5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.ComputeFee(tt.amount)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestComputeFeeInactive(t *testing.T) {
	policy := FeePolicy{
		Active:     false,
		Percentage: decimal.NewFromFloat(2.5),
		UpperLimit: decimal.NewFromInt(5000),
	}
	assert.True(t, policy.ComputeFee(decimal.NewFromInt(100000)).IsZero())
}
