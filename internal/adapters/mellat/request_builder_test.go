package mellat

import (
	"testing"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		currency string
		want     decimal.Decimal
		wantErr  bool
	}{
		{"rial passes through", decimal.NewFromInt(50000), "IRR", decimal.NewFromInt(50000), false},
		{"toman converts to rial", decimal.NewFromInt(5000), "IRT", decimal.NewFromInt(50000), false},
		{"euro rejected", decimal.NewFromInt(100), "EUR", decimal.Zero, true},
		{"empty currency rejected", decimal.NewFromInt(100), "", decimal.Zero, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAmount(tt.amount, tt.currency)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsDomainError(err, domain.ErrorCodeUnsupportedCurrency))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestNormalizeAmountDeterministic(t *testing.T) {
	amount := decimal.NewFromFloat(1234.5)
	first, err := NormalizeAmount(amount, "IRT")
	require.NoError(t, err)
	second, err := NormalizeAmount(amount, "IRT")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.True(t, first.Equal(decimal.NewFromInt(12345)))
}

func TestBuildPayParams(t *testing.T) {
	req := &ports.PayRequest{
		Reference:   "SO042",
		OrderID:     42,
		Amount:      decimal.NewFromInt(5000),
		Currency:    "IRT",
		CallbackURL: "https://shop.example.com/payment/mellat/accept",
		Customer: domain.CustomerMetadata{
			PartnerID:   "7",
			PartnerName: "Jane Smith",
		},
	}

	params, err := buildPayParams(req)
	require.NoError(t, err)

	values := make(map[string]string, len(params))
	for _, p := range params {
		values[p.name] = p.value
	}

	assert.Equal(t, "42", values["orderId"])
	assert.Equal(t, "50000", values["amount"])
	assert.Equal(t, "https://shop.example.com/payment/mellat/accept", values["callBackUrl"])
	assert.Equal(t, "0", values["payerId"])
	assert.Equal(t, "Customer Info: partner_id (7), partner_name (Jane Smith)", values["additionalData"])
	assert.Len(t, values["localDate"], 8)
	assert.Len(t, values["localTime"], 6)

	// Credentials are merged by the client, never by the builder
	assert.NotContains(t, values, "terminalId")
	assert.NotContains(t, values, "userName")
	assert.NotContains(t, values, "userPassword")
}

func TestBuildPayParamsValidation(t *testing.T) {
	t.Run("missing reference", func(t *testing.T) {
		_, err := buildPayParams(&ports.PayRequest{Amount: decimal.NewFromInt(100), Currency: "IRR"})
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingField))
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := buildPayParams(&ports.PayRequest{Reference: "SO1", Amount: decimal.Zero, Currency: "IRR"})
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingField))
	})

	t.Run("unsupported currency aborts before any network call", func(t *testing.T) {
		_, err := buildPayParams(&ports.PayRequest{Reference: "SO1", Amount: decimal.NewFromInt(100), Currency: "USD"})
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeUnsupportedCurrency))
	})
}
