package zarinpal

import (
	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

type tokenPayload struct {
	MerchantID  string         `json:"merchant_id"`
	Amount      int64          `json:"amount"`
	Description string         `json:"description"`
	CallbackURL string         `json:"callback_url"`
	Metadata    *tokenMetadata `json:"metadata,omitempty"`
}

type tokenMetadata struct {
	Mobile string `json:"mobile,omitempty"`
	Email  string `json:"email,omitempty"`
}

type verifyPayload struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

// buildTokenPayload assembles the request.json body. Metadata is omitted
// entirely when the payer supplied neither phone nor email.
func buildTokenPayload(merchantID string, req *ports.PayRequest) (tokenPayload, error) {
	if req.Reference == "" {
		return tokenPayload{}, domain.ErrMissingField.WithDetail("field", "reference")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return tokenPayload{}, domain.ErrMissingField.WithDetail("field", "amount")
	}
	if req.Description == "" {
		return tokenPayload{}, domain.ErrMissingField.WithDetail("field", "description")
	}

	payload := tokenPayload{
		MerchantID:  merchantID,
		Amount:      req.Amount.IntPart(),
		Description: req.Description,
		CallbackURL: req.CallbackURL,
	}

	if req.Customer.Phone != "" || req.Customer.Email != "" {
		payload.Metadata = &tokenMetadata{
			Mobile: req.Customer.Phone,
			Email:  req.Customer.Email,
		}
	}

	return payload, nil
}

// FeePolicy computes the aggregator's domestic fee.
type FeePolicy struct {
	Active     bool
	Percentage decimal.Decimal
	UpperLimit decimal.Decimal
}

// ComputeFee returns floor(percentage * amount / 100) capped at the
// configured upper limit, or zero when the fee feature is disabled.
func (p FeePolicy) ComputeFee(amount decimal.Decimal) decimal.Decimal {
	if !p.Active {
		return decimal.Zero
	}
	fee := p.Percentage.Mul(amount).Div(decimal.NewFromInt(100)).Floor()
	if fee.GreaterThan(p.UpperLimit) {
		return p.UpperLimit
	}
	return fee
}
