package ports

import (
	"context"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// PayRequest is the canonical input for initiating a payment with either
// gateway variant. Amount is denominated in the host currency; the variant's
// request builder applies its own currency normalization.
type PayRequest struct {
	Reference   string
	OrderID     int64
	Amount      decimal.Decimal
	Currency    string
	CallbackURL string
	Description string
	Customer    domain.CustomerMetadata
}

// ConfirmationParams is the {orderId, saleOrderId, saleReferenceId} triple
// every Mellat call besides pay carries.
type ConfirmationParams struct {
	OrderID         int64
	SaleOrderID     int64
	SaleReferenceID int64
}

// BankGateway is the two-phase bank variant (Mellat). Verify must succeed
// strictly before Settle is attempted; Inquiry and Reversal are operator
// operations over the same triple.
type BankGateway interface {
	Pay(ctx context.Context, req *PayRequest) (*domain.GatewayResult, error)
	Verify(ctx context.Context, params ConfirmationParams) (*domain.GatewayResult, error)
	Settle(ctx context.Context, params ConfirmationParams) (*domain.GatewayResult, error)
	Inquiry(ctx context.Context, params ConfirmationParams) (*domain.GatewayResult, error)
	Reversal(ctx context.Context, params ConfirmationParams) (*domain.GatewayResult, error)

	// RedirectURL returns the hosted payment page for a gateway reference.
	RedirectURL(acquirerRef string) string
}

// AggregatorGateway is the single-phase REST variant (ZarinPal).
type AggregatorGateway interface {
	RequestToken(ctx context.Context, req *PayRequest) (*domain.GatewayResult, error)
	Verify(ctx context.Context, amount decimal.Decimal, authority string) (*domain.GatewayResult, error)

	RedirectURL(authority string) string
}
