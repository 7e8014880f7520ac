package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionBuilder provides fluent API for building test transactions.
type TransactionBuilder struct {
	tx *domain.Transaction
}

// NewTransaction creates a new transaction builder with sensible defaults.
func NewTransaction() *TransactionBuilder {
	return &TransactionBuilder{
		tx: &domain.Transaction{
			ID:        uuid.NewString(),
			Reference: "SO042",
			OrderID:   42,
			Variant:   domain.VariantMellat,
			State:     domain.TransactionStateDraft,
			Amount:    decimal.NewFromInt(50000),
			Currency:  "IRR",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
}

func (b *TransactionBuilder) WithReference(reference string) *TransactionBuilder {
	b.tx.Reference = reference
	return b
}

func (b *TransactionBuilder) WithOrderID(orderID int64) *TransactionBuilder {
	b.tx.OrderID = orderID
	return b
}

func (b *TransactionBuilder) WithVariant(variant domain.GatewayVariant) *TransactionBuilder {
	b.tx.Variant = variant
	return b
}

func (b *TransactionBuilder) WithState(state domain.TransactionState) *TransactionBuilder {
	b.tx.State = state
	return b
}

func (b *TransactionBuilder) WithAmount(amount decimal.Decimal) *TransactionBuilder {
	b.tx.Amount = amount
	return b
}

func (b *TransactionBuilder) WithCurrency(currency string) *TransactionBuilder {
	b.tx.Currency = currency
	return b
}

func (b *TransactionBuilder) WithAcquirerReference(acquirerRef string) *TransactionBuilder {
	b.tx.AcquirerReference = &acquirerRef
	return b
}

// Pending is shorthand for a transaction registered with its gateway.
func (b *TransactionBuilder) Pending(acquirerRef string) *TransactionBuilder {
	b.tx.State = domain.TransactionStatePending
	b.tx.AcquirerReference = &acquirerRef
	return b
}

func (b *TransactionBuilder) Build() *domain.Transaction {
	tx := *b.tx
	return &tx
}
