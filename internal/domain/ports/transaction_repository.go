package ports

import (
	"context"

	"github.com/paygate-ir/payment-service/internal/domain"
)

// TransactionUpdate carries the fields written back by the reconciliation
// service when a transaction reaches a new state. Nil pointers mean
// "leave unchanged".
type TransactionUpdate struct {
	State             domain.TransactionState
	StateMessage      *string
	AcquirerReference *string
	CompletedAt       bool // stamp completion time on this write

	MellatSaleReferenceID *string

	ZarinpalTxRefID    *string
	ZarinpalMaskedCard *string
	ZarinpalHashedCard *string
	ZarinpalFeeType    *string
	ZarinpalFee        *int64
}

// TransactionRepository persists transactions. FindByAcquirerReference
// deliberately returns all matches so callers can detect ambiguous callbacks
// instead of silently picking one.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error

	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// FindByAcquirerReference returns every transaction recorded against the
	// gateway identifier. Mellat RefIds match case-insensitively.
	FindByAcquirerReference(ctx context.Context, variant domain.GatewayVariant, acquirerRef string) ([]*domain.Transaction, error)

	// SetAcquirerReference records the gateway identifier on initiation and
	// moves the transaction from draft to pending.
	SetAcquirerReference(ctx context.Context, reference, acquirerRef string) error

	// UpdateState applies a reconciliation outcome.
	UpdateState(ctx context.Context, reference string, update *TransactionUpdate) error
}
