package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionState represents the lifecycle state of a payment transaction.
// Transitions are monotonic: draft -> pending -> {done, error}, with cancel
// reachable from pending on an explicit customer cancellation. done, error
// and cancel are terminal.
type TransactionState string

const (
	TransactionStateDraft   TransactionState = "draft"
	TransactionStatePending TransactionState = "pending"
	TransactionStateDone    TransactionState = "done"
	TransactionStateError   TransactionState = "error"
	TransactionStateCancel  TransactionState = "cancel"
)

// Transaction represents a payment transaction reconciled against an external
// gateway. Reference is the host's unique business key; AcquirerReference is
// the gateway-assigned identifier used to correlate callbacks.
type Transaction struct {
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	CompletedAt       *time.Time       `json:"completed_at"`
	AcquirerReference *string          `json:"acquirer_reference"`
	StateMessage      *string          `json:"state_message"`
	ID                string           `json:"id"`
	Reference         string           `json:"reference"`
	OrderID           int64            `json:"order_id"`
	Currency          string           `json:"currency"`
	Variant           GatewayVariant   `json:"variant"`
	State             TransactionState `json:"state"`
	Amount            decimal.Decimal  `json:"amount"`

	// Mellat: sale reference id confirmed by verify/settle.
	MellatSaleReferenceID *string `json:"mellat_sale_reference_id"`

	// ZarinPal: optional fields returned by verify, written only when present.
	ZarinpalTxRefID    *string `json:"zarinpal_tx_ref_id"`
	ZarinpalMaskedCard *string `json:"zarinpal_masked_card_number"`
	ZarinpalHashedCard *string `json:"zarinpal_hashed_card_number"`
	ZarinpalFeeType    *string `json:"zarinpal_fee_type"`
	ZarinpalFee        *int64  `json:"zarinpal_fee"`
}

// IsTerminal returns true once no further state transitions are permitted.
func (s TransactionState) IsTerminal() bool {
	return s == TransactionStateDone || s == TransactionStateError || s == TransactionStateCancel
}

// CanTransitionTo reports whether moving from the current state to target
// respects the monotonic state graph.
func (s TransactionState) CanTransitionTo(target TransactionState) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case TransactionStateDraft:
		return target == TransactionStatePending || target == TransactionStateError
	case TransactionStatePending:
		return target == TransactionStateDone || target == TransactionStateError || target == TransactionStateCancel
	}
	return false
}

// GetAcquirerReference safely retrieves the gateway-assigned identifier.
func (t *Transaction) GetAcquirerReference() string {
	if t.AcquirerReference != nil {
		return *t.AcquirerReference
	}
	return ""
}

// MatchesAcquirerReference checks a callback identifier against the recorded
// one. Mellat RefIds are compared case-insensitively, matching the gateway's
// own treatment of them.
func (t *Transaction) MatchesAcquirerReference(candidate string) bool {
	recorded := t.GetAcquirerReference()
	if recorded == "" {
		return true
	}
	if t.Variant == VariantMellat {
		return strings.EqualFold(recorded, candidate)
	}
	return recorded == candidate
}
