package reconciliation

import (
	"context"
	"fmt"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/paygate-ir/payment-service/pkg/observability"
	"go.uber.org/zap"
)

// zarinpalStatusOK is the literal success marker ZarinPal sends on the
// callback query string.
const zarinpalStatusOK = "OK"

// InvalidParameter records one callback field whose value disagreed with
// what the transaction (or the protocol) expects. Invalid parameters are
// advisories: they are logged and surfaced, but reconciliation proceeds.
type InvalidParameter struct {
	Field    string
	Received string
	Expected string
}

// Resolution is the outcome of validating a callback: the single matching
// transaction plus any non-blocking findings.
type Resolution struct {
	Transaction       *domain.Transaction
	InvalidParameters []InvalidParameter
}

// ParameterMismatch reports whether the callback's gateway identifier
// disagreed with the recorded one, a signal of possible tampering or replay.
func (r *Resolution) ParameterMismatch() bool {
	for _, p := range r.InvalidParameters {
		if p.Field == "RefId" || p.Field == "Authority" {
			return true
		}
	}
	return false
}

// Validator resolves inbound callbacks to exactly one local transaction.
type Validator struct {
	repo   ports.TransactionRepository
	logger *zap.Logger
}

// NewValidator creates a new callback validator
func NewValidator(repo ports.TransactionRepository, logger *zap.Logger) *Validator {
	return &Validator{
		repo:   repo,
		logger: logger,
	}
}

// Resolve validates a callback's structural completeness and resolves it to
// exactly one transaction. Malformed, unmatched and ambiguous callbacks are
// rejected before any transaction state is touched.
func (v *Validator) Resolve(ctx context.Context, cb *domain.CallbackData) (*Resolution, error) {
	switch cb.Variant {
	case domain.VariantMellat:
		return v.resolveMellat(ctx, cb)
	case domain.VariantZarinpal:
		return v.resolveZarinpal(ctx, cb)
	default:
		return nil, domain.ErrCallbackMalformed.WithDetail("variant", string(cb.Variant))
	}
}

func (v *Validator) resolveMellat(ctx context.Context, cb *domain.CallbackData) (*Resolution, error) {
	if cb.RefID == "" || cb.ResCode == "" || cb.SaleOrderID == "" {
		observability.RecordCallback(string(cb.Variant), "malformed")
		v.logger.Warn("Mellat callback with missing fields",
			zap.String("ref_id", cb.RefID),
			zap.String("res_code", cb.ResCode),
			zap.String("sale_order_id", cb.SaleOrderID),
		)
		return nil, domain.ErrCallbackMalformed.
			WithDetail("RefId", cb.RefID).
			WithDetail("ResCode", cb.ResCode).
			WithDetail("SaleOrderId", cb.SaleOrderID)
	}

	tx, err := v.lookupOne(ctx, domain.VariantMellat, cb.RefID)
	if err != nil {
		return nil, err
	}

	resolution := &Resolution{Transaction: tx}
	if !tx.MatchesAcquirerReference(cb.RefID) {
		resolution.InvalidParameters = append(resolution.InvalidParameters, InvalidParameter{
			Field:    "RefId",
			Received: cb.RefID,
			Expected: tx.GetAcquirerReference(),
		})
		observability.RecordParameterMismatch(string(cb.Variant))
		v.logger.Warn("Mellat callback RefId disagrees with recorded reference",
			zap.String("reference", tx.Reference),
			zap.String("received", cb.RefID),
		)
	}

	observability.RecordCallback(string(cb.Variant), "accepted")
	return resolution, nil
}

func (v *Validator) resolveZarinpal(ctx context.Context, cb *domain.CallbackData) (*Resolution, error) {
	if cb.Authority == "" || cb.Status == "" {
		observability.RecordCallback(string(cb.Variant), "malformed")
		v.logger.Warn("ZarinPal callback with missing fields",
			zap.String("authority", cb.Authority),
			zap.String("status", cb.Status),
		)
		return nil, domain.ErrCallbackMalformed.
			WithDetail("Authority", cb.Authority).
			WithDetail("Status", cb.Status)
	}

	tx, err := v.lookupOne(ctx, domain.VariantZarinpal, cb.Authority)
	if err != nil {
		return nil, err
	}

	resolution := &Resolution{Transaction: tx}
	if !tx.MatchesAcquirerReference(cb.Authority) {
		resolution.InvalidParameters = append(resolution.InvalidParameters, InvalidParameter{
			Field:    "Authority",
			Received: cb.Authority,
			Expected: tx.GetAcquirerReference(),
		})
		observability.RecordParameterMismatch(string(cb.Variant))
		v.logger.Warn("ZarinPal callback authority disagrees with recorded reference",
			zap.String("reference", tx.Reference),
			zap.String("received", cb.Authority),
		)
	}

	// Status gate: anything but the success marker is recorded and the
	// reconciliation run proceeds to fail the transaction.
	if cb.Status != zarinpalStatusOK {
		resolution.InvalidParameters = append(resolution.InvalidParameters, InvalidParameter{
			Field:    "Status",
			Received: cb.Status,
			Expected: zarinpalStatusOK,
		})
		v.logger.Warn("ZarinPal callback status is not OK",
			zap.String("reference", tx.Reference),
			zap.String("status", cb.Status),
		)
	}

	observability.RecordCallback(string(cb.Variant), "accepted")
	return resolution, nil
}

// lookupOne requires the gateway identifier to match exactly one transaction.
func (v *Validator) lookupOne(ctx context.Context, variant domain.GatewayVariant, acquirerRef string) (*domain.Transaction, error) {
	matches, err := v.repo.FindByAcquirerReference(ctx, variant, acquirerRef)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "find by acquirer reference", err)
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		observability.RecordCallback(string(variant), "not_found")
		v.logger.Warn("Callback matched no transaction",
			zap.String("variant", string(variant)),
			zap.String("acquirer_reference", acquirerRef),
		)
		return nil, domain.ErrTxnNotFound.WithDetail("acquirer_reference", acquirerRef)
	default:
		observability.RecordCallback(string(variant), "ambiguous")
		v.logger.Warn("Callback matched multiple transactions",
			zap.String("variant", string(variant)),
			zap.String("acquirer_reference", acquirerRef),
			zap.Int("matches", len(matches)),
		)
		return nil, domain.ErrCallbackAmbiguous.
			WithDetail("acquirer_reference", acquirerRef).
			WithDetail("matches", fmt.Sprintf("%d", len(matches)))
	}
}
