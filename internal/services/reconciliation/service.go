package reconciliation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/paygate-ir/payment-service/internal/adapters/mellat"
	"github.com/paygate-ir/payment-service/internal/adapters/zarinpal"
	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/paygate-ir/payment-service/pkg/observability"
	"go.uber.org/zap"
)

// Service drives transactions through gateway-specific confirmation steps
// and owns every terminal state transition. No other component writes
// transaction state.
type Service struct {
	repo       ports.TransactionRepository
	bank       ports.BankGateway
	aggregator ports.AggregatorGateway
	validator  *Validator
	locks      *referenceLocks
	logger     *zap.Logger
}

// NewService creates a new reconciliation service
func NewService(
	repo ports.TransactionRepository,
	bank ports.BankGateway,
	aggregator ports.AggregatorGateway,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		bank:       bank,
		aggregator: aggregator,
		validator:  NewValidator(repo, logger),
		locks:      newReferenceLocks(),
		logger:     logger,
	}
}

// Initiate registers a draft transaction with its gateway and returns the
// hosted payment page the payer must be redirected to. On success the
// transaction is pending with its acquirer reference recorded.
func (s *Service) Initiate(ctx context.Context, req *ports.PayRequest) (*domain.InitiationResult, error) {
	tx, err := s.repo.GetByReference(ctx, req.Reference)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "load transaction", err)
	}
	if tx.State != domain.TransactionStateDraft {
		return nil, domain.ErrTxnInvalidState.
			WithDetail("reference", tx.Reference).
			WithDetail("state", string(tx.State))
	}

	switch tx.Variant {
	case domain.VariantMellat:
		return s.initiateMellat(ctx, tx, req)
	case domain.VariantZarinpal:
		return s.initiateZarinpal(ctx, tx, req)
	default:
		return nil, domain.ErrTxnInvalidState.WithDetail("variant", string(tx.Variant))
	}
}

func (s *Service) initiateMellat(ctx context.Context, tx *domain.Transaction, req *ports.PayRequest) (*domain.InitiationResult, error) {
	result, err := s.bank.Pay(ctx, req)
	if err != nil {
		return nil, err
	}

	if result.Code != mellat.ResultCodeSuccess {
		info := mellat.GetResponseCode(result.Code)
		s.logger.Warn("Mellat pay request rejected",
			zap.String("reference", tx.Reference),
			zap.String("result_code", result.Code),
			zap.String("description", info.Description),
		)
		return nil, info.ToPaymentError(result.Raw)
	}

	refID := result.Field("payload")
	if refID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeTransportFailure, "pay response carries no RefId")
	}

	if err := s.repo.SetAcquirerReference(ctx, tx.Reference, refID); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "record acquirer reference", err)
	}

	s.logger.Info("Mellat payment initiated",
		zap.String("reference", tx.Reference),
		zap.String("ref_id", refID),
	)

	return &domain.InitiationResult{
		AcquirerReference: refID,
		RedirectURL:       s.bank.RedirectURL(refID),
	}, nil
}

func (s *Service) initiateZarinpal(ctx context.Context, tx *domain.Transaction, req *ports.PayRequest) (*domain.InitiationResult, error) {
	result, err := s.aggregator.RequestToken(ctx, req)
	if err != nil {
		return nil, err
	}

	if result.Code != zarinpal.CodeVerified {
		message := result.Field("error_message")
		if message == "" {
			message = zarinpal.GetResponseCode(result.Code).Description
		}
		s.logger.Warn("ZarinPal token request rejected",
			zap.String("reference", tx.Reference),
			zap.String("result_code", result.Code),
			zap.String("message", message),
		)
		return nil, zarinpal.GetResponseCode(result.Code).ToPaymentError(message)
	}

	authority := result.Field("authority")
	if authority == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeTransportFailure, "token response carries no authority")
	}

	if err := s.repo.SetAcquirerReference(ctx, tx.Reference, authority); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "record acquirer reference", err)
	}

	s.logger.Info("ZarinPal payment initiated",
		zap.String("reference", tx.Reference),
		zap.String("authority", authority),
	)

	return &domain.InitiationResult{
		AcquirerReference: authority,
		RedirectURL:       s.aggregator.RedirectURL(authority),
	}, nil
}

// HandleCallback validates an inbound callback, resolves it to exactly one
// transaction and drives that transaction to a terminal state. The whole
// read-resolve-verify-settle-write sequence runs under a per-identifier
// critical section.
func (s *Service) HandleCallback(ctx context.Context, cb *domain.CallbackData) (*domain.Transaction, error) {
	release := s.locks.Acquire(callbackLockKey(cb))
	defer release()

	resolution, err := s.validator.Resolve(ctx, cb)
	if err != nil {
		return nil, err
	}

	switch cb.Variant {
	case domain.VariantMellat:
		return s.reconcileMellat(ctx, resolution, cb)
	case domain.VariantZarinpal:
		return s.reconcileZarinpal(ctx, resolution)
	default:
		return nil, domain.ErrCallbackMalformed.WithDetail("variant", string(cb.Variant))
	}
}

// callbackLockKey serializes on the gateway identifier the callback carries.
// Mellat RefIds are case-insensitive.
func callbackLockKey(cb *domain.CallbackData) string {
	if cb.Variant == domain.VariantMellat {
		return string(cb.Variant) + ":" + strings.ToUpper(cb.RefID)
	}
	return string(cb.Variant) + ":" + cb.Authority
}

// reconcileMellat runs the two-phase confirmation: the callback's ResCode,
// then verify, then settle must all report success before the transaction
// is done.
func (s *Service) reconcileMellat(ctx context.Context, res *Resolution, cb *domain.CallbackData) (*domain.Transaction, error) {
	tx := res.Transaction

	if tx.State.IsTerminal() {
		s.logger.Info("Ignoring callback for transaction in terminal state",
			zap.String("reference", tx.Reference),
			zap.String("state", string(tx.State)),
		)
		return tx, nil
	}

	if res.ParameterMismatch() {
		s.logger.Warn("Reconciling despite gateway identifier mismatch",
			zap.String("reference", tx.Reference),
		)
	}

	if cb.ResCode == mellat.ResultCodeCustomerCancel {
		return s.transition(ctx, tx, domain.TransactionStateCancel, mellat.GetResponseCode(cb.ResCode).Description, nil)
	}
	if cb.ResCode != mellat.ResultCodeSuccess {
		return s.failMellat(ctx, tx, cb.ResCode)
	}

	saleOrderID, err := strconv.ParseInt(cb.SaleOrderID, 10, 64)
	if err != nil {
		return s.failUnrecognized(ctx, tx)
	}
	saleReferenceID, err := strconv.ParseInt(cb.SaleReferenceID, 10, 64)
	if err != nil {
		return s.failUnrecognized(ctx, tx)
	}

	params := ports.ConfirmationParams{
		OrderID:         saleOrderID,
		SaleOrderID:     saleOrderID,
		SaleReferenceID: saleReferenceID,
	}

	verifyResult, err := s.bank.Verify(ctx, params)
	if err != nil {
		s.logger.Error("Mellat verify transport failure",
			zap.String("reference", tx.Reference),
			zap.Error(err),
		)
		return s.failUnrecognized(ctx, tx)
	}
	if verifyResult.Code != mellat.ResultCodeSuccess {
		return s.failMellat(ctx, tx, verifyResult.Code)
	}

	settleResult, err := s.bank.Settle(ctx, params)
	if err != nil {
		s.logger.Error("Mellat settle transport failure",
			zap.String("reference", tx.Reference),
			zap.Error(err),
		)
		return s.failUnrecognized(ctx, tx)
	}
	if settleResult.Code != mellat.ResultCodeSuccess {
		return s.failMellat(ctx, tx, settleResult.Code)
	}

	saleRef := cb.SaleReferenceID
	update := &ports.TransactionUpdate{
		State:                 domain.TransactionStateDone,
		CompletedAt:           true,
		MellatSaleReferenceID: &saleRef,
	}
	return s.applyDone(ctx, tx, update)
}

// reconcileZarinpal runs the single-phase confirmation.
func (s *Service) reconcileZarinpal(ctx context.Context, res *Resolution) (*domain.Transaction, error) {
	tx := res.Transaction

	if tx.State.IsTerminal() {
		s.logger.Info("Ignoring callback for transaction in terminal state",
			zap.String("reference", tx.Reference),
			zap.String("state", string(tx.State)),
		)
		return tx, nil
	}

	if res.ParameterMismatch() {
		s.logger.Warn("Reconciling despite gateway identifier mismatch",
			zap.String("reference", tx.Reference),
		)
	}

	result, err := s.aggregator.Verify(ctx, tx.Amount, tx.GetAcquirerReference())
	if err != nil {
		// Transport faults become an error transition; they never propagate.
		s.logger.Error("ZarinPal verify transport failure",
			zap.String("reference", tx.Reference),
			zap.Error(err),
		)
		return s.transition(ctx, tx, domain.TransactionStateError, err.Error(), nil)
	}

	if result.Code == zarinpal.CodeVerified || result.Code == zarinpal.CodeAlreadyVerified {
		update := &ports.TransactionUpdate{
			State:       domain.TransactionStateDone,
			CompletedAt: true,
		}
		// Optional verify fields are written only when present.
		if refID := result.Field("ref_id"); refID != "" {
			update.ZarinpalTxRefID = &refID
		}
		if cardPan := result.Field("card_pan"); cardPan != "" {
			update.ZarinpalMaskedCard = &cardPan
		}
		if cardHash := result.Field("card_hash"); cardHash != "" {
			update.ZarinpalHashedCard = &cardHash
		}
		if feeType := result.Field("fee_type"); feeType != "" {
			update.ZarinpalFeeType = &feeType
		}
		if feeRaw := result.Field("fee"); feeRaw != "" {
			if fee, err := strconv.ParseInt(feeRaw, 10, 64); err == nil {
				update.ZarinpalFee = &fee
			}
		}
		return s.applyDone(ctx, tx, update)
	}

	message := result.Field("error_message")
	if message == "" {
		message = zarinpal.GetResponseCode(result.Code).Description
	}
	return s.transition(ctx, tx, domain.TransactionStateError, message, nil)
}

// Inquiry queries Mellat for the gateway-side status of a transaction.
func (s *Service) Inquiry(ctx context.Context, reference string) (*domain.GatewayResult, error) {
	params, err := s.confirmationParamsFor(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.bank.Inquiry(ctx, params)
}

// Reversal asks Mellat to reverse a settled transaction. The local state is
// left untouched; reversal outcomes arrive through the normal callback path.
func (s *Service) Reversal(ctx context.Context, reference string) (*domain.GatewayResult, error) {
	params, err := s.confirmationParamsFor(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.bank.Reversal(ctx, params)
}

func (s *Service) confirmationParamsFor(ctx context.Context, reference string) (ports.ConfirmationParams, error) {
	tx, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return ports.ConfirmationParams{}, domain.WrapError(domain.ErrorCodeDatabaseError, "load transaction", err)
	}
	if tx.Variant != domain.VariantMellat {
		return ports.ConfirmationParams{}, domain.ErrTxnInvalidState.WithDetail("variant", string(tx.Variant))
	}
	if tx.MellatSaleReferenceID == nil {
		return ports.ConfirmationParams{}, domain.ErrTxnInvalidState.WithDetail("reason", "no confirmed sale reference")
	}
	saleRef, err := strconv.ParseInt(*tx.MellatSaleReferenceID, 10, 64)
	if err != nil {
		return ports.ConfirmationParams{}, domain.ErrTxnInvalidState.WithDetail("reason", "malformed sale reference")
	}
	return ports.ConfirmationParams{
		OrderID:         tx.OrderID,
		SaleOrderID:     tx.OrderID,
		SaleReferenceID: saleRef,
	}, nil
}

// failMellat transitions to error with the catalog-mapped description.
func (s *Service) failMellat(ctx context.Context, tx *domain.Transaction, code string) (*domain.Transaction, error) {
	info := mellat.GetResponseCode(code)
	message := fmt.Sprintf("%s Transaction Error: (%s) %s", tx.Reference, code, info.Description)
	return s.transition(ctx, tx, domain.TransactionStateError, message, nil)
}

// failUnrecognized transitions to error when there is no usable result code.
func (s *Service) failUnrecognized(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	message := "Received unrecognized status for payment " + tx.Reference
	return s.transition(ctx, tx, domain.TransactionStateError, message, nil)
}

// applyDone writes the done transition. The transition is idempotent: a
// transaction already done is never written again.
func (s *Service) applyDone(ctx context.Context, tx *domain.Transaction, update *ports.TransactionUpdate) (*domain.Transaction, error) {
	if tx.State == domain.TransactionStateDone {
		return tx, nil
	}
	return s.transition(ctx, tx, domain.TransactionStateDone, "", update)
}

// transition applies a state change, enforcing the monotonic state graph and
// writing only when the computed state differs from the current one.
func (s *Service) transition(ctx context.Context, tx *domain.Transaction, target domain.TransactionState, message string, update *ports.TransactionUpdate) (*domain.Transaction, error) {
	if tx.State == target {
		return tx, nil
	}
	if !tx.State.CanTransitionTo(target) {
		s.logger.Warn("Refusing non-monotonic state transition",
			zap.String("reference", tx.Reference),
			zap.String("from", string(tx.State)),
			zap.String("to", string(target)),
		)
		return tx, domain.ErrTxnInvalidState.
			WithDetail("from", string(tx.State)).
			WithDetail("to", string(target))
	}

	if update == nil {
		update = &ports.TransactionUpdate{}
	}
	update.State = target
	if message != "" {
		update.StateMessage = &message
	}

	if err := s.repo.UpdateState(ctx, tx.Reference, update); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "update transaction state", err)
	}

	observability.RecordReconciliation(string(tx.Variant), string(target))
	s.logger.Info("Transaction state transition",
		zap.String("reference", tx.Reference),
		zap.String("from", string(tx.State)),
		zap.String("to", string(target)),
		zap.String("message", message),
	)

	tx.State = target
	if message != "" {
		tx.StateMessage = &message
	}
	if update.MellatSaleReferenceID != nil {
		tx.MellatSaleReferenceID = update.MellatSaleReferenceID
	}
	if update.ZarinpalTxRefID != nil {
		tx.ZarinpalTxRefID = update.ZarinpalTxRefID
	}
	if update.ZarinpalMaskedCard != nil {
		tx.ZarinpalMaskedCard = update.ZarinpalMaskedCard
	}
	if update.ZarinpalHashedCard != nil {
		tx.ZarinpalHashedCard = update.ZarinpalHashedCard
	}
	if update.ZarinpalFeeType != nil {
		tx.ZarinpalFeeType = update.ZarinpalFeeType
	}
	if update.ZarinpalFee != nil {
		tx.ZarinpalFee = update.ZarinpalFee
	}
	return tx, nil
}
