package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/paygate-ir/payment-service/internal/services/reconciliation"
	pkgerrors "github.com/paygate-ir/payment-service/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentHandler exposes the host-facing payment operations: creating and
// initiating transactions and the Mellat operator operations (inquiry,
// reversal). These endpoints are internal to the host deployment; only the
// callback endpoints are public.
type PaymentHandler struct {
	repo    ports.TransactionRepository
	service *reconciliation.Service
	logger  *zap.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(repo ports.TransactionRepository, service *reconciliation.Service, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		repo:    repo,
		service: service,
		logger:  logger,
	}
}

// InitiateRequest is the host's request to open a payment.
type InitiateRequest struct {
	Reference   string `json:"reference"`
	OrderID     int64  `json:"order_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Variant     string `json:"variant"`
	CallbackURL string `json:"callback_url"`
	Description string `json:"description"`
	PartnerID   string `json:"partner_id,omitempty"`
	PartnerName string `json:"partner_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// InitiateResponse carries the hosted payment page the payer must be sent to.
type InitiateResponse struct {
	Reference         string `json:"reference"`
	AcquirerReference string `json:"acquirer_reference"`
	RedirectURL       string `json:"redirect_url"`
}

// HandleInitiate creates a draft transaction and registers it with its
// gateway in one step.
// POST /api/v1/payments
func (h *PaymentHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	variant := domain.GatewayVariant(req.Variant)
	if variant != domain.VariantMellat && variant != domain.VariantZarinpal {
		h.writeError(w, http.StatusBadRequest, pkgerrors.NewValidationError("variant", "unknown gateway variant").Error())
		return
	}
	if req.Reference == "" {
		h.writeError(w, http.StatusBadRequest, pkgerrors.NewValidationError("reference", "is required").Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() || amount.IsZero() {
		h.writeError(w, http.StatusBadRequest, pkgerrors.NewValidationError("amount", "must be a positive decimal").Error())
		return
	}

	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		Reference: req.Reference,
		OrderID:   req.OrderID,
		Variant:   variant,
		State:     domain.TransactionStateDraft,
		Amount:    amount,
		Currency:  req.Currency,
	}
	if err := h.repo.Create(r.Context(), tx); err != nil {
		h.logger.Error("failed to create transaction",
			zap.String("reference", req.Reference),
			zap.Error(err),
		)
		h.writeError(w, http.StatusConflict, "transaction could not be created")
		return
	}

	result, err := h.service.Initiate(r.Context(), &ports.PayRequest{
		Reference:   req.Reference,
		OrderID:     req.OrderID,
		Amount:      amount,
		Currency:    req.Currency,
		CallbackURL: req.CallbackURL,
		Description: req.Description,
		Customer: domain.CustomerMetadata{
			PartnerID:   req.PartnerID,
			PartnerName: req.PartnerName,
			Phone:       req.Phone,
			Email:       req.Email,
		},
	})
	if err != nil {
		h.writeDomainError(w, req.Reference, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, &InitiateResponse{
		Reference:         req.Reference,
		AcquirerReference: result.AcquirerReference,
		RedirectURL:       result.RedirectURL,
	})
}

// HandleGet returns the current transaction record.
// GET /api/v1/payments/{reference}
func (h *PaymentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")

	tx, err := h.repo.GetByReference(r.Context(), reference)
	if err != nil {
		h.writeDomainError(w, reference, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// HandleInquiry queries the bank for the gateway-side status of a settled
// Mellat transaction.
// POST /api/v1/payments/{reference}/inquiry
func (h *PaymentHandler) HandleInquiry(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")

	result, err := h.service.Inquiry(r.Context(), reference)
	if err != nil {
		h.writeDomainError(w, reference, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleReversal asks the bank to reverse a settled Mellat transaction.
// POST /api/v1/payments/{reference}/reversal
func (h *PaymentHandler) HandleReversal(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")

	result, err := h.service.Reversal(r.Context(), reference)
	if err != nil {
		h.writeDomainError(w, reference, err)
		return
	}

	h.logger.Info("reversal requested",
		zap.String("reference", reference),
		zap.String("result_code", result.Code),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) writeDomainError(w http.ResponseWriter, reference string, err error) {
	h.logger.Warn("payment operation failed",
		zap.String("reference", reference),
		zap.Error(err),
	)

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusUnprocessableEntity
		switch domainErr.Code {
		case domain.ErrorCodeTxnNotFound:
			status = http.StatusNotFound
		case domain.ErrorCodeUnsupportedCurrency:
			status = http.StatusBadRequest
		}
		h.writeJSON(w, status, map[string]string{
			"code":    string(domainErr.Code),
			"message": domainErr.Message,
		})
		return
	}

	h.writeError(w, http.StatusBadGateway, "gateway operation failed")
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"message": message})
}

func (h *PaymentHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
