package callback

import (
	"net/http"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/services/reconciliation"
	"github.com/paygate-ir/payment-service/pkg/observability"
	"go.uber.org/zap"
)

// CallbackHandler terminates the public gateway return endpoints. Whatever
// the reconciliation outcome, the payer's browser is sent to the same
// processing page: the payment result is only ever disclosed through the
// host's own order screens, never through the redirect.
type CallbackHandler struct {
	service       *reconciliation.Service
	processingURL string
	logger        *zap.Logger
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(service *reconciliation.Service, processingURL string, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		service:       service,
		processingURL: processingURL,
		logger:        logger,
	}
}

// HandleMellat processes the bank's browser POST after the payer leaves the
// hosted payment page.
// POST /payment/mellat/accept (form-encoded: RefId, ResCode, SaleOrderId, SaleReferenceId)
func (h *CallbackHandler) HandleMellat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("rejecting unparseable Mellat callback", zap.Error(err))
		h.redirectToProcessing(w, r)
		return
	}

	cb := &domain.CallbackData{
		Variant:         domain.VariantMellat,
		RefID:           r.PostFormValue("RefId"),
		ResCode:         r.PostFormValue("ResCode"),
		SaleOrderID:     r.PostFormValue("SaleOrderId"),
		SaleReferenceID: r.PostFormValue("SaleReferenceId"),
	}

	h.logger.Info("received Mellat callback",
		zap.String("ref_id", cb.RefID),
		zap.String("res_code", cb.ResCode),
		zap.String("sale_order_id", cb.SaleOrderID),
	)
	observability.RecordCallback(string(domain.VariantMellat), "received")

	h.reconcile(r, cb)
	h.redirectToProcessing(w, r)
}

// HandleZarinpal processes the aggregator's GET redirect.
// GET /payment/zarinpal/redirect?Authority=...&Status=OK|NOK
func (h *CallbackHandler) HandleZarinpal(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cb := &domain.CallbackData{
		Variant:   domain.VariantZarinpal,
		Authority: query.Get("Authority"),
		Status:    query.Get("Status"),
	}

	h.logger.Info("received ZarinPal callback",
		zap.String("authority", cb.Authority),
		zap.String("status", cb.Status),
	)
	observability.RecordCallback(string(domain.VariantZarinpal), "received")

	h.reconcile(r, cb)
	h.redirectToProcessing(w, r)
}

// reconcile drives the callback through validation and reconciliation. Errors
// are logged and absorbed; the response to the gateway never depends on them.
func (h *CallbackHandler) reconcile(r *http.Request, cb *domain.CallbackData) {
	tx, err := h.service.HandleCallback(r.Context(), cb)
	if err != nil {
		h.logger.Error("callback reconciliation failed",
			zap.String("variant", string(cb.Variant)),
			zap.Error(err),
		)
		return
	}

	h.logger.Info("callback reconciled",
		zap.String("variant", string(cb.Variant)),
		zap.String("reference", tx.Reference),
		zap.String("state", string(tx.State)),
	)
}

func (h *CallbackHandler) redirectToProcessing(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.processingURL, http.StatusSeeOther)
}
