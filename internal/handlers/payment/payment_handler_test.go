package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/paygate-ir/payment-service/internal/services/reconciliation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepo struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction
}

func newStubRepo() *stubRepo {
	return &stubRepo{transactions: make(map[string]*domain.Transaction)}
}

func (r *stubRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transactions[tx.Reference]; exists {
		return domain.ErrTxnInvalidState
	}
	r.transactions[tx.Reference] = tx
	return nil
}

func (r *stubRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[reference]
	if !ok {
		return nil, domain.ErrTxnNotFound
	}
	return tx, nil
}

func (r *stubRepo) FindByAcquirerReference(ctx context.Context, variant domain.GatewayVariant, acquirerRef string) ([]*domain.Transaction, error) {
	return nil, nil
}

func (r *stubRepo) SetAcquirerReference(ctx context.Context, reference, acquirerRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx, ok := r.transactions[reference]; ok {
		tx.AcquirerReference = &acquirerRef
		tx.State = domain.TransactionStatePending
	}
	return nil
}

func (r *stubRepo) UpdateState(ctx context.Context, reference string, update *ports.TransactionUpdate) error {
	return nil
}

type stubBank struct{}

func (stubBank) Pay(ctx context.Context, req *ports.PayRequest) (*domain.GatewayResult, error) {
	return &domain.GatewayResult{Code: "0", Fields: map[string]string{"payload": "AB12CD34"}}, nil
}
func (stubBank) Verify(ctx context.Context, params ports.ConfirmationParams) (*domain.GatewayResult, error) {
	return &domain.GatewayResult{Code: "0"}, nil
}
func (stubBank) Settle(ctx context.Context, params ports.ConfirmationParams) (*domain.GatewayResult, error) {
	return &domain.GatewayResult{Code: "0"}, nil
}
func (stubBank) Inquiry(ctx context.Context, params ports.ConfirmationParams) (*domain.GatewayResult, error) {
	return &domain.GatewayResult{Code: "0", Fields: map[string]string{"payload": "settled"}}, nil
}
func (stubBank) Reversal(ctx context.Context, params ports.ConfirmationParams) (*domain.GatewayResult, error) {
	return &domain.GatewayResult{Code: "0"}, nil
}
func (stubBank) RedirectURL(acquirerRef string) string {
	return "https://bank.example.com/startpay?RefId=" + acquirerRef
}

type stubAggregator struct{}

func (stubAggregator) RequestToken(ctx context.Context, req *ports.PayRequest) (*domain.GatewayResult, error) {
	return &domain.GatewayResult{Code: "100", Fields: map[string]string{"authority": "A0000012345"}}, nil
}
func (stubAggregator) Verify(ctx context.Context, amount decimal.Decimal, authority string) (*domain.GatewayResult, error) {
	return &domain.GatewayResult{Code: "100"}, nil
}
func (stubAggregator) RedirectURL(authority string) string {
	return "https://www.zarinpal.com/pg/StartPay/" + authority
}

func newTestMux() (*http.ServeMux, *stubRepo) {
	repo := newStubRepo()
	service := reconciliation.NewService(repo, stubBank{}, stubAggregator{}, zap.NewNop())
	handler := NewPaymentHandler(repo, service, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/payments", handler.HandleInitiate)
	mux.HandleFunc("GET /api/v1/payments/{reference}", handler.HandleGet)
	mux.HandleFunc("POST /api/v1/payments/{reference}/inquiry", handler.HandleInquiry)
	mux.HandleFunc("POST /api/v1/payments/{reference}/reversal", handler.HandleReversal)
	return mux, repo
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)
	return recorder
}

func TestHandleInitiateMellat(t *testing.T) {
	mux, repo := newTestMux()

	recorder := doJSON(mux, http.MethodPost, "/api/v1/payments", `{
		"reference": "SO042",
		"order_id": 42,
		"amount": "50000",
		"currency": "IRR",
		"variant": "mellat",
		"callback_url": "https://shop.example.com/payment/mellat/accept"
	}`)

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp InitiateResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "SO042", resp.Reference)
	assert.Equal(t, "AB12CD34", resp.AcquirerReference)
	assert.Equal(t, "https://bank.example.com/startpay?RefId=AB12CD34", resp.RedirectURL)

	tx, err := repo.GetByReference(context.Background(), "SO042")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatePending, tx.State)
}

func TestHandleInitiateZarinpal(t *testing.T) {
	mux, _ := newTestMux()

	recorder := doJSON(mux, http.MethodPost, "/api/v1/payments", `{
		"reference": "SO043",
		"order_id": 43,
		"amount": "75000",
		"currency": "IRR",
		"variant": "zarinpal",
		"description": "INV/2026/0043",
		"callback_url": "https://shop.example.com/payment/zarinpal/redirect"
	}`)

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp InitiateResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "A0000012345", resp.AcquirerReference)
	assert.Equal(t, "https://www.zarinpal.com/pg/StartPay/A0000012345", resp.RedirectURL)
}

func TestHandleInitiateValidation(t *testing.T) {
	mux, _ := newTestMux()

	tests := []struct {
		name string
		body string
	}{
		{"unknown variant", `{"reference":"SO1","amount":"100","currency":"IRR","variant":"paypal"}`},
		{"missing reference", `{"amount":"100","currency":"IRR","variant":"mellat"}`},
		{"zero amount", `{"reference":"SO1","amount":"0","currency":"IRR","variant":"mellat"}`},
		{"malformed amount", `{"reference":"SO1","amount":"abc","currency":"IRR","variant":"mellat"}`},
		{"invalid json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doJSON(mux, http.MethodPost, "/api/v1/payments", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}

func TestHandleGet(t *testing.T) {
	mux, repo := newTestMux()
	repo.Create(context.Background(), &domain.Transaction{
		Reference: "SO042",
		Variant:   domain.VariantMellat,
		State:     domain.TransactionStateDraft,
		Amount:    decimal.NewFromInt(50000),
		Currency:  "IRR",
	})

	recorder := doJSON(mux, http.MethodGet, "/api/v1/payments/SO042", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(mux, http.MethodGet, "/api/v1/payments/UNKNOWN", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHandleInquiry(t *testing.T) {
	mux, repo := newTestMux()
	saleRef := "987654"
	repo.Create(context.Background(), &domain.Transaction{
		Reference:             "SO042",
		OrderID:               42,
		Variant:               domain.VariantMellat,
		State:                 domain.TransactionStateDone,
		Amount:                decimal.NewFromInt(50000),
		Currency:              "IRR",
		MellatSaleReferenceID: &saleRef,
	})

	recorder := doJSON(mux, http.MethodPost, "/api/v1/payments/SO042/inquiry", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	var result domain.GatewayResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.Equal(t, "0", result.Code)
}

func TestHandleInquiryWithoutSaleReference(t *testing.T) {
	mux, repo := newTestMux()
	repo.Create(context.Background(), &domain.Transaction{
		Reference: "SO042",
		Variant:   domain.VariantMellat,
		State:     domain.TransactionStatePending,
		Amount:    decimal.NewFromInt(50000),
		Currency:  "IRR",
	})

	recorder := doJSON(mux, http.MethodPost, "/api/v1/payments/SO042/inquiry", "")
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}
