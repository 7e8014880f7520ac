package zarinpal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, serverURL string, fee FeePolicy) ports.AggregatorGateway {
	t.Helper()
	cfg := &Config{
		TokenURL:    serverURL + "/pg/v4/payment/request.json",
		VerifyURL:   serverURL + "/pg/v4/payment/verify.json",
		StartPayURL: "https://www.zarinpal.com/pg/StartPay/",
		MerchantID:  "merchant-uuid",
		Fee:         fee,
		Timeout:     5 * time.Second,
	}
	gw, err := NewGateway(cfg, &http.Client{Timeout: cfg.Timeout}, zap.NewNop())
	require.NoError(t, err)
	return gw
}

func TestNewGatewayRequiresMerchantID(t *testing.T) {
	_, err := NewGateway(DefaultConfig(), http.DefaultClient, zap.NewNop())
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingCredentials))
}

func TestRequestTokenSuccess(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"code":100,"message":"Success","authority":"A0000012345"},"errors":[]}`))
	}))
	defer server.Close()

	gw := newTestGateway(t, server.URL, FeePolicy{})
	result, err := gw.RequestToken(context.Background(), tokenRequest())
	require.NoError(t, err)

	assert.Equal(t, "100", result.Code)
	assert.Equal(t, "A0000012345", result.Field("authority"))

	assert.Equal(t, "merchant-uuid", captured["merchant_id"])
	assert.Equal(t, float64(75000), captured["amount"])
	assert.NotContains(t, captured, "metadata")
}

func TestRequestTokenAddsFee(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"data":{"code":100,"authority":"A0000012345"},"errors":[]}`))
	}))
	defer server.Close()

	fee := FeePolicy{
		Active:     true,
		Percentage: decimal.NewFromInt(2),
		UpperLimit: decimal.NewFromInt(10000),
	}
	gw := newTestGateway(t, server.URL, fee)

	_, err := gw.RequestToken(context.Background(), tokenRequest())
	require.NoError(t, err)

	// 2% of 75000 = 1500, charged on top
	assert.Equal(t, float64(76500), captured["amount"])
}

func TestRequestTokenGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[],"errors":{"code":-9,"message":"The input params invalid","validations":[{"amount":"amount too low"}]}}`))
	}))
	defer server.Close()

	gw := newTestGateway(t, server.URL, FeePolicy{})
	result, err := gw.RequestToken(context.Background(), tokenRequest())
	require.NoError(t, err)

	assert.Equal(t, "-9", result.Code)
	assert.Contains(t, result.Field("error_message"), "The input params invalid")
	assert.Contains(t, result.Field("error_message"), "amount too low")
}

func TestVerifySuccess(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"data":{"code":100,"ref_id":201,"card_pan":"502229******1234","card_hash":"1EBE3EBEBE35C7EC0F8D6EE4F2F859107A87822CA179BC9528767EA7B5489B69","fee_type":"Merchant","fee":1500},"errors":[]}`))
	}))
	defer server.Close()

	gw := newTestGateway(t, server.URL, FeePolicy{})
	result, err := gw.Verify(context.Background(), decimal.NewFromInt(75000), "A0000012345")
	require.NoError(t, err)

	assert.Equal(t, "100", result.Code)
	assert.Equal(t, "201", result.Field("ref_id"))
	assert.Equal(t, "502229******1234", result.Field("card_pan"))
	assert.Equal(t, "Merchant", result.Field("fee_type"))
	assert.Equal(t, "1500", result.Field("fee"))

	assert.Equal(t, "merchant-uuid", captured["merchant_id"])
	assert.Equal(t, float64(75000), captured["amount"])
	assert.Equal(t, "A0000012345", captured["authority"])
}

func TestVerifyAlreadyVerified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"code":101,"ref_id":"R9"},"errors":[]}`))
	}))
	defer server.Close()

	gw := newTestGateway(t, server.URL, FeePolicy{})
	result, err := gw.Verify(context.Background(), decimal.NewFromInt(75000), "A0000012345")
	require.NoError(t, err)

	assert.Equal(t, "101", result.Code)
	assert.Equal(t, "R9", result.Field("ref_id"))
}

func TestPostTransportFailures(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		gw := newTestGateway(t, server.URL, FeePolicy{})
		_, err := gw.Verify(context.Background(), decimal.NewFromInt(100), "A1")
		require.Error(t, err)
		assert.True(t, domain.IsTransportError(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>gateway busy</html>"))
		}))
		defer server.Close()

		gw := newTestGateway(t, server.URL, FeePolicy{})
		_, err := gw.Verify(context.Background(), decimal.NewFromInt(100), "A1")
		require.Error(t, err)
		assert.True(t, domain.IsTransportError(err))
	})

	t.Run("empty envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[],"errors":[]}`))
		}))
		defer server.Close()

		gw := newTestGateway(t, server.URL, FeePolicy{})
		_, err := gw.Verify(context.Background(), decimal.NewFromInt(100), "A1")
		require.Error(t, err)
		assert.True(t, domain.IsTransportError(err))
	})
}

func TestParseResponseRefIDForms(t *testing.T) {
	// The gateway serializes ref_id as a number on first verification and as
	// an opaque string on replays; both must decode.
	t.Run("numeric", func(t *testing.T) {
		result, err := parseResponse([]byte(`{"data":{"code":100,"ref_id":201},"errors":[]}`))
		require.NoError(t, err)
		assert.Equal(t, "201", result.Field("ref_id"))
	})

	t.Run("string", func(t *testing.T) {
		result, err := parseResponse([]byte(`{"data":{"code":101,"ref_id":"R9"},"errors":[]}`))
		require.NoError(t, err)
		assert.Equal(t, "R9", result.Field("ref_id"))
	})
}

func TestRedirectURL(t *testing.T) {
	gw := newTestGateway(t, "https://unused.example.com", FeePolicy{})
	assert.Equal(t, "https://www.zarinpal.com/pg/StartPay/A0000012345", gw.RedirectURL("A0000012345"))
}
