package zarinpal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/paygate-ir/payment-service/pkg/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	opRequestToken = "request_token"
	opVerify       = "verify"
)

// Success codes for the v4 payment API: 100 is a first confirmation, 101
// means the transaction was already confirmed.
const (
	CodeVerified        = "100"
	CodeAlreadyVerified = "101"
)

// Config contains configuration for the ZarinPal gateway adapter
type Config struct {
	// REST endpoints
	// https://api.zarinpal.com/pg/v4/payment/request.json
	// https://api.zarinpal.com/pg/v4/payment/verify.json
	TokenURL  string
	VerifyURL string

	// Hosted payment page, authority appended
	// https://www.zarinpal.com/pg/StartPay/
	StartPayURL string

	MerchantID string

	// Fee charged on top of the requested amount when active.
	Fee FeePolicy

	Timeout time.Duration
}

// DefaultConfig returns default configuration for the ZarinPal adapter
func DefaultConfig() *Config {
	return &Config{
		TokenURL:    "https://api.zarinpal.com/pg/v4/payment/request.json",
		VerifyURL:   "https://api.zarinpal.com/pg/v4/payment/verify.json",
		StartPayURL: "https://www.zarinpal.com/pg/StartPay/",
		Timeout:     15 * time.Second,
	}
}

// gateway implements the ports.AggregatorGateway port over ZarinPal's v4 REST API.
type gateway struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGateway creates a new ZarinPal gateway adapter
func NewGateway(config *Config, httpClient *http.Client, logger *zap.Logger) (ports.AggregatorGateway, error) {
	if config.MerchantID == "" {
		return nil, domain.ErrMissingCredentials.WithDetail("gateway", "zarinpal")
	}
	return &gateway{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// RequestToken registers a payment and obtains the authority used to build
// the redirect target.
func (g *gateway) RequestToken(ctx context.Context, req *ports.PayRequest) (*domain.GatewayResult, error) {
	payload, err := buildTokenPayload(g.config.MerchantID, req)
	if err != nil {
		return nil, err
	}

	// The aggregator fee is charged to the payer on top of the order amount.
	if fee := g.config.Fee.ComputeFee(req.Amount); fee.IsPositive() {
		payload.Amount = req.Amount.Add(fee).IntPart()
	}

	return g.post(ctx, opRequestToken, g.config.TokenURL, payload)
}

// Verify confirms a callback's authority against the gateway.
func (g *gateway) Verify(ctx context.Context, amount decimal.Decimal, authority string) (*domain.GatewayResult, error) {
	payload := verifyPayload{
		MerchantID: g.config.MerchantID,
		Amount:     amount.IntPart(),
		Authority:  authority,
	}
	return g.post(ctx, opVerify, g.config.VerifyURL, payload)
}

// RedirectURL returns the hosted payment page for an authority.
func (g *gateway) RedirectURL(authority string) string {
	return g.config.StartPayURL + authority
}

// apiResponse is the v4 envelope: data on success, errors on failure. The
// empty branch arrives as [] rather than null, so both are raw messages.
type apiResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type dataPayload struct {
	Code      int        `json:"code"`
	Message   string     `json:"message"`
	Authority string     `json:"authority"`
	RefID     flexString `json:"ref_id"`
	CardPan   string     `json:"card_pan"`
	CardHash  string     `json:"card_hash"`
	FeeType   string     `json:"fee_type"`
	Fee       flexString `json:"fee"`
}

// flexString holds a value the gateway serializes as either a JSON string or
// a bare number depending on the response (ref_id and fee both vary).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var v string
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

type errorsPayload struct {
	Code        int         `json:"code"`
	Message     string      `json:"message"`
	Validations interface{} `json:"validations"`
}

// post performs one JSON round trip. Non-2xx statuses and malformed bodies
// are transport failures, distinct from gateway-reported business errors
// which come back inside a GatewayResult.
func (g *gateway) post(ctx context.Context, operation, url string, payload interface{}) (*domain.GatewayResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, "create request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	g.logger.Info("Sending ZarinPal gateway request",
		zap.String("operation", operation),
	)

	start := time.Now()
	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		observability.RecordTransportFailure(string(domain.VariantZarinpal), operation)
		g.logger.Error("ZarinPal gateway request failed",
			zap.String("operation", operation),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.WrapError(domain.ErrorCodeTransportTimeout, operation, err)
		}
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, operation, err)
	}
	defer httpResp.Body.Close()
	observability.ObserveGatewayRequest(string(domain.VariantZarinpal), operation, time.Since(start))

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		observability.RecordTransportFailure(string(domain.VariantZarinpal), operation)
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, "read response", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		observability.RecordTransportFailure(string(domain.VariantZarinpal), operation)
		g.logger.Error("ZarinPal gateway returned non-2xx status",
			zap.String("operation", operation),
			zap.Int("status_code", httpResp.StatusCode),
		)
		return nil, domain.NewDomainError(domain.ErrorCodeTransportFailure,
			fmt.Sprintf("%s: http status %d", operation, httpResp.StatusCode))
	}

	result, err := parseResponse(raw)
	if err != nil {
		observability.RecordTransportFailure(string(domain.VariantZarinpal), operation)
		g.logger.Error("Malformed ZarinPal gateway response",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, "parse response", err)
	}

	g.logger.Info("Received ZarinPal gateway response",
		zap.String("operation", operation),
		zap.String("result_code", result.Code),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

func parseResponse(raw []byte) (*domain.GatewayResult, error) {
	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}

	if isPresent(envelope.Data) {
		var data dataPayload
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, err
		}

		fields := make(map[string]string)
		if data.Authority != "" {
			fields["authority"] = data.Authority
		}
		if data.RefID != "" {
			fields["ref_id"] = string(data.RefID)
		}
		if data.CardPan != "" {
			fields["card_pan"] = data.CardPan
		}
		if data.CardHash != "" {
			fields["card_hash"] = data.CardHash
		}
		if data.FeeType != "" {
			fields["fee_type"] = data.FeeType
		}
		if data.Fee != "" {
			fields["fee"] = string(data.Fee)
		}
		return &domain.GatewayResult{
			Code:   strconv.Itoa(data.Code),
			Raw:    string(raw),
			Fields: fields,
		}, nil
	}

	if isPresent(envelope.Errors) {
		var gatewayErr errorsPayload
		if err := json.Unmarshal(envelope.Errors, &gatewayErr); err != nil {
			return nil, err
		}

		message := gatewayErr.Message
		if gatewayErr.Validations != nil {
			message = fmt.Sprintf("%s, %v", message, gatewayErr.Validations)
		}
		return &domain.GatewayResult{
			Code: strconv.Itoa(gatewayErr.Code),
			Raw:  string(raw),
			Fields: map[string]string{
				"error_message": message,
			},
		}, nil
	}

	return nil, fmt.Errorf("response carries neither data nor errors")
}

// isPresent distinguishes a populated branch from the API's empty markers
// (null, [] and {}).
func isPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "[]", "{}":
		return false
	}
	return true
}
