package mellat

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/paygate-ir/payment-service/pkg/observability"
	"go.uber.org/zap"
)

const (
	opPayRequest      = "bpPayRequest"
	opVerifyRequest   = "bpVerifyRequest"
	opSettleRequest   = "bpSettleRequest"
	opInquiryRequest  = "bpInquiryRequest"
	opReversalRequest = "bpReversalRequest"

	soapNamespace = "http://interfaces.core.sw.bps.com/"
)

// Config contains configuration for the Behpardakht Mellat gateway adapter
type Config struct {
	// SOAP service endpoint
	// Production: https://bpm.shaparak.ir/pgwchannel/services/pgw
	// Sandbox: https://banktest.ir/gateway/bpm.shaparak.ir/pgwchannel/services/pgw
	ServiceURL string

	// Hosted payment page the payer is redirected to with the RefId
	// Production: https://bpm.shaparak.ir/pgwchannel/startpay.mellat
	OrderURL string

	// Terminal credentials, merged into every call server-side
	TerminalID int64
	Username   string
	Password   string

	Timeout time.Duration
}

// DefaultConfig returns default configuration for the Mellat adapter
func DefaultConfig(environment string) *Config {
	serviceURL := "https://bpm.shaparak.ir/pgwchannel/services/pgw"
	orderURL := "https://bpm.shaparak.ir/pgwchannel/startpay.mellat"
	if environment != "prod" {
		serviceURL = "https://banktest.ir/gateway/bpm.shaparak.ir/pgwchannel/services/pgw"
		orderURL = "https://banktest.ir/gateway/pgw.bpm.bankmellat.ir/pgwchannel/startpay.mellat"
	}

	return &Config{
		ServiceURL: serviceURL,
		OrderURL:   orderURL,
		Timeout:    15 * time.Second,
	}
}

// gateway implements the ports.BankGateway port over Mellat's SOAP service.
type gateway struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGateway creates a new Mellat gateway adapter
func NewGateway(config *Config, httpClient *http.Client, logger *zap.Logger) (ports.BankGateway, error) {
	if config.TerminalID == 0 || config.Username == "" || config.Password == "" {
		return nil, domain.ErrMissingCredentials.WithDetail("gateway", "mellat")
	}
	return &gateway{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type soapParam struct {
	name  string
	value string
}

// Pay registers a draft transaction with the gateway (bpPayRequest).
func (g *gateway) Pay(ctx context.Context, req *ports.PayRequest) (*domain.GatewayResult, error) {
	payload, err := buildPayParams(req)
	if err != nil {
		return nil, err
	}
	return g.call(ctx, opPayRequest, payload)
}

// Verify confirms a callback's sale reference with the gateway (bpVerifyRequest).
func (g *gateway) Verify(ctx context.Context, params ports.ConfirmationParams) (*domain.GatewayResult, error) {
	return g.call(ctx, opVerifyRequest, confirmationParams(params))
}

// Settle finalizes a verified transaction (bpSettleRequest).
func (g *gateway) Settle(ctx context.Context, params ports.ConfirmationParams) (*domain.GatewayResult, error) {
	return g.call(ctx, opSettleRequest, confirmationParams(params))
}

// Inquiry queries the gateway-side status of a transaction (bpInquiryRequest).
func (g *gateway) Inquiry(ctx context.Context, params ports.ConfirmationParams) (*domain.GatewayResult, error) {
	return g.call(ctx, opInquiryRequest, confirmationParams(params))
}

// Reversal reverses a settled transaction (bpReversalRequest).
func (g *gateway) Reversal(ctx context.Context, params ports.ConfirmationParams) (*domain.GatewayResult, error) {
	return g.call(ctx, opReversalRequest, confirmationParams(params))
}

// RedirectURL returns the hosted payment page for a gateway RefId.
func (g *gateway) RedirectURL(acquirerRef string) string {
	return g.config.OrderURL + "?RefId=" + acquirerRef
}

func confirmationParams(p ports.ConfirmationParams) []soapParam {
	return []soapParam{
		{name: "orderId", value: strconv.FormatInt(p.OrderID, 10)},
		{name: "saleOrderId", value: strconv.FormatInt(p.SaleOrderID, 10)},
		{name: "saleReferenceId", value: strconv.FormatInt(p.SaleReferenceID, 10)},
	}
}

// call performs one SOAP round trip. Terminal credentials are merged here,
// never supplied by callers. Every transport-level failure comes back as a
// typed error; the raw fault never escapes this boundary.
func (g *gateway) call(ctx context.Context, operation string, params []soapParam) (*domain.GatewayResult, error) {
	authenticated := append([]soapParam{
		{name: "terminalId", value: strconv.FormatInt(g.config.TerminalID, 10)},
		{name: "userName", value: g.config.Username},
		{name: "userPassword", value: g.config.Password},
	}, params...)

	envelope, err := buildEnvelope(operation, authenticated)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, "build soap envelope", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.ServiceURL, bytes.NewReader(envelope))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", "")

	g.logger.Info("Sending Mellat gateway request",
		zap.String("operation", operation),
	)

	start := time.Now()
	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		observability.RecordTransportFailure(string(domain.VariantMellat), operation)
		g.logger.Error("Mellat gateway request failed",
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
	observability.ObserveGatewayRequest(string(domain.VariantMellat), operation, time.Since(start))

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		observability.RecordTransportFailure(string(domain.VariantMellat), operation)
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, "read response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		observability.RecordTransportFailure(string(domain.VariantMellat), operation)
		g.logger.Error("Mellat gateway returned non-OK status",
			zap.String("operation", operation),
			zap.Int("status_code", httpResp.StatusCode),
		)
		return nil, domain.NewDomainError(domain.ErrorCodeTransportFailure,
			fmt.Sprintf("%s: http status %d", operation, httpResp.StatusCode))
	}

	result, err := parseResponse(body)
	if err != nil {
		observability.RecordTransportFailure(string(domain.VariantMellat), operation)
		g.logger.Error("Malformed Mellat gateway response",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeTransportFailure, "parse response", err)
	}

	g.logger.Info("Received Mellat gateway response",
		zap.String("operation", operation),
		zap.String("result_code", result.Code),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	EnvNS   string   `xml:"xmlns:soapenv,attr"`
	SvcNS   string   `xml:"xmlns:int,attr"`
	Body    soapBody `xml:"soapenv:Body"`
}

type soapBody struct {
	Operation soapOperation
}

type soapOperation struct {
	XMLName xml.Name
	Params  []soapParamXML
}

type soapParamXML struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func buildEnvelope(operation string, params []soapParam) ([]byte, error) {
	op := soapOperation{XMLName: xml.Name{Local: "int:" + operation}}
	for _, p := range params {
		op.Params = append(op.Params, soapParamXML{
			XMLName: xml.Name{Local: p.name},
			Value:   p.value,
		})
	}

	env := soapEnvelope{
		EnvNS: "http://schemas.xmlsoap.org/soap/envelope/",
		SvcNS: soapNamespace,
		Body:  soapBody{Operation: op},
	}

	out, err := xml.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// parseResponse extracts the comma-delimited payload from the SOAP response's
// return element. The first token is the result code, later tokens are
// payload (the RefId on a successful pay request).
func parseResponse(body []byte) (*domain.GatewayResult, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("no return element in response")
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "return" {
			continue
		}

		var value string
		if err := decoder.DecodeElement(&value, &start); err != nil {
			return nil, err
		}

		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("empty return element in response")
		}

		tokens := strings.Split(value, ",")
		fields := make(map[string]string)
		if len(tokens) > 1 {
			fields["payload"] = strings.Join(tokens[1:], ",")
		}
		return &domain.GatewayResult{
			Code:   tokens[0],
			Raw:    value,
			Fields: fields,
		}, nil
	}
}
