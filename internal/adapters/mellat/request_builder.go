package mellat

import (
	"fmt"
	"strconv"
	"time"

	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// Mellat accepts exactly two currency codes: Rials pass through unchanged,
// Tomans are converted to Rials (x10). Anything else is a configuration
// error caught before any network call.
const (
	CurrencyRial  = "IRR"
	CurrencyToman = "IRT"
)

var tomanMultiplier = decimal.NewFromInt(10)

// NormalizeAmount converts a host-currency amount to the Rial amount the
// gateway expects.
func NormalizeAmount(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	switch currency {
	case CurrencyRial:
		return amount, nil
	case CurrencyToman:
		return amount.Mul(tomanMultiplier), nil
	default:
		return decimal.Zero, domain.ErrUnsupportedCurrency.WithDetail("currency", currency)
	}
}

// buildPayParams assembles the bpPayRequest parameter list from a canonical
// pay request. Construction is pure: the send is the client's job.
func buildPayParams(req *ports.PayRequest) ([]soapParam, error) {
	if req.Reference == "" {
		return nil, domain.ErrMissingField.WithDetail("field", "reference")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrMissingField.WithDetail("field", "amount")
	}

	amount, err := NormalizeAmount(req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	additionalData := fmt.Sprintf("Customer Info: partner_id (%s), partner_name (%s)",
		req.Customer.PartnerID, req.Customer.PartnerName)

	return []soapParam{
		{name: "orderId", value: strconv.FormatInt(req.OrderID, 10)},
		{name: "amount", value: amount.StringFixed(0)},
		{name: "localDate", value: now.Format("20060102")},
		{name: "localTime", value: now.Format("150405")},
		{name: "additionalData", value: additionalData},
		{name: "callBackUrl", value: req.CallbackURL},
		{name: "payerId", value: "0"},
	}, nil
}
