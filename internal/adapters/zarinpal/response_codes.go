package zarinpal

import (
	pkgerrors "github.com/paygate-ir/payment-service/pkg/errors"
)

// ResponseCodeInfo contains detailed information about a gateway result code
type ResponseCodeInfo struct {
	Code        string
	Description string
	Category    pkgerrors.ErrorCategory
}

// Result code map for the ZarinPal v4 payment API
var responseCodes = map[string]ResponseCodeInfo{
	"100": {Code: "100", Description: "Verified", Category: pkgerrors.CategoryApproved},
	"101": {Code: "101", Description: "Already Verified", Category: pkgerrors.CategoryApproved},
	"-9":  {Code: "-9", Description: "Validation Error", Category: pkgerrors.CategoryInvalidRequest},
	"-10": {Code: "-10", Description: "Invalid Terminal Merchant Id Or Ip", Category: pkgerrors.CategoryInvalidRequest},
	"-11": {Code: "-11", Description: "Terminal Is Not Active", Category: pkgerrors.CategoryInvalidRequest},
	"-12": {Code: "-12", Description: "Too Many Attempts", Category: pkgerrors.CategoryDeclined},
	"-15": {Code: "-15", Description: "Terminal Is Suspended", Category: pkgerrors.CategoryInvalidRequest},
	"-16": {Code: "-16", Description: "Terminal Level Not Sufficient", Category: pkgerrors.CategoryInvalidRequest},
	"-30": {Code: "-30", Description: "Terminal Does Not Allow Floating Wages", Category: pkgerrors.CategoryInvalidRequest},
	"-31": {Code: "-31", Description: "Floating Wages Not Configured", Category: pkgerrors.CategoryInvalidRequest},
	"-33": {Code: "-33", Description: "Wage Amount Out Of Range", Category: pkgerrors.CategoryInvalidRequest},
	"-50": {Code: "-50", Description: "Amount Differs From Paid Amount", Category: pkgerrors.CategorySettlement},
	"-51": {Code: "-51", Description: "Session Payment Failed", Category: pkgerrors.CategoryDeclined},
	"-52": {Code: "-52", Description: "Unexpected Gateway Error", Category: pkgerrors.CategorySystemError},
	"-53": {Code: "-53", Description: "Session Does Not Belong To Merchant", Category: pkgerrors.CategoryFraud},
	"-54": {Code: "-54", Description: "Invalid Authority", Category: pkgerrors.CategoryInvalidRequest},
}

// GetResponseCode retrieves result code information. Unknown codes never
// fail the lookup; they come back as an unrecognized-status placeholder.
func GetResponseCode(code string) ResponseCodeInfo {
	if info, exists := responseCodes[code]; exists {
		return info
	}
	return ResponseCodeInfo{
		Code:        code,
		Description: "Received unrecognized status",
		Category:    pkgerrors.CategorySystemError,
	}
}

// ToPaymentError converts a response code to a PaymentError
func (r ResponseCodeInfo) ToPaymentError(gatewayMessage string) *pkgerrors.PaymentError {
	return &pkgerrors.PaymentError{
		Code:           r.Code,
		Message:        r.Description,
		GatewayMessage: gatewayMessage,
		Category:       r.Category,
		Details:        map[string]interface{}{"description": r.Description},
	}
}
