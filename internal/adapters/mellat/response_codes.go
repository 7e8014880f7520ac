package mellat

import (
	pkgerrors "github.com/paygate-ir/payment-service/pkg/errors"
)

// ResultCodeSuccess is the code every successful pay/verify/settle call and
// callback carries.
const ResultCodeSuccess = "0"

// ResultCodeCustomerCancel is reported when the payer abandons the hosted
// payment page. It maps to the cancel state rather than error.
const ResultCodeCustomerCancel = "17"

// ResponseCodeInfo contains detailed information about a gateway result code
type ResponseCodeInfo struct {
	Code        string
	Description string
	Category    pkgerrors.ErrorCategory
}

// Result code map for the Behpardakht PGW channel
var responseCodes = map[string]ResponseCodeInfo{
	"0":   {Code: "0", Description: "Transaction Approved", Category: pkgerrors.CategoryApproved},
	"11":  {Code: "11", Description: "Invalid Card Number", Category: pkgerrors.CategoryInvalidCard},
	"12":  {Code: "12", Description: "No Sufficient Funds", Category: pkgerrors.CategoryInsufficientFunds},
	"13":  {Code: "13", Description: "Incorrect Pin", Category: pkgerrors.CategoryInvalidCard},
	"14":  {Code: "14", Description: "Allowable Number Of Pin Tries Exceeded", Category: pkgerrors.CategoryInvalidCard},
	"15":  {Code: "15", Description: "Card Not Effective", Category: pkgerrors.CategoryInvalidCard},
	"16":  {Code: "16", Description: "Exceeds Withdrawal Frequency Limit", Category: pkgerrors.CategoryDeclined},
	"17":  {Code: "17", Description: "Customer Cancellation", Category: pkgerrors.CategoryCancelled},
	"18":  {Code: "18", Description: "Expired Card", Category: pkgerrors.CategoryExpiredCard},
	"19":  {Code: "19", Description: "Exceeds Withdrawal Amount Limit", Category: pkgerrors.CategoryDeclined},
	"111": {Code: "111", Description: "No Such Issuer", Category: pkgerrors.CategoryInvalidCard},
	"112": {Code: "112", Description: "Card Switch Internal Error", Category: pkgerrors.CategorySystemError},
	"113": {Code: "113", Description: "Issuer Or Switch Is Inoperative", Category: pkgerrors.CategorySystemError},
	"114": {Code: "114", Description: "Transaction Not Permitted To Card Holder", Category: pkgerrors.CategoryDeclined},
	"21":  {Code: "21", Description: "Invalid Merchant", Category: pkgerrors.CategoryInvalidRequest},
	"23":  {Code: "23", Description: "Security Violation", Category: pkgerrors.CategoryFraud},
	"24":  {Code: "24", Description: "Invalid User Or Password", Category: pkgerrors.CategoryInvalidRequest},
	"25":  {Code: "25", Description: "Invalid Amount", Category: pkgerrors.CategoryInvalidRequest},
	"31":  {Code: "31", Description: "Invalid Response", Category: pkgerrors.CategorySystemError},
	"32":  {Code: "32", Description: "Format Error", Category: pkgerrors.CategoryInvalidRequest},
	"33":  {Code: "33", Description: "No Investment Account", Category: pkgerrors.CategoryInvalidRequest},
	"34":  {Code: "34", Description: "System Internal Error", Category: pkgerrors.CategorySystemError},
	"35":  {Code: "35", Description: "Invalid Business Date", Category: pkgerrors.CategoryInvalidRequest},
	"41":  {Code: "41", Description: "Duplicate Order Id", Category: pkgerrors.CategoryInvalidRequest},
	"42":  {Code: "42", Description: "Sale Transaction Not Found", Category: pkgerrors.CategorySettlement},
	"43":  {Code: "43", Description: "Duplicate Verify", Category: pkgerrors.CategorySettlement},
	"44":  {Code: "44", Description: "Verify Transaction Not Found", Category: pkgerrors.CategorySettlement},
	"45":  {Code: "45", Description: "Transaction Has Been Settled", Category: pkgerrors.CategorySettlement},
	"46":  {Code: "46", Description: "Transaction Has Not Been Settled", Category: pkgerrors.CategorySettlement},
	"47":  {Code: "47", Description: "Settle Transaction Not Found", Category: pkgerrors.CategorySettlement},
	"48":  {Code: "48", Description: "Transaction Has Been Reversed", Category: pkgerrors.CategorySettlement},
	"49":  {Code: "49", Description: "Refund Transaction Not Found", Category: pkgerrors.CategorySettlement},
	"412": {Code: "412", Description: "Bill Digit Incorrect", Category: pkgerrors.CategoryInvalidRequest},
	"413": {Code: "413", Description: "Payment Digit Incorrect", Category: pkgerrors.CategoryInvalidRequest},
	"414": {Code: "414", Description: "Bill Organization Not Valid", Category: pkgerrors.CategoryInvalidRequest},
	"415": {Code: "415", Description: "Session Timeout", Category: pkgerrors.CategorySystemError},
	"416": {Code: "416", Description: "Data Access Exception", Category: pkgerrors.CategorySystemError},
	"417": {Code: "417", Description: "Payer Id Is Invalid", Category: pkgerrors.CategoryInvalidRequest},
	"418": {Code: "418", Description: "Customer Not Found", Category: pkgerrors.CategoryInvalidRequest},
	"419": {Code: "419", Description: "Try Count Exceeded", Category: pkgerrors.CategoryDeclined},
	"421": {Code: "421", Description: "Invalid IP", Category: pkgerrors.CategoryFraud},
	"51":  {Code: "51", Description: "Duplicate Transmission", Category: pkgerrors.CategoryInvalidRequest},
	"54":  {Code: "54", Description: "Original Transaction Not Found", Category: pkgerrors.CategorySettlement},
	"55":  {Code: "55", Description: "Invalid Transaction", Category: pkgerrors.CategoryInvalidRequest},
	"61":  {Code: "61", Description: "Error In Settle", Category: pkgerrors.CategorySettlement},
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
