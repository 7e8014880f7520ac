package mellat

import (
	"testing"

	pkgerrors "github.com/paygate-ir/payment-service/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetResponseCode(t *testing.T) {
	assert.Equal(t, "Transaction Approved", GetResponseCode("0").Description)
	assert.Equal(t, "Customer Cancellation", GetResponseCode("17").Description)
	assert.Equal(t, "Duplicate Verify", GetResponseCode("43").Description)
	assert.Equal(t, "Transaction Has Been Reversed", GetResponseCode("48").Description)
	assert.Equal(t, "Error In Settle", GetResponseCode("61").Description)
}

func TestGetResponseCodeUnknown(t *testing.T) {
	info := GetResponseCode("9999")
	assert.Equal(t, "9999", info.Code)
	assert.Equal(t, "Received unrecognized status", info.Description)
	assert.Equal(t, pkgerrors.CategorySystemError, info.Category)
}

func TestToPaymentError(t *testing.T) {
	err := GetResponseCode("12").ToPaymentError("raw gateway text")
	assert.Equal(t, "12", err.Code)
	assert.Equal(t, "No Sufficient Funds", err.Message)
	assert.Equal(t, "raw gateway text", err.GatewayMessage)
	assert.Equal(t, pkgerrors.CategoryInsufficientFunds, err.Category)
}
