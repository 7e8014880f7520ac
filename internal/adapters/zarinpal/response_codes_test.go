package zarinpal

import (
	"testing"

	pkgerrors "github.com/paygate-ir/payment-service/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetResponseCode(t *testing.T) {
	assert.Equal(t, "Verified", GetResponseCode("100").Description)
	assert.Equal(t, "Already Verified", GetResponseCode("101").Description)
	assert.Equal(t, "Amount Differs From Paid Amount", GetResponseCode("-50").Description)
	assert.Equal(t, "Invalid Authority", GetResponseCode("-54").Description)
}

func TestGetResponseCodeUnknown(t *testing.T) {
	info := GetResponseCode("-999")
	assert.Equal(t, "-999", info.Code)
	assert.Equal(t, "Received unrecognized status", info.Description)
	assert.Equal(t, pkgerrors.CategorySystemError, info.Category)
}
