package payment

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinehold/reservation-service/internal/config"
)

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		Name:       "vnpay",
		TmnCode:    "TESTCODE",
		HashSecret: "s3cr3t",
		URL:        "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://app.example.com/payments/vnpay-return",
		HashAlgo:   "sha512",
	}
}

func TestHMACGateway_BuildAndVerifyRoundTrip(t *testing.T) {
	gw := NewHMACGateway(testGatewayConfig())

	redirect, err := gw.BuildRedirectURL(Intent{
		OrderRef:    "42-1690000000000",
		AmountCents: 15000,
		ClientIP:    "203.0.113.7",
		CreatedAt:   time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	params := parsed.Query()
	assert.Equal(t, "1500000", params.Get("vnp_Amount"))
	assert.NotEmpty(t, params.Get("vnp_SecureHash"))

	params.Set("vnp_ResponseCode", "00")
	params.Set("vnp_TransactionNo", "GW-987")
	params.Del("vnp_SecureHash")
	params.Set("vnp_SecureHash", gw.sign(stripHash(params)))

	result, err := gw.VerifyCallback(params)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "42-1690000000000", result.OrderRef)
	assert.Equal(t, "GW-987", result.GatewayTxnID)
}

func TestHMACGateway_VerifyCallback_TamperedAmountFailsSignature(t *testing.T) {
	gw := NewHMACGateway(testGatewayConfig())

	redirect, err := gw.BuildRedirectURL(Intent{
		OrderRef:    "42-1690000000000",
		AmountCents: 15000,
		ClientIP:    "203.0.113.7",
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	params := parsed.Query()
	params.Set("vnp_ResponseCode", "00")

	params.Set("vnp_Amount", "999999999")

	_, err = gw.VerifyCallback(params)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestHMACGateway_VerifyCallback_MissingHash(t *testing.T) {
	gw := NewHMACGateway(testGatewayConfig())
	_, err := gw.VerifyCallback(url.Values{"vnp_TxnRef": []string{"1-2"}})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func stripHash(params url.Values) url.Values {
	out := url.Values{}
	for k, v := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		out[k] = v
	}
	return out
}
