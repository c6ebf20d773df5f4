package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cinehold/reservation-service/internal/config"
)

// Intent carries the fields HMACGateway needs to build a signed redirect
// URL for one payment attempt.
type Intent struct {
	OrderRef    string
	AmountCents uint32
	ClientIP    string
	CreatedAt   time.Time
}

// CallbackResult is what VerifyCallback extracts from a callback whose
// signature has already been confirmed valid.
type CallbackResult struct {
	OrderRef     string
	Success      bool
	ResponseCode string
	GatewayTxnID string
}

// Gateway abstracts one external payment provider, borrowing the
// strategy-interface shape from maanavshah-bookmyshow-lld's
// PaymentGateway: Coordinator holds a map of these keyed by method name
// and never branches on which concrete gateway it is talking to.
type Gateway interface {
	Name() string
	BuildRedirectURL(intent Intent) (string, error)
	VerifyCallback(params url.Values) (CallbackResult, error)
}

// HMACGateway implements Gateway for a VNPay-style wire format:
// HMAC-SHA512 (or SHA256 for the wallet variant) over the
// URL-form-encoded, alphabetically sorted parameter list, amounts in
// minor units times 100, dates in yyyyMMddHHmmss.
type HMACGateway struct {
	cfg config.GatewayConfig
}

// NewHMACGateway constructs an HMACGateway from its credential triple.
func NewHMACGateway(cfg config.GatewayConfig) *HMACGateway {
	return &HMACGateway{cfg: cfg}
}

func (g *HMACGateway) Name() string { return g.cfg.Name }

// BuildRedirectURL assembles the signed query string the caller's
// browser is redirected to.
func (g *HMACGateway) BuildRedirectURL(intent Intent) (string, error) {
	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatUint(uint64(intent.AmountCents)*100, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", intent.OrderRef)
	params.Set("vnp_OrderInfo", fmt.Sprintf("Payment for order %s", intent.OrderRef))
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "en")
	params.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	params.Set("vnp_IpAddr", intent.ClientIP)
	params.Set("vnp_CreateDate", intent.CreatedAt.UTC().Format("20060102150405"))

	params.Set("vnp_SecureHash", g.sign(params))
	return g.cfg.URL + "?" + params.Encode(), nil
}

// VerifyCallback recomputes the signature over every field except the
// hash itself and compares in constant time. A mismatch never reaches
// the caller as parsed fields: the zero CallbackResult is returned
// alongside the error.
func (g *HMACGateway) VerifyCallback(params url.Values) (CallbackResult, error) {
	received := params.Get("vnp_SecureHash")
	if received == "" {
		return CallbackResult{}, ErrInvalidSignature
	}
	toSign := url.Values{}
	for k, v := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		toSign[k] = v
	}
	expected := g.sign(toSign)
	if !constantTimeHexEqual(expected, received) {
		return CallbackResult{}, ErrInvalidSignature
	}
	code := params.Get("vnp_ResponseCode")
	return CallbackResult{
		OrderRef:     params.Get("vnp_TxnRef"),
		Success:      code == "00",
		ResponseCode: code,
		GatewayTxnID: params.Get("vnp_TransactionNo"),
	}, nil
}

// sign computes the HMAC over params sorted alphabetically by key and
// URL-form-encoded, per the gateway's signing contract.
func (g *HMACGateway) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params.Get(k)))
	}

	var mac hash.Hash
	if strings.EqualFold(g.cfg.HashAlgo, "sha256") {
		mac = hmac.New(sha256.New, []byte(g.cfg.HashSecret))
	} else {
		mac = hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	}
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func constantTimeHexEqual(expected, received string) bool {
	e, err1 := hex.DecodeString(expected)
	r, err2 := hex.DecodeString(received)
	if err1 != nil || err2 != nil {
		return false
	}
	return subtle.ConstantTimeCompare(e, r) == 1
}
