package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HeaderAPIKey is the request header carrying the API key. The key never
// travels in the query string or body.
const HeaderAPIKey = "X-MEXC-APIKEY"

// QuerySigner builds authenticated query strings for the MEXC REST API.
//
// The signing scheme: request parameters are sorted by key and joined as
// "key=value" pairs with "&", a millisecond Unix timestamp is appended, the
// whole string is HMAC-SHA256 signed with the API secret, and the
// hex-encoded signature is appended as the final "signature" parameter.
type QuerySigner struct {
	APIKey string
	secret []byte
}

// NewQuerySigner creates a QuerySigner. Whitespace around the credentials is
// stripped, since keys pasted into config files commonly carry it.
func NewQuerySigner(apiKey, secretKey string) *QuerySigner {
	return &QuerySigner{
		APIKey: strings.TrimSpace(apiKey),
		secret: []byte(strings.TrimSpace(secretKey)),
	}
}

// SignedQuery returns the complete signed query string for params, using the
// current wall-clock time as the request timestamp.
func (s *QuerySigner) SignedQuery(params map[string]string) string {
	return s.SignedQueryAt(params, time.Now().UnixMilli())
}

// SignedQueryAt is like SignedQuery but with a caller-supplied millisecond
// timestamp, for deterministic testing.
func (s *QuerySigner) SignedQueryAt(params map[string]string, tsMillis int64) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	if b.Len() > 0 {
		b.WriteByte('&')
	}
	b.WriteString("timestamp=")
	b.WriteString(strconv.FormatInt(tsMillis, 10))

	query := b.String()
	sig := hmacSHA256Hex(s.secret, query)

	return query + "&signature=" + sig
}

// String returns a redacted representation suitable for logging.
func (s *QuerySigner) String() string {
	redact := func(v string) string {
		if len(v) <= 4 {
			return "****"
		}
		return v[:4] + "****"
	}
	return fmt.Sprintf("QuerySigner{key=%s}", redact(s.APIKey))
}

// hmacSHA256Hex computes HMAC-SHA256 of message using key and returns the
// result hex-encoded.
func hmacSHA256Hex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
