package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSignedQueryAtLayout(t *testing.T) {
	s := NewQuerySigner("key", "secret")

	got := s.SignedQueryAt(map[string]string{
		"symbol":   "BTCUSDT",
		"side":     "BUY",
		"type":     "LIMIT",
		"quantity": "0.001",
		"price":    "48500.00001",
	}, 1700000000000)

	base := "price=48500.00001&quantity=0.001&side=BUY&symbol=BTCUSDT&type=LIMIT&timestamp=1700000000000"

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(base))
	wantSig := hex.EncodeToString(mac.Sum(nil))

	want := base + "&signature=" + wantSig
	if got != want {
		t.Fatalf("SignedQueryAt:\n got %s\nwant %s", got, want)
	}
}

func TestSignedQueryAtSkipsEmptyValues(t *testing.T) {
	s := NewQuerySigner("key", "secret")

	got := s.SignedQueryAt(map[string]string{
		"symbol":  "BTCUSDT",
		"orderId": "",
	}, 1700000000000)

	if strings.Contains(got, "orderId") {
		t.Fatalf("empty parameter leaked into query: %s", got)
	}
	if !strings.HasPrefix(got, "symbol=BTCUSDT&timestamp=1700000000000&signature=") {
		t.Fatalf("unexpected query layout: %s", got)
	}
}

func TestSignedQueryAtNoParams(t *testing.T) {
	s := NewQuerySigner("key", "secret")

	got := s.SignedQueryAt(nil, 1700000000000)
	if !strings.HasPrefix(got, "timestamp=1700000000000&signature=") {
		t.Fatalf("unexpected query layout: %s", got)
	}
}

func TestNewQuerySignerTrimsWhitespace(t *testing.T) {
	a := NewQuerySigner(" key \n", " secret ")
	b := NewQuerySigner("key", "secret")

	if a.APIKey != "key" {
		t.Fatalf("APIKey = %q, want trimmed", a.APIKey)
	}
	if a.SignedQueryAt(nil, 1) != b.SignedQueryAt(nil, 1) {
		t.Fatal("whitespace around the secret must not change the signature")
	}
}

func TestStringRedactsCredentials(t *testing.T) {
	s := NewQuerySigner("verylongapikey", "verylongsecret")
	out := s.String()
	if strings.Contains(out, "verylongapikey") || strings.Contains(out, "verylongsecret") {
		t.Fatalf("credentials leaked: %s", out)
	}
}
