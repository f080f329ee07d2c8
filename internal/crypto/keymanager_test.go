package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptSecret("topsecret", "password123")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	got, err := DecryptSecret(blob, "password123")
	if err != nil {
		t.Fatalf("DecryptSecret: %v", err)
	}
	if got != "topsecret" {
		t.Fatalf("round trip = %q, want %q", got, "topsecret")
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptSecret("topsecret", "password123")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	if _, err := DecryptSecret(blob, "wrong"); err == nil {
		t.Fatal("decryption with wrong password must fail")
	}
}

func TestLoadSecretResolutionOrder(t *testing.T) {
	blob, err := EncryptSecret("filesecret", "pw")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}
	path := filepath.Join(t.TempDir(), "secret.enc")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}

	// Raw secret wins over the encrypted file.
	got, err := LoadSecret(SecretConfig{
		RawSecret:           "rawsecret",
		EncryptedSecretPath: path,
		Password:            "pw",
	})
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if got != "rawsecret" {
		t.Fatalf("LoadSecret = %q, want raw secret", got)
	}

	// Without a raw secret, the file is decrypted.
	got, err = LoadSecret(SecretConfig{
		EncryptedSecretPath: path,
		Password:            "pw",
	})
	if err != nil {
		t.Fatalf("LoadSecret from file: %v", err)
	}
	if got != "filesecret" {
		t.Fatalf("LoadSecret = %q, want file secret", got)
	}

	// No source at all is an error.
	if _, err := LoadSecret(SecretConfig{}); err == nil {
		t.Fatal("LoadSecret with no source must fail")
	}
}
