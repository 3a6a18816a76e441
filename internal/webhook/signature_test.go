package webhook

import (
	"strings"
	"testing"
)

func TestComputeAndVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"profile.switched"}`)
	sig := ComputeHMAC(payload, "secret")

	if !strings.HasPrefix(sig, "sha256=") {
		t.Errorf("signature %q missing scheme prefix", sig)
	}
	if !VerifySignature(payload, sig, "secret") {
		t.Error("valid signature must verify")
	}
	if VerifySignature(payload, sig, "other-secret") {
		t.Error("wrong secret must not verify")
	}
	if VerifySignature([]byte("tampered"), sig, "secret") {
		t.Error("tampered payload must not verify")
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	b, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if !strings.HasPrefix(a, "whsec_") {
		t.Errorf("secret %q missing prefix", a)
	}
	if a == b {
		t.Error("secrets must be unique")
	}
}
