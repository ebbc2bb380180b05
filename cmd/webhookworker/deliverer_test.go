package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSignMatchesReceiverSideComputation(t *testing.T) {
	secret := "whsec_0011"
	body := []byte(`{"type":"conversation.run.completed","session_id":"sess_1"}`)

	got := Sign(secret, body)
	if !strings.HasPrefix(got, "sha256=") {
		t.Fatalf("expected sha256= prefix, got %q", got)
	}

	// What a receiver following the docs would compute.
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if got != want {
		t.Fatalf("signature mismatch: got %q want %q", got, want)
	}
}

func TestSignDependsOnSecretAndBody(t *testing.T) {
	body := []byte(`{"type":"conversation.started"}`)

	if Sign("secret-a", body) == Sign("secret-b", body) {
		t.Fatalf("different secrets must produce different signatures")
	}
	if Sign("secret-a", body) == Sign("secret-a", []byte(`{}`)) {
		t.Fatalf("different bodies must produce different signatures")
	}
}
