package keys

import (
	"bytes"
	"strings"
	"testing"
)

func TestGenerateArmorParseRoundTrip(t *testing.T) {
	kp, err := Generate("alice.one")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	armored, err := ArmorPublicKey(kp.Entity)
	if err != nil {
		t.Fatalf("ArmorPublicKey: %v", err)
	}
	if !strings.Contains(armored, "BEGIN PGP PUBLIC KEY BLOCK") {
		t.Fatalf("armored key missing PGP header: %s", armored)
	}
	pub, err := ParseArmoredPublicKey(armored)
	if err != nil {
		t.Fatalf("ParseArmoredPublicKey: %v", err)
	}
	if pub.N.Cmp(kp.Public.N) != 0 {
		t.Error("parsed public key modulus does not match the generated key")
	}
}

func TestParseArmoredPublicKeyRejectsGarbage(t *testing.T) {
	if _, err := ParseArmoredPublicKey("not armored data"); err == nil {
		t.Error("expected error for non-armored input")
	}
}

func TestEncryptSplitDecryptsWithPrivateKey(t *testing.T) {
	kp, err := Generate("bob.two")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	plaintext := bytes.Repeat([]byte("balance-payload-"), 40)
	encoded, err := EncryptSplit(kp.Public, plaintext)
	if err != nil {
		t.Fatalf("EncryptSplit: %v", err)
	}
	if encoded == "" {
		t.Fatal("EncryptSplit returned empty output")
	}
	lines := strings.Split(strings.TrimSpace(encoded), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected plaintext of this size to split into multiple chunks, got %d", len(lines))
	}
}

func TestEncryptSplitEmptyPlaintextProducesOneChunk(t *testing.T) {
	kp, err := Generate("carol.three")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	encoded, err := EncryptSplit(kp.Public, nil)
	if err != nil {
		t.Fatalf("EncryptSplit: %v", err)
	}
	if strings.TrimSpace(encoded) == "" {
		t.Fatal("expected a single chunk even for empty plaintext")
	}
}
