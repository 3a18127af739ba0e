package crypto

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealOpenRoundTrip(t *testing.T) {
	c, err := New(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sealed, err := c.Seal("CM-1234567")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !strings.HasPrefix(sealed, sealedPrefix) || strings.Contains(sealed, "1234567") {
		t.Fatalf("expected opaque sealed value, got %q", sealed)
	}
	again, _ := c.Seal("CM-1234567")
	if again == sealed {
		t.Fatal("expected a fresh nonce per seal")
	}
	plain, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if plain != "CM-1234567" {
		t.Fatalf("expected CM-1234567, got %q", plain)
	}
}

func TestPassthroughWithoutKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sealed, _ := c.Seal("plain")
	if sealed != "plain" {
		t.Fatalf("expected passthrough, got %q", sealed)
	}

	keyed, _ := New(testKey)
	locked, _ := keyed.Seal("secret")
	if _, err := c.Open(locked); !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
}

func TestOpenLegacyPlaintext(t *testing.T) {
	c, _ := New(testKey)
	plain, err := c.Open("CM-0001")
	if err != nil || plain != "CM-0001" {
		t.Fatalf("expected legacy plaintext to pass through, got %q %v", plain, err)
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New("too-short"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestOpenRejectsTamperedValue(t *testing.T) {
	c, _ := New(testKey)
	sealed, _ := c.Seal("secret")
	mid := len(sealedPrefix) + (len(sealed)-len(sealedPrefix))/2
	swap := byte('A')
	if sealed[mid] == swap {
		swap = 'B'
	}
	tampered := sealed[:mid] + string(swap) + sealed[mid+1:]
	if _, err := c.Open(tampered); err == nil {
		t.Fatal("expected tampered value to fail authentication")
	}
}
