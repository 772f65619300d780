package password

import (
	"errors"
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Argon2 {
	t.Helper()
	h, err := NewArgon2(Config{
		Memory:      16 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := testHasher(t)

	encoded, err := h.Hash("correct-horse-battery-1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected PHC prefix: %q", encoded)
	}

	ok, err := h.Verify("correct-horse-battery-1", encoded)
	if err != nil || !ok {
		t.Fatalf("expected verify success, ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-password-entirely", encoded)
	if err != nil {
		t.Fatalf("mismatch must not be an error: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashUniqueSalts(t *testing.T) {
	h := testHasher(t)

	a, err := h.Hash("same-input-password-1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash("same-input-password-1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ by salt")
	}
}

func TestVerifyMalformedHashIsFault(t *testing.T) {
	h := testHasher(t)

	cases := []string{
		"",
		"not-a-phc-string",
		"$argon2id$v=19$m=16384,t=1$short$segments",
		"$bcrypt$v=19$m=16384,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=16384,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	}
	for _, bad := range cases {
		_, err := h.Verify("anything-at-all-here", bad)
		if !errors.Is(err, ErrMalformedHash) {
			t.Errorf("Verify(%q): expected ErrMalformedHash, got %v", bad, err)
		}
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak, err := NewArgon2(Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	strong, err := NewArgon2(Config{Memory: 64 * 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	encoded, err := weak.Hash("upgrade-me-please-10")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	up, err := strong.NeedsUpgrade(encoded)
	if err != nil || !up {
		t.Fatalf("expected upgrade needed, up=%v err=%v", up, err)
	}

	up, err = weak.NeedsUpgrade(encoded)
	if err != nil || up {
		t.Fatalf("expected no upgrade needed, up=%v err=%v", up, err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 16 * 1024, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 16 * 1024, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 16 * 1024, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 16 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for _, cfg := range cases {
		if _, err := NewArgon2(cfg); err == nil {
			t.Errorf("expected rejection for config %+v", cfg)
		}
	}
}
