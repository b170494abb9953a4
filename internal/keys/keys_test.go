package keys

import (
	"strings"
	"testing"
)

func TestNewSessionKey(t *testing.T) {
	key, err := NewSessionKey()
	if err != nil {
		t.Fatalf("NewSessionKey failed: %v", err)
	}
	if len(key) != KeySize {
		t.Fatalf("key length = %d, want %d", len(key), KeySize)
	}

	other, err := NewSessionKey()
	if err != nil {
		t.Fatalf("NewSessionKey failed: %v", err)
	}
	if string(key) == string(other) {
		t.Error("two session keys are identical")
	}
}

func TestNewClientID(t *testing.T) {
	seen := make(map[[IDSize]byte]struct{})
	for range 100 {
		id := NewClientID()
		if _, dup := seen[id]; dup {
			t.Fatal("duplicate client id generated")
		}
		seen[id] = struct{}{}
	}
}

func TestFormatID(t *testing.T) {
	var id [IDSize]byte
	for i := range id {
		id[i] = byte(0xA0 + i)
	}

	s := FormatID(id)
	if len(s) != 32 {
		t.Fatalf("formatted id length = %d, want 32", len(s))
	}
	if s != strings.ToLower(s) {
		t.Error("formatted id must be lowercase hex")
	}
	if !strings.HasPrefix(s, "a0a1a2") {
		t.Errorf("formatted id = %q, want a0a1a2... prefix", s)
	}
}

func TestParseID(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		id := NewClientID()
		parsed, err := ParseID(FormatID(id))
		if err != nil {
			t.Fatalf("ParseID failed: %v", err)
		}
		if parsed != id {
			t.Errorf("round trip mismatch: %x != %x", parsed, id)
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		if _, err := ParseID("abcd"); err == nil {
			t.Error("expected error for short id")
		}
	})

	t.Run("NotHex", func(t *testing.T) {
		if _, err := ParseID(strings.Repeat("zz", 16)); err == nil {
			t.Error("expected error for non-hex id")
		}
	})
}
