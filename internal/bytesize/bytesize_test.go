package bytesize

import "testing"

func TestParseByteSize(t *testing.T) {
	cases := map[string]ByteSize{
		// The forms that show up in server.max_payload config values.
		"16MB":  16 * MB,
		"16Mi":  16 * MiB,
		"1Gi":   GiB,
		"512Ki": 512 * KiB,
		"4096":  4096,

		// Unit spellings: bare, with B suffix, either case.
		"1024B": 1024,
		"1024b": 1024,
		"1K":    KB,
		"1KB":   KB,
		"1KiB":  KiB,
		"1gi":   GiB,
		"1GI":   GiB,
		"1T":    TB,
		"1TiB":  TiB,

		// Whitespace and fractions.
		"  1Gi": GiB,
		"1Gi  ": GiB,
		"1 Gi":  GiB,
		"1.5Mi": ByteSize(1.5 * float64(MiB)),
		"0.5Gi": ByteSize(0.5 * float64(GiB)),
		"0":     0,
	}

	for input, want := range cases {
		got, err := ParseByteSize(input)
		if err != nil {
			t.Errorf("ParseByteSize(%q) error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseByteSize(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestParseByteSize_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "1Xi", "-1Gi", "Gi", "abc"} {
		if got, err := ParseByteSize(input); err == nil {
			t.Errorf("ParseByteSize(%q) = %d, want error", input, got)
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	var b ByteSize
	if err := b.UnmarshalText([]byte("16Mi")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if b != 16*MiB {
		t.Fatalf("UnmarshalText(16Mi) = %d, want %d", b, 16*MiB)
	}

	text, err := b.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "16.00MiB" {
		t.Errorf("MarshalText() = %q, want 16.00MiB", text)
	}

	if err := b.UnmarshalText([]byte("junk")); err == nil {
		t.Error("UnmarshalText(junk) should fail")
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   ByteSize
		want string
	}{
		{512, "512B"},
		{2 * KiB, "2.00KiB"},
		{100 * MiB, "100.00MiB"},
		{ByteSize(1.5 * float64(GiB)), "1.50GiB"},
		{2 * TiB, "2.00TiB"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Errorf("ByteSize(%d).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestConversions(t *testing.T) {
	size := ByteSize(GiB)
	if size.Uint64() != 1<<30 {
		t.Errorf("Uint64() = %d, want %d", size.Uint64(), 1<<30)
	}
	if size.Int64() != 1<<30 {
		t.Errorf("Int64() = %d, want %d", size.Int64(), 1<<30)
	}
}
