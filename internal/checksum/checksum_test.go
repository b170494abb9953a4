package checksum

import (
	"math/rand"
	"testing"
)

// bitwiseSum is an independent bit-at-a-time implementation used to
// cross-check the table-driven one.
func bitwiseSum(data []byte) uint32 {
	step := func(crc uint32, b byte) uint32 {
		for k := 7; k >= 0; k-- {
			bit := crc>>31 ^ uint32(b>>uint(k))&1
			crc <<= 1
			if bit != 0 {
				crc ^= poly
			}
		}
		return crc
	}
	var crc uint32
	for _, b := range data {
		crc = step(crc, b)
	}
	for n := uint64(len(data)); n != 0; n >>= 8 {
		crc = step(crc, byte(n))
	}
	return ^crc
}

func TestSum_KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", nil, 4294967295},
		{"check value", []byte("123456789"), 930766865},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sum(tt.data); got != tt.want {
				t.Errorf("Sum(%q) = %d, want %d", tt.data, got, tt.want)
			}
		})
	}
}

func TestSum_MatchesBitwise(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []int{1, 2, 3, 16, 255, 256, 1024, 4096} {
		data := make([]byte, size)
		rng.Read(data)
		if got, want := Sum(data), bitwiseSum(data); got != want {
			t.Errorf("size %d: Sum = %d, bitwise reference = %d", size, got, want)
		}
	}
}

func TestDigest_Streaming(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	want := Sum(data)

	for _, split := range []int{0, 1, 7, len(data) - 1, len(data)} {
		d := New()
		d.Write(data[:split])
		d.Write(data[split:])
		if got := d.Sum32(); got != want {
			t.Errorf("split at %d: Sum32 = %d, want %d", split, got, want)
		}
	}
}

func TestDigest_Sum32DoesNotFinalizeState(t *testing.T) {
	data := []byte("123456789")

	d := New()
	d.Write(data[:4])
	d.Sum32()
	d.Write(data[4:])
	if got, want := d.Sum32(), Sum(data); got != want {
		t.Errorf("Sum32 after interleaved Sum32 = %d, want %d", got, want)
	}
}

func TestDigest_Reset(t *testing.T) {
	d := New()
	d.Write([]byte("garbage"))
	d.Reset()
	d.Write([]byte("123456789"))
	if got := d.Sum32(); got != 930766865 {
		t.Errorf("Sum32 after Reset = %d, want 930766865", got)
	}
}

func TestDigest_SumAppends(t *testing.T) {
	d := New()
	d.Write([]byte("123456789"))

	out := d.Sum([]byte{0xAA})
	if len(out) != 1+Size {
		t.Fatalf("Sum returned %d bytes, want %d", len(out), 1+Size)
	}
	if out[0] != 0xAA {
		t.Errorf("Sum did not preserve prefix: got 0x%02X", out[0])
	}
	want := d.Sum32()
	got := uint32(out[1])<<24 | uint32(out[2])<<16 | uint32(out[3])<<8 | uint32(out[4])
	if got != want {
		t.Errorf("Sum bytes = %d, want %d", got, want)
	}
}

func BenchmarkSum(b *testing.B) {
	data := make([]byte, 64*1024)
	rand.New(rand.NewSource(1)).Read(data)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Sum(data)
	}
}
