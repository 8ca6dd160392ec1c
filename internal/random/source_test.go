package random

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestSource_Deterministic(t *testing.T) {
	for _, alg := range AllAlgorithms() {
		t.Run(string(alg), func(t *testing.T) {
			a, err := NewWithAlgorithm(42, alg)
			if err != nil {
				t.Fatalf("NewWithAlgorithm: %v", err)
			}
			b, _ := NewWithAlgorithm(42, alg)

			for i := 0; i < 1000; i++ {
				if x, y := a.NextU64(), b.NextU64(); x != y {
					t.Fatalf("word %d differs: %d != %d", i, x, y)
				}
			}
			if !bytes.Equal(a.NextBytes(4097), b.NextBytes(4097)) {
				t.Error("byte streams differ for the same seed")
			}
		})
	}
}

func TestSource_DifferentSeeds(t *testing.T) {
	a := New(1).NextBytes(256)
	b := New(2).NextBytes(256)
	if bytes.Equal(a, b) {
		t.Error("different seeds should produce different streams")
	}
}

func TestSource_AlgorithmsDiffer(t *testing.T) {
	a, _ := NewWithAlgorithm(7, PCG)
	b, _ := NewWithAlgorithm(7, ChaCha8)
	if bytes.Equal(a.NextBytes(64), b.NextBytes(64)) {
		t.Error("pcg and chacha8 should not produce the same stream")
	}
}

func TestSource_ChunkingIndependent(t *testing.T) {
	whole := New(99).NextBytes(103)

	src := New(99)
	var got []byte
	for _, n := range []int{1, 2, 3, 5, 7, 11, 13, 17, 19, 25} {
		got = append(got, src.NextBytes(n)...)
	}
	if !bytes.Equal(whole, got) {
		t.Errorf("chunked reads diverge from a single read\nwhole: %x\ngot:   %x", whole, got)
	}
}

func TestSource_ReadMatchesNextBytes(t *testing.T) {
	want := New(5).NextBytes(50)

	got := make([]byte, 50)
	n, err := io.ReadFull(New(5), got)
	if err != nil || n != 50 {
		t.Fatalf("ReadFull = %d, %v", n, err)
	}
	if !bytes.Equal(want, got) {
		t.Error("Read and NextBytes should yield the same stream")
	}
}

func TestSource_KnownPCGPrefix(t *testing.T) {
	// Little-endian layout of the first PCG word.
	src := New(42)
	w := New(42).NextU64()
	b := src.NextBytes(8)
	for i := 0; i < 8; i++ {
		if b[i] != byte(w>>(8*i)) {
			t.Fatalf("byte %d = %#x, want %#x", i, b[i], byte(w>>(8*i)))
		}
	}
}

func TestSource_ByteSpread(t *testing.T) {
	// Every byte value should show up in a large sample.
	var seen [256]int
	for _, b := range New(2024).NextBytes(1 << 16) {
		seen[b]++
	}
	for v, c := range seen {
		if c == 0 {
			t.Fatalf("byte value %d never produced", v)
		}
		// expected 256 each; allow a wide band
		if c < 150 || c > 380 {
			t.Errorf("byte value %d appears %d times, outside plausible range", v, c)
		}
	}
}

func TestNextBytes_NonPositive(t *testing.T) {
	if got := New(1).NextBytes(0); len(got) != 0 {
		t.Errorf("NextBytes(0) returned %d bytes", len(got))
	}
	if got := New(1).NextBytes(-3); len(got) != 0 {
		t.Errorf("NextBytes(-3) returned %d bytes", len(got))
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"", PCG, false},
		{"pcg", PCG, false},
		{"PCG", PCG, false},
		{"chacha8", ChaCha8, false},
		{"ChaCha", ChaCha8, false},
		{"mt19937", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"0", 0},
		{"42", 42},
		{" 7 ", 7},
		{"0x2a", 42},
		{"0XFF", 255},
		{"18446744073709551615", 1<<64 - 1},
	}
	for _, tt := range tests {
		got, err := ParseSeed(tt.input)
		if err != nil {
			t.Errorf("ParseSeed(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeed(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseSeed_Invalid(t *testing.T) {
	for _, input := range []string{"", "-1", "abc", "1.5", "18446744073709551616", "0x"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSeed(input)
			if !errors.Is(err, ErrInvalidSeed) {
				t.Errorf("ParseSeed(%q) error = %v, want ErrInvalidSeed", input, err)
			}
		})
	}
}

func TestSeedFromPhrase(t *testing.T) {
	if SeedFromPhrase("sunset") != SeedFromPhrase("sunset") {
		t.Error("same phrase should give the same seed")
	}
	if SeedFromPhrase("sunset") == SeedFromPhrase("sunrise") {
		t.Error("different phrases should give different seeds")
	}
}

func TestNewSeed_Varies(t *testing.T) {
	seen := map[uint64]bool{}
	for i := 0; i < 8; i++ {
		seen[NewSeed()] = true
	}
	if len(seen) < 2 {
		t.Error("NewSeed should not keep returning the same value")
	}
}
