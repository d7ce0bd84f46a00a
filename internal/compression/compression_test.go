package compression

import (
	"bytes"
	"testing"
)

func TestSnappyRoundTrip(t *testing.T) {
	c := NewSnappyCompressor()
	data := []byte(`{"dataset":"metrics","series":"cpu.host-a","values":[90,91,89,90,70,65,60]}`)

	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	if !bytes.Equal(data, decompressed) {
		t.Error("Round trip did not preserve the payload")
	}
}

func TestSnappyEmptyPayload(t *testing.T) {
	c := NewSnappyCompressor()

	compressed, err := c.Compress(nil)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) != 0 {
		t.Error("Empty payload should stay empty")
	}

	decompressed, err := c.Decompress(nil)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if len(decompressed) != 0 {
		t.Error("Empty payload should stay empty")
	}
}

func TestSnappyRejectsCorruptData(t *testing.T) {
	c := NewSnappyCompressor()

	if _, err := c.Decompress([]byte{0xff, 0x01, 0x02}); err == nil {
		t.Error("Expected error for corrupt payload")
	}
}

func TestGetCompressor(t *testing.T) {
	for _, algo := range []Algorithm{None, Snappy} {
		c, err := GetCompressor(algo)
		if err != nil {
			t.Fatalf("GetCompressor(%d) failed: %v", algo, err)
		}
		if c.Algorithm() != algo {
			t.Errorf("Expected algorithm %d, got %d", algo, c.Algorithm())
		}
	}

	if _, err := GetCompressor(Algorithm(99)); err == nil {
		t.Error("Expected error for unknown algorithm")
	}
}
