package compression

import (
	"bytes"
	"io"
	"testing"
)

func TestLZ4CompressionLevels(t *testing.T) {
	levels := []Level{Fastest, Default, Better, Best}
	testData := bytes.Repeat([]byte(`{"event":"click","user":42}`+"\n"), 500)

	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, LZ4, level)
			if err != nil {
				t.Fatalf("Failed to create writer: %v", err)
			}
			if _, err := w.Write(testData); err != nil {
				t.Fatalf("Failed to compress: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Failed to flush: %v", err)
			}
			compressed := buf.Len()
			if compressed >= len(testData) {
				t.Errorf("Compressed size %d is not smaller than original %d", compressed, len(testData))
			}

			r, err := NewReader(&buf, LZ4)
			if err != nil {
				t.Fatalf("Failed to create reader: %v", err)
			}
			decompressed, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}
			if !bytes.Equal(testData, decompressed) {
				t.Errorf("Decompressed data doesn't match original for level %v", level)
			}

			t.Logf("Level %v: Original: %d bytes, Compressed: %d bytes, Ratio: %.2f%%",
				level, len(testData), compressed, float64(compressed)/float64(len(testData))*100)
		})
	}
}
