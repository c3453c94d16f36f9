package codec

import (
	"bytes"
	"testing"
)

// TestStructureSetup verifies the basic package structure is correct
func TestStructureSetup(t *testing.T) {
	// Test that we can create a codec
	codec := NewRecordCodec()
	if codec == nil {
		t.Error("NewRecordCodec returned nil")
	}

	// Test that we can create a record
	record := NewRecord([]byte("key"), []byte("value"))
	if record == nil {
		t.Error("NewRecord returned nil")
	}

	// Test basic field assignments
	if record.KeySize != 3 {
		t.Errorf("Expected KeySize 3, got %d", record.KeySize)
	}

	if record.ValueSize != 5 {
		t.Errorf("Expected ValueSize 5, got %d", record.ValueSize)
	}

	// Test size calculation
	expectedSize := 20 + 3 + 5 // header + key + value
	if record.Size() != expectedSize {
		t.Errorf("Expected size %d, got %d", expectedSize, record.Size())
	}
}

// TestEncodeDecodeRoundTrip verifies Encode/Decode/Validate round-trip a record.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewRecordCodec()

	key := []byte("user:123")
	value := []byte("john@example.com")

	encoded, err := codec.Encode(key, value)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(encoded) != 20+len(key)+len(value) {
		t.Errorf("Expected encoded length %d, got %d", 20+len(key)+len(value), len(encoded))
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded.Key, key) {
		t.Errorf("Expected key %q, got %q", key, decoded.Key)
	}
	if !bytes.Equal(decoded.Value, value) {
		t.Errorf("Expected value %q, got %q", value, decoded.Value)
	}
	if err := decoded.Validate(); err != nil {
		t.Errorf("Validate failed on round-tripped record: %v", err)
	}

	// Decode should reject truncated data.
	if _, err := codec.Decode(encoded[:10]); err == nil {
		t.Error("Expected Decode to reject truncated data")
	}

	// Decode parses structure only; Validate catches a corrupted CRC.
	corrupted := append([]byte(nil), encoded...)
	corrupted[0] ^= 0xFF
	badRecord, err := codec.Decode(corrupted)
	if err != nil {
		t.Fatalf("Decode should succeed on structurally-valid but corrupted data: %v", err)
	}
	if err := badRecord.Validate(); err == nil {
		t.Error("Expected Validate to reject data with a corrupted CRC32")
	}
}
