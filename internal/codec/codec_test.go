package codec

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/leapstack-labs/strata/pkg/core"
)

func TestCodec_JSONRoundTrip(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	def := core.ColumnDefinition{Type: core.TypeText, JSON: true}

	tests := []struct {
		name  string
		value any
	}{
		{"flat object", map[string]any{"theme": "dark"}},
		{"nested object", map[string]any{"a": map[string]any{"b": []any{float64(1), float64(2)}}}},
		{"array", []any{"x", "y"}},
		{"number", float64(42)},
		{"boolean", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := c.Encode("settings", tt.value, def)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if _, ok := encoded.(string); !ok {
				t.Fatalf("expected serialized string, got %T", encoded)
			}

			decoded := c.Decode(encoded, def)
			if !reflect.DeepEqual(decoded, tt.value) {
				t.Errorf("round trip mismatch: got %#v, want %#v", decoded, tt.value)
			}
		})
	}
}

func TestCodec_JSONPassThroughSerialized(t *testing.T) {
	c, _ := New("")
	def := core.ColumnDefinition{Type: core.TypeText, JSON: true}

	// An already-serialized string must not be double-encoded.
	encoded, err := c.Encode("settings", `{"theme":"dark"}`, def)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded != `{"theme":"dark"}` {
		t.Errorf("expected pass-through, got %q", encoded)
	}
}

func TestCodec_JSONNilPassesThrough(t *testing.T) {
	c, _ := New("")
	def := core.ColumnDefinition{Type: core.TypeText, JSON: true}

	encoded, err := c.Encode("settings", nil, def)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded != nil {
		t.Errorf("expected nil, got %#v", encoded)
	}
}

func TestCodec_EncryptRoundTrip(t *testing.T) {
	c, err := New("test-key")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	def := core.ColumnDefinition{Type: core.TypeText, Encrypted: true}

	for _, plaintext := range []string{"secret123", "", "unicode: héllo", `{"json":"text"}`} {
		encoded, err := c.Encode("password", plaintext, def)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		if encoded == plaintext && plaintext != "" {
			t.Errorf("ciphertext equals plaintext for %q", plaintext)
		}

		decoded := c.Decode(encoded, def)
		if decoded != plaintext {
			t.Errorf("round trip mismatch: got %q, want %q", decoded, plaintext)
		}
	}
}

func TestCodec_NoKeyIsSilentNoOp(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	def := core.ColumnDefinition{Type: core.TypeText, Encrypted: true}

	encoded, err := c.Encode("password", "secret123", def)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded != "secret123" {
		t.Errorf("expected unchanged value without key, got %q", encoded)
	}
}

func TestCodec_DecodeFailOpen(t *testing.T) {
	c, err := New("test-key")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	def := core.ColumnDefinition{Type: core.TypeText, Encrypted: true}

	// Decode must return the raw value, not an error, for anything that
	// does not decrypt: corrupted ciphertext reads back as-is.
	for _, raw := range []any{"not-base64!!!", "aGVsbG8=", "plaintext from before encryption was enabled"} {
		decoded := c.Decode(raw, def)
		if decoded != raw {
			t.Errorf("expected fail-open pass-through of %v, got %v", raw, decoded)
		}
	}
}

func TestCodec_DecodeFailOpenJSON(t *testing.T) {
	c, _ := New("")
	def := core.ColumnDefinition{Type: core.TypeText, JSON: true}

	decoded := c.Decode("{not json", def)
	if decoded != "{not json" {
		t.Errorf("expected fail-open pass-through, got %v", decoded)
	}
}

func TestCodec_JSONThenEncryptOrdering(t *testing.T) {
	c, err := New("test-key")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	def := core.ColumnDefinition{Type: core.TypeText, JSON: true, Encrypted: true}
	value := map[string]any{"theme": "dark"}

	encoded, err := c.Encode("settings", value, def)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Stored form must be ciphertext, not readable JSON.
	s, ok := encoded.(string)
	if !ok {
		t.Fatalf("expected string, got %T", encoded)
	}
	if json.Valid([]byte(s)) {
		t.Errorf("stored value is readable JSON; expected ciphertext: %q", s)
	}

	decoded := c.Decode(encoded, def)
	if !reflect.DeepEqual(decoded, value) {
		t.Errorf("round trip mismatch: got %#v, want %#v", decoded, value)
	}
}

func TestCodec_EncodeRowSkipsUndeclaredColumns(t *testing.T) {
	c, _ := New("test-key")
	schema := core.TableSchema{
		"password": {Type: core.TypeText, Encrypted: true},
	}

	row, err := c.EncodeRow(core.Row{"password": "secret", "extra": "untouched"}, schema)
	if err != nil {
		t.Fatalf("encode row failed: %v", err)
	}
	if row["extra"] != "untouched" {
		t.Errorf("undeclared column modified: %v", row["extra"])
	}
	if row["password"] == "secret" {
		t.Error("declared encrypted column not encoded")
	}
}
