// Package codec applies per-column value transforms on the write and read
// paths: JSON serialization and symmetric encryption, driven by the column
// definition flags.
//
// Ordering is a fixed contract: encode serializes JSON first and encrypts
// the serialized text, so what reaches storage is ciphertext rather than
// readable JSON. Decode reverses it: decrypt, then parse.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/leapstack-labs/strata/pkg/core"
)

// Codec encodes and decodes column values. It is stateless apart from the
// derived encryption key and safe to share across tables.
type Codec struct {
	aead cipher.AEAD
}

// New derives an AES-256-GCM key from the passphrase via SHA-256. An empty
// passphrase yields a codec whose encryption step is a silent no-op: values
// flagged Encrypted pass through unchanged. That is a documented contract,
// not an error; callers who need encryption must configure a key.
func New(passphrase string) (*Codec, error) {
	c := &Codec{}
	if passphrase == "" {
		return c, nil
	}

	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher mode: %w", err)
	}
	c.aead = aead
	return c, nil
}

// Encode transforms a value for storage according to def. JSON columns are
// serialized to canonical text (already-serialized strings pass through);
// encrypted columns are sealed when a key is configured. Encode failures
// are real errors, never swallowed.
func (c *Codec) Encode(column string, value any, def core.ColumnDefinition) (any, error) {
	if def.JSON && value != nil {
		s, isString := value.(string)
		if isString && json.Valid([]byte(s)) {
			// Already serialized; pass through.
		} else {
			data, err := json.Marshal(value)
			if err != nil {
				return nil, &core.CodecError{Column: column, Err: err}
			}
			value = string(data)
		}
	}

	if def.Encrypted && c.aead != nil {
		if s, ok := value.(string); ok {
			sealed, err := c.seal(s)
			if err != nil {
				return nil, &core.CodecError{Column: column, Err: err}
			}
			value = sealed
		}
	}

	return value, nil
}

// Decode reverses Encode: decrypt, then parse JSON. Decode is fail-open by
// design: if decryption or parsing fails, the original still-encoded value
// is returned rather than an error, so reads of corrupted or legacy data
// do not break. Callers cannot distinguish that case from plaintext.
func (c *Codec) Decode(value any, def core.ColumnDefinition) any {
	if def.Encrypted && c.aead != nil {
		if s, ok := value.(string); ok {
			if plain, err := c.open(s); err == nil {
				value = plain
			}
		}
	}

	if def.JSON && value != nil {
		if s, ok := value.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				value = parsed
			}
		}
	}

	return value
}

// seal encrypts plaintext and returns base64(nonce || ciphertext).
func (c *Codec) seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Codec) open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncodeRow encodes every payload value whose column the schema declares.
// Columns absent from the schema pass through untouched.
func (c *Codec) EncodeRow(payload core.Row, schema core.TableSchema) (core.Row, error) {
	out := make(core.Row, len(payload))
	for col, val := range payload {
		def, ok := schema[col]
		if !ok {
			out[col] = val
			continue
		}
		encoded, err := c.Encode(col, val, def)
		if err != nil {
			return nil, err
		}
		out[col] = encoded
	}
	return out, nil
}

// DecodeRow decodes every row value whose column the schema declares.
func (c *Codec) DecodeRow(row core.Row, schema core.TableSchema) core.Row {
	out := make(core.Row, len(row))
	for col, val := range row {
		if def, ok := schema[col]; ok {
			out[col] = c.Decode(val, def)
		} else {
			out[col] = val
		}
	}
	return out
}
