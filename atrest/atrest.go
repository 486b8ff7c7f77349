// Package atrest implements the two in-place encryption modes for .env
// content: whole-file (age-encrypt the raw bytes) and per-variable
// (age-encrypt each value individually, wrapped as ENC[age:<base64>]),
// plus format auto-detection for both.
package atrest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"

	"github.com/cvsouth/enseal/envfile"
)

// ageHeaderLabel is the first line every age-format ciphertext begins
// with; used for whole-file format detection.
const ageHeaderLabel = "age-encryption.org/v1"

const (
	wrapperPrefix = "ENC[age:"
	wrapperSuffix = "]"
)

// EncryptWholeFile age-encrypts raw bytes to one or more recipients.
func EncryptWholeFile(data []byte, recipients []age.Recipient) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("age encrypt write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age encrypt close: %w", err)
	}
	return buf.Bytes(), nil
}

// DecryptWholeFile reverses EncryptWholeFile.
func DecryptWholeFile(ciphertext []byte, identities ...age.Identity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("age decrypt read: %w", err)
	}
	return data, nil
}

// IsAgeEncrypted reports whether data begins with the age format header,
// i.e. is whole-file encrypted.
func IsAgeEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeaderLabel))
}

// EncryptPerVariable traverses the parsed .env entries and replaces each
// variable's value with ENC[age:<base64 ciphertext>], leaving comments and
// blank lines byte-for-byte unchanged. The result remains a valid .env
// file.
func EncryptPerVariable(text string, recipients []age.Recipient) (string, error) {
	entries := envfile.Parse(text)
	for i, e := range entries {
		if e.Kind != envfile.KindVar {
			continue
		}
		ciphertext, err := EncryptWholeFile([]byte(e.Value), recipients)
		if err != nil {
			return "", fmt.Errorf("encrypt value for %s: %w", e.Key, err)
		}
		entries[i].Value = wrapperPrefix + base64.StdEncoding.EncodeToString(ciphertext) + wrapperSuffix
	}
	return envfile.Render(entries), nil
}

// DecryptPerVariable reverses EncryptPerVariable: every value matching the
// ENC[age:...] wrapper is decoded and decrypted; other lines pass through
// unchanged.
func DecryptPerVariable(text string, identities ...age.Identity) (string, error) {
	entries := envfile.Parse(text)
	for i, e := range entries {
		if e.Kind != envfile.KindVar || !isWrapped(e.Value) {
			continue
		}
		encoded := strings.TrimSuffix(strings.TrimPrefix(e.Value, wrapperPrefix), wrapperSuffix)
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("decode value for %s: %w", e.Key, err)
		}
		plaintext, err := DecryptWholeFile(ciphertext, identities...)
		if err != nil {
			return "", fmt.Errorf("decrypt value for %s: %w", e.Key, err)
		}
		entries[i].Value = string(plaintext)
	}
	return envfile.Render(entries), nil
}

func isWrapped(value string) bool {
	return strings.HasPrefix(value, wrapperPrefix) && strings.HasSuffix(value, wrapperSuffix)
}

// IsPerVarEncrypted reports whether any non-comment KEY=VALUE line's value
// is ENC[age:...]-wrapped.
func IsPerVarEncrypted(text string) bool {
	for _, e := range envfile.Parse(text) {
		if e.Kind == envfile.KindVar && isWrapped(e.Value) {
			return true
		}
	}
	return false
}
