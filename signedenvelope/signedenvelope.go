// Package signedenvelope implements the outer wire unit: age ciphertext of
// the serialised inner envelope, plus the sender's public keys and an
// Ed25519 signature computed over the exact ciphertext bytes. Signing over
// ciphertext lets a receiver reject tampering without attempting
// decryption, and lets any holder of the sender's public key verify
// authenticity without any decryption ability.
package signedenvelope

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/cloudflare/circl/sign/ed25519"
)

var (
	// ErrTampered is returned by Open when the signature does not verify
	// over the declared signing key. Callers must not fall back to an
	// unauthenticated mode after seeing this.
	ErrTampered = errors.New("signedenvelope: signature verification failed (tampered)")

	// ErrSenderMismatch is returned by Open when expectedSender was given
	// and the declared signing key is not byte-equal to it.
	ErrSenderMismatch = errors.New("signedenvelope: sender key mismatch")

	// ErrDecrypt collapses "wrong key" and "malformed ciphertext" into one
	// external error, to avoid leaking an oracle distinguishing the two.
	ErrDecrypt = errors.New("signedenvelope: decryption failed")

	// ErrNoRecipients is returned by Seal when called with an empty
	// recipient list.
	ErrNoRecipients = errors.New("signedenvelope: no recipients")
)

// SignedEnvelope is the wire format described in spec §6: ciphertext,
// sender's signing public key, sender's encryption public key (textual),
// and a signature over the ciphertext.
type SignedEnvelope struct {
	Ciphertext       []byte `json:"ciphertext"`
	SenderSignPubKey []byte `json:"sender_sign_pubkey"`
	SenderAgePubKey  string `json:"sender_age_pubkey"`
	Signature        []byte `json:"signature"`
}

// Sender is the minimal signing identity Seal needs: a signing private key
// and its own age recipient (carried in the wire record so the receiver
// can display "from whom", independent of trust).
type Sender interface {
	SigningPrivateKey() ed25519.PrivateKey
	SigningPublicKey() ed25519.PublicKey
	EncryptionRecipientString() string
}

// Seal age-encrypts innerBytes to recipients, then Ed25519-signs the
// resulting ciphertext with sender's signing key.
func Seal(innerBytes []byte, recipients []age.Recipient, sender Sender) (*SignedEnvelope, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(innerBytes); err != nil {
		return nil, fmt.Errorf("age encrypt write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age encrypt close: %w", err)
	}
	ciphertext := buf.Bytes()

	sig := ed25519.Sign(sender.SigningPrivateKey(), ciphertext)

	return &SignedEnvelope{
		Ciphertext:       ciphertext,
		SenderSignPubKey: []byte(sender.SigningPublicKey()),
		SenderAgePubKey:  sender.EncryptionRecipientString(),
		Signature:        sig,
	}, nil
}

// Open verifies the signature over the ciphertext, then age-decrypts with
// ownIdentity. If expectedSender is non-nil, the declared signing key must
// be byte-equal to it or Open fails with ErrSenderMismatch before any
// cryptographic verification is attempted.
func Open(se *SignedEnvelope, ownIdentity age.Identity, expectedSender ed25519.PublicKey) ([]byte, ed25519.PublicKey, error) {
	senderSignPub := ed25519.PublicKey(se.SenderSignPubKey)

	if expectedSender != nil && !senderSignPub.Equal(expectedSender) {
		return nil, nil, ErrSenderMismatch
	}

	if len(se.Signature) != ed25519.SignatureSize || !ed25519.Verify(senderSignPub, se.Ciphertext, se.Signature) {
		return nil, nil, ErrTampered
	}

	r, err := age.Decrypt(bytes.NewReader(se.Ciphertext), ownIdentity)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return plaintext, senderSignPub, nil
}
