// Package identity implements the long-lived dual-keypair identity: an
// X25519 keypair (age encryption) and an Ed25519 keypair (signing),
// persisted as four files under a keystore.Store, plus the fingerprint and
// channel-id derivations shared by both sides of a transfer.
package identity

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/age"
	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/cvsouth/enseal/keystore"
)

// ErrNotInitialised is returned by Load when one or more of the four
// identity files is missing. Per the data-model invariant, the identity is
// either fully present or considered uninitialised.
var ErrNotInitialised = errors.New("identity: not initialised")

// Identity holds a principal's own dual keypair.
type Identity struct {
	Enc      *age.X25519Identity
	SignPub  ed25519.PublicKey
	SignPriv ed25519.PrivateKey
}

// Generate produces a fresh Identity from a cryptographically secure
// source for both keypairs.
func Generate() (*Identity, error) {
	encIdentity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate x25519 identity: %w", err)
	}
	signPub, signPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 keypair: %w", err)
	}
	return &Identity{Enc: encIdentity, SignPub: signPub, SignPriv: signPriv}, nil
}

// EncRecipient returns the public half of the encryption keypair.
func (id *Identity) EncRecipient() *age.X25519Recipient {
	return id.Enc.Recipient()
}

// SigningPrivateKey, SigningPublicKey, and EncryptionRecipientString
// implement signedenvelope.Sender.
func (id *Identity) SigningPrivateKey() ed25519.PrivateKey  { return id.SignPriv }
func (id *Identity) SigningPublicKey() ed25519.PublicKey    { return id.SignPub }
func (id *Identity) EncryptionRecipientString() string      { return id.EncRecipient().String() }

// Load reads the four on-disk files that make up an identity. It returns
// ErrNotInitialised if any file is missing.
func Load(s *keystore.Store) (*Identity, error) {
	if !s.IsInitialised() {
		return nil, ErrNotInitialised
	}

	encPrivBytes, err := os.ReadFile(s.OwnEncPrivPath())
	if err != nil {
		return nil, fmt.Errorf("read encryption private key: %w", err)
	}
	encIdentity, err := age.ParseX25519Identity(strings.TrimSpace(string(encPrivBytes)))
	if err != nil {
		return nil, fmt.Errorf("parse encryption private key: %w", err)
	}

	signPrivRaw, err := readBase64File(s.OwnSignPrivPath())
	if err != nil {
		return nil, fmt.Errorf("read signing private key: %w", err)
	}
	if len(signPrivRaw) != ed25519.PrivateKeySize && len(signPrivRaw) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing private key: unexpected length %d", len(signPrivRaw))
	}
	var signPriv ed25519.PrivateKey
	if len(signPrivRaw) == ed25519.SeedSize {
		signPriv = ed25519.NewKeyFromSeed(signPrivRaw)
	} else {
		signPriv = ed25519.PrivateKey(signPrivRaw)
	}

	signPubRaw, err := readBase64File(s.OwnSignPubPath())
	if err != nil {
		return nil, fmt.Errorf("read signing public key: %w", err)
	}
	if len(signPubRaw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("signing public key: unexpected length %d", len(signPubRaw))
	}

	return &Identity{
		Enc:      encIdentity,
		SignPub:  ed25519.PublicKey(signPubRaw),
		SignPriv: signPriv,
	}, nil
}

// Save writes all four identity files, using keystore.WritePrivate for the
// two private-key files.
func (id *Identity) Save(s *keystore.Store) error {
	if err := s.EnsureDirs(); err != nil {
		return err
	}
	if err := keystore.WritePrivate(s.OwnEncPrivPath(), []byte(id.Enc.String()+"\n")); err != nil {
		return fmt.Errorf("save encryption private key: %w", err)
	}
	if err := os.WriteFile(s.OwnEncPubPath(), []byte(id.EncRecipient().String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("save encryption public key: %w", err)
	}
	if err := keystore.WritePrivate(s.OwnSignPrivPath(), []byte(b64(id.SignPriv)+"\n")); err != nil {
		return fmt.Errorf("save signing private key: %w", err)
	}
	if err := os.WriteFile(s.OwnSignPubPath(), []byte(b64(id.SignPub)+"\n"), 0o644); err != nil {
		return fmt.Errorf("save signing public key: %w", err)
	}
	return nil
}

func readBase64File(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
