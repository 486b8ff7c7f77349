package identity

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const fingerprintPrefixLen = 16

// fingerprintRaw computes the deterministic 16-byte SHA-256 prefix of the
// concatenation of the textual encryption public key and the
// base64-encoded signing public key. Both the fingerprint and the channel
// id are rendered from this same raw value, so either key changing changes
// both.
func fingerprintRaw(encPubText string, signPub []byte) [fingerprintPrefixLen]byte {
	h := sha256.Sum256([]byte(encPubText + b64(signPub)))
	var out [fingerprintPrefixLen]byte
	copy(out[:], h[:fingerprintPrefixLen])
	return out
}

// renderFingerprint renders a raw fingerprint for display: "SHA256:<base64-16>".
func renderFingerprint(raw [fingerprintPrefixLen]byte) string {
	return "SHA256:" + base64.StdEncoding.EncodeToString(raw[:])
}

// renderChannelID renders a raw fingerprint as a 32-character hex channel id.
func renderChannelID(raw [fingerprintPrefixLen]byte) string {
	return hex.EncodeToString(raw[:])
}

// Fingerprint returns the displayable fingerprint of this identity.
func (id *Identity) Fingerprint() string {
	return renderFingerprint(fingerprintRaw(id.EncRecipient().String(), id.SignPub))
}

// ChannelID returns the hex rendezvous code derived from this identity's
// public keys, for use in identity-channel transport.
func (id *Identity) ChannelID() string {
	return renderChannelID(fingerprintRaw(id.EncRecipient().String(), id.SignPub))
}

// Fingerprint returns the displayable fingerprint of a trusted bundle.
func (b *PublicBundle) Fingerprint() string {
	return renderFingerprint(fingerprintRaw(b.EncRecipient.String(), b.SignPub))
}

// ChannelID returns the hex rendezvous code derived from a trusted
// bundle's public keys. own.ChannelID() == trusted.ChannelID() for any
// matched pair, since both are computed from the same two public keys.
func (b *PublicBundle) ChannelID() string {
	return renderChannelID(fingerprintRaw(b.EncRecipient.String(), b.SignPub))
}
