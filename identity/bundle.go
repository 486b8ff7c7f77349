package identity

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"filippo.io/age"
	"github.com/cloudflare/circl/sign/ed25519"
)

// PublicBundle is a principal's public-key bundle as imported from a
// ".pub" text file: one "age: ..." line, one "sign: ed25519:<base64>"
// line, and any number of "#" comment and blank lines. The text of the
// first comment line is kept in Comment; the others are ignored.
type PublicBundle struct {
	Name         string
	EncRecipient *age.X25519Recipient
	SignPub      ed25519.PublicKey
	Comment      string
}

// FormatBundle renders the fixed-header public-key bundle file format for
// name.
//
//	# enseal public key for <name>
//	# fingerprint: SHA256:<base64-16>
//	age: <textual x25519 recipient>
//	sign: ed25519:<base64 32-byte verifying key>
func FormatBundle(name string, enc *age.X25519Recipient, signPub ed25519.PublicKey) []byte {
	fp := renderFingerprint(fingerprintRaw(enc.String(), signPub))
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# enseal public key for %s\n", name)
	fmt.Fprintf(&buf, "# fingerprint: %s\n", fp)
	fmt.Fprintf(&buf, "age: %s\n", enc.String())
	fmt.Fprintf(&buf, "sign: ed25519:%s\n", b64(signPub))
	return buf.Bytes()
}

// Bundle returns the PublicBundle form of an identity's own public keys,
// suitable for exporting with FormatBundle.
func (id *Identity) Bundle(name string) *PublicBundle {
	return &PublicBundle{Name: name, EncRecipient: id.EncRecipient(), SignPub: id.SignPub}
}

// ParseBundle parses a public-key bundle file's content. Comment lines
// (anything starting with "#") carry no key material; the first one's text
// is returned as Comment and the rest are ignored. Exactly one "age: ..."
// line and one "sign: ed25519:<base64>" line are required. The order of
// the two key lines is not significant.
func ParseBundle(name string, content []byte) (*PublicBundle, error) {
	var encLine, signLine string
	var comment string

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if comment == "" {
				comment = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "age:"):
			if encLine != "" {
				return nil, fmt.Errorf("public key bundle %q: more than one \"age:\" line", name)
			}
			encLine = strings.TrimSpace(strings.TrimPrefix(line, "age:"))
		case strings.HasPrefix(line, "sign:"):
			if signLine != "" {
				return nil, fmt.Errorf("public key bundle %q: more than one \"sign:\" line", name)
			}
			signLine = strings.TrimSpace(strings.TrimPrefix(line, "sign:"))
		default:
			return nil, fmt.Errorf("public key bundle %q: unrecognised line %q", name, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("public key bundle %q: %w", name, err)
	}

	if encLine == "" {
		return nil, fmt.Errorf("public key bundle %q: missing \"age:\" line", name)
	}
	if signLine == "" {
		return nil, fmt.Errorf("public key bundle %q: missing \"sign:\" line", name)
	}

	encRecipient, err := age.ParseX25519Recipient(encLine)
	if err != nil {
		return nil, fmt.Errorf("public key bundle %q: malformed age recipient: %w", name, err)
	}

	const signPrefix = "ed25519:"
	if !strings.HasPrefix(signLine, signPrefix) {
		return nil, fmt.Errorf("public key bundle %q: unsupported signing key type %q", name, signLine)
	}
	signPubRaw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(signLine, signPrefix))
	if err != nil {
		return nil, fmt.Errorf("public key bundle %q: malformed signing key: %w", name, err)
	}
	if len(signPubRaw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key bundle %q: signing key wrong length %d", name, len(signPubRaw))
	}

	return &PublicBundle{
		Name:         name,
		EncRecipient: encRecipient,
		SignPub:      ed25519.PublicKey(signPubRaw),
		Comment:      comment,
	}, nil
}
