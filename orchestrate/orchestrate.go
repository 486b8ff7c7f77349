// Package orchestrate composes keystore, aliasbook, and identity into the
// two lookups spec.md §4.8 names: resolving a recipient reference typed
// on a command line into one or more trusted public-key bundles, and
// recovering the human-readable name behind a decrypted message's
// sender signing key.
package orchestrate

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/cvsouth/enseal/aliasbook"
	"github.com/cvsouth/enseal/identity"
	"github.com/cvsouth/enseal/keystore"
)

var (
	// ErrUnknownRecipient covers every way a recipient reference can fail
	// to resolve: no alias, no group, and no trusted key file under that
	// name.
	ErrUnknownRecipient = errors.New("orchestrate: unknown recipient")

	// ErrEmptyGroup is returned when ref names a group with no members;
	// an empty recipient list would otherwise reach signedenvelope.Seal
	// and fail there with a less actionable error.
	ErrEmptyGroup = errors.New("orchestrate: group has no members")
)

// ResolveRecipients resolves ref against, in order: the alias table, the
// group table, and finally a direct trusted-key lookup by identity name.
// The first match wins; a group reference returns one bundle per member,
// in the group's stored order.
func ResolveRecipients(s *keystore.Store, aliases *aliasbook.Aliases, groups *aliasbook.Groups, ref string) ([]*identity.PublicBundle, error) {
	if target, ok := aliases.Resolve(ref); ok {
		bundle, err := loadTrusted(s, target)
		if err != nil {
			return nil, err
		}
		return []*identity.PublicBundle{bundle}, nil
	}

	if members, ok := groups.Members(ref); ok {
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrEmptyGroup, ref)
		}
		bundles := make([]*identity.PublicBundle, 0, len(members))
		for _, m := range members {
			bundle, err := loadTrusted(s, m)
			if err != nil {
				return nil, err
			}
			bundles = append(bundles, bundle)
		}
		return bundles, nil
	}

	name, err := keystore.ValidateIdentityName(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an alias, group, or valid identity name", ErrUnknownRecipient, ref)
	}
	bundle, err := loadTrusted(s, name)
	if err != nil {
		return nil, err
	}
	return []*identity.PublicBundle{bundle}, nil
}

func loadTrusted(s *keystore.Store, name keystore.IdentityName) (*identity.PublicBundle, error) {
	data, err := os.ReadFile(s.TrustedPath(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownRecipient, name, err)
	}
	return identity.ParseBundle(name.String(), data)
}

// RecoverSender scans the trusted-key store for a bundle whose signing
// key matches signPub, attributing a decrypted message's declared sender
// to a known name. ok is false, with no error, when no trusted bundle
// matches — that is an expected outcome, not a failure.
func RecoverSender(s *keystore.Store, signPub ed25519.PublicKey) (name keystore.IdentityName, bundle *identity.PublicBundle, ok bool, err error) {
	names, err := s.ListTrusted()
	if err != nil {
		return "", nil, false, fmt.Errorf("list trusted keys: %w", err)
	}
	for _, n := range names {
		b, loadErr := loadTrusted(s, n)
		if loadErr != nil {
			continue
		}
		if b.SignPub.Equal(signPub) {
			return n, b, true, nil
		}
	}
	return "", nil, false, nil
}

// UnknownSenderWarning renders an actionable message for a sender signing
// key that matched no trusted bundle. It truncates the key's base64 form
// rather than computing a full fingerprint, since a fingerprint requires
// pairing it with the sender's age key, which an unmatched sender has not
// supplied trust for.
func UnknownSenderWarning(signPub ed25519.PublicKey) string {
	full := base64.StdEncoding.EncodeToString(signPub)
	trunc := full
	if len(trunc) > 8 {
		trunc = trunc[:8]
	}
	return fmt.Sprintf("unknown sender (signing key %s…not in your trusted-keys list)", trunc)
}
