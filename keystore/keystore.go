// Package keystore manages the on-disk layout of a principal's own keys and
// the trusted keys imported from other principals: path derivation, atomic
// owner-only-permission writes for private key material, and identity-name
// validation so no caller can build a path from an unchecked string.
package keystore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

const (
	keysDirName    = "keys"
	trustedDirName = "trusted"

	ownEncPrivName  = "enc.key"
	ownEncPubName   = "enc.pub"
	ownSignPrivName = "sign.key"
	ownSignPubName  = "sign.pub"

	aliasesFileName = "aliases"
	groupsFileName  = "groups"
)

// Store represents the base configuration directory for one principal.
// Layout:
//
//	<base>/keys/enc.key, enc.pub, sign.key, sign.pub   (own identity)
//	<base>/keys/trusted/<name>.pub                      (imported bundles)
//	<base>/keys/trusted/<name>.pub.meta                 (import-time sidecar)
//	<base>/aliases, <base>/groups                       (name tables)
type Store struct {
	Base string
}

// DefaultBase returns the default base configuration directory,
// "~/.config/enseal" (or the platform equivalent via os.UserConfigDir).
func DefaultBase() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "enseal")
}

// New returns a Store rooted at base. If base is empty, DefaultBase is used.
func New(base string) *Store {
	if base == "" {
		base = DefaultBase()
	}
	return &Store{Base: base}
}

func (s *Store) keysDir() string    { return filepath.Join(s.Base, keysDirName) }
func (s *Store) trustedDir() string { return filepath.Join(s.Base, keysDirName, trustedDirName) }

// OwnEncPrivPath, OwnEncPubPath, OwnSignPrivPath, OwnSignPubPath return the
// four files that make up an initialised identity.
func (s *Store) OwnEncPrivPath() string  { return filepath.Join(s.keysDir(), ownEncPrivName) }
func (s *Store) OwnEncPubPath() string   { return filepath.Join(s.keysDir(), ownEncPubName) }
func (s *Store) OwnSignPrivPath() string { return filepath.Join(s.keysDir(), ownSignPrivName) }
func (s *Store) OwnSignPubPath() string  { return filepath.Join(s.keysDir(), ownSignPubName) }

// TrustedPath returns the path a trusted key bundle for name is stored at.
// name must already be validated (see ValidateIdentityName); every caller
// that turns external input into this path is expected to have validated it.
func (s *Store) TrustedPath(name IdentityName) string {
	return filepath.Join(s.trustedDir(), name.String()+".pub")
}

// TrustedMetaPath returns the import-log sidecar path for a trusted key.
func (s *Store) TrustedMetaPath(name IdentityName) string {
	return filepath.Join(s.trustedDir(), name.String()+".pub.meta")
}

// AliasesPath and GroupsPath return the alias/group table files.
func (s *Store) AliasesPath() string { return filepath.Join(s.Base, aliasesFileName) }
func (s *Store) GroupsPath() string  { return filepath.Join(s.Base, groupsFileName) }

// EnsureDirs creates the keys and keys/trusted directories if missing.
func (s *Store) EnsureDirs() error {
	if err := os.MkdirAll(s.trustedDir(), 0o700); err != nil {
		return fmt.Errorf("create trusted-keys directory: %w", err)
	}
	return nil
}

// IsInitialised reports whether all four own-key files exist. Per the
// invariant in the data model, the identity is either fully present or
// considered uninitialised — no partial-state handling.
func (s *Store) IsInitialised() bool {
	for _, p := range []string{s.OwnEncPrivPath(), s.OwnEncPubPath(), s.OwnSignPrivPath(), s.OwnSignPubPath()} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// WritePrivate writes bytes to path as owner-read/write-only (0600),
// truncating any existing content, in a single write call, then reasserts
// the mode in case a pre-existing file had looser permissions. On
// non-POSIX platforms the mode bits are best-effort (os.Chmod no-ops on
// Windows for most of them), so the write itself still succeeds.
func WritePrivate(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", path, closeErr)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("reassert permissions on %s: %w", path, err)
		}
	}
	return nil
}

// ListTrusted returns a sorted list of trusted identity names. Entries not
// ending in ".pub" (such as the ".meta" sidecars) are skipped, as is any
// entry whose stem would fail ValidateIdentityName (e.g. a stray dotfile).
func (s *Store) ListTrusted() ([]IdentityName, error) {
	entries, err := os.ReadDir(s.trustedDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list trusted keys: %w", err)
	}
	var names []IdentityName
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := trustedStem(e)
		if !ok {
			continue
		}
		validated, err := ValidateIdentityName(name)
		if err != nil {
			continue
		}
		names = append(names, validated)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}

func trustedStem(e fs.DirEntry) (string, bool) {
	name := e.Name()
	const suffix = ".pub"
	if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
		return "", false
	}
	return name[:len(name)-len(suffix)], true
}
