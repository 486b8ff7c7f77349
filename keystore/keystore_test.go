package keystore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidateIdentityName(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"alice", false},
		{"alice@laptop", false},
		{"", true},
		{"a/b", true},
		{"a\\b", true},
		{"../etc/passwd", true},
		{".hidden", true},
		{"has space", true},
		{"has\x00nul", true},
		{"has\ttab", true},
	}
	for _, c := range cases {
		_, err := ValidateIdentityName(c.name)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateIdentityName(%q) err = %v, wantErr %v", c.name, err, c.wantErr)
		}
	}
}

func TestValidateShortName(t *testing.T) {
	if err := ValidateShortName("my-alias_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateShortName(""); err == nil {
		t.Fatal("expected error for empty short name")
	}
	if err := ValidateShortName("has space"); err == nil {
		t.Fatal("expected error for space in short name")
	}
}

func TestStoreIsInitialised(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if s.IsInitialised() {
		t.Fatal("fresh store reports initialised")
	}
	for _, p := range []string{s.OwnEncPrivPath(), s.OwnEncPubPath(), s.OwnSignPrivPath(), s.OwnSignPubPath()} {
		if err := WritePrivate(p, []byte("x")); err != nil {
			t.Fatalf("WritePrivate(%s): %v", p, err)
		}
	}
	if !s.IsInitialised() {
		t.Fatal("store with all four files reports uninitialised")
	}
}

func TestWritePrivatePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys", "enc.key")
	if err := WritePrivate(path, []byte("secret")); err != nil {
		t.Fatalf("WritePrivate: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("mode = %o, want 0600", perm)
	}

	// Pre-existing looser permissions must be tightened.
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := WritePrivate(path, []byte("secret2")); err != nil {
		t.Fatalf("WritePrivate (rewrite): %v", err)
	}
	info, err = os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("mode after rewrite = %o, want 0600", perm)
	}
}

func TestListTrustedFiltersInvalidNames(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	valid := []string{"alice.pub", "bob@host.pub"}
	for _, f := range valid {
		if err := os.WriteFile(filepath.Join(s.trustedDir(), f), []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	// An invalid stem: leading dot.
	if err := os.WriteFile(filepath.Join(s.trustedDir(), ".hidden.pub"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write hidden: %v", err)
	}

	names, err := s.ListTrusted()
	if err != nil {
		t.Fatalf("ListTrusted: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2: %v", len(names), names)
	}
	if names[0] != "alice" || names[1] != "bob@host" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestImportLogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	name, err := ValidateIdentityName("alice")
	if err != nil {
		t.Fatalf("ValidateIdentityName: %v", err)
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.RecordImport(name, now, "met at conference"); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	got, ok := s.ImportedAt(name)
	if !ok {
		t.Fatal("ImportedAt: not found")
	}
	if !got.Equal(now) {
		t.Fatalf("ImportedAt = %v, want %v", got, now)
	}

	other, err := ValidateIdentityName("nobody")
	if err != nil {
		t.Fatalf("ValidateIdentityName: %v", err)
	}
	if _, ok := s.ImportedAt(other); ok {
		t.Fatal("expected no import record for unknown identity")
	}
}
