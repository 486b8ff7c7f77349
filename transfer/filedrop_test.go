package transfer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeNameStripsSeparatorsAndTraversal(t *testing.T) {
	cases := map[string]string{
		"project":          "project",
		"../../etc/passwd": "____etc_passwd",
		"a/b\\c":           "a_b_c",
		"":                 "drop",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDropPathStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	path := DropPath(dir, "../../escape")
	if !strings.HasPrefix(path, dir) {
		t.Fatalf("path %q escaped dir %q", path, dir)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path %q is not a direct child of %q", path, dir)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := []byte("sealed envelope bytes")

	path, err := Write(dir, "myproject", data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasSuffix(path, ".env.age") {
		t.Fatalf("path %q missing .env.age suffix", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Read = %q, want %q", got, data)
	}
}

func TestReadRefusesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.env.age")
	if err := os.WriteFile(path, make([]byte, FileDropMaxSize+1), 0o600); err != nil {
		t.Fatalf("write big file: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("expected Read to refuse oversized file")
	}
}
