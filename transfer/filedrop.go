package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cvsouth/enseal/keystore"
)

// FileDropMaxSize bounds what Read will accept, checked via fstat before
// the file is read into memory.
const FileDropMaxSize = 16 << 20

const fileDropSuffix = ".env.age"

var fileDropReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	"..", "_",
)

// SanitizeName collapses path separators and ".." sequences in name so it
// cannot escape the destination directory when used to build a file path.
func SanitizeName(name string) string {
	name = fileDropReplacer.Replace(name)
	if name == "" {
		name = "drop"
	}
	return name
}

// DropPath returns the path a file drop for name is written to or read
// from: "<dir>/<sanitized name>.env.age".
func DropPath(dir, name string) string {
	return filepath.Join(dir, SanitizeName(name)+fileDropSuffix)
}

// Write writes data (expected to be a sealed envelope or signed envelope,
// serialised) to DropPath(dir, name) as owner-only (0600).
func Write(dir, name string, data []byte) (string, error) {
	path := DropPath(dir, name)
	if err := keystore.WritePrivate(path, data); err != nil {
		return "", fmt.Errorf("write file drop %s: %w", path, err)
	}
	return path, nil
}

// Read reads a file drop, refusing anything larger than FileDropMaxSize
// before reading its contents.
func Read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file drop %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file drop %s: %w", path, err)
	}
	if info.Size() > FileDropMaxSize {
		return nil, fmt.Errorf("transfer: file drop %s is %d bytes, exceeds %d byte limit", path, info.Size(), FileDropMaxSize)
	}

	data := make([]byte, info.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read file drop %s: %w", path, err)
	}
	return data, nil
}
