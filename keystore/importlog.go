package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// importRecord is the on-disk sidecar format recording when a trusted key
// bundle was imported. Adapted from the teacher's directory.Cache JSON
// sidecar idiom (marshal a small struct, write 0600, read back with a
// tolerant "missing means absent" contract) and repurposed here for trust
// bookkeeping instead of Tor consensus caching.
type importRecord struct {
	ImportedAt time.Time `json:"imported_at"`
	Comment    string    `json:"comment,omitempty"`
}

// RecordImport writes (or overwrites) the import-log sidecar for a trusted
// key, stamping importedAt and an optional free-text comment pulled from
// the bundle file.
func (s *Store) RecordImport(name IdentityName, importedAt time.Time, comment string) error {
	rec := importRecord{ImportedAt: importedAt, Comment: comment}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal import record for %s: %w", name, err)
	}
	if err := os.MkdirAll(s.trustedDir(), 0o700); err != nil {
		return fmt.Errorf("create trusted-keys directory: %w", err)
	}
	if err := os.WriteFile(s.TrustedMetaPath(name), data, 0o600); err != nil {
		return fmt.Errorf("write import record for %s: %w", name, err)
	}
	return nil
}

// ImportedAt returns the recorded import time for a trusted key, or the
// zero time and false if no sidecar exists (e.g. a bundle copied in by
// hand rather than imported through the tool).
func (s *Store) ImportedAt(name IdentityName) (time.Time, bool) {
	data, err := os.ReadFile(s.TrustedMetaPath(name))
	if err != nil {
		return time.Time{}, false
	}
	var rec importRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return time.Time{}, false
	}
	return rec.ImportedAt, true
}
