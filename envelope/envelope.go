// Package envelope implements the inner semantic envelope: a versioned
// record carrying a payload's format, text, and integrity/freshness
// metadata. Envelope bytes are the unit transferred by every transport in
// anonymous mode, and the thing a SignedEnvelope wraps in identity mode.
package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cvsouth/enseal/envfile"
)

// MaxSize is the maximum serialised envelope size (16 MiB), enforced by
// FromBytes. The transports clamp incoming payloads to the same 16 MiB
// through their own constants.
const MaxSize = 16 << 20

// CurrentVersion is the only version from_bytes accepts. A future breaking
// change to the wire format must bump this rather than silently change
// field meaning.
const CurrentVersion = 1

// Format identifies the shape of an envelope's payload.
type Format string

const (
	FormatEnv Format = "env"
	FormatKV  Format = "kv"
	FormatRaw Format = "raw"
)

// ShortCodeMaxAge and FileDropMaxAge are the check_age ceilings named in
// spec.md §4.3 for the two transports that call it directly.
const (
	ShortCodeMaxAge = 300 * time.Second
	FileDropMaxAge  = 86_400 * time.Second
)

// maxClockSkew is how far into the future a created_at may be before
// check_age rejects it.
const maxClockSkew = 60 * time.Second

var (
	ErrTooLarge       = errors.New("envelope: serialised size exceeds 16 MiB")
	ErrUnknownVersion = errors.New("envelope: unrecognised version")
	ErrHashMismatch   = errors.New("envelope: payload hash mismatch")
	ErrNoTimestamp    = errors.New("envelope: no timestamp")
	ErrInTheFuture    = errors.New("envelope: created in the future")
	ErrExpired        = errors.New("envelope: expired")
)

// Metadata carries the integrity hash, creation time, and optional tags.
type Metadata struct {
	SHA256    string `json:"sha256"`
	CreatedAt int64  `json:"created_at"`
	VarCount  *int   `json:"var_count,omitempty"`
	Label     string `json:"label,omitempty"`
	Project   string `json:"project,omitempty"`
}

// Envelope is the version-1 inner semantic record.
type Envelope struct {
	Version  int      `json:"version"`
	Format   Format   `json:"format"`
	Payload  string   `json:"payload"`
	Metadata Metadata `json:"metadata"`
}

// now is overridable in tests that need to construct envelopes with a
// specific created_at; production code always uses the wall clock.
var now = func() time.Time { return time.Now() }

// Seal computes the payload hash, gathers the creation timestamp, derives
// var_count for "env" and "kv" formats, and returns a version-1 Envelope.
func Seal(payload string, format Format, label string) Envelope {
	sum := sha256.Sum256([]byte(payload))
	meta := Metadata{
		SHA256:    hex.EncodeToString(sum[:]),
		CreatedAt: now().Unix(),
		Label:     label,
	}
	switch format {
	case FormatEnv:
		n := envfile.CountVars(envfile.Parse(payload))
		meta.VarCount = &n
	case FormatKV:
		n := envfile.CountEqualsLines(payload)
		meta.VarCount = &n
	}
	return Envelope{
		Version:  CurrentVersion,
		Format:   format,
		Payload:  payload,
		Metadata: meta,
	}
}

// WithProject sets the optional project tag and returns the receiver for
// chaining at the call site.
func (e Envelope) WithProject(project string) Envelope {
	e.Metadata.Project = project
	return e
}

// ToBytes serialises the envelope using the self-describing JSON wire
// format (see spec §6).
func (e Envelope) ToBytes() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// FromBytes parses and validates a serialised envelope: it refuses inputs
// larger than MaxSize, refuses versions other than CurrentVersion, and
// recomputes the payload hash, failing on mismatch.
func FromBytes(data []byte) (Envelope, error) {
	var e Envelope
	if len(data) > MaxSize {
		return e, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if e.Version != CurrentVersion {
		return e, fmt.Errorf("%w: %d", ErrUnknownVersion, e.Version)
	}
	sum := sha256.Sum256([]byte(e.Payload))
	if hex.EncodeToString(sum[:]) != e.Metadata.SHA256 {
		return e, ErrHashMismatch
	}
	return e, nil
}

// CheckAge rejects envelopes with created_at == 0, rejects timestamps more
// than 60 seconds in the future, and rejects envelopes older than
// maxAge. It accepts exactly envelopes with
// created_at ∈ [now − maxAge, now + 60s].
func (e Envelope) CheckAge(maxAge time.Duration) error {
	if e.Metadata.CreatedAt == 0 {
		return ErrNoTimestamp
	}
	created := time.Unix(e.Metadata.CreatedAt, 0)
	nowT := now()
	if created.After(nowT.Add(maxClockSkew)) {
		return fmt.Errorf("%w: created_at %s", ErrInTheFuture, created)
	}
	if created.Before(nowT.Add(-maxAge)) {
		return fmt.Errorf("%w: created_at %s, max age %s", ErrExpired, created, maxAge)
	}
	return nil
}
