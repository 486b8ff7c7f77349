package identity

import (
	"errors"
	"testing"

	"github.com/cvsouth/enseal/keystore"
)

func TestGenerateSaveLoadRoundTrip(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	dir := t.TempDir()
	s := keystore.New(dir)

	if err := id.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.IsInitialised() {
		t.Fatal("store not initialised after Save")
	}

	loaded, err := Load(s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.EncRecipient().String() != id.EncRecipient().String() {
		t.Fatal("encryption public key mismatch after round-trip")
	}
	if loaded.Fingerprint() != id.Fingerprint() {
		t.Fatalf("fingerprint mismatch: %s vs %s", loaded.Fingerprint(), id.Fingerprint())
	}
	if !loaded.SignPriv.Equal(id.SignPriv) {
		t.Fatal("signing private key mismatch after round-trip")
	}
}

func TestLoadNotInitialised(t *testing.T) {
	dir := t.TempDir()
	s := keystore.New(dir)
	_, err := Load(s)
	if !errors.Is(err, ErrNotInitialised) {
		t.Fatalf("Load on empty store: got %v, want ErrNotInitialised", err)
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	bundle := id.Bundle("alice")
	if id.Fingerprint() != bundle.Fingerprint() {
		t.Fatalf("identity fingerprint %s != bundle fingerprint %s", id.Fingerprint(), bundle.Fingerprint())
	}
	if id.ChannelID() != bundle.ChannelID() {
		t.Fatalf("identity channel id %s != bundle channel id %s", id.ChannelID(), bundle.ChannelID())
	}
	if len(id.ChannelID()) != 32 {
		t.Fatalf("channel id length = %d, want 32", len(id.ChannelID()))
	}
}

func TestFingerprintDiffersBetweenIdentities(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("two independently generated identities collided")
	}
}
