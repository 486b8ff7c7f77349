package identity

import "testing"

func TestFormatParseBundleRoundTrip(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data := FormatBundle("alice", id.EncRecipient(), id.SignPub)

	bundle, err := ParseBundle("alice", data)
	if err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	if bundle.EncRecipient.String() != id.EncRecipient().String() {
		t.Fatal("encryption recipient mismatch")
	}
	if !bundle.SignPub.Equal(id.SignPub) {
		t.Fatal("signing public key mismatch")
	}
	if bundle.Fingerprint() != id.Fingerprint() {
		t.Fatal("fingerprint mismatch")
	}
}

func TestParseBundleAcceptsCommentsAndEitherOrder(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	content := "# a random comment\n\n" +
		"sign: ed25519:" + b64(id.SignPub) + "\n" +
		"# another comment\n" +
		"age: " + id.EncRecipient().String() + "\n"

	bundle, err := ParseBundle("bob", []byte(content))
	if err != nil {
		t.Fatalf("ParseBundle: %v", err)
	}
	if bundle.EncRecipient.String() != id.EncRecipient().String() {
		t.Fatal("encryption recipient mismatch with sign-then-age ordering")
	}
}

func TestParseBundleRejectsMissingLines(t *testing.T) {
	if _, err := ParseBundle("bad", []byte("# just a comment\n")); err == nil {
		t.Fatal("expected error for bundle missing both key lines")
	}
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	onlyAge := "age: " + id.EncRecipient().String() + "\n"
	if _, err := ParseBundle("bad", []byte(onlyAge)); err == nil {
		t.Fatal("expected error for bundle missing sign line")
	}
}

func TestParseBundleRejectsMalformedKeys(t *testing.T) {
	content := "age: not-a-valid-recipient\nsign: ed25519:AAAA\n"
	if _, err := ParseBundle("bad", []byte(content)); err == nil {
		t.Fatal("expected error for malformed age recipient")
	}
}
