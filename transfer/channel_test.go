package transfer

import "testing"

func TestValidateChannelID(t *testing.T) {
	valid := []string{"abc123", "a-b-c", "0123456789abcdef0123456789abcdef"}
	for _, id := range valid {
		if err := ValidateChannelID(id); err != nil {
			t.Errorf("ValidateChannelID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "has space", "has/slash", "has_underscore", "emoji🙂"}
	for _, id := range invalid {
		if err := ValidateChannelID(id); err == nil {
			t.Errorf("ValidateChannelID(%q) = nil, want error", id)
		}
	}
}

func TestNormalizeRelayURL(t *testing.T) {
	cases := map[string]string{
		"https://relay.example.com":      "wss://relay.example.com",
		"http://relay.example.com":       "ws://relay.example.com",
		"wss://relay.example.com":        "wss://relay.example.com",
		"ws://relay.example.com":         "ws://relay.example.com",
		"relay.example.com":              "wss://relay.example.com",
		"relay.example.com:8443":         "wss://relay.example.com:8443",
	}
	for in, want := range cases {
		if got := NormalizeRelayURL(in, nil); got != want {
			t.Errorf("NormalizeRelayURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestChannelURLJoinsCodeUnderPath(t *testing.T) {
	got := channelURL("wss://relay.example.com", "abc123")
	want := "wss://relay.example.com/channel/abc123"
	if got != want {
		t.Fatalf("channelURL = %q, want %q", got, want)
	}

	got = channelURL("wss://relay.example.com/", "abc123")
	if got != want {
		t.Fatalf("channelURL with trailing slash = %q, want %q", got, want)
	}
}
