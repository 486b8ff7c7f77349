package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ChannelTimeout bounds how long Push or Listen will wait for a peer
// before giving up (spec.md §4.7).
const ChannelTimeout = 5 * time.Minute

var channelIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

var (
	// ErrInvalidChannelID is returned when a channel id contains anything
	// other than letters, digits, and hyphens.
	ErrInvalidChannelID = errors.New("transfer: invalid channel id")
)

// ValidateChannelID enforces the channel id character set. Channel ids
// are derived from identity fingerprints (see identity.ChannelID) but any
// caller-supplied id is checked the same way before it reaches a URL.
func ValidateChannelID(id string) error {
	if id == "" || !channelIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidChannelID, id)
	}
	return nil
}

// NormalizeRelayURL turns a user-supplied relay address into a WebSocket
// URL: https:// becomes wss://, http:// becomes ws:// (with a logged
// warning, since it carries the transfer in cleartext between client and
// relay), and a bare host defaults to the secure scheme.
func NormalizeRelayURL(raw string, logger *slog.Logger) string {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://")
	case strings.HasPrefix(raw, "http://"):
		if logger != nil {
			logger.Warn("relay URL uses http://, transport will be unencrypted ws://", "relay", raw)
		}
		return "ws://" + strings.TrimPrefix(raw, "http://")
	case strings.HasPrefix(raw, "wss://"), strings.HasPrefix(raw, "ws://"):
		return raw
	default:
		return "wss://" + raw
	}
}

func channelURL(relayURL, channelID string) string {
	base := strings.TrimSuffix(relayURL, "/")
	return base + "/channel/" + channelID
}

// ackPayload is the empty binary frame Listen sends back once it has
// received the payload, so Push can treat its arrival (or the peer
// closing) as confirmation of delivery.
var ackPayload = []byte{}

// Push delivers data to whichever peer connects to channelID on the given
// relay, in either connection order: if the listener has not yet
// connected, the relay buffers the frame until it does. After sending,
// Push waits for the listener's acknowledgement frame (or a close) before
// returning.
func Push(ctx context.Context, relayURL, channelID string, data []byte, logger *slog.Logger) error {
	if err := ValidateChannelID(channelID); err != nil {
		return err
	}
	url := NormalizeRelayURL(relayURL, logger)

	ctx, cancel := context.WithTimeout(ctx, ChannelTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, channelURL(url, channelID), nil)
	if err != nil {
		return fmt.Errorf("dial relay channel: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write to relay channel: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		return fmt.Errorf("await acknowledgement: %w", err)
	}
	return nil
}

// Listen waits for a peer to connect to channelID, returns the first
// binary frame it sends, and sends an acknowledgement frame back before
// closing.
func Listen(ctx context.Context, relayURL, channelID string, logger *slog.Logger) ([]byte, error) {
	if err := ValidateChannelID(channelID); err != nil {
		return nil, err
	}
	url := NormalizeRelayURL(relayURL, logger)

	ctx, cancel := context.WithTimeout(ctx, ChannelTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, channelURL(url, channelID), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay channel: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	typ, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read from relay channel: %w", err)
	}
	if typ != websocket.BinaryMessage {
		return nil, fmt.Errorf("transfer: unexpected frame type %d on relay channel", typ)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, ackPayload); err != nil {
		return nil, fmt.Errorf("send acknowledgement: %w", err)
	}
	return data, nil
}
