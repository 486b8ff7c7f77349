// Package transfer implements the three transports named in spec.md §4.7:
// anonymous short-code rendezvous (this file), identity-channel push/listen
// (channel.go), and encrypted file drop (filedrop.go). All three move
// opaque bytes — callers are expected to pass already-sealed
// envelope/signedenvelope wire bytes in and parse what comes back.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/psanford/wormhole-william/wormhole"
)

// MaxRendezvousPayload bounds what Receive will buffer from a short-code
// transfer (spec.md §4.7, 16 MiB).
const MaxRendezvousPayload = 16 << 20

// rendezvousFileName is the nominal filename handed to the wormhole
// protocol's file-transfer mode. Short-code transfers carry opaque
// envelope bytes, not a user-facing file, so the name is fixed and
// ignored by both sides.
const rendezvousFileName = "envelope"

var ErrRendezvousTooLarge = errors.New("transfer: rendezvous payload too large")

// Rendezvous wraps a wormhole-william client for anonymous, code-word
// based transfers. An empty RelayURL uses the library's default public
// rendezvous and transit relay.
type Rendezvous struct {
	RelayURL        string
	TransitRelayURL string
}

func (r Rendezvous) client() *wormhole.Client {
	return &wormhole.Client{
		RelayURL:        r.RelayURL,
		TransitRelayURL: r.TransitRelayURL,
	}
}

// Send creates a mailbox, invokes onCode with the share code as soon as it
// is available (before any peer has connected), then transmits data and
// blocks until the transfer completes or ctx is done.
func (r Rendezvous) Send(ctx context.Context, data []byte, onCode func(code string)) error {
	c := r.client()
	code, resultCh, err := c.SendFile(ctx, rendezvousFileName, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create wormhole mailbox: %w", err)
	}
	if onCode != nil {
		onCode(code)
	}

	select {
	case result := <-resultCh:
		if result.Error != nil {
			return fmt.Errorf("wormhole transfer failed: %w", result.Error)
		}
		if !result.OK {
			return fmt.Errorf("wormhole transfer did not complete")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive connects to the mailbox named by code and returns the raw bytes
// sent by Send. It refuses payloads declared or measured larger than
// MaxRendezvousPayload.
func (r Rendezvous) Receive(ctx context.Context, code string) ([]byte, error) {
	c := r.client()
	msg, err := c.Receive(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("connect to wormhole mailbox: %w", err)
	}
	if msg.UncompressedBytes64 > MaxRendezvousPayload {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrRendezvousTooLarge, msg.UncompressedBytes64)
	}

	limited := io.LimitReader(msg, MaxRendezvousPayload+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read wormhole payload: %w", err)
	}
	if len(data) > MaxRendezvousPayload {
		return nil, ErrRendezvousTooLarge
	}
	return data, nil
}
