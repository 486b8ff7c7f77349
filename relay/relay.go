// Package relay implements the rendezvous relay: a small two-party
// WebSocket mailbox service that pairs a sender and a receiver on a
// shared code and forwards binary frames between them, with TTL, per-IP
// rate limiting, bounded payload sizes, and a bounded per-instance mailbox
// count.
//
// The bidirectional pipe and connection-admission shape are adapted from
// the teacher's socks.Server (accept loop + semaphore-bounded goroutines,
// io.Copy-style full-duplex relay) — rewritten here for WebSocket frames
// routed through two internal channels per mailbox instead of raw TCP
// bytes copied 1:1.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// queueDepth is the capacity of each direction's internal channel.
	// A slow reader exerts backpressure on the writer once it fills.
	queueDepth = 32
)

// Config holds the relay's tunable resource limits.
type Config struct {
	MaxChannels   int           // mailbox cap: max live channels at once
	RateLimit     int           // max connections per IP in the rolling window
	RateWindow    time.Duration // the rolling window (spec: 60s)
	TTL           time.Duration // channel lifetime before eviction
	MaxFrameBytes int           // per-frame size ceiling
}

// DefaultConfig matches the bounds named in spec.md §4.6/§5.
func DefaultConfig() Config {
	return Config{
		MaxChannels:   1024,
		RateLimit:     20,
		RateWindow:    60 * time.Second,
		TTL:           10 * time.Minute,
		MaxFrameBytes: 16 << 20,
	}
}

var (
	ErrRateLimited      = fmt.Errorf("relay: rate limited")
	ErrTooManyMailboxes = fmt.Errorf("relay: too many mailboxes")
	ErrPayloadTooLarge  = fmt.Errorf("relay: payload too large")
)

// pairState coordinates teardown between the two sides of a pairing: the
// first side to error, close, or overflow calls Stop, which both sides'
// pumps observe to end the relay together.
type pairState struct {
	once sync.Once
	done chan struct{}
}

func newPairState() *pairState {
	return &pairState{done: make(chan struct{})}
}

func (p *pairState) Stop() { p.once.Do(func() { close(p.done) }) }

// channelEntry is the server-side transient pairing slot for one code.
type channelEntry struct {
	createdAt time.Time
	pair      *pairState
	// toFirst carries messages sent by the second peer, to be delivered
	// to the first peer. fromFirst carries messages sent by the first
	// peer, to be delivered to the second peer.
	toFirst   chan []byte
	fromFirst chan []byte
}

// Relay holds the process-wide mailbox state. Both the channels map and
// the connection log are guarded by one mutex; no I/O happens while it is
// held.
type Relay struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	channels map[string]*channelEntry
	connLog  map[string][]time.Time
}

// New returns a Relay ready to accept connections.
func New(cfg Config, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		cfg:      cfg,
		logger:   logger,
		channels: make(map[string]*channelEntry),
		connLog:  make(map[string][]time.Time),
	}
}

// Admit records a connection attempt from ip and reports whether it is
// within the per-IP rate limit.
func (r *Relay) Admit(ip string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.cfg.RateWindow)
	times := r.connLog[ip]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= r.cfg.RateLimit {
		r.connLog[ip] = kept
		return false
	}
	r.connLog[ip] = append(kept, now)
	return true
}

// evictExpired removes channels whose creation instant is older than TTL.
// Must be called with mu held.
func (r *Relay) evictExpired(now time.Time) {
	for code, entry := range r.channels {
		if now.Sub(entry.createdAt) > r.cfg.TTL {
			delete(r.channels, code)
			entry.pair.Stop()
		}
	}
}

// pairResult tells the caller which role a connection took.
type pairResult int

const (
	roleFirstPeer pairResult = iota
	roleSecondPeer
	roleRefusedFull
)

// pairOrCreate implements the pairing protocol (spec §4.6 step 2): if a
// channel exists for code, it is dequeued and the caller becomes the
// second peer; otherwise a new channel is created and the caller becomes
// the first peer, unless the mailbox cap has been reached.
func (r *Relay) pairOrCreate(code string, now time.Time) (pairResult, *channelEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpired(now)

	if entry, ok := r.channels[code]; ok {
		delete(r.channels, code)
		return roleSecondPeer, entry
	}
	if len(r.channels) >= r.cfg.MaxChannels {
		return roleRefusedFull, nil
	}
	entry := &channelEntry{
		createdAt: now,
		pair:      newPairState(),
		toFirst:   make(chan []byte, queueDepth),
		fromFirst: make(chan []byte, queueDepth),
	}
	r.channels[code] = entry
	return roleFirstPeer, entry
}

// releaseIfUnpaired removes entry from the map if it is still the
// registered entry for code (i.e. no second peer ever arrived to dequeue
// it). Called after a solo first-peer connection ends.
func (r *Relay) releaseIfUnpaired(code string, entry *channelEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[code] == entry {
		delete(r.channels, code)
	}
}

// ServeFirstPeer runs the relay loop for the connection that created the
// channel, using the entry's shared pair/channels. It blocks until the
// pairing ends (peer disconnect, error, oversized frame, or a second peer
// completing its own relay loop).
func (r *Relay) ServeFirstPeer(ctx context.Context, conn *websocket.Conn, code string, entry *channelEntry) {
	r.pipe(ctx, conn, entry.fromFirst, entry.toFirst, entry.pair)
	r.releaseIfUnpaired(code, entry)
}

// ServeSecondPeer runs the relay loop for the peer that paired against an
// existing channel. The entry has already been removed from the map by
// the caller (pairOrCreate did so atomically with the lookup).
func (r *Relay) ServeSecondPeer(ctx context.Context, conn *websocket.Conn, entry *channelEntry) {
	r.pipe(ctx, conn, entry.toFirst, entry.fromFirst, entry.pair)
}

// pipe wires one WebSocket connection to a pair of directional channels:
// out receives frames read from conn; in supplies frames to write to
// conn. Two tasks are spawned per spec.md §4.6 step 3; a close frame, any
// send error, or an oversized frame on either side terminates both.
func (r *Relay) pipe(ctx context.Context, conn *websocket.Conn, out chan<- []byte, in <-chan []byte, pair *pairState) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer pair.Stop()
		r.readPump(conn, out, pair)
	}()
	go func() {
		defer wg.Done()
		defer pair.Stop()
		r.writePump(conn, in, pair)
	}()
	go func() {
		select {
		case <-pair.done:
			_ = conn.Close()
		case <-ctx.Done():
			pair.Stop()
			_ = conn.Close()
		}
	}()

	wg.Wait()
}

func (r *Relay) readPump(conn *websocket.Conn, out chan<- []byte, pair *pairState) {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage {
			// Text frames are ignored per spec.md §6; control frames are
			// already handled by gorilla's default handlers.
			continue
		}
		if len(data) > r.cfg.MaxFrameBytes {
			r.logger.Warn("oversized frame, tearing down pairing", "size", len(data), "limit", r.cfg.MaxFrameBytes)
			return
		}
		select {
		case out <- data:
		case <-pair.done:
			return
		}
	}
}

func (r *Relay) writePump(conn *websocket.Conn, in <-chan []byte, pair *pairState) {
	for {
		select {
		case data, ok := <-in:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		case <-pair.done:
			return
		}
	}
}

// PairOrCreate is exported for the HTTP handler in server.go.
func (r *Relay) PairOrCreate(code string) (pairResult, *channelEntry) {
	return r.pairOrCreate(code, time.Now())
}
