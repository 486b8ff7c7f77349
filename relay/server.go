package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

// Server wires a Relay to HTTP routes: GET /health and the WebSocket
// upgrade endpoint GET /channel/{code}.
type Server struct {
	relay    *Relay
	logger   *slog.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer builds a Server listening on addr.
func NewServer(addr string, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		relay:  New(cfg, logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Rendezvous codes are the authorization mechanism, not
			// Origin; this relay is meant to be reachable from any
			// client context that knows the code.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/channel/{code}", s.handleChannel).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP/WebSocket traffic until ctx is
// cancelled, at which point it shuts the server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening", "addr", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

type healthResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Service: "enseal-relay",
		Version: Version,
		Status:  "ok",
	})
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	ip := clientIP(r)

	if !s.relay.Admit(ip, time.Now()) {
		http.Error(w, "too many connection attempts, slow down", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err, "remote", ip)
		return
	}

	role, entry := s.relay.PairOrCreate(code)
	switch role {
	case roleRefusedFull:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "relay at capacity"),
			time.Now().Add(2*time.Second))
		_ = conn.Close()
		return
	case roleFirstPeer:
		s.relay.ServeFirstPeer(r.Context(), conn, code, entry)
	case roleSecondPeer:
		s.relay.ServeSecondPeer(r.Context(), conn, entry)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
