package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sonoviz/sonoviz/internal/analyzer"
)

// Provider is what the server needs from the processing pipeline: the
// freshest feature record plus counters for the status endpoint.
type Provider interface {
	Latest() analyzer.Features
	Processed() uint64
	Skipped() uint64
}

// Server pushes feature frames to WebSocket clients and answers a small
// JSON status API. Clients are expected to hold the latest frame only;
// slow clients lose frames.
type Server struct {
	provider Provider
	log      *log.Logger

	mu        sync.Mutex
	clients   map[*client]struct{}
	broadcast chan []byte
	upgrader  websocket.Upgrader
}

// StatusResponse is the payload of GET /api/status and of every WebSocket
// push.
type StatusResponse struct {
	Features  analyzer.Features `json:"features"`
	Processed uint64            `json:"processed"`
	Skipped   uint64            `json:"skipped"`
}

const (
	pushInterval = 50 * time.Millisecond
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
)

// NewServer wires the feature provider into a server instance.
func NewServer(p Provider, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[web] ", log.LstdFlags)
	}
	return &Server{
		provider:  p,
		log:       logger,
		clients:   make(map[*client]struct{}),
		broadcast: make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)

	go s.broadcastLoop(ctx)
	go s.pushLoop(ctx)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Printf("feature server listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) status() StatusResponse {
	return StatusResponse{
		Features:  s.provider.Latest(),
		Processed: s.provider.Processed(),
		Skipped:   s.provider.Skipped(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16), server: s}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

// pushLoop marshals the latest features at a fixed cadence and hands them
// to the broadcaster without ever blocking on it.
func (s *Server) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		data, err := json.Marshal(s.status())
		if err != nil {
			continue
		}
		select {
		case s.broadcast <- data:
		default:
		}
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.broadcast:
			s.mu.Lock()
			for c := range s.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(s.clients, c)
				}
			}
			s.mu.Unlock()
		}
	}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

func (c *client) readPump() {
	defer func() {
		c.server.mu.Lock()
		delete(c.server.clients, c)
		c.server.mu.Unlock()
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
