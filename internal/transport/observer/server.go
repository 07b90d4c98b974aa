// Package observer streams read-only render frames of a running world to
// websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"logosim.ai/internal/observerproto"
	"logosim.ai/internal/sim/world"
)

type session struct {
	id  string
	sub atomic.Pointer[observerproto.SubscribeMsg]
	out chan []byte
}

// Server fans per-step frames out to observers. Publish runs on the world
// loop goroutine; slow clients only ever see the newest frame.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu        sync.Mutex
	sessions  map[string]*session
	bootstrap observerproto.BootstrapResponse
	last      []byte
}

// NewServer must be called before the world starts running; it subscribes
// to the world's tick hook.
func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions:  map[string]*session{},
		bootstrap: w.Bootstrap(),
	}
	w.OnTick(s.Publish)
	return s
}

// Sessions reports how many observers are subscribed.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Publish renders the world once per variant needed and hands each session
// its frame.
func (s *Server) Publish(e world.TickLogEntry) {
	boot := s.world.Bootstrap()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootstrap = boot

	var plain, full []byte
	render := func(withPatches bool) []byte {
		b, err := json.Marshal(s.world.BuildTickMsg(e.Tick, e.Digest, withPatches))
		if err != nil {
			if s.log != nil {
				s.log.Printf("observer: encode tick %d: %v", e.Tick, err)
			}
			return nil
		}
		return b
	}
	plain = render(false)
	s.last = plain
	for _, sess := range s.sessions {
		b := plain
		if sub := sess.sub.Load(); sub.IncludePatches && e.Tick%uint64(sub.PatchEvery) == 0 {
			if full == nil {
				full = render(true)
			}
			b = full
		}
		if b != nil {
			sendLatest(sess.out, b)
		}
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		s.mu.Lock()
		resp := s.bootstrap
		s.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sess := &session{id: fmt.Sprintf("O%d", s.nextID.Add(1)), out: make(chan []byte, 1)}
		sess.sub.Store(sub)
		s.mu.Lock()
		s.sessions[sess.id] = sess
		if s.last != nil {
			sess.out <- s.last
		}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sess.id)
			s.mu.Unlock()
		}()
		if s.log != nil {
			s.log.Printf("observer %s joined from %s", sess.id, r.RemoteAddr)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				sess.sub.Store(sub)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(msg []byte) (*observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return nil, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return nil, false
	}
	normalizeSubscribe(&sub)
	return &sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.PatchEvery <= 0 {
		sub.PatchEvery = 1
	}
	if sub.PatchEvery > 1000 {
		sub.PatchEvery = 1000
	}
}

// sendLatest replaces whatever frame is still queued with b.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
