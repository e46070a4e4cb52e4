package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/labelshot/labelshot/pkg/streaming"
)

const (
	maxPending   = 256
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// pendingCapture is a capture message the server has not acknowledged yet.
type pendingCapture struct {
	key  string
	data []byte
	sent bool // written on the current connection
}

// stream owns the catalog connection. Captures live in an ordered ledger
// until the server acks them by base name; the write loop sends whatever
// the current connection has not seen, so a reconnect resends the
// remaining ledger after the start_session replay.
type stream struct {
	mu      sync.Mutex
	conn    *ws.Conn
	pending []*pendingCapture
	start   []byte // start_session of the open session
	closed  bool

	control chan []byte
	kick    chan struct{}
	acked   chan struct{}
	session chan streaming.AckMessage
	done    chan struct{}

	wsURL  string
	secret string

	initialBackoff time.Duration
	ackTimeout     time.Duration

	logger *slog.Logger
}

func newStream(logger *slog.Logger) *stream {
	return &stream{
		control: make(chan []byte, 2),
		kick:    make(chan struct{}, 1),
		acked:   make(chan struct{}, 1),
		session: make(chan streaming.AckMessage, 2),
		done:    make(chan struct{}),
		logger:  logger,

		initialBackoff: time.Second,
		ackTimeout:     ackTimeout,
	}
}

// dial connects and starts the read and write loops.
func (s *stream) dial(rawURL, secret string) error {
	s.wsURL = rawURL
	s.secret = secret

	conn, err := s.dialOnce()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.writeLoop()
	go s.readLoop(conn)
	return nil
}

func (s *stream) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(s.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", s.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop is the only writer for the life of the stream. Session control
// messages go first, then the unsent part of the ledger. With no live
// connection the loop waits for reconnect to wake it.
func (s *stream) writeLoop() {
	var held []byte
	for {
		select {
		case <-s.done:
			return
		case data := <-s.control:
			held = data
		case <-s.kick:
		}

		conn := s.current()
		if conn == nil {
			continue
		}
		if held != nil {
			if err := write(conn, held); err != nil {
				s.fail(conn, err)
				continue
			}
			held = nil
		}
		if err := s.flush(conn); err != nil {
			s.fail(conn, err)
		}
	}
}

func (s *stream) current() *ws.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *stream) fail(conn *ws.Conn, err error) {
	s.logger.Warn("WebSocket write error", "error", err)
	go s.reconnect(conn)
}

// flush writes every ledger entry not yet sent on conn, oldest first.
func (s *stream) flush(conn *ws.Conn) error {
	s.mu.Lock()
	var unsent []*pendingCapture
	for _, p := range s.pending {
		if !p.sent {
			unsent = append(unsent, p)
		}
	}
	s.mu.Unlock()

	for _, p := range unsent {
		if err := write(conn, p.data); err != nil {
			return err
		}
		s.mu.Lock()
		p.sent = true
		s.mu.Unlock()
	}
	return nil
}

func (s *stream) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Warn("WebSocket read error", "error", err)
			go s.reconnect(conn)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			s.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}

		if ack.For == streaming.TypeCapture {
			s.ackCapture(ack.Key)
			continue
		}
		select {
		case s.session <- ack:
		default:
			s.logger.Debug("Unexpected session ack, dropping", "for", ack.For)
		}
	}
}

func (s *stream) ackCapture(key string) {
	s.mu.Lock()
	for i, p := range s.pending {
		if p.key == key {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	select {
	case s.acked <- struct{}{}:
	default:
	}
}

// reconnect replaces the failed connection, replays start_session and marks
// the ledger unsent so the write loop resends it. Reader and writer may both
// report the same connection; only the first call does anything.
func (s *stream) reconnect(failed *ws.Conn) {
	s.mu.Lock()
	if s.closed || s.conn != failed {
		s.mu.Unlock()
		return
	}
	_ = s.conn.Close()
	s.conn = nil
	s.mu.Unlock()

	backoff := s.initialBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		s.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-s.done:
			return
		case <-time.After(backoff):
		}

		conn, err := s.dialOnce()
		if err != nil {
			s.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		start := s.start
		for _, p := range s.pending {
			p.sent = false
		}
		resend := len(s.pending)
		s.mu.Unlock()

		if start != nil {
			if err := write(conn, start); err != nil {
				s.logger.Warn("Failed to replay start_session after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		s.logger.Info("WebSocket reconnected", "attempt", attempt, "resending", resend)
		go s.readLoop(conn)
		s.wake()
		return
	}

	s.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

func (s *stream) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// enqueue adds a capture to the ledger. A full ledger means the server has
// stopped acknowledging; the capture is refused rather than buffered.
func (s *stream) enqueue(key string, data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("connection closed, capture %s not sent", key)
	}
	if len(s.pending) >= maxPending {
		s.mu.Unlock()
		return fmt.Errorf("%d captures awaiting ack, capture %s not sent", maxPending, key)
	}
	s.pending = append(s.pending, &pendingCapture{key: key, data: data})
	s.mu.Unlock()

	s.wake()
	return nil
}

// unacked returns the base names still waiting for an ack.
func (s *stream) unacked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.pending))
	for i, p := range s.pending {
		keys[i] = p.key
	}
	return keys
}

// drain waits until every capture is acknowledged.
func (s *stream) drain() error {
	timer := time.NewTimer(s.ackTimeout)
	defer timer.Stop()

	for {
		keys := s.unacked()
		if len(keys) == 0 {
			return nil
		}
		select {
		case <-s.acked:
		case <-timer.C:
			return fmt.Errorf("%d captures not acknowledged: %v", len(keys), keys)
		case <-s.done:
			return fmt.Errorf("connection closed with %d captures not acknowledged", len(keys))
		}
	}
}

// request sends a session control message and waits for its ack.
func (s *stream) request(data []byte, ackFor string) error {
	select {
	case s.control <- data:
	case <-s.done:
		return fmt.Errorf("connection closed before %q was sent", ackFor)
	}

	timer := time.NewTimer(s.ackTimeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-s.session:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-s.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops both loops.
func (s *stream) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return conn.Close()
	}
	return nil
}
