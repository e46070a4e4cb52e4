// Package websocket streams capture records to a remote catalog server.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/labelshot/labelshot/pkg/core"
	"github.com/labelshot/labelshot/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams session data over WebSocket. Every message is
// acknowledged by the server; captures are acked by base name and resent
// after a reconnect until they are.
type Backend struct {
	stream   *stream
	cfg      Config
	captures atomic.Int64
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		stream: newStream(logger),
		cfg:    cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.stream.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.stream.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartSession sends the session description and waits for server ack.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.NewStartSessionPayload(s))
	if err != nil {
		return err
	}

	b.stream.mu.Lock()
	b.stream.start = data
	b.stream.mu.Unlock()
	b.captures.Store(0)

	return b.stream.request(data, streaming.TypeStartSession)
}

// EndSession waits for outstanding captures, then sends end_session with
// the number the server acknowledged.
func (b *Backend) EndSession() error {
	drainErr := b.stream.drain()
	acked := b.captures.Load() - int64(len(b.stream.unacked()))

	data, err := marshalEnvelope(streaming.TypeEndSession, streaming.EndSessionPayload{Captures: int(acked)})
	if err != nil {
		return err
	}
	err = b.stream.request(data, streaming.TypeEndSession)

	b.stream.mu.Lock()
	b.stream.start = nil
	b.stream.mu.Unlock()

	return errors.Join(drainErr, err)
}

// RecordCapture adds the capture to the send ledger.
func (b *Backend) RecordCapture(rec *core.CaptureRecord) error {
	data, err := marshalEnvelope(streaming.TypeCapture, streaming.NewCapturePayload(rec))
	if err != nil {
		return err
	}
	if err := b.stream.enqueue(rec.BaseName, data); err != nil {
		return err
	}
	b.captures.Add(1)
	return nil
}
