// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/labelshot/labelshot/internal/config"
	"github.com/labelshot/labelshot/pkg/core"
)

// ErrNoSession is returned when captures arrive outside a session.
var ErrNoSession = errors.New("no session started")

// Backend keeps the session's capture records in memory and exports a
// manifest file when the session ends.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	captures []core.CaptureRecord
	totals   map[string]int // objects seen per name

	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		totals: make(map[string]int),
		now:    time.Now,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins a new manifest, dropping anything recorded before.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.captures = nil
	b.totals = make(map[string]int)
	b.lastExportPath = ""
	return nil
}

// EndSession writes the manifest.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	return b.exportJSON()
}

// RecordCapture appends a copy of rec to the manifest.
func (b *Backend) RecordCapture(rec *core.CaptureRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	cp := *rec
	cp.Objects = append([]core.ObjectRecord(nil), rec.Objects...)
	b.captures = append(b.captures, cp)
	for _, obj := range rec.Objects {
		b.totals[obj.ObjectName]++
	}
	return nil
}

// Captures returns a copy of the records collected so far.
func (b *Backend) Captures() []core.CaptureRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.CaptureRecord(nil), b.captures...)
}

// ExportedFilePath returns the manifest written by the last EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
