// Package gormstorage implements the storage.Backend interface on GORM with
// a queue and a background writer goroutine. The SQLite and Postgres
// backends differ only in how they open the database.
package gormstorage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labelshot/labelshot/internal/database"
	"github.com/labelshot/labelshot/internal/model"
	"github.com/labelshot/labelshot/internal/model/convert"
	"github.com/labelshot/labelshot/internal/queue"
	"github.com/labelshot/labelshot/pkg/core"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued captures are written.
const DefaultFlushInterval = time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is used as is when set; otherwise Open is called by Init and the
	// backend closes the connection on Close.
	DB            *gorm.DB
	Open          func() (*gorm.DB, error)
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	db        *gorm.DB
	ownsDB    bool
	captures  *queue.Queue[model.Capture]
	sessionID atomic.Uint64
	count     atomic.Int64

	flushMu  sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:     deps,
		captures: queue.New[model.Capture](),
	}
}

// Init opens the database if needed, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	b.db = b.deps.DB
	if b.db == nil {
		if b.deps.Open == nil {
			return errors.New("no database configured")
		}
		db, err := b.deps.Open()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		b.db = db
		b.ownsDB = true
	}

	if err := database.Setup(b.db); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.doneChan = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the writer, flushes what is left and closes an owned connection.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.doneChan
	b.stopChan = nil

	err := b.flush()
	if n := b.Pending(); n > 0 {
		b.deps.Logger.Error("Closing catalog with unwritten captures", "count", n, "error", err)
	}
	if b.ownsDB {
		if sqlDB, dbErr := b.db.DB(); dbErr == nil {
			err = errors.Join(err, sqlDB.Close())
		}
	}
	return err
}

// StartSession inserts the session row synchronously so captures can refer to it.
func (b *Backend) StartSession(s *core.Session) error {
	if b.db == nil {
		return errors.New("backend not initialized")
	}
	row := convert.CoreToSession(*s)
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert capture session: %w", err)
	}
	b.sessionID.Store(uint64(row.ID))
	b.count.Store(0)
	return nil
}

// EndSession flushes queued captures and stamps the session's end.
func (b *Backend) EndSession() error {
	if err := b.flush(); err != nil {
		return err
	}
	id := uint(b.sessionID.Load())
	if id == 0 {
		return nil
	}
	err := b.db.Model(&model.CaptureSession{}).Where("id = ?", id).Updates(map[string]any{
		"ended_at":      sql.NullTime{Time: time.Now(), Valid: true},
		"capture_count": b.count.Load(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to close capture session: %w", err)
	}
	return nil
}

// RecordCapture converts the record and queues it for the writer.
func (b *Backend) RecordCapture(rec *core.CaptureRecord) error {
	b.captures.Push(convert.CoreToCapture(*rec, uint(b.sessionID.Load())))
	b.count.Add(1)
	return nil
}

// Pending returns the number of captures not yet written.
func (b *Backend) Pending() int {
	return b.captures.Len()
}

func (b *Backend) flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return writeQueue(b.db, b.captures, "captures", b.deps.Logger)
}

// writeQueue writes all items from a queue to the database in a transaction.
// Items go back to the queue when the insert fails.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if db == nil || q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating "+name, "count", len(items), "error", err)
		tx.Rollback()
		q.Requeue(items)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return fmt.Errorf("commit %s: %w", name, err)
	}
	log.Debug("Wrote "+name, "count", len(items))
	return nil
}

func (b *Backend) writerLoop() {
	defer close(b.doneChan)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.flush(); err != nil {
				b.deps.Logger.Warn("Catalog flush failed, will retry", "error", err)
			}
		}
	}
}
