// internal/storage/storage.go
package storage

import "github.com/labelshot/labelshot/pkg/core"

// Backend is the interface all capture catalog implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// RecordCapture catalogs one artifact set after it was written to disk.
	RecordCapture(rec *core.CaptureRecord) error
}

// Exporter is an optional interface for backends that produce a file
// describing the whole session.
type Exporter interface {
	ExportedFilePath() string
}
