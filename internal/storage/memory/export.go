package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/labelshot/labelshot/pkg/streaming"
)

// Manifest is the exported description of one session.
type Manifest struct {
	Session      streaming.StartSessionPayload `json:"session"`
	EndedAt      time.Time                     `json:"endedAt"`
	CaptureCount int                           `json:"captureCount"`
	Captures     []streaming.CapturePayload    `json:"captures"`
	ObjectTotals map[string]int                `json:"objectTotals"`
}

func (b *Backend) buildManifest() Manifest {
	m := Manifest{
		Session:      streaming.NewStartSessionPayload(b.session),
		EndedAt:      b.now(),
		CaptureCount: len(b.captures),
		Captures:     make([]streaming.CapturePayload, len(b.captures)),
		ObjectTotals: make(map[string]int, len(b.totals)),
	}
	for i := range b.captures {
		m.Captures[i] = streaming.NewCapturePayload(&b.captures[i])
	}
	for name, n := range b.totals {
		m.ObjectTotals[name] = n
	}
	return m
}

func (b *Backend) exportJSON() error {
	manifest := b.buildManifest()

	filename := fmt.Sprintf("labelshot_%s.json", b.session.StartTime.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, manifest); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, manifest); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return encode(f, data)
}

func writeGzipJSON(path string, data Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := encode(gzWriter, data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

func encode(w io.Writer, data Manifest) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
