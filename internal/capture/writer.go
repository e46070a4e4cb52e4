// Package capture turns a rendered frame into a labelled training sample:
// a raw image, a copy with every object boxed, and a JSON object list.
package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/labelshot/labelshot/internal/engine"
	"github.com/labelshot/labelshot/internal/imaging"
	"github.com/labelshot/labelshot/pkg/core"
)

// ErrCaptureExists is returned when a capture's files are already on disk.
var ErrCaptureExists = errors.New("capture already exists")

// Options configures a Writer.
type Options struct {
	OutputDir string
	Encoder   imaging.Encoder  // PNG when nil
	Policy    Policy           // PolicySuffix when empty
	Clock     func() time.Time // time.Now when nil
	Logger    *slog.Logger
	Metrics   *Metrics
}

// Writer persists captures into one output directory.
type Writer struct {
	dir     string
	encoder imaging.Encoder
	policy  Policy
	clock   func() time.Time
	log     *slog.Logger
	metrics *Metrics
}

// NewWriter returns a writer for opts.OutputDir. The directory is created on
// the first capture, not here.
func NewWriter(opts Options) *Writer {
	w := &Writer{
		dir:     opts.OutputDir,
		encoder: opts.Encoder,
		policy:  opts.Policy,
		clock:   opts.Clock,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if w.dir == "" {
		w.dir = "./"
	}
	if !strings.HasSuffix(w.dir, "/") {
		w.dir += "/"
	}
	if w.encoder == nil {
		w.encoder = imaging.PNGEncoder{}
	}
	if w.policy == "" {
		w.policy = PolicySuffix
	}
	if w.clock == nil {
		w.clock = time.Now
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	return w
}

// Dir returns the output directory, with a trailing slash.
func (w *Writer) Dir() string { return w.dir }

// Capture writes the artifact set for st. The screen buffer is annotated in
// place. Files already written are left on disk when a later step fails.
func (w *Writer) Capture(ctx context.Context, st *engine.State) (*core.CaptureRecord, error) {
	start := time.Now()
	rec, err := w.capture(st)
	objects := 0
	if rec != nil {
		objects = len(rec.Objects)
	}
	w.metrics.record(ctx, objects, time.Since(start), err)
	return rec, err
}

func (w *Writer) capture(st *engine.State) (*core.CaptureRecord, error) {
	now := w.clock()
	if st == nil || st.Screen == nil {
		return nil, errors.New("no frame to capture")
	}
	screen := st.Screen
	if err := screen.Validate(); err != nil {
		return nil, err
	}

	w.log.Info("*SNAP*")

	if err := os.Mkdir(w.dir, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("create output dir %s: %w", w.dir, err)
	}

	names, err := w.reserve(Timestamp(now))
	if err != nil {
		return nil, err
	}
	exclusive := w.policy != PolicyLegacy

	if err := w.writeImage(names.raw, screen, exclusive); err != nil {
		return nil, fmt.Errorf("write raw image %s: %w", names.raw, err)
	}

	objects := make([]core.ObjectRecord, 0, len(st.Labels))
	if st.LabelsBuffer != nil {
		for _, l := range st.Labels {
			imaging.DrawOutline(screen, l.X, l.Y, l.Width, l.Height, imaging.WarningRed)
			objects = append(objects, core.NewObjectRecord(l))
			w.log.Info(fmt.Sprintf("%s(%d) snapped", l.ObjectName, l.ObjectID))
		}
	}

	if err := w.writeImage(names.labeled, screen, exclusive); err != nil {
		return nil, fmt.Errorf("write labeled image %s: %w", names.labeled, err)
	}

	if err := writeMetadata(names.metadata, core.Metadata{Objects: objects}); err != nil {
		return nil, err
	}
	w.log.Info("Saved", "files", names.all(), "objects", len(objects))

	return &core.CaptureRecord{
		BaseName:     names.base,
		CapturedAt:   now,
		Tic:          st.Tic,
		RawPath:      names.raw,
		LabeledPath:  names.labeled,
		MetadataPath: names.metadata,
		Objects:      objects,
	}, nil
}

// reserve picks the base name according to the collision policy.
func (w *Writer) reserve(base string) (artifactNames, error) {
	ext := w.encoder.Extension()
	switch w.policy {
	case PolicyLegacy:
		return namesFor(w.dir, base, ext), nil
	case PolicyFail:
		names := namesFor(w.dir, base, ext)
		path, err := firstTaken(names)
		if err != nil {
			return artifactNames{}, err
		}
		if path != "" {
			return artifactNames{}, fmt.Errorf("%w: %s", ErrCaptureExists, path)
		}
		return names, nil
	default:
		for n := 1; n <= maxSuffix; n++ {
			names := namesFor(w.dir, suffixed(base, n), ext)
			path, err := firstTaken(names)
			if err != nil {
				return artifactNames{}, err
			}
			if path == "" {
				if n > 1 {
					w.log.Warn("Capture name taken, using suffix", "base", base, "name", names.base)
				}
				return names, nil
			}
		}
		return artifactNames{}, fmt.Errorf("%w: %s through suffix _%d", ErrCaptureExists, base, maxSuffix)
	}
}

// maxSuffix bounds the suffix search within one second.
const maxSuffix = 1000

// firstTaken returns the first of names already on disk, or "" when all are
// free. Lookup failures other than non-existence are returned as errors.
func firstTaken(names artifactNames) (string, error) {
	for _, p := range names.all() {
		_, err := os.Lstat(p)
		switch {
		case err == nil:
			return p, nil
		case errors.Is(err, fs.ErrNotExist):
		default:
			return "", fmt.Errorf("check %s: %w", p, err)
		}
	}
	return "", nil
}

func (w *Writer) writeImage(path string, buf *imaging.Buffer, exclusive bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %w", ErrCaptureExists, err)
		}
		return err
	}

	bw := bufio.NewWriter(f)
	if err := w.encoder.Encode(bw, buf); err != nil {
		f.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	w.log.Info("Saved image", "path", path)
	return nil
}

// writeMetadata always uses exclusive create.
func writeMetadata(path string, meta core.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("write metadata %s: %w: %w", path, ErrCaptureExists, err)
		}
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	return f.Close()
}
