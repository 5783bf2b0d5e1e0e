package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"hexplan.ai/internal/sim/runner"
)

const hourLayout = "2006-01-02-15"

// JSONLZstdWriter appends one JSON value per line to <dir>/<prefix>-<hour>.jsonl.zst,
// opening a new file when the UTC hour changes. Reopening an existing hour
// appends a new zstd frame, which decoders read as one stream.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu    sync.Mutex
	hour  string
	f     *os.File
	enc   *zstd.Encoder
	buf   *bufio.Writer
	lines uint64
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", w.prefix, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if hour := w.now().UTC().Format(hourLayout); hour != w.hour {
		if err := w.openLocked(hour); err != nil {
			return err
		}
	}
	b = append(b, '\n')
	if _, err := w.buf.Write(b); err != nil {
		return err
	}
	w.lines++
	return w.buf.Flush()
}

// Lines counts values written since construction.
func (w *JSONLZstdWriter) Lines() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) openLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.hour = f, enc, hour
	w.buf = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	if w.f == nil {
		return nil
	}
	_ = w.buf.Flush()
	err := w.enc.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f, w.enc, w.buf, w.hour = nil, nil, nil, ""
	return err
}

func (w *JSONLZstdWriter) path(hour string) string {
	return filepath.Join(w.dir, w.prefix+"-"+hour+".jsonl.zst")
}

// Files lists this writer's files in name order, which is chronological.
func (w *JSONLZstdWriter) Files() ([]string, error) {
	return Files(w.dir, w.prefix)
}

// Files lists <dir>/<prefix>-*.jsonl.zst in chronological order.
func Files(dir, prefix string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
}

// EventFiles lists the event logs under an events directory.
func EventFiles(dir string) ([]string, error) { return Files(dir, "events") }

// sink adapts a writer to the runner's fire-and-forget sink interfaces.
type sink[T any] struct {
	w       *JSONLZstdWriter
	OnError func(error)
}

func (s *sink[T]) write(v T) {
	if err := s.w.Write(v); err != nil && s.OnError != nil {
		s.OnError(err)
	}
}

func (s *sink[T]) Files() ([]string, error) { return s.w.Files() }
func (s *sink[T]) Close() error             { return s.w.Close() }

// EventLogger writes runner events to <dataDir>/events.
type EventLogger struct{ sink[runner.Event] }

func NewEventLogger(dataDir string) *EventLogger {
	return &EventLogger{sink[runner.Event]{w: NewJSONLZstdWriter(filepath.Join(dataDir, "events"), "events")}}
}

func (l *EventLogger) Emit(e runner.Event) { l.write(e) }

// PlanLogger writes one record per agent plan to <dataDir>/plans.
type PlanLogger struct{ sink[runner.PlanRecord] }

func NewPlanLogger(dataDir string) *PlanLogger {
	return &PlanLogger{sink[runner.PlanRecord]{w: NewJSONLZstdWriter(filepath.Join(dataDir, "plans"), "plans")}}
}

func (l *PlanLogger) RecordPlan(r runner.PlanRecord) { l.write(r) }
