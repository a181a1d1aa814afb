package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"webhook-tester/internal/config"
	"webhook-tester/internal/webhook"
)

// Log is the audit trail the ingestion path appends to. Append must not block
// on disk I/O.
type Log interface {
	Append(event webhook.Event)
	Close() error
}

// Metrics receives the outcome of audit writes.
type Metrics interface {
	AuditWritten(n int)
	AuditFailed(n int)
}

type noopMetrics struct{}

func (noopMetrics) AuditWritten(int) {}
func (noopMetrics) AuditFailed(int)  {}

// Writer queues events in memory and appends them to a file from a single
// background loop, on a ticker or as soon as the queue is half full.
type Writer struct {
	mu       sync.Mutex
	pending  []webhook.Event
	maxQueue int

	flushMu sync.Mutex
	file    *os.File
	path    string
	format  string

	kick    chan struct{}
	ticker  *time.Ticker
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	logger  *zerolog.Logger
	metrics Metrics
}

// Open creates the log file (and its directory) if missing and starts the
// flush loop. When auditing is disabled it returns a Nop log.
func Open(cfg config.AuditConfig, logger *zerolog.Logger, metrics Metrics) (Log, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	return NewWriter(cfg, logger, metrics)
}

func NewWriter(cfg config.AuditConfig, logger *zerolog.Logger, metrics Metrics) (*Writer, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	maxQueue := cfg.QueueSize
	if maxQueue < 1 {
		maxQueue = 1
	}
	format := cfg.Format
	if format == "" {
		format = FormatJSON
	}

	w := &Writer{
		maxQueue: maxQueue,
		file:     f,
		path:     cfg.Path,
		format:   format,
		kick:     make(chan struct{}, 1),
		ticker:   time.NewTicker(cfg.FlushInterval()),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   logger,
		metrics:  metrics,
	}
	go w.run()
	return w, nil
}

// Path returns the file the writer appends to.
func (w *Writer) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.done:
			return
		case <-w.ticker.C:
			w.Flush()
		case <-w.kick:
			w.Flush()
		}
	}
}

// Append queues event for writing. If the queue is full the event is dropped
// from the audit trail and the drop is logged.
func (w *Writer) Append(event webhook.Event) {
	w.mu.Lock()
	if len(w.pending) >= w.maxQueue {
		w.mu.Unlock()
		w.metrics.AuditFailed(1)
		w.logger.Warn().Str("event_id", event.ID).Msg("Audit queue full, entry dropped")
		return
	}
	w.pending = append(w.pending, event)
	shouldFlush := len(w.pending) >= (w.maxQueue+1)/2
	w.mu.Unlock()

	if shouldFlush {
		select {
		case w.kick <- struct{}{}:
		default:
		}
	}
}

// Flush writes every queued event to the file in queue order.
func (w *Writer) Flush() {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = nil
	w.mu.Unlock()

	var out []byte
	written := 0
	for _, ev := range batch {
		entry, err := FormatEntry(ev, w.format)
		if err != nil {
			w.metrics.AuditFailed(1)
			w.logger.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to format audit entry")
			continue
		}
		out = append(out, entry...)
		written++
	}
	if written == 0 {
		return
	}

	if _, err := w.file.Write(out); err != nil {
		w.metrics.AuditFailed(written)
		w.logger.Error().Err(err).Str("path", w.path).Int("entries", written).Msg("Failed to write audit log")
		return
	}
	w.metrics.AuditWritten(written)
	w.logger.Debug().Int("entries", written).Msg("Audit log flushed")
}

// Close stops the flush loop, writes what is still queued and closes the file.
func (w *Writer) Close() error {
	var err error
	w.once.Do(func() {
		w.ticker.Stop()
		close(w.done)
		<-w.stopped
		w.Flush()
		if cerr := w.file.Close(); cerr != nil {
			err = fmt.Errorf("close audit log: %w", cerr)
		}
	})
	return err
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Append(webhook.Event) {}
func (Nop) Close() error         { return nil }
