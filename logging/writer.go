package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// levelWriter writes one level's entries into <Director>/<date>/<level>.log,
// rotated by lumberjack.
type levelWriter struct {
	config  Config
	level   string
	mu      sync.RWMutex
	writers map[string]*lumberjack.Logger
}

func newLevelWriter(config Config, level string) *levelWriter {
	return &levelWriter{
		config:  config,
		level:   level,
		writers: make(map[string]*lumberjack.Logger),
	}
}

// Write implements io.Writer.
func (w *levelWriter) Write(p []byte) (int, error) {
	return w.writerFor(time.Now().Format("2006-01-02")).Write(p)
}

// Sync implements zapcore.WriteSyncer. lumberjack writes through on every call.
func (w *levelWriter) Sync() error {
	return nil
}

func (w *levelWriter) writerFor(date string) *lumberjack.Logger {
	w.mu.RLock()
	writer, ok := w.writers[date]
	w.mu.RUnlock()
	if ok {
		return writer
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if writer, ok := w.writers[date]; ok {
		return writer
	}

	dir := filepath.Join(w.config.Director, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = w.config.Director
		_ = os.MkdirAll(dir, 0o755)
	}

	writer = &lumberjack.Logger{
		Filename:   filepath.Join(dir, w.level+".log"),
		MaxSize:    w.config.MaxSize,
		MaxBackups: w.config.MaxBackups,
		MaxAge:     w.config.MaxAge,
		Compress:   w.config.Compress,
		LocalTime:  true,
	}

	// Only the current day stays open.
	for d, old := range w.writers {
		_ = old.Close()
		delete(w.writers, d)
	}
	w.writers[date] = writer
	return writer
}

// Close closes all open files.
func (w *levelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for d, writer := range w.writers {
		if err := writer.Close(); err != nil {
			lastErr = err
		}
		delete(w.writers, d)
	}
	return lastErr
}

var (
	openWriters   []*levelWriter
	openWritersMu sync.Mutex
)

// writeSyncerFor creates the sink for one level and registers it for CloseAllWriters.
func writeSyncerFor(config Config, level string) zapcore.WriteSyncer {
	fileWriter := newLevelWriter(config, level)

	openWritersMu.Lock()
	openWriters = append(openWriters, fileWriter)
	openWritersMu.Unlock()

	if config.LogInTerminal {
		return zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), zapcore.AddSync(fileWriter))
	}
	return zapcore.AddSync(fileWriter)
}

// CloseAllWriters closes every log file opened by this package.
func CloseAllWriters() error {
	openWritersMu.Lock()
	defer openWritersMu.Unlock()

	var lastErr error
	for _, w := range openWriters {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	openWriters = nil
	return lastErr
}

var _ io.WriteCloser = (*levelWriter)(nil)
