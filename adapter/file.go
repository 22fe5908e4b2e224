package adapter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// FileAdapter appends printer data to a file. It stands in for a device
// during dry runs and when capturing command streams.
type FileAdapter struct {
	listeners

	path   string
	file   *os.File
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileAdapter returns an unopened adapter writing to path
func NewFileAdapter(path string, logger *zap.Logger) *FileAdapter {
	return &FileAdapter{
		path:   path,
		logger: nopIfNil(logger).With(zap.String("path", path)),
	}
}

// Open creates or opens the file for appending
func (a *FileAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		return errors.New("device already open")
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", a.path, err)
	}

	a.file = f
	a.logger.Info("File printer opened")
	a.emit(Event{Type: EventConnect, Device: a.path})
	return nil
}

// Write appends data to the file
func (a *FileAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return 0, errors.New("device not open")
	}

	a.emit(Event{Type: EventData, Device: a.path, Data: data})

	n, err := a.file.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read always reports io.EOF; files do not answer status requests
func (a *FileAdapter) Read(buf []byte) (int, error) {
	if !a.IsOpen() {
		return 0, errors.New("device not open")
	}
	return 0, io.EOF
}

// Close closes the file
func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}

	err := a.file.Close()
	a.file = nil
	a.logger.Info("File printer closed")
	a.emit(Event{Type: EventClose, Device: a.path})
	return err
}

// IsOpen returns whether the file is open
func (a *FileAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file != nil
}
