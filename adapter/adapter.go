package adapter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos-printout-server/config"
)

// Adapter defines the interface for printer communication adapters
type Adapter interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Read reads data from the printer
	Read(buf []byte) (int, error)

	// Close closes the connection to the printer
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}

// Observable is implemented by adapters that publish lifecycle events
type Observable interface {
	On(eventType EventType, handler func(Event))
}

// New creates the adapter selected by cfg.Type. The adapter is not opened.
func New(cfg config.PrinterConfig, logger *zap.Logger) (Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "adapter"), zap.String("printer", cfg.Type))

	switch cfg.Type {
	case config.PrinterUSB:
		if cfg.USB.VID == 0 && cfg.USB.PID == 0 {
			return NewUSBAdapterAuto(logger)
		}
		return NewUSBAdapter(cfg.USB.VID, cfg.USB.PID, logger)
	case config.PrinterSerial:
		return NewSerialAdapter(cfg.Serial, logger)
	case config.PrinterFile:
		return NewFileAdapter(cfg.File.Path, logger), nil
	default:
		return nil, fmt.Errorf("unknown printer type %q", cfg.Type)
	}
}
