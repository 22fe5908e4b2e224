package adapter

import (
	"errors"
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos-printout-server/config"
)

// SerialAdapter drives a printer attached to a serial port
type SerialAdapter struct {
	listeners

	config config.SerialPortConfig
	mode   *serial.Mode
	port   serial.Port
	open   func(name string, mode *serial.Mode) (serial.Port, error)
	logger *zap.Logger
	isOpen bool
	mu     sync.Mutex
}

// NewSerialAdapter validates cfg and returns an unopened adapter
func NewSerialAdapter(cfg config.SerialPortConfig, logger *zap.Logger) (*SerialAdapter, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port is required")
	}

	mode, err := serialMode(cfg)
	if err != nil {
		return nil, err
	}

	return &SerialAdapter{
		config: cfg,
		mode:   mode,
		open:   serial.Open,
		logger: nopIfNil(logger).With(zap.String("port", cfg.Port)),
	}, nil
}

func serialMode(cfg config.SerialPortConfig) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 9600
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	switch cfg.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", cfg.StopBits)
	}

	switch cfg.Parity {
	case "", "none":
		mode.Parity = serial.NoParity
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", cfg.Parity)
	}

	return mode, nil
}

// Open opens the serial port
func (a *SerialAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return errors.New("device already open")
	}

	port, err := a.open(a.config.Port, a.mode)
	if err != nil {
		a.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port %s: %w", a.config.Port, err)
	}

	a.port = port
	a.isOpen = true
	a.logger.Info("Serial printer opened", zap.Int("baud_rate", a.mode.BaudRate))
	a.emit(Event{Type: EventConnect, Device: a.config.Port})
	return nil
}

// Write sends data to the printer
func (a *SerialAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}

	a.emit(Event{Type: EventData, Device: a.config.Port, Data: data})

	n, err := a.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads data from the printer
func (a *SerialAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}

	n, err := a.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}
	return n, nil
}

// Close closes the serial port
func (a *SerialAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return nil
	}

	err := a.port.Close()
	a.port = nil
	a.isOpen = false
	a.logger.Info("Serial printer closed")
	a.emit(Event{Type: EventClose, Device: a.config.Port})

	if err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// IsOpen returns whether the port is open
func (a *SerialAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}
