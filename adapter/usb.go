package adapter

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassAudio   = 0x01
	IfaceClassHID     = 0x03
	IfaceClassPrinter = 0x07
	IfaceClassHub     = 0x09
)

// ErrNoPrinter is returned when no USB device exposes a printer interface
var ErrNoPrinter = errors.New("cannot find printer")

// USBAdapter manages USB printer communication
type USBAdapter struct {
	listeners

	device      *gousb.Device
	ctx         *gousb.Context
	cfg         *gousb.Config
	outEndpoint *gousb.OutEndpoint
	inEndpoint  *gousb.InEndpoint
	iface       *gousb.Interface
	logger      *zap.Logger
	isOpen      bool
	mu          sync.Mutex
}

// NewUSBAdapter opens the device with the given VID/PID, falling back to the
// first printer-class device when it is absent.
func NewUSBAdapter(vid, pid uint16, logger *zap.Logger) (*USBAdapter, error) {
	ctx := gousb.NewContext()
	a := &USBAdapter{ctx: ctx, logger: nopIfNil(logger)}

	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil || device == nil {
		a.logger.Warn("Configured USB printer not found, searching printer-class devices",
			zap.String("vid", gousb.ID(vid).String()),
			zap.String("pid", gousb.ID(pid).String()),
			zap.Error(err),
		)
		devices := FindPrinters(ctx, a.logger)
		if len(devices) == 0 {
			ctx.Close()
			return nil, ErrNoPrinter
		}
		closeAllBut(devices, devices[0])
		a.device = devices[0]
	} else {
		a.device = device
	}

	return a, nil
}

// NewUSBAdapterAuto creates adapter with auto-detection
func NewUSBAdapterAuto(logger *zap.Logger) (*USBAdapter, error) {
	ctx := gousb.NewContext()
	a := &USBAdapter{ctx: ctx, logger: nopIfNil(logger)}

	devices := FindPrinters(ctx, a.logger)
	if len(devices) == 0 {
		ctx.Close()
		return nil, ErrNoPrinter
	}

	closeAllBut(devices, devices[0])
	a.device = devices[0]
	return a, nil
}

// IsPrinter checks if a device is a printer
func IsPrinter(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}
	_, err := printerInterface(dev)
	return err == nil
}

// printerInterface returns the number of the first interface of the active
// configuration that declares the printer class.
func printerInterface(dev *gousb.Device) (int, error) {
	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return -1, fmt.Errorf("failed to get active config: %w", err)
	}

	desc, ok := dev.Desc.Configs[cfgNum]
	if !ok {
		return -1, fmt.Errorf("active config %d has no descriptor", cfgNum)
	}

	for _, iface := range desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				return iface.Number, nil
			}
		}
	}
	return -1, errors.New("no printer interface found")
}

// FindPrinters returns all USB printer devices. Non-printer devices are closed.
func FindPrinters(ctx *gousb.Context, logger *zap.Logger) []*gousb.Device {
	logger = nopIfNil(logger)
	printers := []*gousb.Device{}

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil {
		logger.Debug("Some USB devices could not be opened", zap.Error(err))
	}

	for _, dev := range devices {
		if IsPrinter(dev) {
			logger.Info("Found USB printer", zap.String("device", dev.String()))
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}

	return printers
}

// GetDeviceByVIDPID opens a device by VID and PID
func GetDeviceByVIDPID(ctx *gousb.Context, vid, pid uint16) (*gousb.Device, error) {
	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, errors.New("device not found")
	}
	return device, nil
}

// GetDeviceBySerial opens a device by serial number
func GetDeviceBySerial(ctx *gousb.Context, serial string) (*gousb.Device, error) {
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil && len(devices) == 0 {
		return nil, err
	}

	for _, dev := range devices {
		s, err := dev.SerialNumber()
		if err == nil && s == serial {
			closeAllBut(devices, dev)
			return dev, nil
		}
	}
	closeAllBut(devices, nil)

	return nil, errors.New("device with serial number not found")
}

// Open claims the printer interface and its bulk endpoints
func (a *USBAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return errors.New("device already open")
	}
	if a.device == nil {
		return errors.New("device not found")
	}

	if runtime.GOOS == "linux" {
		a.device.SetAutoDetach(true)
	}

	ifaceNum, err := printerInterface(a.device)
	if err != nil {
		return err
	}

	cfgNum, err := a.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}
	cfg, err := a.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction == gousb.EndpointDirectionOut && a.outEndpoint == nil {
			if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
				a.outEndpoint = ep
			}
		}
		if epDesc.Direction == gousb.EndpointDirectionIn && a.inEndpoint == nil {
			if ep, err := iface.InEndpoint(epDesc.Number); err == nil {
				a.inEndpoint = ep
			}
		}
	}

	if a.outEndpoint == nil {
		iface.Close()
		cfg.Close()
		return errors.New("cannot find output endpoint from printer")
	}

	a.cfg = cfg
	a.iface = iface
	a.isOpen = true
	a.logger.Info("USB printer opened", zap.String("device", a.device.String()), zap.Int("interface", ifaceNum))
	a.emit(Event{Type: EventConnect, Device: a.device.String()})

	return nil
}

// Write sends data to the printer
func (a *USBAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}
	if a.outEndpoint == nil {
		return 0, errors.New("output endpoint not available")
	}

	a.emit(Event{Type: EventData, Device: a.device.String(), Data: data})

	n, err := a.outEndpoint.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads data from the printer
func (a *USBAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}
	if a.inEndpoint == nil {
		return 0, errors.New("input endpoint not available")
	}

	n, err := a.inEndpoint.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}
	return n, nil
}

// Close releases the interface, the device and the USB context. It also
// releases a device that was found but never opened.
func (a *USBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.device == nil && a.ctx == nil {
		return nil
	}

	var errs []error
	wasOpen := a.isOpen
	name := ""
	if a.device != nil {
		name = a.device.String()
	}

	if a.iface != nil {
		a.iface.Close()
		a.iface = nil
		a.outEndpoint = nil
		a.inEndpoint = nil
	}
	if a.cfg != nil {
		if err := a.cfg.Close(); err != nil {
			errs = append(errs, err)
		}
		a.cfg = nil
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
		a.device = nil
	}
	if a.ctx != nil {
		if err := a.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		a.ctx = nil
	}

	a.isOpen = false
	if wasOpen {
		a.logger.Info("USB printer closed", zap.String("device", name))
		a.emit(Event{Type: EventClose, Device: name})
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// IsOpen returns whether the device is open
func (a *USBAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}

// GetDevice returns the underlying USB device
func (a *USBAdapter) GetDevice() *gousb.Device {
	return a.device
}

func closeAllBut(devices []*gousb.Device, keep *gousb.Device) {
	for _, d := range devices {
		if d != keep {
			d.Close()
		}
	}
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
