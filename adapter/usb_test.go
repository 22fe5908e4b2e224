package adapter

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nixxel-company-limited/escpos-printout-server/printout"
)

// openPrinter returns an adapter for the first attached printer or skips
func openPrinter(t *testing.T) *USBAdapter {
	t.Helper()
	a, err := NewUSBAdapterAuto(zaptest.NewLogger(t))
	if errors.Is(err, ErrNoPrinter) {
		t.Skip("No USB printer attached")
	}
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func receipt(t *testing.T) []byte {
	t.Helper()
	root := &printout.Node{Name: printout.RootTag, Children: []*printout.Node{
		{Name: printout.TagText, Value: "USB test|OK", Attributes: map[string]string{"bold": "1"}},
		{Name: printout.TagLine},
	}}
	out, err := printout.Encode(root, printout.Overrides{Cut: printout.Bool(true)})
	require.NoError(t, err)
	return out
}

func TestUnattachedUSBAdapter(t *testing.T) {
	var a USBAdapter

	assert.False(t, a.IsOpen())
	assert.Nil(t, a.GetDevice())

	err := a.Open()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "device not found")

	_, err = a.Write(receipt(t))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not open")

	_, err = a.Read(make([]byte, 8))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not open")

	assert.NoError(t, a.Close())
}

func TestNewUSBAdapterAutoWithoutPrinter(t *testing.T) {
	a, err := NewUSBAdapterAuto(zaptest.NewLogger(t))
	if err == nil {
		a.Close()
		t.Skip("A USB printer is attached")
	}
	assert.ErrorIs(t, err, ErrNoPrinter)
	assert.Nil(t, a)
}

func TestNewUSBAdapterFallsBackToPrinterClass(t *testing.T) {
	// 0xFFFF:0xFFFF is never assigned, so the lookup always falls back
	a, err := NewUSBAdapter(0xFFFF, 0xFFFF, zaptest.NewLogger(t))
	if errors.Is(err, ErrNoPrinter) {
		t.Skip("No USB printer attached")
	}
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, IsPrinter(a.GetDevice()))
}

func TestCloseAllButToleratesEmptyLists(t *testing.T) {
	assert.NotPanics(t, func() {
		closeAllBut(nil, nil)
		closeAllBut([]*gousb.Device{}, nil)
	})
}

func TestNopIfNil(t *testing.T) {
	assert.NotNil(t, nopIfNil(nil))

	logger := zaptest.NewLogger(t)
	assert.Same(t, logger, nopIfNil(logger))
}

func TestIsPrinterNil(t *testing.T) {
	assert.False(t, IsPrinter(nil))
}

func TestFindPrintersExposePrinterInterface(t *testing.T) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	printers := FindPrinters(ctx, zaptest.NewLogger(t))
	require.NotNil(t, printers)
	if len(printers) == 0 {
		t.Skip("No USB printer attached")
	}

	for _, dev := range printers {
		num, err := printerInterface(dev)
		assert.NoError(t, err, dev.String())
		assert.GreaterOrEqual(t, num, 0)
		dev.Close()
	}
}

func TestUSBAdapterLifecycle(t *testing.T) {
	a := openPrinter(t)
	assert.False(t, a.IsOpen())

	require.NoError(t, a.Open())
	assert.True(t, a.IsOpen())

	err := a.Open()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already open")

	require.NoError(t, a.Close())
	assert.False(t, a.IsOpen())
	assert.NoError(t, a.Close())

	// the device and context are released on close
	assert.Nil(t, a.GetDevice())
	assert.Error(t, a.Open())
}

func TestUSBAdapterCloseReleasesUnopenedDevice(t *testing.T) {
	a := openPrinter(t)

	require.NoError(t, a.Close())
	assert.Nil(t, a.GetDevice())
	assert.Nil(t, a.ctx)
}

func TestUSBAdapterWriteReceipt(t *testing.T) {
	a := openPrinter(t)
	data := receipt(t)

	_, err := a.Write(data)
	assert.Error(t, err)

	require.NoError(t, a.Open())

	n, err := a.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
}

func TestUSBAdapterEvents(t *testing.T) {
	a := openPrinter(t)
	data := receipt(t)

	var (
		mu     sync.Mutex
		events = map[EventType]Event{}
	)
	record := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events[e.Type] = e
	}
	a.On(EventConnect, record)
	a.On(EventData, record)
	a.On(EventClose, record)

	require.NoError(t, a.Open())
	name := a.GetDevice().String()
	_, err := a.Write(data)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, typ := range []EventType{EventConnect, EventData, EventClose} {
		assert.Equal(t, name, events[typ].Device, typ.String())
	}
	assert.True(t, bytes.Equal(data, events[EventData].Data))
}

func TestGetDeviceByVIDPIDUnknown(t *testing.T) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	_, err := GetDeviceByVIDPID(ctx, 0xFFFF, 0xFFFF)
	assert.Error(t, err)
}

func TestGetDeviceBySerialUnknown(t *testing.T) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	_, err := GetDeviceBySerial(ctx, "NO-SUCH-PRINTER")
	assert.Error(t, err)
}

func TestGetDeviceByVIDPIDOfAttachedPrinter(t *testing.T) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	printers := FindPrinters(ctx, zaptest.NewLogger(t))
	if len(printers) == 0 {
		t.Skip("No USB printer attached")
	}
	desc := printers[0].Desc
	closeAllBut(printers, nil)

	dev, err := GetDeviceByVIDPID(ctx, uint16(desc.Vendor), uint16(desc.Product))
	require.NoError(t, err)
	defer dev.Close()
	assert.True(t, IsPrinter(dev))
}
