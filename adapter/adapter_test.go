package adapter

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/zap/zaptest"

	"github.com/nixxel-company-limited/escpos-printout-server/config"
)

// fakePort records writes; unimplemented methods panic through the nil embedded Port
type fakePort struct {
	serial.Port
	written bytes.Buffer
	closed  bool
}

func (p *fakePort) Write(data []byte) (int, error) { return p.written.Write(data) }
func (p *fakePort) Read(buf []byte) (int, error)   { return copy(buf, []byte{0x12}), nil }
func (p *fakePort) Close() error                   { p.closed = true; return nil }

func TestFileAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	a := NewFileAdapter(path, zaptest.NewLogger(t))

	_, err := a.Write([]byte{0x1B, 0x40})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not open")

	require.NoError(t, a.Open())
	assert.True(t, a.IsOpen())

	err = a.Open()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already open")

	n, err := a.Write([]byte{0x1B, 0x40})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = a.Read(make([]byte, 8))
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, a.Close())
	assert.False(t, a.IsOpen())
	assert.NoError(t, a.Close())

	// reopening appends
	require.NoError(t, a.Open())
	_, err = a.Write([]byte{0x0A})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1B, 0x40, 0x0A}, data)
}

func TestFileAdapterEvents(t *testing.T) {
	a := NewFileAdapter(filepath.Join(t.TempDir(), "out.bin"), nil)

	var connected, data, closed atomic.Int32
	a.On(EventConnect, func(e Event) { connected.Add(1) })
	a.On(EventData, func(e Event) {
		if bytes.Equal(e.Data, []byte("x")) {
			data.Add(1)
		}
	})
	a.On(EventClose, func(e Event) { closed.Add(1) })

	require.NoError(t, a.Open())
	_, err := a.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Eventually(t, func() bool {
		return connected.Load() == 1 && data.Load() == 1 && closed.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSerialAdapter(t *testing.T) {
	a, err := NewSerialAdapter(config.SerialPortConfig{Port: "/dev/ttyFAKE", BaudRate: 19200, Parity: "even", StopBits: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)

	port := &fakePort{}
	var openedWith *serial.Mode
	a.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		assert.Equal(t, "/dev/ttyFAKE", name)
		openedWith = mode
		return port, nil
	}

	require.NoError(t, a.Open())
	assert.True(t, a.IsOpen())
	assert.Equal(t, &serial.Mode{BaudRate: 19200, DataBits: 8, Parity: serial.EvenParity, StopBits: serial.TwoStopBits}, openedWith)

	n, err := a.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", port.written.String())

	buf := make([]byte, 4)
	n, err = a.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, a.Close())
	assert.True(t, port.closed)
	assert.False(t, a.IsOpen())
}

func TestSerialAdapterOpenFailure(t *testing.T) {
	a, err := NewSerialAdapter(config.SerialPortConfig{Port: "/dev/ttyFAKE"}, nil)
	require.NoError(t, err)
	a.open = func(string, *serial.Mode) (serial.Port, error) {
		return nil, errors.New("permission denied")
	}

	err = a.Open()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.False(t, a.IsOpen())

	_, err = a.Write([]byte{0x00})
	assert.Error(t, err)
}

func TestSerialAdapterInvalidConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.SerialPortConfig
	}{
		{"NoPort", config.SerialPortConfig{}},
		{"BadParity", config.SerialPortConfig{Port: "COM1", Parity: "weird"}},
		{"BadStopBits", config.SerialPortConfig{Port: "COM1", StopBits: 3}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSerialAdapter(tc.cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewFactory(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		a, err := New(config.PrinterConfig{Type: config.PrinterFile, File: config.FileConfig{Path: filepath.Join(t.TempDir(), "p.bin")}}, nil)
		require.NoError(t, err)
		assert.IsType(t, &FileAdapter{}, a)
	})

	t.Run("Serial", func(t *testing.T) {
		a, err := New(config.PrinterConfig{Type: config.PrinterSerial, Serial: config.SerialPortConfig{Port: "COM3"}}, nil)
		require.NoError(t, err)
		assert.IsType(t, &SerialAdapter{}, a)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := New(config.PrinterConfig{Type: "carrier-pigeon"}, nil)
		assert.Error(t, err)
	})
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "connect", EventConnect.String())
	assert.Equal(t, "close", EventClose.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
