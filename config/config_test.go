package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixxel-company-limited/escpos-printout-server/printout"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost:9100", cfg.Server.Address)
	assert.Equal(t, ModePrintout, cfg.Server.Mode)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxDocumentSize)
	assert.False(t, cfg.HTTP.Enabled)
	assert.Equal(t, PrinterUSB, cfg.Printer.Type)
	assert.Equal(t, 9600, cfg.Printer.Serial.BaudRate)
	assert.Equal(t, printout.DefaultOptions(), cfg.Print)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ESCPOS_SERVER_ADDRESS", "0.0.0.0:9200")
	t.Setenv("ESCPOS_PRINT_CUT", "true")
	t.Setenv("ESCPOS_PRINT_COL_WIDTH", "48")
	t.Setenv("ESCPOS_PRINT_ENCODING", "cp437")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9200", cfg.Server.Address)
	assert.True(t, cfg.Print.Cut)
	assert.Equal(t, 48, cfg.Print.ColWidth)
	assert.Equal(t, "cp437", cfg.Print.Encoding)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  mode: raw
printer:
  type: serial
  serial:
    port: /dev/ttyUSB0
    baud_rate: 19200
print:
  beep: true
  codepage: 16
  encoding: win1252
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeRaw, cfg.Server.Mode)
	assert.Equal(t, PrinterSerial, cfg.Printer.Type)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Printer.Serial.Port)
	assert.Equal(t, 19200, cfg.Printer.Serial.BaudRate)
	assert.True(t, cfg.Print.Beep)
	assert.Equal(t, 16, cfg.Print.Codepage)
	assert.Equal(t, 32, cfg.Print.ColWidth)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"BadMode", func(c *Config) { c.Server.Mode = "spool" }, "server.mode"},
		{"BadPrinter", func(c *Config) { c.Printer.Type = "bluetooth" }, "printer.type"},
		{"SerialWithoutPort", func(c *Config) { c.Printer.Type = PrinterSerial }, "printer.serial.port"},
		{"ZeroColWidth", func(c *Config) { c.Print.ColWidth = 0 }, "col_width"},
		{"CodepageTooLarge", func(c *Config) { c.Print.Codepage = 256 }, "codepage"},
		{"UnknownEncoding", func(c *Config) { c.Print.Encoding = "morse" }, "encoding"},
		{"HTTPWithoutAddress", func(c *Config) { c.HTTP.Enabled = true; c.HTTP.Address = "" }, "http.address"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
