package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/nixxel-company-limited/escpos-printout-server/codepage"
	"github.com/nixxel-company-limited/escpos-printout-server/printout"
)

// Server modes
const (
	ModePrintout = "printout"
	ModeRaw      = "raw"
)

// Printer types
const (
	PrinterUSB    = "usb"
	PrinterSerial = "serial"
	PrinterFile   = "file"
)

// EnvPrefix is prepended to every environment variable, e.g. ESCPOS_SERVER_ADDRESS
const EnvPrefix = "ESCPOS"

// Config is the application configuration
type Config struct {
	Server  ServerConfig     `mapstructure:"server"`
	HTTP    HTTPConfig       `mapstructure:"http"`
	Printer PrinterConfig    `mapstructure:"printer"`
	Print   printout.Options `mapstructure:"print"`
	Logging LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig configures the raw TCP listener
type ServerConfig struct {
	Address         string `mapstructure:"address"`
	Mode            string `mapstructure:"mode"`
	MaxDocumentSize int64  `mapstructure:"max_document_size"`
}

// HTTPConfig configures the HTTP API
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// PrinterConfig selects and configures the printer transport
type PrinterConfig struct {
	Type   string           `mapstructure:"type"`
	USB    USBConfig        `mapstructure:"usb"`
	Serial SerialPortConfig `mapstructure:"serial"`
	File   FileConfig       `mapstructure:"file"`
}

// USBConfig identifies a USB printer. Zero IDs select the first printer found.
type USBConfig struct {
	VID uint16 `mapstructure:"vid"`
	PID uint16 `mapstructure:"pid"`
}

// SerialPortConfig represents serial port configuration
type SerialPortConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	StopBits int    `mapstructure:"stop_bits"`
	Parity   string `mapstructure:"parity"`
}

// FileConfig configures the file printer used for dry runs
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "localhost:9100")
	v.SetDefault("server.mode", ModePrintout)
	v.SetDefault("server.max_document_size", 1<<20)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.address", "localhost:8080")

	v.SetDefault("printer.type", PrinterUSB)
	v.SetDefault("printer.usb.vid", 0)
	v.SetDefault("printer.usb.pid", 0)
	v.SetDefault("printer.serial.port", "")
	v.SetDefault("printer.serial.baud_rate", 9600)
	v.SetDefault("printer.serial.data_bits", 8)
	v.SetDefault("printer.serial.stop_bits", 1)
	v.SetDefault("printer.serial.parity", "none")
	v.SetDefault("printer.file.path", "printout.bin")

	defaults := printout.DefaultOptions()
	v.SetDefault("print.beep", defaults.Beep)
	v.SetDefault("print.cut", defaults.Cut)
	v.SetDefault("print.tailing_line", defaults.TailingLine)
	v.SetDefault("print.encoding", defaults.Encoding)
	v.SetDefault("print.codepage", defaults.Codepage)
	v.SetDefault("print.col_width", defaults.ColWidth)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)
}

// New returns a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. An empty path reads defaults and environment only.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the services cannot use
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Mode {
	case ModePrintout, ModeRaw:
	default:
		errs = append(errs, fmt.Errorf("server.mode must be %q or %q, got %q", ModePrintout, ModeRaw, c.Server.Mode))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.MaxDocumentSize <= 0 {
		errs = append(errs, errors.New("server.max_document_size must be positive"))
	}
	if c.HTTP.Enabled && c.HTTP.Address == "" {
		errs = append(errs, errors.New("http.address is required when http is enabled"))
	}

	switch c.Printer.Type {
	case PrinterUSB, PrinterFile:
	case PrinterSerial:
		if c.Printer.Serial.Port == "" {
			errs = append(errs, errors.New("printer.serial.port is required for serial printers"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown printer.type %q", c.Printer.Type))
	}
	if c.Printer.Type == PrinterFile && c.Printer.File.Path == "" {
		errs = append(errs, errors.New("printer.file.path is required for file printers"))
	}

	if c.Print.ColWidth <= 0 {
		errs = append(errs, fmt.Errorf("print.col_width must be positive, got %d", c.Print.ColWidth))
	}
	if c.Print.Codepage < 0 || c.Print.Codepage > 255 {
		errs = append(errs, fmt.Errorf("print.codepage must be within 0-255, got %d", c.Print.Codepage))
	}
	if !codepage.Supported(c.Print.Encoding) {
		errs = append(errs, fmt.Errorf("print.encoding %q is not supported", c.Print.Encoding))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
