package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos-printout-server/adapter"
	"github.com/nixxel-company-limited/escpos-printout-server/config"
	"github.com/nixxel-company-limited/escpos-printout-server/printout"
)

// DefaultMaxDocumentSize bounds a document read from one connection
const DefaultMaxDocumentSize = 1 << 20

// ErrDocumentTooLarge is returned when a connection sends more than the allowed document size
var ErrDocumentTooLarge = errors.New("document too large")

// Renderer turns a markup document into printer commands
type Renderer interface {
	Render(r io.Reader, overrides printout.Overrides) ([]byte, error)
}

// Server is a TCP server that forwards connection payloads to a printer adapter.
// In raw mode bytes are forwarded as received; in printout mode each
// connection carries one markup document that is rendered before printing.
type Server struct {
	adapter  adapter.Adapter
	renderer Renderer
	listener net.Listener
	address  string
	mode     string
	maxSize  int64
	mu       sync.Mutex
	running  bool
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderer switches the server to printout mode using r
func WithRenderer(r Renderer) Option {
	return func(s *Server) {
		s.renderer = r
		s.mode = config.ModePrintout
	}
}

// WithMaxDocumentSize bounds documents received in printout mode
func WithMaxDocumentSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// New creates a new server instance. Without WithRenderer it runs in raw mode.
func New(device adapter.Adapter, address string, opts ...Option) *Server {
	s := &Server{
		adapter: device,
		address: address,
		mode:    config.ModeRaw,
		maxSize: DefaultMaxDocumentSize,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "server"), zap.String("mode", s.mode))
	return s
}

// listen binds the listener and opens the adapter
func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Error("Server already running")
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Error("Failed to start server", zap.Error(err))
		return fmt.Errorf("failed to start server: %w", err)
	}

	if !s.adapter.IsOpen() {
		s.logger.Info("Opening printer adapter")
		if err := s.adapter.Open(); err != nil {
			listener.Close()
			s.logger.Error("Failed to open adapter", zap.Error(err))
			return fmt.Errorf("failed to open adapter: %w", err)
		}
	}

	s.listener = listener
	s.running = true
	s.logger.Info("Server listening", zap.String("address", listener.Addr().String()))
	return nil
}

// Start starts the TCP server and blocks until Stop is called
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}

	s.wg.Add(1)
	s.acceptConnections()
	return nil
}

// StartAsync starts the TCP server in a goroutine (non-blocking)
func (s *Server) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.acceptConnections()
	return nil
}

// acceptConnections handles incoming client connections
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.IsRunning() {
				s.logger.Debug("Server shutting down, stopping accept loop")
				return
			}
			s.logger.Warn("Error accepting connection", zap.Error(err))
			continue
		}

		s.logger.Debug("Client connected", zap.String("client", conn.RemoteAddr().String()))
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection handles a single client connection
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	logger := s.logger.With(zap.String("client", conn.RemoteAddr().String()))

	var err error
	if s.mode == config.ModePrintout && s.renderer != nil {
		err = s.printDocument(conn, logger)
	} else {
		err = s.forward(conn, logger)
	}
	if err != nil {
		logger.Warn("Connection ended with error", zap.Error(err))
		return
	}
	logger.Debug("Client disconnected")
}

// forward writes each chunk read from conn to the adapter
func (s *Server) forward(conn net.Conn, logger *zap.Logger) error {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			written, writeErr := s.adapter.Write(buf[:n])
			if writeErr != nil {
				return fmt.Errorf("write to adapter: %w", writeErr)
			}
			logger.Debug("Forwarded bytes to printer", zap.Int("bytes", written))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read from client: %w", err)
		}
	}
}

// printDocument reads one document until the client closes its side,
// renders it and writes the result in a single adapter call.
func (s *Server) printDocument(conn net.Conn, logger *zap.Logger) error {
	var doc bytes.Buffer
	n, err := io.Copy(&doc, io.LimitReader(conn, s.maxSize+1))
	if err != nil {
		return fmt.Errorf("read from client: %w", err)
	}
	if n > s.maxSize {
		return fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, s.maxSize)
	}

	out, err := s.renderer.Render(&doc, printout.Overrides{})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if len(out) == 0 {
		logger.Info("Document has no Printout root, nothing printed", zap.Int64("received", n))
		return nil
	}

	written, err := s.adapter.Write(out)
	if err != nil {
		return fmt.Errorf("write to adapter: %w", err)
	}
	logger.Info("Printed document", zap.Int64("received", n), zap.Int("written", written))
	return nil
}

// Stop stops the TCP server
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}

	s.logger.Info("Stopping server")
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	s.wg.Wait()

	if s.adapter.IsOpen() {
		if err := s.adapter.Close(); err != nil {
			s.logger.Error("Error closing adapter", zap.Error(err))
			return err
		}
	}

	s.logger.Info("Server stopped")
	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the configured server address
func (s *Server) Address() string {
	return s.address
}

// Mode returns config.ModeRaw or config.ModePrintout
func (s *Server) Mode() string {
	return s.mode
}

// GetAdapter returns the underlying adapter
func (s *Server) GetAdapter() adapter.Adapter {
	return s.adapter
}
