package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos-printout-server/adapter"
	"github.com/nixxel-company-limited/escpos-printout-server/printout"
	"github.com/nixxel-company-limited/escpos-printout-server/render"
)

// MaxBodySize bounds request bodies
const MaxBodySize = 1 << 20

// Renderer turns a markup document into printer commands
type Renderer interface {
	Render(r io.Reader, overrides printout.Overrides) ([]byte, error)
}

// Response is the JSON envelope of every API answer
type Response struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PrintRequest is the JSON form of a print or render request
type PrintRequest struct {
	Markup  string             `json:"markup"`
	Options printout.Overrides `json:"options"`
}

// Handler serves the HTTP API
type Handler struct {
	renderer Renderer
	printer  adapter.Adapter
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewHandler creates the API handler. gatherer may be nil to disable /metrics.
func NewHandler(renderer Renderer, printer adapter.Adapter, gatherer prometheus.Gatherer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		renderer: renderer,
		printer:  printer,
		gatherer: gatherer,
		logger:   logger.With(zap.String("component", "api")),
	}
}

// Router builds the gin engine with all routes
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(h.recovery(), h.requestLogger())

	router.GET("/health", h.Health)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/print", h.Print)
		v1.POST("/render", h.Render)
	}
	return router
}

// Health reports whether the printer connection is open
func (h *Handler) Health(c *gin.Context) {
	open := h.printer != nil && h.printer.IsOpen()
	status := http.StatusOK
	if !open {
		status = http.StatusServiceUnavailable
	}
	respond(c, status, open, "printer status", gin.H{"printer_open": open}, nil)
}

// Render encodes the document and returns the command bytes without printing
func (h *Handler) Render(c *gin.Context) {
	out, ok := h.render(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", out)
}

// Print encodes the document and sends it to the printer
func (h *Handler) Print(c *gin.Context) {
	out, ok := h.render(c)
	if !ok {
		return
	}
	if len(out) == 0 {
		respond(c, http.StatusOK, true, "document has no Printout root, nothing printed", gin.H{"bytes": 0}, nil)
		return
	}
	if h.printer == nil || !h.printer.IsOpen() {
		respond(c, http.StatusServiceUnavailable, false, "printer not available", nil, nil)
		return
	}

	n, err := h.printer.Write(out)
	if err != nil {
		h.logger.Error("Printer write failed", zap.Error(err))
		respond(c, http.StatusBadGateway, false, "printer write failed", nil, err)
		return
	}
	respond(c, http.StatusOK, true, "printed", gin.H{"bytes": n}, nil)
}

// render reads the request, encodes it and writes an error response on failure
func (h *Handler) render(c *gin.Context) ([]byte, bool) {
	doc, overrides, err := readRequest(c)
	if err != nil {
		respond(c, http.StatusBadRequest, false, "invalid request", nil, err)
		return nil, false
	}

	out, err := h.renderer.Render(doc, overrides)
	if err != nil {
		status := http.StatusInternalServerError
		if render.IsClientError(err) {
			status = http.StatusBadRequest
		}
		respond(c, status, false, "render failed", nil, err)
		return nil, false
	}
	return out, true
}

// readRequest returns the markup and overrides of a JSON or XML request
func readRequest(c *gin.Context) (io.Reader, printout.Overrides, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize))
	if err != nil {
		return nil, printout.Overrides{}, fmt.Errorf("read body: %w", err)
	}

	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req PrintRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, printout.Overrides{}, fmt.Errorf("decode json: %w", err)
		}
		if req.Markup == "" {
			return nil, printout.Overrides{}, errors.New("markup is required")
		}
		if err := validateOverrides(req.Options); err != nil {
			return nil, printout.Overrides{}, err
		}
		return strings.NewReader(req.Markup), req.Options, nil
	}

	overrides, err := queryOverrides(c)
	if err != nil {
		return nil, printout.Overrides{}, err
	}
	if err := validateOverrides(overrides); err != nil {
		return nil, printout.Overrides{}, err
	}
	return bytes.NewReader(body), overrides, nil
}

// validateOverrides rejects values that do not fit the printer commands
func validateOverrides(ov printout.Overrides) error {
	if ov.Codepage != nil && (*ov.Codepage < 0 || *ov.Codepage > 255) {
		return fmt.Errorf("codepage must be within 0-255, got %d", *ov.Codepage)
	}
	if ov.ColWidth != nil && *ov.ColWidth <= 0 {
		return fmt.Errorf("colWidth must be positive, got %d", *ov.ColWidth)
	}
	return nil
}

// queryOverrides reads print options from the query string
func queryOverrides(c *gin.Context) (printout.Overrides, error) {
	var ov printout.Overrides

	bools := []struct {
		key string
		dst **bool
	}{
		{"beep", &ov.Beep},
		{"cut", &ov.Cut},
		{"tailingLine", &ov.TailingLine},
	}
	for _, b := range bools {
		raw, ok := c.GetQuery(b.key)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return ov, fmt.Errorf("query %s: %w", b.key, err)
		}
		*b.dst = printout.Bool(v)
	}

	ints := []struct {
		key string
		dst **int
	}{
		{"codepage", &ov.Codepage},
		{"colWidth", &ov.ColWidth},
	}
	for _, i := range ints {
		raw, ok := c.GetQuery(i.key)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return ov, fmt.Errorf("query %s: %w", i.key, err)
		}
		*i.dst = printout.Int(v)
	}

	if raw, ok := c.GetQuery("encoding"); ok {
		ov.Encoding = printout.String(raw)
	}
	return ov, nil
}

func respond(c *gin.Context, status int, success bool, message string, data any, err error) {
	resp := Response{
		Success:   success,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(status, resp)
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Stack("stacktrace"),
		)
		respond(c, http.StatusInternalServerError, false, "internal server error", nil, nil)
	})
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
