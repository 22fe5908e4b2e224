package printout

import (
	"bytes"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos-printout-server/codepage"
)

// TextCodec converts text into the bytes of a named encoding
type TextCodec interface {
	Encode(text, encoding string) ([]byte, error)
}

// CodecFunc adapts a function to TextCodec
type CodecFunc func(text, encoding string) ([]byte, error)

// Encode calls f
func (f CodecFunc) Encode(text, encoding string) ([]byte, error) {
	return f(text, encoding)
}

// Encoder turns Printout documents into ESC/POS command streams.
// It holds no per-call state and is safe for concurrent use.
type Encoder struct {
	codec  TextCodec
	logger *zap.Logger
}

// EncoderOption configures an Encoder
type EncoderOption func(*Encoder)

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *zap.Logger) EncoderOption {
	return func(e *Encoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCodec replaces the codepage package as text codec
func WithCodec(codec TextCodec) EncoderOption {
	return func(e *Encoder) {
		if codec != nil {
			e.codec = codec
		}
	}
}

// NewEncoder creates an encoder backed by the codepage package
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		codec:  CodecFunc(codepage.Encode),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEncoder = NewEncoder()

// Encode encodes root with the default encoder
func Encode(root *Node, overrides Overrides) ([]byte, error) {
	return defaultEncoder.Encode(root, overrides)
}

// Encode merges overrides over the default options and encodes root.
// A root that is not a Printout element yields an empty result.
func (e *Encoder) Encode(root *Node, overrides Overrides) ([]byte, error) {
	return e.EncodeOptions(root, Merge(overrides))
}

// EncodeOptions encodes root with fully resolved options
func (e *Encoder) EncodeOptions(root *Node, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if !root.IsPrintout() {
		e.logger.Debug("Skipping document without Printout root", zap.String("root", rootName(root)))
		return []byte{}, nil
	}

	w := &writer{buf: &buf, codec: e.codec, opts: opts}

	w.codepage()

	for i, node := range root.Children {
		if node == nil {
			continue
		}
		var err error
		switch node.Name {
		case TagText:
			err = w.text(node)
		case TagNewLine:
			err = w.newLine()
		case TagQRCode:
			err = e.qrCode(w, node)
		case TagLine:
			err = w.line(node)
		default:
			e.logger.Debug("Ignoring unknown element", zap.String("tag", node.Name), zap.Int("index", i))
		}
		if err != nil {
			return nil, fmt.Errorf("%s #%d: %w", node.Name, i, err)
		}
	}

	w.trailers()
	buf.Write(cmdInitialize)

	return buf.Bytes(), nil
}

func (e *Encoder) qrCode(w *writer, node *Node) error {
	qa, outOfRange, err := ParseQRAttributes(node.Attributes)
	if err != nil {
		return err
	}
	for _, key := range outOfRange {
		v, _ := node.Attr(key)
		e.logger.Warn("QR code attribute outside documented range",
			zap.String("attribute", key),
			zap.String("value", v),
		)
	}
	return w.qrCode(node.Value, qa)
}

// writer accumulates the bytes of a single encode call
type writer struct {
	buf   *bytes.Buffer
	codec TextCodec
	opts  Options
}

func (w *writer) codepage() {
	w.buf.Write(cmdSelectCodepage)
	w.buf.WriteByte(byte(w.opts.Codepage))
	if w.opts.Codepage == 0 {
		w.buf.Write(cmdCharsetDefault)
	} else {
		w.buf.Write(cmdCharsetNamed)
	}
}

func (w *writer) encoded(text string) ([]byte, error) {
	b, err := w.codec.Encode(text, w.opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return b, nil
}

func (w *writer) writeText(text string) error {
	b, err := w.encoded(text)
	if err != nil {
		return err
	}
	w.buf.Write(b)
	return nil
}

func (w *writer) text(node *Node) error {
	ta, err := ParseTextAttributes(node.Attributes)
	if err != nil {
		return err
	}
	text, err := LayoutText(node.Value, ta, w.opts.lineWidth())
	if err != nil {
		return err
	}

	w.buf.Write(ta.controlBytes())
	return w.writeText(text)
}

func (w *writer) newLine() error {
	return w.writeText("\n")
}

func (w *writer) line(node *Node) error {
	lineChar, ok := node.Attr("lineChar")
	if !ok || lineChar == "" {
		lineChar = "-"
	}
	if err := w.writeText(strings.Repeat(lineChar, w.opts.lineWidth())); err != nil {
		return err
	}
	return w.newLine()
}

func (w *writer) qrCode(payload string, qa QRAttributes) error {
	data, err := w.encoded(payload)
	if err != nil {
		return err
	}
	w.buf.Write(qa.header(len(data)))
	w.buf.Write(data)
	return nil
}

func (w *writer) trailers() {
	for _, t := range trailers {
		if t.enabled(w.opts) {
			w.buf.Write(t.bytes)
		}
	}
}

func rootName(n *Node) string {
	if n == nil {
		return ""
	}
	return n.Name
}
