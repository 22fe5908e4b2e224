package printout

// Control bytes
const (
	ESC = 0x1B
	FS  = 0x1C
	GS  = 0x1D
	LF  = 0x0A
)

var (
	cmdSelectCodepage = []byte{ESC, 't'} // ESC t n
	cmdCharsetDefault = []byte{FS, '&'}  // FS &
	cmdCharsetNamed   = []byte{FS, '.'}  // FS .
	cmdCharSize       = []byte{GS, '!'}  // GS ! n
	cmdEmphasis       = []byte{ESC, 'E'} // ESC E n
	cmdAlign          = []byte{ESC, 'a'} // ESC a n
	cmdFont           = []byte{ESC, 'M'} // ESC M n
	cmdQRCode         = []byte{ESC, 'Z'} // ESC Z v e m nL nH d...
	cmdInitialize     = []byte{ESC, '@'} // ESC @
)

// alignments maps the align attribute to its ESC a argument
var alignments = map[string]byte{
	"left":   0,
	"center": 1,
	"right":  2,
}

// GS ! packs width into the high nibble and height into the low nibble
var (
	fontWidths  = [4]byte{0x00, 0x10, 0x20, 0x30}
	fontHeights = [4]byte{0x00, 0x01, 0x02, 0x03}
)

// trailer is one optional sequence appended after the document body
type trailer struct {
	name    string
	enabled func(Options) bool
	bytes   []byte
}

// trailers are emitted in this order
var trailers = []trailer{
	{"cut", func(o Options) bool { return o.Cut }, []byte{ESC, 'i'}},
	{"beep", func(o Options) bool { return o.Beep }, []byte{ESC, 'B', 0x03, 0x02}},
	{"tailingLine", func(o Options) bool { return o.TailingLine }, []byte{LF, LF, LF, LF}},
}
