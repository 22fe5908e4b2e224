package printout

// Root tag every printable document must carry
const RootTag = "Printout"

// Tags recognized as direct children of the root
const (
	TagText    = "Text"
	TagNewLine = "NewLine"
	TagQRCode  = "QRCode"
	TagLine    = "Line"
)

// Node is one element of a parsed Printout document
type Node struct {
	Name       string
	Attributes map[string]string
	Value      string
	Children   []*Node
}

// Attr returns the attribute value and whether it was present
func (n *Node) Attr(key string) (string, bool) {
	if n == nil || n.Attributes == nil {
		return "", false
	}
	v, ok := n.Attributes[key]
	return v, ok
}

// IsPrintout reports whether n is a document root the encoder accepts
func (n *Node) IsPrintout() bool {
	return n != nil && n.Name == RootTag
}
