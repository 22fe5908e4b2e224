package printout

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// TextAttributes holds the validated attributes of a Text node
type TextAttributes struct {
	Font       byte
	Align      byte
	FontWidth  byte
	FontHeight byte
	Bold       bool
	Base64     bool
	Indent     int
}

var textAttributeKeys = []string{"font", "align", "fontWidth", "fontHeight", "bold", "base64", "indent"}

// ParseTextAttributes validates attrs in a single pass. Unknown keys are ignored.
func ParseTextAttributes(attrs map[string]string) (TextAttributes, error) {
	var ta TextAttributes
	for _, key := range textAttributeKeys {
		raw, ok := attrs[key]
		if !ok {
			continue
		}
		switch key {
		case "font":
			v, err := parseByte(raw)
			if err != nil {
				return ta, attrError(TagText, key, raw)
			}
			ta.Font = v
		case "align":
			v, ok := alignments[raw]
			if !ok {
				return ta, attrError(TagText, key, raw)
			}
			ta.Align = v
		case "fontWidth":
			i, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || i < 0 || i >= len(fontWidths) {
				return ta, attrError(TagText, key, raw)
			}
			ta.FontWidth = fontWidths[i]
		case "fontHeight":
			i, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || i < 0 || i >= len(fontHeights) {
				return ta, attrError(TagText, key, raw)
			}
			ta.FontHeight = fontHeights[i]
		case "bold":
			ta.Bold = raw == "1"
		case "base64":
			ta.Base64 = raw == "1"
		case "indent":
			if i, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && i > 0 {
				ta.Indent = i
			}
		}
	}
	return ta, nil
}

// Size is the GS ! argument. The two lookups are summed; their nibbles
// never overlap so this equals a bitwise or.
func (ta TextAttributes) Size() byte {
	return ta.FontWidth + ta.FontHeight
}

func (ta TextAttributes) boldByte() byte {
	if ta.Bold {
		return 1
	}
	return 0
}

// controlBytes returns the twelve formatting bytes preceding the text
func (ta TextAttributes) controlBytes() []byte {
	out := make([]byte, 0, 12)
	out = append(out, cmdCharSize...)
	out = append(out, ta.Size())
	out = append(out, cmdEmphasis...)
	out = append(out, ta.boldByte())
	out = append(out, cmdAlign...)
	out = append(out, ta.Align)
	out = append(out, cmdFont...)
	out = append(out, ta.Font)
	return out
}

// LayoutText applies base64 decoding, indentation and the two-column rule
// to value, in that order.
func LayoutText(value string, ta TextAttributes, colWidth int) (string, error) {
	text := value
	if ta.Base64 {
		decoded, err := decodeBase64(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s base64 content: %v", ErrInvalidEncoding, TagText, err)
		}
		text = decoded
	}

	if ta.Indent > 0 {
		text = strings.Repeat(" ", ta.Indent) + text
	}

	return TwoColumns(text, colWidth), nil
}

// TwoColumns pads "left|right" so that right ends at colWidth. Text with no
// delimiter or more than one is returned unchanged. At least one space
// always separates the columns. Width is measured in terminal columns, so a
// wide glyph counts twice, unlike a plain character count.
func TwoColumns(text string, colWidth int) string {
	parts := strings.Split(text, "|")
	if len(parts) != 2 {
		return text
	}

	left := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])

	spaces := colWidth - runewidth.StringWidth(left) - runewidth.StringWidth(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

func decodeBase64(s string) (string, error) {
	s = strings.Join(strings.Fields(s), "")
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseByte(raw string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func attrError(tag, key, raw string) error {
	return fmt.Errorf("%w: %s %s=%q", ErrInvalidAttribute, tag, key, raw)
}
