package printout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTextAttributes(t *testing.T) {
	ta, err := ParseTextAttributes(map[string]string{
		"font":       "2",
		"align":      "center",
		"fontWidth":  "1",
		"fontHeight": "1",
		"bold":       "0",
		"base64":     "1",
		"indent":     "5",
	})
	require.NoError(t, err)

	assert.Equal(t, TextAttributes{
		Font:       2,
		Align:      1,
		FontWidth:  0x10,
		FontHeight: 0x01,
		Base64:     true,
		Indent:     5,
	}, ta)
	assert.Equal(t, byte(0x11), ta.Size())
}

func TestTextSizeTable(t *testing.T) {
	for w := 0; w < 4; w++ {
		for h := 0; h < 4; h++ {
			assert.Equal(t, byte(w<<4|h), fontWidths[w]+fontHeights[h])
		}
	}
}

func TestTwoColumnsWideGlyphs(t *testing.T) {
	// each CJK glyph occupies two columns on the printer
	assert.Equal(t, "合計    10", TwoColumns("合計|10", 10))
}

func TestLayoutTextOrder(t *testing.T) {
	text, err := LayoutText("abc", TextAttributes{Indent: 2}, 32)
	require.NoError(t, err)
	assert.Equal(t, "  abc", text)
}
