package codepage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnsupportedEncoding is returned for encoding names that cannot be resolved
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// encodings maps normalized names (lowercase, no separators) to encodings
var encodings = map[string]encoding.Encoding{
	"utf8":    unicode.UTF8,
	"utf16le": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16be": unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"ucs2":    unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),

	// DOS codepages, the usual ESC t tables
	"cp437": charmap.CodePage437,
	"cp850": charmap.CodePage850,
	"cp852": charmap.CodePage852,
	"cp855": charmap.CodePage855,
	"cp858": charmap.CodePage858,
	"cp860": charmap.CodePage860,
	"cp862": charmap.CodePage862,
	"cp863": charmap.CodePage863,
	"cp865": charmap.CodePage865,
	"cp866": charmap.CodePage866,

	"win874":  charmap.Windows874,
	"win1250": charmap.Windows1250,
	"win1251": charmap.Windows1251,
	"win1252": charmap.Windows1252,
	"win1253": charmap.Windows1253,
	"win1254": charmap.Windows1254,
	"win1255": charmap.Windows1255,
	"win1256": charmap.Windows1256,
	"win1257": charmap.Windows1257,
	"win1258": charmap.Windows1258,

	"iso88591":  charmap.ISO8859_1,
	"iso88592":  charmap.ISO8859_2,
	"iso88593":  charmap.ISO8859_3,
	"iso88594":  charmap.ISO8859_4,
	"iso88595":  charmap.ISO8859_5,
	"iso88596":  charmap.ISO8859_6,
	"iso88597":  charmap.ISO8859_7,
	"iso88598":  charmap.ISO8859_8,
	"iso885910": charmap.ISO8859_10,
	"iso885913": charmap.ISO8859_13,
	"iso885914": charmap.ISO8859_14,
	"iso885915": charmap.ISO8859_15,
	"iso885916": charmap.ISO8859_16,
	"koi8r":     charmap.KOI8R,
	"koi8u":     charmap.KOI8U,
	"macintosh": charmap.Macintosh,

	"shiftjis":  japanese.ShiftJIS,
	"eucjp":     japanese.EUCJP,
	"iso2022jp": japanese.ISO2022JP,
	"euckr":     korean.EUCKR,
	"gbk":       simplifiedchinese.GBK,
	"gb2312":    simplifiedchinese.GBK,
	"gb18030":   simplifiedchinese.GB18030,
	"big5":      traditionalchinese.Big5,
}

// aliases maps alternative spellings to a key of encodings
var aliases = map[string]string{
	"ascii":       "win1252",
	"latin1":      "iso88591",
	"binary":      "iso88591",
	"sjis":        "shiftjis",
	"ms932":       "shiftjis",
	"cp932":       "shiftjis",
	"cp936":       "gbk",
	"cp949":       "euckr",
	"cp950":       "big5",
	"ibm437":      "cp437",
	"ibm850":      "cp850",
	"ibm866":      "cp866",
	"pc437":       "cp437",
	"pc850":       "cp850",
	"pc852":       "cp852",
	"pc858":       "cp858",
	"utf16":       "utf16le",
	"tis620":      "win874",
	"cp874":       "win874",
	"windows874":  "win874",
	"cp1250":      "win1250",
	"cp1251":      "win1251",
	"cp1252":      "win1252",
	"cp1253":      "win1253",
	"cp1254":      "win1254",
	"cp1255":      "win1255",
	"cp1256":      "win1256",
	"cp1257":      "win1257",
	"cp1258":      "win1258",
	"windows1250": "win1250",
	"windows1251": "win1251",
	"windows1252": "win1252",
	"windows1253": "win1253",
	"windows1254": "win1254",
	"windows1255": "win1255",
	"windows1256": "win1256",
	"windows1257": "win1257",
	"windows1258": "win1258",
}

// normalize lowercases name and strips '-', '_', '.' and spaces,
// so that "UTF-8", "utf8" and "Utf_8" all resolve to the same entry.
func normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch r {
		case '-', '_', '.', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Lookup resolves an encoding name
func Lookup(name string) (encoding.Encoding, error) {
	key := normalize(name)
	if key == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnsupportedEncoding)
	}
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	if enc, ok := encodings[key]; ok {
		return enc, nil
	}

	// WHATWG labels cover the remaining common spellings
	enc, err := htmlindex.Get(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
	return enc, nil
}

// Supported reports whether name resolves to an encoding
func Supported(name string) bool {
	_, err := Lookup(name)
	return err == nil
}

// Encode converts text to bytes in the named encoding. Runes the target
// charset cannot represent are replaced with its substitute character.
func Encode(text, name string) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return []byte(text), nil
	}

	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out, nil
}

// Names returns the built-in encoding names and aliases, sorted
func Names() []string {
	names := make([]string, 0, len(encodings)+len(aliases))
	for name := range encodings {
		names = append(names, name)
	}
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
