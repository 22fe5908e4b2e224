package printout

import (
	"strconv"
	"strings"
)

// QRAttributes holds the arguments of the ESC Z command
type QRAttributes struct {
	Version              byte
	ErrorCorrectionLevel byte
	Magnification        byte
}

// Documented device ranges. They are reported, not enforced.
var qrRanges = map[string][2]int{
	"version":              {0, 19},
	"errorCorrectionLevel": {0, 3},
	"magnification":        {1, 8},
}

var qrAttributeKeys = []string{"version", "errorCorrectionLevel", "magnification"}

// ParseQRAttributes reads the QR attributes of a node. outOfRange lists the
// attributes whose value lies outside the documented device range.
func ParseQRAttributes(attrs map[string]string) (qa QRAttributes, outOfRange []string, err error) {
	qa = QRAttributes{Magnification: 1}
	for _, key := range qrAttributeKeys {
		raw, ok := attrs[key]
		if !ok {
			continue
		}
		v, perr := strconv.ParseUint(strings.TrimSpace(raw), 10, 8)
		if perr != nil {
			return qa, nil, attrError(TagQRCode, key, raw)
		}
		if r := qrRanges[key]; int(v) < r[0] || int(v) > r[1] {
			outOfRange = append(outOfRange, key)
		}
		switch key {
		case "version":
			qa.Version = byte(v)
		case "errorCorrectionLevel":
			qa.ErrorCorrectionLevel = byte(v)
		case "magnification":
			qa.Magnification = byte(v)
		}
	}
	return qa, outOfRange, nil
}

// header returns ESC Z with its arguments for a payload of n bytes.
// The length is little endian, truncated to 16 bits. n is the encoded byte
// count of the payload, not its character count.
func (qa QRAttributes) header(n int) []byte {
	out := make([]byte, 0, 7)
	out = append(out, cmdQRCode...)
	return append(out,
		qa.Version,
		qa.ErrorCorrectionLevel,
		qa.Magnification,
		byte(n&0xff),
		byte((n&0xff00)>>8),
	)
}
