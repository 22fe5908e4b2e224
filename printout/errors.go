package printout

import (
	"errors"

	"github.com/nixxel-company-limited/escpos-printout-server/codepage"
)

var (
	// ErrInvalidAttribute marks an attribute value with no entry in its lookup table
	ErrInvalidAttribute = errors.New("invalid attribute")

	// ErrInvalidEncoding marks malformed base64 content or an unknown text encoding
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrUnsupportedEncoding is propagated from the codepage package
	ErrUnsupportedEncoding = codepage.ErrUnsupportedEncoding
)
