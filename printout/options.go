package printout

// Defaults applied to every encode call
const (
	DefaultEncoding = "UTF8"
	DefaultCodepage = 0
	DefaultColWidth = 32
)

// Options controls one encode call
type Options struct {
	Beep        bool   `json:"beep" mapstructure:"beep"`
	Cut         bool   `json:"cut" mapstructure:"cut"`
	TailingLine bool   `json:"tailingLine" mapstructure:"tailing_line"`
	Encoding    string `json:"encoding" mapstructure:"encoding"`
	Codepage    int    `json:"codepage" mapstructure:"codepage"`
	ColWidth    int    `json:"colWidth" mapstructure:"col_width"`
}

// Overrides carries caller-supplied options. Nil fields keep the base value,
// set fields replace it even when they hold the zero value.
type Overrides struct {
	Beep        *bool   `json:"beep,omitempty"`
	Cut         *bool   `json:"cut,omitempty"`
	TailingLine *bool   `json:"tailingLine,omitempty"`
	Encoding    *string `json:"encoding,omitempty"`
	Codepage    *int    `json:"codepage,omitempty"`
	ColWidth    *int    `json:"colWidth,omitempty"`
}

// DefaultOptions returns a fresh copy of the default options
func DefaultOptions() Options {
	return Options{
		Encoding: DefaultEncoding,
		Codepage: DefaultCodepage,
		ColWidth: DefaultColWidth,
	}
}

// Apply returns o with every set field of ov copied over it
func (o Options) Apply(ov Overrides) Options {
	if ov.Beep != nil {
		o.Beep = *ov.Beep
	}
	if ov.Cut != nil {
		o.Cut = *ov.Cut
	}
	if ov.TailingLine != nil {
		o.TailingLine = *ov.TailingLine
	}
	if ov.Encoding != nil {
		o.Encoding = *ov.Encoding
	}
	if ov.Codepage != nil {
		o.Codepage = *ov.Codepage
	}
	if ov.ColWidth != nil {
		o.ColWidth = *ov.ColWidth
	}
	return o
}

// Merge layers ov over DefaultOptions
func Merge(ov Overrides) Options {
	return DefaultOptions().Apply(ov)
}

// Overrides converts o into a fully populated Overrides, so that applying it
// reproduces o exactly.
func (o Options) Overrides() Overrides {
	return Overrides{
		Beep:        Bool(o.Beep),
		Cut:         Bool(o.Cut),
		TailingLine: Bool(o.TailingLine),
		Encoding:    String(o.Encoding),
		Codepage:    Int(o.Codepage),
		ColWidth:    Int(o.ColWidth),
	}
}

// Then returns ov with every set field of next layered on top
func (ov Overrides) Then(next Overrides) Overrides {
	if next.Beep != nil {
		ov.Beep = next.Beep
	}
	if next.Cut != nil {
		ov.Cut = next.Cut
	}
	if next.TailingLine != nil {
		ov.TailingLine = next.TailingLine
	}
	if next.Encoding != nil {
		ov.Encoding = next.Encoding
	}
	if next.Codepage != nil {
		ov.Codepage = next.Codepage
	}
	if next.ColWidth != nil {
		ov.ColWidth = next.ColWidth
	}
	return ov
}

// lineWidth is the column width used for layout. Non-positive widths fall
// back to the default.
func (o Options) lineWidth() int {
	if o.ColWidth <= 0 {
		return DefaultColWidth
	}
	return o.ColWidth
}

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }
