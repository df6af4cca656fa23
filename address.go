package main

import "strings"

// ---------------------------------------------------------------------------
// Address Field
// ---------------------------------------------------------------------------

// AddressField is the recipient block printed inside the envelope window.
// The rectangle equals the window; Lines may start with blank lines.
type AddressField struct {
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Padding    float64
	FontSize   float64
	LineHeight float64
	Lines      []string
}

// placeAddressField builds the window block: leading blank lines, the fixed
// heading, then address and locality, each falling back to its default when
// blank.
func placeAddressField(w WindowSpec, cfg LetterConfig, req LetterRequest, size, lineHeight float64) AddressField {
	lines := make([]string, 0, cfg.AddressBlankLines+3)
	for i := 0; i < cfg.AddressBlankLines; i++ {
		lines = append(lines, "")
	}
	if cfg.AddressHeading != "" {
		lines = append(lines, cfg.AddressHeading)
	}
	lines = append(lines,
		orDefault(req.Address, cfg.DefaultAddress),
		orDefault(req.Locality, cfg.DefaultLocality),
	)

	return AddressField{
		X:          w.Left,
		Y:          w.Top,
		Width:      w.Width,
		Height:     w.Height,
		Padding:    cfg.AddressPadding,
		FontSize:   size,
		LineHeight: lineHeight,
		Lines:      lines,
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

// Text returns the field content as a newline separated block.
func (f AddressField) Text() string {
	return strings.Join(f.Lines, "\n")
}

// Baseline returns the baseline of line i, measured from the page top.
func (f AddressField) Baseline(i int) float64 {
	return f.Y + f.Padding + float64(i+1)*f.LineHeight
}

// Overflows reports whether the text needs more height than the window has.
// Overflow is tolerated; the caller only logs it.
func (f AddressField) Overflows() bool {
	return float64(len(f.Lines))*f.LineHeight+2*f.Padding > f.Height
}

// Recipient returns address and locality on one line.
func (f AddressField) Recipient() string {
	n := len(f.Lines)
	if n < 2 {
		return strings.Join(f.Lines, ", ")
	}
	return f.Lines[n-2] + ", " + f.Lines[n-1]
}
