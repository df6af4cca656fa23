package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// ---------------------------------------------------------------------------
// PDF Generation
// ---------------------------------------------------------------------------

const (
	fontFamily = "Times"
	ptToMM     = 25.4 / 72

	// Height of the Times-Roman font bounding box per point of font size.
	timesBBoxHeight = 1.116
)

// documentTime is written as creation and modification date, so equal input
// produces equal bytes on any day.
var documentTime = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// DIN 5008 fold marks and punch mark, in mm from the page top.
var foldMarks = []struct {
	y, length float64
}{
	{105, 5},
	{148.5, 8},
	{210, 5},
}

func fontStyle(bold bool) string {
	if bold {
		return "B"
	}
	return ""
}

// fpdfMeasurer measures text with the core font metrics of fpdf. It holds a
// scratch document and must not be shared between requests.
type fpdfMeasurer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newMeasurer() *fpdfMeasurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &fpdfMeasurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *fpdfMeasurer) TextWidth(text string, bold bool, size float64) float64 {
	m.pdf.SetFont(fontFamily, fontStyle(bold), size)
	return m.pdf.GetStringWidth(m.tr(text))
}

func (m *fpdfMeasurer) LineHeight(size float64) float64 {
	return size * timesBBoxHeight * ptToMM
}

// letterPage collects everything drawn on the single letter page.
type letterPage struct {
	Title           string
	Author          string
	DateLine        string
	FoldMarks       bool
	EditableAddress bool
	Layout          LayoutParams
	Address         AddressField
	Body            Result
	Logo            *Logo
}

// createPDF draws the letter page and returns the serialized document. An
// editable address becomes a form field appended to the finished document.
func createPDF(page letterPage) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(documentTime)
	pdf.SetModificationDate(documentTime)
	pdf.SetTitle(page.Title, true)
	pdf.SetAuthor(page.Author, true)
	pdf.SetCreator("fensterbrief "+version, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	if page.FoldMarks {
		pdf.SetDrawColor(160, 160, 160)
		pdf.SetLineWidth(0.2)
		for _, m := range foldMarks {
			pdf.Line(0, m.y, m.length, m.y)
		}
	}

	if page.Logo != nil {
		drawLogo(pdf, page.Logo, page.Layout)
	}

	// Address block inside the envelope window
	f := page.Address
	if !page.EditableAddress {
		pdf.SetFont(fontFamily, "", f.FontSize)
		for i, line := range f.Lines {
			if line == "" {
				continue
			}
			pdf.Text(f.X+f.Padding, f.Baseline(i), tr(line))
		}
	}

	// Place and date, right-aligned level with the window's lower edge
	if page.DateLine != "" {
		pdf.SetFont(fontFamily, "", page.Body.FontSize)
		s := tr(page.DateLine)
		x := page.Layout.PageWidth - page.Layout.RightMargin - pdf.GetStringWidth(s)
		pdf.Text(x, f.Y+f.Height, s)
	}

	for _, in := range page.Body.Instructions {
		pdf.SetFont(fontFamily, fontStyle(in.Bold), in.FontSize)
		s := tr(in.Text)
		pdf.Text(in.X, in.Y, s)
		if in.Link != "" {
			_, h := pdf.GetFontSize()
			pdf.LinkString(in.X, in.Y-h, pdf.GetStringWidth(s), h, in.Link)
		}
	}

	_, pageHeight := pdf.GetPageSize()
	geo := fieldGeometry{K: pdf.GetConversionRatio(), PageHeight: pageHeight}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	if !page.EditableAddress {
		return buf.Bytes(), nil
	}

	data, err := addAddressField(buf.Bytes(), f, geo, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to add address field: %w", err)
	}
	return data, nil
}

// drawLogo places the logo at the top right corner. A logo fpdf cannot read
// is skipped and the document error cleared.
func drawLogo(pdf *fpdf.Fpdf, logo *Logo, l LayoutParams) {
	opts := fpdf.ImageOptions{ImageType: logo.Type, ReadDpi: true}
	info := pdf.RegisterImageOptionsReader(logo.Name, opts, bytes.NewReader(logo.Data))
	if !pdf.Ok() || info == nil {
		pdf.ClearError()
		return
	}
	x := l.PageWidth - l.RightMargin - logo.Width
	pdf.ImageOptions(logo.Name, x, logo.Top, logo.Width, 0, false, opts, 0, "")
}
