package main

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ---------------------------------------------------------------------------
// Address Form Field
// ---------------------------------------------------------------------------

const (
	addressFieldName = "anschrift"
	fieldFontName    = "TiRo"

	// PDF field flag bit 13
	fieldFlagMultiline = 1 << 12
	// PDF annotation flag bit 3
	annotFlagPrint = 1 << 2
)

var (
	errNoTrailer = errors.New("pdf trailer not found")
	errNoXref    = errors.New("pdf cross-reference table not found")

	sizeRe      = regexp.MustCompile(`/Size (\d+)`)
	rootRe      = regexp.MustCompile(`/Root (\d+) 0 R`)
	infoRe      = regexp.MustCompile(`/Info (\d+) 0 R`)
	startxrefRe = regexp.MustCompile(`startxref\s+(\d+)`)
	kidsRe      = regexp.MustCompile(`/Kids \[(\d+) 0 R`)
)

// pdfTrailer holds the trailer entries of the last revision of a document.
type pdfTrailer struct {
	Size      int
	Root      int
	Info      int
	StartXref int
}

// fieldGeometry converts the address rectangle from mm measured from the page
// top to PDF points measured from the page bottom.
type fieldGeometry struct {
	K          float64 // points per mm
	PageHeight float64 // mm
}

func (g fieldGeometry) rect(f AddressField) (x1, y1, x2, y2 float64) {
	x1 = f.X * g.K
	y1 = (g.PageHeight - f.Y - f.Height) * g.K
	return x1, y1, x1 + f.Width*g.K, y1 + f.Height*g.K
}

// addAddressField appends an incremental update to doc that places the address
// block as an editable multi-line text field over the window. The field has its
// own Times-Roman appearance stream, so viewers show the lines where the static
// rendering would put them. tr converts UTF-8 into the cp1252 bytes of the core
// font.
func addAddressField(doc []byte, f AddressField, geo fieldGeometry, tr func(string) string) ([]byte, error) {
	trailer, err := readTrailer(doc)
	if err != nil {
		return nil, err
	}
	offsets, err := readXref(doc, trailer.StartXref)
	if err != nil {
		return nil, err
	}

	pages, err := objectBody(doc, offsets, 1)
	if err != nil {
		return nil, err
	}
	m := kidsRe.FindSubmatch(pages)
	if m == nil {
		return nil, errors.New("pdf page tree has no pages")
	}
	pageNum, _ := strconv.Atoi(string(m[1]))

	page, err := objectBody(doc, offsets, pageNum)
	if err != nil {
		return nil, err
	}
	catalog, err := objectBody(doc, offsets, trailer.Root)
	if err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(page, []byte(">>")) || !bytes.HasSuffix(catalog, []byte(">>")) {
		return nil, errors.New("unexpected pdf dictionary layout")
	}

	fieldNum, fontNum, apNum := trailer.Size, trailer.Size+1, trailer.Size+2
	x1, y1, x2, y2 := geo.rect(f)

	var out bytes.Buffer
	out.Grow(len(doc) + 2048)
	out.Write(doc)
	written := make(map[int]int)
	put := func(num int, body string) {
		written[num] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	put(fieldNum, fmt.Sprintf("<</Type /Annot /Subtype /Widget /FT /Tx /T (%s) /F %d /Ff %d /P %d 0 R"+
		" /Rect [%.2f %.2f %.2f %.2f] /BS <</W 0>> /DA (/%s %.2f Tf 0 g) /V %s /AP <</N %d 0 R>>>>",
		addressFieldName, annotFlagPrint, fieldFlagMultiline, pageNum,
		x1, y1, x2, y2, fieldFontName, f.FontSize, utf16Hex(strings.Join(f.Lines, "\r")), apNum))

	put(fontNum, "<</Type /Font /Subtype /Type1 /BaseFont /Times-Roman /Encoding /WinAnsiEncoding>>")

	stream := appearanceStream(f, geo, tr)
	put(apNum, fmt.Sprintf("<</Type /XObject /Subtype /Form /BBox [0 0 %.2f %.2f] /Resources <</Font <</%s %d 0 R>>>> /Length %d>>\nstream\n%s\nendstream",
		x2-x1, y2-y1, fieldFontName, fontNum, len(stream), stream))

	ref := fmt.Sprintf("%d 0 R", fieldNum)
	if i := bytes.Index(page, []byte("/Annots [")); i >= 0 {
		i += len("/Annots [")
		put(pageNum, string(page[:i])+ref+" "+string(page[i:]))
	} else {
		put(pageNum, string(page[:len(page)-2])+"\n/Annots ["+ref+"]>>")
	}

	put(trailer.Root, string(catalog[:len(catalog)-2])+fmt.Sprintf(
		"/AcroForm <</Fields [%s] /DR <</Font <</%s %d 0 R>>>> /DA (/%s 0 Tf 0 g)>>\n>>",
		ref, fieldFontName, fontNum, fieldFontName))

	xref := out.Len()
	nums := make([]int, 0, len(written))
	for n := range written {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out.WriteString("xref\n")
	for _, n := range nums {
		fmt.Fprintf(&out, "%d 1\n%010d 00000 n \n", n, written[n])
	}
	fmt.Fprintf(&out, "trailer\n<<\n/Size %d\n/Root %d 0 R\n/Info %d 0 R\n/Prev %d\n>>\nstartxref\n%d\n%%%%EOF\n",
		apNum+1, trailer.Root, trailer.Info, trailer.StartXref, xref)

	return out.Bytes(), nil
}

// appearanceStream draws the non-blank address lines in field coordinates.
func appearanceStream(f AddressField, geo fieldGeometry, tr func(string) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "/Tx BMC\nq\nBT\n/%s %.2f Tf\n0 g\n", fieldFontName, f.FontSize)
	for i, line := range f.Lines {
		if line == "" {
			continue
		}
		x := f.Padding * geo.K
		y := (f.Y + f.Height - f.Baseline(i)) * geo.K
		fmt.Fprintf(&b, "1 0 0 1 %.2f %.2f Tm\n(%s) Tj\n", x, y, escapePDFString(tr(line)))
	}
	b.WriteString("ET\nQ\nEMC")
	return b.String()
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `(`, `\(`)
	s = strings.ReplaceAll(s, `)`, `\)`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	return s
}

// utf16Hex encodes s as a PDF text string in UTF-16BE with byte order mark.
func utf16Hex(s string) string {
	var b strings.Builder
	b.WriteString("<FEFF")
	for _, u := range utf16.Encode([]rune(s)) {
		fmt.Fprintf(&b, "%04X", u)
	}
	b.WriteString(">")
	return b.String()
}

// readTrailer parses the trailer of the last revision.
func readTrailer(doc []byte) (pdfTrailer, error) {
	i := bytes.LastIndex(doc, []byte("trailer"))
	if i < 0 {
		return pdfTrailer{}, errNoTrailer
	}
	tail := doc[i:]

	var t pdfTrailer
	for _, e := range []struct {
		re  *regexp.Regexp
		dst *int
	}{
		{sizeRe, &t.Size},
		{rootRe, &t.Root},
		{infoRe, &t.Info},
		{startxrefRe, &t.StartXref},
	} {
		m := e.re.FindSubmatch(tail)
		if m == nil {
			return pdfTrailer{}, fmt.Errorf("%w: missing %s", errNoTrailer, e.re)
		}
		*e.dst, _ = strconv.Atoi(string(m[1]))
	}
	return t, nil
}

// readXref parses the cross-reference section at off into object offsets.
// Only in-use entries are returned.
func readXref(doc []byte, off int) (map[int]int, error) {
	if off < 0 || off >= len(doc) || !bytes.HasPrefix(doc[off:], []byte("xref\n")) {
		return nil, errNoXref
	}
	rest := doc[off:]
	pos := len("xref\n")
	offsets := make(map[int]int)

	for {
		nl := bytes.IndexByte(rest[pos:], '\n')
		if nl < 0 {
			return nil, errNoXref
		}
		line := strings.TrimSpace(string(rest[pos : pos+nl]))
		if strings.HasPrefix(line, "trailer") {
			return offsets, nil
		}
		var start, count int
		if _, err := fmt.Sscanf(line, "%d %d", &start, &count); err != nil {
			return nil, fmt.Errorf("%w: bad subsection %q", errNoXref, line)
		}
		pos += nl + 1

		for i := 0; i < count; i++ {
			if pos+20 > len(rest) {
				return nil, errNoXref
			}
			entry := rest[pos : pos+20]
			if entry[17] == 'n' {
				o, err := strconv.Atoi(string(entry[:10]))
				if err != nil {
					return nil, fmt.Errorf("%w: bad entry %q", errNoXref, entry)
				}
				offsets[start+i] = o
			}
			pos += 20
		}
	}
}

// objectBody returns the content between "N 0 obj" and "endobj".
func objectBody(doc []byte, offsets map[int]int, num int) ([]byte, error) {
	off, ok := offsets[num]
	if !ok || off >= len(doc) {
		return nil, fmt.Errorf("pdf object %d not found", num)
	}
	header := fmt.Sprintf("%d 0 obj\n", num)
	obj := doc[off:]
	if !bytes.HasPrefix(obj, []byte(header)) {
		return nil, fmt.Errorf("pdf object %d not at its offset", num)
	}
	end := bytes.Index(obj, []byte("\nendobj"))
	if end < 0 {
		return nil, fmt.Errorf("pdf object %d is not terminated", num)
	}
	return obj[len(header):end], nil
}
