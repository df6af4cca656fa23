package main

import "strings"

// ---------------------------------------------------------------------------
// Geometry
// ---------------------------------------------------------------------------

// WindowSpec is the envelope window rectangle in mm, measured from the top
// left corner of the page.
type WindowSpec struct {
	Left   float64 `yaml:"left"`
	Top    float64 `yaml:"top"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Bottom returns the distance of the window's lower edge from the page top.
func (w WindowSpec) Bottom() float64 {
	return w.Top + w.Height
}

// Contains reports whether the rectangle lies entirely inside the window.
func (w WindowSpec) Contains(x, y, width, height float64) bool {
	return x >= w.Left && y >= w.Top &&
		x+width <= w.Left+w.Width && y+height <= w.Bottom()
}

// LayoutParams holds every geometric offset of the body layout. Lengths are
// in mm, font sizes in pt. FontSizes is ordered from largest to smallest.
type LayoutParams struct {
	PageWidth            float64   `yaml:"page_width"`
	PageHeight           float64   `yaml:"page_height"`
	LeftMargin           float64   `yaml:"left_margin"`
	RightMargin          float64   `yaml:"right_margin"`
	TopOffsetBelowWindow float64   `yaml:"top_offset_below_window"`
	StartHigher          float64   `yaml:"start_higher"`
	BottomMargin         float64   `yaml:"bottom_margin"`
	LineGap              float64   `yaml:"line_gap"`
	ParagraphGap         float64   `yaml:"paragraph_gap"`
	BulletIndent         float64   `yaml:"bullet_indent"`
	BulletGap            float64   `yaml:"bullet_gap"`
	FontSizes            []float64 `yaml:"font_sizes"`
	SignatureGap         float64   `yaml:"signature_gap"`
	HeadingGapBefore     float64   `yaml:"heading_gap_before"`
	HeadingGapAfter      float64   `yaml:"heading_gap_after"`
}

// ContentWidth is the horizontal space between the margins.
func (p LayoutParams) ContentWidth() float64 {
	return p.PageWidth - p.LeftMargin - p.RightMargin
}

// ContactItem is one label/value pair of the contact row. Link is optional.
type ContactItem struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
	Link  string `yaml:"link"`
}

// ---------------------------------------------------------------------------
// Layout Engine
// ---------------------------------------------------------------------------

const bulletGlyph = "•"

// Measurer provides the glyph metrics the engine needs. Widths and heights are
// in mm, size in pt.
type Measurer interface {
	TextWidth(text string, bold bool, size float64) float64
	LineHeight(size float64) float64
}

// DrawInstruction is one positioned text run. Y is the baseline, measured
// from the page top.
type DrawInstruction struct {
	Text     string
	X        float64
	Y        float64
	FontSize float64
	Bold     bool
	Link     string
}

// Result is the trace of one layout pass. When Fits is false the trace stops
// at the first line that would have crossed the bottom margin.
type Result struct {
	FontSize     float64
	Instructions []DrawInstruction
	Fits         bool
	Lines        int
	Cursor       float64
}

// Engine lays out classified body text below the envelope window.
type Engine struct {
	params  LayoutParams
	window  WindowSpec
	measure Measurer
	contact []ContactItem
}

// NewEngine creates an engine for one page geometry. A non-empty contact row
// is appended after the last paragraph.
func NewEngine(params LayoutParams, window WindowSpec, m Measurer, contact []ContactItem) *Engine {
	return &Engine{params: params, window: window, measure: m, contact: contact}
}

// StartY is the baseline of the first body line.
func (e *Engine) StartY() float64 {
	return e.window.Bottom() + e.params.TopOffsetBelowWindow - e.params.StartHigher
}

// Limit is the lowest baseline a line may be placed on.
func (e *Engine) Limit() float64 {
	return e.params.PageHeight - e.params.BottomMargin
}

// Layout positions all paragraphs at the given font size. It has no side
// effects: measuring and rendering use the same trace.
func (e *Engine) Layout(paragraphs [][]ClassifiedLine, size float64) Result {
	c := &cursor{
		e:     e,
		size:  size,
		y:     e.StartY(),
		step:  e.measure.LineHeight(size) + e.params.LineGap,
		limit: e.Limit(),
		fits:  true,
	}

	for _, lines := range paragraphs {
		if !c.paragraph(lines) {
			break
		}
	}
	if c.fits && len(e.contact) > 0 {
		c.contactRow()
	}

	return Result{
		FontSize:     size,
		Instructions: c.out,
		Fits:         c.fits,
		Lines:        c.lines,
		Cursor:       c.y,
	}
}

type cursor struct {
	e     *Engine
	size  float64
	y     float64
	step  float64
	limit float64
	out   []DrawInstruction
	lines int
	fits  bool
}

func (c *cursor) paragraph(lines []ClassifiedLine) bool {
	p := c.e.params
	if blankParagraph(lines) {
		c.y += c.step + p.ParagraphGap
		return true
	}

	left := p.LeftMargin
	width := p.ContentWidth()
	inList := false

	for _, ln := range lines {
		if ln.Blank() {
			c.y += c.step
			continue
		}

		var ok bool
		switch ln.Role {
		case RoleBullet:
			inList = true
			ok = c.bullet(ln)
		case RoleLabel:
			x, w := left, width
			if inList {
				x, w = left+p.BulletIndent, width-p.BulletIndent
			}
			ok = c.block(x, w, []run{{text: ln.Title, bold: true}, {text: ln.Body}})
		case RoleHeading:
			c.y += p.HeadingGapBefore
			ok = c.block(left, width, []run{{text: ln.Text, bold: true}})
			c.y += p.HeadingGapAfter
		case RoleSignature:
			c.y += p.SignatureGap
			ok = c.block(left, width, []run{{text: ln.Text}})
		default:
			ok = c.block(left, width, []run{{text: ln.Text}})
		}
		if !ok {
			return false
		}
	}

	c.y += p.ParagraphGap
	return true
}

func (c *cursor) bullet(ln ClassifiedLine) bool {
	p := c.e.params
	x := p.LeftMargin + p.BulletIndent
	lines := c.e.wrap([]run{{text: ln.Title, bold: true}, {text: ln.Body}}, c.size, p.ContentWidth()-p.BulletIndent)

	for i, segs := range lines {
		if i == 0 {
			segs = append([]segment{{text: bulletGlyph, offset: -p.BulletIndent}}, segs...)
		}
		if !c.emit(x, segs) {
			return false
		}
	}
	c.y += p.BulletGap
	return true
}

func (c *cursor) contactRow() bool {
	runs := make([]run, 0, 2*len(c.e.contact))
	for _, item := range c.e.contact {
		runs = append(runs, run{text: item.Label}, run{text: item.Value, link: item.Link})
	}
	return c.block(c.e.params.LeftMargin, c.e.params.ContentWidth(), runs)
}

// block wraps runs at the given width and emits each resulting line at x.
func (c *cursor) block(x, width float64, runs []run) bool {
	for _, segs := range c.e.wrap(runs, c.size, width) {
		if !c.emit(x, segs) {
			return false
		}
	}
	return true
}

// emit places one line at the cursor and advances it. It refuses lines whose
// baseline lies below the bottom margin.
func (c *cursor) emit(x float64, segs []segment) bool {
	if c.y > c.limit {
		c.fits = false
		return false
	}
	for _, s := range segs {
		c.out = append(c.out, DrawInstruction{
			Text:     s.text,
			X:        x + s.offset,
			Y:        c.y,
			FontSize: c.size,
			Bold:     s.bold,
			Link:     s.link,
		})
	}
	c.y += c.step
	c.lines++
	return true
}

// ---------------------------------------------------------------------------
// Word Wrap
// ---------------------------------------------------------------------------

// run is a stretch of text in one style.
type run struct {
	text string
	bold bool
	link string
}

// segment is a run placed on a line, offset from the line start.
type segment struct {
	text   string
	bold   bool
	link   string
	offset float64
}

type word struct {
	text string
	bold bool
	link string
}

func splitWords(runs []run) []word {
	var words []word
	for _, r := range runs {
		for _, f := range strings.Fields(r.text) {
			words = append(words, word{text: f, bold: r.bold, link: r.link})
		}
	}
	return words
}

// wrap fills lines greedily: a word is appended while the line stays within
// width, otherwise the line is flushed. A word wider than width gets a line of
// its own and is never split.
func (e *Engine) wrap(runs []run, size, width float64) [][]segment {
	var lines [][]segment
	var cur []word

	for _, w := range splitWords(runs) {
		tentative := append(cur[:len(cur):len(cur)], w)
		if _, wd := e.segments(tentative, size); wd <= width {
			cur = tentative
			continue
		}
		if len(cur) > 0 {
			segs, _ := e.segments(cur, size)
			lines = append(lines, segs)
		}
		cur = []word{w}
	}
	if len(cur) > 0 {
		segs, _ := e.segments(cur, size)
		lines = append(lines, segs)
	}
	return lines
}

// segments joins words of equal style into segments separated by single
// spaces and returns them with the total rendered width of the line.
func (e *Engine) segments(words []word, size float64) ([]segment, float64) {
	var segs []segment
	for _, w := range words {
		if n := len(segs); n > 0 && segs[n-1].bold == w.bold && segs[n-1].link == w.link {
			segs[n-1].text += " " + w.text
			continue
		}
		offset := 0.0
		if n := len(segs); n > 0 {
			prev := segs[n-1]
			offset = prev.offset + e.measure.TextWidth(prev.text+" ", prev.bold, size)
		}
		segs = append(segs, segment{text: w.text, bold: w.bold, link: w.link, offset: offset})
	}
	if len(segs) == 0 {
		return nil, 0
	}
	last := segs[len(segs)-1]
	return segs, last.offset + e.measure.TextWidth(last.text, last.bold, size)
}
