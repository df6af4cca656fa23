package main

// ---------------------------------------------------------------------------
// Auto-Fit
// ---------------------------------------------------------------------------

// FitResult records the font size chosen for a letter and whether the body
// fits the page at that size.
type FitResult struct {
	FontSize float64
	Fits     bool
}

// Fit tries the candidate font sizes from largest to smallest and returns the
// first one whose layout fits, together with its trace. When none fits, the
// smallest size is returned with Fits=false and a truncated trace.
func (e *Engine) Fit(paragraphs [][]ClassifiedLine) (FitResult, Result) {
	sizes := e.params.FontSizes
	if len(sizes) == 0 {
		sizes = defaultFontSizes
	}

	var res Result
	for _, size := range sizes {
		res = e.Layout(paragraphs, size)
		if res.Fits {
			return FitResult{FontSize: size, Fits: true}, res
		}
	}
	return FitResult{FontSize: res.FontSize, Fits: false}, res
}
