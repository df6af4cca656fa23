package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/sirupsen/logrus"
)

// ---------------------------------------------------------------------------
// Letter Generation
// ---------------------------------------------------------------------------

// Letter is one generated document. Date is zero for undated letters.
type Letter struct {
	FileName string
	PDF      []byte
	Fit      FitResult
	Address  AddressField
	Date     time.Time
}

const defaultNotifyTimeout = 30 * time.Second

// Generator turns letter requests into PDF documents. It holds only read-only
// configuration and is safe for concurrent use; all layout state is created
// per call.
type Generator struct {
	cfg      *Config
	logos    LogoProvider
	notify   Notifier
	calendar *cal.BusinessCalendar
	now      func() time.Time
	log      logrus.FieldLogger
	pending  sync.WaitGroup
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLogoProvider sets the source of the decorative logo.
func WithLogoProvider(p LogoProvider) GeneratorOption {
	return func(g *Generator) {
		g.logos = p
	}
}

// WithNotifier sets who is told about generated letters.
func WithNotifier(n Notifier) GeneratorOption {
	return func(g *Generator) {
		g.notify = n
	}
}

// WithClock replaces time.Now for dating letters.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) GeneratorOption {
	return func(g *Generator) {
		g.log = log
	}
}

func NewGenerator(cfg *Config, opts ...GeneratorOption) *Generator {
	g := &Generator{
		cfg:      cfg,
		logos:    noLogo{},
		notify:   noNotify{},
		calendar: newBusinessCalendar(cfg.Letter.Holidays),
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate lays out and renders one letter. Overflowing content is truncated
// at the bottom margin; only failures of the PDF primitives are returned.
// The notifier runs in the background; see Wait.
func (g *Generator) Generate(ctx context.Context, req LetterRequest) (*Letter, error) {
	lc := g.cfg.Letter
	measurer := newMeasurer()
	engine := NewEngine(g.cfg.Layout, g.cfg.Window, measurer, lc.Contact)

	paragraphs := lc.Markers.Classify(composeBody(lc, req))
	g.log.WithField("roles", roleCounts(paragraphs)).Debug("Classified letter body")
	fit, body := engine.Fit(paragraphs)
	if !fit.Fits {
		g.log.WithFields(logrus.Fields{
			"font_size": fit.FontSize,
			"lines":     body.Lines,
		}).Warn("Letter body truncated at bottom margin")
	}

	addrSize := lc.AddressFontSize
	if addrSize == 0 {
		addrSize = fit.FontSize
	}
	field := placeAddressField(g.cfg.Window, lc, req, addrSize, measurer.LineHeight(addrSize))
	if field.Overflows() {
		g.log.WithField("lines", len(field.Lines)).Debug("Address block exceeds window height")
	}

	logo, err := g.logos.Logo(ctx)
	if err != nil {
		g.log.WithError(err).Debug("Rendering letter without logo")
		logo = nil
	}

	date := req.Date
	if date.IsZero() && lc.DateLine {
		date = letterDate(g.calendar, g.now())
	}
	page := letterPage{
		Title:           lc.Title,
		Author:          lc.Author,
		FoldMarks:       lc.FoldMarks,
		EditableAddress: lc.EditableAddress,
		Layout:          g.cfg.Layout,
		Address:         field,
		Body:            body,
		Logo:            logo,
	}
	if !date.IsZero() {
		page.DateLine = dateLine(lc.Place, date)
	}

	data, err := createPDF(page)
	if err != nil {
		return nil, fmt.Errorf("failed to render letter: %w", err)
	}

	letter := &Letter{
		FileName: lc.FileName,
		PDF:      data,
		Fit:      fit,
		Address:  field,
		Date:     date,
	}

	g.pending.Add(1)
	go g.notifyLetter(context.WithoutCancel(ctx), letter)

	return letter, nil
}

// notifyLetter runs detached from the request so a slow mail relay never
// delays the response.
func (g *Generator) notifyLetter(ctx context.Context, letter *Letter) {
	defer g.pending.Done()

	timeout := g.cfg.Mail.Timeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := g.notify.Notify(ctx, letter); err != nil {
		g.log.WithError(err).Error("Failed to send letter copy")
	}
}

// Wait blocks until all background notifications have finished.
func (g *Generator) Wait() {
	g.pending.Wait()
}
