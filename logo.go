package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ---------------------------------------------------------------------------
// Logo
// ---------------------------------------------------------------------------

const (
	maxLogoBytes    = 2 << 20
	logoFailureTTL  = time.Minute
	logoUserAgent   = "fensterbrief/" + version
	logoImageName   = "logo"
	defaultLogoWait = 3 * time.Second
)

var errNoLogo = errors.New("logo: not available")

// Logo is a decoded-and-checked image ready for embedding.
type Logo struct {
	Name  string
	Type  string // fpdf image type: PNG, JPG or GIF
	Data  []byte
	Top   float64
	Width float64
}

// LogoProvider supplies the decorative logo. Any error means "no logo".
type LogoProvider interface {
	Logo(ctx context.Context) (*Logo, error)
}

type noLogo struct{}

func (noLogo) Logo(context.Context) (*Logo, error) {
	return nil, errNoLogo
}

// remoteLogo fetches the logo over HTTP with a bounded wait. Results, failures
// included, are cached; concurrent misses share a single fetch.
type remoteLogo struct {
	cfg    LogoConfig
	client *http.Client
	cache  *cache.Cache
	group  singleflight.Group
}

// newLogoProvider returns noLogo when no URL is configured.
func newLogoProvider(cfg LogoConfig, client *http.Client) LogoProvider {
	if cfg.URL == "" {
		return noLogo{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLogoWait
	}
	if client == nil {
		client = &http.Client{}
	}
	return &remoteLogo{
		cfg:    cfg,
		client: client,
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

func (p *remoteLogo) Logo(ctx context.Context) (*Logo, error) {
	if v, ok := p.cache.Get(p.cfg.URL); ok {
		if logo, _ := v.(*Logo); logo != nil {
			return logo, nil
		}
		return nil, errNoLogo
	}

	v, err, _ := p.group.Do(p.cfg.URL, func() (any, error) {
		logo, err := p.fetch(ctx)
		if err != nil {
			// A caller that went away says nothing about the logo host.
			if ctx.Err() == nil {
				p.cache.Set(p.cfg.URL, (*Logo)(nil), logoFailureTTL)
			}
			return nil, err
		}
		p.cache.Set(p.cfg.URL, logo, cache.DefaultExpiration)
		return logo, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Logo), nil
}

func (p *remoteLogo) fetch(ctx context.Context) (*Logo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoLogo, err)
	}
	req.Header.Set("User-Agent", logoUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoLogo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", errNoLogo, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoLogo, err)
	}

	typ, err := imageType(data)
	if err != nil {
		return nil, err
	}

	return &Logo{
		Name:  logoImageName,
		Type:  typ,
		Data:  data,
		Top:   p.cfg.Top,
		Width: p.cfg.Width,
	}, nil
}

// imageType checks that data decodes as an image fpdf can embed and returns
// the fpdf type name.
func imageType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNoLogo, err)
	}
	switch format {
	case "png":
		return "PNG", nil
	case "jpeg":
		return "JPG", nil
	case "gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q", errNoLogo, format)
	}
}
