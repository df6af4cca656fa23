package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `yaml:"rate_burst"`
	LogFormat       string        `yaml:"log_format"` // "json" or "text"
	LogLevel        string        `yaml:"log_level"`
	SentryDSN       string        `yaml:"sentry_dsn"`
	Environment     string        `yaml:"environment"`
}

// LetterConfig holds the fixed texts and options of the generated letter.
type LetterConfig struct {
	FileName          string        `yaml:"file_name"`
	Title             string        `yaml:"title"`
	Author            string        `yaml:"author"`
	Place             string        `yaml:"place"`
	DateLine          bool          `yaml:"date_line"` // date undated requests with the next business day
	Holidays          string        `yaml:"holidays"`  // holiday region, e.g. "AT" or a German state
	Salutation        string        `yaml:"salutation"`
	DefaultAddress    string        `yaml:"default_address"`
	DefaultLocality   string        `yaml:"default_locality"`
	AddressHeading    string        `yaml:"address_heading"`
	AddressBlankLines int           `yaml:"address_blank_lines"`
	AddressFontSize   float64       `yaml:"address_font_size"` // 0 follows the fitted body size
	AddressPadding    float64       `yaml:"address_padding"`
	EditableAddress   bool          `yaml:"editable_address"` // form field instead of static text
	FoldMarks         bool          `yaml:"fold_marks"`
	Markers           Markers       `yaml:"markers"`
	Contact           []ContactItem `yaml:"contact"`
}

type LogoConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Top      float64       `yaml:"top"`
	Width    float64       `yaml:"width"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"pass"`
}

// MailConfig configures the office copy of every generated letter. No mail is
// sent while SMTP.Host or To is empty.
type MailConfig struct {
	SMTP    SMTPConfig    `yaml:"smtp"`
	From    string        `yaml:"from"`
	To      string        `yaml:"to"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether copy mails should be sent.
func (m MailConfig) Enabled() bool {
	return m.SMTP.Host != "" && m.To != ""
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Letter LetterConfig `yaml:"letter"`
	Layout LayoutParams `yaml:"layout"`
	Window WindowSpec   `yaml:"window"`
	Logo   LogoConfig   `yaml:"logo"`
	Mail   MailConfig   `yaml:"mail"`
}

var defaultFontSizes = []float64{12, 11.5, 11, 10.5, 10, 9.5, 9}

// defaultConfig returns the compiled-in configuration. The window matches the
// left DL/C6 envelope window: 20 mm from the left, 45 mm from the top, 90x45 mm.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
			RateLimit:       0,
			RateBurst:       10,
			LogFormat:       "json",
			LogLevel:        "info",
			Environment:     "production",
		},
		Letter: LetterConfig{
			FileName:          "wisehomes_brief.pdf",
			Title:             "Wisehomes.at Brief",
			Author:            "Wisehomes.at",
			Place:             "Wien",
			DateLine:          false,
			Holidays:          "AT",
			Salutation:        "Sehr geehrte Damen und Herren,",
			DefaultAddress:    "Bahnstraße 17",
			DefaultLocality:   "2404 Petronell",
			AddressHeading:    "An die neuen Eigentümer",
			AddressBlankLines: 1,
			AddressPadding:    2,
			EditableAddress:   true,
			FoldMarks:         true,
			Markers: Markers{
				Bullet: "• ",
				Labels: []string{"Ergebnis:", "Betreff:", "Unser Vorschlag:"},
				Headings: []string{
					"herzlichen Glückwunsch zum Auktionszuschlag!",
					"Herzlichen Glückwunsch zum Auktionszuschlag!",
					"Was wir für Sie unkompliziert aus einer Hand übernehmen:",
				},
				Signature: "Eldi Neziri",
			},
			Contact: []ContactItem{
				{Label: "T: ", Value: "+43 1 774 20 32", Link: "tel:+4317742032"},
				{Label: " · E: ", Value: "info@wisehomes.at", Link: "mailto:info@wisehomes.at"},
				{Label: " · W: ", Value: "wisehomes.at", Link: "https://wisehomes.at"},
			},
		},
		Layout: LayoutParams{
			PageWidth:            210,
			PageHeight:           297,
			LeftMargin:           25,
			RightMargin:          20,
			TopOffsetBelowWindow: 12,
			BottomMargin:         15,
			LineGap:              1.4,
			ParagraphGap:         2,
			BulletIndent:         5,
			BulletGap:            1.5,
			FontSizes:            append([]float64(nil), defaultFontSizes...),
			SignatureGap:         12,
			HeadingGapBefore:     1.5,
			HeadingGapAfter:      1.5,
		},
		Window: WindowSpec{Left: 20, Top: 45, Width: 90, Height: 45},
		Logo: LogoConfig{
			Timeout:  3 * time.Second,
			CacheTTL: time.Hour,
			Top:      12,
			Width:    40,
		},
		Mail: MailConfig{
			SMTP:    SMTPConfig{Port: 587},
			Subject: "Brief an %s",
			Timeout: 30 * time.Second,
		},
	}
}

// loadConfig reads the YAML configuration file over the compiled-in defaults.
// An empty path yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	l := c.Layout
	if len(l.FontSizes) == 0 {
		return errors.New("layout.font_sizes must not be empty")
	}
	for i, s := range l.FontSizes {
		if s <= 0 {
			return fmt.Errorf("layout.font_sizes[%d] must be positive", i)
		}
		if i > 0 && s >= l.FontSizes[i-1] {
			return errors.New("layout.font_sizes must be strictly descending")
		}
	}
	if l.PageWidth <= 0 || l.PageHeight <= 0 {
		return errors.New("layout page size must be positive")
	}
	if l.ContentWidth() <= l.BulletIndent {
		return errors.New("layout margins leave no content width")
	}

	w := c.Window
	if w.Width <= 0 || w.Height <= 0 {
		return errors.New("window size must be positive")
	}
	if w.Left < 0 || w.Top < 0 || w.Left+w.Width > l.PageWidth || w.Bottom() > l.PageHeight {
		return errors.New("window must lie on the page")
	}

	p := c.Letter.AddressPadding
	if !w.Contains(w.Left+p, w.Top+p, w.Width-2*p, w.Height-2*p) || 2*p >= w.Width || 2*p >= w.Height {
		return errors.New("letter.address_padding must keep the address field inside the window")
	}

	if c.Letter.AddressFontSize < 0 {
		return errors.New("letter.address_font_size must not be negative")
	}
	return nil
}
