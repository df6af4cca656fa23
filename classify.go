package main

import "strings"

// ---------------------------------------------------------------------------
// Structural Classification
// ---------------------------------------------------------------------------

// Role tells the layout engine how a line of body text is set.
type Role int

const (
	RolePlain Role = iota
	RoleHeading
	RoleBullet
	RoleLabel
	RoleSignature
)

func (r Role) String() string {
	switch r {
	case RoleHeading:
		return "heading"
	case RoleBullet:
		return "bullet"
	case RoleLabel:
		return "label"
	case RoleSignature:
		return "signature"
	default:
		return "plain"
	}
}

// ClassifiedLine is one trimmed line of body text tagged with its role.
// For bullets and labels Title holds the bold lead (colon included) and Body
// the regular remainder. Blank lines are kept as RolePlain with empty Text.
type ClassifiedLine struct {
	Text      string
	Role      Role
	Title     string
	Body      string
	Paragraph int
}

// Blank reports whether the line carries no text.
func (l ClassifiedLine) Blank() bool {
	return l.Text == ""
}

// Markers holds the fixed strings the classifier matches lines against.
type Markers struct {
	Bullet    string   `yaml:"bullet"`
	Labels    []string `yaml:"labels"`
	Headings  []string `yaml:"headings"`
	Signature string   `yaml:"signature"`
}

// ClassifyLine tags a single line. The result depends on the trimmed text only.
func (m Markers) ClassifyLine(line string) ClassifiedLine {
	text := strings.TrimSpace(line)
	if text == "" {
		return ClassifiedLine{Role: RolePlain}
	}

	if m.Bullet != "" && strings.HasPrefix(text, m.Bullet) {
		rest := strings.TrimSpace(strings.TrimPrefix(text, m.Bullet))
		if rest != "" {
			title, body := rest, ""
			if i := strings.Index(rest, ":"); i >= 0 {
				title = rest[:i+1]
				body = strings.TrimSpace(rest[i+1:])
			}
			return ClassifiedLine{Text: rest, Role: RoleBullet, Title: title, Body: body}
		}
	}

	for _, label := range m.Labels {
		if label != "" && strings.HasPrefix(text, label) {
			return ClassifiedLine{
				Text:  text,
				Role:  RoleLabel,
				Title: label,
				Body:  strings.TrimSpace(strings.TrimPrefix(text, label)),
			}
		}
	}

	for _, heading := range m.Headings {
		if text == heading {
			return ClassifiedLine{Text: text, Role: RoleHeading}
		}
	}

	if m.Signature != "" && text == m.Signature {
		return ClassifiedLine{Text: text, Role: RoleSignature}
	}

	return ClassifiedLine{Text: text, Role: RolePlain}
}

// Classify splits body text into paragraphs (blank-line separated) and
// classifies every line of each paragraph.
func (m Markers) Classify(text string) [][]ClassifiedLine {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	blocks := strings.Split(text, "\n\n")
	paragraphs := make([][]ClassifiedLine, 0, len(blocks))
	for i, block := range blocks {
		raw := strings.Split(block, "\n")
		lines := make([]ClassifiedLine, 0, len(raw))
		for _, r := range raw {
			cl := m.ClassifyLine(r)
			cl.Paragraph = i
			lines = append(lines, cl)
		}
		paragraphs = append(paragraphs, lines)
	}
	return paragraphs
}

// blankParagraph reports whether no line of the paragraph carries text.
func blankParagraph(lines []ClassifiedLine) bool {
	for _, l := range lines {
		if !l.Blank() {
			return false
		}
	}
	return true
}

// roleCounts counts the non-blank lines per role, keyed by role name.
func roleCounts(paragraphs [][]ClassifiedLine) map[string]int {
	counts := make(map[string]int)
	for _, p := range paragraphs {
		for _, l := range p {
			if !l.Blank() {
				counts[l.Role.String()]++
			}
		}
	}
	return counts
}
