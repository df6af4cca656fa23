package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ---------------------------------------------------------------------------
// Letter Request
// ---------------------------------------------------------------------------

// LetterRequest is the canonical input of one letter. Empty fields fall back to
// the configured defaults during layout.
type LetterRequest struct {
	Address  string // street and house number
	Locality string // postal code and city
	Body     string
	Subject  string
	Date     time.Time // zero when the request carries no valid date
}

// Accepted JSON keys per field, in lookup order.
var (
	addressAliases  = []string{"adresse", "address", "Adresse"}
	localityAliases = []string{"plz/ort", "PLZ/Ort", "plzOrt", "plz_ort", "plzort"}
	bodyAliases     = []string{"text", "body"}
	subjectAliases  = []string{"betreff"}
	dateAliases     = []string{"datum", "date"}
)

// Accepted date layouts, German style first.
var dateLayouts = []string{"2.1.2006", "2006-01-02"}

// decodeLetterRequest resolves the field aliases of a raw request body. Bodies
// that are not a JSON object, or a JSON string holding one, count as empty.
func decodeLetterRequest(raw []byte) LetterRequest {
	fields := decodeObject(raw)

	return LetterRequest{
		Address:  cleanLine(firstField(fields, addressAliases)),
		Locality: cleanLine(firstField(fields, localityAliases)),
		Body:     cleanText(firstField(fields, bodyAliases)),
		Subject:  cleanLine(firstField(fields, subjectAliases)),
		Date:     parseLetterDate(firstField(fields, dateAliases)),
	}
}

// parseLetterDate returns the zero time for blank or unparsable input.
func parseLetterDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d
		}
	}
	return time.Time{}
}

func decodeObject(raw []byte) map[string]any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return map[string]any{}
		}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// firstField returns the value of the first alias present with a non-null value.
func firstField(fields map[string]any, aliases []string) string {
	for _, key := range aliases {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		return stringify(v)
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// cleanText normalizes line endings and composes decomposed umlauts so that
// the text survives the cp1252 translation of the core fonts.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return norm.NFC.String(s)
}

func cleanLine(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(cleanText(s)), " "))
}

// ---------------------------------------------------------------------------
// Default Letter Text
// ---------------------------------------------------------------------------

const defaultBody = `herzlichen Glückwunsch zum Auktionszuschlag!

Wir sind Wisehomes.at, ein Full-Service-Bauträger aus Wien mit Schwerpunkt auf Ziegelmassivbau von Einfamilien- und Doppelhäusern in Wien, Niederösterreich und Burgenland. Wir scouten regelmäßig vielversprechende Projekte auf öffentlichen Auktions- und Amtsportalen. Dabei ist uns diese Liegenschaft besonders positiv aufgefallen. Da sie fachlich hervorragend zu uns passt, haben wir uns entschieden, Sie direkt zu kontaktieren – in der Überzeugung, dass hier beste Voraussetzungen für eine erfolgreiche Zusammenarbeit bestehen.

Was wir für Sie unkompliziert aus einer Hand übernehmen:
• Planung & Design: Von der Bestandsaufnahme und einem Bauordnungs- bzw. Bebauungsplan-Check über Variantenstudien und Visualisierungen bis zur Einreichplanung.
Ergebnis: ein stimmiges Konzept, das technisch machbar, wirtschaftlich sinnvoll und behördlich genehmigungsfähig ist.
• Bau & Übergabe: Koordination aller Gewerke, verlässliche Zeit- und Kostensteuerung, Qualitätssicherung auf der Baustelle, saubere Abnahmen und am Ende die schlüsselfertige Übergabe.
Ergebnis: Sie haben nur einen Ansprechpartner, wir kümmern uns um den Rest.
• Finanzierung & Betreuung: Transparente Kostenstruktur, Zahlungsplan je Baufortschritt, auf Wunsch Kontakt zu Finanzierungs- und Förderstellen sowie Begleitung nach der Übergabe (Gewährleistung, Nachjustierungen).
Ergebnis: Planungssicherheit statt Überraschungen.

Unser Vorschlag: Lassen Sie uns ein kurzes, kostenloses Erstgespräch (vor Ort oder online) ansetzen. Danach haben Sie eine klare Basis, um zu entscheiden, wie Sie mit dieser Liegenschaft weitergehen möchten.

Wenn das für Sie interessant klingt, teilen Sie uns einfach kurz Ihre Wunschzeiten mit – wir richten uns gerne nach Ihrem Kalender. Sie können uns jederzeit direkt per Mail oder telefonisch erreichen.

Mit besten Grüßen
Eldi Neziri
Projektberater Wohnbau`

// composeBody assembles the text handed to the classifier: optional subject,
// salutation and the body (or the default text when the body is blank).
func composeBody(cfg LetterConfig, req LetterRequest) string {
	body := req.Body
	if strings.TrimSpace(body) == "" {
		body = defaultBody
	}

	parts := make([]string, 0, 3)
	if req.Subject != "" {
		parts = append(parts, "Betreff: "+req.Subject)
	}
	if cfg.Salutation != "" {
		parts = append(parts, cfg.Salutation)
	}
	parts = append(parts, body)
	return strings.Join(parts, "\n\n")
}
