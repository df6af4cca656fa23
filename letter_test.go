package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodeLetterRequest(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected LetterRequest
	}{
		{
			name:     "german keys",
			raw:      `{"adresse":"Bahnstraße 17","plzOrt":"2404 Petronell"}`,
			expected: LetterRequest{Address: "Bahnstraße 17", Locality: "2404 Petronell"},
		},
		{
			name:     "english keys",
			raw:      `{"address":"Hauptplatz 1","plz_ort":"8010 Graz","body":"Hallo"}`,
			expected: LetterRequest{Address: "Hauptplatz 1", Locality: "8010 Graz", Body: "Hallo"},
		},
		{
			name:     "slash and capitalised keys",
			raw:      `{"Adresse":"Ring 2","PLZ/Ort":"1010 Wien"}`,
			expected: LetterRequest{Address: "Ring 2", Locality: "1010 Wien"},
		},
		{
			name:     "first alias wins",
			raw:      `{"address":"second","adresse":"first","plzort":"later","plz/ort":"earlier"}`,
			expected: LetterRequest{Address: "first", Locality: "earlier"},
		},
		{
			name:     "null value falls through to the next alias",
			raw:      `{"adresse":null,"address":"Ring 2"}`,
			expected: LetterRequest{Address: "Ring 2"},
		},
		{
			name:     "object encoded as JSON string",
			raw:      `"{\"adresse\":\"Ring 2\",\"plzOrt\":\"1010 Wien\"}"`,
			expected: LetterRequest{Address: "Ring 2", Locality: "1010 Wien"},
		},
		{
			name:     "numbers are stringified",
			raw:      `{"adresse":"Ring 2","plzort":1010}`,
			expected: LetterRequest{Address: "Ring 2", Locality: "1010"},
		},
		{
			name:     "whitespace in single line fields collapses",
			raw:      `{"adresse":"  Ring\n 2 ","betreff":" Ihre  Liegenschaft "}`,
			expected: LetterRequest{Address: "Ring 2", Subject: "Ihre Liegenschaft"},
		},
		{
			name:     "text keeps its line breaks",
			raw:      `{"text":"Zeile 1\r\nZeile 2\n\nAbsatz"}`,
			expected: LetterRequest{Body: "Zeile 1\nZeile 2\n\nAbsatz"},
		},
		{
			name:     "german date",
			raw:      `{"adresse":"Ring 2","datum":"24.12.2026"}`,
			expected: LetterRequest{Address: "Ring 2", Date: time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:     "ISO date",
			raw:      `{"date":"2026-03-05"}`,
			expected: LetterRequest{Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:     "unparsable date is dropped",
			raw:      `{"datum":"morgen"}`,
			expected: LetterRequest{},
		},
		{"invalid JSON", `{adresse: Ring`, LetterRequest{}},
		{"invalid JSON string", `"not json"`, LetterRequest{}},
		{"array", `["Ring 2"]`, LetterRequest{}},
		{"empty body", ``, LetterRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decodeLetterRequest([]byte(tt.raw)))
		})
	}
}

func TestParseLetterDate(t *testing.T) {
	tests := []struct {
		in       string
		expected time.Time
	}{
		{"5.3.2026", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{" 05.03.2026 ", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2026-03-05", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"31.02.2026", time.Time{}},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLetterDate(tt.in))
		})
	}
}

func TestCleanTextComposesUmlauts(t *testing.T) {
	decomposed := "Bahnstra\u00dfe, Gru\u0308\u00dfe"
	assert.Equal(t, "Bahnstraße, Grüße", cleanText(decomposed))
}

func TestComposeBody(t *testing.T) {
	lc := defaultConfig().Letter

	t.Run("default body", func(t *testing.T) {
		got := composeBody(lc, LetterRequest{Body: "  \n "})
		assert.True(t, strings.HasPrefix(got, "Sehr geehrte Damen und Herren,\n\nherzlichen Glückwunsch"))
		assert.True(t, strings.HasSuffix(got, defaultBody))
	})

	t.Run("custom body with subject", func(t *testing.T) {
		got := composeBody(lc, LetterRequest{Body: "Kurzer Text.", Subject: "Liegenschaft"})
		assert.Equal(t, "Betreff: Liegenschaft\n\nSehr geehrte Damen und Herren,\n\nKurzer Text.", got)
	})

	t.Run("no salutation", func(t *testing.T) {
		lc := lc
		lc.Salutation = ""
		assert.Equal(t, "Kurzer Text.", composeBody(lc, LetterRequest{Body: "Kurzer Text."}))
	})
}
