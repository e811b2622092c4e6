package notice

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// LineBreak is the inline marker newlines are rendered as.
const LineBreak = "<br>"

// Subject line markers the model is asked to emit.
const (
	GermanSubject  = "**Betreff:**"
	EnglishSubject = "**Subject:**"
)

var subjectMarkers = []string{GermanSubject, EnglishSubject}

var (
	breakTag  = regexp.MustCompile(`<br\s*/?>`)
	lineBreak = regexp.MustCompile(`\r?\n|<br\s*/?>`)
	codeFence      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")
)

// StructuredNotice is the object requested from the model when structured
// output is enabled.
type StructuredNotice struct {
	SubjectDE string `json:"subjectDe"`
	SubjectEN string `json:"subjectEn"`
	Body      string `json:"body"`
}

var structuredSchema = gojsonschema.NewGoLoader(map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"subjectDe": map[string]interface{}{"type": "string"},
		"subjectEn": map[string]interface{}{"type": "string"},
		"body":      map[string]interface{}{"type": "string", "minLength": 1},
	},
	"required": []string{"body"},
})

// FormatBreaks turns every line break into LineBreak.
func FormatBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", LineBreak)
}

// UnformatBreaks is the inverse of FormatBreaks.
func UnformatBreaks(s string) string {
	return breakTag.ReplaceAllString(s, "\n")
}

// ExtractTitles pulls the German and English subject lines out of s and puts
// their text in front of the remaining body. Text without subject markers is
// returned unchanged.
func ExtractTitles(s string) string {
	titles, body, found := splitTitles(s)
	if !found {
		return s
	}
	return withTitles(titles, body)
}

// Compose post-processes a raw completion: a structured object is rendered,
// anything else goes through ExtractTitles. The result uses LineBreak.
func Compose(raw string) string {
	raw = stripFences(strings.TrimSpace(raw))
	n, ok := parseStructured(raw)
	if !ok {
		return FormatBreaks(ExtractTitles(raw))
	}

	titles, body, _ := splitTitles(n.Body)
	structured := nonEmpty(n.SubjectDE, n.SubjectEN)
	if len(structured) > 0 {
		titles = structured
	}
	return FormatBreaks(withTitles(titles, body))
}

func splitTitles(s string) ([]string, string, bool) {
	de, body, foundDe := takeTitle(s, GermanSubject)
	en, body, foundEn := takeTitle(body, EnglishSubject)
	if !foundDe && !foundEn {
		return nil, s, false
	}
	return nonEmpty(de, en), body, true
}

// takeTitle removes every occurrence of marker from s and returns the first
// non-empty title found after one. A title ends at the line break or at the
// next subject marker on the same line. The line break goes with the title
// only when the marker starts its line.
func takeTitle(s, marker string) (string, string, bool) {
	var title string
	found := false
	for {
		i := strings.Index(s, marker)
		if i < 0 {
			return title, s, found
		}
		found = true
		start := i + len(marker)
		end, next := len(s), len(s)
		if loc := lineBreak.FindStringIndex(s[start:]); loc != nil {
			end, next = start+loc[0], start+loc[1]
		}
		for _, m := range subjectMarkers {
			if j := strings.Index(s[start:end], m); j >= 0 {
				end, next = start+j, start+j
			}
		}
		if strings.TrimSpace(s[lineStart(s, i):i]) != "" {
			next = end
		}
		if title == "" {
			title = strings.TrimSpace(s[start:end])
		}
		s = strings.TrimRight(s[:i], " \t") + s[next:]
	}
}

func lineStart(s string, i int) int {
	start := 0
	for _, loc := range lineBreak.FindAllStringIndex(s[:i], -1) {
		start = loc[1]
	}
	return start
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, m := range subjectMarkers {
			v = strings.ReplaceAll(v, m, "")
		}
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseStructured(raw string) (*StructuredNotice, bool) {
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false
	}
	result, err := gojsonschema.Validate(structuredSchema, gojsonschema.NewGoLoader(doc))
	if err != nil || !result.Valid() {
		return nil, false
	}
	var n StructuredNotice
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return nil, false
	}
	return &n, true
}

func withTitles(titles []string, body string) string {
	body = strings.TrimLeft(body, " \t\r\n")
	for strings.HasPrefix(body, LineBreak) {
		body = strings.TrimLeft(strings.TrimPrefix(body, LineBreak), " \t\r\n")
	}
	if len(titles) == 0 {
		return body
	}
	return strings.Join(titles, "\n") + "\n\n" + body
}

func stripFences(s string) string {
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
