package notice

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Separator divides the German and the English block of a notification.
const Separator = "---"

var noticePrompt = template.Must(template.New("notice").Parse(`Generate the notification strictly in the format of the template below. Do not add any other content or explanation.
Keep all formatting marks (such as **, line breaks and list markers) unchanged.
Write the German version first, then a line containing only {{.Separator}}, then the English version.
Translate every piece of user input into German in the German version and into English in the English version.
Write all dates as DD.MM.YYYY, with MM spelled out as the month name in the language of the version (German month names in the German version, English month names in the English version), and highlight every date in bold.
Recognise dates given as "until <date>", "bis <date>" or in any other format and normalise them the same way.
If the template still contains unreplaced variables (such as {{"{"}}name{{"}"}}) for which no rule below applies, keep them exactly as they are.
{{- if .Bold}}
Highlight these values in bold: {{.Bold}}.
{{- end}}
{{- range .Defaults}}
{{.}}
{{- end}}
{{- range .Rules}}
{{.}}
{{- end}}
Start the German version with a line "**Betreff:** <subject>" and the English version with a line "**Subject:** <subject>".

Template:
{{.Body}}
`))

var freePrompt = template.Must(template.New("free").Parse(`{{.Prefix}}
{{.Prompt}}
Do not add too many details and do not ask the user for more input; keep it concise.
Write the German version first, then a line containing only {{.Separator}}, then the English version. Keep **bold** marks and line breaks.
`))

var editPrompt = template.Must(template.New("edit").Parse(`Revise the following bilingual (German/English) notification according to the instruction.
Keep its structure: the German block, the {{.Separator}} separator, the English block, greetings, blank lines and **bold** marks.
Apply the change consistently to both language versions. Return only the revised notification without any explanation.

Instruction:
{{.Instruction}}

Notification:
{{.Content}}
`))

// BuildPrompt wraps an already substituted template in the instruction block
// for spec.
func BuildPrompt(spec *Spec, body string) (string, error) {
	var bold []string
	var defaults []string
	for _, f := range spec.Fields {
		if f.Bold {
			bold = append(bold, f.Placeholder())
		}
		switch {
		case f.Default != "":
			defaults = append(defaults, fmt.Sprintf("If %s is still present, use %q.", f.Placeholder(), f.Default))
		case f.Fallback != "":
			defaults = append(defaults, fmt.Sprintf("If %s was not filled in, use %q.", f.Placeholder(), f.Fallback))
		}
	}

	var buf bytes.Buffer
	err := noticePrompt.Execute(&buf, map[string]any{
		"Separator": Separator,
		"Bold":      strings.Join(bold, ", "),
		"Defaults":  defaults,
		"Rules":     spec.Rules,
		"Body":      body,
	})
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", spec.Kind, err)
	}
	return buf.String(), nil
}

func BuildFreePrompt(prompt string, tone Tone) (string, error) {
	var buf bytes.Buffer
	err := freePrompt.Execute(&buf, map[string]any{
		"Prefix":    tone.Prefix(),
		"Prompt":    prompt,
		"Separator": Separator,
	})
	if err != nil {
		return "", fmt.Errorf("render free prompt: %w", err)
	}
	return buf.String(), nil
}

func BuildEditPrompt(content, instruction string) (string, error) {
	var buf bytes.Buffer
	err := editPrompt.Execute(&buf, map[string]any{
		"Separator":   Separator,
		"Instruction": instruction,
		"Content":     content,
	})
	if err != nil {
		return "", fmt.Errorf("render edit prompt: %w", err)
	}
	return buf.String(), nil
}
