package notice

import "strings"

// Substitute replaces the markers of spec's fields in tmpl. A marker is
// replaced by the caller's value, else by the field default; with neither it
// stays in place for the model to handle. Markers that belong to no field are
// never touched.
func Substitute(spec *Spec, tmpl string, fields map[string]string) string {
	for _, f := range spec.Fields {
		v := strings.TrimSpace(f.Value(fields))
		if v == "" {
			v = f.Default
		}
		if v == "" {
			continue
		}
		tmpl = strings.ReplaceAll(tmpl, f.Placeholder(), v)
	}
	return tmpl
}
