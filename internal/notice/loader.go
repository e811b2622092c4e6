package notice

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// TemplateReadError reports a template file that could not be read.
type TemplateReadError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *TemplateReadError) Error() string {
	return fmt.Sprintf("read %s template %s: %v", e.Kind, e.Path, e.Err)
}

func (e *TemplateReadError) Unwrap() error { return e.Err }

// Loader reads template files below Dir. Files are read on every call so
// edits take effect without a restart.
type Loader struct {
	fs  afero.Fs
	dir string
}

func NewLoader(fs afero.Fs, dir string) *Loader {
	return &Loader{fs: fs, dir: dir}
}

func (l *Loader) Load(spec *Spec) (string, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(spec.TemplatePath))
	if spec.TemplatePath == "" {
		return "", &TemplateReadError{Kind: spec.Kind, Path: path, Err: fmt.Errorf("kind has no template")}
	}
	b, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return "", &TemplateReadError{Kind: spec.Kind, Path: path, Err: err}
	}
	return string(b), nil
}
