package services

import (
	"errors"

	"github.com/franzego/uninotify/internal/models"
	"github.com/franzego/uninotify/internal/notice"
	"go.uber.org/zap"
)

// TemplateService reads notification templates from disk and fills them in.
type TemplateService struct {
	loader *notice.Loader
	logger *zap.Logger
}

func NewTemplateService(loader *notice.Loader, logger *zap.Logger) *TemplateService {
	return &TemplateService{loader: loader, logger: logger}
}

// Render loads the template for spec and substitutes fields into it.
func (t *TemplateService) Render(spec *notice.Spec, fields map[string]string) (string, error) {
	tmpl, err := t.loader.Load(spec)
	if err != nil {
		t.logger.Error("template unavailable", zap.String("kind", string(spec.Kind)), zap.Error(err))
		return "", err
	}
	return notice.Substitute(spec, tmpl, fields), nil
}

// SelfTemplates returns the raw content of every template file. Unreadable
// files are left out.
func (t *TemplateService) SelfTemplates() []models.SelfTemplate {
	out := make([]models.SelfTemplate, 0, len(notice.TemplateKinds()))
	for _, kind := range notice.TemplateKinds() {
		spec, err := notice.Lookup(kind)
		if err != nil {
			continue
		}
		content, err := t.loader.Load(spec)
		if err != nil {
			var readErr *notice.TemplateReadError
			if errors.As(err, &readErr) {
				t.logger.Warn("skipping template", zap.String("kind", string(kind)), zap.String("path", readErr.Path))
			}
			continue
		}
		out = append(out, models.SelfTemplate{
			ID:      string(kind),
			Title:   spec.Title,
			Content: notice.FormatBreaks(content),
		})
	}
	return out
}
