package factextract

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"
)

// Prompt tags rendered for every extraction call.
const (
	PromptSystem  = "system"
	PromptExtract = "extract"
)

//go:embed prompts/*.twig
var defaultPromptFS embed.FS

// → StickPromptProvider is fs-agnostic
type StickPromptProvider struct {
	env       *stick.Env
	templates map[string]string
	vars      map[string]any // Template variables
}

// → Option pattern keeps the constructor flexible
type Option func(*StickPromptProvider) error

// WithFS loads every *.twig file found under dir in the supplied FS.
func WithFS[F fs.FS](fsys F, dir string) Option {
	return func(p *StickPromptProvider) error {
		return fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".twig") {
				return nil
			}
			content, readErr := fs.ReadFile(fsys, path)
			if readErr != nil {
				return fmt.Errorf("read %s: %w", path, readErr)
			}
			tag := strings.TrimSuffix(filepath.Base(path), ".twig")
			p.templates[tag] = string(content)
			return nil
		})
	}
}

// WithTemplates lets you inject an in-memory map.
func WithTemplates(m map[string]string) Option {
	return func(p *StickPromptProvider) error {
		for k, v := range m {
			p.templates[k] = v
		}
		return nil
	}
}

// WithVar adds a variable that will be available in all templates
func WithVar(key string, value any) Option {
	return func(p *StickPromptProvider) error {
		p.vars[key] = value
		return nil
	}
}

// NewStickPromptProvider builds a provider from any combination of options.
func NewStickPromptProvider(opts ...Option) (*StickPromptProvider, error) {
	p := &StickPromptProvider{
		env:       stick.New(nil),
		templates: make(map[string]string),
		vars:      make(map[string]any),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// DefaultPromptProvider returns a provider loaded with the embedded system
// and extract templates. Extra options are applied after them, so
// WithTemplates can override either one.
func DefaultPromptProvider(opts ...Option) (*StickPromptProvider, error) {
	return NewStickPromptProvider(append([]Option{WithFS(defaultPromptFS, "prompts")}, opts...)...)
}

// AddTemplate updates or inserts one template.
func (p *StickPromptProvider) AddTemplate(tag, tpl string) { p.templates[tag] = tpl }

// GetPrompt renders the template for the given tag.
func (p *StickPromptProvider) GetPrompt(tag string, version int) (string, error) {
	return p.GetPromptWithVars(tag, version, nil)
}

// GetPromptWithVars renders the template with additional context variables.
// Per-call vars take precedence over provider-wide ones.
func (p *StickPromptProvider) GetPromptWithVars(tag string, version int, vars map[string]any) (string, error) {
	tpl, ok := p.templates[tag]
	if !ok {
		return "", fmt.Errorf("template %q not found", tag)
	}

	templateCtx := make(map[string]stick.Value, len(p.vars)+len(vars)+2)
	templateCtx["version"] = version
	templateCtx["tag"] = tag
	for k, v := range p.vars {
		templateCtx[k] = v
	}
	for k, v := range vars {
		templateCtx[k] = v
	}

	var out strings.Builder
	if err := p.env.Execute(tpl, &out, templateCtx); err != nil {
		return "", fmt.Errorf("execute %q: %w", tag, err)
	}
	return out.String(), nil
}

// → SimplePromptProvider returns templates verbatim
type SimplePromptProvider map[string]string

func (s SimplePromptProvider) GetPrompt(tag string, version int) (string, error) {
	if tpl, ok := s[tag]; ok {
		return tpl, nil
	}
	return "", fmt.Errorf("prompt %q not found", tag)
}
