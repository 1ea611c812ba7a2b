package kyc

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

const (
	promptProcessDocument    = "process_document"
	promptFacialVerification = "facial_verification"
)

// Prompt is one model instruction with the JSON shape the answer must follow.
type Prompt struct {
	Name        string         `yaml:"-"`
	Description string         `yaml:"description"`
	Text        string         `yaml:"prompt"`
	Schema      map[string]any `yaml:"schema"`

	tmpl *template.Template
}

func (p *Prompt) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", p.Name, err)
	}
	return buf.String(), nil
}

type Prompts map[string]*Prompt

// LoadPrompts parses the embedded prompt set.
func LoadPrompts() (Prompts, error) {
	return ParsePrompts(promptsYAML)
}

func ParsePrompts(raw []byte) (Prompts, error) {
	var prompts Prompts
	if err := yaml.Unmarshal(raw, &prompts); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	for name, p := range prompts {
		if p == nil || p.Text == "" {
			return nil, fmt.Errorf("prompt %s: empty text", name)
		}
		if len(p.Schema) == 0 {
			return nil, fmt.Errorf("prompt %s: missing schema", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(p.Text)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		p.Name = name
		p.tmpl = tmpl
	}
	for _, required := range []string{promptProcessDocument, promptFacialVerification} {
		if _, ok := prompts[required]; !ok {
			return nil, fmt.Errorf("prompt %s not defined", required)
		}
	}
	return prompts, nil
}
