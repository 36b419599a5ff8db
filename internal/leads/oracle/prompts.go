package oracle

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Stage identifies one of the three oracle calls.
type Stage string

const (
	StageEnrichment Stage = "enrichment"
	StageScoring    Stage = "scoring"
	StageRouting    Stage = "routing"
)

type promptSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Instruction string `yaml:"instruction"`
	Template    string `yaml:"template"`
}

type prompt struct {
	spec promptSpec
	tmpl *template.Template
}

func (p prompt) render(profile Profile) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, profile); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", p.spec.Name, err)
	}
	return buf.String(), nil
}

func loadPrompts() (map[Stage]prompt, error) {
	var raw map[Stage]promptSpec
	if err := yaml.Unmarshal(promptsYAML, &raw); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}

	out := make(map[Stage]prompt, len(raw))
	for _, stage := range []Stage{StageEnrichment, StageScoring, StageRouting} {
		spec, ok := raw[stage]
		if !ok {
			return nil, fmt.Errorf("prompt for stage %q missing", stage)
		}
		tmpl, err := template.New(string(stage)).Option("missingkey=error").Parse(spec.Template)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", stage, err)
		}
		out[stage] = prompt{spec: spec, tmpl: tmpl}
	}
	return out, nil
}
