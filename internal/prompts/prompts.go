// Package prompts maps writing actions to the instruction sent to the chat
// provider. User text is interpolated as-is.
package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

const (
	DefaultTone           = "formal"
	DefaultTargetLanguage = "英文"
)

type bankFile struct {
	System  string            `yaml:"system"`
	Tones   map[string]string `yaml:"tones"`
	Actions map[string]string `yaml:"actions"`
}

type Bank struct {
	system    string
	tones     map[string]string
	templates map[string]*template.Template
}

type templateData struct {
	Text           string
	Tone           string
	TargetLanguage string
}

// Parse builds a bank from a YAML document.
func Parse(data []byte) (*Bank, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	bank := &Bank{
		system:    strings.TrimSpace(file.System),
		tones:     file.Tones,
		templates: make(map[string]*template.Template, len(file.Actions)),
	}
	for action, text := range file.Actions {
		tmpl, err := template.New(action).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", action, err)
		}
		bank.templates[action] = tmpl
	}
	return bank, nil
}

var defaultBank = mustParse(templatesYAML)

func mustParse(data []byte) *Bank {
	bank, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return bank
}

func Default() *Bank {
	return defaultBank
}

func (b *Bank) System() string {
	return b.system
}

func (b *Bank) Actions() []string {
	actions := make([]string, 0, len(b.templates))
	for action := range b.templates {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// Render returns the prompt for action. For an unknown action the text is
// returned verbatim and ok is false.
func (b *Bank) Render(action string, text string, options map[string]any) (string, bool) {
	tmpl, ok := b.templates[strings.TrimSpace(action)]
	if !ok {
		return text, false
	}
	data := templateData{
		Text:           text,
		Tone:           b.toneLabel(optionString(options, "tone", DefaultTone)),
		TargetLanguage: optionString(options, "targetLanguage", DefaultTargetLanguage),
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return text, false
	}
	return out.String(), true
}

func (b *Bank) toneLabel(tone string) string {
	if label, ok := b.tones[strings.ToLower(tone)]; ok {
		return label
	}
	return tone
}

func optionString(options map[string]any, key string, fallback string) string {
	if options == nil {
		return fallback
	}
	value, ok := options[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
