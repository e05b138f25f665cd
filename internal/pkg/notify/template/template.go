// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateType represents the type of notification template
type TemplateType string

const (
	TemplateTypeStage    TemplateType = "stage_finished"
	TemplateTypeRun      TemplateType = "run_finished"
	TemplateTypeApproval TemplateType = "approval_requested"
)

// Template represents a notification template
type Template struct {
	Type    TemplateType
	Title   string // Template title with variables
	Content string // Template content with variables
}

// TemplateEngine handles template rendering
type TemplateEngine struct {
	funcMap   template.FuncMap
	templates map[TemplateType]*Template
}

// NewTemplateEngine creates a new template engine with the predefined
// templates; overrides replace them by type
func NewTemplateEngine(overrides ...*Template) *TemplateEngine {
	titleCaser := cases.Title(language.English)
	funcMap := template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": func(s string) string {
			return titleCaser.String(strings.ReplaceAll(s, "_", " "))
		},
		"trim":     strings.TrimSpace,
		"short":    shortSHA,
		"duration": func(d time.Duration) string { return d.Round(time.Second).String() },
	}

	e := &TemplateEngine{
		funcMap:   funcMap,
		templates: make(map[TemplateType]*Template),
	}
	for _, t := range PredefinedTemplates {
		e.templates[t.Type] = t
	}
	for _, t := range overrides {
		if t != nil {
			e.templates[t.Type] = t
		}
	}
	return e
}

// Render renders a template with the given data
func (e *TemplateEngine) Render(tmplContent string, data any) (string, error) {
	tmpl, err := template.New("notification").Funcs(e.funcMap).Option("missingkey=zero").Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// RenderType renders the title and content of the template for typ
func (e *TemplateEngine) RenderType(typ TemplateType, data any) (string, string, error) {
	t, ok := e.templates[typ]
	if !ok {
		return "", "", fmt.Errorf("no template for %s", typ)
	}
	title, err := e.Render(t.Title, data)
	if err != nil {
		return "", "", err
	}
	content, err := e.Render(t.Content, data)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(title), strings.TrimSpace(content), nil
}

// ValidateTemplate validates if a template is valid
func (e *TemplateEngine) ValidateTemplate(tmplContent string) error {
	_, err := template.New("validation").Funcs(e.funcMap).Parse(tmplContent)
	return err
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
