package proxy

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/multizone/pkg/logger"
)

var templateRef = regexp.MustCompile(`{{template "([^"]+)"([^}]*)}}`)

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"trimPrefix": func(prefix, s string) string {
		return strings.TrimPrefix(s, prefix)
	},
}

// TemplateManager manages named templates that header templates can reference
type TemplateManager struct {
	templates map[string]*template.Template
	logger    *logger.Logger
}

// NewTemplateManager creates a new template manager
func NewTemplateManager(logger *logger.Logger) *TemplateManager {
	return &TemplateManager{
		templates: make(map[string]*template.Template),
		logger:    logger,
	}
}

// WrapTemplateReference ensures all template references pass the current context
func (tm *TemplateManager) WrapTemplateReference(templateStr string) string {
	return templateRef.ReplaceAllStringFunc(templateStr, func(match string) string {
		if strings.Contains(match, " .") {
			return match
		}
		return strings.TrimSuffix(match, "}}") + " .}}"
	})
}

// CreateTemplateReference creates a template reference with context
func (tm *TemplateManager) CreateTemplateReference(name string) string {
	return fmt.Sprintf(`{{template "%s" .}}`, name)
}

// Compile parses templateStr with every registered named template available
// to it, and checks it renders against an empty ForwardInfo.
func (tm *TemplateManager) Compile(name, templateStr string) (*template.Template, error) {
	templateStr = tm.WrapTemplateReference(templateStr)

	tmpl := template.New(name).Funcs(templateFuncs).Option("missingkey=error")
	for tname, t := range tm.templates {
		if _, err := tmpl.AddParseTree(tname, t.Tree); err != nil {
			return nil, fmt.Errorf("failed to add template %q to %q: %w", tname, name, err)
		}
	}

	tmpl, err := tmpl.Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, &ForwardInfo{}); err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", name, err)
	}
	return tmpl, nil
}

// AddTemplateString registers a named template
func (tm *TemplateManager) AddTemplateString(name, templateStr string) error {
	if _, exists := tm.templates[name]; exists {
		return fmt.Errorf("template %q already exists", name)
	}

	tmpl, err := tm.Compile(name, templateStr)
	if err != nil {
		return err
	}

	tm.templates[name] = tmpl
	tm.logger.Info("Added template %q: %s", name, templateStr)
	return nil
}

// AddTemplateFile registers a named template read from a file
func (tm *TemplateManager) AddTemplateFile(name, filepath string) error {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read template file %q: %w", filepath, err)
	}

	return tm.AddTemplateString(name, strings.TrimRight(string(content), "\n"))
}
