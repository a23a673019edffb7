package transformers

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/stackweave/stackweave/templates"
)

// renderVTL renders one embedded mapping-template skeleton.
func renderVTL(name string, data any) (string, error) {
	content, err := templates.FS.ReadFile("vtl/" + name)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	t, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// pluralize follows the generator's naive list-field convention.
func pluralize(s string) string {
	return s + "s"
}
