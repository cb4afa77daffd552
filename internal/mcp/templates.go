package mcp

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed templates/*.md
var templatesFS embed.FS

// template returns the embedded markdown description for a tool or the
// server instructions. Missing templates are a programming error.
func template(name string) (string, error) {
	data, err := templatesFS.ReadFile("templates/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("loading template %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
