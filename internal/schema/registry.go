package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Template is a built-in schema users can start from.
type Template struct {
	Name  string // Template key (e.g., "invoice")
	Text  string // Schema source
	Order int    // Listing order (lower = first)
	Path  string // Source file for user templates; empty for built-ins
}

// registry lists the built-in templates. The first is the session default.
var registry = []Template{
	{Name: "document", Order: 1},
	{Name: "invoice", Order: 2},
	{Name: "receipt", Order: 3},
}

// DefaultText is the placeholder schema a new session starts with.
var DefaultText = mustTemplateText("document")

// Templates returns all built-in templates in listing order.
func Templates() ([]Template, error) {
	templates := make([]Template, len(registry))
	copy(templates, registry)

	for i := range templates {
		text, err := templateText(templates[i].Name)
		if err != nil {
			return nil, err
		}
		templates[i].Text = text
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Order < templates[j].Order
	})

	return templates, nil
}

// GetTemplate returns a single built-in template by name.
func GetTemplate(name string) (*Template, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range registry {
		if t.Name == name {
			text, err := templateText(t.Name)
			if err != nil {
				return nil, err
			}
			return &Template{Name: t.Name, Text: text, Order: t.Order}, nil
		}
	}
	return nil, fmt.Errorf("schema template not found: %s", name)
}

// LoadDir reads user templates from *.yaml and *.yml files in dir, named
// after the file without its extension. A missing dir yields no templates.
// Files are not parsed here; callers decide what to do with invalid ones.
func LoadDir(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema dir: %w", err)
	}

	var templates []Template
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", e.Name(), err)
		}
		templates = append(templates, Template{
			Name:  strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Text:  string(content),
			Order: len(registry) + len(templates) + 1,
			Path:  path,
		})
	}
	return templates, nil
}

func templateText(name string) (string, error) {
	content, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.yaml", name))
	if err != nil {
		return "", fmt.Errorf("failed to read schema template %s: %w", name, err)
	}
	return string(content), nil
}

func mustTemplateText(name string) string {
	text, err := templateText(name)
	if err != nil {
		panic(err)
	}
	return text
}
