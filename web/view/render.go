// Package view renders the admin pages.
// Templates and static files are embedded in the binary. Each page is parsed
// as its own template set: layout + components + page.
package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

//go:embed templates/* static/*
var assets embed.FS

// ErrViewNotFound is returned when no page template has the requested name.
var ErrViewNotFound = errors.New("view not found")

var loadTemplates = sync.OnceValues(parseTemplates)

// Renderer renders one page with one data context.
type Renderer struct {
	view string
	data any
}

// New creates a renderer for a page ("login", "list", ...) and its data.
func New(viewPath string, data any) *Renderer {
	return &Renderer{view: viewPath, data: data}
}

// Render executes the page and returns the HTML.
func (r *Renderer) Render() (string, error) {
	templates, err := loadTemplates()
	if err != nil {
		return "", fmt.Errorf("parse templates: %w", err)
	}
	tmpl, ok := templates[r.view]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrViewNotFound, r.view)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", r.data); err != nil {
		return "", fmt.Errorf("render %s: %w", r.view, err)
	}
	return buf.String(), nil
}

// Views lists the available page names.
func Views() ([]string, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Static returns the embedded static files (CSS).
func Static() fs.FS {
	sub, _ := fs.Sub(assets, "static")
	return sub
}

var funcs = template.FuncMap{
	"add": func(a, b int) int {
		return a + b
	},
	"truncate": truncate,
	"initial": func(s string) string {
		if s == "" {
			return "?"
		}
		return strings.ToUpper(string([]rune(s)[:1]))
	},
}

func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	layoutContent, err := fs.ReadFile(assets, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	var componentContent []byte
	components, err := fs.Glob(assets, "templates/components/*.html")
	if err != nil {
		return nil, err
	}
	for _, comp := range components {
		content, err := fs.ReadFile(assets, comp)
		if err != nil {
			return nil, err
		}
		componentContent = append(componentContent, content...)
	}

	pages, err := fs.Glob(assets, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := strings.TrimSuffix(strings.TrimPrefix(page, "templates/pages/"), ".html")

		pageContent, err := fs.ReadFile(assets, page)
		if err != nil {
			return nil, err
		}

		tmpl := template.New(name).Funcs(funcs)
		if _, err := tmpl.Parse(string(layoutContent)); err != nil {
			return nil, fmt.Errorf("parse layout for %s: %w", name, err)
		}
		if len(componentContent) > 0 {
			if _, err := tmpl.Parse(string(componentContent)); err != nil {
				return nil, fmt.Errorf("parse components for %s: %w", name, err)
			}
		}
		if _, err := tmpl.Parse(string(pageContent)); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}

		templates[name] = tmpl
	}

	return templates, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
