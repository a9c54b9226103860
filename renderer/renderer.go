// Package renderer turns portfolio reports into markdown. Layout lives in
// embedded templates, formatting decisions in small view models, so the
// reports stay easy to restyle without touching the engine.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templates embed.FS

// RenderHolding renders a holding view to a markdown string.
func RenderHolding(h *Holding) string {
	partials := map[string]string{
		"holding_securities": "templates/holding_securities.md",
		"holding_totals":     "templates/holding_totals.md",
	}
	return renderTemplate("holding", "templates/holding.md", partials, h)
}

// RenderHistory renders an evolution view to a markdown string.
func RenderHistory(h *History) string {
	return renderTemplate("history", "templates/history.md", nil, h)
}

// RenderYearly renders a yearly performance view to a markdown string.
func RenderYearly(y *Yearly) string {
	return renderTemplate("yearly", "templates/yearly.md", nil, y)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
