package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "templates/base.html"

// Every page defines its blocks on top of base.html and renders through "email".
type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type leadClosedEmailData struct {
	baseEmailData
	CustomerName string
	Converted    bool
}

type inquiryReplyEmailData struct {
	baseEmailData
	CustomerName string
	Subject      string
	Message      string
}

var (
	pagesMu sync.Mutex
	pages   = map[string]*template.Template{}
)

// page returns the parsed layout+page pair, parsing it on first use.
func page(name string) (*template.Template, error) {
	pagesMu.Lock()
	defer pagesMu.Unlock()

	if tmpl, ok := pages[name]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New("base.html").ParseFS(templateFS, layoutTemplate, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("parse email template %s: %w", name, err)
	}
	pages[name] = tmpl
	return tmpl, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	tmpl, err := page(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
