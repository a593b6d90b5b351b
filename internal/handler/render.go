package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"slices"

	"github.com/sakif/wellness-tracker/internal/model"
)

// Page names understood by Renderer.
const (
	PageLogin     = "login"
	PageDashboard = "dashboard"
)

// Renderer turns a page name and its data into markup. Handlers only depend
// on this interface; tests swap in a fake.
type Renderer interface {
	Render(w io.Writer, page string, data any) error
}

// TemplateRenderer renders pages from html/template files. Each page is
// parsed together with base.html, which defines the layout and pulls the
// page in through {{template "content" .}}.
type TemplateRenderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"unlocked": func(u *model.UserRecord, avatarID int) bool {
		return u != nil && slices.Contains(u.UnlockedAvatars, avatarID)
	},
	"completions": func(u *model.UserRecord, taskID int) int {
		if u == nil {
			return 0
		}
		return u.TaskCompletions[model.TaskKey(taskID)]
	},
}

// NewTemplateRenderer parses every page under templateDir once at startup.
func NewTemplateRenderer(templateDir string) (*TemplateRenderer, error) {
	pages := make(map[string]*template.Template)
	for _, page := range []string{PageLogin, PageDashboard} {
		tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, page+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", page, err)
		}
		pages[page] = tmpl
	}
	return &TemplateRenderer{pages: pages}, nil
}

// Render executes the page into a buffer first, so a template error never
// leaves a half-written page behind.
func (t *TemplateRenderer) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
