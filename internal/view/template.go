package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
)

// TemplateRenderer renders html/template files named "<page>.html".
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses every .html file in dir.
func NewTemplateRenderer(dir string) (*TemplateRenderer, error) {
	tmpl, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parsing templates in %s: %w", dir, err)
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// NewDefaultRenderer renders every page with one built-in layout.
func NewDefaultRenderer() *TemplateRenderer {
	return &TemplateRenderer{templates: template.Must(template.New("layout").Parse(defaultLayout))}
}

func (t *TemplateRenderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	tmpl := t.templates.Lookup(name + ".html")
	if tmpl == nil {
		tmpl = t.templates.Lookup("layout")
	}
	if tmpl == nil {
		return fmt.Errorf("template %q not found", name)
	}
	if page.Title == "" {
		page.Title = titleFor(name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func titleFor(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

const defaultLayout = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} · RidePool</title></head>
<body>
<nav>
  <a href="/">Home</a> <a href="/find-ride">Find a ride</a>
  {{if .Identity.IsAuthenticated}}
    <a href="/dashboard">Dashboard</a> <a href="/create-post">Post a ride</a>
    <a href="/settings">Settings</a>
    {{if .Identity.IsAdministrator}}<a href="/admin">Admin</a>{{end}}
    <a href="/logout">Log out {{.Identity.Username}}</a>
  {{else}}
    <a href="/login">Log in</a> <a href="/signup">Sign up</a>
  {{end}}
</nav>
<h1>{{.Title}}</h1>
{{with .Notice}}<p>{{.}}</p>{{end}}
{{with .Errors}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{with .Post}}
  <p>{{.RideFrom}} to {{.RideTo}} on {{.RideDate}} at {{.RideTime}}, ${{.FareDisplay}}, posted by {{.AuthorUsername}} ({{.Status}})</p>
{{end}}
{{if .IsAuthor}}{{range .JoinRequests}}<p>{{.Username}} asked to join</p>{{end}}{{end}}
{{range .Flagged}}<p>flagged: <a href="/post/{{.ID}}">{{.RideFrom}} to {{.RideTo}}</a> {{.FlagReason}}</p>{{end}}
{{range .Posts}}<p><a href="/ride-details/{{.ID}}">{{.RideFrom}} to {{.RideTo}}</a> {{.RideDate}} {{.RideTime}} ${{.FareDisplay}}</p>{{end}}
{{with .User}}<p>{{.Username}} {{.Email}}</p>{{end}}
</body>
</html>
`
