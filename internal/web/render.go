package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/fleettrack-dev/fleettrack/internal/fleet"
)

//go:embed templates
var templateFS embed.FS

// Page template names
const (
	pageSignIn     = "auth/sign_in"
	pageSignUp     = "auth/sign_up"
	pageDashboard  = "app/dashboard"
	pageDrivers    = "app/drivers"
	pageDriverNew  = "app/driver_new"
	pageTrips      = "app/trips"
	pageMaps       = "app/maps"
	pageSettings   = "app/settings"
	pageError      = "app/error"
	layoutTemplate = "layout"
)

// htmlRenderer pairs every page with its layout. Each page file defines
// "title" and "content"; each layout defines "layout".
type htmlRenderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*htmlRenderer)(nil)

func newHTMLRenderer(now func() time.Time) (*htmlRenderer, error) {
	funcs := template.FuncMap{
		"relativeTime": func(t time.Time) string { return fleet.RelativeTime(t, now()) },
		"formatTime":   func(t time.Time) string { return t.Format("02/01/2006 15:04") },
		"timezones":    func() []fleet.Timezone { return fleet.Timezones },
		"add":          func(a, b int) int { return a + b },
		"initials":     initials,
	}

	r := &htmlRenderer{pages: make(map[string]*template.Template)}

	for _, group := range []string{"app", "auth"} {
		layout := path.Join("templates/layouts", group+".html")
		files, err := fs.Glob(templateFS, path.Join("templates/pages", group, "*.html"))
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			tmpl, err := template.New(path.Base(file)).Funcs(funcs).ParseFS(templateFS, layout, file)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", file, err)
			}
			name := group + "/" + strings.TrimSuffix(path.Base(file), ".html")
			r.pages[name] = tmpl
		}
	}

	return r, nil
}

// Instance implements render.HTMLRender
func (r *htmlRenderer) Instance(name string, data any) render.Render {
	tmpl, ok := r.pages[name]
	if !ok {
		tmpl = r.pages[pageError]
		data = map[string]any{"Title": "Erro", "Message": "Página não encontrada", "Path": ""}
	}
	return render.HTML{Template: tmpl, Name: layoutTemplate, Data: data}
}

func initials(name string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		for _, r := range part {
			out = append(out, r)
			break
		}
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}
