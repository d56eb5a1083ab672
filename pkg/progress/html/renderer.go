// Package html renders upload progress as an HTML fragment suitable for
// swapping into a page while a submission is running.
package html

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"

	wizprogress "github.com/goliatone/go-userwizard/pkg/progress"
)

// Name selects this renderer in progress.Renderers.
const Name = "html"

func init() {
	if err := wizprogress.Renderers.Add(New()); err != nil {
		panic(err)
	}
}

const fragment = `{% if view.Visible %}<div class="upload-progress"{% if style %} style="{{ style }}"{% endif %}{% if themeName %} data-theme="{{ themeName }}"{% endif %}>
<p class="upload-progress__title">{{ view.Title }}</p>
<ul class="upload-progress__list">
{% for row in view.Rows %}<li class="upload-progress__row upload-progress__row--{% if row.Complete %}complete{% else %}active{% endif %}" data-category="{{ row.Category }}"{% if forloop.Counter0 == view.ScrollTarget %} data-scroll-target="true"{% endif %}>
<span class="upload-progress__name">{{ row.Name }}</span>
<progress max="100" value="{{ row.Percentage }}">{{ row.Percentage }}%</progress>
<span class="upload-progress__status">{% if row.Complete %}{{ row.Status }}{% else %}{{ row.Sent }} of {{ row.Total }} {{ row.Status }}{% endif %}</span>
<span class="upload-progress__percent">{{ row.Percentage }}%</span>
</li>
{% endfor %}</ul>
</div>{% endif %}`

var (
	templateOnce sync.Once
	template     *pongo2.Template
	templateErr  error
)

func compiled() (*pongo2.Template, error) {
	templateOnce.Do(func() {
		template, templateErr = pongo2.FromString(fragment)
	})
	return template, templateErr
}

// Renderer renders the progress overlay markup.
type Renderer struct {
	theme *theme.RendererConfig
}

// Option customises the renderer.
type Option func(*Renderer)

// WithTheme applies theme CSS variables and name to the fragment root.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(r *Renderer) {
		r.theme = cfg
	}
}

// New creates an HTML renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Name() string        { return Name }
func (r *Renderer) ContentType() string { return "text/html; charset=utf-8" }

// Render implements progress.Renderer.
func (r *Renderer) Render(ctx context.Context, view wizprogress.View) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tpl, err := compiled()
	if err != nil {
		return nil, fmt.Errorf("html: compile template: %w", err)
	}

	data := pongo2.Context{
		"view":      view,
		"style":     "",
		"themeName": "",
	}
	if r.theme != nil {
		data["style"] = inlineVars(r.theme.CSSVars)
		data["themeName"] = r.theme.Theme
	}

	out, err := tpl.ExecuteBytes(data)
	if err != nil {
		return nil, fmt.Errorf("html: execute template: %w", err)
	}
	return out, nil
}

func inlineVars(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key])
	}
	return strings.Join(parts, "; ")
}
