// Package tui renders upload progress as terminal progress bars.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	wizprogress "github.com/goliatone/go-userwizard/pkg/progress"
)

// Name selects this renderer in progress.Renderers.
const Name = "tui"

// init adds the bars to the shared set and makes them the default.
func init() {
	if err := wizprogress.Renderers.Add(New()); err != nil {
		panic(err)
	}
	if err := wizprogress.Renderers.Prefer(Name); err != nil {
		panic(err)
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	nameStyle     = lipgloss.NewStyle().Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	detailStyle   = lipgloss.NewStyle().Faint(true)
	focusedMarker = "> "
)

// Renderer draws one bar per upload row.
type Renderer struct {
	width int
}

// Option customises the renderer.
type Option func(*Renderer)

// WithWidth sets the bar width in cells.
func WithWidth(width int) Option {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
	}
}

// New creates a terminal renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{width: 40}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Name() string        { return Name }
func (r *Renderer) ContentType() string { return "text/plain; charset=utf-8" }

// Render implements progress.Renderer. Hidden views render as nothing.
func (r *Renderer) Render(ctx context.Context, view wizprogress.View) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !view.Visible {
		return nil, nil
	}

	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(r.width))

	var b strings.Builder
	b.WriteString(titleStyle.Render(view.Title))
	b.WriteString("\n")
	for i, row := range view.Rows {
		marker := "  "
		if i == view.ScrollTarget {
			marker = focusedMarker
		}
		status := activeStyle.Render(row.Status)
		if row.Complete {
			status = doneStyle.Render(row.Status)
		}
		fmt.Fprintf(&b, "%s%s [%s]\n", marker, nameStyle.Render(row.Name), row.Category)
		fmt.Fprintf(&b, "  %s %3d%%\n", bar.ViewAs(float64(row.Percentage)/100), row.Percentage)
		if row.Complete {
			fmt.Fprintf(&b, "  %s\n", status)
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", detailStyle.Render(row.Sent+" of "+row.Total), status)
	}
	return []byte(b.String()), nil
}
