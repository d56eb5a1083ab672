package progress

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-userwizard/pkg/media"
)

// DefaultTitle heads the progress overlay while uploads are running.
const DefaultTitle = "Please wait, we are uploading your files"

// Row is one upload as presented to the user.
type Row struct {
	Identifier string
	Name       string
	Category   media.Category
	Percentage int
	Complete   bool
	Sent       string
	Total      string
	Status     string
}

// View is the derived presentation of a registry snapshot. ScrollTarget is
// the index of the first in-progress row, or -1 when every row is complete.
type View struct {
	Visible      bool
	Title        string
	Rows         []Row
	ScrollTarget int
}

// InProgress returns the rows that have not reached 100%.
func (v View) InProgress() []Row {
	var out []Row
	for _, row := range v.Rows {
		if !row.Complete {
			out = append(out, row)
		}
	}
	return out
}

// Display turns registry snapshots into Views.
type Display struct {
	registry *Registry
	title    string

	mu     sync.Mutex
	scroll int
}

// DisplayOption customises a Display.
type DisplayOption func(*Display)

// WithTitle overrides DefaultTitle.
func WithTitle(title string) DisplayOption {
	return func(d *Display) {
		if title != "" {
			d.title = title
		}
	}
}

// NewDisplay binds a display to registry. A nil registry yields an empty,
// hidden view.
func NewDisplay(registry *Registry, opts ...DisplayOption) *Display {
	d := &Display{registry: registry, title: DefaultTitle, scroll: -1}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// View renders the current registry contents.
func (d *Display) View() View {
	return d.build(d.registry.Snapshot())
}

// ScrollTarget returns the target computed by the most recent view.
func (d *Display) ScrollTarget() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scroll
}

// Watch calls fn with a fresh View on every registry change until the
// returned function is called.
func (d *Display) Watch(fn func(View)) (stop func()) {
	if fn == nil {
		return func() {}
	}
	return d.registry.Subscribe(func(entries []Entry) {
		fn(d.build(entries))
	})
}

func (d *Display) build(entries []Entry) View {
	view := View{Title: d.title, ScrollTarget: -1}
	if len(entries) > 0 {
		view.Visible = true
		view.Rows = make([]Row, 0, len(entries))
	}
	for i, entry := range entries {
		row := newRow(entry)
		if !row.Complete && view.ScrollTarget < 0 {
			view.ScrollTarget = i
		}
		view.Rows = append(view.Rows, row)
	}

	d.mu.Lock()
	d.scroll = view.ScrollTarget
	d.mu.Unlock()
	return view
}

func newRow(e Entry) Row {
	name := e.Media.Name
	if name == "" {
		name = e.Identifier
	}
	source := e.Source.Name
	if source == "" {
		source = name
	}
	total := e.BytesTotal
	if total == 0 {
		total = e.Source.Size
	}
	row := Row{
		Identifier: e.Identifier,
		Name:       name,
		Category:   media.CategoryOf(source),
		Percentage: e.Percentage,
		Complete:   e.Complete(),
		Sent:       FormatSize(e.BytesSent),
		Total:      FormatSize(total),
		Status:     "File uploading",
	}
	if row.Complete {
		row.Status = "File uploaded successfully"
	}
	return row
}

// FormatSize renders a byte count as kb, mb or gb with two decimals.
func FormatSize(bytes int64) string {
	kb := float64(bytes) / 1024
	mb := kb / 1024
	gb := mb / 1024
	switch {
	case gb >= 1:
		return fmt.Sprintf("%.2fgb", gb)
	case mb >= 1:
		return fmt.Sprintf("%.2fmb", mb)
	default:
		return fmt.Sprintf("%.2fkb", kb)
	}
}
