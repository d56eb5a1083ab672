package progress

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Renderer turns a View into output for a particular surface.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View) ([]byte, error)
}

// ErrUnknownRenderer is returned when a lookup names no known renderer.
var ErrUnknownRenderer = errors.New("progress: unknown renderer")

// RendererSet holds the renderers upload progress can be drawn with and the
// one used when none is named.
type RendererSet struct {
	mu       sync.RWMutex
	byName   map[string]Renderer
	fallback string
}

// NewRendererSet creates an empty set.
func NewRendererSet() *RendererSet {
	return &RendererSet{byName: map[string]Renderer{}}
}

// Add makes renderer selectable by its Name. The first renderer added is the
// fallback until Prefer picks another.
func (s *RendererSet) Add(renderer Renderer) error {
	if renderer == nil || renderer.Name() == "" {
		return errors.New("progress: renderer must be non-nil and named")
	}
	name := renderer.Name()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[name]; taken {
		return fmt.Errorf("progress: renderer %q added twice", name)
	}
	s.byName[name] = renderer
	if s.fallback == "" {
		s.fallback = name
	}
	return nil
}

// Prefer makes name the fallback renderer.
func (s *RendererSet) Prefer(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[name]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownRenderer, name)
	}
	s.fallback = name
	return nil
}

// Lookup returns the named renderer. An empty name selects the fallback.
func (s *RendererSet) Lookup(name string) (Renderer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strings.TrimSpace(name) == "" {
		name = s.fallback
	}
	if renderer, ok := s.byName[name]; ok {
		return renderer, nil
	}
	return nil, fmt.Errorf("%w %q (have: %s)", ErrUnknownRenderer, name, strings.Join(s.namesLocked(), ", "))
}

// Names lists the selectable renderers alphabetically.
func (s *RendererSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namesLocked()
}

func (s *RendererSet) namesLocked() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Renderers is the process-wide set. The renderer subpackages add
// themselves from init.
var Renderers = NewRendererSet()
