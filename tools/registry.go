// Fetcher registry.
//
// Information Hiding:
// - Fetcher storage and lookup implementation hidden
// - Registration and discovery mechanisms abstracted

package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/richinex/seoscout/config"
)

// Registry manages available fetchers by name.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewRegistry creates a new empty fetcher registry.
func NewRegistry() *Registry {
	return &Registry{
		fetchers: make(map[string]Fetcher),
	}
}

// Register adds a fetcher to the registry.
// Returns error if a fetcher with the same name already exists.
func (r *Registry) Register(f Fetcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := f.Metadata().Name
	if _, exists := r.fetchers[name]; exists {
		return fmt.Errorf("fetcher '%s' already registered", name)
	}
	r.fetchers[name] = f
	return nil
}

// Lookup returns the fetcher registered under name.
func (r *Registry) Lookup(name string) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fetchers[name]
	if !ok {
		return nil, fmt.Errorf("fetcher '%s' not registered", name)
	}
	return f, nil
}

// Names returns all registered fetcher names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for all registered fetchers, sorted by name.
func (r *Registry) List() []ToolMetadata {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(names))
	for _, name := range names {
		metadata = append(metadata, r.fetchers[name].Metadata())
	}
	return metadata
}

// Description returns a formatted description of all fetchers.
func (r *Registry) Description() string {
	var descriptions []string
	for _, meta := range r.List() {
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			line := fmt.Sprintf("  - %s (%s): %s [%s]", p.Name, p.ParamType, p.Description, required)
			if p.Default != "" {
				line += fmt.Sprintf(" default=%s", p.Default)
			}
			params = append(params, line)
		}

		descriptions = append(descriptions, fmt.Sprintf(
			"Fetcher: %s\nDescription: %s\nParameters:\n%s",
			meta.Name, meta.Description, strings.Join(params, "\n")))
	}

	return strings.Join(descriptions, "\n\n")
}

// WithDefaults creates a registry holding the search and audit fetchers
// configured from settings and sharing one HTTP client.
func WithDefaults(settings config.Settings, client *HTTPClient) (*Registry, error) {
	if client == nil {
		client = NewHTTPClient(settings.HTTP.TimeoutSecs)
	}

	registry := NewRegistry()
	fetchers := []Fetcher{
		NewSearchFetcher(settings.Search, client),
		NewAuditFetcher(settings.Audit, client),
	}

	for _, f := range fetchers {
		if err := registry.Register(f); err != nil {
			return nil, fmt.Errorf("failed to register default fetchers: %w", err)
		}
	}

	return registry, nil
}
