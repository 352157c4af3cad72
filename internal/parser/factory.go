package parser

import (
	"fmt"
	"sort"

	"loanterms/internal/config"
	"loanterms/internal/port"
)

// ProviderFactory creates a StructuredExtractor from the parser config.
type ProviderFactory func(cfg *config.ParserConfig) (port.StructuredExtractor, error)

// registry of provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewExtractor creates a StructuredExtractor using the factory registered for cfg.Provider.
func NewExtractor(cfg *config.ParserConfig) (port.StructuredExtractor, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown parser provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
