// Package providers provides a factory and registry for billing provider adapters.
package providers

import (
	"fmt"
	"net/http"
	"sort"

	"costwatch/internal/core"
	"costwatch/internal/retry"
	"costwatch/internal/usage"
)

// Options carries cross-cutting dependencies injected into every provider.
type Options struct {
	// Retry is the policy applied to individual upstream requests.
	Retry retry.Policy

	// HTTPClient overrides the default transport; nil uses the shared
	// httpclient defaults.
	HTTPClient *http.Client

	// BaseURL overrides the provider's default API endpoint (for tests and
	// proxies).
	BaseURL string

	// PricingOverrides replaces or extends the provider's built-in price
	// table entries.
	PricingOverrides map[string]usage.PriceTuple
}

// Builder creates a provider instance from a credential and options.
type Builder func(apiKey string, opts Options) (core.Provider, error)

// builders holds all registered provider builders, keyed by provider type.
var builders = make(map[string]Builder)

// Register allows provider packages to register themselves.
// This should be called from init() functions in provider packages.
func Register(providerType string, builder Builder) {
	builders[providerType] = builder
}

// Create instantiates a provider of the given type.
func Create(providerType, apiKey string, opts Options) (core.Provider, error) {
	builder, ok := builders[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
	return builder(apiKey, opts)
}

// ListRegistered returns all registered provider types, sorted.
func ListRegistered() []string {
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Registry holds the provider instances constructed at startup. The variant
// set is closed once wiring completes; lookups by unknown id fail with a
// structured not-found error.
type Registry struct {
	providers map[string]core.Provider
}

// NewRegistry returns an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]core.Provider)}
}

// Add registers a constructed provider instance under its ID.
func (r *Registry) Add(p core.Provider) {
	r.providers[p.ID()] = p
}

// Get returns the provider for id.
func (r *Registry) Get(id string) (core.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, core.NewNotFoundError("", fmt.Sprintf("provider %q is not configured", id))
	}
	return p, nil
}

// IDs returns the configured provider ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
