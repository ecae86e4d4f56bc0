package usage

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PriceTuple is the USD price per UnitDivisor input/output units for one
// model identifier or identifier prefix. Non-token providers use Input alone
// as a single-unit rate and leave Output zero.
type PriceTuple struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// PricingTable maps model identifiers to price tuples for one provider.
// Resolution order: exact match, prefix heuristic, provider default.
type PricingTable struct {
	// Prices maps a model identifier or identifier prefix to its rates.
	Prices map[string]PriceTuple

	// Default applies to identifiers no table entry matches. Resolution
	// never fails.
	Default PriceTuple

	// UnitDivisor converts raw unit counts to priced units, e.g. 1_000_000
	// for per-Mtok token pricing or 3600 for per-hour audio pricing.
	UnitDivisor float64
}

// trailing version/date suffixes that vary across model releases,
// e.g. "-20240229", "-2024-08-06", "-latest".
var suffixPattern = regexp.MustCompile(`-(latest|preview|\d{8}|\d{4}-\d{2}-\d{2})$`)

// normalizePrefix derives a comparison prefix from a model identifier:
// lowercased, deployment qualifiers after ':' dropped, release suffix stripped.
func normalizePrefix(model string) string {
	m := strings.ToLower(model)
	if i := strings.IndexByte(m, ':'); i >= 0 {
		m = m[:i]
	}
	for {
		stripped := suffixPattern.ReplaceAllString(m, "")
		if stripped == m {
			return m
		}
		m = stripped
	}
}

// Resolve maps a model identifier to its price tuple. Exact matches win;
// otherwise the longest table key that prefix-matches the identifier (in
// either direction, after normalization) is used; otherwise the default.
func (t *PricingTable) Resolve(model string) PriceTuple {
	if tuple, ok := t.Prices[model]; ok {
		return tuple
	}

	prefix := normalizePrefix(model)
	if tuple, ok := t.Prices[prefix]; ok {
		return tuple
	}

	bestLen := 0
	var best PriceTuple
	for key, tuple := range t.Prices {
		if strings.HasPrefix(prefix, key) || strings.HasPrefix(key, prefix) {
			if len(key) > bestLen {
				bestLen = len(key)
				best = tuple
			}
		}
	}
	if bestLen > 0 {
		return best
	}

	return t.Default
}

// Apply overlays override tuples onto the table, adding or replacing entries.
func (t *PricingTable) Apply(overrides map[string]PriceTuple) {
	if len(overrides) == 0 {
		return
	}
	if t.Prices == nil {
		t.Prices = make(map[string]PriceTuple, len(overrides))
	}
	for model, tuple := range overrides {
		t.Prices[model] = tuple
	}
}

// Overrides holds per-provider price overrides loaded from a YAML file:
//
//	openai:
//	  gpt-4o:
//	    input: 2.50
//	    output: 10.00
type Overrides map[string]map[string]PriceTuple

// LoadOverrides reads pricing overrides from a YAML file. A missing path
// returns empty overrides; a malformed file is an error.
func LoadOverrides(path string) (Overrides, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pricing overrides: %w", err)
	}

	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse pricing overrides: %w", err)
	}
	return overrides, nil
}
