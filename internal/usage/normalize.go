package usage

import (
	"github.com/tidwall/gjson"

	"costwatch/internal/core"
)

// EntrySchema names the upstream JSON fields that map onto a UsageEntry.
// Field names vary per provider; paths use gjson syntax.
type EntrySchema struct {
	Model       string
	InputUnits  string
	OutputUnits string
	Requests    string
}

// ParseEntries normalizes a raw upstream payload into usage entries. It
// tolerates the two shapes observed across billing APIs: a wrapper object
// whose listPath field holds a result list, and a flat object that is itself
// one result. Anything else normalizes to an empty slice; callers log and
// treat it as an empty page rather than aborting the window.
func ParseEntries(raw []byte, listPath string, schema EntrySchema) []core.UsageEntry {
	if !gjson.ValidBytes(raw) {
		return nil
	}
	root := gjson.ParseBytes(raw)

	if listPath != "" {
		if list := root.Get(listPath); list.IsArray() {
			results := list.Array()
			entries := make([]core.UsageEntry, 0, len(results))
			for _, r := range results {
				entries = append(entries, entryFrom(r, schema))
			}
			return entries
		}
	}

	// Flat object that is itself one result.
	if root.IsObject() && (root.Get(schema.InputUnits).Exists() || root.Get(schema.OutputUnits).Exists()) {
		return []core.UsageEntry{entryFrom(root, schema)}
	}

	return nil
}

// entryFrom extracts one entry from a JSON object, falling back to the
// unknown-model bucket when the model field is absent.
func entryFrom(r gjson.Result, schema EntrySchema) core.UsageEntry {
	entry := core.UsageEntry{
		InputUnits:  r.Get(schema.InputUnits).Int(),
		OutputUnits: r.Get(schema.OutputUnits).Int(),
	}
	if schema.Requests != "" {
		entry.Requests = r.Get(schema.Requests).Int()
	}
	if schema.Model != "" {
		entry.Model = r.Get(schema.Model).String()
	}
	return entry
}
