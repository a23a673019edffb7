// Package manifest exposes the persisted resolver map for introspection and
// override-regeneration tooling.
package manifest

import (
	"github.com/stackweave/stackweave/compiler/graph"
	"github.com/stackweave/stackweave/compiler/slots"
)

// ListGeneratedSlots returns the pipeline-step entries of the resolver map:
// exactly those whose key has six dot-separated components. Unit resolvers
// and free-form overrides are excluded. The sequence preserves the
// orchestrator's generation order; it is deliberately not sorted, so that
// manifest output diffs cleanly across runs.
func ListGeneratedSlots(g *graph.ResourceGraph) []slots.FunctionSlot {
	var out []slots.FunctionSlot
	for pair := g.Resolvers.Oldest(); pair != nil; pair = pair.Next() {
		key, err := slots.ParseKey(pair.Key)
		if err != nil {
			continue
		}
		out = append(out, slots.FunctionSlot{
			TypeName:     key.TypeName,
			FieldName:    key.FieldName,
			SlotName:     key.SlotName,
			SlotIndex:    key.SlotIndex,
			TemplateType: key.TemplateType,
			ResolverCode: pair.Value,
		})
	}
	return out
}

// ResolverCode returns the persisted code for one fully qualified key.
func ResolverCode(g *graph.ResourceGraph, key string) (string, bool) {
	return g.Resolvers.Get(key)
}
