// Package transformers provides the plugin system that turns a normalized
// schema into a resource graph. Each transformer inspects the schema and
// contributes stacks, resolvers and functions through the graph builder it
// is handed for the duration of its call.
package transformers

import (
	"fmt"

	"github.com/stackweave/stackweave/compiler/authcfg"
	"github.com/stackweave/stackweave/compiler/graph"
	"github.com/stackweave/stackweave/compiler/params"
	"github.com/stackweave/stackweave/compiler/schema"
	"github.com/stackweave/stackweave/compiler/slots"
)

// Context is the shared read-only input of one transformation run.
type Context struct {
	Schema    *schema.Normalized
	Auth      *authcfg.Result
	UserSlots *slots.UserSlots
	Params    params.TransformParameters
	Conflict  *params.ConflictResolution
	APIName   string
	Env       string
}

// Transformer is the contract the orchestrator requires from plugins.
// Transform must be deterministic: identical inputs produce identical
// contributions in identical order.
type Transformer interface {
	// Name returns the transformer's identifier, used to decorate errors.
	Name() string

	// Transform contributes resources to the graph under construction.
	// The builder is only valid for the duration of the call.
	Transform(ctx *Context, b *graph.Builder) error
}

// ApplyError wraps a plugin failure with the failing plugin's identity.
type ApplyError struct {
	Plugin string
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("transformer %q failed: %v", e.Plugin, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Registry holds transformers in their fixed invocation order. Later
// transformers see resource declarations made by earlier ones, so the order
// is part of the contract, not an accident of registration.
type Registry struct {
	transformers []Transformer
}

func NewRegistry() *Registry {
	return &Registry{transformers: make([]Transformer, 0)}
}

// Register appends a transformer to the invocation order.
func (r *Registry) Register(t Transformer) {
	r.transformers = append(r.transformers, t)
}

// Apply runs every transformer in order over a fresh builder and returns the
// finished graph. On any failure nothing is returned: a partially applied
// transformation never escapes. After all plugins ran, user-defined slots no
// plugin claimed are appended in key order.
func (r *Registry) Apply(ctx *Context, stackMapping map[string]string) (*graph.ResourceGraph, error) {
	b := graph.NewBuilder(stackMapping)
	for _, t := range r.transformers {
		if err := t.Transform(ctx, b); err != nil {
			return nil, &ApplyError{Plugin: t.Name(), Err: err}
		}
	}
	if ctx.UserSlots != nil {
		for _, key := range ctx.UserSlots.Order {
			canonical := key.String()
			if b.HasResolver(canonical) {
				continue
			}
			us, _ := ctx.UserSlots.Lookup(canonical)
			if err := b.AddResolver(canonical, us.Code); err != nil {
				return nil, &ApplyError{Plugin: "user-slots", Err: err}
			}
		}
	}
	return b.Graph(), nil
}

// DefaultRegistry returns the built-in transformer chain. Auth runs first so
// that model and relational transformers see the API declaration; custom
// transformers (function, searchable) run last.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&AuthTransformer{})
	r.Register(&ModelTransformer{})
	r.Register(&ConnectionTransformer{})
	r.Register(&FunctionTransformer{})
	r.Register(&SearchableTransformer{})
	return r
}

// addResolver installs generated code under key unless the caller supplied
// an override for the same key; the user slot always wins.
func addResolver(ctx *Context, b *graph.Builder, key, generated string) error {
	if us, ok := ctx.UserSlots.Lookup(key); ok {
		return b.AddResolver(key, us.Code)
	}
	return b.AddResolver(key, generated)
}
