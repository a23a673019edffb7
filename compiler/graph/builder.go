package graph

import "fmt"

// ConflictError reports two generators claiming the same key. Independent
// plugins targeting one resolver key is a hard error, never last-wins.
type ConflictError struct {
	Kind string // "resolver", "function", "resource"
	Key  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s key %q generated twice within one transformation run", e.Kind, e.Key)
}

// Builder grants one transformer at a time write access to the graph in
// progress. Transformers receive the builder for the duration of their call
// and must not retain it.
type Builder struct {
	g            *ResourceGraph
	stackMapping map[string]string
}

// NewBuilder creates a builder over a fresh graph. stackMapping is the
// caller's resource-to-stack override map; a nil map means defaults apply.
func NewBuilder(stackMapping map[string]string) *Builder {
	return &Builder{
		g:            NewResourceGraph(),
		stackMapping: stackMapping,
	}
}

// EnsureStack returns the named child stack template, creating it on first
// use.
func (b *Builder) EnsureStack(name string) *Template {
	if s, ok := b.g.Stacks[name]; ok {
		return s
	}
	s := NewTemplate(fmt.Sprintf("nested stack %s", name))
	b.g.Stacks[name] = s
	return s
}

// PlaceResource adds a resource under its generated name, honoring the
// caller's stack mapping override for that name. It returns the stack the
// resource landed in.
func (b *Builder) PlaceResource(name, defaultStack string, res *Resource) (string, error) {
	if _, ok := b.g.Placements[name]; ok {
		return "", &ConflictError{Kind: "resource", Key: name}
	}
	stackName := defaultStack
	if mapped, ok := b.stackMapping[name]; ok {
		stackName = mapped
	}
	stack := b.EnsureStack(stackName)
	if _, ok := stack.Resources[name]; ok {
		return "", &ConflictError{Kind: "resource", Key: name}
	}
	stack.Resources[name] = res
	b.g.Placements[name] = stackName
	return stackName, nil
}

// AddResolver records generated resolver code under key. A duplicate key is
// a conflict; user overrides go through ReplaceResolver instead.
func (b *Builder) AddResolver(key, code string) error {
	if _, ok := b.g.Resolvers.Get(key); ok {
		return &ConflictError{Kind: "resolver", Key: key}
	}
	b.g.Resolvers.Set(key, code)
	return nil
}

// ReplaceResolver installs code under key unconditionally, keeping the
// original insertion position when the key already exists.
func (b *Builder) ReplaceResolver(key, code string) {
	b.g.Resolvers.Set(key, code)
}

// HasResolver reports whether key is already present.
func (b *Builder) HasResolver(key string) bool {
	_, ok := b.g.Resolvers.Get(key)
	return ok
}

// HasResource reports whether a generated resource name is already placed.
func (b *Builder) HasResource(name string) bool {
	_, ok := b.g.Placements[name]
	return ok
}

// HasFunction reports whether a function artifact name is already recorded.
func (b *Builder) HasFunction(name string) bool {
	_, ok := b.g.Functions.Get(name)
	return ok
}

// AddFunction records a function artifact. Duplicate names conflict.
func (b *Builder) AddFunction(fd FunctionDescriptor) error {
	if _, ok := b.g.Functions.Get(fd.Name); ok {
		return &ConflictError{Kind: "function", Key: fd.Name}
	}
	b.g.Functions.Set(fd.Name, fd)
	return nil
}

// Root returns the root stack template.
func (b *Builder) Root() *Template {
	return b.g.RootStack
}

// Graph seals the builder and returns the finished graph. The builder must
// not be used afterwards.
func (b *Builder) Graph() *ResourceGraph {
	g := b.g
	b.g = nil
	return g
}
