// Package graph holds the in-memory resource graph produced by one
// transformation run: the root stack descriptor, the named child stack
// templates, and the ordered resolver and function artifact maps.
package graph

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Template is an independently addressable stack fragment with its own
// logical-ID namespace.
type Template struct {
	AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion,omitempty"`
	Description              string               `json:"Description,omitempty"`
	Parameters               map[string]Parameter `json:"Parameters,omitempty"`
	Resources                map[string]*Resource `json:"Resources,omitempty"`
	Outputs                  map[string]Output    `json:"Outputs,omitempty"`
}

func NewTemplate(description string) *Template {
	return &Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              description,
		Parameters:               map[string]Parameter{},
		Resources:                map[string]*Resource{},
		Outputs:                  map[string]Output{},
	}
}

// Parameter is a template input parameter.
type Parameter struct {
	Type        string `json:"Type"`
	Default     any    `json:"Default,omitempty"`
	Description string `json:"Description,omitempty"`
}

// Resource is one declared resource inside a template.
type Resource struct {
	Type       string         `json:"Type"`
	Properties map[string]any `json:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty"`
}

// Output is a template output value.
type Output struct {
	Value       any    `json:"Value"`
	Description string `json:"Description,omitempty"`
}

// FunctionDescriptor describes one generated function artifact.
type FunctionDescriptor struct {
	Name           string `json:"name"`
	Runtime        string `json:"runtime"`
	Handler        string `json:"handler"`
	Code           string `json:"-"`
	MemoryMB       int    `json:"memoryMB,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// ResourceGraph is the output of one transformation run. Resolver and
// function maps preserve insertion order; that order is itself part of the
// determinism contract for manifest output.
type ResourceGraph struct {
	RootStack  *Template
	Stacks     map[string]*Template
	Resolvers  *orderedmap.OrderedMap[string, string]
	Functions  *orderedmap.OrderedMap[string, FunctionDescriptor]
	Placements map[string]string // generated resource name -> stack name
}

func NewResourceGraph() *ResourceGraph {
	return &ResourceGraph{
		RootStack:  NewTemplate("root stack"),
		Stacks:     map[string]*Template{},
		Resolvers:  orderedmap.New[string, string](),
		Functions:  orderedmap.New[string, FunctionDescriptor](),
		Placements: map[string]string{},
	}
}

// ResolverKeys returns resolver keys in insertion order.
func (g *ResourceGraph) ResolverKeys() []string {
	keys := make([]string, 0, g.Resolvers.Len())
	for pair := g.Resolvers.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// FunctionNames returns function names in insertion order.
func (g *ResourceGraph) FunctionNames() []string {
	names := make([]string, 0, g.Functions.Len())
	for pair := g.Functions.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}
