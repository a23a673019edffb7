// Package export walks a synthesized stack tree and produces the strongly
// typed handle tree callers use for post-synthesis overrides. Handles point
// into the synthesized in-memory templates; callers that mutate them
// re-marshal the tree to persist the change.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stackweave/stackweave/compiler/assets"
	"github.com/stackweave/stackweave/compiler/graph"
)

// MappingError reports a graph/template mismatch: a resource the graph
// placed is absent from the synthesized tree. This is an internal invariant
// violation and fatal.
type MappingError struct {
	Resource string
	Stack    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("resource %q assigned to stack %q is absent from the synthesized tree", e.Resource, e.Stack)
}

// Handle is one exported resource with its synthesized declaration.
type Handle struct {
	LogicalID string
	StackName string
	Resource  *graph.Resource
}

// StackHandle groups the handles of one stack by resource family.
type StackHandle struct {
	Name      string
	Template  *graph.Template
	Tables    map[string]*Handle
	Functions map[string]*Handle
	Roles     map[string]*Handle
	Resolvers map[string]*Handle
	Others    map[string]*Handle
}

// Tree is the full export result, owned by the synthesis call that created
// it.
type Tree struct {
	API    *Handle
	APIKey *Handle
	Root   *graph.Template
	Stacks map[string]*StackHandle
}

// Export builds the handle tree from the synthesized assets and the resource
// graph they came from. Every resource the graph placed is guaranteed a
// handle; a missing one fails the export.
func Export(a *assets.StackAssets, g *graph.ResourceGraph) (*Tree, error) {
	names := make([]string, 0, len(g.Placements))
	for name := range g.Placements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stackName := g.Placements[name]
		stack, ok := a.Stacks[stackName]
		if !ok {
			return nil, &MappingError{Resource: name, Stack: stackName}
		}
		if _, ok := stack.Resources[name]; !ok {
			return nil, &MappingError{Resource: name, Stack: stackName}
		}
	}

	tree := &Tree{
		Root:   a.RootStack,
		Stacks: make(map[string]*StackHandle, len(a.Stacks)),
	}
	if res, ok := a.RootStack.Resources["GraphQLAPI"]; ok {
		tree.API = &Handle{LogicalID: "GraphQLAPI", Resource: res}
	}
	if res, ok := a.RootStack.Resources["GraphQLAPIKey"]; ok {
		tree.APIKey = &Handle{LogicalID: "GraphQLAPIKey", Resource: res}
	}

	for stackName, tmpl := range a.Stacks {
		sh := &StackHandle{
			Name:      stackName,
			Template:  tmpl,
			Tables:    map[string]*Handle{},
			Functions: map[string]*Handle{},
			Roles:     map[string]*Handle{},
			Resolvers: map[string]*Handle{},
			Others:    map[string]*Handle{},
		}
		for logicalID, res := range tmpl.Resources {
			h := &Handle{LogicalID: logicalID, StackName: stackName, Resource: res}
			switch {
			case res.Type == "AWS::DynamoDB::Table":
				sh.Tables[logicalID] = h
			case res.Type == "AWS::Lambda::Function" || strings.HasPrefix(res.Type, "AWS::AppSync::FunctionConfiguration"):
				sh.Functions[logicalID] = h
			case res.Type == "AWS::IAM::Role":
				sh.Roles[logicalID] = h
			case res.Type == "AWS::AppSync::Resolver":
				sh.Resolvers[logicalID] = h
			default:
				sh.Others[logicalID] = h
			}
		}
		tree.Stacks[stackName] = sh
	}
	return tree, nil
}

// Lookup finds a handle by stack and logical ID.
func (t *Tree) Lookup(stackName, logicalID string) (*Handle, bool) {
	sh, ok := t.Stacks[stackName]
	if !ok {
		return nil, false
	}
	for _, group := range []map[string]*Handle{sh.Tables, sh.Functions, sh.Roles, sh.Resolvers, sh.Others} {
		if h, ok := group[logicalID]; ok {
			return h, true
		}
	}
	return nil, false
}
