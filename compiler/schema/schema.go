// Package schema validates and canonicalizes raw graph-schema text into the
// normalized form transformers consume. Parsing is delegated to
// graph-gophers/graphql-go; this package only expands the directive prelude,
// injects required defaults and derives directive metadata.
package schema

import (
	"fmt"
	"strings"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/ast"
)

// Warning is a non-fatal schema advisory.
type Warning struct {
	Kind     string `json:"kind"`
	Code     string `json:"code,omitempty"`
	Severity string `json:"severity,omitempty"` // error, warn, info
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
}

// ParseError reports unparseable or invalid schema text.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schema parse failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AuthRule is one normalized @auth rule.
type AuthRule struct {
	Allow      string
	Provider   string
	Operations []string
	Groups     []string
	OwnerField string
}

// Field is one field of a model.
type Field struct {
	Name     string
	Type     string // named type without wrappers
	Required bool
	List     bool
}

// KeyIndex is a normalized @key directive.
type KeyIndex struct {
	Name   string
	Fields []string
}

// Connection is a normalized @connection directive on a model field.
type Connection struct {
	FieldName   string
	TargetModel string
	List        bool
	Name        string
	Fields      []string
}

// FunctionBinding is a normalized @function directive on any object field.
type FunctionBinding struct {
	TypeName     string
	FieldName    string
	FunctionName string
}

// Model is one @model object type with its derived directive metadata.
type Model struct {
	Name        string
	Fields      []Field
	AuthRules   []AuthRule
	Keys        []KeyIndex
	Connections []Connection
	Searchable  bool
}

// Normalized is the canonical schema plus derived directive metadata.
// It is immutable once produced and is the only schema input transformers see.
type Normalized struct {
	SDL          string
	Models       []Model
	Functions    []FunctionBinding
	RequiresAuth bool
}

// Normalizer canonicalizes raw schema text.
type Normalizer struct {
	WarningSink func(Warning)
}

func New() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) warn(w Warning) {
	if n.WarningSink != nil {
		n.WarningSink(w)
	}
}

// Normalize expands the directive prelude, injects a placeholder query root
// when the schema has none, parses the result and derives directive metadata.
func (n *Normalizer) Normalize(raw string) (*Normalized, error) {
	sdl := directivePrelude + "\n" + raw
	injected := !hasQueryRoot(raw)
	if injected {
		sdl += "\n" + placeholderQuery
	}

	parsed, err := graphql.ParseSchema(sdl, nil)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	astSchema := parsed.ASTSchema()

	norm := &Normalized{SDL: sdl}
	for _, obj := range astSchema.Objects {
		if injected && obj.Name == placeholderQueryName {
			continue
		}
		n.extractFunctions(norm, obj)
		for _, f := range obj.Fields {
			if findDirective(f.Directives, "auth") != nil {
				norm.RequiresAuth = true
			}
		}

		if dir := findDirective(obj.Directives, "model"); dir == nil {
			continue
		}
		model, err := n.extractModel(obj)
		if err != nil {
			return nil, err
		}
		if len(model.AuthRules) > 0 {
			norm.RequiresAuth = true
		}
		norm.Models = append(norm.Models, model)
	}
	return norm, nil
}

func (n *Normalizer) extractModel(obj *ast.ObjectTypeDefinition) (Model, error) {
	m := Model{Name: obj.Name}

	for _, d := range obj.Directives {
		switch d.Name.Name {
		case "auth":
			rules, err := parseAuthRules(obj.Name, d)
			if err != nil {
				return Model{}, err
			}
			m.AuthRules = rules
		case "key":
			m.Keys = append(m.Keys, KeyIndex{
				Name:   argString(d, "name"),
				Fields: argStrings(d, "fields"),
			})
		case "searchable":
			m.Searchable = true
		}
	}

	for _, f := range obj.Fields {
		typeName, required, list := unwrapType(f.Type)
		if conn := findDirective(f.Directives, "connection"); conn != nil {
			m.Connections = append(m.Connections, Connection{
				FieldName:   f.Name,
				TargetModel: typeName,
				List:        list,
				Name:        argString(conn, "name"),
				Fields:      argStrings(conn, "fields"),
			})
			continue
		}
		m.Fields = append(m.Fields, Field{
			Name:     f.Name,
			Type:     typeName,
			Required: required,
			List:     list,
		})
	}
	return m, nil
}

func (n *Normalizer) extractFunctions(norm *Normalized, obj *ast.ObjectTypeDefinition) {
	for _, f := range obj.Fields {
		for _, d := range f.Directives {
			if d.Name.Name != "function" {
				continue
			}
			name := argString(d, "name")
			if name == "" {
				n.warn(Warning{
					Kind:     "schema",
					Code:     "FUNCTION_NAME_MISSING",
					Severity: "warn",
					Message:  fmt.Sprintf("field %s.%s has a @function directive without a name; binding skipped", obj.Name, f.Name),
					Hint:     "Add name: \"my-function\" to the @function directive.",
				})
				continue
			}
			norm.Functions = append(norm.Functions, FunctionBinding{
				TypeName:     obj.Name,
				FieldName:    f.Name,
				FunctionName: name,
			})
		}
	}
}

func parseAuthRules(typeName string, d *ast.Directive) ([]AuthRule, error) {
	v, ok := argValue(d, "rules")
	if !ok {
		return nil, &ParseError{Err: fmt.Errorf("type %s: @auth requires a rules argument", typeName)}
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, &ParseError{Err: fmt.Errorf("type %s: @auth rules must be a list", typeName)}
	}
	rules := make([]AuthRule, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &ParseError{Err: fmt.Errorf("type %s: @auth rule must be an object", typeName)}
		}
		rule := AuthRule{
			Allow:      asString(obj["allow"]),
			Provider:   asString(obj["provider"]),
			OwnerField: asString(obj["ownerField"]),
		}
		for _, op := range asList(obj["operations"]) {
			rule.Operations = append(rule.Operations, asString(op))
		}
		for _, g := range asList(obj["groups"]) {
			rule.Groups = append(rule.Groups, asString(g))
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func findDirective(list ast.DirectiveList, name string) *ast.Directive {
	for _, d := range list {
		if d.Name.Name == name {
			return d
		}
	}
	return nil
}

func argValue(d *ast.Directive, name string) (interface{}, bool) {
	for _, a := range d.Arguments {
		if a.Name.Name == name {
			return a.Value.Deserialize(nil), true
		}
	}
	return nil, false
}

func argString(d *ast.Directive, name string) string {
	v, ok := argValue(d, name)
	if !ok {
		return ""
	}
	return asString(v)
}

func argStrings(d *ast.Directive, name string) []string {
	v, ok := argValue(d, name)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range asList(v) {
		out = append(out, asString(item))
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asList(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}

// unwrapType strips non-null and list wrappers from a type reference string,
// e.g. "[Todo!]!" -> ("Todo", required=true, list=true).
func unwrapType(t ast.Type) (name string, required, list bool) {
	s := t.String()
	if strings.HasSuffix(s, "!") {
		required = true
		s = strings.TrimSuffix(s, "!")
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		list = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		s = strings.TrimSuffix(s, "!")
	}
	return s, required, list
}

// hasQueryRoot reports whether the raw text declares its own query root.
// The scan is lexical on purpose: the composed document is not parseable
// before the placeholder decision is made.
func hasQueryRoot(raw string) bool {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "type Query") || strings.HasPrefix(trimmed, "extend type Query") {
			return true
		}
	}
	return false
}
