package graph

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuilder_PlaceResource(t *testing.T) {
	b := NewBuilder(nil)
	stack, err := b.PlaceResource("TodoTable", "Todo", &Resource{Type: "AWS::DynamoDB::Table"})
	if err != nil {
		t.Fatalf("PlaceResource: %v", err)
	}
	if stack != "Todo" {
		t.Fatalf("stack = %q, want Todo", stack)
	}
	if !b.HasResource("TodoTable") {
		t.Fatal("placement not recorded")
	}

	_, err = b.PlaceResource("TodoTable", "Todo", &Resource{Type: "AWS::DynamoDB::Table"})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Kind != "resource" {
		t.Fatalf("duplicate placement error = %v", err)
	}

	g := b.Graph()
	if g.Placements["TodoTable"] != "Todo" {
		t.Fatalf("placements = %#v", g.Placements)
	}
	if _, ok := g.Stacks["Todo"].Resources["TodoTable"]; !ok {
		t.Fatal("resource absent from stack template")
	}
}

func TestBuilder_StackMappingOverride(t *testing.T) {
	b := NewBuilder(map[string]string{"TodoTable": "CustomStack"})
	stack, err := b.PlaceResource("TodoTable", "Todo", &Resource{Type: "AWS::DynamoDB::Table"})
	if err != nil {
		t.Fatalf("PlaceResource: %v", err)
	}
	if stack != "CustomStack" {
		t.Fatalf("stack = %q, want CustomStack", stack)
	}
	// Unmapped names still land in their default stack.
	stack, err = b.PlaceResource("TodoDataSource", "Todo", &Resource{Type: "AWS::AppSync::DataSource"})
	if err != nil || stack != "Todo" {
		t.Fatalf("default placement: stack=%q err=%v", stack, err)
	}

	g := b.Graph()
	if _, ok := g.Stacks["CustomStack"].Resources["TodoTable"]; !ok {
		t.Fatal("mapped resource absent from override stack")
	}
	if _, ok := g.Stacks["Todo"].Resources["TodoTable"]; ok {
		t.Fatal("mapped resource leaked into default stack")
	}
}

func TestBuilder_ResolverOrderAndConflict(t *testing.T) {
	b := NewBuilder(nil)
	keys := []string{
		"Query.getTodo.req.vtl",
		"Query.getTodo.res.vtl",
		"Mutation.createTodo.req.vtl",
	}
	for _, k := range keys {
		if err := b.AddResolver(k, "code:"+k); err != nil {
			t.Fatalf("AddResolver(%q): %v", k, err)
		}
	}
	var conflict *ConflictError
	if err := b.AddResolver(keys[0], "again"); !errors.As(err, &conflict) {
		t.Fatalf("duplicate resolver error = %v", err)
	}

	// Replacement keeps the original insertion position.
	b.ReplaceResolver("Query.getTodo.res.vtl", "replaced")
	if !b.HasResolver("Query.getTodo.res.vtl") {
		t.Fatal("replaced key missing")
	}

	g := b.Graph()
	if !reflect.DeepEqual(g.ResolverKeys(), keys) {
		t.Fatalf("resolver order = %#v, want %#v", g.ResolverKeys(), keys)
	}
	code, _ := g.Resolvers.Get("Query.getTodo.res.vtl")
	if code != "replaced" {
		t.Fatalf("replaced code = %q", code)
	}
}

func TestBuilder_Functions(t *testing.T) {
	b := NewBuilder(nil)
	if err := b.AddFunction(FunctionDescriptor{Name: "echo-fn", Runtime: "nodejs18.x"}); err != nil {
		t.Fatalf("AddFunction: %v", err)
	}
	if !b.HasFunction("echo-fn") {
		t.Fatal("function not recorded")
	}
	var conflict *ConflictError
	if err := b.AddFunction(FunctionDescriptor{Name: "echo-fn"}); !errors.As(err, &conflict) || conflict.Kind != "function" {
		t.Fatalf("duplicate function error = %v", err)
	}
	g := b.Graph()
	if !reflect.DeepEqual(g.FunctionNames(), []string{"echo-fn"}) {
		t.Fatalf("function names = %#v", g.FunctionNames())
	}
}

func TestAssetRef(t *testing.T) {
	ref := AssetRef("resolvers/Query.getTodo.req.vtl")
	rel, ok := ParseAssetRef(ref)
	if !ok || rel != "resolvers/Query.getTodo.req.vtl" {
		t.Fatalf("round trip = %q ok=%v", rel, ok)
	}
	if _, ok := ParseAssetRef("s3://bucket/key"); ok {
		t.Fatal("plain string parsed as asset ref")
	}
}
