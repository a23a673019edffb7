package transformers

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stackweave/stackweave/compiler/authcfg"
	"github.com/stackweave/stackweave/compiler/graph"
	"github.com/stackweave/stackweave/compiler/params"
	"github.com/stackweave/stackweave/compiler/schema"
	"github.com/stackweave/stackweave/compiler/slots"
)

func testContext(t *testing.T, raw string) *Context {
	t.Helper()
	norm, err := schema.New().Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	auth, err := authcfg.Adapt([]authcfg.Mode{{Kind: authcfg.KindAPIKey, Name: "apiKey", Default: true}}, norm.RequiresAuth)
	if err != nil {
		t.Fatalf("adapt auth: %v", err)
	}
	us, err := slots.ParseUserSlots(nil)
	if err != nil {
		t.Fatalf("parse user slots: %v", err)
	}
	return &Context{
		Schema:    norm,
		Auth:      auth,
		UserSlots: us,
		Params:    params.Default(),
		APIName:   "todoapi",
		Env:       "dev",
	}
}

const todoSchema = `
type Todo @model {
  id: ID!
  name: String!
}
`

func TestDefaultRegistry_SingleModelScenario(t *testing.T) {
	ctx := testContext(t, todoSchema)
	g, err := DefaultRegistry().Apply(ctx, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	wantKeys := []string{
		"Query.getTodo.req.vtl",
		"Query.getTodo.res.vtl",
		"Query.listTodos.req.vtl",
		"Query.listTodos.res.vtl",
		"Mutation.createTodo.req.vtl",
		"Mutation.createTodo.res.vtl",
		"Mutation.updateTodo.req.vtl",
		"Mutation.updateTodo.res.vtl",
		"Mutation.deleteTodo.req.vtl",
		"Mutation.deleteTodo.res.vtl",
	}
	if !reflect.DeepEqual(g.ResolverKeys(), wantKeys) {
		t.Fatalf("resolver keys = %#v, want %#v", g.ResolverKeys(), wantKeys)
	}
	// Unit resolvers never show up as pipeline slot entries.
	for _, k := range g.ResolverKeys() {
		if slots.IsGeneratedSlotKey(k) {
			t.Fatalf("unit resolver key %q parses as a slot key", k)
		}
	}

	for _, id := range []string{"GraphQLAPI", "GraphQLSchema", "GraphQLAPIKey"} {
		if _, ok := g.RootStack.Resources[id]; !ok {
			t.Fatalf("root stack missing %s", id)
		}
	}
	todoStack, ok := g.Stacks["Todo"]
	if !ok {
		t.Fatal("model stack missing")
	}
	for _, id := range []string{"TodoTable", "TodoIAMRole", "TodoDataSource", "QueryGetTodoResolver", "MutationDeleteTodoResolver"} {
		if _, ok := todoStack.Resources[id]; !ok {
			t.Fatalf("Todo stack missing %s", id)
		}
	}
	if g.Functions.Len() != 0 {
		t.Fatalf("functions = %#v, want none", g.FunctionNames())
	}
}

func TestDefaultRegistry_Deterministic(t *testing.T) {
	raw := todoSchema + `
type Query {
  echo(msg: String): String @function(name: "echo-fn")
}
`
	run := func() []string {
		g, err := DefaultRegistry().Apply(testContext(t, raw), nil)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		return append(g.ResolverKeys(), g.FunctionNames()...)
	}
	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d order = %#v, want %#v", i, got, first)
		}
	}
}

func TestDefaultRegistry_StackMappingOverride(t *testing.T) {
	ctx := testContext(t, todoSchema)
	g, err := DefaultRegistry().Apply(ctx, map[string]string{"TodoTable": "CustomStack"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if g.Placements["TodoTable"] != "CustomStack" {
		t.Fatalf("TodoTable placed in %q", g.Placements["TodoTable"])
	}
	if _, ok := g.Stacks["CustomStack"].Resources["TodoTable"]; !ok {
		t.Fatal("TodoTable absent from CustomStack")
	}
	if g.Placements["TodoDataSource"] != "Todo" {
		t.Fatalf("unmapped resource moved: %q", g.Placements["TodoDataSource"])
	}
}

func TestFunctionTransformer_SlotKeys(t *testing.T) {
	ctx := testContext(t, todoSchema)
	// Two chained functions on one field occupy increasing slot indexes.
	ctx.Schema.Functions = []schema.FunctionBinding{
		{TypeName: "Query", FieldName: "echo", FunctionName: "echo-fn"},
		{TypeName: "Query", FieldName: "echo", FunctionName: "audit-fn"},
	}
	g, err := DefaultRegistry().Apply(ctx, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	for _, key := range []string{
		"Query.echo.postAuth.0.req.vtl",
		"Query.echo.postAuth.0.res.vtl",
		"Query.echo.postAuth.1.req.vtl",
		"Query.echo.postAuth.1.res.vtl",
	} {
		if _, ok := g.Resolvers.Get(key); !ok {
			t.Fatalf("missing slot entry %s", key)
		}
	}
	if !reflect.DeepEqual(g.FunctionNames(), []string{"echo-fn", "audit-fn"}) {
		t.Fatalf("functions = %#v", g.FunctionNames())
	}
	fnStack, ok := g.Stacks["FunctionDirectiveStack"]
	if !ok {
		t.Fatal("function stack missing")
	}
	if _, ok := fnStack.Resources["QueryEchoPipelineResolver"]; !ok {
		t.Fatal("pipeline resolver missing")
	}
	// One pipeline resolver per field, regardless of slot count.
	if _, ok := fnStack.Resources["EchoFnLambdaFunction"]; !ok {
		t.Fatal("lambda resource missing")
	}
}

func TestApply_UserSlotOverridesGenerated(t *testing.T) {
	raw := todoSchema + `
type Query {
  echo(msg: String): String @function(name: "echo-fn")
}
`
	ctx := testContext(t, raw)
	us, err := slots.ParseUserSlots(map[string]string{
		"Query.echo.postAuth.0.req.vtl":        "## user override",
		"Mutation.createTodo.finish.0.res.vtl": "## custom finish",
	})
	if err != nil {
		t.Fatalf("parse user slots: %v", err)
	}
	ctx.UserSlots = us

	g, err := DefaultRegistry().Apply(ctx, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	code, _ := g.Resolvers.Get("Query.echo.postAuth.0.req.vtl")
	if code != "## user override" {
		t.Fatalf("override lost: %q", code)
	}
	// The unclaimed slot is appended after all generated entries.
	keys := g.ResolverKeys()
	if keys[len(keys)-1] != "Mutation.createTodo.finish.0.res.vtl" {
		t.Fatalf("last key = %q", keys[len(keys)-1])
	}
	code, _ = g.Resolvers.Get("Mutation.createTodo.finish.0.res.vtl")
	if code != "## custom finish" {
		t.Fatalf("unclaimed slot code = %q", code)
	}
}

type collidingTransformer struct {
	name string
}

func (t *collidingTransformer) Name() string { return t.name }

func (t *collidingTransformer) Transform(_ *Context, b *graph.Builder) error {
	return b.AddResolver("Query.shared.auth.0.req.vtl", "from "+t.name)
}

func TestApply_PluginKeyConflictIsFatal(t *testing.T) {
	r := NewRegistry()
	r.Register(&collidingTransformer{name: "first"})
	r.Register(&collidingTransformer{name: "second"})

	_, err := r.Apply(testContext(t, todoSchema), nil)
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) || applyErr.Plugin != "second" {
		t.Fatalf("apply error = %v", err)
	}
	var conflict *graph.ConflictError
	if !errors.As(err, &conflict) || conflict.Key != "Query.shared.auth.0.req.vtl" {
		t.Fatalf("conflict not surfaced: %v", err)
	}
}

func TestConnectionTransformer_TargetMustBeModel(t *testing.T) {
	raw := `
type Blog @model {
  id: ID!
  posts: [Post] @connection
}

type Post {
  id: ID!
}
`
	_, err := DefaultRegistry().Apply(testContext(t, raw), nil)
	var applyErr *ApplyError
	if !errors.As(err, &applyErr) || applyErr.Plugin != "connection" {
		t.Fatalf("apply error = %v", err)
	}
	if !strings.Contains(err.Error(), "not a @model type") {
		t.Fatalf("error = %v", err)
	}
}

func TestSearchableTransformer_SharedDomain(t *testing.T) {
	raw := `
type Blog @model @searchable {
  id: ID!
}

type Post @model @searchable {
  id: ID!
}
`
	g, err := DefaultRegistry().Apply(testContext(t, raw), nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	search, ok := g.Stacks["SearchableStack"]
	if !ok {
		t.Fatal("searchable stack missing")
	}
	domains := 0
	for _, res := range search.Resources {
		if res.Type == "AWS::OpenSearchService::Domain" {
			domains++
		}
	}
	if domains != 1 {
		t.Fatalf("domains = %d, want one shared domain", domains)
	}
	for _, key := range []string{"Query.searchBlogs.req.vtl", "Query.searchPosts.req.vtl"} {
		if _, ok := g.Resolvers.Get(key); !ok {
			t.Fatalf("missing search resolver %s", key)
		}
	}
}

func TestModelTransformer_ConflictResolution(t *testing.T) {
	ctx := testContext(t, todoSchema)
	ctx.Conflict = &params.ConflictResolution{
		Default: params.ConflictStrategy{Handler: params.ConflictLambda, LambdaName: "todo-merger"},
	}
	g, err := DefaultRegistry().Apply(ctx, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	todoStack := g.Stacks["Todo"]
	if _, ok := todoStack.Resources["TodoDeltaSyncTable"]; !ok {
		t.Fatal("delta sync table missing")
	}
	table := todoStack.Resources["TodoTable"]
	if _, ok := table.Properties["StreamSpecification"]; !ok {
		t.Fatal("stream specification missing on synced table")
	}
	if _, ok := g.Functions.Get("todo-merger"); !ok {
		t.Fatal("conflict handler function missing")
	}
}
