package transformers

import (
	"fmt"
	"strings"

	"github.com/stackweave/stackweave/compiler/graph"
)

// functionStack is the default stack for @function lambda wiring.
const functionStack = "FunctionDirectiveStack"

// functionSlotName is the pipeline slot the generator assigns to business
// logic invocations; multiple @function directives on one field occupy
// increasing indexes within it.
const functionSlotName = "postAuth"

// FunctionTransformer wires @function directives into lambda artifacts and
// six-part pipeline slot entries. These entries are what the resolver
// manifest exposes for override tooling.
type FunctionTransformer struct{}

func (t *FunctionTransformer) Name() string { return "function" }

func (t *FunctionTransformer) Transform(ctx *Context, b *graph.Builder) error {
	slotIndex := map[string]int{}

	for _, binding := range ctx.Schema.Functions {
		if !b.HasFunction(binding.FunctionName) {
			if err := b.AddFunction(graph.FunctionDescriptor{
				Name:           binding.FunctionName,
				Runtime:        "nodejs18.x",
				Handler:        "index.handler",
				Code:           functionStub(binding.FunctionName),
				MemoryMB:       128,
				TimeoutSeconds: 30,
			}); err != nil {
				return err
			}

			lambdaLogical := lambdaLogicalID(binding.FunctionName)
			res := &graph.Resource{
				Type: "AWS::Lambda::Function",
				Properties: map[string]any{
					"FunctionName": fmt.Sprintf("%s-%s", binding.FunctionName, ctx.Env),
					"Runtime":      "nodejs18.x",
					"Handler":      "index.handler",
					"Code":         map[string]any{"S3Key": graph.AssetRef("functions/" + binding.FunctionName + ".js")},
					"MemorySize":   128,
					"Timeout":      30,
				},
			}
			if _, err := b.PlaceResource(lambdaLogical, functionStack, res); err != nil {
				return err
			}
		}

		fieldKey := binding.TypeName + "." + binding.FieldName
		idx := slotIndex[fieldKey]
		slotIndex[fieldKey] = idx + 1

		data := struct {
			Type     string
			Field    string
			Function string
		}{binding.TypeName, binding.FieldName, binding.FunctionName}

		reqKey := fmt.Sprintf("%s.%s.%s.%d.req.vtl", binding.TypeName, binding.FieldName, functionSlotName, idx)
		resKey := fmt.Sprintf("%s.%s.%s.%d.res.vtl", binding.TypeName, binding.FieldName, functionSlotName, idx)

		reqCode, err := renderVTL("invoke-function-request.vtl", data)
		if err != nil {
			return err
		}
		resCode, err := renderVTL("invoke-function-response.vtl", data)
		if err != nil {
			return err
		}
		if err := addResolver(ctx, b, reqKey, reqCode); err != nil {
			return err
		}
		if err := addResolver(ctx, b, resKey, resCode); err != nil {
			return err
		}

		if idx == 0 {
			resolverLogical := fmt.Sprintf("%s%sPipelineResolver", binding.TypeName, upperFirst(binding.FieldName))
			res := &graph.Resource{
				Type: "AWS::AppSync::Resolver",
				Properties: map[string]any{
					"ApiId":                             map[string]any{"Fn::GetAtt": []string{"GraphQLAPI", "ApiId"}},
					"TypeName":                          binding.TypeName,
					"FieldName":                         binding.FieldName,
					"Kind":                              "PIPELINE",
					"RequestMappingTemplateS3Location":  graph.AssetRef("resolvers/" + reqKey),
					"ResponseMappingTemplateS3Location": graph.AssetRef("resolvers/" + resKey),
				},
			}
			if _, err := b.PlaceResource(resolverLogical, functionStack, res); err != nil {
				return err
			}
		}
	}
	return nil
}

// lambdaLogicalID camel-cases a function name into a valid logical ID;
// logical IDs must be alphanumeric.
func lambdaLogicalID(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '-' || r == '_' || r == '.' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String() + "LambdaFunction"
}

func functionStub(name string) string {
	return fmt.Sprintf(`exports.handler = async (event) => {
  console.log('%s invoked for', event.typeName + '.' + event.fieldName);
  return event.arguments;
};
`, name)
}
