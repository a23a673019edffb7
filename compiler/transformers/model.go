package transformers

import (
	"fmt"

	"github.com/stackweave/stackweave/compiler/graph"
	"github.com/stackweave/stackweave/compiler/params"
	"github.com/stackweave/stackweave/compiler/schema"
)

// ModelTransformer materializes every @model type into a data store, a data
// source and the CRUD resolver set. Each model gets its own stack by
// default; the caller's stack mapping can reassign individual resources.
type ModelTransformer struct{}

func (t *ModelTransformer) Name() string { return "model" }

type crudOp struct {
	typeName    string
	fieldName   string
	reqTemplate string
	resTemplate string
}

func (t *ModelTransformer) Transform(ctx *Context, b *graph.Builder) error {
	for _, model := range ctx.Schema.Models {
		if err := t.transformModel(ctx, b, model); err != nil {
			return err
		}
	}
	return nil
}

func (t *ModelTransformer) transformModel(ctx *Context, b *graph.Builder, model schema.Model) error {
	strategy := ctx.Conflict.ForModel(model.Name)
	versioned := strategy.Handler == params.ConflictOptimistic

	tableLogical := model.Name + "Table"
	table := &graph.Resource{
		Type: "AWS::DynamoDB::Table",
		Properties: map[string]any{
			"TableName":   fmt.Sprintf("%s-%s-%s", model.Name, ctx.APIName, ctx.Env),
			"BillingMode": "PAY_PER_REQUEST",
			"KeySchema": []any{
				map[string]any{"AttributeName": "id", "KeyType": "HASH"},
			},
			"AttributeDefinitions": attributeDefinitions(model),
		},
	}
	if gsis := secondaryIndexes(model); len(gsis) > 0 {
		table.Properties["GlobalSecondaryIndexes"] = gsis
	}
	if strategy.Handler != params.ConflictNone {
		table.Properties["StreamSpecification"] = map[string]any{"StreamViewType": "NEW_AND_OLD_IMAGES"}
	}
	if _, err := b.PlaceResource(tableLogical, model.Name, table); err != nil {
		return err
	}

	roleLogical := model.Name + "IAMRole"
	role := &graph.Resource{
		Type: "AWS::IAM::Role",
		Properties: map[string]any{
			"RoleName": fmt.Sprintf("%s-role-%s-%s", model.Name, ctx.APIName, ctx.Env),
			"AssumeRolePolicyDocument": map[string]any{
				"Version": "2012-10-17",
				"Statement": []any{map[string]any{
					"Effect":    "Allow",
					"Principal": map[string]any{"Service": "appsync.amazonaws.com"},
					"Action":    "sts:AssumeRole",
				}},
			},
		},
	}
	if _, err := b.PlaceResource(roleLogical, model.Name, role); err != nil {
		return err
	}

	dsLogical := model.Name + "DataSource"
	ds := &graph.Resource{
		Type: "AWS::AppSync::DataSource",
		Properties: map[string]any{
			"ApiId": map[string]any{"Fn::GetAtt": []string{"GraphQLAPI", "ApiId"}},
			"Name":  model.Name + "Table",
			"Type":  "AMAZON_DYNAMODB",
			"DynamoDBConfig": map[string]any{
				"TableName": fmt.Sprintf("%s-%s-%s", model.Name, ctx.APIName, ctx.Env),
			},
		},
		DependsOn: []string{roleLogical},
	}
	if _, err := b.PlaceResource(dsLogical, model.Name, ds); err != nil {
		return err
	}

	if strategy.Handler != params.ConflictNone {
		delta := &graph.Resource{
			Type: "AWS::DynamoDB::Table",
			Properties: map[string]any{
				"TableName":   fmt.Sprintf("%s-delta-%s-%s", model.Name, ctx.APIName, ctx.Env),
				"BillingMode": "PAY_PER_REQUEST",
				"KeySchema": []any{
					map[string]any{"AttributeName": "ds_pk", "KeyType": "HASH"},
					map[string]any{"AttributeName": "ds_sk", "KeyType": "RANGE"},
				},
				"AttributeDefinitions": []any{
					map[string]any{"AttributeName": "ds_pk", "AttributeType": "S"},
					map[string]any{"AttributeName": "ds_sk", "AttributeType": "S"},
				},
				"TimeToLiveSpecification": map[string]any{"AttributeName": "_ttl", "Enabled": true},
			},
		}
		if _, err := b.PlaceResource(model.Name+"DeltaSyncTable", model.Name, delta); err != nil {
			return err
		}
	}
	if strategy.Handler == params.ConflictLambda && strategy.LambdaName != "" {
		if !b.HasFunction(strategy.LambdaName) {
			if err := b.AddFunction(graph.FunctionDescriptor{
				Name:           strategy.LambdaName,
				Runtime:        "nodejs18.x",
				Handler:        "index.handler",
				Code:           conflictHandlerStub,
				MemoryMB:       128,
				TimeoutSeconds: 30,
			}); err != nil {
				return err
			}
		}
	}

	ops := []crudOp{
		{"Query", "get" + model.Name, "get-request.vtl", "get-response.vtl"},
		{"Query", "list" + pluralize(model.Name), "list-request.vtl", "list-response.vtl"},
		{"Mutation", "create" + model.Name, "create-request.vtl", "mutation-response.vtl"},
		{"Mutation", "update" + model.Name, "update-request.vtl", "mutation-response.vtl"},
		{"Mutation", "delete" + model.Name, "delete-request.vtl", "mutation-response.vtl"},
	}
	data := struct {
		Model     string
		Versioned bool
	}{Model: model.Name, Versioned: versioned}

	for _, op := range ops {
		reqKey := fmt.Sprintf("%s.%s.req.vtl", op.typeName, op.fieldName)
		resKey := fmt.Sprintf("%s.%s.res.vtl", op.typeName, op.fieldName)

		reqCode, err := renderVTL(op.reqTemplate, data)
		if err != nil {
			return err
		}
		resCode, err := renderVTL(op.resTemplate, data)
		if err != nil {
			return err
		}
		if err := addResolver(ctx, b, reqKey, reqCode); err != nil {
			return err
		}
		if err := addResolver(ctx, b, resKey, resCode); err != nil {
			return err
		}

		resolverLogical := fmt.Sprintf("%s%sResolver", op.typeName, upperFirst(op.fieldName))
		res := &graph.Resource{
			Type: "AWS::AppSync::Resolver",
			Properties: map[string]any{
				"ApiId":                             map[string]any{"Fn::GetAtt": []string{"GraphQLAPI", "ApiId"}},
				"TypeName":                          op.typeName,
				"FieldName":                         op.fieldName,
				"DataSourceName":                    model.Name + "Table",
				"RequestMappingTemplateS3Location":  graph.AssetRef("resolvers/" + reqKey),
				"ResponseMappingTemplateS3Location": graph.AssetRef("resolvers/" + resKey),
			},
			DependsOn: []string{dsLogical},
		}
		if _, err := b.PlaceResource(resolverLogical, model.Name, res); err != nil {
			return err
		}
	}
	return nil
}

func attributeDefinitions(model schema.Model) []any {
	defs := []any{map[string]any{"AttributeName": "id", "AttributeType": "S"}}
	seen := map[string]struct{}{"id": {}}
	for _, key := range model.Keys {
		for _, f := range key.Fields {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			defs = append(defs, map[string]any{"AttributeName": f, "AttributeType": "S"})
		}
	}
	return defs
}

func secondaryIndexes(model schema.Model) []any {
	var out []any
	for _, key := range model.Keys {
		if key.Name == "" || len(key.Fields) == 0 {
			continue
		}
		ks := []any{map[string]any{"AttributeName": key.Fields[0], "KeyType": "HASH"}}
		if len(key.Fields) > 1 {
			ks = append(ks, map[string]any{"AttributeName": key.Fields[1], "KeyType": "RANGE"})
		}
		out = append(out, map[string]any{
			"IndexName":  key.Name,
			"KeySchema":  ks,
			"Projection": map[string]any{"ProjectionType": "ALL"},
		})
	}
	return out
}

const conflictHandlerStub = `exports.handler = async (event) => {
  // Resolve in favor of the mutation that carries the newer _lastChangedAt.
  const { newItem, existingItem } = event;
  if (!existingItem || (newItem._lastChangedAt || 0) >= (existingItem._lastChangedAt || 0)) {
    return { action: 'RESOLVE', item: newItem };
  }
  return { action: 'REJECT' };
};
`
