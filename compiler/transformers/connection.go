package transformers

import (
	"fmt"

	"github.com/stackweave/stackweave/compiler/graph"
)

// connectionStack is the default stack for relationship resolvers.
const connectionStack = "ConnectionStack"

// ConnectionTransformer resolves @connection fields between models. It runs
// after the model transformer so every target data source already exists.
type ConnectionTransformer struct{}

func (t *ConnectionTransformer) Name() string { return "connection" }

func (t *ConnectionTransformer) Transform(ctx *Context, b *graph.Builder) error {
	models := map[string]struct{}{}
	for _, m := range ctx.Schema.Models {
		models[m.Name] = struct{}{}
	}

	for _, model := range ctx.Schema.Models {
		for _, conn := range model.Connections {
			if _, ok := models[conn.TargetModel]; !ok {
				return fmt.Errorf("connection %s.%s targets %q, which is not a @model type",
					model.Name, conn.FieldName, conn.TargetModel)
			}

			sourceField := lowerFirst(model.Name) + "ID"
			if len(conn.Fields) > 0 {
				sourceField = conn.Fields[0]
			}
			data := struct {
				Model       string
				Field       string
				Target      string
				SourceField string
				List        bool
			}{model.Name, conn.FieldName, conn.TargetModel, sourceField, conn.List}

			reqKey := fmt.Sprintf("%s.%s.req.vtl", model.Name, conn.FieldName)
			resKey := fmt.Sprintf("%s.%s.res.vtl", model.Name, conn.FieldName)

			reqCode, err := renderVTL("connection-request.vtl", data)
			if err != nil {
				return err
			}
			resCode, err := renderVTL("connection-response.vtl", data)
			if err != nil {
				return err
			}
			if err := addResolver(ctx, b, reqKey, reqCode); err != nil {
				return err
			}
			if err := addResolver(ctx, b, resKey, resCode); err != nil {
				return err
			}

			resolverLogical := fmt.Sprintf("%s%sResolver", model.Name, upperFirst(conn.FieldName))
			res := &graph.Resource{
				Type: "AWS::AppSync::Resolver",
				Properties: map[string]any{
					"ApiId":                             map[string]any{"Fn::GetAtt": []string{"GraphQLAPI", "ApiId"}},
					"TypeName":                          model.Name,
					"FieldName":                         conn.FieldName,
					"DataSourceName":                    conn.TargetModel + "Table",
					"RequestMappingTemplateS3Location":  graph.AssetRef("resolvers/" + reqKey),
					"ResponseMappingTemplateS3Location": graph.AssetRef("resolvers/" + resKey),
				},
			}
			if _, err := b.PlaceResource(resolverLogical, connectionStack, res); err != nil {
				return err
			}
		}
	}
	return nil
}
