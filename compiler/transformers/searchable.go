package transformers

import (
	"fmt"
	"strings"

	"github.com/stackweave/stackweave/compiler/graph"
)

// searchableStack is the default stack for search infrastructure.
const searchableStack = "SearchableStack"

// SearchableTransformer provisions a shared search domain plus a search
// resolver for every @searchable model.
type SearchableTransformer struct{}

func (t *SearchableTransformer) Name() string { return "searchable" }

func (t *SearchableTransformer) Transform(ctx *Context, b *graph.Builder) error {
	for _, model := range ctx.Schema.Models {
		if !model.Searchable {
			continue
		}

		if !b.HasResource("SearchDomain") {
			domain := &graph.Resource{
				Type: "AWS::OpenSearchService::Domain",
				Properties: map[string]any{
					"DomainName":    fmt.Sprintf("%s-%s", strings.ToLower(ctx.APIName), ctx.Env),
					"EngineVersion": "OpenSearch_2.11",
					"ClusterConfig": map[string]any{"InstanceType": "t3.small.search", "InstanceCount": 1},
				},
			}
			if _, err := b.PlaceResource("SearchDomain", searchableStack, domain); err != nil {
				return err
			}
			ds := &graph.Resource{
				Type: "AWS::AppSync::DataSource",
				Properties: map[string]any{
					"ApiId": map[string]any{"Fn::GetAtt": []string{"GraphQLAPI", "ApiId"}},
					"Name":  "SearchDomainDataSource",
					"Type":  "AMAZON_OPENSEARCH_SERVICE",
				},
				DependsOn: []string{"SearchDomain"},
			}
			if _, err := b.PlaceResource("SearchDomainDataSource", searchableStack, ds); err != nil {
				return err
			}
		}

		fieldName := "search" + pluralize(model.Name)
		data := struct {
			Model string
			Index string
		}{model.Name, strings.ToLower(model.Name)}

		reqKey := fmt.Sprintf("Query.%s.req.vtl", fieldName)
		resKey := fmt.Sprintf("Query.%s.res.vtl", fieldName)

		reqCode, err := renderVTL("search-request.vtl", data)
		if err != nil {
			return err
		}
		resCode, err := renderVTL("search-response.vtl", data)
		if err != nil {
			return err
		}
		if err := addResolver(ctx, b, reqKey, reqCode); err != nil {
			return err
		}
		if err := addResolver(ctx, b, resKey, resCode); err != nil {
			return err
		}

		res := &graph.Resource{
			Type: "AWS::AppSync::Resolver",
			Properties: map[string]any{
				"ApiId":                             map[string]any{"Fn::GetAtt": []string{"GraphQLAPI", "ApiId"}},
				"TypeName":                          "Query",
				"FieldName":                         fieldName,
				"DataSourceName":                    "SearchDomainDataSource",
				"RequestMappingTemplateS3Location":  graph.AssetRef("resolvers/" + reqKey),
				"ResponseMappingTemplateS3Location": graph.AssetRef("resolvers/" + resKey),
			},
			DependsOn: []string{"SearchDomainDataSource"},
		}
		if _, err := b.PlaceResource(fmt.Sprintf("Query%sResolver", upperFirst(fieldName)), searchableStack, res); err != nil {
			return err
		}
	}
	return nil
}
