package transformers

import (
	"fmt"

	"github.com/stackweave/stackweave/compiler/authcfg"
	"github.com/stackweave/stackweave/compiler/graph"
)

// AuthTransformer declares the API resource and its authorization wiring in
// the root stack. It runs first so that every later transformer can assume
// the API declaration exists.
type AuthTransformer struct{}

func (t *AuthTransformer) Name() string { return "auth" }

func (t *AuthTransformer) Transform(ctx *Context, b *graph.Builder) error {
	root := b.Root()

	api := &graph.Resource{
		Type: "AWS::AppSync::GraphQLApi",
		Properties: map[string]any{
			"Name":               fmt.Sprintf("%s-%s", ctx.APIName, ctx.Env),
			"AuthenticationType": authenticationType(ctx.Auth.Config.DefaultStrategy.Kind),
			"XrayEnabled":        ctx.Params.EnableXRay,
		},
	}
	if ctx.Params.DisableIntrospection {
		api.Properties["IntrospectionConfig"] = "DISABLED"
	}
	if ctx.Params.QueryDepthLimit > 0 {
		api.Properties["QueryDepthLimit"] = ctx.Params.QueryDepthLimit
	}
	if ctx.Params.ResolverCountLimit > 0 {
		api.Properties["ResolverCountLimit"] = ctx.Params.ResolverCountLimit
	}
	if extra := additionalProviders(ctx.Auth.Config.Additional); len(extra) > 0 {
		api.Properties["AdditionalAuthenticationProviders"] = extra
	}
	root.Resources["GraphQLAPI"] = api

	root.Resources["GraphQLSchema"] = &graph.Resource{
		Type: "AWS::AppSync::GraphQLSchema",
		Properties: map[string]any{
			"ApiId":                map[string]any{"Fn::GetAtt": []string{"GraphQLAPI", "ApiId"}},
			"DefinitionS3Location": graph.AssetRef("schema.graphql"),
		},
		DependsOn: []string{"GraphQLAPI"},
	}

	for _, s := range ctx.Auth.Config.Strategies() {
		switch s.Kind {
		case authcfg.KindAPIKey:
			root.Resources["GraphQLAPIKey"] = &graph.Resource{
				Type: "AWS::AppSync::ApiKey",
				Properties: map[string]any{
					"ApiId":                map[string]any{"Fn::GetAtt": []string{"GraphQLAPI", "ApiId"}},
					"ApiKeyExpirationDays": s.ExpiryDays,
				},
				DependsOn: []string{"GraphQLSchema"},
			}
		case authcfg.KindIAM, authcfg.KindIdentityPool:
			root.Resources["AuthenticatedUserRole"] = &graph.Resource{
				Type: "AWS::IAM::Role",
				Properties: map[string]any{
					"RoleName": fmt.Sprintf("%s-%s-authRole", ctx.APIName, ctx.Env),
					"AssumeRolePolicyDocument": map[string]any{
						"Version": "2012-10-17",
						"Statement": []any{map[string]any{
							"Effect":    "Allow",
							"Principal": map[string]any{"Federated": "cognito-identity.amazonaws.com"},
							"Action":    "sts:AssumeRoleWithWebIdentity",
						}},
					},
				},
			}
		}
	}
	return nil
}

func authenticationType(kind authcfg.Kind) string {
	switch kind {
	case authcfg.KindAPIKey:
		return "API_KEY"
	case authcfg.KindOIDC:
		return "OPENID_CONNECT"
	case authcfg.KindUserPools:
		return "AMAZON_COGNITO_USER_POOLS"
	case authcfg.KindIAM, authcfg.KindIdentityPool:
		return "AWS_IAM"
	}
	return "API_KEY"
}

func additionalProviders(strategies []authcfg.Strategy) []any {
	var out []any
	for _, s := range strategies {
		p := map[string]any{"AuthenticationType": authenticationType(s.Kind)}
		switch s.Kind {
		case authcfg.KindOIDC:
			p["OpenIDConnectConfig"] = map[string]any{"Issuer": s.IssuerURL, "ClientId": s.ClientID}
		case authcfg.KindUserPools:
			p["UserPoolConfig"] = map[string]any{"UserPoolId": s.UserPoolID}
		}
		out = append(out, p)
	}
	return out
}
