package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/stackweave/stackweave/compiler"
	"github.com/stackweave/stackweave/compiler/assets"
	"github.com/stackweave/stackweave/compiler/authcfg"
	"github.com/stackweave/stackweave/compiler/params"
	"github.com/stackweave/stackweave/compiler/schema"
	"github.com/stackweave/stackweave/internal/config"
	"github.com/stackweave/stackweave/internal/pkg/logger"
)

type synthFlags struct {
	schemaPath string
	apiName    string
	env        string
	authKinds  string
	paramsFile string
	jsonLogs   bool
}

func parseSynthFlags(name string, args []string) *synthFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	f := &synthFlags{}
	fs.StringVar(&f.schemaPath, "schema", "schema.graphql", "path to the graph schema")
	fs.StringVar(&f.apiName, "api", "", "API name (required)")
	fs.StringVar(&f.env, "env", "dev", "deployment environment tag, at most 8 characters")
	fs.StringVar(&f.authKinds, "auth", "api-key", "comma-separated auth modes: api-key, iam, oidc")
	fs.StringVar(&f.paramsFile, "params", "", "optional CUE transform-parameter file")
	fs.BoolVar(&f.jsonLogs, "json", false, "log in JSON format")
	_ = fs.Parse(args)
	return f
}

func runSynth(args []string) {
	f := parseSynthFlags("synth", args)

	result, _, err := synthesize(f, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "synthesis failed: %v\n", err)
		os.Exit(1)
	}
	for _, w := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "⚠️  %s: %s\n", w.Code, w.Message)
	}
	fmt.Printf("synthesized %d stacks, %d resolvers, %d functions\n",
		len(result.Assets.Stacks), result.Graph.Resolvers.Len(), result.Graph.Functions.Len())
	for _, rel := range result.Assets.Files {
		fmt.Printf("  %s\n", rel)
	}
}

func runManifest(args []string) {
	f := parseSynthFlags("manifest", args)

	result, _, err := synthesize(f, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "synthesis failed: %v\n", err)
		os.Exit(1)
	}
	data, err := json.MarshalIndent(result.Slots, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal manifest: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func runPublish(args []string) {
	f := parseSynthFlags("publish", args)

	// The root key is minted before synthesis so the materialized templates
	// already point at the locations the upload will create.
	rootKey := assets.NewDeploymentRootKey()
	result, cfg, err := synthesize(f, rootKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synthesis failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.DeploymentBucket == "" {
		fmt.Fprintln(os.Stderr, "publish requires STACKWEAVE_DEPLOYMENT_BUCKET")
		os.Exit(1)
	}
	ctx := context.Background()
	publisher, err := assets.NewPublisher(ctx, cfg.AWSRegion, cfg.DeploymentBucket, cfg.S3Endpoint, cfg.WorkDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "publisher init failed: %v\n", err)
		os.Exit(1)
	}
	if err := publisher.Publish(ctx, result.Assets, rootKey); err != nil {
		fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
		os.Exit(1)
	}
	logger.From(ctx).Info("assets published", "bucket", cfg.DeploymentBucket, "rootKey", rootKey)
	fmt.Printf("published %d assets under s3://%s/%s\n", len(result.Assets.Files), cfg.DeploymentBucket, rootKey)
}

func runHash(args []string) {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	schemaPath := fs.String("schema", "schema.graphql", "path to the graph schema")
	_ = fs.Parse(args)

	raw, err := os.ReadFile(*schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(compiler.ComputeInputHash(string(raw), nil))
}

// synthesize runs the pipeline for one CLI invocation. A non-empty rootKey
// materializes assets against the deployment bucket so that published
// templates reference their uploaded locations.
func synthesize(f *synthFlags, rootKey string) (*compiler.SynthesisResult, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if f.jsonLogs || cfg.LogFormat == "json" {
		logger.Init()
	}

	raw, err := os.ReadFile(f.schemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read schema: %w", err)
	}
	modes, err := parseAuthModes(f.authKinds)
	if err != nil {
		return nil, nil, err
	}

	synthCfg := params.SynthesisConfig{
		APIName:    f.apiName,
		Env:        f.env,
		WorkDir:    cfg.WorkDir,
		ParamsFile: f.paramsFile,
	}
	if rootKey != "" {
		synthCfg.DeploymentBucket = cfg.DeploymentBucket
		synthCfg.DeploymentRootKey = rootKey
	}
	req := compiler.SynthesisRequest{
		Schema:    string(raw),
		AuthModes: modes,
	}
	result, err := compiler.SynthesizeWithOptions(synthCfg, req, compiler.PipelineOptions{
		WarningSink: func(w schema.Warning) {},
	})
	if err != nil {
		return nil, nil, err
	}
	return result, cfg, nil
}

func parseAuthModes(spec string) ([]authcfg.Mode, error) {
	var modes []authcfg.Mode
	for i, kind := range splitComma(spec) {
		switch kind {
		case "api-key":
			modes = append(modes, authcfg.Mode{Kind: authcfg.KindAPIKey, Name: "apiKey", Default: i == 0})
		case "iam":
			modes = append(modes, authcfg.Mode{Kind: authcfg.KindIAM, Name: "iam", Default: i == 0})
		case "oidc":
			issuer := os.Getenv("STACKWEAVE_OIDC_ISSUER")
			modes = append(modes, authcfg.Mode{Kind: authcfg.KindOIDC, Name: "oidc", Default: i == 0, IssuerURL: issuer})
		default:
			return nil, fmt.Errorf("unknown auth mode %q", kind)
		}
	}
	return modes, nil
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
