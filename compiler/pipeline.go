// Package compiler orchestrates the schema-to-infrastructure synthesis
// pipeline: normalize the schema, adapt the auth configuration, parse user
// slot overrides, run the transformer chain, materialize assets and export
// the construct handle tree. The pipeline is linear and atomic: any stage
// failure aborts the whole call and no partial result escapes.
package compiler

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/stackweave/stackweave/compiler/assets"
	"github.com/stackweave/stackweave/compiler/authcfg"
	"github.com/stackweave/stackweave/compiler/export"
	"github.com/stackweave/stackweave/compiler/graph"
	"github.com/stackweave/stackweave/compiler/manifest"
	"github.com/stackweave/stackweave/compiler/params"
	"github.com/stackweave/stackweave/compiler/schema"
	"github.com/stackweave/stackweave/compiler/slots"
	"github.com/stackweave/stackweave/compiler/transformers"
)

const (
	Version       = "0.2.4"
	SchemaVersion = "1"
)

// SynthesisRequest carries the per-call inputs of one synthesis run.
type SynthesisRequest struct {
	Schema       string
	AuthModes    []authcfg.Mode
	UserSlots    map[string]string
	StackMapping map[string]string
	Conflict     *params.ConflictResolution

	// Parameters overrides the parameter-file/default chain when non-nil.
	Parameters *params.TransformParameters
}

// SynthesisResult is the full output of a successful run.
type SynthesisResult struct {
	Graph       *graph.ResourceGraph
	Assets      *assets.StackAssets
	Constructs  *export.Tree
	Slots       []slots.FunctionSlot
	Diagnostics []schema.Warning
}

// PipelineOptions tune one synthesis call.
type PipelineOptions struct {
	WarningSink func(schema.Warning)
	Registry    *transformers.Registry
}

// Synthesize runs the full pipeline with the default transformer chain.
func Synthesize(cfg params.SynthesisConfig, req SynthesisRequest) (*SynthesisResult, error) {
	return SynthesizeWithOptions(cfg, req, PipelineOptions{})
}

// SynthesizeWithOptions runs the full pipeline. Configuration is validated
// first so that a bad environment tag or parameter set fails before any
// asset is written.
func SynthesizeWithOptions(cfg params.SynthesisConfig, req SynthesisRequest, opts PipelineOptions) (*SynthesisResult, error) {
	var diags []schema.Warning
	warn := func(w schema.Warning) {
		diags = append(diags, w)
		if opts.WarningSink != nil {
			opts.WarningSink(w)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, WrapContractError(StageConfig, ErrCodeConfigValidate, "validate synthesis config", err)
	}
	p := params.Default()
	if req.Parameters != nil {
		p = *req.Parameters
	} else {
		loaded, err := params.LoadFile(cfg.ParamsFile)
		if err != nil {
			return nil, WrapContractError(StageConfig, ErrCodeParamsLoad, "load transform parameters", err)
		}
		p = loaded
	}
	if err := params.ValidateParameters(p); err != nil {
		return nil, WrapContractError(StageConfig, ErrCodeConfigValidate, "validate transform parameters", err)
	}

	n := schema.New()
	n.WarningSink = warn
	norm, err := n.Normalize(req.Schema)
	if err != nil {
		return nil, WrapContractError(StageSchema, ErrCodeSchemaParse, "normalize schema", err)
	}

	auth, err := authcfg.Adapt(req.AuthModes, norm.RequiresAuth)
	if err != nil {
		return nil, WrapContractError(StageAuth, ErrCodeAuthConfigInvalid, "adapt auth modes", err)
	}

	userSlots, err := slots.ParseUserSlots(req.UserSlots)
	if err != nil {
		return nil, WrapContractError(StageSlots, ErrCodeSlotKeyMalformed, "parse user slots", err)
	}
	for _, key := range userSlots.Order {
		if !slots.IsKnownSlotName(key.SlotName) {
			warn(schema.Warning{
				Kind:     "slots",
				Code:     "UNKNOWN_SLOT_NAME",
				Severity: "warn",
				Message:  fmt.Sprintf("slot %s uses unknown slot name %q", key.String(), key.SlotName),
				Hint:     "Known slots: " + fmt.Sprint(slots.KnownSlotNames),
			})
		}
	}

	registry := opts.Registry
	if registry == nil {
		registry = transformers.DefaultRegistry()
	}
	tctx := &transformers.Context{
		Schema:    norm,
		Auth:      auth,
		UserSlots: userSlots,
		Params:    p,
		Conflict:  req.Conflict,
		APIName:   cfg.APIName,
		Env:       cfg.Env,
	}
	g, err := registry.Apply(tctx, req.StackMapping)
	if err != nil {
		code := ErrCodeTransformerApply
		var conflict *graph.ConflictError
		if errors.As(err, &conflict) {
			code = ErrCodeResolverConflict
		}
		return nil, WrapContractError(StageTransform, code, "apply transformers", err)
	}

	m := &assets.Materializer{
		WorkDir: cfg.WorkDir,
		Bucket:  cfg.DeploymentBucket,
		RootKey: cfg.DeploymentRootKey,
	}
	stackAssets, err := m.Materialize(cfg.APIName, cfg.Env, norm.SDL, g, auth.IncludeParams)
	if err != nil {
		return nil, WrapContractError(StageAssets, ErrCodeAssetWrite, "materialize assets", err)
	}

	tree, err := export.Export(stackAssets, g)
	if err != nil {
		return nil, WrapContractError(StageExport, ErrCodeExportMapping, "export constructs", err)
	}

	return &SynthesisResult{
		Graph:       g,
		Assets:      stackAssets,
		Constructs:  tree,
		Slots:       manifest.ListGeneratedSlots(g),
		Diagnostics: diags,
	}, nil
}

// ComputeInputHash returns a stable digest over the synthesis inputs, used
// by tooling to detect when a re-synthesis is needed.
func ComputeInputHash(schemaText string, userSlots map[string]string) string {
	h := sha256.New()
	h.Write([]byte(schemaText))
	keys := make([]string, 0, len(userSlots))
	for k := range userSlots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(userSlots[k]))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
