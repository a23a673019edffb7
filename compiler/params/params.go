// Package params holds the configuration surface of a synthesis call:
// transform parameters with documented defaults, and the synthesis config
// validated once at the boundary before any expensive work runs.
package params

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
)

// TransformParameters are feature toggles for the generated infrastructure.
// Unspecified options take the defaults from Default.
type TransformParameters struct {
	DisableIntrospection bool `json:"disableIntrospection"`
	EnableXRay           bool `json:"enableXRay"`
	QueryDepthLimit      int  `json:"queryDepthLimit" validate:"min=0,max=75"`
	ResolverCountLimit   int  `json:"resolverCountLimit" validate:"min=0"`
	SandboxModeEnabled   bool `json:"sandboxModeEnabled"`
}

// Default returns the documented default parameter set.
func Default() TransformParameters {
	return TransformParameters{
		DisableIntrospection: false,
		EnableXRay:           false,
		QueryDepthLimit:      0, // unlimited
		ResolverCountLimit:   0, // unlimited
		SandboxModeEnabled:   false,
	}
}

// fileParams mirrors TransformParameters with optional fields so that a
// parameter file only overrides what it mentions.
type fileParams struct {
	DisableIntrospection *bool `json:"disableIntrospection"`
	EnableXRay           *bool `json:"enableXRay"`
	QueryDepthLimit      *int  `json:"queryDepthLimit"`
	ResolverCountLimit   *int  `json:"resolverCountLimit"`
	SandboxModeEnabled   *bool `json:"sandboxModeEnabled"`
}

// LoadFile reads a CUE transform-parameter file and merges it over the
// defaults. A missing path returns the defaults unchanged.
func LoadFile(path string) (TransformParameters, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("read transform parameters: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if v.Err() != nil {
		return p, fmt.Errorf("compile transform parameters: %w", v.Err())
	}
	var fp fileParams
	if err := v.Decode(&fp); err != nil {
		return p, fmt.Errorf("decode transform parameters: %w", err)
	}

	if fp.DisableIntrospection != nil {
		p.DisableIntrospection = *fp.DisableIntrospection
	}
	if fp.EnableXRay != nil {
		p.EnableXRay = *fp.EnableXRay
	}
	if fp.QueryDepthLimit != nil {
		p.QueryDepthLimit = *fp.QueryDepthLimit
	}
	if fp.ResolverCountLimit != nil {
		p.ResolverCountLimit = *fp.ResolverCountLimit
	}
	if fp.SandboxModeEnabled != nil {
		p.SandboxModeEnabled = *fp.SandboxModeEnabled
	}
	return p, nil
}

// ValidationError reports a synthesis config field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Reason)
}

// SynthesisConfig is the explicit per-call configuration. The environment
// name is threaded through every component that needs it; nothing reads it
// from ambient context.
type SynthesisConfig struct {
	APIName           string `validate:"required"`
	Env               string `validate:"required,max=8,alphanum"`
	WorkDir           string `validate:"required"`
	DeploymentBucket  string
	DeploymentRootKey string
	ParamsFile        string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config and the transform parameters before the
// pipeline runs. Violations are fatal; the synthesis call never starts.
func (c SynthesisConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return asValidationError(err)
	}
	return nil
}

// ValidateParameters checks a merged parameter set.
func ValidateParameters(p TransformParameters) error {
	if err := validate.Struct(p); err != nil {
		return asValidationError(err)
	}
	return nil
}

func asValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		return &ValidationError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("failed %q constraint on value %q", fe.Tag(), fmt.Sprint(fe.Value())),
		}
	}
	return err
}
