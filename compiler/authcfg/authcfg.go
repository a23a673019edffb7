// Package authcfg converts high-level authorization mode descriptors into
// the normalized auth configuration consumed by transformers, plus the side
// parameters needed for template parameterization.
package authcfg

import (
	"fmt"
	"strings"
)

// Kind identifies an authorization strategy family.
type Kind string

const (
	KindAPIKey       Kind = "API_KEY"
	KindOIDC         Kind = "OPENID_CONNECT"
	KindUserPools    Kind = "USER_POOLS"
	KindIdentityPool Kind = "IDENTITY_POOL"
	KindIAM          Kind = "IAM"
)

// Mode is one caller-supplied authorization mode descriptor.
type Mode struct {
	Kind    Kind
	Name    string
	Default bool

	// API key
	ExpiryDays int

	// OIDC
	IssuerURL string
	ClientID  string

	// User pools / identity pool / IAM
	UserPoolID     string
	IdentityPoolID string
	AdminRoles     []string
}

// Strategy is one normalized authorization strategy.
type Strategy struct {
	Kind       Kind
	Name       string
	Default    bool
	ExpiryDays int
	IssuerURL  string
	ClientID   string
	UserPoolID string
}

// Config is the normalized auth configuration transformers expect.
type Config struct {
	DefaultStrategy Strategy
	Additional      []Strategy
}

// Strategies returns the default strategy followed by the additional ones.
func (c *Config) Strategies() []Strategy {
	out := make([]Strategy, 0, 1+len(c.Additional))
	out = append(out, c.DefaultStrategy)
	out = append(out, c.Additional...)
	return out
}

// Has reports whether a strategy of the given kind is configured.
func (c *Config) Has(kind Kind) bool {
	for _, s := range c.Strategies() {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// SideOutputs carries values that parameterize templates outside the auth
// configuration object itself.
type SideOutputs struct {
	IdentityPoolID string
	AdminRoles     []string
}

// InvalidConfigError reports an unusable authorization mode list.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return "invalid auth config: " + e.Reason
}

// Result is the adapter output: the normalized config, the side outputs and
// extra template-include parameters derived from the modes.
type Result struct {
	Config        Config
	Side          SideOutputs
	IncludeParams map[string]string
}

// Adapt converts an ordered mode list into a Result. It is a pure function
// of its input. schemaRequiresAuth is derived from the normalized schema and
// forces at least one mode to be present.
func Adapt(modes []Mode, schemaRequiresAuth bool) (*Result, error) {
	if len(modes) == 0 {
		if schemaRequiresAuth {
			return nil, &InvalidConfigError{Reason: "schema declares auth rules but no authorization mode is configured"}
		}
		return nil, &InvalidConfigError{Reason: "at least one authorization mode is required"}
	}

	seen := make(map[string]struct{}, len(modes))
	var defaultIdx = -1
	for i, m := range modes {
		if err := validateMode(m); err != nil {
			return nil, err
		}
		id := string(m.Kind) + "/" + m.Name
		if _, ok := seen[id]; ok {
			return nil, &InvalidConfigError{Reason: fmt.Sprintf("duplicate authorization mode %s", id)}
		}
		seen[id] = struct{}{}
		if m.Default {
			if defaultIdx >= 0 {
				return nil, &InvalidConfigError{
					Reason: fmt.Sprintf("modes %q and %q both declare the default flag", modes[defaultIdx].Name, m.Name),
				}
			}
			defaultIdx = i
		}
	}
	// With no explicit default the first mode is the default, matching the
	// ordered-list contract.
	if defaultIdx < 0 {
		defaultIdx = 0
	}

	res := &Result{IncludeParams: map[string]string{}}
	for i, m := range modes {
		s := Strategy{
			Kind:       m.Kind,
			Name:       m.Name,
			Default:    i == defaultIdx,
			ExpiryDays: m.ExpiryDays,
			IssuerURL:  m.IssuerURL,
			ClientID:   m.ClientID,
			UserPoolID: m.UserPoolID,
		}
		if s.Kind == KindAPIKey && s.ExpiryDays == 0 {
			s.ExpiryDays = 7
		}
		if i == defaultIdx {
			res.Config.DefaultStrategy = s
		} else {
			res.Config.Additional = append(res.Config.Additional, s)
		}

		switch m.Kind {
		case KindUserPools:
			res.IncludeParams["AuthCognitoUserPoolId"] = m.UserPoolID
		case KindIdentityPool, KindIAM:
			if m.IdentityPoolID != "" {
				res.Side.IdentityPoolID = m.IdentityPoolID
				res.IncludeParams["AuthIdentityPoolId"] = m.IdentityPoolID
			}
			if len(m.AdminRoles) > 0 {
				res.Side.AdminRoles = append(res.Side.AdminRoles, m.AdminRoles...)
				res.IncludeParams["AuthAdminRoles"] = strings.Join(m.AdminRoles, ",")
			}
		}
	}
	return res, nil
}

func validateMode(m Mode) error {
	switch m.Kind {
	case KindAPIKey:
		if m.ExpiryDays < 0 {
			return &InvalidConfigError{Reason: fmt.Sprintf("mode %q: api key expiry must not be negative", m.Name)}
		}
	case KindOIDC:
		if m.IssuerURL == "" {
			return &InvalidConfigError{Reason: fmt.Sprintf("mode %q: oidc mode requires an issuer url", m.Name)}
		}
	case KindUserPools:
		if m.UserPoolID == "" {
			return &InvalidConfigError{Reason: fmt.Sprintf("mode %q: user pool mode requires a pool id", m.Name)}
		}
	case KindIdentityPool:
		if m.IdentityPoolID == "" {
			return &InvalidConfigError{Reason: fmt.Sprintf("mode %q: identity pool mode requires a pool id", m.Name)}
		}
	case KindIAM:
		// IAM needs no extra parameters.
	default:
		return &InvalidConfigError{Reason: fmt.Sprintf("unknown authorization kind %q", string(m.Kind))}
	}
	if m.Name == "" {
		return &InvalidConfigError{Reason: fmt.Sprintf("mode of kind %s has no name", m.Kind)}
	}
	return nil
}
