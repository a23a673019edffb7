package params

// ConflictHandlerType selects a conflict-resolution policy for synced data
// stores.
type ConflictHandlerType string

const (
	ConflictNone       ConflictHandlerType = "NONE"
	ConflictAutomerge  ConflictHandlerType = "AUTOMERGE"
	ConflictOptimistic ConflictHandlerType = "OPTIMISTIC_CONCURRENCY"
	ConflictLambda     ConflictHandlerType = "LAMBDA"
)

// ConflictStrategy is one resolved policy; LambdaName is only meaningful for
// ConflictLambda.
type ConflictStrategy struct {
	Handler    ConflictHandlerType
	LambdaName string
}

// ConflictResolution is the caller's optional conflict-resolution override.
// A nil *ConflictResolution means ConflictNone everywhere.
type ConflictResolution struct {
	Default  ConflictStrategy
	PerModel map[string]ConflictStrategy
}

// ForModel resolves the effective strategy for a model name.
func (c *ConflictResolution) ForModel(name string) ConflictStrategy {
	if c == nil {
		return ConflictStrategy{Handler: ConflictNone}
	}
	if s, ok := c.PerModel[name]; ok {
		return s
	}
	if c.Default.Handler == "" {
		return ConflictStrategy{Handler: ConflictNone}
	}
	return c.Default
}
