package compiler

const (
	// Config stage
	ErrCodeConfigValidate = "CONFIG_VALIDATION_ERROR"
	ErrCodeParamsLoad     = "TRANSFORM_PARAMS_LOAD_ERROR"

	// Schema stage
	ErrCodeSchemaParse     = "SCHEMA_PARSE_ERROR"
	ErrCodeSchemaNormalize = "SCHEMA_NORMALIZE_ERROR"

	// Auth stage
	ErrCodeAuthConfigInvalid = "AUTH_CONFIG_INVALID_ERROR"

	// Slots stage
	ErrCodeSlotKeyMalformed = "SLOT_KEY_MALFORMED_ERROR"

	// Transform stage
	ErrCodeTransformerApply = "TRANSFORMER_APPLY_ERROR"
	ErrCodeResolverConflict = "RESOLVER_KEY_CONFLICT_ERROR"

	// Assets stage
	ErrCodeAssetWrite   = "ASSET_WRITE_ERROR"
	ErrCodeAssetPublish = "ASSET_PUBLISH_ERROR"

	// Export stage
	ErrCodeExportMapping = "EXPORT_MAPPING_ERROR"
)

// StableErrorCodes is the canonical registry of synthesis stage error codes.
var StableErrorCodes = []string{
	ErrCodeConfigValidate,
	ErrCodeParamsLoad,
	ErrCodeSchemaParse,
	ErrCodeSchemaNormalize,
	ErrCodeAuthConfigInvalid,
	ErrCodeSlotKeyMalformed,
	ErrCodeTransformerApply,
	ErrCodeResolverConflict,
	ErrCodeAssetWrite,
	ErrCodeAssetPublish,
	ErrCodeExportMapping,
}
