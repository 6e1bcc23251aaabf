package tagparse

// TagSpec describes one recognized tag identifier: its operation type,
// whether it carries content, and the attribute names it declares.
// Attributes not listed here are still captured; the list exists for
// documentation and prompt generation.
type TagSpec struct {
	Type            OperationType
	SelfClosing     bool
	RequiresContent bool
	Attrs           []string
}

// tagSpecs is the closed dispatch table of recognized tag identifiers.
// Unknown identifiers are not errors; they pass through as literal text.
var tagSpecs = map[string]TagSpec{
	"vault_store": {
		Type:            OpVaultStore,
		RequiresContent: true,
		Attrs:           []string{"id", "label", "tags", "type", "source"},
	},
	"vault_retrieve": {
		Type:        OpVaultRetrieve,
		SelfClosing: true,
		Attrs:       []string{"id", "mode", "limit"},
	},
	"vault_ref": {
		Type:        OpVaultRef,
		SelfClosing: true,
		Attrs:       []string{"id"},
	},
	"js_execution": {
		Type:            OpCodeExecution,
		RequiresContent: true,
		Attrs:           []string{"timeout"},
	},
	"code_execution": {
		Type:            OpCodeExecution,
		RequiresContent: true,
		Attrs:           []string{"timeout"},
	},
	"final_output": {
		Type:            OpFinalOutput,
		RequiresContent: true,
	},
	"continue_reasoning": {
		Type:        OpContinue,
		SelfClosing: true,
	},
	"memory_store": {
		Type:            OpMemoryStore,
		RequiresContent: true,
		Attrs:           []string{"key", "tags"},
	},
	"function_def": {
		Type:            OpFunctionDef,
		RequiresContent: true,
		Attrs:           []string{"name", "params"},
	},
	"data_structure_def": {
		Type:            OpDataStructureDef,
		RequiresContent: true,
		Attrs:           []string{"name", "type"},
	},
	"reasoning": {
		Type:            OpReasoning,
		RequiresContent: true,
	},
}

// LookupTag returns the spec for a tag identifier, if recognized.
func LookupTag(ident string) (TagSpec, bool) {
	spec, ok := tagSpecs[ident]
	return spec, ok
}

// TagNames returns the identifiers in the dispatch table. Order is not
// specified.
func TagNames() []string {
	names := make([]string, 0, len(tagSpecs))
	for name := range tagSpecs {
		names = append(names, name)
	}
	return names
}
