package tagparse

import (
	"strconv"
	"strings"
)

// OperationType identifies the semantic type of a parsed tag occurrence.
type OperationType string

const (
	OpVaultStore       OperationType = "vault_store"
	OpVaultRetrieve    OperationType = "vault_retrieve"
	OpVaultRef         OperationType = "vault_ref"
	OpCodeExecution    OperationType = "code_execution"
	OpFinalOutput      OperationType = "final_output"
	OpContinue         OperationType = "continue_reasoning"
	OpMemoryStore      OperationType = "memory_store"
	OpFunctionDef      OperationType = "function_def"
	OpDataStructureDef OperationType = "data_structure_def"
	OpReasoning        OperationType = "reasoning"
)

// Span is the contiguous region of the source text an operation was
// parsed from. Text is the exact matched substring, suitable for verbatim
// replacement in the originating text.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Operation is one recognized tag occurrence extracted from model output.
type Operation struct {
	// Type is the operation's semantic type from the dispatch table.
	Type OperationType `json:"type"`

	// Tag is the tag identifier as written in the source.
	Tag string `json:"tag"`

	// Attrs maps declared attribute names to their decoded values.
	Attrs map[string]string `json:"attrs,omitempty"`

	// Content is the verbatim text between open and close tags, or nil
	// for self-closing tags.
	Content *string `json:"content,omitempty"`

	// Span locates the operation in the source text.
	Span Span `json:"span"`
}

// Attr returns the named attribute value, or "" if absent.
func (op *Operation) Attr(name string) string {
	return op.Attrs[name]
}

// IntAttr returns the named attribute parsed as an integer, or the
// fallback when the attribute is absent or not a valid integer.
func (op *Operation) IntAttr(name string, fallback int) int {
	value, ok := op.Attrs[name]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// ListAttr returns the named attribute split on commas with each element
// trimmed. Empty elements are dropped.
func (op *Operation) ListAttr(name string) []string {
	value, ok := op.Attrs[name]
	if !ok {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ContentText returns the operation's content, or "" for self-closing tags.
func (op *Operation) ContentText() string {
	if op.Content == nil {
		return ""
	}
	return *op.Content
}
