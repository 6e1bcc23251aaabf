package tagparse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVaultStore(t *testing.T) {
	input := `before {{<vault_store id="x" label="L">}}hello world{{</vault_store>}} after`
	result := Parse(input)
	require.Empty(t, result.Diagnostics)
	require.Len(t, result.Operations, 1)

	op := result.Operations[0]
	require.Equal(t, OpVaultStore, op.Type)
	require.Equal(t, "x", op.Attr("id"))
	require.Equal(t, "L", op.Attr("label"))
	require.NotNil(t, op.Content)
	require.Equal(t, "hello world", *op.Content)

	// The span is the exact matched substring, usable for verbatim
	// replacement in the originating text.
	require.Equal(t, `{{<vault_store id="x" label="L">}}hello world{{</vault_store>}}`, op.Span.Text)
	require.Equal(t, op.Span.Text, input[op.Span.Start:op.Span.End])
	replaced := input[:op.Span.Start] + "[stored]" + input[op.Span.End:]
	require.Equal(t, "before [stored] after", replaced)
}

func TestParseSelfClosingTags(t *testing.T) {
	input := `{{<vault_retrieve id="a" mode="preview" limit="200" />}} and {{<continue_reasoning />}}`
	result := Parse(input)
	require.Empty(t, result.Diagnostics)
	require.Len(t, result.Operations, 2)

	retrieve := result.Operations[0]
	require.Equal(t, OpVaultRetrieve, retrieve.Type)
	require.Nil(t, retrieve.Content)
	require.Equal(t, "preview", retrieve.Attr("mode"))
	require.Equal(t, 200, retrieve.IntAttr("limit", 0))

	require.Equal(t, OpContinue, result.Operations[1].Type)
}

func TestParseCodeBlock(t *testing.T) {
	code := "x = 1\nresult = x + 41\n"
	input := "{{<js_execution>}}" + code + "{{</js_execution>}}"
	result := Parse(input)
	require.Empty(t, result.Diagnostics)
	require.Len(t, result.Operations, 1)
	require.Equal(t, OpCodeExecution, result.Operations[0].Type)
	require.Equal(t, code, result.Operations[0].ContentText())
}

func TestParseOperationsInScanOrder(t *testing.T) {
	input := `{{<vault_store id="a">}}A{{</vault_store>}}` +
		`{{<js_execution>}}result = 1{{</js_execution>}}` +
		`{{<final_output>}}done{{</final_output>}}`
	result := Parse(input)
	require.Len(t, result.Operations, 3)
	require.Equal(t, OpVaultStore, result.Operations[0].Type)
	require.Equal(t, OpCodeExecution, result.Operations[1].Type)
	require.Equal(t, OpFinalOutput, result.Operations[2].Type)
}

func TestParseUnknownTagPassesThrough(t *testing.T) {
	result := Parse(`{{<mystery attr="v">}}content{{</mystery>}}`)
	require.Empty(t, result.Operations)
	require.Empty(t, result.Diagnostics)
}

func TestParseUnknownCloseTagPassesThrough(t *testing.T) {
	// The close form of an unrecognized identifier is literal text too,
	// even with no open tag in sight.
	result := Parse(`text {{</mystery>}} more`)
	require.Empty(t, result.Operations)
	require.Empty(t, result.Diagnostics)
}

func TestParseUnclosedTagRecovers(t *testing.T) {
	input := `{{<vault_store id="a">}}never closed... {{<vault_ref id="b" />}}`
	result := Parse(input)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, DiagUnclosedTag, result.Diagnostics[0].Kind)

	// The tag after the unclosed block still parses
	require.Len(t, result.Operations, 1)
	require.Equal(t, OpVaultRef, result.Operations[0].Type)
}

func TestParseMalformedTagRecovers(t *testing.T) {
	input := `{{<vault_store id=broken>}}x{{</vault_store>}} {{<final_output>}}ok{{</final_output>}}`
	result := Parse(input)
	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, DiagMalformedTag, result.Diagnostics[0].Kind)
	require.Len(t, result.Operations, 1)
	require.Equal(t, OpFinalOutput, result.Operations[0].Type)
}

func TestParseStrayCloseTag(t *testing.T) {
	result := Parse(`text {{</vault_store>}} more`)
	require.Empty(t, result.Operations)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, DiagStrayCloseTag, result.Diagnostics[0].Kind)
}

func TestParseContentRequiredButSelfClosing(t *testing.T) {
	result := Parse(`{{<final_output />}}`)
	require.Empty(t, result.Operations)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, DiagMissingContent, result.Diagnostics[0].Kind)
}

func TestParseContentCapturedVerbatim(t *testing.T) {
	// Tag-like text inside a block belongs to its content; tags do not
	// nest in this grammar.
	content := `inner {{<vault_ref id="q" />}} text`
	input := `{{<reasoning>}}` + content + `{{</reasoning>}}`
	result := Parse(input)
	require.Len(t, result.Operations, 1)
	require.Equal(t, OpReasoning, result.Operations[0].Type)
	require.Equal(t, content, result.Operations[0].ContentText())
}

func TestParseListAttr(t *testing.T) {
	result := Parse(`{{<vault_store id="x" tags="a, b ,c,,">}}v{{</vault_store>}}`)
	require.Len(t, result.Operations, 1)
	require.Equal(t, []string{"a", "b", "c"}, result.Operations[0].ListAttr("tags"))
	require.Nil(t, result.Operations[0].ListAttr("absent"))
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"{{<",
		"{{</",
		"{{<}}",
		"{{<x",
		"{{<x/>}}",
		`{{<x id="`,
		"{{</x>}}{{</x>}}",
		strings.Repeat("{{<", 1000),
		"{{<vault_store>}}{{<vault_store>}}{{</vault_store>}}",
		"plain {{ text }} with braces",
	}
	for i, input := range inputs {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			require.NotPanics(t, func() { Parse(input) })
		})
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Kind: DiagUnclosedTag, Message: "boom", Pos: Position{Offset: 5, Line: 2, Column: 3}}
	require.Equal(t, "unclosed_tag at line 2 col 3: boom", d.String())
}

func TestResultOperationsOfType(t *testing.T) {
	input := `{{<vault_store id="a">}}A{{</vault_store>}}{{<vault_store id="b">}}B{{</vault_store>}}{{<continue_reasoning />}}`
	result := Parse(input)
	stores := result.OperationsOfType(OpVaultStore)
	require.Len(t, stores, 2)
	require.True(t, result.HasOperations())
	require.Empty(t, result.OperationsOfType(OpFinalOutput))
}
