package strand

import (
	"fmt"
	"strings"
)

// operationInstructions teaches the model the tagged mini-language. It
// is appended to any caller-supplied system prompt.
const operationInstructions = `You interact with the host system through tagged operations embedded in
your replies. Available tags:

{{<vault_store id="my-id" label="optional label">}}content{{</vault_store>}}
  Store content in the vault. The host replies with a [[vault:my-id]]
  reference you can use later instead of repeating the content.

{{<vault_retrieve id="my-id" mode="preview" />}}
  Retrieve a stored value. Modes: preview (default), full, summary.

{{<vault_ref id="my-id" />}}
  Inline a stored value by reference.

{{<code_execution timeout="30000">}}code{{</code_execution>}}
  Run code in a sandbox (Starlark: Python-like syntax, while loops
  allowed, no imports). Bind your answer to a top-level "result"
  variable, or write a single expression. Use log()/warn()/error() for
  console output. Vault references like [[vault:my-id]] inside the code
  are replaced with the stored values before execution.

{{<memory_store>}}note to remember{{</memory_store>}}
  Remember a fact for later iterations.

{{<reasoning>}}private scratchpad, ignored by the host{{</reasoning>}}

{{<continue_reasoning />}}
  Request another iteration without any other operation.

{{<final_output>}}your answer{{</final_output>}}
  Finish the session with this answer. A reply containing no tags at
  all is also treated as the final answer.

Execution results, vault confirmations, and errors come back in the
next user message. Fix errors and continue; do not apologize.`

// buildSystemPrompt combines the caller's prompt, the operation
// instructions, the available sandbox capabilities, and remembered
// notes.
func buildSystemPrompt(base string, capabilities []string, notes []string) string {
	var b strings.Builder
	if base != "" {
		b.WriteString(base)
		b.WriteString("\n\n")
	}
	b.WriteString(operationInstructions)
	if len(capabilities) > 0 {
		b.WriteString("\n\nFunctions available inside code execution:\n")
		for _, line := range capabilities {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	if len(notes) > 0 {
		b.WriteString("\nRemembered notes:\n")
		for _, note := range notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}
	return b.String()
}
