package strand

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/strand/sandbox"
)

// feedback accumulates the host's reply to one model turn. The
// rendered text becomes the next user message, and is the model's only
// channel for seeing operation outcomes and correcting mistakes.
type feedback struct {
	sections []string
}

func (f *feedback) addf(format string, args ...any) {
	f.sections = append(f.sections, fmt.Sprintf(format, args...))
}

func (f *feedback) add(section string) {
	f.sections = append(f.sections, section)
}

func (f *feedback) empty() bool {
	return len(f.sections) == 0
}

func (f *feedback) render() string {
	return strings.Join(f.sections, "\n\n")
}

// addExecution formats one sandbox outcome. valueText is the inline
// serialized value or a vault reference line prepared by the caller.
func (f *feedback) addExecution(index int, record *ExecutionRecord, valueText string) {
	var b strings.Builder
	result := record.Result
	if result.Success {
		fmt.Fprintf(&b, "[execution %d] succeeded in %dms\n", index, result.Duration.Milliseconds())
		fmt.Fprintf(&b, "value: %s", valueText)
	} else {
		fmt.Fprintf(&b, "[execution %d] failed (%s error)\n", index, result.Error.Kind)
		fmt.Fprintf(&b, "error: %s", result.Error.Message)
		if len(result.Error.Available) > 0 {
			fmt.Fprintf(&b, "\navailable names: %s", strings.Join(result.Error.Available, ", "))
		}
	}
	if len(result.Console) > 0 {
		b.WriteString("\nconsole:")
		for _, entry := range result.Console {
			fmt.Fprintf(&b, "\n  [%s] %s", entry.Level, entry.Message)
		}
	}
	f.add(b.String())
}

// executionSucceeded reports whether a result is usable by the model
// without correction.
func executionSucceeded(result *sandbox.Result) bool {
	return result != nil && result.Success
}
