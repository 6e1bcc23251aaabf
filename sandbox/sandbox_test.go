package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteExpression(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code:    "40 + 2",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Nil(t, result.Error)
	assert.Equal(t, int64(42), result.Value)
	assert.False(t, result.StartedAt.IsZero())
	assert.False(t, result.FinishedAt.IsZero())
	assert.Equal(t, 6, result.Metrics.Chars)
	assert.Equal(t, 1, result.Metrics.Lines)
}

func TestExecuteMetricsCountRunes(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code:    `"héllo"`,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 7, result.Metrics.Chars)
}

func TestExecuteBareReturn(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code:    "return 42;",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, int64(42), result.Value)
}

func TestExecuteProgramResult(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code: `
total = 0
for i in range(5):
    total += i
result = total
`,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, int64(10), result.Value)
}

func TestExecuteProgramWithoutResultBinding(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code:    "x = 1",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Nil(t, result.Value)
}

func TestExecuteCapabilityContext(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code: `lookup("answer") * factor`,
		Context: map[string]any{
			"factor": 2,
			"lookup": NativeFunc(func(args []any, kwargs map[string]any) (any, error) {
				if len(args) == 1 && args[0] == "answer" {
					return 21, nil
				}
				return nil, errors.New("unknown key")
			}),
		},
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, int64(42), result.Value)
}

func TestExecuteConsoleCapture(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code: `
log("starting", 1)
warn("careful")
error("bad")
print("printed")
result = "ok"
`,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Console, 4)
	assert.Equal(t, ConsoleEntry{Level: ConsoleLog, Message: "starting 1"}, result.Console[0])
	assert.Equal(t, ConsoleEntry{Level: ConsoleWarn, Message: "careful"}, result.Console[1])
	assert.Equal(t, ConsoleEntry{Level: ConsoleError, Message: "bad"}, result.Console[2])
	assert.Equal(t, ConsoleEntry{Level: ConsoleLog, Message: "printed"}, result.Console[3])
}

func TestExecuteTimeout(t *testing.T) {
	engine := New()
	timeout := 100 * time.Millisecond
	start := time.Now()
	result, err := engine.Execute(context.Background(), Request{
		Code: `
log("before the loop")
while True:
    pass
`,
		Timeout: timeout,
	})
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, ErrorKindTimeout, result.Error.Kind)
	// Cancellation is prompt; allow generous slack for CI scheduling.
	assert.Less(t, elapsed, timeout+2*time.Second)
	// Output produced before the deadline survives.
	require.Len(t, result.Console, 1)
	assert.Equal(t, "before the loop", result.Console[0].Message)
}

func TestExecuteRuntimeError(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code:    `fail("boom")`,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, ErrorKindRuntime, result.Error.Kind)
	assert.Contains(t, result.Error.Message, "boom")
}

func TestExecuteCompileError(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code:    "def broken(:",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, ErrorKindCompile, result.Error.Kind)
}

func TestExecuteReferenceError(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code:    "no_such_capability()\nresult = 1",
		Context: map[string]any{"fetch": 1},
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, ErrorKindReference, result.Error.Kind)
	assert.Contains(t, result.Error.Message, "no_such_capability")
	assert.Contains(t, result.Error.Available, "fetch")
}

func TestExecuteToolError(t *testing.T) {
	engine := New()
	result, err := engine.Execute(context.Background(), Request{
		Code: `flaky()`,
		Context: map[string]any{
			"flaky": NativeFunc(func(args []any, kwargs map[string]any) (any, error) {
				return nil, errors.New("upstream unavailable")
			}),
		},
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, ErrorKindTool, result.Error.Kind)
	assert.Contains(t, result.Error.Message, "flaky")
	assert.Contains(t, result.Error.Message, "upstream unavailable")
}

func TestExecuteStepBudget(t *testing.T) {
	engine := New(WithMaxSteps(1000))
	result, err := engine.Execute(context.Background(), Request{
		Code: `
while True:
    pass
`,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, ErrorKindTimeout, result.Error.Kind)
}

func TestExecuteRequestValidation(t *testing.T) {
	engine := New()

	_, err := engine.Execute(context.Background(), Request{Code: "  ", Timeout: time.Second})
	require.Error(t, err)

	_, err = engine.Execute(context.Background(), Request{Code: "1 + 1"})
	require.Error(t, err)
}

func TestExecuteInstrumented(t *testing.T) {
	recorder := NewMemoryRecorder(10)
	engine := New(WithRecorder(recorder))

	_, err := engine.Execute(context.Background(), Request{
		Code:    "1 + 1",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	assert.Empty(t, recorder.Results(), "uninstrumented runs are not recorded")

	result, err := engine.Execute(context.Background(), Request{
		Code:         "2 + 2",
		Timeout:      time.Second,
		Instrumented: true,
	})
	require.NoError(t, err)
	recorded := recorder.Results()
	require.Len(t, recorded, 1)
	assert.Equal(t, result, recorded[0])
}

func TestExecuteIsolationBetweenRuns(t *testing.T) {
	engine := New()

	_, err := engine.Execute(context.Background(), Request{
		Code:    "leaked = 42",
		Timeout: time.Second,
	})
	require.NoError(t, err)

	result, err := engine.Execute(context.Background(), Request{
		Code:    "leaked",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	assert.Equal(t, ErrorKindReference, result.Error.Kind)
}
