// Package sandbox executes model-authored code in an embedded Starlark
// interpreter. Guest code runs with no ambient authority: it can only
// reach the host through capabilities explicitly injected per request,
// and every run is bounded by a caller-supplied wall-clock timeout.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deepnoodle-ai/strand/slogger"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ErrorKind classifies an execution failure. The kind tells the
// orchestration layer how to phrase feedback to the model.
type ErrorKind string

const (
	// ErrorKindCompile covers syntax and resolution failures before any
	// guest code ran.
	ErrorKindCompile ErrorKind = "compile"

	// ErrorKindReference covers use of a name that was never injected
	// into the capability context.
	ErrorKindReference ErrorKind = "reference"

	// ErrorKindRuntime covers failures raised while guest code ran.
	ErrorKindRuntime ErrorKind = "runtime"

	// ErrorKindTimeout covers the wall-clock deadline and the step budget.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindTool covers failures raised by an injected capability.
	ErrorKindTool ErrorKind = "tool"
)

// Error describes a failed execution.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	// Available lists injected capability names when Kind is
	// ErrorKindReference, so feedback can tell the model what it could
	// have called instead.
	Available []string `json:"available,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// ConsoleLevel is the severity of a captured console entry.
type ConsoleLevel string

const (
	ConsoleLog   ConsoleLevel = "log"
	ConsoleWarn  ConsoleLevel = "warn"
	ConsoleError ConsoleLevel = "error"
)

// ConsoleEntry is one line emitted by the guest's log/warn/error
// builtins (or print).
type ConsoleEntry struct {
	Level   ConsoleLevel `json:"level"`
	Message string       `json:"message"`
}

// Metrics are static measurements of the submitted code.
type Metrics struct {
	Chars int `json:"chars"`
	Lines int `json:"lines"`
}

// Request describes one execution.
type Request struct {
	// Code is the guest program: either a full program whose output is
	// the value bound to a top-level "result" name, or a single
	// expression whose value is the output.
	Code string

	// Context maps capability names to values or NativeFunc callables
	// made visible to the guest. Nothing else is reachable.
	Context map[string]any

	// Timeout bounds wall-clock execution. Required; there is no
	// unbounded default.
	Timeout time.Duration

	// Instrumented opts this run into the engine's execution recorder.
	// Off by default.
	Instrumented bool
}

// Result is the outcome of one execution. Exactly one of Value and
// Error is meaningful: Value when Success, Error otherwise. Console is
// populated in both cases, including partial output from a run that
// timed out.
type Result struct {
	Success    bool           `json:"success"`
	Value      any            `json:"value,omitempty"`
	Error      *Error         `json:"error,omitempty"`
	Console    []ConsoleEntry `json:"console,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Duration   time.Duration  `json:"duration"`
	Metrics    Metrics        `json:"metrics"`
}

// Recorder receives results of instrumented executions.
type Recorder interface {
	Record(result *Result)
}

// Engine runs guest code. Safe for concurrent use; each execution gets
// its own interpreter thread.
type Engine struct {
	logger   slogger.Logger
	recorder Recorder
	maxSteps uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger slogger.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecorder sets the sink for instrumented executions.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMaxSteps caps the interpreter step count per execution. Zero
// means no step limit; the wall-clock timeout still applies.
func WithMaxSteps(n uint64) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// New returns a ready Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slogger.DefaultLogger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// fileOptions enables the imperative dialect: while loops, top-level
// control flow, and reassignment, so model-authored code does not have
// to be written as a pure module.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// console collects guest output. The same sink backs the builtins and
// the result, so partial output survives a timeout.
type console struct {
	entries []ConsoleEntry
}

func (c *console) add(level ConsoleLevel, message string) {
	c.entries = append(c.entries, ConsoleEntry{Level: level, Message: message})
}

func (c *console) builtin(name string, level ConsoleLevel) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			if s, ok := starlark.AsString(arg); ok {
				parts[i] = s
			} else {
				parts[i] = arg.String()
			}
		}
		c.add(level, strings.Join(parts, " "))
		return starlark.None, nil
	})
}

// Execute runs one request. The returned error reports caller mistakes
// (empty code, missing timeout, bad capability values); guest failures
// are reported through Result.Error with Success false.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, errors.New("sandbox: empty code")
	}
	if req.Timeout <= 0 {
		return nil, errors.New("sandbox: timeout is required")
	}

	sink := &console{}
	predeclared := starlark.StringDict{
		"log":   sink.builtin("log", ConsoleLog),
		"warn":  sink.builtin("warn", ConsoleWarn),
		"error": sink.builtin("error", ConsoleError),
	}
	names := make([]string, 0, len(req.Context))
	for name, value := range req.Context {
		converted, err := toStarlark(name, value)
		if err != nil {
			return nil, fmt.Errorf("sandbox: %w", err)
		}
		predeclared[name] = converted
		names = append(names, name)
	}

	result := &Result{
		StartedAt: time.Now(),
		Metrics: Metrics{
			Chars: utf8.RuneCountInString(req.Code),
			Lines: strings.Count(req.Code, "\n") + 1,
		},
	}

	thread := &starlark.Thread{
		Name: "sandbox",
		Print: func(_ *starlark.Thread, msg string) {
			sink.add(ConsoleLog, msg)
		},
	}
	if e.maxSteps > 0 {
		thread.SetMaxExecutionSteps(e.maxSteps)
	}

	runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-runCtx.Done():
			thread.Cancel("timeout")
		case <-watchDone:
		}
	}()

	value, runErr := e.run(thread, req.Code, predeclared)

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Console = sink.entries

	if runErr != nil {
		result.Error = classify(runErr, names)
		e.logger.Debug("sandbox execution failed",
			"kind", result.Error.Kind,
			"duration", result.Duration.String())
	} else {
		result.Success = true
		result.Value = value
	}

	if req.Instrumented && e.recorder != nil {
		e.recorder.Record(result)
	}
	return result, nil
}

// run evaluates code as a single expression when it parses as one, and
// as a program otherwise. A program's output is the value bound to a
// top-level "result" name; a program that binds nothing yields nil.
// A leading bare "return" on a one-liner is tolerated since models
// frequently emit it for single-expression answers.
func (e *Engine) run(thread *starlark.Thread, code string, predeclared starlark.StringDict) (any, error) {
	expr := strings.TrimSpace(code)
	if rest, ok := strings.CutPrefix(expr, "return "); ok && !strings.Contains(rest, "\n") {
		expr = strings.TrimSuffix(strings.TrimSpace(rest), ";")
	}
	if _, err := fileOptions.ParseExpr("sandbox", expr, 0); err == nil {
		value, err := starlark.EvalOptions(fileOptions, thread, "sandbox", expr, predeclared)
		if err != nil {
			return nil, err
		}
		return fromStarlark(value), nil
	}

	globals, err := starlark.ExecFileOptions(fileOptions, thread, "sandbox", code, predeclared)
	if err != nil {
		return nil, err
	}
	if out, ok := globals["result"]; ok {
		return fromStarlark(out), nil
	}
	return nil, nil
}

// classify maps an interpreter error to the feedback taxonomy.
func classify(err error, available []string) *Error {
	var tErr *toolError
	if errors.As(err, &tErr) {
		return &Error{Kind: ErrorKindTool, Message: tErr.Error()}
	}

	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		if strings.Contains(evalErr.Msg, "Starlark computation cancelled") {
			return &Error{Kind: ErrorKindTimeout, Message: "execution exceeded its time budget"}
		}
		if strings.Contains(evalErr.Msg, "too many steps") {
			return &Error{Kind: ErrorKindTimeout, Message: "execution exceeded its step budget"}
		}
		return &Error{Kind: ErrorKindRuntime, Message: evalErr.Msg}
	}

	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) {
		for _, re := range resolveErrs {
			if strings.HasPrefix(re.Msg, "undefined:") {
				return &Error{
					Kind:      ErrorKindReference,
					Message:   re.Msg,
					Available: available,
				}
			}
		}
		return &Error{Kind: ErrorKindCompile, Message: resolveErrs.Error()}
	}

	if strings.Contains(err.Error(), "undefined:") {
		return &Error{Kind: ErrorKindReference, Message: err.Error(), Available: available}
	}
	return &Error{Kind: ErrorKindCompile, Message: err.Error()}
}
