package strand

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/deepnoodle-ai/strand/llm"
	"github.com/deepnoodle-ai/strand/sandbox"
	"github.com/deepnoodle-ai/strand/slogger"
	"github.com/deepnoodle-ai/strand/tagparse"
	"github.com/deepnoodle-ai/strand/toolkit"
	"github.com/deepnoodle-ai/strand/vault"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxIterations    = 10
	DefaultMaxConcurrency   = 4
	DefaultExecutionTimeout = 30 * time.Second
)

// ErrMaxIterations is returned when a session exhausts its iteration
// budget without producing a final output.
var ErrMaxIterations = errors.New("max iterations reached without final output")

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	// Model generates each reasoning turn. Required.
	Model llm.LLM

	// Engine executes code operations. Defaults to a fresh sandbox
	// engine.
	Engine *sandbox.Engine

	// Vault stores intermediate values. Defaults to an in-memory store.
	Vault *vault.Store

	// Tools are exposed to sandboxed code by name.
	Tools *toolkit.Registry

	// Memory holds notes across iterations. Defaults to a fresh store.
	Memory *MemoryStore

	// Sessions persists session state after every iteration. Optional.
	Sessions SessionRepository

	// SystemPrompt is prepended to the operation instructions.
	SystemPrompt string

	// MaxIterations caps the reasoning loop. Defaults to 10.
	MaxIterations int

	// MaxConcurrency caps concurrent code executions within an
	// iteration. Defaults to 4.
	MaxConcurrency int

	// ExecutionTimeout bounds each code execution unless the operation
	// carries its own timeout attribute. Defaults to 30s.
	ExecutionTimeout time.Duration

	Logger slogger.Logger
}

// Orchestrator drives the reasoning loop: model turn, operation
// parsing, host-side application, feedback. One orchestrator can run
// many sessions; Run is safe for concurrent use.
type Orchestrator struct {
	model          llm.LLM
	engine         *sandbox.Engine
	vault          *vault.Store
	resolver       *vault.Resolver
	tools          *toolkit.Registry
	memory         *MemoryStore
	sessions       SessionRepository
	systemPrompt   string
	maxIterations  int
	maxConcurrency int
	execTimeout    time.Duration
	logger         slogger.Logger
	stopRequested  atomic.Bool
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Model == nil {
		return nil, errors.New("orchestrator requires a model")
	}
	if opts.Engine == nil {
		opts.Engine = sandbox.New()
	}
	if opts.Vault == nil {
		opts.Vault = vault.NewStore()
	}
	if opts.Tools == nil {
		opts.Tools = toolkit.NewRegistry()
	}
	if opts.Memory == nil {
		opts.Memory = NewMemoryStore()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.ExecutionTimeout <= 0 {
		opts.ExecutionTimeout = DefaultExecutionTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	return &Orchestrator{
		model:          opts.Model,
		engine:         opts.Engine,
		vault:          opts.Vault,
		resolver:       vault.NewResolver(opts.Vault),
		tools:          opts.Tools,
		memory:         opts.Memory,
		sessions:       opts.Sessions,
		systemPrompt:   opts.SystemPrompt,
		maxIterations:  opts.MaxIterations,
		maxConcurrency: opts.MaxConcurrency,
		execTimeout:    opts.ExecutionTimeout,
		logger:         opts.Logger,
	}, nil
}

// Vault returns the orchestrator's vault store.
func (o *Orchestrator) Vault() *vault.Store {
	return o.vault
}

// Memory returns the orchestrator's note store.
func (o *Orchestrator) Memory() *MemoryStore {
	return o.memory
}

// Stop requests that a running session halt. The request takes effect
// between iterations; an in-flight model call or execution batch
// completes first. One Stop halts one session: the first run loop to
// observe the request consumes it, and later sessions run normally.
func (o *Orchestrator) Stop() {
	o.stopRequested.Store(true)
}

// Run executes one session to completion. The returned session always
// carries the full iteration history, including on failure.
func (o *Orchestrator) Run(ctx context.Context, input string) (*Session, error) {
	session := NewSession(input, o.maxIterations)
	session.Status = SessionStatusActive
	session.Messages = []*llm.Message{llm.NewUserMessage(input)}
	o.save(ctx, session)

	for n := 1; n <= o.maxIterations; n++ {
		if o.stopRequested.CompareAndSwap(true, false) {
			session.Status = SessionStatusStopped
			o.save(ctx, session)
			return session, nil
		}

		done, err := o.iterate(ctx, session, n)
		o.save(ctx, session)
		if err != nil {
			return session, err
		}
		if done {
			return session, nil
		}
	}

	session.Status = SessionStatusFailed
	session.Error = fmt.Sprintf("no final output after %d iterations", o.maxIterations)
	o.save(ctx, session)
	return session, ErrMaxIterations
}

// iterate performs one model turn. It returns true when the session
// reached a terminal state.
func (o *Orchestrator) iterate(ctx context.Context, session *Session, number int) (bool, error) {
	prompt := buildSystemPrompt(o.systemPrompt, o.capabilityLines(), o.memory.Contents())

	response, err := o.model.Generate(ctx, session.Messages,
		llm.WithSystemPrompt(prompt),
		llm.WithLogger(o.logger),
	)
	if err != nil {
		session.Status = SessionStatusFailed
		session.Error = fmt.Sprintf("model generation failed: %v", err)
		return true, fmt.Errorf("model generation failed on iteration %d: %w", number, err)
	}
	usage := response.Usage()
	session.Usage.Add(&usage)

	text := response.Text()
	session.Messages = append(session.Messages, llm.NewAssistantMessage(text))

	iteration := &Iteration{Number: number, ModelOutput: text}
	session.Iterations = append(session.Iterations, iteration)

	parsed := tagparse.Parse(text)
	for _, d := range parsed.Diagnostics {
		iteration.Diagnostics = append(iteration.Diagnostics, d.String())
	}
	o.logger.Debug("iteration parsed",
		"session", session.ID,
		"iteration", number,
		"operations", len(parsed.Operations),
		"diagnostics", len(parsed.Diagnostics),
	)

	// A reply with no recognized operations and no tag damage is the
	// answer itself.
	if len(parsed.Operations) == 0 && len(parsed.Diagnostics) == 0 {
		iteration.ProducedFinalOutput = true
		o.complete(session, strings.TrimSpace(text))
		return true, nil
	}

	fb := &feedback{}
	for _, d := range parsed.Diagnostics {
		fb.addf("[parse] %s", d.String())
	}

	var codeOps []*tagparse.Operation
	for _, op := range parsed.Operations {
		iteration.Operations = append(iteration.Operations, string(op.Type))

		switch op.Type {
		case tagparse.OpFinalOutput:
			iteration.ProducedFinalOutput = true
			o.complete(session, o.resolveText(ctx, op.ContentText()))
			return true, nil

		case tagparse.OpCodeExecution:
			codeOps = append(codeOps, op)

		case tagparse.OpVaultStore:
			o.applyVaultStore(ctx, op, fb)

		case tagparse.OpVaultRetrieve:
			o.applyVaultRetrieve(ctx, op, fb)

		case tagparse.OpVaultRef:
			o.applyVaultRef(ctx, op, fb)

		case tagparse.OpMemoryStore:
			o.memory.Append(op.ContentText(), op.ListAttr("tags")...)
			fb.add("[memory] noted")

		case tagparse.OpFunctionDef:
			o.applyFunctionDef(ctx, op, fb)

		case tagparse.OpDataStructureDef:
			o.applyDataStructureDef(ctx, op, fb)

		case tagparse.OpReasoning:
			// Scratchpad content is for the model alone.

		case tagparse.OpContinue:
			fb.add("[continue] proceed with your next step")
		}
	}

	if len(codeOps) > 0 {
		records := o.executeAll(ctx, codeOps)
		iteration.ExecutionResults = records
		for i, record := range records {
			fb.addExecution(i+1, record, o.renderValue(ctx, record.Result))
		}
	}

	if fb.empty() {
		fb.add("[host] no actionable operations found; answer with final_output or plain text")
	}
	session.Messages = append(session.Messages, llm.NewUserMessage(fb.render()))
	return false, nil
}

func (o *Orchestrator) complete(session *Session, output string) {
	session.FinalOutput = output
	session.Status = SessionStatusCompleted
	o.logger.Info("session completed",
		"session", session.ID,
		"iterations", len(session.Iterations),
	)
}

func (o *Orchestrator) save(ctx context.Context, session *Session) {
	if o.sessions == nil {
		return
	}
	if err := o.sessions.PutSession(ctx, session); err != nil {
		o.logger.Warn("failed to persist session",
			"session", session.ID, "error", err)
	}
}

// resolveText substitutes vault references in model-facing text,
// leaving missing markers visible.
func (o *Orchestrator) resolveText(ctx context.Context, text string) string {
	resolution, err := o.resolver.Resolve(ctx, text, vault.ResolveOptions{
		Mode: vault.ModeFull,
	})
	if err != nil || resolution == nil {
		return text
	}
	return resolution.Text
}

func (o *Orchestrator) applyVaultStore(ctx context.Context, op *tagparse.Operation, fb *feedback) {
	entry, err := o.vault.Put(ctx, op.ContentText(), vault.PutOptions{
		CustomID: op.Attr("id"),
		Label:    op.Attr("label"),
		Tags:     op.ListAttr("tags"),
		Type:     op.Attr("type"),
		Source:   "vault_store",
	})
	if err != nil {
		fb.addf("[vault_store] failed: %v", err)
		return
	}
	fb.addf("[vault_store] stored as %s (%d bytes)", entry.Reference, entry.Bytes)
}

func (o *Orchestrator) applyVaultRetrieve(ctx context.Context, op *tagparse.Operation, fb *feedback) {
	id := op.Attr("id")
	mode := vault.ParseMode(op.Attr("mode"))
	content, err := o.vault.Retrieve(ctx, id, mode, op.IntAttr("limit", 0))
	if err != nil {
		fb.addf("[vault_retrieve] no entry for id %q", id)
		return
	}
	fb.addf("[vault_retrieve %s]\n%s", id, content)
}

func (o *Orchestrator) applyVaultRef(ctx context.Context, op *tagparse.Operation, fb *feedback) {
	id := op.Attr("id")
	entry, err := o.vault.ResolveReference(ctx, id)
	if err != nil {
		fb.addf("[vault_ref] no entry for id %q", id)
		return
	}
	fb.addf("[vault_ref %s] %s", entry.ID, entry.Preview)
}

func (o *Orchestrator) applyFunctionDef(ctx context.Context, op *tagparse.Operation, fb *feedback) {
	name := op.Attr("name")
	if name == "" {
		fb.add("[function_def] missing required 'name' attribute")
		return
	}
	entry, err := o.vault.Put(ctx, vault.FuncRecord{
		Name:   name,
		Arity:  op.IntAttr("arity", 0),
		Source: op.ContentText(),
	}, vault.PutOptions{
		CustomID: name,
		Label:    op.Attr("label"),
		Source:   "function_def",
	})
	if err != nil {
		fb.addf("[function_def] failed: %v", err)
		return
	}
	fb.addf("[function_def] %q stored as %s", name, entry.Reference)
}

func (o *Orchestrator) applyDataStructureDef(ctx context.Context, op *tagparse.Operation, fb *feedback) {
	name := op.Attr("name")
	if name == "" {
		fb.add("[data_structure_def] missing required 'name' attribute")
		return
	}
	entry, err := o.vault.Put(ctx, op.ContentText(), vault.PutOptions{
		CustomID: name,
		Label:    op.Attr("label"),
		Type:     "data_structure",
		Source:   "data_structure_def",
	})
	if err != nil {
		fb.addf("[data_structure_def] failed: %v", err)
		return
	}
	fb.addf("[data_structure_def] %q stored as %s", name, entry.Reference)
}

// executeAll runs code operations concurrently with a bounded worker
// count. Task funcs never return an error: every outcome, including
// host-level failures, lands in its record so one bad task cannot
// cancel its siblings.
func (o *Orchestrator) executeAll(ctx context.Context, ops []*tagparse.Operation) []*ExecutionRecord {
	records := make([]*ExecutionRecord, len(ops))
	g := new(errgroup.Group)
	g.SetLimit(o.maxConcurrency)

	for i, op := range ops {
		i, op := i, op
		g.Go(func() error {
			records[i] = o.executeOne(ctx, op)
			return nil
		})
	}
	g.Wait()
	return records
}

func (o *Orchestrator) executeOne(ctx context.Context, op *tagparse.Operation) *ExecutionRecord {
	code := op.ContentText()
	record := &ExecutionRecord{Code: code}

	resolution, err := o.resolver.Resolve(ctx, code, vault.ResolveOptions{
		Mode: vault.ModeFull,
	})
	if err != nil {
		record.Result = failedResult(sandbox.ErrorKindReference, err.Error())
		return record
	}
	if len(resolution.Missing) > 0 {
		record.Result = failedResult(sandbox.ErrorKindReference,
			fmt.Sprintf("unknown vault references: %s", strings.Join(resolution.Missing, ", ")))
		return record
	}

	timeout := o.execTimeout
	if ms := op.IntAttr("timeout", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	result, err := o.engine.Execute(ctx, sandbox.Request{
		Code:    resolution.Text,
		Context: o.capabilities(ctx),
		Timeout: timeout,
	})
	if err != nil {
		record.Result = failedResult(sandbox.ErrorKindRuntime, err.Error())
		return record
	}
	record.Result = result
	return record
}

func failedResult(kind sandbox.ErrorKind, message string) *sandbox.Result {
	now := time.Now()
	return &sandbox.Result{
		StartedAt:  now,
		FinishedAt: now,
		Error:      &sandbox.Error{Kind: kind, Message: message},
	}
}

// renderValue prepares the model-facing rendering of an execution
// value. Large values are stored in the vault and reported by
// reference with a preview; small values are inlined in serialized
// form.
func (o *Orchestrator) renderValue(ctx context.Context, result *sandbox.Result) string {
	if !executionSucceeded(result) {
		return ""
	}
	value := result.Value
	if value == nil {
		return "None"
	}
	if o.vault.ShouldStore(value, false) {
		entry, err := o.vault.Put(ctx, value, vault.PutOptions{Source: "execution"})
		if err == nil {
			return fmt.Sprintf("%s (stored, %d bytes; preview: %s)",
				entry.Reference, entry.Bytes, entry.Preview)
		}
		o.logger.Warn("failed to store execution value", "error", err)
	}
	return vault.Serialize(value)
}

// capabilities builds the sandbox context: registered tools plus vault
// and memory access.
func (o *Orchestrator) capabilities(ctx context.Context) map[string]any {
	caps := map[string]any{
		"vault_get": sandbox.NativeFunc(func(args []any, kwargs map[string]any) (any, error) {
			if len(args) < 1 {
				return nil, errors.New("vault_get requires an id")
			}
			id, _ := args[0].(string)
			mode := vault.ModeFull
			if m, ok := kwargs["mode"].(string); ok {
				mode = vault.ParseMode(m)
			}
			entry, err := o.vault.ResolveReference(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("no vault entry for %q", id)
			}
			return o.vault.Retrieve(ctx, entry.ID, mode, 0)
		}),
		"vault_put": sandbox.NativeFunc(func(args []any, kwargs map[string]any) (any, error) {
			if len(args) < 1 {
				return nil, errors.New("vault_put requires a value")
			}
			opts := vault.PutOptions{Source: "execution"}
			if id, ok := kwargs["id"].(string); ok {
				opts.CustomID = id
			}
			if label, ok := kwargs["label"].(string); ok {
				opts.Label = label
			}
			entry, err := o.vault.Put(ctx, args[0], opts)
			if err != nil {
				return nil, err
			}
			return entry.Reference, nil
		}),
		"remember": sandbox.NativeFunc(func(args []any, kwargs map[string]any) (any, error) {
			if len(args) < 1 {
				return nil, errors.New("remember requires a note")
			}
			note, _ := args[0].(string)
			o.memory.Append(note)
			return nil, nil
		}),
		"recall": sandbox.NativeFunc(func(args []any, kwargs map[string]any) (any, error) {
			notes := o.memory.Contents()
			out := make([]any, len(notes))
			for i, note := range notes {
				out[i] = note
			}
			return out, nil
		}),
	}
	for _, name := range o.tools.Names() {
		tool, _ := o.tools.Get(name)
		caps[name] = toolCapability(ctx, tool)
	}
	return caps
}

// toolCapability adapts a Tool to the sandbox calling convention: an
// optional positional map argument merged with keyword arguments.
func toolCapability(ctx context.Context, tool toolkit.Tool) sandbox.NativeFunc {
	return func(args []any, kwargs map[string]any) (any, error) {
		callArgs := make(map[string]any, len(kwargs)+1)
		if len(args) > 0 {
			if m, ok := args[0].(map[string]any); ok {
				for k, v := range m {
					callArgs[k] = v
				}
			}
		}
		for k, v := range kwargs {
			callArgs[k] = v
		}
		return tool.Call(ctx, callArgs)
	}
}

func (o *Orchestrator) capabilityLines() []string {
	lines := []string{
		"vault_get(id, mode=\"full\"): read a stored value",
		"vault_put(value, id=\"\", label=\"\"): store a value, returns its reference",
		"remember(note): keep a note for later iterations",
		"recall(): list remembered notes",
	}
	return append(lines, o.tools.Describe()...)
}
