package strand

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/deepnoodle-ai/strand/llm"
	"github.com/deepnoodle-ai/strand/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel replays canned replies and records what it was asked.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []string
	err      error
	calls    int
	prompts  []string
	messages [][]*llm.Message
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(ctx context.Context, messages []*llm.Message, opts ...llm.GenerateOption) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	config := &llm.GenerateConfig{}
	config.Apply(opts)
	m.prompts = append(m.prompts, config.SystemPrompt)
	m.messages = append(m.messages, messages)

	if m.calls >= len(m.replies) {
		return nil, fmt.Errorf("scripted model exhausted after %d calls", m.calls)
	}
	reply := m.replies[m.calls]
	m.calls++
	return llm.NewResponse(llm.ResponseOptions{
		ID:      fmt.Sprintf("resp-%d", m.calls),
		Message: llm.NewAssistantMessage(reply),
		Usage:   llm.Usage{InputTokens: 10, OutputTokens: 5},
	}), nil
}

func newTestOrchestrator(t *testing.T, model llm.LLM, opts ...func(*OrchestratorOptions)) *Orchestrator {
	t.Helper()
	options := OrchestratorOptions{
		Model:         model,
		MaxIterations: 5,
	}
	for _, opt := range opts {
		opt(&options)
	}
	o, err := NewOrchestrator(options)
	require.NoError(t, err)
	return o
}

func TestRunImplicitFinalOutput(t *testing.T) {
	model := &scriptedModel{replies: []string{"The answer is 42."}}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "what is the answer?")
	require.NoError(t, err)

	assert.Equal(t, SessionStatusCompleted, session.Status)
	assert.Equal(t, "The answer is 42.", session.FinalOutput)
	require.Len(t, session.Iterations, 1)
	assert.True(t, session.Iterations[0].ProducedFinalOutput)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, 10, session.Usage.InputTokens)
}

func TestRunImplicitFinalWithUnrecognizedTags(t *testing.T) {
	// Prose answers sometimes quote tag-shaped text the parser does not
	// recognize. That must still read as a final answer, not an error
	// that burns an iteration.
	reply := "Wrap it as {{<mystery>}}like this{{</mystery>}} and ship it."
	model := &scriptedModel{replies: []string{reply}}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "how do I wrap it?")
	require.NoError(t, err)

	assert.Equal(t, SessionStatusCompleted, session.Status)
	assert.Equal(t, reply, session.FinalOutput)
	require.Len(t, session.Iterations, 1)
	assert.True(t, session.Iterations[0].ProducedFinalOutput)
	assert.Equal(t, 1, model.calls)
}

func TestRunExplicitFinalOutput(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{{<final_output>}}done and dusted{{</final_output>}}`,
	}}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "finish")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusCompleted, session.Status)
	assert.Equal(t, "done and dusted", session.FinalOutput)
}

func TestRunCodeExecutionRoundTrip(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"{{<code_execution>}}6 * 7{{</code_execution>}}",
		"{{<final_output>}}the result was 42{{</final_output>}}",
	}}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "compute")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusCompleted, session.Status)

	require.Len(t, session.Iterations, 2)
	first := session.Iterations[0]
	require.Len(t, first.ExecutionResults, 1)
	assert.True(t, first.ExecutionResults[0].Result.Success)
	assert.Equal(t, int64(42), first.ExecutionResults[0].Result.Value)

	// The feedback message delivered to the second model call reports
	// the execution outcome.
	secondCall := model.messages[1]
	feedback := secondCall[len(secondCall)-1]
	assert.Equal(t, llm.User, feedback.Role)
	assert.Contains(t, feedback.Content, "[execution 1] succeeded")
	assert.Contains(t, feedback.Content, "42")
}

func TestRunVaultStoreThenReferenceInCode(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{{<vault_store id="expr">}}40 + 2{{</vault_store>}}` + "\n" +
			`{{<code_execution>}}[[vault:expr]]{{</code_execution>}}`,
		`{{<final_output>}}computed{{</final_output>}}`,
	}}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "store and run")
	require.NoError(t, err)

	first := session.Iterations[0]
	require.Len(t, first.ExecutionResults, 1)
	result := first.ExecutionResults[0].Result
	require.True(t, result.Success, "store applies before the code resolves: %+v", result.Error)
	assert.Equal(t, int64(42), result.Value)

	entry, err := o.Vault().Get(context.Background(), "expr")
	require.NoError(t, err)
	assert.Equal(t, "[[vault:expr]]", entry.Reference)
}

func TestRunFinalOutputResolvesReferences(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{{<vault_store id="answer">}}forty-two{{</vault_store>}}`,
		`{{<final_output>}}The answer: [[vault:answer]]{{</final_output>}}`,
	}}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "resolve")
	require.NoError(t, err)
	assert.Equal(t, "The answer: forty-two", session.FinalOutput)
}

func TestRunMissingReferenceIsIsolatedFailure(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{{<code_execution>}}[[vault:nope]]{{</code_execution>}}` + "\n" +
			`{{<code_execution>}}1 + 1{{</code_execution>}}`,
		`{{<final_output>}}recovered{{</final_output>}}`,
	}}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "partial failure")
	require.NoError(t, err)

	first := session.Iterations[0]
	require.Len(t, first.ExecutionResults, 2)
	failed := first.ExecutionResults[0].Result
	require.NotNil(t, failed.Error)
	assert.Equal(t, sandbox.ErrorKindReference, failed.Error.Kind)
	assert.Contains(t, failed.Error.Message, "nope")
	assert.True(t, first.ExecutionResults[1].Result.Success,
		"sibling execution unaffected by the failure")

	assert.Equal(t, SessionStatusCompleted, session.Status)
}

func TestRunBudgetExhaustion(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"{{<continue_reasoning />}}",
		"{{<continue_reasoning />}}",
	}}
	o := newTestOrchestrator(t, model, func(opts *OrchestratorOptions) {
		opts.MaxIterations = 2
	})

	session, err := o.Run(context.Background(), "never finish")
	require.ErrorIs(t, err, ErrMaxIterations)
	assert.Equal(t, SessionStatusFailed, session.Status)
	assert.Contains(t, session.Error, "2 iterations")
	assert.Len(t, session.Iterations, 2, "history retained on failure")
}

func TestRunModelFailure(t *testing.T) {
	model := &scriptedModel{err: errors.New("provider down")}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "doomed")
	require.Error(t, err)
	assert.Equal(t, SessionStatusFailed, session.Status)
	assert.Contains(t, session.Error, "provider down")
}

func TestRunStopBetweenIterations(t *testing.T) {
	model := &scriptedModel{replies: []string{"unused"}}
	o := newTestOrchestrator(t, model)
	o.Stop()

	session, err := o.Run(context.Background(), "halt")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusStopped, session.Status)
	assert.Zero(t, model.calls, "stop takes effect before the model call")
}

func TestRunAfterStoppedSessionProceeds(t *testing.T) {
	model := &scriptedModel{replies: []string{"fine, thanks"}}
	o := newTestOrchestrator(t, model)

	o.Stop()
	stopped, err := o.Run(context.Background(), "halt")
	require.NoError(t, err)
	require.Equal(t, SessionStatusStopped, stopped.Status)

	// The stop request was consumed; the next session runs normally.
	session, err := o.Run(context.Background(), "how are you?")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusCompleted, session.Status)
	assert.Equal(t, "fine, thanks", session.FinalOutput)
	assert.Equal(t, 1, model.calls)
}

func TestRunMemoryStoreFeedsNextPrompt(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"{{<memory_store>}}the user prefers metric units{{</memory_store>}}",
		"{{<final_output>}}noted{{</final_output>}}",
	}}
	o := newTestOrchestrator(t, model)

	_, err := o.Run(context.Background(), "remember this")
	require.NoError(t, err)

	require.Len(t, model.prompts, 2)
	assert.NotContains(t, model.prompts[0], "metric units")
	assert.Contains(t, model.prompts[1], "the user prefers metric units")
	assert.Equal(t, 1, o.Memory().Len())
}

func TestRunMalformedTagFeedback(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"{{<vault_store>}}never closed",
		"{{<final_output>}}fixed{{</final_output>}}",
	}}
	o := newTestOrchestrator(t, model)

	session, err := o.Run(context.Background(), "broken tags")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusCompleted, session.Status)

	require.Len(t, session.Iterations, 2)
	assert.NotEmpty(t, session.Iterations[0].Diagnostics)

	secondCall := model.messages[1]
	feedback := secondCall[len(secondCall)-1]
	assert.Contains(t, feedback.Content, "[parse]")
}

func TestRunPersistsSessions(t *testing.T) {
	repo := NewMemorySessionRepository()
	model := &scriptedModel{replies: []string{"done"}}
	o := newTestOrchestrator(t, model, func(opts *OrchestratorOptions) {
		opts.Sessions = repo
	})

	session, err := o.Run(context.Background(), "persist me")
	require.NoError(t, err)

	stored, err := repo.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionStatusCompleted, stored.Status)
	assert.Equal(t, "done", stored.FinalOutput)
}

func TestRunLargeExecutionValueIsVaulted(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{{<code_execution>}}"x" * 1000{{</code_execution>}}`,
		"{{<final_output>}}big{{</final_output>}}",
	}}
	o := newTestOrchestrator(t, model)

	_, err := o.Run(context.Background(), "big value")
	require.NoError(t, err)

	secondCall := model.messages[1]
	feedback := secondCall[len(secondCall)-1]
	assert.Contains(t, feedback.Content, "[[vault:", "large value reported by reference")

	entries, err := o.Vault().List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "execution", entries[0].Source)
}

func TestRunSandboxToolCapability(t *testing.T) {
	model := &scriptedModel{replies: []string{
		`{{<code_execution>}}vault_put("kept", id="from-code"){{</code_execution>}}`,
		"{{<final_output>}}stored{{</final_output>}}",
	}}
	o := newTestOrchestrator(t, model)

	_, err := o.Run(context.Background(), "use capability")
	require.NoError(t, err)

	content, err := o.Vault().Retrieve(context.Background(), "from-code", "full", 0)
	require.NoError(t, err)
	assert.Equal(t, "kept", content)
}
