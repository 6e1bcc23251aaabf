// Package strand orchestrates LLM reasoning sessions around a tagged
// mini-language. Model output is parsed for tagged operations (vault
// storage and retrieval, sandboxed code execution, memory notes, final
// output), the operations are applied by the host, and structured
// feedback is appended to the conversation until the model produces a
// final answer or exhausts its iteration budget.
package strand

import (
	"errors"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/strand/llm"
	"github.com/deepnoodle-ai/strand/sandbox"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when attempting to access a session
// that does not exist.
var ErrSessionNotFound = errors.New("session not found")

// SessionStatus describes the lifecycle state of a session.
type SessionStatus string

const (
	SessionStatusCreated   SessionStatus = "created"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusStopped   SessionStatus = "stopped"
)

// Session is one orchestrated reasoning run: the input, the full
// conversation, the per-iteration record, and the final outcome.
type Session struct {
	// ID uniquely identifies this session.
	ID string `json:"id"`

	// Status is the current lifecycle state.
	Status SessionStatus `json:"status"`

	// Input is the user request that started the session.
	Input string `json:"input"`

	// FinalOutput is the answer produced by a completed session.
	FinalOutput string `json:"final_output,omitempty"`

	// Error describes why a failed session failed.
	Error string `json:"error,omitempty"`

	// MaxIterations is the reasoning budget this session ran under.
	MaxIterations int `json:"max_iterations"`

	// Iterations records each model turn and what the host did with it.
	Iterations []*Iteration `json:"iterations"`

	// Messages is the complete conversation in chronological order.
	Messages []*llm.Message `json:"messages"`

	// Usage accumulates token usage across all iterations.
	Usage llm.Usage `json:"usage"`

	// CreatedAt is when this session was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this session was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Iteration records one model turn: the raw output, the operations the
// host recognized, execution outcomes, and parse diagnostics.
type Iteration struct {
	Number              int                `json:"number"`
	ModelOutput         string             `json:"model_output"`
	Operations          []string           `json:"operations,omitempty"`
	ExecutionResults    []*ExecutionRecord `json:"execution_results,omitempty"`
	ProducedFinalOutput bool               `json:"produced_final_output,omitempty"`
	Diagnostics         []string           `json:"diagnostics,omitempty"`
}

// ExecutionRecord pairs submitted code with its sandbox outcome.
type ExecutionRecord struct {
	Code   string          `json:"code"`
	Result *sandbox.Result `json:"result"`
}

// NewSession creates a Session in the created state.
func NewSession(input string, maxIterations int) *Session {
	now := time.Now()
	return &Session{
		ID:            newSessionID(),
		Status:        SessionStatusCreated,
		Input:         input,
		MaxIterations: maxIterations,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newSessionID() string {
	return fmt.Sprintf("session-%s", uuid.New().String()[:8])
}
