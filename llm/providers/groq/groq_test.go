package groq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	provider := New(WithAPIKey("k"))
	assert.Equal(t, "groq-llama-3.3-70b-versatile", provider.Name())
	assert.NotNil(t, provider.Provider)
}

func TestModelOverride(t *testing.T) {
	provider := New(WithAPIKey("k"), WithModel("qwen-2.5-32b"))
	assert.Equal(t, "groq-qwen-2.5-32b", provider.Name())
}
