package ollama

import (
	"testing"
	"time"

	"startup-hunter-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChatRequest(t *testing.T) {
	req := buildChatRequest(
		[]llm.Message{{Role: "model", Content: "prev"}, {Role: llm.RoleUser, Content: "hi"}},
		llm.Options{Model: "llama3", Temperature: 0.3, MaxTokens: 100, JSON: true},
	)

	assert.Equal(t, "llama3", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleAssistant, req.Messages[0].Role)
	require.NotNil(t, req.Stream)
	assert.False(t, *req.Stream)
	assert.Equal(t, 0.3, req.Options["temperature"])
	assert.Equal(t, 100, req.Options["num_predict"])
	assert.Equal(t, `"json"`, string(req.Format))
}

func TestNewOllamaProvider_BadURL(t *testing.T) {
	_, err := NewOllamaProvider("://bad", "llama3", time.Second)
	assert.Error(t, err)
}
