package gemini

import (
	"context"
	"testing"

	"startup-hunter-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToContents_SplitsSystem(t *testing.T) {
	contents, system := toContents([]llm.Message{
		{Role: llm.RoleSystem, Content: "be terse"},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	})

	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	require.NotNil(t, system)
	assert.Equal(t, "be terse", system.Parts[0].Text)
}

func TestBuildConfig(t *testing.T) {
	cfg := buildConfig(llm.Options{Temperature: 0.5, MaxTokens: 256, JSON: true}, nil)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0.5), *cfg.Temperature)
	assert.Equal(t, int32(256), cfg.MaxOutputTokens)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(context.Background(), "", "")
	assert.Error(t, err)
}
