package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoModel struct {
	meta *schema.ResponseMeta
}

func (m *echoModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	out := schema.AssistantMessage("reply:"+in[len(in)-1].Content, nil)
	out.ResponseMeta = m.meta
	return out, nil
}

func (m *echoModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func template() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString, schema.UserMessage("outline for {site}"))
}

func TestGenerateReportsModelUsage(t *testing.T) {
	s := NewServiceWithModel(Config{Model: "m"}, &echoModel{meta: &schema.ResponseMeta{
		Usage: &schema.TokenUsage{PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18},
	}})
	out, usage, err := s.Generate(context.Background(), template(), map[string]any{"site": "a.test"})
	require.NoError(t, err)
	assert.Equal(t, "reply:outline for a.test", out)
	assert.Equal(t, &TokenUsage{InputTokens: 11, OutputTokens: 7, TotalTokens: 18}, usage)
}

func TestGenerateEstimatesUsageWithoutMeta(t *testing.T) {
	s := NewServiceWithModel(Config{Model: "m"}, &echoModel{})
	_, usage, err := s.Generate(context.Background(), template(), map[string]any{"site": "abcd"})
	require.NoError(t, err)
	// "outline for abcd" is 16 chars, the reply 22
	assert.Equal(t, int32(4), usage.InputTokens)
	assert.Equal(t, int32(5), usage.OutputTokens)
	assert.Equal(t, int32(9), usage.TotalTokens)
}

func TestNewServiceNeedsKey(t *testing.T) {
	_, err := NewService(Config{Provider: "gemini"})
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, StripCodeFence("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[]`, StripCodeFence("  []  "))
}
