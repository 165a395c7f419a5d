package eino

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	gemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"
)

// Config selects the LLM provider and model.
type Config struct {
	Provider string `json:"provider"` // only "gemini" for now
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

// Service wraps an Eino chat model.
type Service struct {
	config       Config
	chatModel    model.BaseChatModel
	geminiClient *genai.Client
}

// TokenUsage is reported alongside generated text.
type TokenUsage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}

func NewService(config Config) (*Service, error) {
	s := &Service{config: config}
	switch strings.ToLower(config.Provider) {
	case "gemini", "":
		if err := s.initializeGeminiModel(); err != nil {
			return nil, fmt.Errorf("failed to initialize chat model: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported provider: %s. Supported: gemini", config.Provider)
	}
	return s, nil
}

// NewServiceWithModel uses a pre-configured chat model, e.g. a test double.
func NewServiceWithModel(config Config, chatModel model.BaseChatModel) *Service {
	return &Service{config: config, chatModel: chatModel}
}

func (s *Service) initializeGeminiModel() error {
	if s.config.APIKey == "" {
		return fmt.Errorf("gemini api key not configured")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  s.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.geminiClient = client

	m, err := gemini.NewChatModel(context.Background(), &gemini.Config{
		Client: client,
		Model:  s.config.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini chat model: %w", err)
	}
	s.chatModel = m
	return nil
}

// Generate formats tpl with vars and returns the model's reply text.
func (s *Service) Generate(ctx context.Context, tpl prompt.ChatTemplate, vars map[string]any) (string, *TokenUsage, error) {
	if s.chatModel == nil {
		return "", nil, fmt.Errorf("chat model not initialized")
	}
	messages, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", nil, fmt.Errorf("failed to format chat template: %w", err)
	}
	resp, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", nil, fmt.Errorf("LLM generation failed: %w", err)
	}
	return resp.Content, s.usage(messages, resp), nil
}

func (s *Service) usage(in []*schema.Message, out *schema.Message) *TokenUsage {
	u := &TokenUsage{}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		u.InputTokens = int32(out.ResponseMeta.Usage.PromptTokens)
		u.OutputTokens = int32(out.ResponseMeta.Usage.CompletionTokens)
		u.TotalTokens = int32(out.ResponseMeta.Usage.TotalTokens)
		return u
	}
	// ~4 characters per token, the ratio Gemini documents
	for _, m := range in {
		u.InputTokens += int32(len(m.Content) / 4)
	}
	u.OutputTokens = int32(len(out.Content) / 4)
	u.TotalTokens = u.InputTokens + u.OutputTokens
	return u
}

// CountPromptTokens asks the Gemini API for the exact input token count.
func (s *Service) CountPromptTokens(ctx context.Context, messages []*schema.Message) (int32, error) {
	if s.geminiClient == nil {
		return 0, fmt.Errorf("gemini client not initialized")
	}
	var contents []*genai.Content
	for _, msg := range messages {
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
	}
	resp, err := s.geminiClient.Models.CountTokens(ctx, s.config.Model, contents, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens with Gemini API: %w", err)
	}
	return resp.TotalTokens, nil
}

// StripCodeFence removes a surrounding ```json fence models like to add.
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
