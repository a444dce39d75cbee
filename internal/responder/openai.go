package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"assistant/internal/chat"
	"assistant/internal/contextmgr"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig SDK provider 配置
// OpenAIConfig is the SDK provider configuration
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	TimeoutMS   int
	MaxRetries  int
	Temperature *float64
	MaxTokens   int
	// ContextTokens bounds the history sent upstream. Zero sends everything.
	ContextTokens int
}

// OpenAI 使用 go-openai SDK 的回复生成器
// OpenAI is a Provider backed by an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client   *openai.Client
	cfg      OpenAIConfig
	settings func() chat.UserSettings
	window   contextmgr.Window
	now      func() time.Time

	mu    sync.RWMutex
	model string
}

// NewOpenAI creates the provider. settings is read on every request so edits made
// in the settings editor apply to the next reply; nil uses the defaults.
func NewOpenAI(cfg OpenAIConfig, settings func() chat.UserSettings) *OpenAI {
	config := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		config.BaseURL = base
	}
	httpClient := &http.Client{}
	if cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	config.HTTPClient = httpClient

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if settings == nil {
		settings = chat.DefaultUserSettings
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(config),
		cfg:      cfg,
		settings: settings,
		window: contextmgr.Window{
			Budget:     cfg.ContextTokens,
			KeepRecent: 2,
		},
		now:   time.Now,
		model: cfg.Model,
	}
}

func (p *OpenAI) Name() string {
	return "openai"
}

func (p *OpenAI) CurrentModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

func (p *OpenAI) SetModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model is empty")
	}
	p.mu.Lock()
	p.model = model
	p.mu.Unlock()
	return nil
}

// ListModels 列出可用模型
// ListModels lists the models the endpoint serves.
func (p *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	resp, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	out := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, m.ID)
	}
	return out, nil
}

func (p *OpenAI) Reply(ctx context.Context, history []chat.Message, content string) (chat.Message, error) {
	req := p.buildRequest(history, content)

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(150*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return chat.Message{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
		text, err := p.stream(ctx, req)
		if err == nil {
			return assistantMessage(text, nil, p.now), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return chat.Message{}, ctx.Err()
		}
		// 不可重试的错误 / Non-retryable errors
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyReply) {
			return chat.Message{}, err
		}
	}
	return chat.Message{}, fmt.Errorf("reply failed after %d retries: %w", p.cfg.MaxRetries, lastErr)
}

func (p *OpenAI) buildRequest(history []chat.Message, content string) openai.ChatCompletionRequest {
	model := p.CurrentModel()
	w := p.window
	if w.Budget > 0 {
		w.Tokenizer = contextmgr.ForModel(model)
	}
	trimmed := w.Fit(history)
	system := SystemPrompt(p.settings())
	if trimmed.Summary != "" {
		system += "\n\n" + trimmed.Summary
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(trimmed.Messages)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	messages = append(messages, convertMessages(trimmed.Messages)...)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content})

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}
	if p.cfg.Temperature != nil {
		req.Temperature = float32(*p.cfg.Temperature)
	}
	if p.cfg.MaxTokens > 0 {
		req.MaxTokens = p.cfg.MaxTokens
	}
	return req
}

func (p *OpenAI) stream(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create stream: %w", err)
	}
	defer stream.Close()

	var content strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// 取消或超时时丢弃已收到的部分内容
			// A cancelled or timed-out reply is never returned, even partially.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			// 其他流错误：已有部分内容则返回已有的
			// Other stream errors keep what already arrived.
			if content.Len() > 0 {
				break
			}
			return "", fmt.Errorf("recv stream: %w", err)
		}
		for _, choice := range resp.Choices {
			content.WriteString(choice.Delta.Content)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := strings.TrimSpace(content.String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func convertMessages(messages []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
