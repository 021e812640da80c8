package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"lecnote/internal/logger"
	"lecnote/internal/types"
)

// LLMConfig configures an LLMTranslator.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Source  string
	Target  string
	Timeout time.Duration
}

type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// LLMTranslator translates with an OpenAI-compatible chat model.
type LLMTranslator struct {
	model   chatGenerator
	system  string
	timeout time.Duration
	log     logger.Logger
}

func NewLLMTranslator(ctx context.Context, cfg LLMConfig) (*LLMTranslator, error) {
	chatModelConfig := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
	}
	if cfg.BaseURL != "" {
		chatModelConfig.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, chatModelConfig)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to create chat model", err)
	}
	return newLLMTranslator(chatModel, cfg), nil
}

func newLLMTranslator(m chatGenerator, cfg LLMConfig) *LLMTranslator {
	return &LLMTranslator{
		model:   m,
		system:  buildSystemPrompt(cfg.Source, cfg.Target),
		timeout: cfg.Timeout,
		log:     logger.With(logger.Component("llm-translator"), logger.String("model", cfg.Model)),
	}
}

func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

func buildSystemPrompt(source, target string) string {
	return fmt.Sprintf(`You translate lecture transcripts from %s to %s.
Reply with the translation only. Keep the meaning and tone. Do not add notes, quotes or explanations.`,
		languageName(source), languageName(target))
}

func (t *LLMTranslator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	resp, err := t.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(t.system),
		schema.UserMessage(text),
	})
	if err != nil {
		t.log.Error("chat model call failed", err)
		return "", types.NewAppError(types.ErrAPICall, "API request failed", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", types.NewAppError(types.ErrTranslation, "API returned no translation", nil)
	}
	return strings.TrimSpace(resp.Content), nil
}
