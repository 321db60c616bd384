package llmsvc

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
)

const (
	replyMaxTokens     = 600
	summaryMaxTokens   = 250
	summaryTemperature = 0.3
)

var errEmptyResponse = errors.New("the model returned an empty response")

// NewModel returns the OpenAI-compatible chat model configured in conf.
// Without an API key, debug builds talk to an offline model instead.
func NewModel(conf *core.Config, logger core.Logger) (llms.Model, error) {
	if conf.LLM.APIKey == "" {
		if conf.Debug {
			logger.Warn("no LLM API key configured: using the offline companion")
			return OfflineModel{}, nil
		}
		return nil, errors.New("llm: an API key is required")
	}

	opts := []openai.Option{
		openai.WithToken(conf.LLM.APIKey),
		openai.WithModel(conf.LLM.Model),
	}
	if conf.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(conf.LLM.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating openai client")
	}
	return model, nil
}

// Companion talks to the students through a language model.
type Companion struct {
	model       llms.Model
	temperature float64
	logger      core.Logger
}

var _ chat.Companion = (*Companion)(nil)

func NewCompanion(model llms.Model, conf *core.Config, logger core.Logger) *Companion {
	return &Companion{
		model:       model,
		temperature: conf.LLM.Temperature,
		logger:      logger,
	}
}

func (c *Companion) StreamReply(ctx context.Context, req chat.ReplyRequest, onChunk func(chunk string) error) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, companionSystemPrompt(req.StudentName)),
	}
	if req.PreviousSummary != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, previousSummaryPrompt(req.PreviousSummary)))
	}
	for _, msg := range req.History {
		role := schema.ChatMessageTypeHuman
		if msg.Role == chat.RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, req.Message))

	var streamed strings.Builder
	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(replyMaxTokens),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed.Write(chunk)
			return onChunk(string(chunk))
		}),
	)
	if err != nil {
		return "", errors.Wrap(err, "generating reply")
	}

	reply := streamed.String()
	if reply == "" {
		reply = firstChoice(resp)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptyResponse
	}
	return reply, nil
}

func (c *Companion) Summarize(ctx context.Context, req chat.SummaryRequest) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, summaryPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, summaryRequestText(req)),
	}
	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(summaryTemperature),
		llms.WithMaxTokens(summaryMaxTokens),
	)
	if err != nil {
		return "", errors.Wrap(err, "generating summary")
	}
	summary := strings.TrimSpace(firstChoice(resp))
	if summary == "" {
		return "", errEmptyResponse
	}
	return summary, nil
}

func firstChoice(resp *llms.ContentResponse) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Content
}
