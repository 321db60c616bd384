package llmsvc

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const (
	offlineReply   = "Thank you for sharing that with me. It sounds like a lot to carry. What feels most important to you right now?"
	offlineSummary = "The student checked in with the companion and talked about how they were feeling."
)

// OfflineModel answers with canned text. It lets the API run locally without an LLM provider.
type OfflineModel struct{}

var _ llms.Model = OfflineModel{}

func (OfflineModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	text := offlineReply
	if len(messages) > 0 && isSummaryRequest(messages[0]) {
		text = offlineSummary
	}
	if opts.StreamingFunc != nil {
		for _, word := range strings.SplitAfter(text, " ") {
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (m OfflineModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func isSummaryRequest(msg llms.MessageContent) bool {
	for _, part := range msg.Parts {
		if txt, ok := part.(llms.TextContent); ok && txt.Text == summaryPrompt {
			return true
		}
	}
	return false
}
