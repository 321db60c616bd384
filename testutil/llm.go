package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeModel is a llms.Model answering with canned text.
// Streamed calls get Reply, the others (summaries) get Summary.
type FakeModel struct {
	Reply   string
	Summary string
	Err     error

	mu    sync.Mutex
	calls [][]llms.MessageContent
}

var _ llms.Model = (*FakeModel)(nil)

func NewFakeModel() *FakeModel {
	return &FakeModel{
		Reply:   "That sounds hard. What would help you most right now?",
		Summary: "The student talked about feeling stressed before exams.",
	}
}

func (m *FakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	text := m.Summary
	if opts.StreamingFunc != nil {
		text = m.Reply
		for _, word := range strings.SplitAfter(text, " ") {
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (m *FakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns the messages of every call made so far.
func (m *FakeModel) Calls() [][]llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]llms.MessageContent(nil), m.calls...)
}

// Text joins the text parts of msg.
func Text(msg llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if txt, ok := part.(llms.TextContent); ok {
			b.WriteString(txt.Text)
		}
	}
	return b.String()
}
