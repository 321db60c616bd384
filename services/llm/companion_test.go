package llmsvc_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/trezcool/utulivu/core/chat"
	llmsvc "github.com/trezcool/utulivu/services/llm"
	"github.com/trezcool/utulivu/testutil"
)

func newCompanion(model llms.Model) *llmsvc.Companion {
	conf := testutil.NewConfig()
	return llmsvc.NewCompanion(model, conf, testutil.NewLogger(conf))
}

func TestCompanion_StreamReply(t *testing.T) {
	model := testutil.NewFakeModel()
	companion := newCompanion(model)

	var chunks []string
	reply, err := companion.StreamReply(context.Background(), chat.ReplyRequest{
		StudentName:     "Amani Njeri",
		PreviousSummary: "Amani was worried about a maths test.",
		History: []chat.Message{
			{Role: chat.RoleStudent, Content: "I can't sleep"},
			{Role: chat.RoleAssistant, Content: "I'm sorry to hear that."},
		},
		Message: "Exams start tomorrow",
	}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.Reply, reply)
	assert.Equal(t, model.Reply, strings.Join(chunks, ""))
	assert.Greater(t, len(chunks), 1)

	calls := model.Calls()
	require.Len(t, calls, 1)
	msgs := calls[0]
	require.Len(t, msgs, 5)

	assert.Equal(t, schema.ChatMessageTypeSystem, msgs[0].Role)
	assert.Contains(t, testutil.Text(msgs[0]), "first name is Amani.")
	assert.Equal(t, schema.ChatMessageTypeSystem, msgs[1].Role)
	assert.Contains(t, testutil.Text(msgs[1]), "maths test")
	assert.Equal(t, schema.ChatMessageTypeHuman, msgs[2].Role)
	assert.Equal(t, schema.ChatMessageTypeAI, msgs[3].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, msgs[4].Role)
	assert.Equal(t, "Exams start tomorrow", testutil.Text(msgs[4]))
}

func TestCompanion_StreamReply_withoutContext(t *testing.T) {
	model := testutil.NewFakeModel()
	companion := newCompanion(model)

	_, err := companion.StreamReply(context.Background(), chat.ReplyRequest{Message: "hi"}, func(string) error { return nil })
	require.NoError(t, err)

	msgs := model.Calls()[0]
	require.Len(t, msgs, 2)
	assert.NotContains(t, testutil.Text(msgs[0]), "first name")
}

func TestCompanion_StreamReply_errors(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		model := testutil.NewFakeModel()
		model.Err = errors.New("rate limited")

		_, err := newCompanion(model).StreamReply(context.Background(), chat.ReplyRequest{Message: "hi"}, func(string) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("sink error stops the stream", func(t *testing.T) {
		model := testutil.NewFakeModel()
		sinkErr := errors.New("client gone")

		_, err := newCompanion(model).StreamReply(context.Background(), chat.ReplyRequest{Message: "hi"}, func(string) error { return sinkErr })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client gone")
	})

	t.Run("empty reply", func(t *testing.T) {
		model := testutil.NewFakeModel()
		model.Reply = "  "

		_, err := newCompanion(model).StreamReply(context.Background(), chat.ReplyRequest{Message: "hi"}, func(string) error { return nil })
		assert.Error(t, err)
	})
}

func TestCompanion_Summarize(t *testing.T) {
	model := testutil.NewFakeModel()
	model.Summary = "  The student felt calmer after talking.  "

	summary, err := newCompanion(model).Summarize(context.Background(), chat.SummaryRequest{
		PreviousSummary: "Worried about exams.",
		Transcript: []chat.Message{
			{Role: chat.RoleStudent, Content: "I feel better now"},
			{Role: chat.RoleAssistant, Content: "I'm glad."},
		},
		Themes:    []string{"exams"},
		EndReason: chat.ReasonUserEnded,
	})
	require.NoError(t, err)
	assert.Equal(t, "The student felt calmer after talking.", summary)

	msgs := model.Calls()[0]
	require.Len(t, msgs, 2)
	text := testutil.Text(msgs[1])
	assert.Contains(t, text, "Previous summary:\nWorried about exams.")
	assert.Contains(t, text, "Themes: exams")
	assert.Contains(t, text, "Student: I feel better now\nCompanion: I'm glad.\n")

	model.Summary = ""
	_, err = newCompanion(model).Summarize(context.Background(), chat.SummaryRequest{})
	assert.Error(t, err)
}

func TestOfflineModel(t *testing.T) {
	companion := newCompanion(llmsvc.OfflineModel{})

	var streamed strings.Builder
	reply, err := companion.StreamReply(context.Background(), chat.ReplyRequest{Message: "hello"}, func(chunk string) error {
		streamed.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, reply, streamed.String())

	summary, err := companion.Summarize(context.Background(), chat.SummaryRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, reply, summary)
}

func TestNewModel(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)

	model, err := llmsvc.NewModel(conf, logger)
	require.NoError(t, err)
	assert.IsType(t, llmsvc.OfflineModel{}, model)

	conf.Debug = false
	_, err = llmsvc.NewModel(conf, logger)
	assert.Error(t, err)

	conf.LLM.APIKey = "sk-test"
	model, err = llmsvc.NewModel(conf, logger)
	require.NoError(t, err)
	assert.NotNil(t, model)
}
