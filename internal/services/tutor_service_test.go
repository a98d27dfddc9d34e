package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"proacademics-service/internal/config"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM returns canned replies and records every prompt it receives.
type scriptedLLM struct {
	reply   string
	err     error
	prompts [][]models.ChatMessage
}

func (s *scriptedLLM) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	s.prompts = append(s.prompts, messages)
	return s.reply, s.err
}

func newTutor(llm ChatCompleter) (*TutorService, *repository.MemoryStore[models.ChatSession]) {
	sessions := repository.NewMemoryStore[models.ChatSession]()
	tutor := NewTutorService(sessions, llm)
	tutor.now = fixedClock
	return tutor, sessions
}

func TestChatCreatesAndContinuesSession(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedLLM{reply: "Let's start with what a gradient measures."}
	tutor, sessions := newTutor(llm)

	reply, err := tutor.Chat(ctx, "student-1", &models.ChatRequest{Subject: "Mathematics", Message: "What is a gradient?"})
	require.NoError(t, err)
	assert.False(t, reply.Fallback)
	assert.Equal(t, llm.reply, reply.Reply)
	assert.NotEmpty(t, reply.SessionID)
	assert.Equal(t, 1, sessions.Len())

	require.Len(t, llm.prompts, 1)
	assert.Equal(t, models.ChatRoleSystem, llm.prompts[0][0].Role)
	assert.Contains(t, llm.prompts[0][0].Content, "Mathematics")
	assert.Equal(t, "What is a gradient?", llm.prompts[0][1].Content)

	_, err = tutor.Chat(ctx, "student-1", &models.ChatRequest{SessionID: reply.SessionID, Message: "And the intercept?"})
	require.NoError(t, err)
	require.Len(t, llm.prompts, 2)
	assert.Len(t, llm.prompts[1], 4)

	session, err := tutor.GetSession(ctx, "student-1", reply.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Messages, 4)
	assert.Equal(t, "Mathematics", session.Subject)

	_, err = tutor.GetSession(ctx, "student-2", reply.SessionID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tutor.Chat(ctx, "student-2", &models.ChatRequest{SessionID: reply.SessionID, Message: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tutor.GetSession(ctx, "student-1", "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestChatLimitsHistory(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedLLM{reply: "ok"}
	tutor, _ := newTutor(llm)

	reply, err := tutor.Chat(ctx, "student-1", &models.ChatRequest{Message: "first"})
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := tutor.Chat(ctx, "student-1", &models.ChatRequest{SessionID: reply.SessionID, Message: "again"})
		require.NoError(t, err)
	}

	last := llm.prompts[len(llm.prompts)-1]
	assert.Len(t, last, chatHistoryWindow+2)
}

func TestChatFallsBack(t *testing.T) {
	ctx := context.Background()

	for name, llm := range map[string]ChatCompleter{
		"no model":     nil,
		"model errors": &scriptedLLM{err: errors.New("rate limited")},
		"empty reply":  &scriptedLLM{},
	} {
		t.Run(name, func(t *testing.T) {
			tutor, sessions := newTutor(llm)
			reply, err := tutor.Chat(ctx, "student-1", &models.ChatRequest{Message: "help"})
			require.NoError(t, err)
			assert.True(t, reply.Fallback)
			assert.Contains(t, tutorFallbackReplies, reply.Reply)
			assert.Equal(t, 1, sessions.Len())
		})
	}
}

func TestChatValidation(t *testing.T) {
	tutor, _ := newTutor(nil)
	_, err := tutor.Chat(context.Background(), "student-1", &models.ChatRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSessionsListAndDelete(t *testing.T) {
	ctx := context.Background()
	tutor, _ := newTutor(nil)

	first, err := tutor.Chat(ctx, "student-1", &models.ChatRequest{Message: "one"})
	require.NoError(t, err)
	_, err = tutor.Chat(ctx, "student-1", &models.ChatRequest{Message: "two"})
	require.NoError(t, err)
	_, err = tutor.Chat(ctx, "student-2", &models.ChatRequest{Message: "three"})
	require.NoError(t, err)

	list, err := tutor.ListSessions(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, tutor.DeleteSession(ctx, "student-2", first.SessionID), ErrNotFound)
	require.NoError(t, tutor.DeleteSession(ctx, "student-1", first.SessionID))

	list, err = tutor.ListSessions(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPracticeQuestionsFromModel(t *testing.T) {
	llm := &scriptedLLM{reply: "Here you go:\n```json\n[{\"question\":\"2+2?\",\"answer\":\"4\"},{\"question\":\"3x3?\",\"answer\":\"9\"},{\"question\":\"\",\"answer\":\"x\"}]\n```"}
	tutor, _ := newTutor(llm)

	set, err := tutor.PracticeQuestions(context.Background(), &models.PracticeRequest{Subject: "Mathematics", Topic: "Arithmetic", Count: 3})
	require.NoError(t, err)
	assert.False(t, set.Fallback)
	require.Len(t, set.Questions, 2)
	assert.Equal(t, "2+2?", set.Questions[0].Question)
	assert.Contains(t, llm.prompts[0][1].Content, "Arithmetic")
}

func TestPracticeQuestionsFallback(t *testing.T) {
	tests := []struct {
		name    string
		llm     ChatCompleter
		subject string
		count   int
		want    int
	}{
		{"no model uses subject bank", nil, "Physics", 3, 3},
		{"unparseable output", &scriptedLLM{reply: "I cannot do that"}, "chemistry", 0, defaultPracticeCount},
		{"unknown subject uses general bank", nil, "Art History", 10, len(practiceBank["general"])},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tutor, _ := newTutor(tt.llm)
			set, err := tutor.PracticeQuestions(context.Background(), &models.PracticeRequest{Subject: tt.subject, Count: tt.count})
			require.NoError(t, err)
			assert.True(t, set.Fallback)
			assert.Len(t, set.Questions, tt.want)
		})
	}

	tutor, _ := newTutor(nil)
	_, err := tutor.PracticeQuestions(context.Background(), &models.PracticeRequest{Subject: "Physics", Count: 11})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStudyTip(t *testing.T) {
	tutor, _ := newTutor(nil)
	assert.Contains(t, studyTips, tutor.StudyTip())
}

func TestLLMClientComplete(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Think about the slope.  "}}]}`))
	}))
	defer srv.Close()

	client := NewLLMClient(config.OpenAIConfig{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/v1/",
		Model:       "gpt-4o-mini",
		Timeout:     5 * time.Second,
		Temperature: 0.2,
	})
	require.NotNil(t, client)

	reply, err := client.Complete(context.Background(), []models.ChatMessage{
		{Role: models.ChatRoleSystem, Content: "be helpful"},
		{Role: models.ChatRoleUser, Content: "gradient?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Think about the slope.", reply)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestLLMClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	client := NewLLMClient(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := client.Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit reached")

	assert.Nil(t, NewLLMClient(config.OpenAIConfig{BaseURL: srv.URL}))
}
