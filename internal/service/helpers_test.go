package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/ora-civic/ora/internal/ai"
	"github.com/ora-civic/ora/internal/database/memory"
	"github.com/ora-civic/ora/internal/database/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errModelDown = errors.New("model unavailable")

// scriptedModel answers each response schema with a fixed document.
type scriptedModel struct {
	mu        sync.Mutex
	responses map[*genai.Schema]string
	failures  map[*genai.Schema]error
	calls     map[*genai.Schema]int
	prompts   map[*genai.Schema][]string
}

func newScriptedModel() *scriptedModel {
	return &scriptedModel{
		responses: make(map[*genai.Schema]string),
		failures:  make(map[*genai.Schema]error),
		calls:     make(map[*genai.Schema]int),
		prompts:   make(map[*genai.Schema][]string),
	}
}

func (m *scriptedModel) on(schema *genai.Schema, response string) *scriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[schema] = response
	return m
}

func (m *scriptedModel) fail(schema *genai.Schema, err error) *scriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[schema] = err
	return m
}

func (m *scriptedModel) Generate(_ context.Context, prompt string, schema *genai.Schema) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[schema]++
	m.prompts[schema] = append(m.prompts[schema], prompt)

	if err := m.failures[schema]; err != nil {
		return nil, err
	}
	response, ok := m.responses[schema]
	if !ok {
		return nil, errModelDown
	}
	return []byte(response), nil
}

func (m *scriptedModel) callCount(schema *genai.Schema) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[schema]
}

func (m *scriptedModel) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *scriptedModel) lastPrompt(schema *genai.Schema) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	prompts := m.prompts[schema]
	if len(prompts) == 0 {
		return ""
	}
	return prompts[len(prompts)-1]
}

func newFlows(t *testing.T, model *scriptedModel) *ai.Flows {
	t.Helper()
	return ai.NewFlows(model, zaptest.NewLogger(t))
}

var baseTime = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

// seedPost stores a post with the given tally.
func seedPost(t *testing.T, store *memory.Store, post types.Post) *types.Post {
	t.Helper()

	if post.Category == "" {
		post.Category = types.CategoryCitizen
	}
	if post.Title == "" {
		post.Title = "Proposal " + post.ID
	}
	if post.FullDescription == "" {
		post.FullDescription = "Details of " + post.ID
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = baseTime
	}

	require.NoError(t, store.CreatePost(t.Context(), &post))
	return &post
}
