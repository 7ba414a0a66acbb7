package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubLLM struct {
	response string
	err      error
	calls    int
}

func (s *stubLLM) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubLLM) Generate(ctx context.Context, _ string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, nil, opts...)
}

func docRef(topic string) state.DocumentRef {
	return state.DocumentRef{ID: uuid.New(), Topic: topic}
}

func sessionWithDocs() *state.AgentState {
	doc := docRef("Redis 基础")
	return &state.AgentState{
		CurrentDocID:  &doc.ID,
		AvailableDocs: []state.DocumentRef{doc},
	}
}

func TestRouteFastPath(t *testing.T) {
	stub := &stubLLM{response: `{"action": "navigate", "mode": "standard"}`}
	r := NewRouter(stub, nil)

	tests := []struct {
		name       string
		intent     string
		st         *state.AgentState
		wantAction string
		wantMode   string
	}{
		{
			name:       "new topic with existing docs and no roadmap",
			intent:     state.IntentNewTopic,
			st:         sessionWithDocs(),
			wantAction: state.ActionGenerateNew,
			wantMode:   state.ModeStandard,
		},
		{
			name:       "follow up with current document",
			intent:     state.IntentFollowUp,
			st:         sessionWithDocs(),
			wantAction: state.ActionGenerateNew,
			wantMode:   state.ModeStandard,
		},
		{
			name:       "comparison",
			intent:     state.IntentComparison,
			st:         sessionWithDocs(),
			wantAction: state.ActionGenerateNew,
			wantMode:   state.ModeComparison,
		},
		{
			name:       "optimize content with current document",
			intent:     state.IntentOptimizeContent,
			st:         sessionWithDocs(),
			wantAction: state.ActionUpdateDoc,
			wantMode:   state.ModeStandard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := stub.calls
			tt.st.Intent = &state.IntentResult{Type: tt.intent, Target: "Redis"}
			decision := r.Route(context.Background(), tt.st)

			assert.Equal(t, tt.wantAction, decision.Action)
			assert.Equal(t, tt.wantMode, decision.Mode)
			assert.Equal(t, MethodRule, decision.Method)
			assert.Equal(t, before, stub.calls, "fast path must not consult the LLM")
		})
	}
}

func TestRouteFirstTopicSkipsFastPathAndForcesPlan(t *testing.T) {
	// The LLM tries to answer generate_new; the override must win anyway.
	stub := &stubLLM{response: `{"action": "generate_new", "mode": "standard", "reasoning": "just generate", "confidence": 0.9}`}
	r := NewRouter(stub, nil)

	st := &state.AgentState{
		Intent: &state.IntentResult{Type: state.IntentNewTopic, Target: "Redis"},
	}
	decision := r.Route(context.Background(), st)

	assert.Equal(t, 1, stub.calls, "first topic must escalate to the LLM path")
	assert.Equal(t, state.ActionPlan, decision.Action)
	assert.Equal(t, state.ModeRoadmapGenerate, decision.Mode)
	assert.True(t, strings.HasPrefix(decision.Reasoning, firstTopicReason))
}

func TestRouteNavigateWithoutTargetDowngrades(t *testing.T) {
	stub := &stubLLM{response: `{"action": "navigate", "mode": "standard", "reasoning": "go there", "confidence": 0.8}`}
	r := NewRouter(stub, nil)

	st := sessionWithDocs()
	st.Intent = &state.IntentResult{Type: state.IntentQuestion, Target: "持久化"}
	decision := r.Route(context.Background(), st)

	assert.Equal(t, state.ActionGenerateNew, decision.Action)
	assert.Equal(t, state.ModeStandard, decision.Mode, "mode must be preserved on downgrade")
	assert.True(t, strings.HasPrefix(decision.Reasoning, noTargetReason))
}

func TestRouteNavigateWithResolvableTarget(t *testing.T) {
	st := sessionWithDocs()
	target := st.AvailableDocs[0].ID
	stub := &stubLLM{response: fmt.Sprintf(
		`{"action": "navigate", "mode": "standard", "target_doc_id": "%s", "reasoning": "found it", "confidence": 0.9}`, target)}
	r := NewRouter(stub, nil)

	st.Intent = &state.IntentResult{Type: state.IntentQuestion, Target: "Redis 基础"}
	decision := r.Route(context.Background(), st)

	assert.Equal(t, state.ActionNavigate, decision.Action)
	if assert.NotNil(t, decision.TargetDocID) {
		assert.Equal(t, target, *decision.TargetDocID)
	}
}

func TestRouteUnresolvableDocIDTreatedAsMissing(t *testing.T) {
	stub := &stubLLM{response: fmt.Sprintf(
		`{"action": "navigate", "mode": "standard", "target_doc_id": "%s", "confidence": 0.9}`, uuid.New())}
	r := NewRouter(stub, nil)

	st := sessionWithDocs()
	st.Intent = &state.IntentResult{Type: state.IntentQuestion}
	decision := r.Route(context.Background(), st)

	assert.Equal(t, state.ActionGenerateNew, decision.Action)
	assert.Nil(t, decision.TargetDocID)
}

func TestRouteFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		stub       *stubLLM
		intent     string
		st         *state.AgentState
		wantAction string
		wantMode   string
	}{
		{
			name:       "llm error with plan intent and no roadmap",
			stub:       &stubLLM{err: errors.New("connection refused")},
			intent:     state.IntentPlan,
			st:         sessionWithDocs(),
			wantAction: state.ActionPlan,
			wantMode:   state.ModeRoadmapGenerate,
		},
		{
			name:   "llm garbage with roadmap",
			stub:   &stubLLM{response: "not json"},
			intent: state.IntentQuestion,
			st: &state.AgentState{
				AvailableDocs: []state.DocumentRef{docRef("Go 并发")},
				ActiveRoadmap: &state.Roadmap{Goal: "学习 Go", Milestones: []state.Milestone{{ID: 0, Title: "基础"}}},
			},
			wantAction: state.ActionGenerateNew,
			wantMode:   state.ModeRoadmapLearning,
		},
		{
			name:       "invalid action falls back",
			stub:       &stubLLM{response: `{"action": "explode", "mode": "standard"}`},
			intent:     state.IntentQuestion,
			st:         sessionWithDocs(),
			wantAction: state.ActionGenerateNew,
			wantMode:   state.ModeStandard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(tt.stub, nil)
			tt.st.Intent = &state.IntentResult{Type: tt.intent, Target: "x"}
			decision := r.Route(context.Background(), tt.st)

			assert.Equal(t, tt.wantAction, decision.Action)
			assert.Equal(t, tt.wantMode, decision.Mode)
			assert.Equal(t, MethodRule, decision.Method)
			assert.Contains(t, decision.Reasoning, "降级")
		})
	}
}

func TestRouteCommentSourceForcesExplainSelection(t *testing.T) {
	anchorID := uuid.New()
	currentID := uuid.New()

	st := &state.AgentState{
		Source:  state.SourceComment,
		Message: "这段太抽象了",
		Payload: state.Payload{
			Comment: &state.CommentPayload{
				SelectedText: "哨兵通过 quorum 判定主观下线",
				DocumentID:   &anchorID,
			},
		},
		CurrentDocID:  &currentID,
		AvailableDocs: []state.DocumentRef{{ID: anchorID, Topic: "Redis 高可用"}, {ID: currentID, Topic: "Redis"}},
		Intent:        &state.IntentResult{Type: state.IntentOptimizeContent, Target: ""},
	}

	stub := &stubLLM{response: `{"action": "update_doc", "mode": "standard"}`}
	decision := NewRouter(stub, nil).Route(context.Background(), st)

	assert.Equal(t, state.ActionGenerateNew, decision.Action)
	assert.Equal(t, state.ModeExplainSelection, decision.Mode)
	assert.Equal(t, MethodRule, decision.Method)
	if assert.NotNil(t, decision.TargetDocID) {
		assert.Equal(t, anchorID, *decision.TargetDocID)
	}
	assert.Equal(t, 0, stub.calls, "comment turns must not consult the LLM")
}

func TestRouteCommentSourceWithoutAnchorUsesCurrentDoc(t *testing.T) {
	currentID := uuid.New()

	st := &state.AgentState{
		Source:        state.SourceComment,
		Message:       "看不懂这里",
		Payload:       state.Payload{Comment: &state.CommentPayload{SelectedText: "某一段"}},
		CurrentDocID:  &currentID,
		AvailableDocs: []state.DocumentRef{{ID: currentID, Topic: "Go 并发"}},
		Intent:        &state.IntentResult{Type: state.IntentOptimizeContent},
	}

	decision := NewRouter(&stubLLM{}, nil).Route(context.Background(), st)

	assert.Equal(t, state.ModeExplainSelection, decision.Mode)
	if assert.NotNil(t, decision.TargetDocID) {
		assert.Equal(t, currentID, *decision.TargetDocID)
	}
}
