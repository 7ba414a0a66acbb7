package postprocess

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"
)

// promptLLM answers each prompt by keyword so concurrent tasks get distinct
// responses.
type promptLLM struct {
	mu            sync.Mutex
	entityErr     error
	followErr     error
	milestoneErr  error
	milestoneResp string
	calls         int
}

func (s *promptLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	prompt := ""
	if len(history) > 0 {
		prompt = history[len(history)-1].Content
	}
	return s.Generate(ctx, prompt)
}

func (s *promptLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	switch {
	case strings.Contains(prompt, "技术实体"):
		if s.entityErr != nil {
			return "", s.entityErr
		}
		return `{"entities": ["RDB", "AOF", "哨兵模式", "rdb", "Redis 持久化", ""]}`, nil
	case strings.Contains(prompt, "接下来可能想问"):
		if s.followErr != nil {
			return "", s.followErr
		}
		return `{"questions": ["RDB 和 AOF 怎么选?", "持久化对性能的影响?", "如何验证备份?", "多余的问题"]}`, nil
	case strings.Contains(prompt, "哪个里程碑"):
		if s.milestoneErr != nil {
			return "", s.milestoneErr
		}
		if s.milestoneResp != "" {
			return s.milestoneResp, nil
		}
		return `{"milestone_id": 1}`, nil
	default:
		return "", errors.New("unexpected prompt")
	}
}

func quietLogger() *log.Logger {
	return log.New(&strings.Builder{}, "", 0)
}

func docState() *state.AgentState {
	return &state.AgentState{
		Message: "介绍一下 Redis 持久化",
		Document: &state.Document{
			ID:      uuid.New(),
			Topic:   "Redis 持久化",
			Content: "# Redis 持久化\n\nRDB 与 AOF ...",
			Version: 1,
		},
	}
}

func TestProcessEnrichesDocument(t *testing.T) {
	st := docState()
	p := NewProcessor(&promptLLM{}, quietLogger())

	p.Process(context.Background(), st)

	want := []string{"RDB", "AOF", "哨兵模式"}
	if len(st.Document.Entities) != len(want) {
		t.Fatalf("entities = %v, want %v", st.Document.Entities, want)
	}
	for i, e := range want {
		if st.Document.Entities[i] != e {
			t.Errorf("entities[%d] = %q, want %q", i, st.Document.Entities[i], e)
		}
	}

	if len(st.FollowUps) != 3 {
		t.Fatalf("follow-ups = %v, want exactly 3", st.FollowUps)
	}
}

func TestProcessEntityFailureKeepsFollowUps(t *testing.T) {
	st := docState()
	p := NewProcessor(&promptLLM{entityErr: errors.New("backend down")}, quietLogger())

	p.Process(context.Background(), st)

	if len(st.Document.Entities) != 0 {
		t.Errorf("entities = %v, want none after failure", st.Document.Entities)
	}
	if len(st.FollowUps) != 3 {
		t.Errorf("follow-ups = %v, want 3 despite entity failure", st.FollowUps)
	}
}

func TestProcessAllFailuresLeaveTurnIntact(t *testing.T) {
	st := docState()
	p := NewProcessor(&promptLLM{
		entityErr: errors.New("down"),
		followErr: errors.New("down"),
	}, quietLogger())

	p.Process(context.Background(), st)

	if len(st.Document.Entities) != 0 || len(st.FollowUps) != 0 {
		t.Errorf("expected no enrichment, got entities=%v followUps=%v", st.Document.Entities, st.FollowUps)
	}
	if st.Document.Content == "" {
		t.Errorf("document content lost")
	}
}

func TestProcessSkipsWithoutDocument(t *testing.T) {
	provider := &promptLLM{}
	st := &state.AgentState{Message: "你好", ChatReply: "你好!"}

	NewProcessor(provider, quietLogger()).Process(context.Background(), st)

	if provider.calls != 0 {
		t.Errorf("calls = %d, want 0 for chitchat turn", provider.calls)
	}
}

func TestProcessClassifiesMilestone(t *testing.T) {
	roadmapID := uuid.New()
	st := docState()
	st.ActiveRoadmap = &state.Roadmap{
		ID: roadmapID,
		Milestones: []state.Milestone{
			{ID: 0, Title: "基础数据结构", Topics: []string{"string", "hash"}},
			{ID: 1, Title: "持久化", Topics: []string{"RDB", "AOF"}},
		},
	}

	NewProcessor(&promptLLM{}, quietLogger()).Process(context.Background(), st)

	if st.Document.MilestoneID == nil || *st.Document.MilestoneID != 1 {
		t.Fatalf("milestone id = %v, want 1", st.Document.MilestoneID)
	}
	if st.Document.RoadmapID == nil || *st.Document.RoadmapID != roadmapID {
		t.Fatalf("roadmap id not attached")
	}
}

func TestProcessMilestoneModelDecisionWins(t *testing.T) {
	st := docState()
	st.ActiveRoadmap = &state.Roadmap{
		ID: uuid.New(),
		Milestones: []state.Milestone{
			{ID: 0, Title: "基础数据结构", Topics: []string{"string", "hash"}},
			{ID: 1, Title: "持久化", Topics: []string{"RDB", "AOF"}},
		},
	}

	// Lexical matching would pick milestone 1 for this topic; the model's
	// answer takes precedence.
	p := NewProcessor(&promptLLM{milestoneResp: `{"milestone_id": 0}`}, quietLogger())
	p.Process(context.Background(), st)

	if st.Document.MilestoneID == nil || *st.Document.MilestoneID != 0 {
		t.Fatalf("milestone id = %v, want model's pick 0", st.Document.MilestoneID)
	}
}

func TestProcessMilestoneFallsBackToLexical(t *testing.T) {
	roadmapID := uuid.New()
	st := docState()
	st.ActiveRoadmap = &state.Roadmap{
		ID: roadmapID,
		Milestones: []state.Milestone{
			{ID: 0, Title: "基础数据结构", Topics: []string{"string", "hash"}},
			{ID: 1, Title: "持久化", Topics: []string{"RDB", "AOF"}},
		},
	}

	tests := []struct {
		name     string
		provider *promptLLM
	}{
		{"transport error", &promptLLM{milestoneErr: errors.New("backend down")}},
		{"garbage output", &promptLLM{milestoneResp: "大概是持久化那一块吧"}},
		{"model undecided", &promptLLM{milestoneResp: `{"milestone_id": null}`}},
		{"unknown milestone id", &promptLLM{milestoneResp: `{"milestone_id": 42}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := docState()
			local.ActiveRoadmap = st.ActiveRoadmap
			NewProcessor(tt.provider, quietLogger()).Process(context.Background(), local)

			if local.Document.MilestoneID == nil || *local.Document.MilestoneID != 1 {
				t.Fatalf("milestone id = %v, want lexical fallback 1", local.Document.MilestoneID)
			}
			if local.Document.RoadmapID == nil || *local.Document.RoadmapID != roadmapID {
				t.Fatalf("roadmap id not attached")
			}
		})
	}
}

func TestProcessKeepsExistingMilestone(t *testing.T) {
	st := docState()
	existing := 0
	st.Document.MilestoneID = &existing
	st.ActiveRoadmap = &state.Roadmap{
		ID:         uuid.New(),
		Milestones: []state.Milestone{{ID: 1, Title: "持久化", Topics: []string{"RDB"}}},
	}

	NewProcessor(&promptLLM{}, quietLogger()).Process(context.Background(), st)

	if *st.Document.MilestoneID != 0 {
		t.Errorf("milestone id = %d, want existing assignment kept", *st.Document.MilestoneID)
	}
}
