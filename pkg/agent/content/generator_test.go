package content

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"

	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"
)

type stubLLM struct {
	response string
	err      error
	prompts  []string
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	for _, m := range history {
		s.prompts = append(s.prompts, m.Content)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
}

type stubStreamLLM struct {
	stubLLM
	chunks []string
}

func (s *stubStreamLLM) Stream(ctx context.Context, history []llm.Message, onToken llm.TokenFunc, opts ...llm.Option) (string, error) {
	for _, m := range history {
		s.prompts = append(s.prompts, m.Content)
	}
	if s.err != nil {
		return "", s.err
	}
	var b strings.Builder
	for _, chunk := range s.chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if onToken != nil {
			if err := onToken(chunk); err != nil {
				return "", err
			}
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func quietLogger() *log.Logger {
	return log.New(&strings.Builder{}, "", 0)
}

func TestGenerateStreamsTokens(t *testing.T) {
	provider := &stubStreamLLM{chunks: []string{"# Redis", " 简介", "\n\n正文"}}
	gen := NewGenerator(provider, quietLogger())

	st := &state.AgentState{
		Message:  "什么是 Redis",
		Intent:   &state.IntentResult{Type: state.IntentNewTopic, Target: "Redis"},
		Decision: &state.RoutingDecision{Action: state.ActionGenerateNew, Mode: state.ModeStandard, Target: "Redis"},
	}

	var tokens []string
	doc, err := gen.Generate(context.Background(), st, func(token string) error {
		tokens = append(tokens, token)
		return nil
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tokens) != 3 {
		t.Errorf("tokens = %d, want 3", len(tokens))
	}
	if doc.Content != "# Redis 简介\n\n正文" {
		t.Errorf("content = %q", doc.Content)
	}
	if doc.Topic != "Redis" {
		t.Errorf("topic = %q, want Redis", doc.Topic)
	}
	if doc.Version != 1 {
		t.Errorf("version = %d, want 1", doc.Version)
	}
	if doc.CategoryPath != "数据库/Redis" {
		t.Errorf("category = %q", doc.CategoryPath)
	}
}

func TestGenerateFallsBackWhenProviderCannotStream(t *testing.T) {
	provider := &stubLLM{response: "完整文档"}
	gen := NewGenerator(provider, quietLogger())

	st := &state.AgentState{
		Message:  "介绍一下 Kafka",
		Decision: &state.RoutingDecision{Action: state.ActionGenerateNew, Mode: state.ModeStandard, Target: "Kafka"},
	}

	var tokens []string
	doc, err := gen.Generate(context.Background(), st, func(token string) error {
		tokens = append(tokens, token)
		return nil
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "完整文档" {
		t.Errorf("tokens = %v, want single whole-response token", tokens)
	}
	if doc.Content != "完整文档" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestGenerateCancellationSurfacesContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &stubStreamLLM{chunks: []string{"a", "b"}}
	gen := NewGenerator(provider, quietLogger())

	st := &state.AgentState{
		Decision: &state.RoutingDecision{Action: state.ActionGenerateNew, Mode: state.ModeStandard, Target: "Go"},
	}

	_, err := gen.Generate(ctx, st, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestGenerateRoadmapLearningLinksMilestone(t *testing.T) {
	roadmapID := uuid.New()
	roadmap := &state.Roadmap{
		ID:   roadmapID,
		Goal: "成为后端工程师",
		Milestones: []state.Milestone{
			{ID: 0, Title: "Go 基础", Topics: []string{"语法", "并发"}},
			{ID: 1, Title: "数据库", Topics: []string{"MySQL", "Redis"}},
		},
	}

	provider := &stubStreamLLM{chunks: []string{"doc"}}
	gen := NewGenerator(provider, quietLogger())

	st := &state.AgentState{
		Message:       "学习 Redis",
		ActiveRoadmap: roadmap,
		Decision:      &state.RoutingDecision{Action: state.ActionGenerateNew, Mode: state.ModeRoadmapLearning, Target: "Redis"},
	}

	doc, err := gen.Generate(context.Background(), st, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.RoadmapID == nil || *doc.RoadmapID != roadmapID {
		t.Fatalf("roadmap id not linked")
	}
	if doc.MilestoneID == nil || *doc.MilestoneID != 1 {
		t.Fatalf("milestone id = %v, want 1", doc.MilestoneID)
	}
}

func TestGenerateExplainSelectionUsesOriginalTopic(t *testing.T) {
	docID := uuid.New()
	provider := &stubStreamLLM{chunks: []string{"解释"}}
	gen := NewGenerator(provider, quietLogger())

	st := &state.AgentState{
		Source:  state.SourceComment,
		Message: "这段太抽象了",
		Payload: state.Payload{
			Comment: &state.CommentPayload{
				SelectedText: "哨兵模式通过 quorum 判定主观下线",
				DocumentID:   &docID,
			},
		},
		AvailableDocs: []state.DocumentRef{{ID: docID, Topic: "Redis 高可用"}},
		Intent:        &state.IntentResult{Type: state.IntentOptimizeContent, UserNeed: state.NeedMoreExamples},
		Decision:      &state.RoutingDecision{Action: state.ActionGenerateNew, Mode: state.ModeExplainSelection},
	}

	doc, err := gen.Generate(context.Background(), st, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.Topic != "Redis 高可用" {
		t.Errorf("topic = %q, want anchor document topic", doc.Topic)
	}

	joined := strings.Join(provider.prompts, "\n")
	if !strings.Contains(joined, "哨兵模式") {
		t.Errorf("selection text missing from prompt")
	}
}

func TestUpdateBumpsVersionByOne(t *testing.T) {
	provider := &stubStreamLLM{chunks: []string{"新版本正文"}}
	gen := NewGenerator(provider, quietLogger())

	existing := &state.Document{
		ID:      uuid.New(),
		Topic:   "Go 并发",
		Content: "旧正文",
		Version: 3,
	}
	st := &state.AgentState{Message: "再深入一点, 讲讲调度器"}

	revised, summary, err := gen.Update(context.Background(), st, existing, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if revised.Version != 4 {
		t.Errorf("version = %d, want 4", revised.Version)
	}
	if revised.Content != "新版本正文" {
		t.Errorf("content = %q", revised.Content)
	}
	if existing.Version != 3 || existing.Content != "旧正文" {
		t.Errorf("existing document mutated")
	}
	if !strings.Contains(summary, "v4") {
		t.Errorf("summary = %q, want version mention", summary)
	}
}

func TestUpdateFailurePropagates(t *testing.T) {
	provider := &stubStreamLLM{}
	provider.err = errors.New("backend down")
	gen := NewGenerator(provider, quietLogger())

	existing := &state.Document{Topic: "Go", Content: "旧", Version: 1}
	_, _, err := gen.Update(context.Background(), &state.AgentState{Message: "重写"}, existing, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if existing.Version != 1 {
		t.Errorf("version changed on failure")
	}
}

func TestResolveOriginalTopicFallbackChain(t *testing.T) {
	docID := uuid.New()
	currentID := uuid.New()

	tests := []struct {
		name string
		st   *state.AgentState
		want string
	}{
		{
			name: "anchor document id",
			st: &state.AgentState{
				Payload:       state.Payload{Comment: &state.CommentPayload{DocumentID: &docID}},
				CurrentDocID:  &currentID,
				AvailableDocs: []state.DocumentRef{{ID: docID, Topic: "锚点文档"}, {ID: currentID, Topic: "当前文档"}},
			},
			want: "锚点文档",
		},
		{
			name: "current document",
			st: &state.AgentState{
				CurrentDocID:  &currentID,
				AvailableDocs: []state.DocumentRef{{ID: currentID, Topic: "当前文档"}},
				Intent:        &state.IntentResult{Target: "意图目标"},
			},
			want: "当前文档",
		},
		{
			name: "intent target",
			st: &state.AgentState{
				Intent:  &state.IntentResult{Target: "意图目标"},
				Message: "随便说点什么",
			},
			want: "意图目标",
		},
		{
			name: "message prefix",
			st:   &state.AgentState{Message: "这是一条完全没有任何结构化信息的很长很长的用户消息内容"},
			want: "这是一条完全没有任何结构化信息的很长很长",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveOriginalTopic(tt.st); got != tt.want {
				t.Errorf("ResolveOriginalTopic() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveUserNeed(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"这段太抽象了", state.NeedMoreExamples},
		{"能给个例子吗", state.NeedMoreExamples},
		{"讲得太浅了, 再深入一点", state.NeedMoreDepth},
		{"完全看不懂", state.NeedMoreClarity},
		{"换个角度讲讲", state.NeedDifferentAngle},
		{"嗯", state.NeedMoreExamples},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ResolveUserNeed(tt.text); got != tt.want {
				t.Errorf("ResolveUserNeed(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestCategoryPath(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"Redis", "数据库/Redis"},
		{"redis 持久化", "数据库/Redis"},
		{"Kubernetes 网络模型", "运维部署/Kubernetes"},
		{"Go 并发", "编程语言/Go"},
		{"量子计算", "其他/量子计算"},
		{"", "其他"},
		{"   ", "其他"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			if got := CategoryPath(tt.topic); got != tt.want {
				t.Errorf("CategoryPath(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}

func TestMatchMilestone(t *testing.T) {
	roadmap := &state.Roadmap{
		Milestones: []state.Milestone{
			{ID: 0, Title: "Go 基础", Topics: []string{"语法基础", "并发编程"}},
			{ID: 1, Title: "Web 开发", Topics: []string{"HTTP", "Fiber"}},
		},
	}

	if m := MatchMilestone(roadmap, "并发编程"); m == nil || m.ID != 0 {
		t.Errorf("topic match failed: %v", m)
	}
	if m := MatchMilestone(roadmap, "web"); m == nil || m.ID != 1 {
		t.Errorf("case-insensitive title match failed: %v", m)
	}
	if m := MatchMilestone(roadmap, "区块链"); m != nil {
		t.Errorf("expected nil for no overlap, got %v", m)
	}
	if m := MatchMilestone(nil, "Go"); m != nil {
		t.Errorf("expected nil for nil roadmap")
	}
	if m := MatchMilestone(roadmap, ""); m != nil {
		t.Errorf("expected nil for empty target")
	}
}

func TestResolveUpdateMode(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"多给几个例子", UpdateAddExamples},
		{"讲得更深入一些", UpdateAddDepth},
		{"太绕了, 说得通俗一点", UpdateRephrase},
		{"再补充一些相关内容", UpdateExpand},
		{"重新整理一下", UpdateRewrite},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ResolveUpdateMode(tt.message); got != tt.want {
				t.Errorf("ResolveUpdateMode(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}
