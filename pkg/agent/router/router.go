package router

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-learnpath-be/pkg/agent/jsonx"
	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"

	"github.com/google/uuid"
)

// Decision methods.
const (
	MethodRule = "rule"
	MethodLLM  = "llm"
)

const (
	firstTopicReason = "首个学习主题，先生成学习路线图。"
	noTargetReason   = "导航目标不存在，改为生成新文档。"
)

var validActions = map[string]bool{
	state.ActionGenerateNew: true,
	state.ActionUpdateDoc:   true,
	state.ActionNavigate:    true,
	state.ActionPlan:        true,
}

var validModes = map[string]bool{
	state.ModeStandard:         true,
	state.ModeRoadmapLearning:  true,
	state.ModeRoadmapGenerate:  true,
	state.ModeRoadmapModify:    true,
	state.ModeExplainSelection: true,
	state.ModeComparison:       true,
}

// Router turns an intent plus session context into a routing decision.
// Obvious cases resolve through a fixed rule table; ambiguous ones go
// through a structured LLM call with a deterministic fallback.
type Router struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewRouter(llmProvider llm.LLMProvider, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Route resolves the routing decision for the current turn. The returned
// decision always satisfies two invariants regardless of how it was
// produced: a session's first topic is forced to roadmap generation, and a
// navigation without a resolvable target document is downgraded to
// generation.
func (r *Router) Route(ctx context.Context, st *state.AgentState) *state.RoutingDecision {
	intent := st.Intent
	if intent == nil {
		intent = &state.IntentResult{Type: state.IntentQuestion, Method: state.MethodFallback}
	}

	decision := r.fastPath(intent, st)
	if decision == nil {
		decision = r.slowPath(ctx, intent, st)
	}

	return r.applyOverrides(decision, st)
}

// fastPath returns an immediate decision for unambiguous (intent, document
// presence) pairs, or nil when the slow path must decide. A new topic in a
// session with neither roadmap nor documents is always escalated: that turn
// decides whether to bootstrap a roadmap.
func (r *Router) fastPath(intent *state.IntentResult, st *state.AgentState) *state.RoutingDecision {
	hasCurrentDoc := st.CurrentDocID != nil

	if intent.Type == state.IntentNewTopic && st.IsFirstTopic() {
		return nil
	}

	// A comment on a selection always spawns an explanation document
	// anchored to the commented one, whatever the textual intent says.
	if st.Source == state.SourceComment {
		var anchor *uuid.UUID
		if st.Payload.Comment != nil && st.Payload.Comment.DocumentID != nil {
			anchor = st.Payload.Comment.DocumentID
		} else {
			anchor = st.CurrentDocID
		}
		return r.ruleDecision(state.ActionGenerateNew, state.ModeExplainSelection, intent.Target, anchor,
			"针对选中内容生成解释文档。")
	}

	switch intent.Type {
	case state.IntentNewTopic:
		if st.HasRoadmap() {
			// Roadmap exists: the LLM decides whether the topic belongs
			// to a milestone or is a detour.
			return nil
		}
		return r.ruleDecision(state.ActionGenerateNew, state.ModeStandard, intent.Target, nil,
			"新主题，直接生成文档。")

	case state.IntentFollowUp:
		if hasCurrentDoc {
			return r.ruleDecision(state.ActionGenerateNew, state.ModeStandard, intent.Target, st.CurrentDocID,
				"基于当前文档深入展开。")
		}
		return r.ruleDecision(state.ActionGenerateNew, state.ModeStandard, intent.Target, nil,
			"没有当前文档，按新文档生成。")

	case state.IntentComparison:
		return r.ruleDecision(state.ActionGenerateNew, state.ModeComparison, intent.Target, nil,
			"生成对比文档。")

	case state.IntentOptimizeContent:
		if hasCurrentDoc {
			return r.ruleDecision(state.ActionUpdateDoc, state.ModeStandard, intent.Target, st.CurrentDocID,
				"基于用户反馈更新当前文档。")
		}
		return nil
	}

	return nil
}

type llmDecisionResponse struct {
	Action      string  `json:"action"`
	Mode        string  `json:"mode"`
	Target      string  `json:"target"`
	TargetDocID string  `json:"target_doc_id"`
	Reasoning   string  `json:"reasoning"`
	Confidence  float64 `json:"confidence"`
}

func (r *Router) slowPath(ctx context.Context, intent *state.IntentResult, st *state.AgentState) *state.RoutingDecision {
	if r.llmProvider == nil {
		return r.fallbackDecision(intent, st, "未配置 LLM")
	}

	prompt := r.buildPrompt(intent, st)

	response, err := r.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.0),
		llm.WithJSONOutput(),
	)
	if err != nil {
		r.logger.Printf("[ROUTER] LLM decision failed: %v", err)
		return r.fallbackDecision(intent, st, err.Error())
	}

	var parsed llmDecisionResponse
	if err := jsonx.ExtractInto(response, &parsed); err != nil {
		r.logger.Printf("[ROUTER] decision parse failed: %v", err)
		return r.fallbackDecision(intent, st, err.Error())
	}

	action := strings.ToLower(strings.TrimSpace(parsed.Action))
	mode := strings.ToLower(strings.TrimSpace(parsed.Mode))
	if !validActions[action] || !validModes[mode] {
		r.logger.Printf("[ROUTER] invalid decision action=%q mode=%q", parsed.Action, parsed.Mode)
		return r.fallbackDecision(intent, st, fmt.Sprintf("无效决策 %s/%s", parsed.Action, parsed.Mode))
	}

	decision := &state.RoutingDecision{
		Action:     action,
		Mode:       mode,
		Target:     strings.TrimSpace(parsed.Target),
		Reasoning:  parsed.Reasoning,
		Confidence: parsed.Confidence,
		Method:     MethodLLM,
	}
	if decision.Confidence <= 0 || decision.Confidence > 1 {
		decision.Confidence = 0.7
	}
	if decision.Target == "" {
		decision.Target = intent.Target
	}
	if id := resolveDocID(parsed.TargetDocID, st); id != nil {
		decision.TargetDocID = id
	}
	return decision
}

// fallbackDecision is the conservative deterministic rule applied when the
// LLM path cannot produce a valid decision.
func (r *Router) fallbackDecision(intent *state.IntentResult, st *state.AgentState, cause string) *state.RoutingDecision {
	reasoning := fmt.Sprintf("降级规则决策 (%s)。", cause)

	if intent.Type == state.IntentPlan && !st.HasRoadmap() {
		return &state.RoutingDecision{
			Action:     state.ActionPlan,
			Mode:       state.ModeRoadmapGenerate,
			Target:     intent.Target,
			Reasoning:  reasoning,
			Confidence: 0.5,
			Method:     MethodRule,
		}
	}

	mode := state.ModeStandard
	switch {
	case intent.Type == state.IntentPlan && st.HasRoadmap():
		mode = state.ModeRoadmapModify
		return &state.RoutingDecision{
			Action:     state.ActionPlan,
			Mode:       mode,
			Target:     intent.Target,
			Reasoning:  reasoning,
			Confidence: 0.5,
			Method:     MethodRule,
		}
	case intent.Type == state.IntentComparison:
		mode = state.ModeComparison
	case st.Source == state.SourceComment:
		mode = state.ModeExplainSelection
	case st.HasRoadmap():
		mode = state.ModeRoadmapLearning
	}

	return &state.RoutingDecision{
		Action:     state.ActionGenerateNew,
		Mode:       mode,
		Target:     intent.Target,
		Reasoning:  reasoning,
		Confidence: 0.5,
		Method:     MethodRule,
	}
}

// applyOverrides enforces the two mandatory post-decision corrections.
func (r *Router) applyOverrides(decision *state.RoutingDecision, st *state.AgentState) *state.RoutingDecision {
	if st.IsFirstTopic() && decision.Action != state.ActionPlan {
		decision.Action = state.ActionPlan
		decision.Mode = state.ModeRoadmapGenerate
		decision.Reasoning = firstTopicReason + " " + decision.Reasoning
	}

	if decision.Action == state.ActionNavigate && decision.TargetDocID == nil {
		decision.Action = state.ActionGenerateNew
		decision.Reasoning = noTargetReason + " " + decision.Reasoning
	}

	return decision
}

func (r *Router) buildPrompt(intent *state.IntentResult, st *state.AgentState) string {
	var b strings.Builder

	b.WriteString("你是学习平台的路由决策器。根据用户意图和会话上下文, 决定系统动作。只输出 JSON。\n\n")

	b.WriteString("<context>\n")
	b.WriteString(fmt.Sprintf("message: %s\n", st.Message))
	b.WriteString(fmt.Sprintf("intent: %s (target=%q, confidence=%.2f)\n", intent.Type, intent.Target, intent.Confidence))
	b.WriteString(fmt.Sprintf("user_level: %s\n", st.UserLevel))

	if st.ActiveRoadmap != nil {
		b.WriteString(fmt.Sprintf("roadmap: %s (%d 个里程碑)\n", st.ActiveRoadmap.Goal, len(st.ActiveRoadmap.Milestones)))
		for _, m := range st.ActiveRoadmap.Milestones {
			b.WriteString(fmt.Sprintf("  [%d] %s\n", m.ID, m.Title))
		}
	} else {
		b.WriteString("roadmap: 无\n")
	}

	if len(st.LearnedTopics) > 0 {
		b.WriteString("learned_topics: " + strings.Join(st.LearnedTopics, ", ") + "\n")
	}
	if len(st.RecentDocs) > 0 {
		b.WriteString("recent_documents:\n")
		for _, d := range st.RecentDocs {
			b.WriteString(fmt.Sprintf("  %s: %s\n", d.ID, d.Topic))
		}
	}
	if len(st.AvailableDocs) > 0 {
		b.WriteString("available_documents:\n")
		for _, d := range st.AvailableDocs {
			b.WriteString(fmt.Sprintf("  %s: %s\n", d.ID, d.Topic))
		}
	}
	b.WriteString("</context>\n\n")

	b.WriteString("动作说明:\n")
	b.WriteString("- generate_new: 生成新的学习文档\n")
	b.WriteString("- update_doc: 更新已有文档 (需要 target_doc_id)\n")
	b.WriteString("- navigate: 跳转到已有文档 (需要 target_doc_id)\n")
	b.WriteString("- plan: 生成或修改学习路线图\n\n")

	b.WriteString("模式说明: standard | roadmap_learning | roadmap_generate | roadmap_modify | explain_selection | comparison\n\n")

	b.WriteString("输出格式:\n")
	b.WriteString("{\n")
	b.WriteString("  \"action\": \"generate_new\",\n")
	b.WriteString("  \"mode\": \"standard\",\n")
	b.WriteString("  \"target\": \"主题\",\n")
	b.WriteString("  \"target_doc_id\": \"uuid 或空字符串\",\n")
	b.WriteString("  \"reasoning\": \"简要说明\",\n")
	b.WriteString("  \"confidence\": 0.9\n")
	b.WriteString("}")

	return b.String()
}

func (r *Router) ruleDecision(action, mode, target string, docID *uuid.UUID, reasoning string) *state.RoutingDecision {
	return &state.RoutingDecision{
		Action:      action,
		Mode:        mode,
		Target:      target,
		TargetDocID: docID,
		Reasoning:   reasoning,
		Confidence:  0.95,
		Method:      MethodRule,
	}
}

// resolveDocID accepts a target document id only when it refers to a
// document the session can actually see. Anything else is treated as
// unresolved so the navigation override can fire.
func resolveDocID(raw string, st *state.AgentState) *uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	if st.CurrentDocID != nil && *st.CurrentDocID == id {
		return &id
	}
	for _, d := range st.AvailableDocs {
		if d.ID == id {
			return &id
		}
	}
	for _, d := range st.RecentDocs {
		if d.ID == id {
			return &id
		}
	}
	return nil
}
