package planner

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-learnpath-be/pkg/agent/jsonx"
	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"
)

// Planner generates and revises learning roadmaps.
type Planner struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewPlanner(llmProvider llm.LLMProvider, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

type roadmapResponse struct {
	Goal       string              `json:"goal"`
	Milestones []milestoneResponse `json:"milestones"`
	Mermaid    string              `json:"mermaid"`

	// Alternate field names some models produce.
	LearningGoal    string `json:"learning_goal"`
	FishboneDiagram string `json:"fishbone_diagram"`
}

type milestoneResponse struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
}

// Generate produces a roadmap for the user's learning goal. Model output
// that fails structured parsing degrades to a minimal single-milestone
// roadmap so the turn still completes.
func (p *Planner) Generate(ctx context.Context, st *state.AgentState) (*state.Roadmap, error) {
	goal := p.resolveGoal(st)

	raw, err := p.llmProvider.Chat(ctx, []llm.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: p.buildGeneratePrompt(goal, st)},
	}, llm.WithTemperature(0.3), llm.WithJSONOutput())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Printf("[PLANNER] generation failed, using placeholder roadmap: %v", err)
		return p.placeholderRoadmap(goal), nil
	}

	roadmap, err := p.parseRoadmap(raw, goal)
	if err != nil {
		p.logger.Printf("[PLANNER] unparseable roadmap output, using placeholder: %v", err)
		return p.placeholderRoadmap(goal), nil
	}
	return roadmap, nil
}

// Modify revises an existing roadmap per the user's request, bumping the
// version by one. On failure the original roadmap is returned unchanged
// alongside the error so callers keep a usable plan.
func (p *Planner) Modify(ctx context.Context, st *state.AgentState, current *state.Roadmap) (*state.Roadmap, error) {
	raw, err := p.llmProvider.Chat(ctx, []llm.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: p.buildModifyPrompt(st.Message, current)},
	}, llm.WithTemperature(0.3), llm.WithJSONOutput())
	if err != nil {
		if ctx.Err() != nil {
			return current, ctx.Err()
		}
		return current, fmt.Errorf("roadmap modification: %w", err)
	}

	revised, err := p.parseRoadmap(raw, current.Goal)
	if err != nil {
		return current, fmt.Errorf("roadmap modification parse: %w", err)
	}

	revised.ID = current.ID
	revised.Version = current.Version + 1
	revised.IsActive = current.IsActive
	return revised, nil
}

const plannerSystemPrompt = "你是一位学习规划师。为用户的学习目标设计循序渐进的路线图, " +
	"按 JSON 输出: {\"goal\": \"...\", \"milestones\": [{\"id\": 0, \"title\": \"...\", " +
	"\"description\": \"...\", \"topics\": [\"...\"]}], \"mermaid\": \"graph LR ...\"}。" +
	"里程碑 4 到 6 个, id 从 0 开始连续编号, mermaid 用 graph LR 画出阶段依赖。只输出 JSON。"

func (p *Planner) buildGeneratePrompt(goal string, st *state.AgentState) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("学习目标: %s\n", goal))
	if st.UserLevel != "" {
		b.WriteString(fmt.Sprintf("用户水平: %s\n", st.UserLevel))
	}
	if len(st.LearnedTopics) > 0 {
		b.WriteString(fmt.Sprintf("已学过的主题: %s\n", strings.Join(st.LearnedTopics, ", ")))
	}
	b.WriteString("请生成学习路线图。")
	return b.String()
}

func (p *Planner) buildModifyPrompt(request string, current *state.Roadmap) string {
	var b strings.Builder
	b.WriteString("请按用户要求调整下面的学习路线图, 输出完整的新版本 JSON。\n\n")
	b.WriteString(fmt.Sprintf("用户要求: %s\n\n", request))
	b.WriteString(fmt.Sprintf("当前目标: %s\n当前里程碑:\n", current.Goal))
	for _, m := range current.Milestones {
		b.WriteString(fmt.Sprintf("%d. %s: %s (%s)\n", m.ID, m.Title, m.Description, strings.Join(m.Topics, ", ")))
	}
	return b.String()
}

func (p *Planner) parseRoadmap(raw, fallbackGoal string) (*state.Roadmap, error) {
	var resp roadmapResponse
	if err := jsonx.ExtractInto(raw, &resp); err != nil {
		return nil, err
	}

	goal := resp.Goal
	if goal == "" {
		goal = resp.LearningGoal
	}
	if goal == "" {
		goal = fallbackGoal
	}
	mermaid := resp.Mermaid
	if mermaid == "" {
		mermaid = resp.FishboneDiagram
	}

	if len(resp.Milestones) == 0 {
		return nil, fmt.Errorf("roadmap output has no milestones")
	}

	milestones := make([]state.Milestone, 0, len(resp.Milestones))
	for i, m := range resp.Milestones {
		title := strings.TrimSpace(m.Title)
		if title == "" {
			continue
		}
		milestones = append(milestones, state.Milestone{
			// Model ids drift; contiguous renumbering keeps progress
			// tracking stable.
			ID:          i,
			Title:       title,
			Description: strings.TrimSpace(m.Description),
			Topics:      m.Topics,
		})
	}
	if len(milestones) == 0 {
		return nil, fmt.Errorf("roadmap output has no usable milestones")
	}
	for i := range milestones {
		milestones[i].ID = i
	}

	if mermaid == "" {
		mermaid = buildMermaid(milestones)
	}

	// A freshly generated roadmap has no id yet; the persistence layer
	// assigns one. Only Modify carries its predecessor's id forward.
	return &state.Roadmap{
		Goal:       goal,
		Milestones: milestones,
		Mermaid:    mermaid,
		Version:    1,
		IsActive:   true,
	}, nil
}

func (p *Planner) placeholderRoadmap(goal string) *state.Roadmap {
	m := []state.Milestone{{
		ID:          0,
		Title:       goal,
		Description: fmt.Sprintf("从基础开始学习 %s", goal),
		Topics:      []string{goal},
	}}
	return &state.Roadmap{
		Goal:       goal,
		Milestones: m,
		Mermaid:    buildMermaid(m),
		Version:    1,
		IsActive:   true,
	}
}

func (p *Planner) resolveGoal(st *state.AgentState) string {
	if st.Decision != nil && st.Decision.Target != "" {
		return st.Decision.Target
	}
	if st.Intent != nil && st.Intent.Target != "" {
		return st.Intent.Target
	}
	return strings.TrimSpace(st.Message)
}

func buildMermaid(milestones []state.Milestone) string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	for i, m := range milestones {
		b.WriteString(fmt.Sprintf("    M%d[\"%s\"]\n", i, m.Title))
	}
	for i := 1; i < len(milestones); i++ {
		b.WriteString(fmt.Sprintf("    M%d --> M%d\n", i-1, i))
	}
	return b.String()
}
