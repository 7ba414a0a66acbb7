package postprocess

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"ai-learnpath-be/pkg/agent/content"
	"ai-learnpath-be/pkg/agent/jsonx"
	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"
)

// Processor enriches a finished turn with entities, follow-up questions
// and milestone classification. Enrichment is best effort: every task
// failure is logged and the turn result stands.
type Processor struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewProcessor(llmProvider llm.LLMProvider, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Process runs the applicable enrichment tasks concurrently and waits for
// all of them. It never returns an error; partial enrichment is fine.
func (p *Processor) Process(ctx context.Context, st *state.AgentState) {
	var wg sync.WaitGroup

	if st.Document != nil && st.Document.Content != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entities, err := p.extractEntities(ctx, st.Document)
			if err != nil {
				p.logger.Printf("[POSTPROCESS] entity extraction failed: %v", err)
				return
			}
			st.Document.Entities = entities
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			followUps, err := p.generateFollowUps(ctx, st.Document.Topic, st.Message)
			if err != nil {
				p.logger.Printf("[POSTPROCESS] follow-up generation failed: %v", err)
				return
			}
			st.FollowUps = followUps
		}()

		if st.ActiveRoadmap != nil && st.Document.MilestoneID == nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.classifyMilestone(ctx, st)
			}()
		}
	}

	wg.Wait()
}

type entityResponse struct {
	Entities []string `json:"entities"`
}

func (p *Processor) extractEntities(ctx context.Context, doc *state.Document) ([]string, error) {
	excerpt := doc.Content
	if runes := []rune(excerpt); len(runes) > 2000 {
		excerpt = string(runes[:2000])
	}

	prompt := "从下面的学习文档中提取 5 到 10 个关键技术实体 (工具、协议、概念名), " +
		"按 JSON 输出: {\"entities\": [\"...\"]}。只输出 JSON。\n\n" + excerpt

	raw, err := p.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithJSONOutput())
	if err != nil {
		return nil, err
	}

	var resp entityResponse
	if err := jsonx.ExtractInto(raw, &resp); err != nil {
		return nil, err
	}

	return dedupe(resp.Entities, doc.Topic), nil
}

type followUpResponse struct {
	Questions []string `json:"questions"`
}

func (p *Processor) generateFollowUps(ctx context.Context, topic, message string) ([]string, error) {
	prompt := "用户刚学完「" + topic + "」的文档。生成 3 个用户接下来可能想问的中文问题, " +
		"按 JSON 输出: {\"questions\": [\"...\"]}。只输出 JSON。\n\n用户最近的输入: " + message

	raw, err := p.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.7), llm.WithJSONOutput())
	if err != nil {
		return nil, err
	}

	var resp followUpResponse
	if err := jsonx.ExtractInto(raw, &resp); err != nil {
		return nil, err
	}

	questions := make([]string, 0, 3)
	for _, q := range resp.Questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == 3 {
			break
		}
	}
	return questions, nil
}

type milestoneClassification struct {
	MilestoneID *int `json:"milestone_id"`
}

// classifyMilestone attaches a standalone document to the roadmap
// milestone it belongs to. The model decides; lexical title and topic
// matching covers model failure.
func (p *Processor) classifyMilestone(ctx context.Context, st *state.AgentState) {
	m := p.classifyMilestoneLLM(ctx, st)
	if m == nil {
		m = content.MatchMilestone(st.ActiveRoadmap, st.Document.Topic)
	}
	if m == nil {
		return
	}
	id := m.ID
	st.Document.MilestoneID = &id
	st.Document.RoadmapID = &st.ActiveRoadmap.ID
}

func (p *Processor) classifyMilestoneLLM(ctx context.Context, st *state.AgentState) *state.Milestone {
	var b strings.Builder
	b.WriteString("判断下面的学习文档属于路线图中的哪个里程碑, 按 JSON 输出: {\"milestone_id\": N}。")
	b.WriteString("无法判断时输出 {\"milestone_id\": null}。只输出 JSON。\n\n")
	b.WriteString("文档主题: " + st.Document.Topic + "\n里程碑:\n")
	for _, m := range st.ActiveRoadmap.Milestones {
		b.WriteString(fmt.Sprintf("%d. %s: %s (%s)\n", m.ID, m.Title, m.Description, strings.Join(m.Topics, ", ")))
	}

	raw, err := p.llmProvider.Generate(ctx, b.String(), llm.WithTemperature(0.0), llm.WithJSONOutput())
	if err != nil {
		p.logger.Printf("[POSTPROCESS] milestone classification failed: %v", err)
		return nil
	}

	var resp milestoneClassification
	if err := jsonx.ExtractInto(raw, &resp); err != nil {
		p.logger.Printf("[POSTPROCESS] unparseable milestone classification: %v", err)
		return nil
	}
	if resp.MilestoneID == nil {
		return nil
	}
	for i := range st.ActiveRoadmap.Milestones {
		if st.ActiveRoadmap.Milestones[i].ID == *resp.MilestoneID {
			return &st.ActiveRoadmap.Milestones[i]
		}
	}
	return nil
}

func dedupe(entities []string, topic string) []string {
	seen := make(map[string]struct{}, len(entities))
	topicLower := strings.ToLower(strings.TrimSpace(topic))

	out := make([]string, 0, len(entities))
	for _, e := range entities {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		lower := strings.ToLower(e)
		// The document's own topic is not a useful link target.
		if lower == topicLower {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, e)
	}
	return out
}
