package content

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"
)

// Update optimization modes.
const (
	UpdateAddExamples = "add_examples"
	UpdateAddDepth    = "add_depth"
	UpdateRewrite     = "rewrite"
	UpdateRephrase    = "rephrase"
	UpdateExpand      = "expand"
)

const otherBucket = "其他"

// categoryRules maps technology keywords to slash-delimited category paths.
// First match wins; matching is case-insensitive substring.
var categoryRules = []struct {
	keyword string
	path    string
}{
	{"redis", "数据库/Redis"},
	{"mysql", "数据库/MySQL"},
	{"postgres", "数据库/PostgreSQL"},
	{"mongodb", "数据库/MongoDB"},
	{"elasticsearch", "数据库/Elasticsearch"},
	{"kafka", "消息队列/Kafka"},
	{"rabbitmq", "消息队列/RabbitMQ"},
	{"nats", "消息队列/NATS"},
	{"docker", "运维部署/Docker"},
	{"kubernetes", "运维部署/Kubernetes"},
	{"k8s", "运维部署/Kubernetes"},
	{"nginx", "运维部署/Nginx"},
	{"linux", "操作系统/Linux"},
	{"golang", "编程语言/Go"},
	{"go", "编程语言/Go"},
	{"python", "编程语言/Python"},
	{"java", "编程语言/Java"},
	{"typescript", "编程语言/TypeScript"},
	{"javascript", "编程语言/JavaScript"},
	{"rust", "编程语言/Rust"},
	{"react", "前端/React"},
	{"vue", "前端/Vue"},
	{"http", "计算机网络/HTTP"},
	{"tcp", "计算机网络/TCP"},
	{"grpc", "计算机网络/gRPC"},
	{"网络", "计算机网络"},
	{"算法", "算法与数据结构"},
	{"数据结构", "算法与数据结构"},
	{"机器学习", "人工智能/机器学习"},
	{"深度学习", "人工智能/深度学习"},
	{"git", "开发工具/Git"},
}

// Generator produces and revises learning documents through streaming LLM
// generation.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Generate streams a new learning document. The prompt strategy follows the
// routing decision's mode. Context cancellation propagates as ctx.Err() so
// the orchestrator can tell a torn-down stream from a failed one.
func (g *Generator) Generate(ctx context.Context, st *state.AgentState, onToken llm.TokenFunc) (*state.Document, error) {
	mode := state.ModeStandard
	if st.Decision != nil && st.Decision.Mode != "" {
		mode = st.Decision.Mode
	}

	topic := g.resolveTopic(st)
	systemPrompt, userPrompt := g.buildPrompts(mode, topic, st)

	text, err := g.stream(ctx, systemPrompt, userPrompt, onToken)
	if err != nil {
		return nil, err
	}

	doc := &state.Document{
		Topic:        topic,
		Content:      text,
		Version:      1,
		CategoryPath: CategoryPath(topic),
	}

	if mode == state.ModeRoadmapLearning && st.ActiveRoadmap != nil {
		doc.RoadmapID = &st.ActiveRoadmap.ID
		if m := MatchMilestone(st.ActiveRoadmap, topic); m != nil {
			id := m.ID
			doc.MilestoneID = &id
		}
	}
	if st.Decision != nil && st.Decision.TargetDocID != nil && st.Intent != nil && st.Intent.Type == state.IntentFollowUp {
		doc.ParentDocID = st.Decision.TargetDocID
	}

	return doc, nil
}

// Update streams a full replacement body for an existing document based on
// the user's feedback, bumping the version by exactly one. Returns the
// revised document and a change summary.
func (g *Generator) Update(ctx context.Context, st *state.AgentState, existing *state.Document, onToken llm.TokenFunc) (*state.Document, string, error) {
	updateMode := ResolveUpdateMode(st.Message)

	var b strings.Builder
	b.WriteString("请根据用户反馈重写下面的学习文档, 输出完整的新版本 Markdown。\n\n")
	b.WriteString(fmt.Sprintf("优化方式: %s\n", updateModeInstruction(updateMode)))
	b.WriteString(fmt.Sprintf("用户反馈: %s\n\n", st.Message))
	b.WriteString("<current_document>\n")
	b.WriteString(existing.Content)
	b.WriteString("\n</current_document>")

	text, err := g.stream(ctx, documentSystemPrompt, b.String(), onToken)
	if err != nil {
		return nil, "", err
	}

	revised := *existing
	revised.Content = text
	revised.Version = existing.Version + 1

	summary := fmt.Sprintf("根据用户反馈 (%s) 更新至 v%d", updateMode, revised.Version)
	return &revised, summary, nil
}

const documentSystemPrompt = "你是一位耐心的技术讲师。用结构化的 Markdown 写中文学习文档: " +
	"包含概念讲解、代码示例和小结。直接输出正文, 不要附加解释。"

func (g *Generator) buildPrompts(mode, topic string, st *state.AgentState) (string, string) {
	switch mode {
	case state.ModeComparison:
		return documentSystemPrompt, fmt.Sprintf(
			"生成一篇对比文档: %s。逐项对比设计、性能、适用场景, 最后给出选型建议。", topic)

	case state.ModeExplainSelection:
		return documentSystemPrompt, g.buildExplainSelectionPrompt(topic, st)

	case state.ModeRoadmapLearning:
		if st.ActiveRoadmap != nil {
			if m := MatchMilestone(st.ActiveRoadmap, topic); m != nil {
				return documentSystemPrompt, fmt.Sprintf(
					"围绕学习路线图的里程碑「%s」生成学习文档。\n里程碑说明: %s\n涉及知识点: %s\n当前主题: %s",
					m.Title, m.Description, strings.Join(m.Topics, ", "), topic)
			}
		}
		// No milestone overlap: fall back to a generic prompt
		return documentSystemPrompt, g.buildStandardPrompt(topic, st)

	default:
		return documentSystemPrompt, g.buildStandardPrompt(topic, st)
	}
}

func (g *Generator) buildStandardPrompt(topic string, st *state.AgentState) string {
	prompt := fmt.Sprintf("生成一篇关于「%s」的学习文档。", topic)
	if st.Intent != nil && st.Intent.Context != "" {
		prompt += fmt.Sprintf("\n结合应用场景: %s", st.Intent.Context)
	}
	if st.UserLevel != "" {
		prompt += fmt.Sprintf("\n读者水平: %s", st.UserLevel)
	}
	return prompt
}

func (g *Generator) buildExplainSelectionPrompt(topic string, st *state.AgentState) string {
	need := ""
	if st.Intent != nil {
		need = st.Intent.UserNeed
	}
	if need == "" {
		need = ResolveUserNeed(st.Message)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("用户在阅读「%s」的文档时选中了一段内容并留下了评论。", topic))
	b.WriteString(fmt.Sprintf("请针对选中内容生成一篇解释文档, 用户需要: %s。\n\n", needInstruction(need)))

	if st.Payload.Comment != nil {
		b.WriteString("<selection>\n")
		b.WriteString(st.Payload.Comment.SelectedText)
		b.WriteString("\n</selection>\n")
		if st.Payload.Comment.Context != "" {
			b.WriteString("<surrounding_context>\n")
			b.WriteString(st.Payload.Comment.Context)
			b.WriteString("\n</surrounding_context>\n")
		}
	}
	b.WriteString(fmt.Sprintf("\n用户评论: %s", st.Message))
	return b.String()
}

// resolveTopic picks the subject to generate about. For comment turns the
// original document's topic anchors the explanation; the comment text alone
// is ambiguous.
func (g *Generator) resolveTopic(st *state.AgentState) string {
	if st.Decision != nil && st.Decision.Mode == state.ModeExplainSelection {
		return ResolveOriginalTopic(st)
	}
	if st.Decision != nil && st.Decision.Target != "" {
		return st.Decision.Target
	}
	if st.Intent != nil && st.Intent.Target != "" {
		return st.Intent.Target
	}
	return messagePrefix(st.Message)
}

// ResolveOriginalTopic walks the fallback chain for comment-sourced turns:
// explicit anchor document id, then the current document, then the intent
// target, then a prefix of the raw message.
func ResolveOriginalTopic(st *state.AgentState) string {
	if st.Payload.Comment != nil && st.Payload.Comment.DocumentID != nil {
		if topic := lookupTopic(st, *st.Payload.Comment.DocumentID); topic != "" {
			return topic
		}
	}
	if st.CurrentDocID != nil {
		if topic := lookupTopic(st, *st.CurrentDocID); topic != "" {
			return topic
		}
	}
	if st.Intent != nil && st.Intent.Target != "" {
		return st.Intent.Target
	}
	return messagePrefix(st.Message)
}

func lookupTopic(st *state.AgentState, id uuid.UUID) string {
	for _, d := range st.AvailableDocs {
		if d.ID == id {
			return d.Topic
		}
	}
	for _, d := range st.RecentDocs {
		if d.ID == id {
			return d.Topic
		}
	}
	return ""
}

func messagePrefix(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) > 20 {
		return string(runes[:20])
	}
	return string(runes)
}

// stream runs the generation through the streaming contract when the
// backend supports it, otherwise falls back to a single-shot completion
// delivered as one token.
func (g *Generator) stream(ctx context.Context, systemPrompt, userPrompt string, onToken llm.TokenFunc) (string, error) {
	history := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	if sp, ok := g.llmProvider.(llm.StreamProvider); ok {
		text, err := sp.Stream(ctx, history, onToken, llm.WithTemperature(0.7))
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("stream generation: %w", err)
		}
		return text, nil
	}

	g.logger.Printf("[CONTENT] provider lacks streaming, falling back to single completion")
	text, err := g.llmProvider.Chat(ctx, history, llm.WithTemperature(0.7))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("generation: %w", err)
	}
	if onToken != nil {
		if err := onToken(text); err != nil {
			return "", err
		}
	}
	return text, nil
}

// CategoryPath maps a topic to its slash-delimited category. Unmatched
// topics land in the generic bucket; empty topics default to the bucket
// root.
func CategoryPath(topic string) string {
	trimmed := strings.TrimSpace(topic)
	if trimmed == "" {
		return otherBucket
	}
	lower := strings.ToLower(trimmed)
	for _, rule := range categoryRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.path
		}
	}
	return otherBucket + "/" + trimmed
}

// MatchMilestone finds the roadmap milestone whose title or topic list best
// textually overlaps the target. Simple case-insensitive substring matching;
// no overlap returns nil.
func MatchMilestone(roadmap *state.Roadmap, target string) *state.Milestone {
	if roadmap == nil {
		return nil
	}
	needle := strings.ToLower(strings.TrimSpace(target))
	if needle == "" {
		return nil
	}

	for i := range roadmap.Milestones {
		m := &roadmap.Milestones[i]
		title := strings.ToLower(m.Title)
		if strings.Contains(title, needle) || strings.Contains(needle, title) {
			return m
		}
		for _, topic := range m.Topics {
			lt := strings.ToLower(topic)
			if strings.Contains(lt, needle) || strings.Contains(needle, lt) {
				return m
			}
		}
	}
	return nil
}

// ResolveUserNeed categorizes what a dissatisfied or commenting user wants.
// Defaults to more examples when no keyword matches.
func ResolveUserNeed(text string) string {
	switch {
	case strings.Contains(text, "太抽象") || strings.Contains(text, "例子") || strings.Contains(text, "示例"):
		return state.NeedMoreExamples
	case strings.Contains(text, "深入") || strings.Contains(text, "太浅") || strings.Contains(text, "详细"):
		return state.NeedMoreDepth
	case strings.Contains(text, "看不懂") || strings.Contains(text, "不明白") || strings.Contains(text, "太难") || strings.Contains(text, "难懂"):
		return state.NeedMoreClarity
	case strings.Contains(text, "角度") || strings.Contains(text, "换个思路") || strings.Contains(text, "换种方式"):
		return state.NeedDifferentAngle
	default:
		return state.NeedMoreExamples
	}
}

// ResolveUpdateMode picks the named optimization mode for an update turn.
func ResolveUpdateMode(message string) string {
	switch {
	case strings.Contains(message, "例子") || strings.Contains(message, "示例") || strings.Contains(message, "太抽象"):
		return UpdateAddExamples
	case strings.Contains(message, "深入") || strings.Contains(message, "详细") || strings.Contains(message, "太浅"):
		return UpdateAddDepth
	case strings.Contains(message, "换个说法") || strings.Contains(message, "通俗") || strings.Contains(message, "看不懂"):
		return UpdateRephrase
	case strings.Contains(message, "扩展") || strings.Contains(message, "补充") || strings.Contains(message, "更多内容"):
		return UpdateExpand
	default:
		return UpdateRewrite
	}
}

func updateModeInstruction(mode string) string {
	switch mode {
	case UpdateAddExamples:
		return "add_examples - 补充具体的代码示例和现实案例"
	case UpdateAddDepth:
		return "add_depth - 深入原理, 补充底层机制"
	case UpdateRephrase:
		return "rephrase - 用更通俗的语言重新表述"
	case UpdateExpand:
		return "expand - 扩展覆盖面, 补充相关知识点"
	default:
		return "rewrite - 整体重写, 提升结构和可读性"
	}
}

func needInstruction(need string) string {
	switch need {
	case state.NeedMoreDepth:
		return "更深入的原理讲解"
	case state.NeedMoreClarity:
		return "更清晰易懂的解释"
	case state.NeedDifferentAngle:
		return "换一个角度的讲解"
	default:
		return "更多具体例子"
	}
}
