package intent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"ai-learnpath-be/pkg/agent/jsonx"
	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"
)

// Confidence levels per classification tier. Tier order and these fixed
// values are load-bearing: downstream routing thresholds assume them.
const (
	strongRuleConfidence = 1.0
	fuzzyRuleConfidence  = 0.8
	llmConfidence        = 0.85
	fallbackConfidence   = 0.5
)

const maxTargetLen = 50 // runes

// SessionContext carries the session flags the classifier embeds in its
// LLM prompt.
type SessionContext struct {
	HasRoadmap   bool
	HasDocuments bool
	IsFirstInput bool
	DisableLLM   bool
}

type strongRule struct {
	pattern *regexp.Regexp
	intent  string
}

// Strong rules are ordered; first match wins. They are scanned on every
// message before anything else, so all patterns must be cheap.
var strongRules = []strongRule{
	// Greetings / farewells / self-identification
	{regexp.MustCompile(`(?i)^(你好|您好|嗨|哈喽|hi|hello|hey)[!！。~\s]*$`), state.IntentChitchat},
	{regexp.MustCompile(`(?i)^(再见|拜拜|bye|谢谢|谢啦|thanks)[!！。~\s]*$`), state.IntentChitchat},
	{regexp.MustCompile(`(?i)(你是谁|你叫什么|你能做什么|who are you)`), state.IntentChitchat},

	// Explicit roadmap / planning requests
	{regexp.MustCompile(`(?i)(学习路径|学习路线|学习计划|路线图|帮我规划|制定.{0,6}(计划|路线)|roadmap)`), state.IntentPlan},

	// Comparison phrasing
	{regexp.MustCompile(`(?i)(.+)(和|与|跟)(.+)(的)?(区别|差异|不同|对比|比较)`), state.IntentComparison},
	{regexp.MustCompile(`(?i)\bvs\.?\b|\bversus\b|对比一下`), state.IntentComparison},

	// Content dissatisfaction
	{regexp.MustCompile(`(太抽象|太难了|太简单|看不懂|听不懂|没看懂|不太明白|重新写|重写一下|换个说法|写得更)`), state.IntentOptimizeContent},

	// Practical how-to phrasing
	{regexp.MustCompile(`(怎么用|如何使用|怎么使用|如何实现|怎么实现|实际应用|实战|动手|应用场景|最佳实践)`), state.IntentQuestionPractical},

	// Follow-up deepening phrasing
	{regexp.MustCompile(`^(继续|深入讲|深入说|详细讲讲|再讲讲|展开讲|举个例子|再举|更多例子)`), state.IntentFollowUp},
	{regexp.MustCompile(`(更深入|再深入一点|详细说说|展开说说)`), state.IntentFollowUp},

	// Navigation to existing material
	{regexp.MustCompile(`^(打开|跳转到|回到|切换到|查看|去看)`), state.IntentNavigate},
	{regexp.MustCompile(`(之前|上次|刚才)(学|看|讲)的`), state.IntentNavigate},

	// New-topic phrasing, kept last so the more specific rules above win
	{regexp.MustCompile(`(?i)^(什么是|什麼是|介绍一下|讲讲|我想学|我要学|学习一下|了解一下|带我学|what is|explain)`), state.IntentNewTopic},
	{regexp.MustCompile(`^(学|学习)\s*\S+`), state.IntentNewTopic},
}

// Fuzzy keywords are a cheap second tier: plain substring membership.
var fuzzyKeywords = []struct {
	keyword string
	intent  string
}{
	{"区别", state.IntentComparison},
	{"对比", state.IntentComparison},
	{"路线", state.IntentPlan},
	{"计划", state.IntentPlan},
	{"规划", state.IntentPlan},
	{"例子", state.IntentFollowUp},
	{"深入", state.IntentFollowUp},
	{"详细", state.IntentFollowUp},
	{"学习", state.IntentNewTopic},
	{"想学", state.IntentNewTopic},
	{"怎么", state.IntentQuestion},
	{"为什么", state.IntentQuestion},
	{"如何", state.IntentQuestion},
	{"谢谢", state.IntentChitchat},
	{"你好", state.IntentChitchat},
}

// conversationalPrefixes are stripped from the message when deriving a
// target topic.
var conversationalPrefixes = []string{
	"我想学习", "我想学", "我要学习", "我要学", "请介绍一下", "介绍一下",
	"什么是", "什麼是", "讲讲", "学习一下", "学习", "了解一下", "带我学",
	"请问", "帮我", "我想了解",
}

var validIntents = map[string]bool{
	state.IntentNewTopic:          true,
	state.IntentFollowUp:          true,
	state.IntentComparison:        true,
	state.IntentQuestion:          true,
	state.IntentQuestionPractical: true,
	state.IntentOptimizeContent:   true,
	state.IntentNavigate:          true,
	state.IntentPlan:              true,
	state.IntentChitchat:          true,
}

// Classifier resolves a free-text message into an intent. It is stateless
// per call; the LLM handle is optional and only consulted when no rule
// matched.
type Classifier struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewClassifier(llmProvider llm.LLMProvider, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Classifier{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Classify runs the tiers in order: strong regex rules, fuzzy keywords, LLM,
// fixed fallback. An empty message never errors; it falls through to the
// fallback tier.
func (c *Classifier) Classify(ctx context.Context, message string, sctx SessionContext) *state.IntentResult {
	trimmed := strings.TrimSpace(message)

	// Tier 1: strong rules
	for _, rule := range strongRules {
		if trimmed != "" && rule.pattern.MatchString(trimmed) {
			return &state.IntentResult{
				Type:       rule.intent,
				Target:     ExtractTarget(trimmed),
				Confidence: strongRuleConfidence,
				Method:     state.MethodStrongRule,
			}
		}
	}

	// Tier 2: fuzzy keywords
	for _, fk := range fuzzyKeywords {
		if trimmed != "" && strings.Contains(trimmed, fk.keyword) {
			return &state.IntentResult{
				Type:       fk.intent,
				Target:     ExtractTarget(trimmed),
				Confidence: fuzzyRuleConfidence,
				Method:     state.MethodFuzzyRule,
			}
		}
	}

	// Tier 3: LLM classification
	if c.llmProvider != nil && !sctx.DisableLLM && trimmed != "" {
		if result, err := c.classifyWithLLM(ctx, trimmed, sctx); err == nil {
			return result
		} else {
			c.logger.Printf("[CLASSIFIER] LLM classification failed, using fallback: %v", err)
		}
	}

	// Tier 4: fixed low-confidence default
	return &state.IntentResult{
		Type:       state.IntentQuestion,
		Target:     ExtractTarget(trimmed),
		Confidence: fallbackConfidence,
		Method:     state.MethodFallback,
	}
}

type llmIntentResponse struct {
	IntentType   string `json:"intent_type"`
	Target       string `json:"target"`
	IsTechEntity bool   `json:"is_tech_entity"`
	UserRole     string `json:"user_role"`
	Context      string `json:"context"`
	Reasoning    string `json:"reasoning"`
}

func (c *Classifier) classifyWithLLM(ctx context.Context, message string, sctx SessionContext) (*state.IntentResult, error) {
	prompt := c.buildPrompt(message, sctx)

	response, err := c.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.0),
		llm.WithJSONOutput(),
	)
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	var parsed llmIntentResponse
	if err := jsonx.ExtractInto(response, &parsed); err != nil {
		return nil, fmt.Errorf("parse intent response: %w", err)
	}

	intentType := strings.ToLower(strings.TrimSpace(parsed.IntentType))
	if !validIntents[intentType] {
		return nil, fmt.Errorf("llm returned unknown intent type %q", parsed.IntentType)
	}

	target := strings.TrimSpace(parsed.Target)
	if target == "" {
		target = ExtractTarget(message)
	}

	return &state.IntentResult{
		Type:       intentType,
		Target:     target,
		Confidence: llmConfidence,
		Method:     state.MethodLLM,
		UserRole:   parsed.UserRole,
		Context:    parsed.Context,
		Reasoning:  parsed.Reasoning,
	}, nil
}

func (c *Classifier) buildPrompt(message string, sctx SessionContext) string {
	var b strings.Builder

	b.WriteString("你是一个学习平台的意图分析器。你唯一的工作是判断用户想做什么，不要回答用户的问题。\n\n")

	b.WriteString("<session_state>\n")
	b.WriteString(fmt.Sprintf("has_roadmap: %t\n", sctx.HasRoadmap))
	b.WriteString(fmt.Sprintf("has_documents: %t\n", sctx.HasDocuments))
	b.WriteString(fmt.Sprintf("is_first_meaningful_input: %t\n", sctx.IsFirstInput))
	b.WriteString("</session_state>\n\n")

	b.WriteString("<user_message>\n")
	b.WriteString(message)
	b.WriteString("\n</user_message>\n\n")

	b.WriteString("可选意图类型:\n")
	b.WriteString("- new_topic: 用户想学习一个新主题\n")
	b.WriteString("- follow_up: 用户想在当前主题上深入或要更多例子\n")
	b.WriteString("- comparison: 用户想对比两个或多个技术\n")
	b.WriteString("- question: 一般性提问\n")
	b.WriteString("- question_practical: 关于实际使用/实现的提问\n")
	b.WriteString("- optimize_content: 用户对当前内容不满意, 希望改写\n")
	b.WriteString("- navigate: 用户想跳转到已有的文档\n")
	b.WriteString("- plan: 用户想要学习路线图\n")
	b.WriteString("- chitchat: 寒暄闲聊\n\n")

	b.WriteString("只输出 JSON:\n")
	b.WriteString("{\n")
	b.WriteString("  \"intent_type\": \"new_topic\",\n")
	b.WriteString("  \"target\": \"主题名称\",\n")
	b.WriteString("  \"is_tech_entity\": true,\n")
	b.WriteString("  \"user_role\": \"beginner|intermediate|advanced\",\n")
	b.WriteString("  \"context\": \"补充上下文\",\n")
	b.WriteString("  \"reasoning\": \"简要说明\"\n")
	b.WriteString("}")

	return b.String()
}

// ExtractTarget derives a topic string from a raw message by stripping known
// conversational prefixes and truncating to a bounded length.
func ExtractTarget(message string) string {
	target := strings.TrimSpace(message)
	for _, prefix := range conversationalPrefixes {
		if strings.HasPrefix(target, prefix) {
			target = strings.TrimSpace(strings.TrimPrefix(target, prefix))
			break
		}
	}
	target = strings.Trim(target, "?？!！。，, ")

	runes := []rune(target)
	if len(runes) > maxTargetLen {
		target = string(runes[:maxTargetLen])
	}
	return target
}
