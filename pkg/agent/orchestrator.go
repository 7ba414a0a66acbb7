// Package agent wires the turn pipeline: intent classification, routing,
// roadmap planning, streaming content generation and post-processing over a
// shared per-turn state, streaming lifecycle events to the client as it
// goes.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-learnpath-be/pkg/agent/content"
	"ai-learnpath-be/pkg/agent/events"
	"ai-learnpath-be/pkg/agent/graph"
	"ai-learnpath-be/pkg/agent/intent"
	"ai-learnpath-be/pkg/agent/planner"
	"ai-learnpath-be/pkg/agent/postprocess"
	"ai-learnpath-be/pkg/agent/router"
	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/llm"
)

// Node names of the turn graph.
const (
	nodeInputNormalizer = "input_normalizer"
	nodeIntent          = "intent"
	nodeChitchat        = "chitchat"
	nodeNavigator       = "navigator"
	nodeRouter          = "router"
	nodePlanner         = "planner"
	nodeContent         = "content"
	nodePostProcess     = "post_process"
	nodeEnd             = "end"
)

// Navigator resolves a navigation target against the session's documents.
// Returning (nil, nil) means the lookup missed and the turn falls through
// to generation.
type Navigator interface {
	Resolve(ctx context.Context, st *state.AgentState) (*state.DocumentRef, error)
}

// Orchestrator owns the turn state machine.
type Orchestrator struct {
	classifier  *intent.Classifier
	router      *router.Router
	generator   *content.Generator
	planner     *planner.Planner
	processor   *postprocess.Processor
	navigator   Navigator
	llmProvider llm.LLMProvider
	logger      *log.Logger
	graph       *graph.Graph

	// DisableLLMIntent keeps intent classification on rules only. Useful
	// when the model backend is slow or flaky.
	DisableLLMIntent bool
}

func NewOrchestrator(llmProvider llm.LLMProvider, navigator Navigator, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	if navigator == nil {
		navigator = LexicalNavigator{}
	}
	o := &Orchestrator{
		classifier:  intent.NewClassifier(llmProvider, logger),
		router:      router.NewRouter(llmProvider, logger),
		generator:   content.NewGenerator(llmProvider, logger),
		planner:     planner.NewPlanner(llmProvider, logger),
		processor:   postprocess.NewProcessor(llmProvider, logger),
		navigator:   navigator,
		llmProvider: llmProvider,
		logger:      logger,
	}
	o.graph = o.buildGraph()
	return o
}

func (o *Orchestrator) buildGraph() *graph.Graph {
	return graph.NewBuilder().
		AddNode(nodeInputNormalizer, o.runInputNormalizer).
		AddNode(nodeIntent, o.runIntent).
		AddTerminal(nodeChitchat, o.runChitchat).
		AddNode(nodeNavigator, o.runNavigator).
		AddNode(nodeRouter, o.runRouter).
		AddNode(nodePlanner, o.runPlanner).
		AddNode(nodeContent, o.runContent).
		AddNode(nodePostProcess, o.runPostProcess).
		AddTerminal(nodeEnd, nil).
		Edge(nodeInputNormalizer, nodeIntent).
		ConditionalEdge(nodeIntent, routeByIntent, map[string]string{
			"chitchat": nodeChitchat,
			"navigate": nodeNavigator,
			"route":    nodeRouter,
		}).
		ConditionalEdge(nodeRouter, routeByDecision, map[string]string{
			"navigate": nodeNavigator,
			"plan":     nodePlanner,
			"generate": nodeContent,
		}).
		ConditionalEdge(nodePlanner, afterPlanner, map[string]string{
			"end":      nodeEnd,
			"generate": nodeContent,
		}).
		ConditionalEdge(nodeNavigator, afterNavigator, map[string]string{
			"end":      nodeEnd,
			"generate": nodeContent,
		}).
		Edge(nodeContent, nodePostProcess).
		Edge(nodePostProcess, nodeEnd).
		SetStart(nodeInputNormalizer).
		Build()
}

// Run executes one turn, streaming lifecycle events to the emitter. A
// cancelled context propagates as ctx.Err() with no error event; ordinary
// failures emit an error event before returning.
func (o *Orchestrator) Run(ctx context.Context, st *state.AgentState, emitter events.Emitter) error {
	t := &turn{state: st, emitter: emitter}

	if err := o.graph.Execute(turnContext(ctx, t), st, t); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		st.Err = err.Error()
		t.emit(events.New(events.TypeError, map[string]interface{}{
			"message": "生成失败, 请稍后重试。",
			"detail":  err.Error(),
		}))
		return err
	}

	t.emit(events.New(events.TypeDone, nil))
	return nil
}

// turn carries the per-execution emitter so node funcs registered once at
// construction can reach it. It doubles as the graph observer.
type turn struct {
	state   *state.AgentState
	emitter events.Emitter
}

func (t *turn) emit(e events.Event) {
	if t.emitter != nil {
		t.emitter.Emit(e)
	}
}

func (t *turn) NodeStart(name string) {
	t.emit(events.New(events.TypeNodeStart, map[string]interface{}{"node": name}))
}

func (t *turn) NodeEnd(name string) {
	t.emit(events.New(events.TypeNodeEnd, map[string]interface{}{"node": name}))
}

type turnKey struct{}

func turnContext(ctx context.Context, t *turn) context.Context {
	return context.WithValue(ctx, turnKey{}, t)
}

func turnFrom(ctx context.Context) *turn {
	if t, ok := ctx.Value(turnKey{}).(*turn); ok {
		return t
	}
	return &turn{}
}

// Conditional edges.

func routeByIntent(st *state.AgentState) string {
	if st.Intent == nil {
		return "route"
	}
	switch st.Intent.Type {
	case state.IntentChitchat:
		return "chitchat"
	case state.IntentNavigate:
		return "navigate"
	default:
		return "route"
	}
}

func routeByDecision(st *state.AgentState) string {
	if st.Decision == nil {
		return "generate"
	}
	switch st.Decision.Action {
	case state.ActionNavigate:
		return "navigate"
	case state.ActionPlan:
		return "plan"
	default:
		return "generate"
	}
}

func afterPlanner(st *state.AgentState) string {
	if st.RoadmapOnly {
		return "end"
	}
	return "generate"
}

func afterNavigator(st *state.AgentState) string {
	if st.NavigatedTo != nil {
		return "end"
	}
	return "generate"
}

// Node implementations.

func (o *Orchestrator) runInputNormalizer(ctx context.Context, st *state.AgentState) error {
	st.Message = strings.TrimSpace(st.Message)

	switch st.Source {
	case state.SourceEntity:
		if st.Payload.Entity != nil && st.Message == "" {
			st.Message = "介绍一下 " + st.Payload.Entity.Name
		}
	case state.SourceEntry:
		if st.Message == "" {
			st.Message = "你好"
		}
	}

	st.Append("input_normalizer", fmt.Sprintf("source=%s message=%q", st.Source, st.Message))
	return nil
}

func (o *Orchestrator) runIntent(ctx context.Context, st *state.AgentState) error {
	t := turnFrom(ctx)

	result := o.classifier.Classify(ctx, st.Message, intent.SessionContext{
		HasRoadmap:   st.HasRoadmap(),
		HasDocuments: st.HasDocuments(),
		IsFirstInput: st.IsFirstTopic(),
		DisableLLM:   o.DisableLLMIntent,
	})

	// A follow-up click arrives pre-classified; the hint wins over the
	// textual classification.
	if st.Source == state.SourceFollowUp && st.Payload.FollowUp != nil && st.Payload.FollowUp.IntentHint != "" {
		result.Type = st.Payload.FollowUp.IntentHint
		result.Confidence = 1.0
		result.Method = state.MethodStrongRule
	}

	st.Intent = result
	st.Append("intent", fmt.Sprintf("type=%s target=%q method=%s", result.Type, result.Target, result.Method))

	t.emit(events.New(events.TypeThinking, map[string]interface{}{
		"stage":      "intent",
		"intent":     result.Type,
		"target":     result.Target,
		"confidence": result.Confidence,
	}))
	return nil
}

func (o *Orchestrator) runChitchat(ctx context.Context, st *state.AgentState) error {
	t := turnFrom(ctx)

	reply, err := o.llmProvider.Chat(ctx, []llm.Message{
		{Role: "system", Content: "你是一个学习助手。用一两句友好的中文回应用户的寒暄, 并引导对方说出想学的内容。"},
		{Role: "user", Content: st.Message},
	}, llm.WithTemperature(0.7))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Printf("[ORCHESTRATOR] chitchat reply failed: %v", err)
		reply = "你好! 我是你的学习助手, 告诉我你想学什么, 我来帮你生成学习内容。"
	}

	st.ChatReply = reply
	t.emit(events.New(events.TypeContent, map[string]interface{}{"text": reply}))
	return nil
}

func (o *Orchestrator) runNavigator(ctx context.Context, st *state.AgentState) error {
	t := turnFrom(ctx)

	ref, err := o.navigator.Resolve(ctx, st)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Printf("[ORCHESTRATOR] navigation lookup failed: %v", err)
		ref = nil
	}

	if ref == nil {
		st.Append("navigator", "miss, falling through to generation")
		if st.Decision == nil {
			st.Decision = &state.RoutingDecision{
				Action:     state.ActionGenerateNew,
				Mode:       state.ModeStandard,
				Target:     navigationTarget(st),
				Reasoning:  "导航目标不存在, 改为生成新文档。",
				Confidence: 0.9,
				Method:     router.MethodRule,
			}
		}
		return nil
	}

	st.NavigatedTo = ref
	st.Append("navigator", fmt.Sprintf("resolved %s", ref.Topic))
	t.emit(events.New(events.TypeNavigation, map[string]interface{}{
		"document_id": ref.ID.String(),
		"topic":       ref.Topic,
	}))
	return nil
}

func (o *Orchestrator) runRouter(ctx context.Context, st *state.AgentState) error {
	t := turnFrom(ctx)

	decision := o.router.Route(ctx, st)
	if err := ctx.Err(); err != nil {
		return err
	}

	st.Decision = decision
	st.Append("router", fmt.Sprintf("action=%s mode=%s method=%s", decision.Action, decision.Mode, decision.Method))

	t.emit(events.New(events.TypeThinking, map[string]interface{}{
		"stage":     "routing",
		"action":    decision.Action,
		"mode":      decision.Mode,
		"reasoning": decision.Reasoning,
	}))
	return nil
}

func (o *Orchestrator) runPlanner(ctx context.Context, st *state.AgentState) error {
	t := turnFrom(ctx)
	t.emit(events.New(events.TypeToolStart, map[string]interface{}{"tool": "roadmap_planner"}))

	if st.Decision != nil && st.Decision.Mode == state.ModeRoadmapModify && st.ActiveRoadmap != nil {
		revised, err := o.planner.Modify(ctx, st, st.ActiveRoadmap)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Advisory only: the unchanged roadmap is still usable.
			o.logger.Printf("[ORCHESTRATOR] roadmap modify failed: %v", err)
			t.emit(events.New(events.TypeError, map[string]interface{}{
				"message": "路线图调整失败, 保留了当前版本。",
			}))
		}
		st.Roadmap = revised
		st.RoadmapOnly = true
	} else {
		roadmap, err := o.planner.Generate(ctx, st)
		if err != nil {
			return err
		}
		st.Roadmap = roadmap
		st.RoadmapOnly = false
	}

	st.ActiveRoadmap = st.Roadmap
	st.Append("planner", fmt.Sprintf("roadmap %q v%d, %d milestones", st.Roadmap.Goal, st.Roadmap.Version, len(st.Roadmap.Milestones)))

	t.emit(events.New(events.TypeToolEnd, map[string]interface{}{"tool": "roadmap_planner"}))
	t.emit(events.New(events.TypeRoadmap, map[string]interface{}{"roadmap": st.Roadmap}))

	// The first roadmap always kicks off a first document on milestone 0.
	if !st.RoadmapOnly && st.Decision != nil {
		st.Decision.Mode = state.ModeRoadmapLearning
		if st.Decision.Target == "" && len(st.Roadmap.Milestones) > 0 {
			st.Decision.Target = st.Roadmap.Milestones[0].Title
		}
	}
	return nil
}

func (o *Orchestrator) runContent(ctx context.Context, st *state.AgentState) error {
	t := turnFrom(ctx)
	t.emit(events.New(events.TypeDocumentStart, map[string]interface{}{"topic": contentTopic(st)}))

	onToken := func(token string) error {
		t.emit(events.New(events.TypeDocumentToken, map[string]interface{}{"token": token}))
		return nil
	}

	if st.Decision != nil && st.Decision.Action == state.ActionUpdateDoc && st.Document != nil {
		revised, summary, err := o.generator.Update(ctx, st, st.Document, onToken)
		if err != nil {
			return err
		}
		st.Document = revised
		st.Append("content", summary)
	} else {
		doc, err := o.generator.Generate(ctx, st, onToken)
		if err != nil {
			return err
		}
		st.Document = doc
		st.Append("content", fmt.Sprintf("generated %q v%d", doc.Topic, doc.Version))
	}

	t.emit(events.New(events.TypeDocument, map[string]interface{}{"document": st.Document}))
	return nil
}

func (o *Orchestrator) runPostProcess(ctx context.Context, st *state.AgentState) error {
	t := turnFrom(ctx)

	o.processor.Process(ctx, st)

	if st.Document != nil && len(st.Document.Entities) > 0 {
		t.emit(events.New(events.TypeEntities, map[string]interface{}{"entities": st.Document.Entities}))
	}
	if len(st.FollowUps) > 0 {
		t.emit(events.New(events.TypeFollowUps, map[string]interface{}{"questions": st.FollowUps}))
	}
	return nil
}

func contentTopic(st *state.AgentState) string {
	if st.Decision != nil && st.Decision.Target != "" {
		return st.Decision.Target
	}
	if st.Intent != nil && st.Intent.Target != "" {
		return st.Intent.Target
	}
	return st.Message
}

func navigationTarget(st *state.AgentState) string {
	if st.Intent != nil && st.Intent.Target != "" {
		return st.Intent.Target
	}
	return st.Message
}

// LexicalNavigator resolves navigation targets by case-insensitive
// substring match over the session's documents, most recent first.
type LexicalNavigator struct{}

func (LexicalNavigator) Resolve(ctx context.Context, st *state.AgentState) (*state.DocumentRef, error) {
	if st.Decision != nil && st.Decision.TargetDocID != nil {
		for _, pool := range [][]state.DocumentRef{st.RecentDocs, st.AvailableDocs} {
			for i := range pool {
				if pool[i].ID == *st.Decision.TargetDocID {
					ref := pool[i]
					return &ref, nil
				}
			}
		}
	}

	target := strings.ToLower(strings.TrimSpace(navigationTarget(st)))
	if target == "" {
		return nil, nil
	}

	for _, pool := range [][]state.DocumentRef{st.RecentDocs, st.AvailableDocs} {
		for i := range pool {
			topic := strings.ToLower(pool[i].Topic)
			if strings.Contains(topic, target) || strings.Contains(target, topic) {
				ref := pool[i]
				return &ref, nil
			}
		}
	}
	return nil, nil
}
