package state

import (
	"github.com/google/uuid"
)

// Source identifies the channel a user turn arrived from.
type Source string

const (
	SourceChat     Source = "chat"
	SourceComment  Source = "comment"
	SourceEntity   Source = "entity"
	SourceFollowUp Source = "follow_up"
	SourceEntry    Source = "entry"
)

// Intent type constants (closed set).
const (
	IntentNewTopic          = "new_topic"
	IntentFollowUp          = "follow_up"
	IntentComparison        = "comparison"
	IntentQuestion          = "question"
	IntentQuestionPractical = "question_practical"
	IntentOptimizeContent   = "optimize_content"
	IntentNavigate          = "navigate"
	IntentPlan              = "plan"
	IntentChitchat          = "chitchat"
)

// Classification method constants.
const (
	MethodStrongRule = "strong_rule"
	MethodFuzzyRule  = "fuzzy_rule"
	MethodLLM        = "llm"
	MethodFallback   = "fallback"
)

// Routing actions (closed set).
const (
	ActionGenerateNew = "generate_new"
	ActionUpdateDoc   = "update_doc"
	ActionNavigate    = "navigate"
	ActionPlan        = "plan"
)

// Generation modes (closed set).
const (
	ModeStandard         = "standard"
	ModeRoadmapLearning  = "roadmap_learning"
	ModeRoadmapGenerate  = "roadmap_generate"
	ModeRoadmapModify    = "roadmap_modify"
	ModeExplainSelection = "explain_selection"
	ModeComparison       = "comparison"
)

// User-need categories for explain_selection turns.
const (
	NeedMoreExamples   = "more_examples"
	NeedMoreDepth      = "more_depth"
	NeedMoreClarity    = "more_clarity"
	NeedDifferentAngle = "different_angle"
)

// IntentResult is the ephemeral output of classification. It is never
// persisted standalone; it rides along as message metadata.
type IntentResult struct {
	Type       string  `json:"intent_type"`
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Complexity string  `json:"complexity,omitempty"`
	UserRole   string  `json:"user_role,omitempty"`
	UserNeed   string  `json:"user_need,omitempty"`
	Context    string  `json:"context,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// RoutingDecision is the ephemeral output of the router.
type RoutingDecision struct {
	Action      string     `json:"action"`
	Mode        string     `json:"mode"`
	Target      string     `json:"target,omitempty"`
	TargetDocID *uuid.UUID `json:"target_doc_id,omitempty"`
	Reasoning   string     `json:"reasoning"`
	Confidence  float64    `json:"confidence"`
	Method      string     `json:"method"`
}

// Milestone is one ordered stage of a roadmap.
type Milestone struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
}

// Roadmap is the working roadmap snapshot carried through a turn.
type Roadmap struct {
	ID         uuid.UUID   `json:"id"`
	Goal       string      `json:"goal"`
	Milestones []Milestone `json:"milestones"`
	Mermaid    string      `json:"mermaid,omitempty"`
	Version    int         `json:"version"`
	IsActive   bool        `json:"is_active"`
}

// Document is the working document carried through a turn.
type Document struct {
	ID           uuid.UUID  `json:"id"`
	Topic        string     `json:"topic"`
	Content      string     `json:"content"`
	Version      int        `json:"version"`
	CategoryPath string     `json:"category_path"`
	Entities     []string   `json:"entities,omitempty"`
	RoadmapID    *uuid.UUID `json:"roadmap_id,omitempty"`
	MilestoneID  *int       `json:"milestone_id,omitempty"`
	ParentDocID  *uuid.UUID `json:"parent_doc_id,omitempty"`
}

// DocumentRef is a lightweight handle used for navigation and routing context.
type DocumentRef struct {
	ID    uuid.UUID `json:"id"`
	Topic string    `json:"topic"`
}

// CommentPayload carries the selection a comment turn anchors to.
type CommentPayload struct {
	SelectedText string     `json:"selected_text"`
	Context      string     `json:"context"`
	DocumentID   *uuid.UUID `json:"document_id,omitempty"`
}

// EntityPayload carries a clicked entity name.
type EntityPayload struct {
	Name string `json:"name"`
}

// FollowUpPayload carries the pre-classified hint of a follow-up click.
type FollowUpPayload struct {
	IntentHint string `json:"intent_hint"`
}

// Payload is the tagged per-source extra data. Exactly one field is set,
// matching the Source of the turn.
type Payload struct {
	Comment  *CommentPayload  `json:"comment,omitempty"`
	Entity   *EntityPayload   `json:"entity,omitempty"`
	FollowUp *FollowUpPayload `json:"follow_up,omitempty"`
}

// LogEntry records one step of a turn for diagnostics.
type LogEntry struct {
	Node    string `json:"node"`
	Message string `json:"message"`
}

// AgentState is the per-turn mutable record threaded through every graph
// node. It is constructed fresh from persisted session context at the start
// of a turn, owned exclusively by that turn, and discarded after the turn's
// side effects are persisted.
type AgentState struct {
	SessionID uuid.UUID
	UserID    uuid.UUID

	// Input
	Source  Source
	Message string
	Payload Payload

	// Session context snapshot
	CurrentDocID  *uuid.UUID
	LearnedTopics []string
	RecentDocs    []DocumentRef
	AvailableDocs []DocumentRef
	ActiveRoadmap *Roadmap
	UserLevel     string

	// Node outputs
	Intent   *IntentResult
	Decision *RoutingDecision
	Document *Document
	Roadmap  *Roadmap

	FollowUps   []string
	ChatReply   string
	NavigatedTo *DocumentRef
	RoadmapOnly bool

	Err string

	Log []LogEntry
}

// Append records a log entry for the given node.
func (s *AgentState) Append(node, message string) {
	s.Log = append(s.Log, LogEntry{Node: node, Message: message})
}

// HasRoadmap reports whether the session had an active roadmap when the
// turn started.
func (s *AgentState) HasRoadmap() bool {
	return s.ActiveRoadmap != nil && len(s.ActiveRoadmap.Milestones) > 0
}

// HasDocuments reports whether any documents existed when the turn started.
func (s *AgentState) HasDocuments() bool {
	return len(s.AvailableDocs) > 0 || s.CurrentDocID != nil
}

// IsFirstTopic is the session-bootstrap predicate: no roadmap and no
// documents yet. The router's fast-path skip and the first-topic override
// both call this single predicate so the two checks can never drift apart.
func (s *AgentState) IsFirstTopic() bool {
	return !s.HasRoadmap() && !s.HasDocuments()
}
