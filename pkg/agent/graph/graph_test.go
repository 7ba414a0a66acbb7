package graph

import (
	"context"
	"errors"
	"testing"

	"ai-learnpath-be/pkg/agent/state"

	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) NodeStart(name string) { o.events = append(o.events, "start:"+name) }
func (o *recordingObserver) NodeEnd(name string)   { o.events = append(o.events, "end:"+name) }

func appendNode(tag string) NodeFunc {
	return func(_ context.Context, st *state.AgentState) error {
		st.Append(tag, "ran")
		return nil
	}
}

func ranNodes(st *state.AgentState) []string {
	var names []string
	for _, e := range st.Log {
		names = append(names, e.Node)
	}
	return names
}

func TestExecuteSequential(t *testing.T) {
	g := NewBuilder().
		AddNode("a", appendNode("a")).
		AddNode("b", appendNode("b")).
		AddTerminal("end", nil).
		Edge("a", "b").
		Edge("b", "end").
		SetStart("a").
		Build()

	st := &state.AgentState{}
	obs := &recordingObserver{}
	err := g.Execute(context.Background(), st, obs)

	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ranNodes(st))
	assert.Equal(t, []string{"start:a", "end:a", "start:b", "end:b", "start:end", "end:end"}, obs.events)
}

func TestExecuteConditionalBranch(t *testing.T) {
	build := func() *Graph {
		return NewBuilder().
			AddNode("decide", nil).
			AddNode("left", appendNode("left")).
			AddNode("right", appendNode("right")).
			AddTerminal("end", nil).
			ConditionalEdge("decide", func(st *state.AgentState) string {
				if st.Message == "left" {
					return "left"
				}
				return "right"
			}, map[string]string{"left": "left", "right": "right"}).
			Edge("left", "end").
			Edge("right", "end").
			SetStart("decide").
			Build()
	}

	tests := []struct {
		message string
		want    []string
	}{
		{"left", []string{"left"}},
		{"anything else", []string{"right"}},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			st := &state.AgentState{Message: tt.message}
			assert.NoError(t, build().Execute(context.Background(), st, nil))
			assert.Equal(t, tt.want, ranNodes(st))
		})
	}
}

func TestExecuteNodeError(t *testing.T) {
	boom := errors.New("boom")
	g := NewBuilder().
		AddNode("a", func(context.Context, *state.AgentState) error { return boom }).
		AddTerminal("end", nil).
		Edge("a", "end").
		SetStart("a").
		Build()

	err := g.Execute(context.Background(), &state.AgentState{}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestExecuteMissingEdgeLabel(t *testing.T) {
	g := NewBuilder().
		AddNode("a", nil).
		AddTerminal("end", nil).
		ConditionalEdge("a", func(*state.AgentState) string { return "nowhere" }, map[string]string{"end": "end"}).
		SetStart("a").
		Build()

	err := g.Execute(context.Background(), &state.AgentState{}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no edge for label")
}

func TestExecuteLoopGuard(t *testing.T) {
	g := NewBuilder().
		AddNode("a", nil).
		AddNode("b", nil).
		AddTerminal("end", nil).
		Edge("a", "b").
		Edge("b", "a").
		SetStart("a").
		SetMaxVisits(3).
		Build()

	err := g.Execute(context.Background(), &state.AgentState{}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "loop detected")
}

func TestExecuteCancelledContext(t *testing.T) {
	g := NewBuilder().
		AddNode("a", appendNode("a")).
		AddTerminal("end", nil).
		Edge("a", "end").
		SetStart("a").
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Execute(ctx, &state.AgentState{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
