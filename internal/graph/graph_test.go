package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/equityscribe/equityscribe/internal/models"
)

func textNode(name string, field models.Field, value string) *Node {
	return &Node{
		Name:     name,
		Produces: []models.Field{field},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			return models.Delta{field: value}, nil
		},
	}
}

func buildLinear(t *testing.T, nodes []*Node, edges [][2]string, entry string) *Runner {
	t.Helper()
	g := New()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.Name, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%s->%s): %v", e[0], e[1], err)
		}
	}
	if err := g.SetEntry(entry); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	runner, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return runner
}

func TestInvokeSequential(t *testing.T) {
	runner := buildLinear(t,
		[]*Node{
			textNode("a", models.FieldDataAnalysis, "data"),
			textNode("b", models.FieldRiskAssessment, "risk"),
		},
		[][2]string{{"a", "b"}},
		"a")

	state, err := runner.Invoke(context.Background(), models.ResearchState{Query: "q"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if state.DataAnalysis != "data" || state.RiskAssessment != "risk" {
		t.Fatalf("fields not populated: %+v", state)
	}
	if state.Query != "q" {
		t.Fatalf("initial fields must survive the run")
	}
}

func TestJoinWaitsForAllPredecessors(t *testing.T) {
	var mu sync.Mutex
	var completed []string

	mark := func(name string, field models.Field) *Node {
		return &Node{
			Name:     name,
			Produces: []models.Field{field},
			Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
				mu.Lock()
				completed = append(completed, name)
				mu.Unlock()
				return models.Delta{field: name}, nil
			},
		}
	}

	join := &Node{
		Name:     "join",
		Produces: []models.Field{models.FieldTechnicalStrategy},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			// All three branch outputs must be visible in the snapshot.
			if state.TrendAnalysis == "" || state.PatternAnalysis == "" || state.IndicatorAnalysis == "" {
				t.Errorf("join ran before all predecessors merged: %+v", state)
			}
			return models.Delta{models.FieldTechnicalStrategy: "joined"}, nil
		},
	}

	entry := &Node{
		Name: "entry",
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			return models.Delta{}, nil
		},
	}

	for i := 0; i < 20; i++ {
		completed = nil
		runner := buildLinear(t,
			[]*Node{
				entry,
				mark("trend", models.FieldTrendAnalysis),
				mark("pattern", models.FieldPatternAnalysis),
				mark("indicator", models.FieldIndicatorAnalysis),
				join,
			},
			[][2]string{
				{"entry", "trend"}, {"entry", "pattern"}, {"entry", "indicator"},
				{"trend", "join"}, {"pattern", "join"}, {"indicator", "join"},
			},
			"entry")

		state, err := runner.Invoke(context.Background(), models.ResearchState{})
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if state.TechnicalStrategy != "joined" {
			t.Fatalf("join did not run")
		}
		if len(completed) != 3 {
			t.Fatalf("expected 3 branch completions, got %v", completed)
		}
	}
}

func TestConcurrentBranchesProduceSameState(t *testing.T) {
	build := func() *Runner {
		entry := &Node{
			Name: "entry",
			Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
				return models.Delta{}, nil
			},
		}
		return buildLinear(t,
			[]*Node{
				entry,
				textNode("b1", models.FieldDataAnalysis, "one"),
				textNode("b2", models.FieldNewsAnalysis, "two"),
				textNode("b3", models.FieldTrendAnalysis, "three"),
			},
			[][2]string{{"entry", "b1"}, {"entry", "b2"}, {"entry", "b3"}},
			"entry")
	}

	for i := 0; i < 50; i++ {
		state, err := build().Invoke(context.Background(), models.ResearchState{})
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if state.DataAnalysis != "one" || state.NewsAnalysis != "two" || state.TrendAnalysis != "three" {
			t.Fatalf("run %d produced different state: %+v", i, state)
		}
	}
}

func TestCompileRejectsDuplicateWriter(t *testing.T) {
	g := New()
	_ = g.AddNode(textNode("a", models.FieldDataAnalysis, "x"))
	_ = g.AddNode(textNode("b", models.FieldDataAnalysis, "y"))
	_ = g.AddEdge("a", "b")
	_ = g.SetEntry("a")

	if _, err := g.Compile(); err == nil {
		t.Fatalf("expected duplicate-writer error")
	} else if !strings.Contains(err.Error(), "data_analysis") {
		t.Fatalf("error should name the field: %v", err)
	}
}

func TestCompileRejectsCycle(t *testing.T) {
	g := New()
	_ = g.AddNode(textNode("a", models.FieldDataAnalysis, "x"))
	_ = g.AddNode(textNode("b", models.FieldNewsAnalysis, "y"))
	_ = g.AddNode(textNode("c", models.FieldTrendAnalysis, "z"))
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")
	_ = g.AddEdge("c", "b")
	_ = g.SetEntry("a")

	if _, err := g.Compile(); err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestCompileRejectsUnreachableNode(t *testing.T) {
	g := New()
	_ = g.AddNode(textNode("a", models.FieldDataAnalysis, "x"))
	_ = g.AddNode(textNode("orphan", models.FieldNewsAnalysis, "y"))
	_ = g.SetEntry("a")

	if _, err := g.Compile(); err == nil {
		t.Fatalf("expected unreachable-node error")
	}
}

func TestNodeFailureAbortsRun(t *testing.T) {
	boom := errors.New("backend unreachable")
	failing := &Node{
		Name:     "fail",
		Produces: []models.Field{models.FieldNewsAnalysis},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			return nil, boom
		},
	}
	entry := &Node{
		Name: "entry",
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			return models.Delta{}, nil
		},
	}

	runner := buildLinear(t,
		[]*Node{entry, textNode("ok", models.FieldDataAnalysis, "fine"), failing},
		[][2]string{{"entry", "ok"}, {"entry", "fail"}},
		"entry")

	state, err := runner.Invoke(context.Background(), models.ResearchState{})
	if err == nil {
		t.Fatalf("expected run failure")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped node error, got %v", err)
	}
	if !strings.Contains(err.Error(), "fail") {
		t.Fatalf("error should carry the failing node name: %v", err)
	}
	if state.DataAnalysis != "" || state.NewsAnalysis != "" {
		t.Fatalf("failed run must not return partial state: %+v", state)
	}
}

func TestMergeRejectsUndeclaredField(t *testing.T) {
	sneaky := &Node{
		Name:     "sneaky",
		Produces: []models.Field{models.FieldDataAnalysis},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			return models.Delta{
				models.FieldDataAnalysis: "mine",
				models.FieldNewsAnalysis: "not mine",
			}, nil
		},
	}
	runner := buildLinear(t, []*Node{sneaky}, nil, "sneaky")

	if _, err := runner.Invoke(context.Background(), models.ResearchState{}); err == nil {
		t.Fatalf("expected undeclared-field error")
	}
}

func TestMergeRejectsMissingDeclaredField(t *testing.T) {
	lazy := &Node{
		Name:     "lazy",
		Produces: []models.Field{models.FieldDataAnalysis, models.FieldNewsAnalysis},
		Run: func(ctx context.Context, state models.ResearchState) (models.Delta, error) {
			return models.Delta{models.FieldDataAnalysis: "only one"}, nil
		},
	}
	runner := buildLinear(t, []*Node{lazy}, nil, "lazy")

	if _, err := runner.Invoke(context.Background(), models.ResearchState{}); err == nil {
		t.Fatalf("expected missing-declared-field error")
	}
}
