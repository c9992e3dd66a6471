package stategraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_LinearFlow tests basic linear execution.
func TestRun_LinearFlow(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		AddNode("inc3", increment).
		SetStart("inc1").
		AddEdge("inc1", "inc2").
		AddEdge("inc2", "inc3").
		SetEnd("inc3"))

	result, err := compiled.Run(testCtx(), NewRecord("count", 0))

	require.NoError(t, err)
	assert.Equal(t, 3, result.Int("count", 0))
}

// TestExecute_StaticPathStepCount verifies a static path of N nodes reaches
// END in exactly N steps.
func TestExecute_StaticPathStepCount(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("%d nodes", n), func(t *testing.T) {
			g := NewGraph()
			var want []string
			for i := range n {
				name := fmt.Sprintf("n%d", i)
				want = append(want, name)
				g.AddNode(name, noop)
				if i == 0 {
					g.SetStart(name)
				} else {
					g.AddEdge(want[i-1], name)
				}
			}
			g.SetEnd(want[n-1])

			res, err := mustCompile(g).Execute(testCtx(), Record{}, WithMaxSteps(n))

			require.NoError(t, err)
			assert.Equal(t, n, res.Steps)
			assert.Equal(t, want, res.Path)
		})
	}
}

// TestRun_StatePassedBetweenNodes tests partial updates flow between nodes.
func TestRun_StatePassedBetweenNodes(t *testing.T) {
	var seenByB Record

	compiled := mustCompile(NewGraph().
		AddNode("a", func(_ Context, in Record) (Record, error) {
			return NewRecord("step", 1), nil
		}).
		AddNode("b", func(_ Context, in Record) (Record, error) {
			seenByB = in
			return NewRecord("step", 2, "b_ran", true), nil
		}).
		SetStart("a").
		AddEdge("a", "b").
		SetEnd("b"))

	result, err := compiled.Run(testCtx(), NewRecord("initial", "test"))

	require.NoError(t, err)
	assert.Equal(t, "test", seenByB.String("initial", ""))
	assert.Equal(t, 1, seenByB.Int("step", 0))
	assert.Equal(t, 2, result.Int("step", 0))
	assert.True(t, result.Bool("b_ran", false))
	assert.Equal(t, []string{"initial", "step", "b_ran"}, result.Keys())
}

// TestRun_InitialStateNotMutated tests the caller's record is never changed.
func TestRun_InitialStateNotMutated(t *testing.T) {
	compiled := mustCompile(NewGraph().AddNode("inc", increment).SetStart("inc").SetEnd("inc"))
	initial := NewRecord("count", 5, "tags", []string{"a"})

	result, err := compiled.Run(testCtx(), initial)

	require.NoError(t, err)
	assert.Equal(t, 5, initial.Int("count", 0))
	assert.Equal(t, 6, result.Int("count", 0))
}

// TestRouter_MappingDefaultAndError covers exact match, default and the
// fatal unmapped case.
func TestRouter_MappingDefaultAndError(t *testing.T) {
	build := func(key RouteKey, withDefault bool) *CompiledGraph {
		opts := []RouteOption{}
		if withDefault {
			opts = append(opts, WithDefault("C"))
		}
		return mustCompile(NewGraph().
			AddNode("decide", noop).
			AddNode("A", noop).
			AddNode("B", noop).
			AddNode("C", noop).
			SetStart("decide").
			AddConditionalEdges("decide", Always(key), Routes{"search": "A", "error": "B"}, opts...).
			SetEnd("A").
			SetEnd("B").
			SetEnd("C"))
	}

	t.Run("mapped key", func(t *testing.T) {
		res, err := build("error", true).Execute(testCtx(), Record{})
		require.NoError(t, err)
		assert.Equal(t, []string{"decide", "B"}, res.Path)
	})

	t.Run("unmapped key takes default", func(t *testing.T) {
		res, err := build("unmapped", true).Execute(testCtx(), Record{})
		require.NoError(t, err)
		assert.Equal(t, []string{"decide", "C"}, res.Path)
	})

	t.Run("unmapped key without default", func(t *testing.T) {
		// Without a default C is unreachable, so it is left out.
		compiled := mustCompile(NewGraph().
			AddNode("decide", func(Context, Record) (Record, error) {
				return NewRecord("decided", true), nil
			}).
			AddNode("A", noop).
			AddNode("B", noop).
			SetStart("decide").
			AddConditionalEdges("decide", Always("unmapped"), Routes{"search": "A", "error": "B"}).
			SetEnd("A").
			SetEnd("B"))

		res, err := compiled.Execute(testCtx(), NewRecord("query", "q"))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRouting)
		var routingErr *RoutingError
		require.ErrorAs(t, err, &routingErr)
		assert.Equal(t, "decide", routingErr.From)
		assert.Equal(t, RouteKey("unmapped"), routingErr.Key)
		assert.True(t, routingErr.State.Bool("decided", false), "partial state carried in error")
		assert.True(t, res.State.Bool("decided", false), "partial state returned")
		assert.Equal(t, 1, res.Steps)
	})
}

// TestRun_Loop tests a conditional loop terminating on state.
func TestRun_Loop(t *testing.T) {
	router := func(_ Context, s Record) RouteKey {
		if s.Int("count", 0) >= 5 {
			return "done"
		}
		return "again"
	}

	compiled := mustCompile(NewGraph().
		AddNode("inc", increment).
		SetStart("inc").
		AddConditionalEdges("inc", router, Routes{"again": "inc", "done": END}, WithRouteKeys("again", "done")))

	res, err := compiled.Execute(testCtx(), NewRecord("count", 0))

	require.NoError(t, err)
	assert.Equal(t, 5, res.State.Int("count", 0))
	assert.Equal(t, 5, res.Steps)
}

// TestRun_MaxSteps_PreventsInfiniteLoop tests the step ceiling.
func TestRun_MaxSteps_PreventsInfiniteLoop(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("inc", increment).
		SetStart("inc").
		AddConditionalEdges("inc", Always("again"), Routes{"again": "inc", "done": END}))

	res, err := compiled.Execute(testCtx(), NewRecord("count", 0), WithMaxSteps(10))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycleExceeded)
	var cycleErr *CycleExceededError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, 10, cycleErr.Max)
	assert.Equal(t, "inc", cycleErr.LastNode)
	assert.Equal(t, 10, cycleErr.State.Int("count", 0))
	assert.Equal(t, 10, res.Steps)
	assert.Equal(t, 10, res.State.Int("count", 0))
}

func TestRun_MaxSteps_DefaultValue(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("inc", increment).
		SetStart("inc").
		AddConditionalEdges("inc", Always("again"), Routes{"again": "inc", "done": END}))

	res, err := compiled.Execute(testCtx(), Record{})

	require.ErrorIs(t, err, ErrCycleExceeded)
	assert.Equal(t, DefaultMaxSteps, res.Steps)
}

// TestRun_NodeError_RecordedAndRouted tests a node failure is logged in the
// state and handed to the router rather than aborting the run.
func TestRun_NodeError_RecordedAndRouted(t *testing.T) {
	var routerSaw error

	router := func(ctx Context, _ Record) RouteKey {
		routerSaw = ctx.NodeErr()
		if routerSaw != nil {
			return RouteKeyError
		}
		return RouteKeySuccess
	}

	compiled := mustCompile(NewGraph().
		AddNode("work", makeFailingNode(errors.New("boom"))).
		AddNode("recover", noop).
		SetStart("work").
		AddConditionalEdges("work", router, Routes{RouteKeySuccess: END, RouteKeyError: "recover"}).
		SetEnd("recover"))

	res, err := compiled.Execute(testCtx(), NewRecord("errors", []string{}))

	require.NoError(t, err, "node failures are not fatal")
	assert.Equal(t, []string{"work", "recover"}, res.Path)
	assert.Equal(t, []string{"node work: boom"}, res.State.Strings("errors", nil))

	var nodeErr *NodeExecutionError
	require.ErrorAs(t, routerSaw, &nodeErr)
	assert.Equal(t, "work", nodeErr.Node)
	assert.Equal(t, 1, nodeErr.Step)
	assert.EqualError(t, nodeErr.Err, "boom")
}

func TestRun_NodeError_KeepsExistingLogEntries(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("n", makeFailingNode(errors.New("boom"))).
		SetStart("n").
		AddConditionalEdges("n", ErrorAware(Always(RouteKeySuccess)),
			Routes{RouteKeySuccess: END, RouteKeyError: END}))

	tests := []struct {
		name    string
		initial any
		want    []any
	}{
		{"mixed list", []any{"earlier", map[string]any{"code": 1}}, []any{"earlier", map[string]any{"code": 1}, "node n: boom"}},
		{"scalar", "earlier", []any{"earlier", "node n: boom"}},
		{"strings", []string{"earlier"}, []any{"earlier", "node n: boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := compiled.Run(testCtx(), NewRecord("errors", tt.initial))

			require.NoError(t, err)
			assert.Equal(t, tt.want, result.List("errors", nil))
		})
	}
}

// TestRun_NodeError_UpdateMergedBeforeError tests a failing node's partial
// update is still merged.
func TestRun_NodeError_UpdateMergedBeforeError(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("work", func(Context, Record) (Record, error) {
			return NewRecord("partial", "kept"), errors.New("failed late")
		}).
		SetStart("work").
		AddConditionalEdges("work", ErrorAware(Always(RouteKeySuccess)),
			Routes{RouteKeySuccess: END, RouteKeyError: END}))

	result, err := compiled.Run(testCtx(), Record{})

	require.NoError(t, err)
	assert.Equal(t, "kept", result.String("partial", ""))
	assert.Len(t, result.Strings("errors", nil), 1)
}

// TestRun_PanicRecovery tests panics become recoverable node failures.
func TestRun_PanicRecovery(t *testing.T) {
	var seen error
	compiled := mustCompile(NewGraph().
		AddNode("panicky", makePanicNode("something went wrong")).
		SetStart("panicky").
		AddConditionalEdges("panicky", func(ctx Context, _ Record) RouteKey {
			seen = ctx.NodeErr()
			return "done"
		}, Routes{"done": END}))

	result, err := compiled.Run(testCtx(), Record{})

	require.NoError(t, err)
	var panicErr *PanicError
	require.ErrorAs(t, seen, &panicErr)
	assert.Equal(t, "panicky", panicErr.Node)
	assert.Equal(t, "something went wrong", panicErr.Value)
	assert.Contains(t, panicErr.Stack, "goroutine")
	assert.Len(t, result.Strings("errors", nil), 1)
}

// TestRun_PanicRecovery_Retried tests a panicking node still advances its
// retry counter.
func TestRun_PanicRecovery_Retried(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("panicky", makePanicNode(42)).
		AddNode("fallback", noop).
		SetStart("panicky").
		AddRetryEdges("panicky", END, RetryPolicy{MaxRetries: 2, Fallback: "fallback"}).
		SetEnd("fallback"))

	res, err := compiled.Execute(testCtx(), Record{})

	require.NoError(t, err)
	assert.Equal(t, []string{"panicky", "panicky", "fallback"}, res.Path)
	assert.Equal(t, 2, res.State.Int("retry_count", 0))
}

// TestRun_CancellationBetweenNodes tests cancellation is checked between nodes.
func TestRun_CancellationBetweenNodes(t *testing.T) {
	var executed []string

	ctx, cancel := context.WithCancel(context.Background())

	cancelAfterFirst := func(Context, Record) (Record, error) {
		executed = append(executed, "first")
		cancel()
		return NewRecord("first", true), nil
	}

	compiled := mustCompile(NewGraph().
		AddNode("first", cancelAfterFirst).
		AddNode("second", makeTrackingNode("second", &executed)).
		SetStart("first").
		AddEdge("first", "second").
		SetEnd("second"))

	result, err := compiled.Run(NewContext(ctx), Record{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "second", cancelErr.Node)
	assert.True(t, cancelErr.State.Bool("first", false))
	assert.Equal(t, []string{"first"}, executed)
	assert.True(t, result.Bool("first", false))
}

func TestRun_NilContext_Error(t *testing.T) {
	compiled := mustCompile(NewGraph().AddNode("a", noop).SetStart("a").SetEnd("a"))
	initial := NewRecord("x", 1)

	//nolint:staticcheck // SA1012: testing nil context handling
	result, err := compiled.Run(nil, initial)

	assert.ErrorIs(t, err, ErrNilContext)
	assert.Equal(t, 1, result.Int("x", 0))
}

// TestRun_ContextPropagated tests nodes see run metadata.
func TestRun_ContextPropagated(t *testing.T) {
	type key struct{}
	var (
		gotRunID string
		gotNode  string
		gotStep  int
		gotValue any
		gotErr   error
	)

	compiled := mustCompile(NewGraph().
		AddNode("first", noop).
		AddNode("check", func(ctx Context, _ Record) (Record, error) {
			gotRunID = ctx.RunID()
			gotNode = ctx.NodeID()
			gotStep = ctx.Step()
			gotValue = ctx.Value(key{})
			gotErr = ctx.NodeErr()
			return Record{}, nil
		}).
		SetStart("first").
		AddEdge("first", "check").
		SetEnd("check"))

	base := context.WithValue(context.Background(), key{}, "carried")
	_, err := compiled.Run(NewContext(base, WithContextRunID("run-7")), Record{})

	require.NoError(t, err)
	assert.Equal(t, "run-7", gotRunID)
	assert.Equal(t, "check", gotNode)
	assert.Equal(t, 2, gotStep)
	assert.Equal(t, "carried", gotValue)
	assert.Nil(t, gotErr)
}

func TestExecute_WithRunIDOverridesContext(t *testing.T) {
	compiled := mustCompile(NewGraph().AddNode("a", noop).SetStart("a").SetEnd("a"))

	res, err := compiled.Execute(NewContext(context.Background(), WithContextRunID("ctx-id")), Record{}, WithRunID("opt-id"))

	require.NoError(t, err)
	assert.Equal(t, "opt-id", res.RunID)
}

func TestExecute_WithErrorsField(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("a", makeFailingNode(errors.New("x"))).
		SetStart("a").
		AddConditionalEdges("a", Always("done"), Routes{"done": END}))

	result, err := compiled.Run(testCtx(), Record{}, WithErrorsField("failures"))

	require.NoError(t, err)
	assert.False(t, result.Has("errors"))
	assert.Equal(t, []string{"node a: x"}, result.Strings("failures", nil))
}

func TestExecute_ErrorsFieldAppendsToAnyList(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("a", makeFailingNode(errors.New("second"))).
		SetStart("a").
		AddConditionalEdges("a", Always("done"), Routes{"done": END}))

	result, err := compiled.Run(testCtx(), NewRecord("errors", []any{"first"}))

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "node a: second"}, result.Strings("errors", nil))
}

// TestRun_ConcurrentRuns tests one compiled graph serves parallel runs, each
// with its own record.
func TestRun_ConcurrentRuns(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		SetStart("inc1").
		AddEdge("inc1", "inc2").
		SetEnd("inc2"))

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := compiled.Run(testCtx(), NewRecord("count", i))
			if err == nil {
				results[i] = r.Int("count", -1)
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, i+2, got)
	}
}

// TestEndToEnd_HappyPath runs analyze -> search -> synth -> report with
// empty updates.
func TestEndToEnd_HappyPath(t *testing.T) {
	compiled := mustCompile(NewGraph().
		AddNode("analyze", noop).
		AddNode("search", noop).
		AddNode("synth", noop).
		AddNode("report", noop).
		SetStart("analyze").
		AddEdge("analyze", "search").
		AddEdge("search", "synth").
		AddEdge("synth", "report").
		SetEnd("report"))

	res, err := compiled.Execute(testCtx(), NewRecord("errors", []any{}))

	require.NoError(t, err)
	assert.Equal(t, 4, res.Steps)
	assert.Empty(t, res.State.List("errors", nil))
	assert.True(t, res.State.Has("errors"))
}

// TestEndToEnd_SearchAlwaysFails runs the error path: search fails every
// time, is retried once, and the run reaches report via the fallback.
func TestEndToEnd_SearchAlwaysFails(t *testing.T) {
	var reportSaw Record

	compiled := mustCompile(NewGraph().
		AddNode("analyze", noop).
		AddNode("search", makeFailingNode(errors.New("search service unavailable"))).
		AddNode("synth", noop).
		AddNode("report", func(_ Context, in Record) (Record, error) {
			reportSaw = in
			return NewRecord("final_report", "degraded"), nil
		}).
		SetStart("analyze").
		AddEdge("analyze", "search").
		AddRetryEdges("search", "synth", RetryPolicy{MaxRetries: 2, Fallback: "report"}).
		AddEdge("synth", "report").
		SetEnd("report"))

	maxSteps := 10
	res, err := compiled.Execute(testCtx(), NewRecord("errors", []any{}, "retry_count", 0), WithMaxSteps(maxSteps))

	require.NoError(t, err)
	assert.Equal(t, []string{"analyze", "search", "search", "report"}, res.Path)
	assert.Len(t, res.State.Strings("errors", nil), 2)
	assert.Equal(t, 2, res.State.Int("retry_count", 0))
	assert.LessOrEqual(t, res.Steps, maxSteps)
	assert.Equal(t, "degraded", res.State.String("final_report", ""))
	assert.Len(t, reportSaw.Strings("errors", nil), 2)
}
