package stategraph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout_FastNodePasses(t *testing.T) {
	fn := WithTimeout(increment, time.Second)

	update, err := fn(testCtx(), NewRecord("count", 1))

	require.NoError(t, err)
	assert.Equal(t, 2, update.Int("count", 0))
}

func TestWithTimeout_SlowNodeTimesOut(t *testing.T) {
	slow := func(ctx Context, _ Record) (Record, error) {
		<-ctx.Done()
		return NewRecord("late", true), nil
	}

	compiled := mustCompile(NewGraph().
		AddNode("slow", WithTimeout(slow, 20*time.Millisecond)).
		AddNode("fallback", noop).
		SetStart("slow").
		AddRetryEdges("slow", END, RetryPolicy{MaxRetries: 1, Fallback: "fallback"}).
		SetEnd("fallback"))

	res, err := compiled.Execute(testCtx(), Record{})

	require.NoError(t, err, "a timeout is a recoverable node failure")
	assert.Equal(t, []string{"slow", "fallback"}, res.Path)
	assert.False(t, res.State.Has("late"))
	require.Len(t, res.State.Strings("errors", nil), 1)
	assert.Contains(t, res.State.Strings("errors", nil)[0], "timed out after 20ms")
}

// TestWithTimeout_WaitsForNodeBeforeNextStep runs a node that ignores its
// deadline. The next node must not start until the slow body has returned.
func TestWithTimeout_WaitsForNodeBeforeNextStep(t *testing.T) {
	var running, overlap atomic.Int32
	stubborn := func(Context, Record) (Record, error) {
		running.Add(1)
		defer running.Add(-1)
		time.Sleep(100 * time.Millisecond)
		return Record{}, nil
	}

	compiled := mustCompile(NewGraph().
		AddNode("slow", WithTimeout(stubborn, 10*time.Millisecond)).
		AddNode("next", func(Context, Record) (Record, error) {
			overlap.Store(running.Load())
			return Record{}, nil
		}).
		SetStart("slow").
		AddEdge("slow", "next").
		SetEnd("next"))

	start := time.Now()
	res, err := compiled.Execute(testCtx(), Record{})

	require.NoError(t, err)
	assert.Equal(t, []string{"slow", "next"}, res.Path)
	assert.Zero(t, overlap.Load())
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	require.Len(t, res.State.Strings("errors", nil), 1)
	assert.Contains(t, res.State.Strings("errors", nil)[0], "timed out after 10ms")
}

func TestWithTimeout_ErrorShape(t *testing.T) {
	blocked := func(ctx Context, _ Record) (Record, error) {
		time.Sleep(200 * time.Millisecond)
		return Record{}, nil
	}
	fn := WithTimeout(blocked, 10*time.Millisecond)

	_, err := fn(testCtx(), Record{})

	var nodeErr *NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 10*time.Millisecond, timeoutErr.Timeout)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeout_NodeHonouringDeadline(t *testing.T) {
	cooperative := func(ctx Context, _ Record) (Record, error) {
		<-ctx.Done()
		return Record{}, ctx.Err()
	}
	fn := WithTimeout(cooperative, 10*time.Millisecond)

	_, err := fn(testCtx(), Record{})

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWithTimeout_ParentCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx := NewContext(parent)

	fn := WithTimeout(func(ctx Context, _ Record) (Record, error) {
		cancel()
		<-ctx.Done()
		return Record{}, ctx.Err()
	}, time.Second)

	_, err := fn(ctx, Record{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestWithTimeout_PreservesContextMetadata(t *testing.T) {
	var runID string
	fn := WithTimeout(func(ctx Context, _ Record) (Record, error) {
		runID = ctx.RunID()
		_, hasDeadline := ctx.Deadline()
		return NewRecord("deadline", hasDeadline), nil
	}, time.Second)

	update, err := fn(NewContext(context.Background(), WithContextRunID("r-1")), Record{})

	require.NoError(t, err)
	assert.Equal(t, "r-1", runID)
	assert.True(t, update.Bool("deadline", false))
}

func TestWithTimeout_PanicInNode(t *testing.T) {
	fn := WithTimeout(makePanicNode("inside goroutine"), time.Second)

	_, err := fn(testCtx(), Record{})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "inside goroutine", panicErr.Value)
}

func TestWithTimeout_NonPositiveIsIdentity(t *testing.T) {
	errSentinel := errors.New("direct")
	fn := WithTimeout(makeFailingNode(errSentinel), 0)

	_, err := fn(testCtx(), Record{})

	assert.Same(t, errSentinel, err)
	assert.Panics(t, func() { WithTimeout(nil, time.Second) })
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next NodeFunc) NodeFunc {
			return func(ctx Context, in Record) (Record, error) {
				order = append(order, name+">")
				out, err := next(ctx, in)
				order = append(order, "<"+name)
				return out, err
			}
		}
	}

	fn := Chain(increment, tag("outer"), tag("inner"), Timeout(time.Second))
	update, err := fn(testCtx(), NewRecord("count", 0))

	require.NoError(t, err)
	assert.Equal(t, 1, update.Int("count", 0))
	assert.Equal(t, []string{"outer>", "inner>", "<inner", "<outer"}, order)
	assert.Panics(t, func() { Chain(nil) })
}
