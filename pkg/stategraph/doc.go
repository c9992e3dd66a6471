/*
Package stategraph drives multi-step agent workflows as directed graphs.

# Overview

Named nodes transform a shared state Record. Each node returns a partial
update that the executor merges into the record; edges decide where to go
next, either statically or through a router that produces a RouteKey resolved
against a mapping and an optional default. Failures are recorded in the
record itself and routed like any other outcome, so retry loops and degraded
fallbacks are ordinary graph structure.

# Basic Usage

Create a graph with nodes and edges, then compile and run:

	func shout(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
	    return stategraph.NewRecord("output", strings.ToUpper(in.String("input", ""))), nil
	}

	func main() {
	    graph := stategraph.NewGraph().
	        AddNode("shout", shout).
	        SetStart("shout").
	        SetEnd("shout")

	    compiled, err := graph.Compile()
	    if err != nil {
	        log.Fatal(err)
	    }

	    ctx := stategraph.NewContext(context.Background())
	    final, err := compiled.Run(ctx, stategraph.NewRecord("input", "hello"))
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(final.String("output", "")) // "HELLO"
	}

# Conditional Routing

A router returns a key; the mapping picks the destination, the default
catches every other key:

	graph.AddConditionalEdges("review",
	    func(ctx stategraph.Context, s stategraph.Record) stategraph.RouteKey {
	        if s.Bool("approved", false) {
	            return "publish"
	        }
	        return "revise"
	    },
	    stategraph.Routes{"publish": "publish", "revise": "draft"},
	    stategraph.WithDefault("draft"),
	    stategraph.WithRouteKeys("publish", "revise"))

A key with no mapping and no default stops the run with *RoutingError.
Compile checks declared keys and reachability, since conditional
destinations are known from the mapping.

# Retries

RetryPolicy keeps its counter in an ordinary record field:

	graph.AddRetryEdges("search", "analyze", stategraph.RetryPolicy{
	    MaxRetries: 2,
	    Fallback:   "report",
	})

A failing search runs again until retry_count reaches MaxRetries, then the
fallback runs. Every failure is appended to the "errors" field, and
retry_node names the node that failed last. With ResetOnSuccess only that
node clears the counter, so RetryTo may point upstream.

# Cycles

Loops are bounded by a step ceiling (default 100, WithMaxSteps). Steps count
node invocations; a run that would exceed the ceiling fails with
*CycleExceededError carrying the state at that point.

# Observability

Enable logging, metrics, tracing and hooks:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	final, err := compiled.Run(ctx, initial,
	    stategraph.WithObservabilityLogger(logger),
	    stategraph.WithMetrics(true),
	    stategraph.WithTracing(true),
	    stategraph.WithHooks(recorder))

Logs include structured fields: run_id, node_id, step, duration_ms.
OpenTelemetry metrics: stategraph.node.executions, stategraph.node.latency_ms, etc.
OpenTelemetry tracing: stategraph.run > stategraph.node.{id} spans.
Hooks see every node invocation before and after it runs; a panicking hook
is recovered and reported in RunResult.HookErrors.

# Thread Safety

  - Graph is NOT safe for concurrent use during construction
  - CompiledGraph IS safe for concurrent use (immutable)
  - Record is an immutable value
  - Context IS safe for concurrent use

# Subpackages

  - extract: Parsing of labelled sections and confidence scores from model text
  - llm: LLM client interface, mock client and JSON repair
  - observability: Logging, metrics, and tracing helpers
  - tracelog: Persisted per-node run logs (memory, SQLite, Redis, JSONL)
  - config: Typed configuration from YAML, JSON, env and dotenv
  - registry: Generic thread-safe registry
*/
package stategraph
