// Package workflows holds the demo pipelines run by the stategraph CLI: a
// multi-stage research assistant and a two-step reasoning chain.
//
// Service handles are injected through Deps so that the same graphs run
// against CannedLLM and SimulatedSearcher offline, or real clients.
package workflows

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
	"github.com/randalmurphal/stategraph/pkg/stategraph/registry"
)

// Defaults for Deps fields left zero.
const (
	DefaultMaxRetries      = 2
	DefaultResultsPerTopic = 3
)

// Deps are the collaborators and tunables a workflow is built with.
type Deps struct {
	LLM    llm.Client
	Search Searcher

	// MaxRetries bounds failed attempts per stage before the fallback.
	MaxRetries int

	// ResultsPerTopic is the search depth for each key topic.
	ResultsPerTopic int

	// StageTimeout caps each LLM or search stage. Zero means no limit.
	StageTimeout time.Duration

	// Relevance scores a processed source. Nil draws uniformly from
	// [0.6, 0.95).
	Relevance func(SearchResult) float64
}

func (d Deps) withDefaults() Deps {
	if d.MaxRetries <= 0 {
		d.MaxRetries = DefaultMaxRetries
	}
	if d.ResultsPerTopic <= 0 {
		d.ResultsPerTopic = DefaultResultsPerTopic
	}
	if d.Search == nil {
		d.Search = SimulatedSearcher{}
	}
	if d.Relevance == nil {
		d.Relevance = func(SearchResult) float64 {
			return 0.6 + rand.Float64()*0.35
		}
	}
	return d
}

// Workflow is a named, buildable pipeline.
type Workflow struct {
	Name        string
	Description string

	// Build compiles the graph against deps.
	Build func(deps Deps) (*stategraph.CompiledGraph, error)

	// Initial builds the starting record for a user input.
	Initial func(input string) stategraph.Record

	// Output names the field printed as the run's answer.
	Output string
}

var catalog = registry.New[string, Workflow]()

func init() {
	register(Workflow{
		Name:        "research",
		Description: "plan, search, analyze, synthesize, fact-check and report on a query",
		Build:       BuildResearch,
		Initial:     ResearchInput,
		Output:      "final_report",
	})
	register(Workflow{
		Name:        "reasoning",
		Description: "generate reasoning steps for a question, then answer it",
		Build:       BuildReasoning,
		Initial:     ReasoningInput,
		Output:      "answer",
	})
}

func register(w Workflow) {
	if !catalog.RegisterUnique(w.Name, w) {
		panic(fmt.Sprintf("workflows: duplicate workflow %q", w.Name))
	}
}

// Lookup returns the workflow registered under name.
func Lookup(name string) (Workflow, error) {
	w, ok := catalog.Get(name)
	if !ok {
		return Workflow{}, fmt.Errorf("unknown workflow %q (available: %v)", name, Names())
	}
	return w, nil
}

// Names lists the registered workflows in registration order.
func Names() []string {
	return catalog.Keys()
}
