package workflows

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// Reasoning stage names.
const (
	StageGenerateThoughts = "generate_thoughts"
	StageFormulateAnswer  = "formulate_answer"
)

// ReasoningSchema is open; only the fields the stages exchange are declared.
var ReasoningSchema = stategraph.NewSchema(
	stategraph.Field{Name: "question", Kind: stategraph.KindString, Default: ""},
	stategraph.Field{Name: "thoughts", Kind: stategraph.KindList},
	stategraph.Field{Name: "answer", Kind: stategraph.KindString, Default: ""},
)

// ReasoningInput returns the initial record for question.
func ReasoningInput(question string) stategraph.Record {
	return ReasoningSchema.New(stategraph.NewRecord("question", question))
}

// BuildReasoning compiles generate_thoughts -> formulate_answer -> END.
func BuildReasoning(deps Deps) (*stategraph.CompiledGraph, error) {
	if deps.LLM == nil {
		return nil, errors.New("reasoning workflow requires an LLM client")
	}
	deps = deps.withDefaults()
	r := &runner{deps: deps}

	thoughts := func(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
		text, err := r.complete(ctx, thoughtsPrompt, in, 0.7)
		if err != nil {
			return stategraph.Record{}, fmt.Errorf("generate thoughts: %w", err)
		}
		var lines []string
		for line := range strings.Lines(text) {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		return stategraph.NewRecord("thoughts", lines), nil
	}

	answer := func(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
		var b strings.Builder
		for i, t := range in.Strings("thoughts", nil) {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- " + t)
		}
		text, err := r.complete(ctx, answerPrompt, in.With("thoughts_bullets", b.String()), 0.3)
		if err != nil {
			return stategraph.Record{}, fmt.Errorf("formulate answer: %w", err)
		}
		return stategraph.NewRecord("answer", strings.TrimSpace(text)), nil
	}

	return stategraph.NewGraph().
		WithSchema(ReasoningSchema).
		AddNode(StageGenerateThoughts, stategraph.Chain(thoughts, stategraph.Timeout(deps.StageTimeout))).
		AddNode(StageFormulateAnswer, stategraph.Chain(answer, stategraph.Timeout(deps.StageTimeout))).
		SetStart(StageGenerateThoughts).
		AddEdge(StageGenerateThoughts, StageFormulateAnswer).
		SetEnd(StageFormulateAnswer).
		Compile()
}
