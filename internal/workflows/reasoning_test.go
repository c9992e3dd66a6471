package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

func TestReasoning_EndToEnd(t *testing.T) {
	client := NewCannedLLM()
	compiled, err := BuildReasoning(Deps{LLM: client})
	require.NoError(t, err)

	res, err := compiled.Execute(stategraph.NewContext(context.Background()), ReasoningInput("why is the sky blue"))
	require.NoError(t, err)

	assert.Equal(t, []string{StageGenerateThoughts, StageFormulateAnswer}, res.Path)
	assert.Equal(t, []string{
		"Identify what the question is really asking.",
		"Recall the relevant facts and constraints.",
		"Combine them into a single conclusion.",
	}, res.State.Strings("thoughts", nil))
	assert.Equal(t, cannedAnswer, res.State.String("answer", ""))

	last := client.LastCall()
	require.NotNil(t, last)
	assert.Contains(t, last.LastUserMessage(), "- Recall the relevant facts and constraints.")
	assert.Contains(t, last.LastUserMessage(), "Question: why is the sky blue")
}

func TestReasoning_FailureIsRecorded(t *testing.T) {
	compiled, err := BuildReasoning(Deps{LLM: flakyLLM(thoughtsPrompt.System, -1)})
	require.NoError(t, err)

	res, err := compiled.Execute(stategraph.NewContext(context.Background()), ReasoningInput("q"))
	require.NoError(t, err)

	errs := res.State.Strings(stategraph.DefaultErrorsField, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "node generate_thoughts")
	assert.Equal(t, cannedAnswer, res.State.String("answer", ""))
}
