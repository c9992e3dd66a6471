package workflows

import (
	"context"
	"strings"

	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

const cannedPlan = "```json\n" + `{
  "research_plan": {
    "main_objective": "Map the current state of the topic",
    "sub_objectives": ["Survey recent work", "Identify drivers and risks"],
    "research_approaches": ["Literature review", "Industry reports"],
    "success_criteria": ["Multiple independent sources", "Actionable conclusions"]
  },
  "key_topics": ["current state", "key drivers", "risks"],
  "complexity_level": "Medium",
  "estimated_time": "2 hours",
  "reasoning": "The question spans academic and industry sources.",
}` + "\n```"

const cannedAnalysis = `Key findings:
- Adoption has grown steadily over the last three years
- Academic and industry sources broadly agree on the main drivers
- Cost remains the most cited barrier

Evidence quality: High

Conflicting information:
- Growth estimates differ between industry reports and news coverage

Research gaps:
- Few long-term studies exist`

const cannedSynthesis = `Strategic insights:
- Early adopters gain a durable cost advantage
- Standardisation is the next inflection point

Actionable recommendations:
1. Pilot in one team before a wider rollout
2. Track cost per outcome from the start

Confidence assessment: moderate to high.`

const cannedFactCheck = `Reliability concerns:
- Industry figures are self-reported

Overall confidence score: 0.82`

const cannedReport = `# Research Report

## Executive Summary
The evidence points to steady growth with cost as the main barrier.

## Key Findings
- Adoption has grown steadily
- Cost remains the most cited barrier

## Recommendations
1. Pilot before rollout
2. Track cost per outcome`

const cannedSummary = "Adoption is growing steadily and sources agree on its drivers. Cost is the main barrier, so a measured pilot is the recommended first step."

const cannedThoughts = `Identify what the question is really asking.
Recall the relevant facts and constraints.
Combine them into a single conclusion.`

const cannedAnswer = "The answer follows directly from combining the relevant facts."

var cannedResponses = map[string]string{
	planPrompt.System:      cannedPlan,
	analysisPrompt.System:  cannedAnalysis,
	synthesisPrompt.System: cannedSynthesis,
	factCheckPrompt.System: cannedFactCheck,
	reportPrompt.System:    cannedReport,
	summaryPrompt.System:   cannedSummary,
	thoughtsPrompt.System:  cannedThoughts,
	answerPrompt.System:    cannedAnswer,
}

// NewCannedLLM returns a mock client answering each workflow stage with a
// fixed, well-formed response chosen by the request's system prompt. Unknown
// prompts are echoed back.
func NewCannedLLM() *llm.MockClient {
	return llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		content, ok := cannedResponses[req.SystemPrompt]
		if !ok {
			content = strings.TrimSpace(req.LastUserMessage())
		}
		return &llm.CompletionResponse{
			Content:      content,
			Model:        "canned",
			FinishReason: "stop",
		}, nil
	})
}
