package workflows

import (
	"fmt"

	"github.com/randalmurphal/stategraph/internal/prompt"
)

// Stage prompts. CannedLLM keys its scripted answers on the system prompts.
var (
	planPrompt = prompt.Template{
		System: "You are a research planning expert. Turn a research question into a structured plan with objectives, key topics and a complexity assessment.",
		User: `Research query: ${query}

Reply with JSON only:
{"research_plan": {"main_objective": "...", "sub_objectives": [], "research_approaches": [], "success_criteria": []},
 "key_topics": ["..."], "complexity_level": "Simple|Medium|Complex", "estimated_time": "...", "reasoning": "..."}`,
	}

	analysisPrompt = prompt.Template{
		System: "You are a content analysis expert. Extract key findings, rate evidence quality and note conflicts and gaps.",
		User: `Research query: ${query}

Sources:
${processed_sources}

List key findings, rate evidence quality (High/Medium/Low), list conflicting information and research gaps.`,
	}

	synthesisPrompt = prompt.Template{
		System: "You are a strategic synthesis expert. Connect findings into insights and actionable recommendations grounded in evidence.",
		User: `Research query: ${query}

Key findings:
${key_findings}

Evidence quality: ${evidence_quality}

Conflicting information:
${conflicting_info}

Give strategic insights, actionable recommendations and a confidence assessment.`,
	}

	factCheckPrompt = prompt.Template{
		System: "You are a rigorous fact-checker. Judge reliability and consistency conservatively and score confidence.",
		User: `Research query: ${query}

Key findings:
${key_findings}

Insights:
${insights}

Source quality: ${evidence_quality}

Give an overall confidence score between 0.0 and 1.0, reliability concerns and how to raise confidence.`,
	}

	reportPrompt = prompt.Template{
		System: "You are an expert research report writer. Produce a structured report: summary, methodology, findings, insights, recommendations, confidence and limitations.",
		User: `Research query: ${query}

Research plan: ${research_plan}
Key findings:
${key_findings}
Insights:
${insights}
Recommendations:
${recommendations}
Confidence score: ${confidence_score}`,
	}

	summaryPrompt = prompt.Template{
		System: "Write a brief executive summary of this research report in two or three paragraphs.",
		User:   "Full report:\n${final_report}",
	}

	thoughtsPrompt = prompt.Template{
		System: "You reason step by step.",
		User:   "Question: ${question}\n\nGenerate 3 logical steps to reason about this question. Think carefully and be thorough.",
	}

	answerPrompt = prompt.Template{
		System: "You answer concisely from your own reasoning.",
		User:   "Question: ${question}\n\nMy reasoning:\n${thoughts_bullets}\n\nBased on this reasoning, what is the final, concise answer?",
	}
)

var renderer = prompt.New(
	prompt.WithMissingAction(prompt.MissingEmpty),
	prompt.WithEmptyText("None identified"),
	prompt.WithFormatter("confidence_score", formatScore),
)

func formatScore(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprint(v)
}
