package workflows

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalmurphal/stategraph/internal/prompt"
	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/extract"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// Research stage names.
const (
	StageQueryAnalysis  = "query_analysis"
	StageSearch         = "search"
	StageAnalyze        = "analyze"
	StageSynthesize     = "synthesize"
	StageFactCheck      = "fact_check"
	StageGenerateReport = "generate_report"
)

// Text used when a stage cannot produce real content.
const (
	DegradedConfidence    = 0.5
	ReportFailedText      = "Error generating report. Please see error logs."
	SummaryFailedText     = "Report generation failed due to technical issues."
	DefaultComplexity     = "Medium"
	DefaultEvidence       = "Medium"
	defaultFindingText    = "Analysis of research sources completed"
	defaultInsightText    = "Synthesis of research findings completed"
	defaultRecommendation = "Further research recommended"
)

// ResearchSchema declares every field the research workflow reads or writes.
// It is strict: a stage writing an undeclared field fails.
var ResearchSchema = stategraph.NewSchema(
	stategraph.Field{Name: "query", Kind: stategraph.KindString, Default: ""},
	stategraph.Field{Name: "research_plan", Kind: stategraph.KindMap},
	stategraph.Field{Name: "key_topics", Kind: stategraph.KindList},
	stategraph.Field{Name: "complexity_level", Kind: stategraph.KindString, Default: DefaultComplexity},
	stategraph.Field{Name: "search_results", Kind: stategraph.KindList},
	stategraph.Field{Name: "processed_sources", Kind: stategraph.KindList},
	stategraph.Field{Name: "key_findings", Kind: stategraph.KindList},
	stategraph.Field{Name: "evidence_quality", Kind: stategraph.KindString, Default: DefaultEvidence},
	stategraph.Field{Name: "conflicting_info", Kind: stategraph.KindList},
	stategraph.Field{Name: "insights", Kind: stategraph.KindList},
	stategraph.Field{Name: "recommendations", Kind: stategraph.KindList},
	stategraph.Field{Name: "fact_check_results", Kind: stategraph.KindList},
	stategraph.Field{Name: "confidence_score", Kind: stategraph.KindNumber, Default: 0.0},
	stategraph.Field{Name: "final_report", Kind: stategraph.KindString, Default: ""},
	stategraph.Field{Name: "executive_summary", Kind: stategraph.KindString, Default: ""},
	stategraph.Field{Name: stategraph.DefaultRetryCounterField, Kind: stategraph.KindNumber, Default: 0},
	stategraph.Field{Name: stategraph.DefaultRetryNodeField, Kind: stategraph.KindString, Default: ""},
	stategraph.Field{Name: stategraph.DefaultErrorsField, Kind: stategraph.KindList},
).Strict()

// ResearchInput returns the initial record for query, with every schema
// default filled in.
func ResearchInput(query string) stategraph.Record {
	return ResearchSchema.New(stategraph.NewRecord("query", query))
}

// ResearchReport is the decoded outcome of a research run.
type ResearchReport struct {
	Query            string   `mapstructure:"query"`
	KeyTopics        []string `mapstructure:"key_topics"`
	Complexity       string   `mapstructure:"complexity_level"`
	KeyFindings      []string `mapstructure:"key_findings"`
	EvidenceQuality  string   `mapstructure:"evidence_quality"`
	Insights         []string `mapstructure:"insights"`
	Recommendations  []string `mapstructure:"recommendations"`
	Confidence       float64  `mapstructure:"confidence_score"`
	FinalReport      string   `mapstructure:"final_report"`
	ExecutiveSummary string   `mapstructure:"executive_summary"`
	Errors           []string `mapstructure:"errors"`
}

// DecodeReport extracts the report fields from a finished research record.
func DecodeReport(rec stategraph.Record) (ResearchReport, error) {
	var out ResearchReport
	if err := rec.Decode(&out); err != nil {
		return ResearchReport{}, err
	}
	return out, nil
}

// BuildResearch compiles the research graph:
//
//	query_analysis -> search -> analyze -> synthesize -> fact_check -> generate_report -> END
//
// The first four stages retry themselves on failure and fall back to
// generate_report once retries are exhausted. fact_check and generate_report
// degrade instead of retrying.
func BuildResearch(deps Deps) (*stategraph.CompiledGraph, error) {
	if deps.LLM == nil {
		return nil, errors.New("research workflow requires an LLM client")
	}
	deps = deps.withDefaults()
	r := &runner{deps: deps}

	policy := stategraph.RetryPolicy{
		MaxRetries:     deps.MaxRetries,
		Fallback:       StageGenerateReport,
		ResetOnSuccess: true,
	}

	timed := func(fn stategraph.NodeFunc) stategraph.NodeFunc {
		return stategraph.Chain(fn, stategraph.Timeout(deps.StageTimeout))
	}

	return stategraph.NewGraph().
		WithSchema(ResearchSchema).
		AddNode(StageQueryAnalysis, timed(r.analyzeQuery)).
		AddNode(StageSearch, timed(r.search)).
		AddNode(StageAnalyze, timed(r.analyzeSources)).
		AddNode(StageSynthesize, timed(r.synthesize)).
		AddNode(StageFactCheck, timed(r.factCheck)).
		AddNode(StageGenerateReport, timed(r.generateReport)).
		SetStart(StageQueryAnalysis).
		AddRetryEdges(StageQueryAnalysis, StageSearch, policy).
		AddRetryEdges(StageSearch, StageAnalyze, policy).
		AddRetryEdges(StageAnalyze, StageSynthesize, policy).
		AddRetryEdges(StageSynthesize, StageFactCheck, policy).
		AddEdge(StageFactCheck, StageGenerateReport).
		SetEnd(StageGenerateReport).
		Compile()
}

type runner struct {
	deps Deps
}

type queryPlan struct {
	ResearchPlan    map[string]any `json:"research_plan"`
	KeyTopics       []string       `json:"key_topics"`
	ComplexityLevel string         `json:"complexity_level"`
}

func (r *runner) complete(ctx stategraph.Context, t prompt.Template, rec stategraph.Record, temperature float64) (string, error) {
	req, err := t.Request(renderer, rec)
	if err != nil {
		return "", err
	}
	req.Temperature = temperature
	resp, err := r.deps.LLM.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (r *runner) analyzeQuery(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
	query := in.String("query", "")
	text, err := r.complete(ctx, planPrompt, in, 0.1)
	if err != nil {
		return stategraph.Record{}, fmt.Errorf("plan query: %w", err)
	}

	plan, err := llm.ParseJSON[queryPlan](text)
	if err != nil {
		ctx.Logger().Warn("plan response unparseable, using default plan", "err", err)
		plan = queryPlan{}
	}
	if len(plan.ResearchPlan) == 0 {
		plan.ResearchPlan = defaultPlan(query)
	}
	if len(plan.KeyTopics) == 0 {
		plan.KeyTopics = fallbackTopics(query)
	}
	if plan.ComplexityLevel == "" {
		plan.ComplexityLevel = DefaultComplexity
	}

	return stategraph.NewRecord(
		"research_plan", plan.ResearchPlan,
		"key_topics", plan.KeyTopics,
		"complexity_level", plan.ComplexityLevel,
	), nil
}

func defaultPlan(query string) map[string]any {
	return map[string]any{
		"main_objective": "Research and analyze: " + query,
		"sub_objectives": []any{
			"Understand the current state",
			"Identify key factors",
			"Analyze implications",
		},
		"research_approaches": []any{"Literature review", "Expert analysis", "Case studies"},
		"success_criteria":    []any{"Comprehensive coverage", "Reliable sources", "Clear insights"},
	}
}

// fallbackTopics uses the first three words of the query.
func fallbackTopics(query string) []string {
	words := strings.Fields(query)
	return words[:min(3, len(words))]
}

func (r *runner) search(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
	query := in.String("query", "")
	topics := in.Strings("key_topics", nil)
	if len(topics) == 0 {
		topics = fallbackTopics(query)
	}

	var (
		results   []map[string]any
		processed []map[string]any
		seen      = make(map[string]bool)
	)
	for _, topic := range topics {
		hits, err := r.deps.Search.Search(ctx, SearchRequest{
			Query:      strings.TrimSpace(query + " " + topic),
			NumResults: r.deps.ResultsPerTopic,
		})
		if err != nil {
			return stategraph.Record{}, fmt.Errorf("search topic %q: %w", topic, err)
		}
		for _, hit := range hits {
			results = append(results, hit.Map())
			if seen[hit.URL] {
				continue
			}
			seen[hit.URL] = true
			src := hit.Map()
			src["topic"] = topic
			src["relevance_score"] = r.deps.Relevance(hit)
			processed = append(processed, src)
		}
	}
	ctx.Logger().Debug("search complete", "topics", len(topics), "results", len(results), "sources", len(processed))

	return stategraph.NewRecord(
		"search_results", results,
		"processed_sources", processed,
	), nil
}

var analysisSections = extract.Extractor{
	Labels:       []string{"key findings", "conflicting", "gaps"},
	StripMarkers: true,
}

func (r *runner) analyzeSources(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
	text, err := r.complete(ctx, analysisPrompt, in, 0.3)
	if err != nil {
		return stategraph.Record{}, fmt.Errorf("analyze sources: %w", err)
	}

	sections := analysisSections.Extract(text)
	findings := extract.OrDefault(sections.Items("key findings"), defaultFindingText)
	conflicts := sections.Items("conflicting")
	if conflicts == nil {
		conflicts = []string{}
	}

	return stategraph.NewRecord(
		"key_findings", findings,
		"evidence_quality", extract.Classify(text, "evidence quality", []string{"High", "Medium", "Low"}, DefaultEvidence),
		"conflicting_info", conflicts,
	), nil
}

var synthesisSections = extract.Extractor{
	Labels:       []string{"insight", "recommendation"},
	StripMarkers: true,
}

func (r *runner) synthesize(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
	text, err := r.complete(ctx, synthesisPrompt, in, 0.7)
	if err != nil {
		return stategraph.Record{}, fmt.Errorf("synthesize findings: %w", err)
	}

	sections := synthesisSections.Extract(text)
	return stategraph.NewRecord(
		"insights", extract.OrDefault(sections.Items("insight"), defaultInsightText),
		"recommendations", extract.OrDefault(sections.Items("recommendation"), defaultRecommendation),
	), nil
}

func factCheckResults(score float64) []map[string]any {
	return []map[string]any{
		{"check_type": "Source Credibility", "result": "Sources evaluated for credibility", "confidence": score},
		{"check_type": "Logical Consistency", "result": "Findings checked for logical consistency", "confidence": score},
	}
}

// factCheck never blocks the report: a failed call leaves a degraded
// confidence in place and the error in the log.
func (r *runner) factCheck(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
	text, err := r.complete(ctx, factCheckPrompt, in, 0.0)
	if err != nil {
		return stategraph.NewRecord(
			"confidence_score", DegradedConfidence,
			"fact_check_results", factCheckResults(DegradedConfidence),
		), fmt.Errorf("fact check: %w", err)
	}

	score := extract.Confidence(text)
	return stategraph.NewRecord(
		"confidence_score", score,
		"fact_check_results", factCheckResults(score),
	), nil
}

func (r *runner) generateReport(ctx stategraph.Context, in stategraph.Record) (stategraph.Record, error) {
	report, err := r.complete(ctx, reportPrompt, in, 0.5)
	if err != nil {
		return stategraph.NewRecord(
			"final_report", ReportFailedText,
			"executive_summary", SummaryFailedText,
		), fmt.Errorf("generate report: %w", err)
	}

	summary, err := r.complete(ctx, summaryPrompt, stategraph.NewRecord("final_report", report), 0.5)
	if err != nil {
		return stategraph.NewRecord(
			"final_report", report,
			"executive_summary", SummaryFailedText,
		), fmt.Errorf("summarize report: %w", err)
	}

	return stategraph.NewRecord(
		"final_report", report,
		"executive_summary", summary,
	), nil
}
