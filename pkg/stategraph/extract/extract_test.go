package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const analysisFixture = `Here is my analysis.
- stray bullet before any label

1. Key Findings:
- AI diagnostics match specialists on imaging tasks
* Adoption is concentrated in large hospital networks
• Regulators are publishing guidance
Evidence quality: High, with peer-reviewed sources
Conflicting information
- Cost estimates vary by a factor of three
Gaps: long-term outcome data
- not collected, no current label matches "gaps"
`

func TestExtractor_Extract(t *testing.T) {
	ex := Extractor{Labels: []string{"key findings", "conflicting"}}
	sections := ex.Extract(analysisFixture)

	assert.Equal(t, []string{"key findings", "conflicting"}, sections.Labels())
	assert.Equal(t, []string{
		"- AI diagnostics match specialists on imaging tasks",
		"* Adoption is concentrated in large hospital networks",
		"• Regulators are publishing guidance",
	}, sections.Items("key findings"))
	assert.Equal(t, []string{
		"- Cost estimates vary by a factor of three",
		`- not collected, no current label matches "gaps"`,
	}, sections.Items("conflicting"))
}

func TestExtractor_StripMarkers(t *testing.T) {
	ex := Extractor{Labels: []string{"insights"}, StripMarkers: true}
	sections := ex.Extract("Strategic Insights:\n-   first\n2. second\n- \n")

	assert.Equal(t, []string{"first", "second"}, sections.Items("insights"))
}

func TestExtractor_LabelWinsOverBullet(t *testing.T) {
	ex := Extractor{Labels: []string{"insights", "recommendations"}}
	sections := ex.Extract("Insights\n- one\n- Recommendations follow\n- two\n")

	assert.Equal(t, []string{"- one"}, sections.Items("insights"))
	assert.Equal(t, []string{"- two"}, sections.Items("recommendations"))
}

func TestExtractor_FirstConfiguredLabelWins(t *testing.T) {
	ex := Extractor{Labels: []string{"recommendations", "insights"}}
	sections := ex.Extract("Insights and recommendations\n- both\n")

	assert.Equal(t, []string{"- both"}, sections.Items("recommendations"))
	assert.Nil(t, sections.Items("insights"))
}

func TestExtractor_CustomPrefixes(t *testing.T) {
	ex := Extractor{Labels: []string{"steps"}, BulletPrefixes: []string{">"}}
	sections := ex.Extract("Steps\n> a\n- b\n")

	assert.Equal(t, []string{"> a"}, sections.Items("steps"))
}

func TestExtractor_Empty(t *testing.T) {
	assert.Zero(t, Extractor{}.Extract(analysisFixture).Len())
	assert.Zero(t, Extractor{Labels: []string{"x"}}.Extract("").Len())
}

func TestSections_ItemsIsCopy(t *testing.T) {
	sections := Extractor{Labels: []string{"a"}}.Extract("a\n- one\n")
	items := sections.Items("a")
	items[0] = "changed"

	assert.Equal(t, []string{"- one"}, sections.Items("a"))
}

func TestClassify(t *testing.T) {
	choices := []string{"High", "Medium", "Low"}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"high", analysisFixture, "High"},
		{"case insensitive", "EVIDENCE QUALITY: low", "Low"},
		{"label missing", "quality is high", "Medium"},
		{"no choice on line", "Evidence quality: unclear", "Medium"},
		{"later labelled line", "Evidence quality: unclear\nevidence quality: low", "Low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text, "evidence quality", choices, "Medium"))
		})
	}
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, []string{"x"}, OrDefault([]string{"x"}, "d"))
	assert.Equal(t, []string{"d"}, OrDefault(nil, "d"))
	assert.Empty(t, OrDefault(nil))
}
